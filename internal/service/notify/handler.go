package notify

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/wholikeme/internal/db"
	svcErr "github.com/oggyb/wholikeme/internal/errors"
	"github.com/oggyb/wholikeme/internal/middleware"
	"github.com/oggyb/wholikeme/internal/push"
)

// Handler exposes the inbox and push-subscription endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type notificationView struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	Type       string  `json:"type"`
	Title      string  `json:"title"`
	Message    string  `json:"message"`
	TitleEN    string  `json:"title_en"`
	TitleFR    string  `json:"title_fr"`
	MessageEN  string  `json:"message_en"`
	MessageFR  string  `json:"message_fr"`
	FromUserID *string `json:"from_user_id"`
	IsRead     bool    `json:"is_read"`
	CreatedAt  string  `json:"created_at"`
}

func toView(n db.Notification, lang string) notificationView {
	return notificationView{
		ID:         n.ID,
		UserID:     n.UserID,
		Type:       n.Type,
		Title:      n.Title(lang),
		Message:    n.Message(lang),
		TitleEN:    n.TitleEN,
		TitleFR:    n.TitleFR,
		MessageEN:  n.MessageEN,
		MessageFR:  n.MessageFR,
		FromUserID: n.FromUserID,
		IsRead:     n.IsRead,
		CreatedAt:  n.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// GetNotifications handles GET /api/get-notifications?userId=&paginationToken=&limit=&lang=
func (h *Handler) GetNotifications(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		svcErr.Respond(c, svcErr.InvalidArgument("userId is required"))
		return
	}
	if err := middleware.RequireSelf(c, userID); err != nil {
		svcErr.Respond(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	var token *string
	if t := c.Query("paginationToken"); t != "" {
		token = &t
	}

	res, err := h.svc.List(c.Request.Context(), userID, token, limit)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}

	lang := c.DefaultQuery("lang", h.svc.Language())
	views := make([]notificationView, 0, len(res.Notifications))
	for _, n := range res.Notifications {
		views = append(views, toView(n, lang))
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications":       views,
		"unreadCount":         res.UnreadCount,
		"count":               res.Count,
		"nextPaginationToken": res.NextToken,
	})
}

// UnreadCount handles GET /api/unread-count?userId=
func (h *Handler) UnreadCount(c *gin.Context) {
	userID := c.Query("userId")
	if err := middleware.RequireSelf(c, userID); err != nil {
		svcErr.Respond(c, err)
		return
	}
	n, err := h.svc.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

type markReadRequest struct {
	NotificationID string `json:"notificationId"`
	UserID         string `json:"userId"`
}

// MarkRead handles POST /api/mark-notification-read with either
// {notificationId} for one notification or {userId} for all of them.
func (h *Handler) MarkRead(c *gin.Context) {
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		svcErr.Respond(c, svcErr.InvalidArgument("Invalid request"))
		return
	}

	ctx := c.Request.Context()
	switch {
	case req.NotificationID != "":
		if err := h.svc.MarkRead(ctx, req.NotificationID, middleware.CallerID(c)); err != nil {
			svcErr.Respond(c, err)
			return
		}
	case req.UserID != "":
		if err := middleware.RequireSelf(c, req.UserID); err != nil {
			svcErr.Respond(c, err)
			return
		}
		if _, err := h.svc.MarkAllRead(ctx, req.UserID); err != nil {
			svcErr.Respond(c, err)
			return
		}
	default:
		svcErr.Respond(c, svcErr.InvalidArgument("notificationId or userId is required"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type saveSubscriptionRequest struct {
	UserID       string          `json:"userId"`
	Subscription json.RawMessage `json:"subscription"`
}

// SaveSubscription handles POST /api/save-push-subscription.
func (h *Handler) SaveSubscription(c *gin.Context) {
	var req saveSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		svcErr.Respond(c, svcErr.InvalidArgument("Invalid request"))
		return
	}
	if err := middleware.RequireSelf(c, req.UserID); err != nil {
		svcErr.Respond(c, err)
		return
	}

	if _, err := h.svc.SaveSubscription(c.Request.Context(), req.UserID, req.Subscription); err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type sendPushRequest struct {
	UserID string `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// SendPush handles POST /api/send-push. Responds 500 "Push failed" when
// nothing was delivered.
func (h *Handler) SendPush(c *gin.Context) {
	var req sendPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		svcErr.Respond(c, svcErr.InvalidArgument("Invalid request"))
		return
	}
	if req.UserID == "" || req.Title == "" || req.Body == "" {
		svcErr.Respond(c, svcErr.InvalidArgument("Missing userId, title or body"))
		return
	}

	if !h.svc.SendPush(c.Request.Context(), req.UserID, push.Message{Title: req.Title, Body: req.Body}) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Push failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
