package user

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/wholikeme/internal/db"
	svcErr "github.com/oggyb/wholikeme/internal/errors"
	"github.com/oggyb/wholikeme/internal/middleware"
)

// Profile is the public view of a user.
type Profile struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Image     string     `json:"image,omitempty"`
	Age       *int       `json:"age,omitempty"`
	Location  string     `json:"location,omitempty"`
	Bio       string     `json:"bio,omitempty"`
	Interests []string   `json:"interests,omitempty"`
	Gender    string     `json:"gender,omitempty"`
	IsOnline  bool       `json:"is_online"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
}

func ToProfile(u db.User) Profile {
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Image:     u.Image,
		Age:       u.Age,
		Location:  u.Location,
		Bio:       u.Bio,
		Interests: u.Interests,
		Gender:    u.Gender,
		IsOnline:  u.IsOnline,
		LastSeen:  u.LastSeen,
	}
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type syncRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Image    string `json:"image"`
	GoogleID string `json:"google_id"`
}

// SyncUser handles POST /api/sync-user.
func (h *Handler) SyncUser(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		svcErr.Respond(c, svcErr.InvalidArgument("Invalid request"))
		return
	}

	u, err := h.svc.Sync(c.Request.Context(), SyncInput{
		Email:    req.Email,
		Name:     req.Name,
		Image:    req.Image,
		GoogleID: req.GoogleID,
	})
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": ToProfile(*u)})
}

// GetUser handles GET /api/get-user?email= (or ?id=).
func (h *Handler) GetUser(c *gin.Context) {
	identifier := c.Query("email")
	if identifier == "" {
		identifier = c.Query("id")
	}
	if identifier == "" {
		svcErr.Respond(c, svcErr.InvalidArgument("Email is required"))
		return
	}

	u, err := h.svc.Resolve(c.Request.Context(), identifier)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": ToProfile(*u)})
}

// SearchUsers handles GET /api/search-users?query=&currentUserId=
func (h *Handler) SearchUsers(c *gin.Context) {
	currentUserID := c.Query("currentUserId")
	if err := middleware.RequireSelf(c, currentUserID); err != nil {
		svcErr.Respond(c, err)
		return
	}

	users, err := h.svc.Search(c.Request.Context(), c.Query("query"), currentUserID)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}

	out := make([]Profile, 0, len(users))
	for _, u := range users {
		out = append(out, ToProfile(u))
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

type updateProfileRequest struct {
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Age       *int     `json:"age"`
	Bio       string   `json:"bio"`
	Interests []string `json:"interests"`
	Location  string   `json:"location"`
	Gender    string   `json:"gender"`
	Image     string   `json:"image"`
}

// UpdateProfile handles POST /api/update-profile.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		svcErr.Respond(c, svcErr.InvalidArgument("Invalid request"))
		return
	}
	if req.Email == "" {
		svcErr.Respond(c, svcErr.InvalidArgument("Email is required"))
		return
	}

	ctx := c.Request.Context()
	u, err := h.svc.Resolve(ctx, req.Email)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	if err := middleware.RequireSelf(c, u.ID); err != nil {
		svcErr.Respond(c, err)
		return
	}

	u, err = h.svc.UpdateProfile(ctx, u.ID, ProfileInput{
		Name:      req.Name,
		Age:       req.Age,
		Bio:       req.Bio,
		Interests: req.Interests,
		Location:  req.Location,
		Gender:    req.Gender,
		Image:     req.Image,
	})
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": ToProfile(*u)})
}

type presenceRequest struct {
	UserID   string `json:"userId"`
	IsOnline *bool  `json:"is_online"`
}

// SetOnline handles POST /api/set-online.
func (h *Handler) SetOnline(c *gin.Context) {
	var req presenceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" || req.IsOnline == nil {
		svcErr.Respond(c, svcErr.InvalidArgument("userId and is_online are required"))
		return
	}
	if err := middleware.RequireSelf(c, req.UserID); err != nil {
		svcErr.Respond(c, err)
		return
	}
	if err := h.svc.SetOnline(c.Request.Context(), req.UserID, *req.IsOnline); err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PingOnline handles POST /api/ping-online.
func (h *Handler) PingOnline(c *gin.Context) {
	var req presenceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		svcErr.Respond(c, svcErr.InvalidArgument("userId is required"))
		return
	}
	if err := middleware.RequireSelf(c, req.UserID); err != nil {
		svcErr.Respond(c, err)
		return
	}
	if err := h.svc.PingOnline(c.Request.Context(), req.UserID); err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
