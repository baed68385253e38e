package crush

import (
	"net/http"

	"github.com/gin-gonic/gin"

	svcErr "github.com/oggyb/wholikeme/internal/errors"
	"github.com/oggyb/wholikeme/internal/middleware"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type addCrushRequest struct {
	UserID      string `json:"userId"`
	CrushUserID string `json:"crushUserId"`
}

// AddCrush handles POST /api/add-crush.
func (h *Handler) AddCrush(c *gin.Context) {
	var req addCrushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		svcErr.Respond(c, svcErr.InvalidArgument("userId and crushUserId are required"))
		return
	}
	if err := middleware.RequireSelf(c, req.UserID); err != nil {
		svcErr.Respond(c, err)
		return
	}

	res, err := h.svc.AddCrush(c.Request.Context(), req.UserID, req.CrushUserID)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"match":   res.Matched,
		"message": res.Message,
	})
}

// GetCrushes handles GET /api/get-crushes?userId=
func (h *Handler) GetCrushes(c *gin.Context) {
	userID := c.Query("userId")
	if err := middleware.RequireSelf(c, userID); err != nil {
		svcErr.Respond(c, err)
		return
	}
	crushes, err := h.svc.ListCrushes(c.Request.Context(), userID)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"crushes": crushes, "count": len(crushes)})
}

// GetAdmirers handles GET /api/get-admirers?userId=
func (h *Handler) GetAdmirers(c *gin.Context) {
	userID := c.Query("userId")
	if err := middleware.RequireSelf(c, userID); err != nil {
		svcErr.Respond(c, err)
		return
	}
	admirers, err := h.svc.ListAdmirers(c.Request.Context(), userID)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admirers": admirers, "count": len(admirers)})
}

// GetMatches handles GET /api/get-matches?userId=
func (h *Handler) GetMatches(c *gin.Context) {
	userID := c.Query("userId")
	if err := middleware.RequireSelf(c, userID); err != nil {
		svcErr.Respond(c, err)
		return
	}
	matches, err := h.svc.ListMatches(c.Request.Context(), userID)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches, "count": len(matches)})
}
