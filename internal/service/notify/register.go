package notify

import (
	"github.com/gin-gonic/gin"

	"github.com/oggyb/wholikeme/internal/app"
)

// Registrar ties the Notify service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Notify service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// RegisterRoutes attaches the inbox and push endpoints
func (r *Registrar) RegisterRoutes(g gin.IRouter) {
	h := NewHandler(NewNotifyService(r.appCtx))

	g.GET("/get-notifications", h.GetNotifications)
	g.GET("/unread-count", h.UnreadCount)
	g.POST("/mark-notification-read", h.MarkRead)
	g.POST("/save-push-subscription", h.SaveSubscription)
	g.POST("/send-push", h.SendPush)
}
