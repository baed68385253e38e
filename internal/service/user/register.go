package user

import (
	"github.com/gin-gonic/gin"

	"github.com/oggyb/wholikeme/internal/app"
)

// Registrar ties the User service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the User service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

func (r *Registrar) RegisterRoutes(g gin.IRouter) {
	h := NewHandler(NewUserService(r.appCtx))

	g.POST("/sync-user", h.SyncUser)
	g.GET("/get-user", h.GetUser)
	g.GET("/search-users", h.SearchUsers)
	g.POST("/update-profile", h.UpdateProfile)
	g.POST("/set-online", h.SetOnline)
	g.POST("/ping-online", h.PingOnline)
}
