package crush

import (
	"github.com/gin-gonic/gin"

	"github.com/oggyb/wholikeme/internal/app"
)

// Registrar ties the Crush service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Crush service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// RegisterRoutes attaches the add-crush and listing endpoints
func (r *Registrar) RegisterRoutes(g gin.IRouter) {
	h := NewHandler(NewCrushService(r.appCtx))

	g.POST("/add-crush", h.AddCrush)
	g.GET("/get-crushes", h.GetCrushes)
	g.GET("/get-admirers", h.GetAdmirers)
	g.GET("/get-matches", h.GetMatches)
}
