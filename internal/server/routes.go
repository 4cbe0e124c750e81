package server

import (
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/time/rate"

	_ "hhc/scripture-sync/internal/server/docs"
)

// RegisterRoutes builds the router over health, login/logout, the save
// endpoint and the sync dispatcher, per SPEC_FULL.md §4.23.
func (a *API) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), LoggerMiddleware())
	if a.requireSecureTransport {
		r.Use(a.RequireSecureTransport())
	}

	r.GET("/health", a.HandleHealth)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.POST("/login", RateLimitPerIP(rate.Every(time.Second), 5), a.HandleLogin)

	authorized := r.Group("/")
	authorized.Use(a.AuthMiddleware())
	authorized.POST("/logout", a.HandleLogout)
	authorized.POST("/api/save", a.HandleSave)
	authorized.POST("/sync/bibles", a.HandleSync)

	return r
}
