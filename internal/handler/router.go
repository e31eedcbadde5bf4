package handler

import (
	"github.com/avkuzmin/slugline/internal/middleware"
	"github.com/avkuzmin/slugline/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(
	links service.LinkService,
	redirects service.RedirectService,
	rateLimiter *middleware.RateLimiter,
	identity gin.HandlerFunc,
	logger *zap.Logger,
) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Request logging
	router.Use(func(c *gin.Context) {
		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
		)
		c.Next()
	})

	if rateLimiter != nil {
		router.Use(rateLimiter.Middleware())
	}

	linkHandler := NewLinkHandler(links, redirects, logger)

	// Authenticated CRUD surface
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", HealthCheck)

		authed := v1.Group("")
		if identity != nil {
			authed.Use(identity)
		}
		authed.POST("/links", linkHandler.CreateLink)
		authed.GET("/links", linkHandler.ListLinks)
		authed.GET("/links/:id", linkHandler.GetLink)
		authed.PATCH("/links/:id", linkHandler.UpdateLink)
		authed.DELETE("/links/:id", linkHandler.DeleteLink)
		authed.GET("/links/:id/stats", linkHandler.GetLinkStats)
	}

	// Public redirect, unauthenticated by design
	router.GET("/:slug", linkHandler.Redirect)

	// Static API docs
	AddDocsRoutes(router)

	return router
}
