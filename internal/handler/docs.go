package handler

import (
	"github.com/gin-gonic/gin"
)

// AddDocsRoutes serves the static API documentation. The swagger files are
// generated out of band and checked into ./docs.
func AddDocsRoutes(router *gin.Engine) {
	router.StaticFile("/docs", "./docs/swagger-ui.html")
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")

	// Also serve at /swagger.json for compatibility
	router.GET("/swagger.json", func(c *gin.Context) {
		c.File("./docs/swagger.json")
	})
}
