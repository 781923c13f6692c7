package devserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "csv-upload-dev-server",
		})
	})

	h := NewUploadHandler(deps)

	r.POST("/upload/", h.UploadCSV)
	r.GET("/status/:file_id/", h.UploadStatus)
	r.GET("/invoices/:file_id", h.ViewInvoices)

	return r
}
