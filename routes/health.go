package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// LivenessMessage is the body of GET /
const LivenessMessage = "PDF QA server is running"

func SetupHealthRoutes(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, LivenessMessage)
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})
}
