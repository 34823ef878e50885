package routes

import (
	"io/fs"
	"net/http"

	"pdf-qa-platform/web"

	"github.com/gin-gonic/gin"
)

// SetupUIRoutes serves the embedded chat UI under /ui/
func SetupUIRoutes(router *gin.Engine) error {
	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		return err
	}
	router.StaticFS("/ui", http.FS(static))
	return nil
}
