package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brightstay/membership-api/pkg/version"
)

func registerHealth(r *gin.Engine) {
	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/version", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, version.Info())
	})
}
