package middlewares

import (
	"net/http"
	"tourbook/src/config"

	"github.com/gin-gonic/gin"
)

func SecureHeaders(ctx *gin.Context) {
	ctx.Header("X-Content-Type-Options", "nosniff")
	ctx.Header("X-Frame-Options", "DENY")
	ctx.Header("Referrer-Policy", "no-referrer")
	ctx.Header("Cache-Control", "no-store")
	if !config.IsDevelopment() {
		ctx.Header("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
	}
	ctx.Next()
}

// Maintenance answers 503 to every request while MAINTENANCE_MODE is on.
func Maintenance(ctx *gin.Context) {
	if config.MaintenanceMode() {
		ctx.Header("Retry-After", "60")
		ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   gin.H{"kind": "UNAVAILABLE", "message": "server is under maintenance"},
		})
		return
	}
	ctx.Next()
}
