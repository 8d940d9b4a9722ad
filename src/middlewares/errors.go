package middlewares

import (
	"net/http"
	"tourbook/src/config"
	"tourbook/src/lib"
	"tourbook/src/types"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	webhookRouteKey = "webhook_route"
	retryAfter      = "5"
)

// ErrorHandler renders the last error a handler attached with ctx.Error.
// Causes are only exposed in development.
func ErrorHandler(ctx *gin.Context) {
	ctx.Next()
	if len(ctx.Errors) == 0 || ctx.Writer.Written() {
		return
	}

	appErr := types.AsAppError(ctx.Errors.Last().Err)
	status := appErr.Kind.HTTPStatus()
	switch {
	case appErr.Kind == types.ERR_INTERNAL && appErr.Retryable:
		status = http.StatusServiceUnavailable
		ctx.Header("Retry-After", retryAfter)
	case appErr.Kind == types.ERR_UNAUTHORIZED && ctx.GetBool(webhookRouteKey):
		status = http.StatusBadRequest
	}

	fields := logrus.Fields{
		"method": ctx.Request.Method,
		"path":   ctx.FullPath(),
		"status": status,
		"kind":   appErr.Kind,
	}
	if status >= http.StatusInternalServerError {
		lib.GetLogger().WithFields(fields).Error(appErr.Error())
	} else {
		lib.GetLogger().WithFields(fields).Info(appErr.Message)
	}

	body := gin.H{"kind": appErr.Kind, "message": appErr.Message}
	if config.IsDevelopment() && appErr.Err != nil {
		body["detail"] = appErr.Err.Error()
	}
	ctx.JSON(status, gin.H{"success": false, "error": body})
}

// WebhookRoute marks a route whose signature failures answer 400.
func WebhookRoute(ctx *gin.Context) {
	ctx.Set(webhookRouteKey, true)
	ctx.Next()
}

// BadRequest attaches a binding failure as INVALID_STATE.
func BadRequest(ctx *gin.Context, err error) {
	ctx.Error(types.InvalidState("invalid request: %s", err.Error()))
}
