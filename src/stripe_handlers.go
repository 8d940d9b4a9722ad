package main

import (
	"io"
	"net/http"
	"tourbook/src/lib"
	"tourbook/src/middlewares"
	"tourbook/src/services"
	"tourbook/src/types"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 65536

// stripeWebhookRoute is registered outside the auth group; the signature
// is checked against the body exactly as received.
func stripeWebhookRoute(g *gin.Engine, svc *services.BookingService) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/bookings/payment/webhook", middlewares.WebhookRoute, func(ctx *gin.Context) {
		payload, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxWebhookBody))
		if err != nil {
			lib.GetLogger().Errorf("Error reading request body: %s", err.Error())
			ctx.Error(types.Retryable("could not read webhook body", err))
			return
		}
		if err := svc.HandleWebhook(ctx.Request.Context(), ctx.GetHeader("Stripe-Signature"), payload); err != nil {
			ctx.Error(err)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"received": true})
	})
	return apiv1
}
