package main

import (
	"net/http"
	"tourbook/src/middlewares"
	"tourbook/src/services"
	"tourbook/src/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func paymentHandlers(g *gin.RouterGroup, svc *services.BookingService) *gin.RouterGroup {
	g.
		POST("/bookings/payment/create-intent", func(ctx *gin.Context) {
			var body types.CreatePaymentIntentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				middlewares.BadRequest(ctx, err)
				return
			}
			intent, err := svc.CreatePaymentIntent(ctx.Request.Context(), uuid.MustParse(body.BookingID), ctx.GetUint("id"))
			if err != nil {
				ctx.Error(err)
				return
			}
			respond(ctx, http.StatusOK, "Payment intent created successfully", intent)
		}).
		POST("/bookings/payment/confirm", func(ctx *gin.Context) {
			var body types.ConfirmPaymentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				middlewares.BadRequest(ctx, err)
				return
			}
			result, err := svc.ConfirmPayment(ctx.Request.Context(), body.PaymentIntentID)
			if err != nil {
				ctx.Error(err)
				return
			}
			respond(ctx, http.StatusOK, "Payment confirmed successfully", result)
		})
	return g
}
