package main

import (
	"net/http"
	"tourbook/src/middlewares"
	"tourbook/src/services"
	"tourbook/src/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func bookingID(ctx *gin.Context) (uuid.UUID, bool) {
	var params types.BookingURIParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		middlewares.BadRequest(ctx, err)
		return uuid.Nil, false
	}
	return uuid.MustParse(params.ID), true
}

func transitionData(result *services.TransitionResult) gin.H {
	data := gin.H{"booking": result.Booking}
	if result.Refund != nil {
		data["refund"] = result.Refund
	}
	if result.RefundErr != nil {
		data["refund_error"] = types.AsAppError(result.RefundErr).Message
	}
	return data
}

func bookingHandlers(g *gin.RouterGroup, svc *services.BookingService) *gin.RouterGroup {
	g.
		POST("/bookings", func(ctx *gin.Context) {
			var body types.CreateBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				middlewares.BadRequest(ctx, err)
				return
			}
			booking, err := svc.CreateBooking(ctx.Request.Context(), ctx.GetUint("id"), services.CreateBookingInput{
				TourID:          body.TourID,
				NumberOfPeople:  body.NumberOfPeople,
				CustomerDetails: body.CustomerDetails,
			})
			if err != nil {
				ctx.Error(err)
				return
			}
			respond(ctx, http.StatusCreated, "Booking created successfully", booking)
		}).
		GET("/bookings/my-bookings", func(ctx *gin.Context) {
			var filters types.BookingsQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				middlewares.BadRequest(ctx, err)
				return
			}
			bookings, pagination, err := svc.ListUserBookings(ctx.Request.Context(), ctx.GetUint("id"), filters)
			if err != nil {
				ctx.Error(err)
				return
			}
			respond(ctx, http.StatusOK, "Bookings retrieved successfully", gin.H{
				"bookings":   bookings,
				"pagination": pagination,
			})
		}).
		GET("/bookings/:id", func(ctx *gin.Context) {
			id, ok := bookingID(ctx)
			if !ok {
				return
			}
			booking, err := svc.GetBooking(ctx.Request.Context(), id, ctx.GetUint("id"))
			if err != nil {
				ctx.Error(err)
				return
			}
			respond(ctx, http.StatusOK, "Booking retrieved successfully", booking)
		}).
		PUT("/bookings/:id/cancel", func(ctx *gin.Context) {
			id, ok := bookingID(ctx)
			if !ok {
				return
			}
			var body types.CancelBookingRequestBody
			if ctx.Request.ContentLength > 0 {
				if err := ctx.ShouldBindJSON(&body); err != nil {
					middlewares.BadRequest(ctx, err)
					return
				}
			}
			result, err := svc.CancelBooking(ctx.Request.Context(), id, ctx.GetUint("id"), body.Reason)
			if err != nil {
				ctx.Error(err)
				return
			}
			respond(ctx, http.StatusOK, "Booking cancelled successfully", transitionData(result))
		}).
		GET("/bookings/:id/payments", func(ctx *gin.Context) {
			id, ok := bookingID(ctx)
			if !ok {
				return
			}
			rows, err := svc.ListPayments(ctx.Request.Context(), id, ctx.GetUint("id"))
			if err != nil {
				ctx.Error(err)
				return
			}
			respond(ctx, http.StatusOK, "Payments retrieved successfully", rows)
		})
	return g
}

// staffHandlers are the guide and admin routes.
func staffHandlers(g *gin.RouterGroup, svc *services.BookingService) *gin.RouterGroup {
	g.
		GET("/bookings/tour/:tourId/bookings", middlewares.RequireRoles(types.ROLE_GUIDE, types.ROLE_ADMIN), func(ctx *gin.Context) {
			var params types.TourURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				middlewares.BadRequest(ctx, err)
				return
			}
			var filters types.BookingsQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				middlewares.BadRequest(ctx, err)
				return
			}
			bookings, pagination, err := svc.ListTourBookings(ctx.Request.Context(), params.TourID, middlewares.Requester(ctx), filters)
			if err != nil {
				ctx.Error(err)
				return
			}
			respond(ctx, http.StatusOK, "Tour bookings retrieved successfully", gin.H{
				"bookings":   bookings,
				"pagination": pagination,
			})
		}).
		PUT("/bookings/:id/status", middlewares.RequireRoles(types.ROLE_GUIDE, types.ROLE_ADMIN), func(ctx *gin.Context) {
			id, ok := bookingID(ctx)
			if !ok {
				return
			}
			var body types.UpdateBookingStatusRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				middlewares.BadRequest(ctx, err)
				return
			}
			result, err := svc.UpdateBookingStatus(ctx.Request.Context(), id, body.Status, middlewares.Requester(ctx))
			if err != nil {
				ctx.Error(err)
				return
			}
			respond(ctx, http.StatusOK, "Booking status updated successfully", transitionData(result))
		}).
		POST("/bookings/:id/refund", middlewares.RequireRoles(types.ROLE_ADMIN), func(ctx *gin.Context) {
			id, ok := bookingID(ctx)
			if !ok {
				return
			}
			var body types.RefundPaymentRequestBody
			if ctx.Request.ContentLength > 0 {
				if err := ctx.ShouldBindJSON(&body); err != nil {
					middlewares.BadRequest(ctx, err)
					return
				}
			}
			reason := ""
			if body.Reason != nil {
				reason = *body.Reason
			}
			result, err := svc.RefundBooking(ctx.Request.Context(), id, body.Amount, reason)
			if err != nil {
				ctx.Error(err)
				return
			}
			respond(ctx, http.StatusOK, "Refund processed successfully", result)
		})
	return g
}
