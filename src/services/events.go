package services

import (
	"context"
	"tourbook/src/models"
	"tourbook/src/types"

	"github.com/sirupsen/logrus"
)

func bookingPayload(b *models.Booking) types.JSONB {
	payload := types.JSONB{
		"booking_id":     b.ID.String(),
		"user_id":        b.UserID,
		"tour_id":        b.TourID,
		"booking_status": string(b.BookingStatus),
		"payment_status": string(b.PaymentStatus),
		"total_amount":   b.TotalAmount,
	}
	if b.StripePaymentIntentID != nil {
		payload["payment_intent_id"] = *b.StripePaymentIntentID
	}
	return payload
}

// publish is best effort; a broker failure never undoes a committed change.
func (s *BookingService) publish(ctx context.Context, event types.LifecycleEvent, payload types.JSONB) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, event, payload); err != nil {
		s.log.WithFields(logrus.Fields{
			"event":      event,
			"booking_id": payload["booking_id"],
		}).Warnf("failed to publish event: %s", err.Error())
	}
}

func (s *BookingService) notify(ctx context.Context, event types.LifecycleEvent, booking *models.Booking) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	var err error
	switch event {
	case types.EVENT_PAYMENT_CONFIRMED:
		err = s.notifier.BookingConfirmed(ctx, booking)
	case types.EVENT_BOOKING_CANCELLED:
		err = s.notifier.BookingCancelled(ctx, booking)
	}
	if err != nil {
		s.log.WithField("booking_id", booking.ID.String()).Warnf("failed to send notification: %s", err.Error())
	}
}
