package services

import (
	"context"
	"errors"
	"tourbook/src/models"
	"tourbook/src/repository"
	"tourbook/src/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
	maxPage      = 10000
)

type CreateBookingInput struct {
	TourID          uint
	NumberOfPeople  int
	CustomerDetails types.CustomerDetails
}

// TransitionResult is returned by operations that may trigger a refund as
// a side effect. RefundErr is set when the booking change committed but the
// refund did not.
type TransitionResult struct {
	Booking   *models.Booking
	Refund    *models.Payment
	RefundErr error
}

// CreateBooking inserts a PENDING/PENDING booking priced from the tour.
// The tour checks and the insert run as one unit of work.
func (s *BookingService) CreateBooking(ctx context.Context, userID uint, input CreateBookingInput) (*models.Booking, error) {
	if input.NumberOfPeople < 1 {
		return nil, types.InvalidState("number of people must be at least 1")
	}

	var booking models.Booking
	err := s.atomic(ctx, func(ctx context.Context) error {
		tour, err := s.tours.FindByID(ctx, input.TourID)
		if err != nil {
			return lookupErr(err, "tour")
		}
		if !tour.IsActive {
			return types.InvalidState("tour is not available for booking")
		}
		now := s.now()
		if tour.HasStarted(now) {
			return types.InvalidState("cannot book a tour that has already started")
		}

		booking = models.Booking{
			UserID:          userID,
			TourID:          tour.ID,
			BookingDate:     now,
			NumberOfPeople:  input.NumberOfPeople,
			TotalAmount:     tour.CostFrom * float64(input.NumberOfPeople),
			PaymentStatus:   types.PAYMENT_PENDING,
			BookingStatus:   types.BOOKING_PENDING,
			CustomerDetails: input.CustomerDetails,
		}
		if err := s.bookings.Create(ctx, &booking); err != nil {
			return storeErr("create booking", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": booking.ID.String(),
		"user_id":    userID,
		"tour_id":    booking.TourID,
	}).Info("booking created")
	s.publish(ctx, types.EVENT_BOOKING_CREATED, bookingPayload(&booking))

	return s.reload(ctx, booking.ID)
}

func (s *BookingService) reload(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "booking")
	}
	return booking, nil
}

// GetBooking returns the booking with tour and user summaries. Bookings of
// other users are reported as not found.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID, userID uint) (*models.Booking, error) {
	booking, err := s.reload(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, types.NotFound("booking not found")
	}
	return booking, nil
}

// window resolves the requested page and page size, applying defaults and
// the upper bounds.
func window(filters types.BookingsQueryFilters) (page, limit int) {
	page, limit = filters.Page, filters.Limit
	if page < 1 {
		page = defaultPage
	}
	if page > maxPage {
		page = maxPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func (s *BookingService) ListUserBookings(ctx context.Context, userID uint, filters types.BookingsQueryFilters) ([]models.Booking, types.Pagination, error) {
	page, limit := window(filters)
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	bookings, total, err := s.bookings.ListByUser(ctx, userID, filters.Status, page, limit)
	if err != nil {
		return nil, types.Pagination{}, storeErr("list bookings", err)
	}
	return bookings, types.NewPagination(page, limit, total), nil
}

// ListTourBookings lists a tour's bookings, newest first. Guides only see
// tours they lead.
func (s *BookingService) ListTourBookings(ctx context.Context, tourID uint, requester types.Requester, filters types.BookingsQueryFilters) ([]models.Booking, types.Pagination, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	tour, err := s.tours.FindByID(ctx, tourID)
	if err != nil {
		return nil, types.Pagination{}, lookupErr(err, "tour")
	}
	if err := authorizeTour(tour, requester); err != nil {
		return nil, types.Pagination{}, err
	}
	page, limit := window(filters)
	bookings, total, err := s.bookings.ListByTour(ctx, tourID, filters.Status, page, limit)
	if err != nil {
		return nil, types.Pagination{}, storeErr("list tour bookings", err)
	}
	return bookings, types.NewPagination(page, limit, total), nil
}

func (s *BookingService) ListPayments(ctx context.Context, bookingID uuid.UUID, userID uint) ([]models.Payment, error) {
	if _, err := s.GetBooking(ctx, bookingID, userID); err != nil {
		return nil, err
	}
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	rows, err := s.ledger.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, storeErr("list payments", err)
	}
	return rows, nil
}

func authorizeTour(tour *models.Tour, requester types.Requester) error {
	switch requester.Role {
	case types.ROLE_ADMIN:
		return nil
	case types.ROLE_GUIDE:
		if tour.GuideID == requester.ID {
			return nil
		}
		return types.Forbidden("you are not the guide of this tour")
	}
	return types.Forbidden("insufficient permissions")
}

// CancelBooking cancels the user's booking. A paid booking is refunded
// after the cancellation commits; a failed refund is reported in the result
// and leaves the cancellation in place.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID uuid.UUID, userID uint, reason *string) (*TransitionResult, error) {
	var cancelled models.Booking
	err := s.atomic(ctx, func(ctx context.Context) error {
		booking, err := s.bookings.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return lookupErr(err, "booking")
		}
		if booking.UserID != userID {
			return types.NotFound("booking not found")
		}
		switch booking.BookingStatus {
		case types.BOOKING_CANCELLED:
			return types.InvalidState("booking is already cancelled")
		case types.BOOKING_COMPLETED:
			return types.InvalidState("cannot cancel a completed booking")
		case types.BOOKING_REFUNDED:
			return types.InvalidState("cannot cancel a refunded booking")
		}

		tour, err := s.tours.FindByID(ctx, booking.TourID)
		switch {
		case err == nil:
			if tour.StartDate.Sub(s.now()) < s.opts.CancellationCutoff {
				return types.InvalidState("bookings can only be cancelled more than %.0f hours before the tour starts", s.opts.CancellationCutoff.Hours())
			}
		case !errors.Is(err, repository.ErrNotFound):
			return lookupErr(err, "tour")
		}

		booking.BookingStatus = types.BOOKING_CANCELLED
		booking.CancellationReason = reason
		if err := s.bookings.Save(ctx, booking); err != nil {
			return storeErr("cancel booking", err)
		}
		cancelled = *booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": cancelled.ID.String(),
		"user_id":    userID,
	}).Info("booking cancelled")
	s.publish(ctx, types.EVENT_BOOKING_CANCELLED, bookingPayload(&cancelled))
	s.notify(ctx, types.EVENT_BOOKING_CANCELLED, &cancelled)

	return s.refundAfterCancel(ctx, &cancelled, cancellationRefundReason(reason))
}

// refundAfterCancel issues the full refund of a cancelled paid booking.
func (s *BookingService) refundAfterCancel(ctx context.Context, cancelled *models.Booking, reason string) (*TransitionResult, error) {
	result := &TransitionResult{}
	refundable := cancelled.IsPaid() || cancelled.PaymentStatus == types.PAYMENT_PARTIALLY_REFUNDED
	if refundable && cancelled.IntentID() != "" {
		refund, err := s.RefundPayment(ctx, cancelled.IntentID(), nil, reason)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"booking_id": cancelled.ID.String(),
				"intent_id":  cancelled.IntentID(),
			}).Errorf("refund after cancellation failed: %s", err.Error())
			payload := bookingPayload(cancelled)
			payload["error"] = types.AsAppError(err).Message
			s.publish(ctx, types.EVENT_REFUND_FAILED, payload)
			result.RefundErr = err
		} else {
			result.Refund = refund.Refund
		}
	}

	booking, err := s.reload(ctx, cancelled.ID)
	if err != nil {
		booking = cancelled
	}
	result.Booking = booking
	return result, nil
}

func cancellationRefundReason(reason *string) string {
	if reason == nil || *reason == "" {
		return "Booking cancelled"
	}
	return "Booking cancelled: " + *reason
}

// UpdateBookingStatus applies a guide or admin status change. Only legal
// edges of the booking state machine are accepted; REFUNDED is reached
// through RefundPayment alone.
func (s *BookingService) UpdateBookingStatus(ctx context.Context, bookingID uuid.UUID, status types.BookingStatus, requester types.Requester) (*TransitionResult, error) {
	if !status.Valid() {
		return nil, types.InvalidState("invalid booking status %q", status)
	}
	if status == types.BOOKING_REFUNDED {
		return nil, types.InvalidState("bookings are marked refunded by issuing a refund")
	}

	var (
		updated models.Booking
		from    types.BookingStatus
	)
	err := s.atomic(ctx, func(ctx context.Context) error {
		booking, err := s.bookings.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return lookupErr(err, "booking")
		}
		if requester.Role != types.ROLE_ADMIN {
			tour, err := s.tours.FindByID(ctx, booking.TourID)
			if err != nil {
				return lookupErr(err, "tour")
			}
			if err := authorizeTour(tour, requester); err != nil {
				return err
			}
		}
		if booking.BookingStatus.Terminal() {
			return types.InvalidState("booking is %s and can no longer change", booking.BookingStatus)
		}
		if !booking.BookingStatus.CanTransitionTo(status) {
			return types.InvalidState("cannot change booking status from %s to %s", booking.BookingStatus, status)
		}
		from = booking.BookingStatus
		booking.BookingStatus = status
		if err := s.bookings.Save(ctx, booking); err != nil {
			return storeErr("update booking status", err)
		}
		updated = *booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": updated.ID.String(),
		"from":       from,
		"to":         status,
		"by":         requester.ID,
	}).Info("booking status changed")
	payload := bookingPayload(&updated)
	payload["previous_status"] = string(from)
	s.publish(ctx, types.EVENT_BOOKING_STATUS_CHANGED, payload)

	if status == types.BOOKING_CANCELLED {
		s.notify(ctx, types.EVENT_BOOKING_CANCELLED, &updated)
		return s.refundAfterCancel(ctx, &updated, "Booking cancelled by staff")
	}
	booking, err := s.reload(ctx, updated.ID)
	if err != nil {
		return nil, err
	}
	return &TransitionResult{Booking: booking}, nil
}

// CompleteFinishedBookings moves confirmed bookings whose tour has ended to
// COMPLETED and returns how many were moved.
func (s *BookingService) CompleteFinishedBookings(ctx context.Context) (int, error) {
	listCtx, cancel := s.storeCtx(ctx)
	candidates, err := s.bookings.ListCompletable(listCtx, s.now())
	cancel()
	if err != nil {
		return 0, storeErr("list completable bookings", err)
	}

	completed := 0
	for _, candidate := range candidates {
		var done *models.Booking
		err := s.atomic(ctx, func(ctx context.Context) error {
			booking, err := s.bookings.FindByIDForUpdate(ctx, candidate.ID)
			if err != nil {
				return lookupErr(err, "booking")
			}
			if booking.BookingStatus != types.BOOKING_CONFIRMED {
				return nil
			}
			booking.BookingStatus = types.BOOKING_COMPLETED
			if err := s.bookings.Save(ctx, booking); err != nil {
				return storeErr("complete booking", err)
			}
			done = booking
			return nil
		})
		if err != nil {
			s.log.WithField("booking_id", candidate.ID.String()).Errorf("failed to complete booking: %s", err.Error())
			continue
		}
		if done != nil {
			completed++
			s.publish(ctx, types.EVENT_BOOKING_COMPLETED, bookingPayload(done))
		}
	}
	if completed > 0 {
		s.log.Infof("completed %d bookings", completed)
	}
	return completed, nil
}
