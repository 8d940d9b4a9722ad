package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"tourbook/src/models"
	"tourbook/src/payments"
	"tourbook/src/repository"
	"tourbook/src/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type PaymentIntentResult struct {
	ClientSecret    string  `json:"clientSecret"`
	PaymentIntentID string  `json:"paymentIntentId"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
}

type ConfirmResult struct {
	Booking *models.Booking `json:"booking"`
	Payment *models.Payment `json:"payment"`
}

type RefundResult struct {
	Booking *models.Booking `json:"booking"`
	Refund  *models.Payment `json:"refund"`
}

// outcome is the internal state a gateway intent status maps to.
type outcome struct {
	ledger   types.TransactionStatus
	payment  types.PaymentStatus
	booking  types.BookingStatus
	terminal bool
}

func mapIntentStatus(status string) outcome {
	switch status {
	case payments.IntentSucceeded:
		return outcome{types.TRANSACTION_SUCCEEDED, types.PAYMENT_PAID, types.BOOKING_CONFIRMED, true}
	case payments.IntentCanceled:
		return outcome{types.TRANSACTION_CANCELED, types.PAYMENT_FAILED, types.BOOKING_CANCELLED, true}
	case payments.IntentPaymentFailed:
		return outcome{types.TRANSACTION_FAILED, types.PAYMENT_FAILED, types.BOOKING_CANCELLED, true}
	}
	return outcome{types.TRANSACTION_PENDING, types.PAYMENT_PENDING, types.BOOKING_PENDING, false}
}

func awaitingPayment(status string) bool {
	switch status {
	case "requires_payment_method", "requires_confirmation", "requires_action":
		return true
	}
	return false
}

func paymentMethodFor(gatewayType string) types.PaymentMethod {
	switch strings.ToLower(gatewayType) {
	case "paypal":
		return types.PAYMENT_METHOD_PAYPAL
	case "apple_pay":
		return types.PAYMENT_METHOD_APPLE_PAY
	case "google_pay":
		return types.PAYMENT_METHOD_GOOGLE_PAY
	}
	return types.PAYMENT_METHOD_CARD
}

// CreatePaymentIntent starts payment for a booking and returns the client
// secret. At most one intent is initiated per booking at a time; a pending
// intent the gateway still awaits payment on is handed out again.
func (s *BookingService) CreatePaymentIntent(ctx context.Context, bookingID uuid.UUID, userID uint) (*PaymentIntentResult, error) {
	booking, err := s.GetBooking(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}
	if err := checkPayable(booking); err != nil {
		return nil, err
	}

	release, err := s.lock(ctx, "intent:"+bookingID.String(), intentLockTTL, "a payment is already being initiated for this booking")
	if err != nil {
		return nil, err
	}
	defer release()

	logger := s.log.WithFields(logrus.Fields{"booking_id": bookingID.String(), "user_id": userID})
	amountMinor := payments.ToMinorUnits(booking.TotalAmount)

	if reused, err := s.reusePendingIntent(ctx, booking, amountMinor); err != nil {
		return nil, err
	} else if reused != nil {
		logger.WithField("intent_id", reused.PaymentIntentID).Info("reusing pending payment intent")
		return reused, nil
	}

	listCtx, cancel := s.storeCtx(ctx)
	existing, err := s.ledger.ListByBooking(listCtx, bookingID)
	cancel()
	if err != nil {
		return nil, storeErr("list payments", err)
	}
	attempt := 0
	for _, p := range existing {
		if p.TransactionType == types.TRANSACTION_CHARGE {
			attempt++
		}
	}

	intent, err := s.gateway.CreateIntent(ctx, payments.IntentParams{
		AmountMinor: amountMinor,
		Currency:    s.opts.Currency,
		Metadata: map[string]string{
			"bookingId": bookingID.String(),
			"userId":    fmt.Sprint(userID),
			"tourId":    fmt.Sprint(booking.TourID),
		},
		IdempotencyKey: fmt.Sprintf("booking:%s:intent:%d", bookingID, attempt),
	})
	if err != nil {
		logger.Errorf("failed to create payment intent: %s", err.Error())
		return nil, types.AsAppError(err)
	}
	logger = logger.WithField("intent_id", intent.ID)

	err = s.atomic(ctx, func(ctx context.Context) error {
		locked, err := s.bookings.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return lookupErr(err, "booking")
		}
		if err := checkPayable(locked); err != nil {
			return err
		}
		charge := models.Payment{
			BookingID:             bookingID,
			UserID:                userID,
			Amount:                booking.TotalAmount,
			Currency:              payments.LedgerCurrency(s.opts.Currency),
			PaymentMethod:         types.PAYMENT_METHOD_CARD,
			TransactionType:       types.TRANSACTION_CHARGE,
			Status:                types.TRANSACTION_PENDING,
			StripePaymentIntentID: intent.ID,
			Metadata: types.JSONB{
				"tour_id":          booking.TourID,
				"number_of_people": booking.NumberOfPeople,
			},
		}
		if err := s.ledger.Create(ctx, &charge); err != nil {
			return storeErr("record payment", err)
		}
		locked.StripePaymentIntentID = &intent.ID
		locked.PaymentStatus = types.PAYMENT_PENDING
		if err := s.bookings.Save(ctx, locked); err != nil {
			return storeErr("update booking", err)
		}
		return nil
	})
	if err != nil {
		logger.Errorf("payment intent created but not recorded: %s", err.Error())
		return nil, err
	}

	logger.Info("payment intent created")
	payload := bookingPayload(booking)
	payload["payment_intent_id"] = intent.ID
	s.publish(ctx, types.EVENT_PAYMENT_INTENT_CREATED, payload)

	return &PaymentIntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Amount:          booking.TotalAmount,
		Currency:        payments.LedgerCurrency(s.opts.Currency),
	}, nil
}

func checkPayable(booking *models.Booking) error {
	if booking.PaymentStatus == types.PAYMENT_PAID {
		return types.InvalidState("booking is already paid")
	}
	switch booking.BookingStatus {
	case types.BOOKING_CANCELLED:
		return types.InvalidState("cannot pay for a cancelled booking")
	case types.BOOKING_COMPLETED, types.BOOKING_REFUNDED:
		return types.InvalidState("booking can no longer be paid")
	}
	return nil
}

func (s *BookingService) reusePendingIntent(ctx context.Context, booking *models.Booking, amountMinor int64) (*PaymentIntentResult, error) {
	if booking.IntentID() == "" {
		return nil, nil
	}
	findCtx, cancel := s.storeCtx(ctx)
	pending, err := s.ledger.FindPendingCharge(findCtx, booking.ID)
	cancel()
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("load pending payment", err)
	}
	if pending.StripePaymentIntentID != booking.IntentID() {
		return nil, nil
	}
	intent, err := s.gateway.RetrieveIntent(ctx, pending.StripePaymentIntentID)
	if err != nil {
		return nil, types.AsAppError(err)
	}
	if intent.Status == payments.IntentProcessing {
		return nil, types.InvalidState("a payment for this booking is already processing")
	}
	if !awaitingPayment(intent.Status) || intent.AmountMinor != amountMinor {
		return nil, nil
	}
	return &PaymentIntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Amount:          booking.TotalAmount,
		Currency:        payments.LedgerCurrency(s.opts.Currency),
	}, nil
}

// ConfirmPayment reconciles the gateway's view of an intent into the ledger
// row and the booking. Calling it again with an unchanged terminal status
// leaves both untouched.
func (s *BookingService) ConfirmPayment(ctx context.Context, intentID string) (*ConfirmResult, error) {
	intent, err := s.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		return nil, types.AsAppError(err)
	}
	result := mapIntentStatus(intent.Status)
	logger := s.log.WithFields(logrus.Fields{"intent_id": intentID, "status": intent.Status})

	var (
		booking *models.Booking
		charge  *models.Payment
		changed bool
	)
	err = s.atomic(ctx, func(ctx context.Context) error {
		var err error
		charge, err = s.ledger.FindChargeByIntentID(ctx, intentID)
		if err != nil {
			return lookupErr(err, "payment")
		}
		booking, err = s.bookings.FindByIDForUpdate(ctx, charge.BookingID)
		if err != nil {
			return lookupErr(err, "booking")
		}
		if !result.terminal {
			return nil
		}

		if ledgerCanMove(charge.Status, result.ledger) {
			charge.Status = result.ledger
			if intent.HasCharge() {
				charge.StripeChargeID = &intent.ChargeID
			}
			if intent.FailureReason != "" && result.ledger != types.TRANSACTION_SUCCEEDED {
				charge.FailureReason = &intent.FailureReason
			}
			if err := s.ledger.UpdateStatus(ctx, charge); err != nil {
				return storeErr("update payment", err)
			}
			changed = true
		}

		if booking.PaymentStatus != types.PAYMENT_PENDING && booking.PaymentStatus != types.PAYMENT_FAILED {
			return nil
		}
		if booking.PaymentStatus == result.payment && booking.BookingStatus == result.booking {
			return nil
		}
		booking.PaymentStatus = result.payment
		if booking.BookingStatus.CanTransitionTo(result.booking) {
			booking.BookingStatus = result.booking
		} else if result.payment == types.PAYMENT_PAID {
			logger.WithField("booking_id", booking.ID.String()).
				Warnf("payment succeeded for a %s booking; refund required", booking.BookingStatus)
		}
		if result.payment == types.PAYMENT_PAID {
			method := paymentMethodFor(intent.PaymentMethodType)
			booking.PaymentMethod = &method
		}
		if err := s.bookings.Save(ctx, booking); err != nil {
			return storeErr("update booking", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		logger.Errorf("failed to confirm payment: %s", err.Error())
		return nil, err
	}

	if changed {
		logger.WithField("booking_id", booking.ID.String()).Info("payment reconciled")
		payload := bookingPayload(booking)
		payload["payment_id"] = charge.ID.String()
		if result.ledger == types.TRANSACTION_SUCCEEDED {
			s.publish(ctx, types.EVENT_PAYMENT_CONFIRMED, payload)
			s.notify(ctx, types.EVENT_PAYMENT_CONFIRMED, booking)
		} else {
			payload["failure_reason"] = intent.FailureReason
			s.publish(ctx, types.EVENT_PAYMENT_FAILED, payload)
		}
	}

	fresh, err := s.reload(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	return &ConfirmResult{Booking: fresh, Payment: charge}, nil
}

// ledgerCanMove guards the charge row against regressing: succeeded and
// canceled are final, a failed attempt may still succeed on the same intent.
func ledgerCanMove(from, to types.TransactionStatus) bool {
	if from == to {
		return false
	}
	switch from {
	case types.TRANSACTION_PENDING:
		return true
	case types.TRANSACTION_FAILED:
		return to == types.TRANSACTION_SUCCEEDED || to == types.TRANSACTION_CANCELED
	}
	return false
}

// RefundPayment refunds the charge behind intentID, in full when amount is
// nil. The refund is recorded as a new ledger row; the charge row is never
// touched. Refunds of one booking are serialized, and the balance is
// checked again under the booking row lock before the row is written.
func (s *BookingService) RefundPayment(ctx context.Context, intentID string, amount *float64, reason string) (*RefundResult, error) {
	findCtx, cancel := s.storeCtx(ctx)
	charge, err := s.ledger.FindChargeByIntentID(findCtx, intentID)
	cancel()
	if err != nil {
		return nil, lookupErr(err, "payment")
	}

	release, err := s.lock(ctx, "refund:"+charge.BookingID.String(), refundLockTTL, "a refund is already in progress for this booking")
	if err != nil {
		return nil, err
	}
	defer release()

	findCtx, cancel = s.storeCtx(ctx)
	refunded, err := s.ledger.RefundedAmount(findCtx, charge.BookingID)
	cancel()
	if err != nil {
		return nil, storeErr("load refunds", err)
	}

	intent, err := s.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		return nil, types.AsAppError(err)
	}
	if !intent.HasCharge() || intent.Status != payments.IntentSucceeded {
		return nil, types.InvalidState("no charge to refund for this payment")
	}

	remaining := payments.RoundMoney(charge.Amount - refunded)
	if remaining <= 0 {
		return nil, types.InvalidState("payment has already been fully refunded")
	}
	refundAmount := remaining
	if amount != nil {
		refundAmount = payments.RoundMoney(*amount)
		if refundAmount <= 0 || refundAmount > remaining {
			return nil, types.InvalidState("refund amount must be greater than 0 and at most %.2f", remaining)
		}
	}

	params := payments.RefundParams{
		ChargeID: intent.ChargeID,
		Reason:   reason,
		Metadata: map[string]string{
			"bookingId":       charge.BookingID.String(),
			"paymentIntentId": intentID,
		},
		IdempotencyKey: fmt.Sprintf("refund:%s:%d:%d", intentID, payments.ToMinorUnits(refunded), payments.ToMinorUnits(refundAmount)),
	}
	if amount != nil || refunded > 0 {
		minor := payments.ToMinorUnits(refundAmount)
		params.AmountMinor = &minor
	}
	logger := s.log.WithFields(logrus.Fields{
		"intent_id":  intentID,
		"booking_id": charge.BookingID.String(),
		"amount":     refundAmount,
	})
	refund, err := s.gateway.CreateRefund(ctx, params)
	if err != nil {
		logger.Errorf("gateway refund failed: %s", err.Error())
		return nil, types.AsAppError(err)
	}
	logger = logger.WithField("refund_id", refund.ID)

	row, booking, recorded, err := s.recordRefund(ctx, charge, refund, reason)
	if err != nil {
		logger.Errorf("refund issued but not recorded: %s", err.Error())
		return nil, err
	}
	if !recorded {
		logger.Info("refund already recorded")
		return &RefundResult{Booking: booking, Refund: row}, nil
	}

	logger.Info("payment refunded")
	payload := bookingPayload(booking)
	payload["refund_id"] = refund.ID
	payload["refund_amount"] = row.Amount
	payload["transaction_type"] = string(row.TransactionType)
	s.publish(ctx, types.EVENT_PAYMENT_REFUNDED, payload)

	fresh, err := s.reload(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	return &RefundResult{Booking: fresh, Refund: row}, nil
}

// recordRefund writes the ledger row for a gateway refund and moves the
// booking's refund totals. A refund id already in the ledger is returned
// as is with recorded false.
func (s *BookingService) recordRefund(ctx context.Context, charge *models.Payment, refund *payments.Refund, reason string) (*models.Payment, *models.Booking, bool, error) {
	var (
		row      *models.Payment
		booking  *models.Booking
		recorded bool
	)
	err := s.atomic(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.bookings.FindByIDForUpdate(ctx, charge.BookingID)
		if err != nil {
			return lookupErr(err, "booking")
		}
		existing, err := s.ledger.FindByTransactionID(ctx, refund.ID)
		if err == nil {
			row = existing
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return storeErr("load refund", err)
		}

		refunded, err := s.ledger.RefundedAmount(ctx, charge.BookingID)
		if err != nil {
			return storeErr("load refunds", err)
		}
		amount := payments.FromMinorUnits(refund.AmountMinor)
		total := payments.RoundMoney(refunded + amount)
		if total > payments.RoundMoney(charge.Amount) {
			return types.InvalidState("refund of %.2f exceeds the remaining balance of %.2f", amount, payments.RoundMoney(charge.Amount-refunded))
		}
		full := total == payments.RoundMoney(charge.Amount)
		kind := types.TRANSACTION_REFUND
		if !full {
			kind = types.TRANSACTION_PARTIAL_REFUND
		}

		currency := charge.Currency
		if refund.Currency != "" {
			currency = payments.LedgerCurrency(refund.Currency)
		}
		refundID := refund.ID
		chargeID := refund.ChargeID
		row = &models.Payment{
			BookingID:             charge.BookingID,
			UserID:                charge.UserID,
			Amount:                amount,
			Currency:              currency,
			PaymentMethod:         charge.PaymentMethod,
			TransactionType:       kind,
			Status:                types.TRANSACTION_SUCCEEDED,
			StripePaymentIntentID: charge.StripePaymentIntentID,
			StripeChargeID:        &chargeID,
			TransactionID:         &refundID,
			Metadata: types.JSONB{
				"reason":    reason,
				"refund_id": refund.ID,
			},
		}
		if err := s.ledger.Create(ctx, row); err != nil {
			return storeErr("record refund", err)
		}

		now := s.now()
		booking.RefundAmount = &total
		booking.RefundDate = &now
		if full {
			booking.PaymentStatus = types.PAYMENT_REFUNDED
			if booking.BookingStatus.CanTransitionTo(types.BOOKING_REFUNDED) {
				booking.BookingStatus = types.BOOKING_REFUNDED
			}
		} else {
			booking.PaymentStatus = types.PAYMENT_PARTIALLY_REFUNDED
		}
		if err := s.bookings.Save(ctx, booking); err != nil {
			return storeErr("update booking", err)
		}
		recorded = true
		return nil
	})
	if err != nil {
		return nil, nil, false, err
	}
	return row, booking, recorded, nil
}

// RefundBooking refunds the charge behind the booking's current payment
// intent.
func (s *BookingService) RefundBooking(ctx context.Context, bookingID uuid.UUID, amount *float64, reason string) (*RefundResult, error) {
	booking, err := s.reload(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.IntentID() == "" {
		return nil, types.InvalidState("booking has no payment to refund")
	}
	return s.RefundPayment(ctx, booking.IntentID(), amount, reason)
}

// HandleWebhook verifies a gateway callback against the raw body and
// reconciles payment intent events. Other event types are acknowledged.
func (s *BookingService) HandleWebhook(ctx context.Context, signature string, payload []byte) error {
	event, err := s.gateway.VerifyWebhookSignature(payload, signature, s.opts.WebhookSecret)
	if err != nil {
		s.log.Warnf("webhook signature rejected: %s", err.Error())
		if types.IsKind(err, types.ERR_UNAUTHORIZED) {
			return err
		}
		return &types.AppError{Kind: types.ERR_UNAUTHORIZED, Message: "invalid webhook signature", Err: err}
	}
	logger := s.log.WithFields(logrus.Fields{"event_id": event.ID, "type": event.Type, "intent_id": event.IntentID})

	switch event.Type {
	case payments.EventIntentSucceeded, payments.EventIntentFailed, payments.EventIntentCanceled:
	default:
		logger.Debug("ignoring webhook event")
		return nil
	}

	if event.IntentID == "" {
		logger.Warn("payment intent event without an intent id")
		return nil
	}

	claimKey := "webhook:" + event.ID
	claimed := false
	if s.locker != nil && event.ID != "" {
		ok, err := s.locker.Acquire(ctx, claimKey, webhookClaimTTL)
		if err != nil {
			logger.Warnf("webhook de-duplication unavailable: %s", err.Error())
		} else if !ok {
			logger.Info("duplicate webhook delivery skipped")
			return nil
		} else {
			claimed = true
		}
	}

	if _, err := s.ConfirmPayment(ctx, event.IntentID); err != nil {
		if types.IsKind(err, types.ERR_NOT_FOUND) {
			logger.Warn("webhook for unknown payment intent acknowledged")
			return nil
		}
		if claimed {
			if err := s.locker.Release(context.WithoutCancel(ctx), claimKey); err != nil {
				logger.Warnf("failed to release webhook claim: %s", err.Error())
			}
		}
		return err
	}
	logger.Info("webhook processed")
	return nil
}
