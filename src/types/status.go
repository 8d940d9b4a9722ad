package types

type BookingStatus string

const (
	BOOKING_PENDING   BookingStatus = "PENDING"
	BOOKING_CONFIRMED BookingStatus = "CONFIRMED"
	BOOKING_CANCELLED BookingStatus = "CANCELLED"
	BOOKING_COMPLETED BookingStatus = "COMPLETED"
	BOOKING_REFUNDED  BookingStatus = "REFUNDED"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BOOKING_PENDING:   {BOOKING_CONFIRMED, BOOKING_CANCELLED},
	BOOKING_CONFIRMED: {BOOKING_COMPLETED, BOOKING_CANCELLED, BOOKING_REFUNDED},
	BOOKING_COMPLETED: {BOOKING_REFUNDED},
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BOOKING_PENDING, BOOKING_CONFIRMED, BOOKING_CANCELLED, BOOKING_COMPLETED, BOOKING_REFUNDED:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is a legal edge out of s.
// CANCELLED, COMPLETED (except to REFUNDED) and REFUNDED have no way back.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s BookingStatus) Terminal() bool {
	return len(bookingTransitions[s]) == 0
}

type PaymentStatus string

const (
	PAYMENT_PENDING            PaymentStatus = "PENDING"
	PAYMENT_PAID               PaymentStatus = "PAID"
	PAYMENT_FAILED             PaymentStatus = "FAILED"
	PAYMENT_REFUNDED           PaymentStatus = "REFUNDED"
	PAYMENT_PARTIALLY_REFUNDED PaymentStatus = "PARTIALLY_REFUNDED"
)

type TransactionKind string

const (
	TRANSACTION_CHARGE         TransactionKind = "BOOKING"
	TRANSACTION_REFUND         TransactionKind = "REFUND"
	TRANSACTION_PARTIAL_REFUND TransactionKind = "PARTIAL_REFUND"
)

func (k TransactionKind) IsRefund() bool {
	return k == TRANSACTION_REFUND || k == TRANSACTION_PARTIAL_REFUND
}

type TransactionStatus string

const (
	TRANSACTION_PENDING   TransactionStatus = "PENDING"
	TRANSACTION_SUCCEEDED TransactionStatus = "SUCCEEDED"
	TRANSACTION_FAILED    TransactionStatus = "FAILED"
	TRANSACTION_CANCELED  TransactionStatus = "CANCELED"
)

type PaymentMethod string

const (
	PAYMENT_METHOD_CARD       PaymentMethod = "CARD"
	PAYMENT_METHOD_PAYPAL     PaymentMethod = "PAYPAL"
	PAYMENT_METHOD_APPLE_PAY  PaymentMethod = "APPLE_PAY"
	PAYMENT_METHOD_GOOGLE_PAY PaymentMethod = "GOOGLE_PAY"
)

type LifecycleEvent string

const (
	EVENT_BOOKING_CREATED        LifecycleEvent = "booking.created"
	EVENT_PAYMENT_INTENT_CREATED LifecycleEvent = "payment.intent_created"
	EVENT_PAYMENT_CONFIRMED      LifecycleEvent = "payment.confirmed"
	EVENT_PAYMENT_FAILED         LifecycleEvent = "payment.failed"
	EVENT_BOOKING_CANCELLED      LifecycleEvent = "booking.cancelled"
	EVENT_PAYMENT_REFUNDED       LifecycleEvent = "payment.refunded"
	EVENT_REFUND_FAILED          LifecycleEvent = "refund.failed"
	EVENT_BOOKING_STATUS_CHANGED LifecycleEvent = "booking.status_changed"
	EVENT_BOOKING_COMPLETED      LifecycleEvent = "booking.completed"
)
