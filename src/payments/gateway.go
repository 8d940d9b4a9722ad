package payments

import (
	"context"
)

const (
	IntentSucceeded     = "succeeded"
	IntentCanceled      = "canceled"
	IntentPaymentFailed = "payment_failed"
	IntentProcessing    = "processing"
)

const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
	EventIntentCanceled  = "payment_intent.canceled"
)

// Gateway is the boundary to the external payment processor. Amounts are
// always integer minor units here.
type Gateway interface {
	CreateIntent(ctx context.Context, params IntentParams) (*Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)
	CreateRefund(ctx context.Context, params RefundParams) (*Refund, error)
	VerifyWebhookSignature(payload []byte, header string, secret string) (*WebhookEvent, error)
}

type IntentParams struct {
	AmountMinor    int64
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
}

type Intent struct {
	ID                string
	ClientSecret      string
	Status            string
	AmountMinor       int64
	Currency          string
	ChargeID          string
	PaymentMethodType string
	FailureReason     string
	Metadata          map[string]string
}

// HasCharge reports whether the intent carries a charge that can be refunded.
func (i *Intent) HasCharge() bool {
	return i.ChargeID != ""
}

type RefundParams struct {
	ChargeID       string
	AmountMinor    *int64
	Reason         string
	Metadata       map[string]string
	IdempotencyKey string
}

type Refund struct {
	ID          string
	AmountMinor int64
	Currency    string
	ChargeID    string
	Status      string
}

type WebhookEvent struct {
	ID       string
	Type     string
	IntentID string
}
