package testutil

import (
	"context"
	"fmt"
	"sync"
	"tourbook/src/payments"
	"tourbook/src/types"
)

// FakeGateway is an in-memory payments.Gateway. Intents are created in
// requires_payment_method; tests move them with SetStatus.
type FakeGateway struct {
	mu      sync.Mutex
	seq     int
	Intents map[string]*payments.Intent
	Refunds []payments.RefundParams
	Created []payments.IntentParams

	CreateErr   error
	RetrieveErr error
	RefundErr   error

	// ValidSignature is the only header VerifyWebhookSignature accepts.
	ValidSignature string
	WebhookEvent   *payments.WebhookEvent
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{Intents: map[string]*payments.Intent{}, ValidSignature: "valid"}
}

func (g *FakeGateway) CreateIntent(ctx context.Context, params payments.IntentParams) (*payments.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CreateErr != nil {
		return nil, g.CreateErr
	}
	g.Created = append(g.Created, params)
	g.seq++
	id := fmt.Sprintf("pi_test_%d", g.seq)
	intent := &payments.Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       "requires_payment_method",
		AmountMinor:  params.AmountMinor,
		Currency:     params.Currency,
		Metadata:     params.Metadata,
	}
	g.Intents[id] = intent
	copied := *intent
	return &copied, nil
}

func (g *FakeGateway) RetrieveIntent(ctx context.Context, intentID string) (*payments.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.RetrieveErr != nil {
		return nil, g.RetrieveErr
	}
	intent, ok := g.Intents[intentID]
	if !ok {
		return nil, types.NotFound("payment intent %s not found", intentID)
	}
	copied := *intent
	return &copied, nil
}

func (g *FakeGateway) CreateRefund(ctx context.Context, params payments.RefundParams) (*payments.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.RefundErr != nil {
		return nil, g.RefundErr
	}
	var intent *payments.Intent
	for _, i := range g.Intents {
		if i.ChargeID == params.ChargeID {
			intent = i
		}
	}
	if intent == nil {
		return nil, types.Internal("payment gateway error: create refund", fmt.Errorf("no such charge: %s", params.ChargeID))
	}
	g.Refunds = append(g.Refunds, params)
	amount := intent.AmountMinor
	if params.AmountMinor != nil {
		amount = *params.AmountMinor
	}
	return &payments.Refund{
		ID:          fmt.Sprintf("re_test_%d", len(g.Refunds)),
		AmountMinor: amount,
		Currency:    intent.Currency,
		ChargeID:    params.ChargeID,
		Status:      "succeeded",
	}, nil
}

func (g *FakeGateway) VerifyWebhookSignature(payload []byte, header string, secret string) (*payments.WebhookEvent, error) {
	if header == "" {
		return nil, types.Unauthorized("missing webhook signature")
	}
	if header != g.ValidSignature || g.WebhookEvent == nil {
		return nil, types.Unauthorized("invalid webhook signature")
	}
	event := *g.WebhookEvent
	return &event, nil
}

// SetStatus moves an intent; succeeded gives it a charge.
func (g *FakeGateway) SetStatus(intentID, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	intent := g.Intents[intentID]
	intent.Status = status
	switch status {
	case payments.IntentSucceeded:
		intent.ChargeID = "ch_" + intentID
		intent.PaymentMethodType = "card"
		intent.FailureReason = ""
	case payments.IntentPaymentFailed:
		intent.FailureReason = "Your card was declined."
	}
}
