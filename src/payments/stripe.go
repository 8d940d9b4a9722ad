package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"
	"tourbook/src/types"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

type StripeGateway struct {
	client  *stripe.Client
	timeout time.Duration
}

func NewStripeGateway(client *stripe.Client, timeout time.Duration) *StripeGateway {
	return &StripeGateway{client: client, timeout: timeout}
}

func (g *StripeGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *StripeGateway) CreateIntent(ctx context.Context, params IntentParams) (*Intent, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	p := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(params.AmountMinor),
		Currency: stripe.String(GatewayCurrency(params.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for k, v := range params.Metadata {
		p.AddMetadata(k, v)
	}
	if params.IdempotencyKey != "" {
		p.SetIdempotencyKey(params.IdempotencyKey)
	}
	pi, err := g.client.V1PaymentIntents.Create(ctx, p)
	if err != nil {
		return nil, gatewayError("create payment intent", err)
	}
	return toIntent(pi), nil
}

func (g *StripeGateway) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	p := &stripe.PaymentIntentRetrieveParams{}
	p.AddExpand("latest_charge")
	pi, err := g.client.V1PaymentIntents.Retrieve(ctx, intentID, p)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			return nil, types.NotFound("payment intent %s not found", intentID)
		}
		return nil, gatewayError("retrieve payment intent", err)
	}
	return toIntent(pi), nil
}

func (g *StripeGateway) CreateRefund(ctx context.Context, params RefundParams) (*Refund, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	p := &stripe.RefundCreateParams{
		Charge: stripe.String(params.ChargeID),
		Reason: stripe.String(refundReason(params.Reason)),
	}
	if params.AmountMinor != nil {
		p.Amount = stripe.Int64(*params.AmountMinor)
	}
	for k, v := range params.Metadata {
		p.AddMetadata(k, v)
	}
	if params.Reason != "" {
		p.AddMetadata("reason", params.Reason)
	}
	if params.IdempotencyKey != "" {
		p.SetIdempotencyKey(params.IdempotencyKey)
	}
	r, err := g.client.V1Refunds.Create(ctx, p)
	if err != nil {
		return nil, gatewayError("create refund", err)
	}
	refund := &Refund{
		ID:          r.ID,
		AmountMinor: r.Amount,
		Currency:    string(r.Currency),
		ChargeID:    params.ChargeID,
		Status:      string(r.Status),
	}
	if r.Charge != nil && r.Charge.ID != "" {
		refund.ChargeID = r.Charge.ID
	}
	return refund, nil
}

// VerifyWebhookSignature checks header against the raw request body. The
// payload must be the bytes as received.
func (g *StripeGateway) VerifyWebhookSignature(payload []byte, header string, secret string) (*WebhookEvent, error) {
	return VerifyStripeSignature(payload, header, secret)
}

func VerifyStripeSignature(payload []byte, header string, secret string) (*WebhookEvent, error) {
	if header == "" {
		return nil, types.Unauthorized("missing webhook signature")
	}
	event, err := webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, &types.AppError{Kind: types.ERR_UNAUTHORIZED, Message: "invalid webhook signature", Err: err}
	}
	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if strings.HasPrefix(out.Type, "payment_intent.") && event.Data != nil {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, types.InvalidState("malformed payment intent payload")
		}
		out.IntentID = pi.ID
	}
	return out, nil
}

func toIntent(pi *stripe.PaymentIntent) *Intent {
	intent := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
	if pi.LatestCharge != nil {
		intent.ChargeID = pi.LatestCharge.ID
	}
	if len(pi.PaymentMethodTypes) > 0 {
		intent.PaymentMethodType = pi.PaymentMethodTypes[0]
	}
	if pi.LastPaymentError != nil {
		intent.FailureReason = pi.LastPaymentError.Msg
		if pi.Status == stripe.PaymentIntentStatusRequiresPaymentMethod {
			intent.Status = IntentPaymentFailed
		}
	}
	return intent
}

func refundReason(reason string) string {
	switch reason {
	case string(stripe.RefundReasonDuplicate), string(stripe.RefundReasonFraudulent), string(stripe.RefundReasonRequestedByCustomer):
		return reason
	}
	return string(stripe.RefundReasonRequestedByCustomer)
}

// gatewayError wraps SDK failures as INTERNAL. Timeouts and transport
// failures are retryable.
func gatewayError(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return types.Retryable("payment gateway unavailable: "+op, err)
	}
	return types.Internal("payment gateway error: "+op, err)
}
