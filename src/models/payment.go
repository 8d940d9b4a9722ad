package models

import (
	"tourbook/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment is one ledger row per gateway operation. Amount and
// TransactionType are fixed at insert; reconciliation only touches the
// status fields.
type Payment struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid" json:"id"`

	BookingID             uuid.UUID               `gorm:"type:uuid;index" json:"booking_id"`
	UserID                uint                    `gorm:"index" json:"user_id"`
	Amount                float64                 `json:"amount"`
	Currency              string                  `json:"currency"`
	PaymentMethod         types.PaymentMethod     `json:"payment_method"`
	TransactionType       types.TransactionKind   `json:"transaction_type"`
	Status                types.TransactionStatus `gorm:"index" json:"status"`
	StripePaymentIntentID string                  `gorm:"index" json:"stripe_payment_intent_id"`
	StripeChargeID        *string                 `json:"stripe_charge_id,omitempty"`
	TransactionID         *string                 `gorm:"uniqueIndex" json:"transaction_id,omitempty"`
	FailureReason         *string                 `json:"failure_reason,omitempty"`
	Metadata              types.JSONB             `gorm:"type:jsonb" json:"metadata,omitempty"`

	types.Timestamps

	Booking *Booking `gorm:"foreignKey:BookingID" json:"-"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// SignedAmount is the amount as it counts toward the booking's net total:
// charges positive, refunds negative. Only succeeded rows count.
func (p *Payment) SignedAmount() float64 {
	if p.Status != types.TRANSACTION_SUCCEEDED {
		return 0
	}
	if p.TransactionType.IsRefund() {
		return -p.Amount
	}
	return p.Amount
}
