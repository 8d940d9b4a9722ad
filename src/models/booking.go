package models

import (
	"time"
	"tourbook/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Booking struct {
	ID                    uuid.UUID            `gorm:"primarykey;type:uuid" json:"id"`
	UserID                uint                 `gorm:"index" json:"user_id"`
	TourID                uint                 `gorm:"index" json:"tour_id"`
	BookingDate           time.Time            `json:"booking_date"`
	NumberOfPeople        int                  `json:"number_of_people"`
	TotalAmount           float64              `json:"total_amount"`
	PaymentStatus         types.PaymentStatus  `gorm:"index" json:"payment_status"`
	BookingStatus         types.BookingStatus  `gorm:"index" json:"booking_status"`
	StripePaymentIntentID *string              `gorm:"index" json:"stripe_payment_intent_id,omitempty"`
	PaymentMethod         *types.PaymentMethod `json:"payment_method,omitempty"`
	CancellationReason    *string              `json:"cancellation_reason,omitempty"`
	RefundAmount          *float64             `json:"refund_amount,omitempty"`
	RefundDate            *time.Time           `json:"refund_date,omitempty"`

	CustomerDetails types.CustomerDetails `gorm:"embedded;embeddedPrefix:customer_" json:"customer_details"`

	Tour     *Tour     `gorm:"foreignKey:TourID" json:"tour,omitempty"`
	User     *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Payments []Payment `gorm:"foreignKey:BookingID" json:"payments,omitempty"`

	types.Timestamps
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (b *Booking) IsPaid() bool {
	return b.PaymentStatus == types.PAYMENT_PAID
}

func (b *Booking) IntentID() string {
	if b.StripePaymentIntentID == nil {
		return ""
	}
	return *b.StripePaymentIntentID
}
