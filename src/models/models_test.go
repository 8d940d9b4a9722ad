package models

import (
	"testing"
	"time"
	"tourbook/src/types"

	"github.com/stretchr/testify/assert"
)

func TestPaymentSignedAmount(t *testing.T) {
	charge := Payment{Amount: 200, TransactionType: types.TRANSACTION_CHARGE, Status: types.TRANSACTION_SUCCEEDED}
	refund := Payment{Amount: 50, TransactionType: types.TRANSACTION_PARTIAL_REFUND, Status: types.TRANSACTION_SUCCEEDED}
	pending := Payment{Amount: 200, TransactionType: types.TRANSACTION_CHARGE, Status: types.TRANSACTION_PENDING}

	assert.Equal(t, 200.0, charge.SignedAmount())
	assert.Equal(t, -50.0, refund.SignedAmount())
	assert.Equal(t, 0.0, pending.SignedAmount())
}

func TestTourHasStarted(t *testing.T) {
	now := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, (&Tour{StartDate: now}).HasStarted(now))
	assert.True(t, (&Tour{StartDate: now.Add(-time.Minute)}).HasStarted(now))
	assert.False(t, (&Tour{StartDate: now.Add(time.Minute)}).HasStarted(now))
}

func TestBookingIntentID(t *testing.T) {
	b := Booking{}
	assert.Equal(t, "", b.IntentID())
	id := "pi_1"
	b.StripePaymentIntentID = &id
	b.PaymentStatus = types.PAYMENT_PAID
	assert.Equal(t, "pi_1", b.IntentID())
	assert.True(t, b.IsPaid())
}
