package mailer

import (
	"context"
	"testing"
	"tourbook/src/lib"
	"tourbook/src/models"
	"tourbook/src/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMailNotifier(t *testing.T) {
	var sent []*lib.SendMailInput
	notifier := NewMailNotifier("no-reply@tourbook.local", "https://tourbook.local")
	notifier.send = func(ctx context.Context, input *lib.SendMailInput) error {
		sent = append(sent, input)
		return nil
	}
	reason := "change of plans"
	booking := &models.Booking{
		ID:                 uuid.New(),
		NumberOfPeople:     2,
		TotalAmount:        200,
		PaymentStatus:      types.PAYMENT_PAID,
		CancellationReason: &reason,
		CustomerDetails:    types.CustomerDetails{Name: "Jane", Email: "jane@example.com"},
		Tour:               &models.Tour{Title: "Alps Trek"},
	}

	assert.NoError(t, notifier.BookingConfirmed(context.Background(), booking))
	assert.NoError(t, notifier.BookingCancelled(context.Background(), booking))

	assert.Len(t, sent, 2)
	assert.Equal(t, "Booking confirmed: Alps Trek", sent[0].Subject)
	assert.Equal(t, []string{"jane@example.com"}, sent[0].To)
	assert.Contains(t, sent[0].Body, "Total paid: 200.00")
	assert.Contains(t, sent[0].Body, "https://tourbook.local/bookings/"+booking.ID.String())
	assert.Equal(t, "Booking cancelled: Alps Trek", sent[1].Subject)
	assert.Contains(t, sent[1].Body, "Reason: change of plans")
	assert.Contains(t, sent[1].Body, "refund")
}
