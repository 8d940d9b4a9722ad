package mailer

import (
	"context"
	"fmt"
	"strings"
	"tourbook/src/lib"
	"tourbook/src/models"
)

// MailNotifier emails the booking's contact address on confirmation and
// cancellation.
type MailNotifier struct {
	From     string
	FromName string
	AppHost  string
	send     func(ctx context.Context, input *lib.SendMailInput) error
}

func NewMailNotifier(from, appHost string) *MailNotifier {
	return &MailNotifier{From: from, FromName: "Tourbook", AppHost: appHost, send: lib.SendMail}
}

func (m *MailNotifier) BookingConfirmed(ctx context.Context, booking *models.Booking) error {
	return m.send(ctx, m.confirmedMessage(booking))
}

func (m *MailNotifier) BookingCancelled(ctx context.Context, booking *models.Booking) error {
	return m.send(ctx, m.cancelledMessage(booking))
}

func (m *MailNotifier) confirmedMessage(booking *models.Booking) *lib.SendMailInput {
	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\n", booking.CustomerDetails.Name)
	fmt.Fprintf(&body, "Your booking for %s is confirmed.\n", tourTitle(booking))
	fmt.Fprintf(&body, "Guests: %d\nTotal paid: %.2f\n\n", booking.NumberOfPeople, booking.TotalAmount)
	fmt.Fprintf(&body, "Manage your booking at %s/bookings/%s\n", m.AppHost, booking.ID)
	return &lib.SendMailInput{
		From:     m.From,
		FromName: m.FromName,
		To:       []string{booking.CustomerDetails.Email},
		Subject:  "Booking confirmed: " + tourTitle(booking),
		Body:     body.String(),
	}
}

func (m *MailNotifier) cancelledMessage(booking *models.Booking) *lib.SendMailInput {
	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\n", booking.CustomerDetails.Name)
	fmt.Fprintf(&body, "Your booking for %s has been cancelled.\n", tourTitle(booking))
	if booking.CancellationReason != nil && *booking.CancellationReason != "" {
		fmt.Fprintf(&body, "Reason: %s\n", *booking.CancellationReason)
	}
	if booking.IsPaid() {
		body.WriteString("A refund to your original payment method is on its way.\n")
	}
	return &lib.SendMailInput{
		From:     m.From,
		FromName: m.FromName,
		To:       []string{booking.CustomerDetails.Email},
		Subject:  "Booking cancelled: " + tourTitle(booking),
		Body:     body.String(),
	}
}

func tourTitle(booking *models.Booking) string {
	if booking.Tour != nil && booking.Tour.Title != "" {
		return booking.Tour.Title
	}
	return "your tour"
}
