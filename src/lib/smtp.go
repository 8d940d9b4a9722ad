package lib

import (
	"context"
	"fmt"
	"tourbook/src/config"

	"github.com/wneessen/go-mail"
)

func GetSMTPClient() (*mail.Client, error) {
	c, err := mail.NewClient(
		config.SMTPHost(),
		mail.WithPort(config.SMTPPort()),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(config.SMTPUsername()),
		mail.WithPassword(config.SMTPPassword()),
	)
	if err != nil {
		GetLogger().Errorf("Could not initialize smtp client: %s", err.Error())
		return nil, err
	}
	return c, nil
}

type SendMailInput struct {
	From     string
	FromName string
	To       []string
	ReplyTo  string
	Subject  string
	Body     string
	Html     bool
}

func NewMessage(input *SendMailInput) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(input.FromName, input.From); err != nil {
		return nil, fmt.Errorf("failed to set From address: %w", err)
	}
	if err := msg.To(input.To...); err != nil {
		return nil, fmt.Errorf("failed to set To address: %w", err)
	}
	if input.ReplyTo != "" {
		if err := msg.ReplyTo(input.ReplyTo); err != nil {
			return nil, fmt.Errorf("failed to set Reply-To address: %w", err)
		}
	}
	msg.Subject(input.Subject)
	if input.Html {
		msg.SetBodyString(mail.TypeTextHTML, input.Body)
	} else {
		msg.SetBodyString(mail.TypeTextPlain, input.Body)
	}
	return msg, nil
}

func SendMail(ctx context.Context, input *SendMailInput) error {
	msg, err := NewMessage(input)
	if err != nil {
		return err
	}
	c, err := GetSMTPClient()
	if err != nil {
		return err
	}
	return c.DialAndSendWithContext(ctx, msg)
}
