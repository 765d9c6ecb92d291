package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tazhibayda/dailyjobs/internal/helper"
	"github.com/tazhibayda/dailyjobs/internal/log"
	"github.com/tazhibayda/dailyjobs/internal/queue"
	"go.uber.org/zap"
)

type Message struct {
	To      string
	Subject string
	Body    string
	// HTML is an optional alternative to Body.
	HTML string
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

// LogSender writes mails to the log instead of delivering them.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, m Message) error {
	log.L().Info("mail",
		zap.String("to_hash", helper.Hash8(m.To)),
		zap.String("subject", m.Subject),
		zap.Int("body_len", len(m.Body)),
		zap.Int("html_len", len(m.HTML)),
	)
	return nil
}

// Dispatcher turns queue deliveries into mails.
type Dispatcher struct {
	Sender Sender
}

func (d *Dispatcher) Handle(ctx context.Context, del queue.Delivery) error {
	switch del.Key {
	case queue.KeyVerificationRequested:
		var ev queue.VerificationRequested
		if err := json.Unmarshal(del.Body, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", del.Key, err)
		}
		return d.Sender.Send(ctx, VerificationMail(ev))
	case queue.KeyPasswordReset:
		var ev queue.PasswordResetRequested
		if err := json.Unmarshal(del.Body, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", del.Key, err)
		}
		return d.Sender.Send(ctx, ResetMail(ev))
	case queue.KeyDigestReady:
		var ev queue.DigestReady
		if err := json.Unmarshal(del.Body, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", del.Key, err)
		}
		m, err := DigestMail(ev)
		if err != nil {
			return err
		}
		return d.Sender.Send(ctx, m)
	default:
		log.L().Debug("mail: ignoring event", zap.String("key", del.Key))
		return nil
	}
}

func VerificationMail(ev queue.VerificationRequested) Message {
	name := ev.Name
	if name == "" {
		name = "there"
	}
	return Message{
		To:      ev.Email,
		Subject: "Verify your email for DailyJobs",
		Body: fmt.Sprintf("Hi %s,\n\nConfirm your email address to start receiving job alerts:\n%s\n\n"+
			"The link expires in 1 hour.\n", name, ev.Link),
	}
}

func ResetMail(ev queue.PasswordResetRequested) Message {
	return Message{
		To:      ev.Email,
		Subject: "Reset your DailyJobs password",
		Body:    fmt.Sprintf("Use this link to choose a new password:\n%s\n\nIgnore this mail if you did not ask for it.\n", ev.Link),
	}
}
