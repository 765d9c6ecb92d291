package mail

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/tazhibayda/dailyjobs/internal/queue"
)

type capture struct {
	got []Message
	err error
}

func (c *capture) Send(ctx context.Context, m Message) error {
	c.got = append(c.got, m)
	return c.err
}

func delivery(t *testing.T, key string, v any) queue.Delivery {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return queue.Delivery{Key: key, Body: b}
}

func TestDispatcher_Verification(t *testing.T) {
	c := &capture{}
	d := &Dispatcher{Sender: c}
	err := d.Handle(context.Background(), delivery(t, queue.KeyVerificationRequested,
		queue.VerificationRequested{Email: "v@example.com", Name: "V", Link: "http://x/verify?token=abc"}))
	if err != nil {
		t.Fatal(err)
	}
	if len(c.got) != 1 || c.got[0].To != "v@example.com" || !strings.Contains(c.got[0].Body, "token=abc") {
		t.Fatalf("mail: %+v", c.got)
	}
}

func TestDispatcher_Reset(t *testing.T) {
	c := &capture{}
	d := &Dispatcher{Sender: c}
	if err := d.Handle(context.Background(), delivery(t, queue.KeyPasswordReset,
		queue.PasswordResetRequested{Email: "r@example.com", Link: "http://x/reset"})); err != nil {
		t.Fatal(err)
	}
	if len(c.got) != 1 || !strings.Contains(c.got[0].Subject, "Reset") {
		t.Fatalf("mail: %+v", c.got)
	}
}

func TestDispatcher_UnknownKeyIgnored(t *testing.T) {
	c := &capture{}
	d := &Dispatcher{Sender: c}
	if err := d.Handle(context.Background(), queue.Delivery{Key: "user.registered", Body: []byte(`{}`)}); err != nil {
		t.Fatal(err)
	}
	if len(c.got) != 0 {
		t.Fatalf("unexpected mail: %+v", c.got)
	}
}

func TestDispatcher_Errors(t *testing.T) {
	d := &Dispatcher{Sender: &capture{}}
	if err := d.Handle(context.Background(), queue.Delivery{Key: queue.KeyVerificationRequested, Body: []byte("{")}); err == nil {
		t.Fatal("bad json must fail so the message is requeued")
	}
	boom := errors.New("smtp down")
	d = &Dispatcher{Sender: &capture{err: boom}}
	err := d.Handle(context.Background(), delivery(t, queue.KeyPasswordReset, queue.PasswordResetRequested{Email: "a@b.c"}))
	if !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
}

func TestDispatcher_Digest(t *testing.T) {
	c := &capture{}
	d := &Dispatcher{Sender: c}
	ev := queue.DigestReady{Email: "s@example.com", Jobs: []queue.DigestJob{
		{Company: "Stripe", Title: "Product Manager, Billing", Location: "Remote", URL: "https://x/stripe/1"},
		{Company: "Airbnb", Title: "Program Manager <Payments>", Location: "San Francisco, CA", URL: "https://x/airbnb/2"},
	}}
	if err := d.Handle(context.Background(), delivery(t, queue.KeyDigestReady, ev)); err != nil {
		t.Fatal(err)
	}
	if len(c.got) != 1 {
		t.Fatalf("mails=%d", len(c.got))
	}
	m := c.got[0]
	if m.Subject != "New Job Openings Found (2 positions)" {
		t.Fatalf("subject=%q", m.Subject)
	}
	if strings.Index(m.HTML, "Airbnb") > strings.Index(m.HTML, "Stripe") {
		t.Fatal("companies not sorted")
	}
	if strings.Contains(m.HTML, "<Payments>") || !strings.Contains(m.HTML, "&lt;Payments&gt;") {
		t.Fatal("titles must be escaped")
	}
	if !strings.Contains(m.Body, "Apply: https://x/stripe/1") {
		t.Fatalf("text body=%q", m.Body)
	}
}

func TestDigestMail_NoJobs(t *testing.T) {
	m, err := DigestMail(queue.DigestReady{Email: "s@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if m.Subject != "Jobs Update - No New Positions" || m.HTML != "" {
		t.Fatalf("mail=%+v", m)
	}
}
