package email

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type sentEmail struct {
	recipient string
	subject   string
	ctxErr    error
}

type fakeEmailSender struct {
	mu      sync.Mutex
	sent    []sentEmail
	started chan struct{}
	release chan struct{}
}

func newFakeEmailSender() *fakeEmailSender {
	return &fakeEmailSender{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (f *fakeEmailSender) Send(ctx context.Context, recipient string, msg Message) error {
	select {
	case f.started <- struct{}{}:
	default:
	}
	<-f.release
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{recipient: recipient, subject: msg.Subject, ctxErr: ctx.Err()})
	return nil
}

func (f *fakeEmailSender) snapshot() []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentEmail, len(f.sent))
	copy(out, f.sent)
	return out
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("send did not finish")
	}
}

func TestSendAsyncSurvivesRequestCancellation(t *testing.T) {
	sender := newFakeEmailSender()
	ctx, cancel := context.WithCancel(context.Background())

	done := SendAsync(ctx, sender, []string{"guest@example.com"}, Message{Subject: "Subject", Body: "Body"}, nil)

	select {
	case <-sender.started:
	case <-time.After(time.Second):
		t.Fatal("expected send to start")
	}
	cancel()
	close(sender.release)
	waitDone(t, done)

	sent := sender.snapshot()
	if len(sent) != 1 {
		t.Fatalf("expected one email, got %d", len(sent))
	}
	if sent[0].ctxErr != nil {
		t.Fatalf("send context should outlive the request, got %v", sent[0].ctxErr)
	}
}

func TestSendAsyncSkipsBlankAndDuplicateRecipients(t *testing.T) {
	sender := newFakeEmailSender()
	close(sender.release)

	done := SendAsync(context.Background(), sender, []string{"a@example.com", " ", "A@example.com", "b@example.com"}, Message{Subject: "S", Body: "B"}, nil)
	waitDone(t, done)

	sent := sender.snapshot()
	if len(sent) != 2 {
		t.Fatalf("expected two emails, got %+v", sent)
	}
	if sent[0].recipient != "a@example.com" || sent[1].recipient != "b@example.com" {
		t.Fatalf("recipients: %+v", sent)
	}
}

func TestSendAsyncIgnoresEmptyMessageAndNilClient(t *testing.T) {
	sender := newFakeEmailSender()
	close(sender.release)

	waitDone(t, SendAsync(context.Background(), sender, []string{"a@example.com"}, Message{Subject: "only subject"}, nil))
	waitDone(t, SendAsync(context.Background(), nil, []string{"a@example.com"}, Message{Subject: "S", Body: "B"}, nil))

	if sent := sender.snapshot(); len(sent) != 0 {
		t.Fatalf("expected nothing sent, got %+v", sent)
	}
}

func TestBuildBookingConfirmation(t *testing.T) {
	msg := BuildBookingConfirmation(BookingDetails{
		Reference:  "A1B2C3D4",
		HavenName:  "Tagaytay Loft",
		GuestName:  "Maria Santos",
		GuestCount: 2,
		CheckIn:    "2026-03-14",
		CheckOut:   "2026-03-16",
		Nights:     2,
		Total:      "₱9,000.00",
	})

	if msg.Subject != "Booking A1B2C3D4 confirmed - Tagaytay Loft" {
		t.Fatalf("subject: %q", msg.Subject)
	}
	for _, want := range []string{"Hello Maria Santos,", "Check-in: Saturday, Mar 14, 2026", "Nights: 2", "Guests: 2", "Total: ₱9,000.00"} {
		if !strings.Contains(msg.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, msg.Body)
		}
	}
	if strings.Contains(msg.Body, "Notes:") {
		t.Fatalf("empty notes should be omitted:\n%s", msg.Body)
	}
}

func TestBuildBookingCancelled(t *testing.T) {
	msg := BuildBookingCancelled(BookingDetails{Reference: "ZZ", CheckIn: "bad-date"}, "Expired without payment")
	if msg.Subject != "Booking ZZ cancelled - your haven" {
		t.Fatalf("subject: %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Check-in: bad-date") || !strings.Contains(msg.Body, "Reason: Expired without payment") {
		t.Fatalf("body:\n%s", msg.Body)
	}
}

func TestBuildLowStockAlert(t *testing.T) {
	if msg := BuildLowStockAlert(nil); !msg.Empty() {
		t.Fatalf("expected empty message, got %+v", msg)
	}

	single := BuildLowStockAlert([]LowStockLine{{Name: "Towels", Quantity: 2, ReorderLevel: 5, Unit: "pcs"}})
	if single.Subject != "Low stock: Towels" {
		t.Fatalf("subject: %q", single.Subject)
	}
	if !strings.Contains(single.Body, "- Towels: 2 pcs on hand (reorder at 5)") {
		t.Fatalf("body:\n%s", single.Body)
	}

	many := BuildLowStockAlert([]LowStockLine{{Name: "Towels"}, {Name: "Soap"}})
	if many.Subject != "Low stock: 2 items" {
		t.Fatalf("subject: %q", many.Subject)
	}
}
