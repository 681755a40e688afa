package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/md-rashed-zaman/servibook/services/booking-service/internal/model"
)

type fakeEmail struct {
	calls   int
	failFor int // fail the first failFor calls
	sent    []string
}

func (f *fakeEmail) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	f.calls++
	f.sent = append(f.sent, to)
	if f.calls <= f.failFor {
		return errors.New("smtp down")
	}
	return nil
}

type fakeWhatsApp struct {
	calls   int
	failFor int
	sent    []string
}

func (f *fakeWhatsApp) SendMessage(ctx context.Context, phone, text string) error {
	f.calls++
	f.sent = append(f.sent, phone)
	if f.calls <= f.failFor {
		return errors.New("provider unavailable")
	}
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfirmation() Confirmation {
	return Confirmation{
		Fixer:     &model.User{Name: "Ana", Email: "ana@example.com", Whatsapp: "70000001"},
		Requester: &model.User{Name: "Luis", Email: "luis@example.com", Phone: "70000002"},
		Appointment: &model.Appointment{
			StartingTime:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			AppointmentType: model.AppointmentTypeVirtual,
			Description:     "Revisión eléctrica",
		},
	}
}

func TestDeliverAllChannelsSucceed(t *testing.T) {
	email := &fakeEmail{}
	wa := &fakeWhatsApp{}
	o := NewOrchestrator(email, wa, quietLogger(), Config{RetryDelay: time.Millisecond})

	out := o.Deliver(context.Background(), testConfirmation())

	if !out.AnySucceeded || out.Failed() {
		t.Fatalf("expected success, got %+v", out)
	}
	if out.Attempted() != 4 {
		t.Fatalf("attempted = %d, want 4", out.Attempted())
	}
	for _, oc := range out.Outcomes {
		if !oc.Succeeded || oc.Attempts != 1 {
			t.Fatalf("outcome %+v, want first-attempt success", oc)
		}
	}
}

func TestDeliverRetriesThenSucceeds(t *testing.T) {
	// Each sender fails once per delivery slot; the whatsapp slots come
	// after email recovery so only the first email delivery retries.
	email := &fakeEmail{failFor: 1}
	wa := &fakeWhatsApp{}
	o := NewOrchestrator(email, wa, quietLogger(), Config{RetryDelay: time.Millisecond})

	out := o.Deliver(context.Background(), testConfirmation())

	if !out.AnySucceeded {
		t.Fatalf("expected AnySucceeded, got %+v", out)
	}
	first := out.Outcomes[0]
	if first.Channel != ChannelEmail || first.Attempts != 2 || !first.Succeeded {
		t.Fatalf("first outcome = %+v, want email success on attempt 2", first)
	}
}

func TestDeliverAllChannelsExhaustRetries(t *testing.T) {
	email := &fakeEmail{failFor: 1000}
	wa := &fakeWhatsApp{failFor: 1000}
	o := NewOrchestrator(email, wa, quietLogger(), Config{RetryDelay: time.Millisecond})

	out := o.Deliver(context.Background(), testConfirmation())

	if out.AnySucceeded || !out.Failed() {
		t.Fatalf("expected aggregate failure, got %+v", out)
	}
	for _, oc := range out.Outcomes {
		if oc.Attempts != 3 {
			t.Fatalf("channel %s recipient %s attempts = %d, want 3", oc.Channel, oc.Recipient, oc.Attempts)
		}
	}
	if email.calls != 6 || wa.calls != 6 {
		t.Fatalf("sender calls = %d email / %d whatsapp, want 6 each", email.calls, wa.calls)
	}
}

func TestDeliverSkipsMissingContacts(t *testing.T) {
	evt := testConfirmation()
	evt.Fixer.Email = ""
	evt.Fixer.Whatsapp = ""
	evt.Fixer.Phone = ""

	email := &fakeEmail{}
	wa := &fakeWhatsApp{}
	o := NewOrchestrator(email, wa, quietLogger(), Config{RetryDelay: time.Millisecond})

	out := o.Deliver(context.Background(), evt)

	if out.Attempted() != 2 {
		t.Fatalf("attempted = %d, want 2 (fixer channels skipped)", out.Attempted())
	}
	for _, oc := range out.Outcomes {
		if oc.Recipient != "requester" {
			t.Fatalf("unexpected recipient %q in outcomes", oc.Recipient)
		}
	}
	if !out.AnySucceeded || out.Failed() {
		t.Fatalf("expected success via requester channels, got %+v", out)
	}
}

func TestDeliverNoReachableChannelIsNotFailure(t *testing.T) {
	evt := Cancellation{ClientName: "Luis", FixerName: "Ana", Date: time.Now()}
	o := NewOrchestrator(&fakeEmail{}, &fakeWhatsApp{}, quietLogger(), Config{})

	out := o.Deliver(context.Background(), evt)

	if out.Attempted() != 0 {
		t.Fatalf("attempted = %d, want 0", out.Attempted())
	}
	if out.Failed() {
		t.Fatal("no-contact event must not count as failure")
	}
}

func TestDeliverCancellationTargetsRequesterOnly(t *testing.T) {
	evt := Cancellation{
		ClientName:  "Luis",
		ClientEmail: "luis@example.com",
		ClientPhone: "70000002",
		FixerName:   "Ana",
		Date:        time.Date(2024, 6, 10, 15, 30, 0, 0, time.UTC),
	}
	email := &fakeEmail{}
	wa := &fakeWhatsApp{}
	o := NewOrchestrator(email, wa, quietLogger(), Config{RetryDelay: time.Millisecond})

	out := o.Deliver(context.Background(), evt)

	if out.Attempted() != 2 {
		t.Fatalf("attempted = %d, want 2", out.Attempted())
	}
	if len(email.sent) != 1 || email.sent[0] != "luis@example.com" {
		t.Fatalf("email recipients = %v", email.sent)
	}
	if len(wa.sent) != 1 || wa.sent[0] != "70000002" {
		t.Fatalf("whatsapp recipients = %v", wa.sent)
	}
}

func TestDeliverFailoverCountsAnySuccess(t *testing.T) {
	// Email completely down, WhatsApp healthy: aggregate must succeed.
	email := &fakeEmail{failFor: 1000}
	wa := &fakeWhatsApp{}
	o := NewOrchestrator(email, wa, quietLogger(), Config{RetryDelay: time.Millisecond})

	out := o.Deliver(context.Background(), testConfirmation())

	if !out.AnySucceeded || out.Failed() {
		t.Fatalf("expected whatsapp failover success, got %+v", out)
	}
}

func TestSendWithRetriesStopsOnContextCancel(t *testing.T) {
	email := &fakeEmail{failFor: 1000}
	o := NewOrchestrator(email, &fakeWhatsApp{}, quietLogger(), Config{RetryDelay: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := o.Deliver(ctx, testConfirmation())
	if email.calls != 2 {
		t.Fatalf("email calls = %d, want one per email delivery with no retries after cancel", email.calls)
	}
	if out.AnySucceeded {
		t.Fatalf("unexpected success: %+v", out)
	}
}
