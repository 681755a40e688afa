package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/servibook/services/booking-service/internal/model"
)

// EmailSender sends one HTML email. Implementations live in internal/email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// MessageSender sends one WhatsApp text message. Implementations live in
// internal/whatsapp.
type MessageSender interface {
	SendMessage(ctx context.Context, phone, text string) error
}

// Config tunes the retry loop. Zero values fall back to the defaults.
type Config struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = time.Second
)

// Orchestrator fans a notification event out to every reachable channel of
// every recipient, retrying each channel independently. It holds no state
// between calls and never returns an error: delivery failures are reported
// through the AggregateOutcome and the log, so callers cannot accidentally
// fail a booking on a notification problem.
type Orchestrator struct {
	email    EmailSender
	whatsapp MessageSender
	logger   *slog.Logger

	maxAttempts int
	retryDelay  time.Duration
}

func NewOrchestrator(email EmailSender, whatsapp MessageSender, logger *slog.Logger, cfg Config) *Orchestrator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return &Orchestrator{
		email:       email,
		whatsapp:    whatsapp,
		logger:      logger,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
	}
}

// delivery is one (recipient, channel) send planned for an event.
type delivery struct {
	channel   string
	recipient string
	dest      string
	send      func(ctx context.Context) error
}

// Deliver sends evt on every channel that has a destination. Channels with
// no destination are skipped silently. The outcome aggregates per-channel
// results; o.Failed() means every attempted channel exhausted its retries.
func (o *Orchestrator) Deliver(ctx context.Context, evt Event) AggregateOutcome {
	out := AggregateOutcome{Event: evt.Kind()}
	for _, d := range o.plan(evt) {
		if d.dest == "" {
			continue
		}
		attempts, err := o.sendWithRetries(ctx, d)
		ok := err == nil
		out.Outcomes = append(out.Outcomes, DeliveryOutcome{
			Channel:   d.channel,
			Recipient: d.recipient,
			Attempts:  attempts,
			Succeeded: ok,
		})
		if ok {
			out.AnySucceeded = true
		}
	}
	if out.Failed() {
		o.logger.Error("notification undelivered on all channels, manual intervention may be required",
			"event", out.Event, "attempted", out.Attempted())
	}
	return out
}

func (o *Orchestrator) plan(evt Event) []delivery {
	switch e := evt.(type) {
	case Confirmation:
		fixerSubject, fixerText := renderConfirmationForFixer(e)
		reqSubject, reqText := renderConfirmationForRequester(e)
		return []delivery{
			o.emailDelivery("fixer", e.Fixer.Email, fixerSubject, fixerText),
			o.whatsappDelivery("fixer", fixerWhatsAppDest(e.Fixer), fixerText),
			o.emailDelivery("requester", e.Requester.Email, reqSubject, reqText),
			o.whatsappDelivery("requester", requesterWhatsAppDest(e.Requester), reqText),
		}
	case Reschedule:
		fixerSubject, fixerText := renderRescheduleForFixer(e)
		reqSubject, reqText := renderRescheduleForRequester(e)
		return []delivery{
			o.emailDelivery("fixer", e.Fixer.Email, fixerSubject, fixerText),
			o.whatsappDelivery("fixer", fixerWhatsAppDest(e.Fixer), fixerText),
			o.emailDelivery("requester", e.Requester.Email, reqSubject, reqText),
			o.whatsappDelivery("requester", requesterWhatsAppDest(e.Requester), reqText),
		}
	case Cancellation:
		subject, text := renderCancellation(e)
		return []delivery{
			o.emailDelivery("requester", e.ClientEmail, subject, text),
			o.whatsappDelivery("requester", e.ClientPhone, text),
		}
	default:
		o.logger.Warn("unknown notification event", "kind", evt.Kind())
		return nil
	}
}

// Fixers register a dedicated WhatsApp line; requesters are reached on the
// phone they booked with.
func fixerWhatsAppDest(u *model.User) string {
	if u.Whatsapp != "" {
		return u.Whatsapp
	}
	return u.Phone
}

func requesterWhatsAppDest(u *model.User) string {
	if u.Phone != "" {
		return u.Phone
	}
	return u.Whatsapp
}

func (o *Orchestrator) emailDelivery(recipient, to, subject, text string) delivery {
	return delivery{
		channel:   ChannelEmail,
		recipient: recipient,
		dest:      to,
		send: func(ctx context.Context) error {
			return o.email.SendEmail(ctx, to, subject, emailBody(text))
		},
	}
}

func (o *Orchestrator) whatsappDelivery(recipient, phone, text string) delivery {
	return delivery{
		channel:   ChannelWhatsApp,
		recipient: recipient,
		dest:      phone,
		send: func(ctx context.Context) error {
			return o.whatsapp.SendMessage(ctx, phone, text)
		},
	}
}

// sendWithRetries runs d.send up to maxAttempts times, sleeping retryDelay
// between attempts. Returns the number of attempts made and the last error.
func (o *Orchestrator) sendWithRetries(ctx context.Context, d delivery) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		lastErr = d.send(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		o.logger.Warn("notification send failed",
			"channel", d.channel, "recipient", d.recipient,
			"attempt", attempt, "max_attempts", o.maxAttempts, "error", lastErr)
		if attempt == o.maxAttempts {
			break
		}
		select {
		case <-time.After(o.retryDelay):
		case <-ctx.Done():
			return attempt, ctx.Err()
		}
	}
	return o.maxAttempts, lastErr
}
