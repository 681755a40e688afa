package notify

import (
	"time"

	"github.com/md-rashed-zaman/servibook/services/booking-service/internal/model"
)

// Event is one logical notification, consumed once by Deliver and then
// discarded. The concrete type decides recipients and message content.
type Event interface {
	Kind() string
}

// Confirmation announces a newly booked (or revived) appointment to both
// participants. Requester carries the contact data already merged
// payload-over-profile by the caller.
type Confirmation struct {
	Fixer       *model.User
	Requester   *model.User
	Appointment *model.Appointment
}

func (Confirmation) Kind() string { return "confirmation" }

// Reschedule announces a starting-time change to both participants.
type Reschedule struct {
	Fixer           *model.User
	Requester       *model.User
	OldStartingTime time.Time
	Appointment     *model.Appointment
}

func (Reschedule) Kind() string { return "reschedule" }

// Cancellation tells the requester the fixer will not attend. Name and
// phone are the booking-time values from the appointment, not the stored
// profile's.
type Cancellation struct {
	ClientName  string
	ClientEmail string
	ClientPhone string
	FixerName   string
	Date        time.Time
}

func (Cancellation) Kind() string { return "cancellation" }

const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

// DeliveryOutcome is the per-channel result of one Deliver call.
type DeliveryOutcome struct {
	Channel   string
	Recipient string
	Attempts  int
	Succeeded bool
}

// AggregateOutcome reports the failover result: success if at least one
// attempted channel for at least one recipient got through. Skipped
// channels (no destination) are not part of Outcomes.
type AggregateOutcome struct {
	Event        string
	Outcomes     []DeliveryOutcome
	AnySucceeded bool
}

func (o AggregateOutcome) Attempted() int {
	return len(o.Outcomes)
}

// Failed is true only when something was attempted and nothing got
// through; an event with no reachable channels at all is not a failure.
func (o AggregateOutcome) Failed() bool {
	return len(o.Outcomes) > 0 && !o.AnySucceeded
}
