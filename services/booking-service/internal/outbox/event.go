package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Appointment lifecycle event types, written in the same transaction as
// the appointment mutation they describe.
const (
	EventAppointmentBooked           = "servibook.appointment.booked.v1"
	EventAppointmentRebooked         = "servibook.appointment.rebooked.v1"
	EventAppointmentUpdated          = "servibook.appointment.updated.v1"
	EventAppointmentCancelledByFixer = "servibook.appointment.cancelled_by_fixer.v1"
)
