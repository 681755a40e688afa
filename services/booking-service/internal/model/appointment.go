package model

import "time"

const (
	ScheduleStateBooked    = "booked"
	ScheduleStateCancelled = "cancelled"
)

const (
	AppointmentTypeVirtual    = "virtual"
	AppointmentTypePresential = "presential"
)

// Appointment is a booked service slot between a fixer and a requester.
// Rows are never deleted: a requester-side cancellation flips
// ScheduleState, a fixer-side cancellation sets CancelledFixer and
// permanently retires the row.
type Appointment struct {
	ID                  string
	FixerID             string
	RequesterID         string
	SelectedDate        time.Time
	StartingTime        time.Time
	FinishingTime       *time.Time
	AppointmentType     string
	Description         string
	LinkID              string
	DisplayLocationName string
	Lat                 string
	Lon                 string
	RequesterName       string
	RequesterPhone      string
	ScheduleState       string
	CancelledFixer      bool
	ReprogramReason     string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ConflictKey identifies a unique appointment slot. At most one row per
// key may exist with CancelledFixer == false.
type ConflictKey struct {
	FixerID      string
	RequesterID  string
	SelectedDate time.Time
	StartingTime time.Time
}

func (a *Appointment) Key() ConflictKey {
	return ConflictKey{
		FixerID:      a.FixerID,
		RequesterID:  a.RequesterID,
		SelectedDate: a.SelectedDate,
		StartingTime: a.StartingTime,
	}
}

// AppointmentPatch names the fields a targeted update may change. Nil
// fields keep their prior values.
type AppointmentPatch struct {
	SelectedDate        *time.Time
	StartingTime        *time.Time
	FinishingTime       *time.Time
	AppointmentType     *string
	Description         *string
	LinkID              *string
	DisplayLocationName *string
	Lat                 *string
	Lon                 *string
	RequesterName       *string
	RequesterPhone      *string
	ScheduleState       *string
	CancelledFixer      *bool
	ReprogramReason     *string
}
