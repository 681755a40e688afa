// Package booking holds the admission and reschedule rules for
// appointments. The service owns the decision logic; persistence and
// notification are behind interfaces so the rules test without Postgres
// or a mail relay.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/servibook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/servibook/services/booking-service/internal/notify"
)

// AppointmentStore is the persistence surface the service needs. Lookups
// return (nil, nil) when no record matches.
type AppointmentStore interface {
	FindByKey(ctx context.Context, key model.ConflictKey) (*model.Appointment, error)
	FindByID(ctx context.Context, id string) (*model.Appointment, error)
	Insert(ctx context.Context, appt *model.Appointment) (*model.Appointment, error)
	UpdateByID(ctx context.Context, id string, patch model.AppointmentPatch) (*model.Appointment, error)
}

// UserDirectory resolves participant profiles. Unknown ids return
// (nil, nil), not an error.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// Notifier delivers a notification event. It never returns an error;
// failures surface in the outcome.
type Notifier interface {
	Deliver(ctx context.Context, evt notify.Event) notify.AggregateOutcome
}

type Service struct {
	appointments AppointmentStore
	users        UserDirectory
	notifier     Notifier
	logger       *slog.Logger
}

func NewService(appointments AppointmentStore, users UserDirectory, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		appointments: appointments,
		users:        users,
		notifier:     notifier,
		logger:       logger,
	}
}

// BookRequest carries everything a requester submits when booking a slot.
// RequesterName and RequesterPhone override the stored profile values when
// non-empty, so a requester can book on behalf of a different contact.
type BookRequest struct {
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
}

// BookResult reports what Book did. Created is false when an existing
// fixer-cancelled row was revived instead of a new row inserted.
type BookResult struct {
	Appointment *model.Appointment
	Created     bool
}

// Book admits an appointment for the requested slot.
//
// Admission is keyed on (fixer, requester, date, starting time): a free
// key inserts a new row, a key held by a requester-cancelled row revives
// that row, and a key held by any other active row is a duplicate. Rows
// retired by the fixer do not block the key. The store's unique guard
// backs the pre-check, so a racing duplicate still comes back as
// ErrDuplicateAppointment.
func (s *Service) Book(ctx context.Context, req BookRequest) (*BookResult, error) {
	requester, err := s.requireUser(ctx, req.RequesterID, model.RoleRequester, ErrRequesterNotFound)
	if err != nil {
		return nil, err
	}
	fixer, err := s.requireUser(ctx, req.FixerID, model.RoleFixer, ErrFixerNotFound)
	if err != nil {
		return nil, err
	}

	existing, err := s.appointments.FindByKey(ctx, model.ConflictKey{
		FixerID:      req.FixerID,
		RequesterID:  req.RequesterID,
		SelectedDate: req.SelectedDate,
		StartingTime: req.StartingTime,
	})
	if err != nil {
		return nil, fmt.Errorf("look up slot: %w", err)
	}

	contactName := req.RequesterName
	if contactName == "" {
		contactName = requester.Name
	}
	contactPhone := req.RequesterPhone
	if contactPhone == "" {
		contactPhone = requester.Phone
	}

	var result BookResult
	switch {
	case existing == nil || existing.CancelledFixer:
		appt, err := s.appointments.Insert(ctx, &model.Appointment{
			FixerID:             req.FixerID,
			RequesterID:         req.RequesterID,
			SelectedDate:        req.SelectedDate,
			StartingTime:        req.StartingTime,
			FinishingTime:       req.FinishingTime,
			AppointmentType:     req.AppointmentType,
			Description:         req.Description,
			LinkID:              req.LinkID,
			DisplayLocationName: req.DisplayLocationName,
			Lat:                 req.Lat,
			Lon:                 req.Lon,
			RequesterName:       contactName,
			RequesterPhone:      contactPhone,
			ScheduleState:       model.ScheduleStateBooked,
		})
		if err != nil {
			return nil, err
		}
		result = BookResult{Appointment: appt, Created: true}

	case existing.ScheduleState == model.ScheduleStateCancelled:
		appt, err := s.reviveAppointment(ctx, existing.ID, req, contactName, contactPhone)
		if err != nil {
			return nil, err
		}
		result = BookResult{Appointment: appt, Created: false}

	default:
		return nil, ErrDuplicateAppointment
	}

	s.deliverAndLog(ctx, notify.Confirmation{
		Fixer: fixer,
		Requester: &model.User{
			ID:       requester.ID,
			Name:     contactName,
			Email:    requester.Email,
			Phone:    contactPhone,
			Whatsapp: requester.Whatsapp,
			Role:     requester.Role,
		},
		Appointment: result.Appointment,
	}, result.Appointment.ID)

	return &result, nil
}

// reviveAppointment rebooks a requester-cancelled row in place with the
// incoming slot details, clearing the stale reprogram reason.
func (s *Service) reviveAppointment(ctx context.Context, id string, req BookRequest, contactName, contactPhone string) (*model.Appointment, error) {
	booked := model.ScheduleStateBooked
	emptyReason := ""
	appt, err := s.appointments.UpdateByID(ctx, id, model.AppointmentPatch{
		SelectedDate:        &req.SelectedDate,
		StartingTime:        &req.StartingTime,
		FinishingTime:       req.FinishingTime,
		AppointmentType:     &req.AppointmentType,
		Description:         &req.Description,
		LinkID:              &req.LinkID,
		DisplayLocationName: &req.DisplayLocationName,
		Lat:                 &req.Lat,
		Lon:                 &req.Lon,
		RequesterName:       &contactName,
		RequesterPhone:      &contactPhone,
		ScheduleState:       &booked,
		ReprogramReason:     &emptyReason,
	})
	if err != nil {
		return nil, fmt.Errorf("revive appointment %s: %w", id, err)
	}
	if appt == nil {
		return nil, ErrAppointmentNotFound
	}
	return appt, nil
}

// Update applies a partial patch to an appointment. When the patch moves
// the starting time, both participants get a reschedule notice; any other
// change is silent. Returns whether a reschedule was detected.
func (s *Service) Update(ctx context.Context, id string, patch model.AppointmentPatch) (*model.Appointment, bool, error) {
	prev, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("load appointment %s: %w", id, err)
	}
	if prev == nil {
		return nil, false, ErrAppointmentNotFound
	}

	updated, err := s.appointments.UpdateByID(ctx, id, patch)
	if err != nil {
		return nil, false, fmt.Errorf("update appointment %s: %w", id, err)
	}
	if updated == nil {
		return nil, false, ErrAppointmentNotFound
	}

	rescheduled := patch.StartingTime != nil && !patch.StartingTime.Equal(prev.StartingTime)
	if !rescheduled {
		return updated, false, nil
	}

	fixer, requester, ok := s.resolveParticipants(ctx, updated)
	if !ok {
		return updated, true, nil
	}
	s.deliverAndLog(ctx, notify.Reschedule{
		Fixer:           fixer,
		Requester:       requester,
		OldStartingTime: prev.StartingTime,
		Appointment:     updated,
	}, updated.ID)

	return updated, true, nil
}

// CancelByFixer retires an appointment on the fixer's behalf and tells the
// requester. The row stays in place with CancelledFixer set, freeing the
// slot key for future bookings.
func (s *Service) CancelByFixer(ctx context.Context, id string) (*model.Appointment, error) {
	cancelled := true
	updated, err := s.appointments.UpdateByID(ctx, id, model.AppointmentPatch{CancelledFixer: &cancelled})
	if err != nil {
		return nil, fmt.Errorf("cancel appointment %s: %w", id, err)
	}
	if updated == nil {
		return nil, ErrAppointmentNotFound
	}

	fixer, requester, ok := s.resolveParticipants(ctx, updated)
	if !ok {
		return updated, nil
	}
	s.deliverAndLog(ctx, notify.Cancellation{
		ClientName:  updated.RequesterName,
		ClientEmail: requester.Email,
		ClientPhone: updated.RequesterPhone,
		FixerName:   fixer.Name,
		Date:        updated.SelectedDate,
	}, updated.ID)

	return updated, nil
}

// Get returns one appointment by id.
func (s *Service) Get(ctx context.Context, id string) (*model.Appointment, error) {
	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment %s: %w", id, err)
	}
	if appt == nil {
		return nil, ErrAppointmentNotFound
	}
	return appt, nil
}

func (s *Service) requireUser(ctx context.Context, id, role string, missing error) (*model.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("look up user %s: %w", id, err)
	}
	if u == nil || u.Role != role {
		return nil, missing
	}
	return u, nil
}

// resolveParticipants loads both users for a post-write notification.
// Resolution failures are logged and swallowed: the mutation already
// happened and must stand.
func (s *Service) resolveParticipants(ctx context.Context, appt *model.Appointment) (fixer, requester *model.User, ok bool) {
	fixer, err := s.users.FindByID(ctx, appt.FixerID)
	if err != nil || fixer == nil {
		s.logger.Warn("skipping notification, fixer unresolved",
			"appointment_id", appt.ID, "fixer_id", appt.FixerID, "error", err)
		return nil, nil, false
	}
	requester, err = s.users.FindByID(ctx, appt.RequesterID)
	if err != nil || requester == nil {
		s.logger.Warn("skipping notification, requester unresolved",
			"appointment_id", appt.ID, "requester_id", appt.RequesterID, "error", err)
		return nil, nil, false
	}
	return fixer, requester, true
}

func (s *Service) deliverAndLog(ctx context.Context, evt notify.Event, appointmentID string) {
	out := s.notifier.Deliver(ctx, evt)
	if out.Failed() {
		s.logger.Error("appointment saved but notifications failed",
			"appointment_id", appointmentID, "event", out.Event, "attempted", out.Attempted())
		return
	}
	s.logger.Info("notifications dispatched",
		"appointment_id", appointmentID, "event", out.Event,
		"attempted", out.Attempted(), "any_succeeded", out.AnySucceeded)
}

// IsNotFound reports whether err is one of the lookup sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAppointmentNotFound) ||
		errors.Is(err, ErrFixerNotFound) ||
		errors.Is(err, ErrRequesterNotFound)
}
