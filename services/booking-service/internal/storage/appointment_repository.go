package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/servibook/libs/db"
	"github.com/md-rashed-zaman/servibook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/servibook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/servibook/services/booking-service/internal/outbox"
)

// appointmentColumns is the canonical select/returning list; keep in sync
// with scanAppointment.
const appointmentColumns = `
	id::text, fixer_id::text, requester_id::text, selected_date, starting_time, finishing_time,
	appointment_type, COALESCE(description, ''), COALESCE(link_id, ''),
	COALESCE(display_location_name, ''), COALESCE(lat, ''), COALESCE(lon, ''),
	requester_name, requester_phone, schedule_state, cancelled_fixer,
	COALESCE(reprogram_reason, ''), created_at, updated_at`

type AppointmentRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

// NewAppointmentRepository builds the appointment store. Every mutation
// also records an appointment lifecycle event in the outbox within the
// same transaction.
func NewAppointmentRepository(pool *db.Pool, outboxRepo *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, outbox: outboxRepo}
}

// FindByKey returns the best record for a conflict key: the active row if
// one exists, otherwise the newest fixer-cancelled one, otherwise nil.
// Several rows can share a key because fixer-cancelled rows are retired,
// never deleted.
func (r *AppointmentRepository) FindByKey(ctx context.Context, key model.ConflictKey) (*model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE fixer_id = $1 AND requester_id = $2 AND selected_date = $3 AND starting_time = $4
		ORDER BY cancelled_fixer ASC, created_at DESC
		LIMIT 1
	`, key.FixerID, key.RequesterID, key.SelectedDate, key.StartingTime)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return appt, nil
}

func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return appt, nil
}

// Insert stores a fresh appointment. The partial unique index on the
// conflict key (active rows only) is the authoritative duplicate guard;
// a violation surfaces as booking.ErrDuplicateAppointment.
func (r *AppointmentRepository) Insert(ctx context.Context, appt *model.Appointment) (*model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments
			(fixer_id, requester_id, selected_date, starting_time, finishing_time,
			appointment_type, description, link_id, display_location_name, lat, lon,
			requester_name, requester_phone, schedule_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+appointmentColumns+`
	`, appt.FixerID, appt.RequesterID, appt.SelectedDate, appt.StartingTime, appt.FinishingTime,
		appt.AppointmentType, appt.Description, appt.LinkID, appt.DisplayLocationName, appt.Lat, appt.Lon,
		appt.RequesterName, appt.RequesterPhone, model.ScheduleStateBooked)

	stored, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: slot %s/%s at %s", booking.ErrDuplicateAppointment,
				appt.FixerID, appt.RequesterID, appt.StartingTime.UTC().Format(time.RFC3339))
		}
		return nil, err
	}

	if err := r.recordLifecycleEvent(ctx, tx, outbox.EventAppointmentBooked, stored); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return stored, nil
}

// UpdateByID applies a targeted patch: only fields set on the patch
// change, everything else keeps its stored value. Returns (nil, nil) when
// no record has the id.
func (r *AppointmentRepository) UpdateByID(ctx context.Context, id string, patch model.AppointmentPatch) (*model.Appointment, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.SelectedDate != nil {
		add("selected_date", *patch.SelectedDate)
	}
	if patch.StartingTime != nil {
		add("starting_time", *patch.StartingTime)
	}
	if patch.FinishingTime != nil {
		add("finishing_time", *patch.FinishingTime)
	}
	if patch.AppointmentType != nil {
		add("appointment_type", *patch.AppointmentType)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.LinkID != nil {
		add("link_id", *patch.LinkID)
	}
	if patch.DisplayLocationName != nil {
		add("display_location_name", *patch.DisplayLocationName)
	}
	if patch.Lat != nil {
		add("lat", *patch.Lat)
	}
	if patch.Lon != nil {
		add("lon", *patch.Lon)
	}
	if patch.RequesterName != nil {
		add("requester_name", *patch.RequesterName)
	}
	if patch.RequesterPhone != nil {
		add("requester_phone", *patch.RequesterPhone)
	}
	if patch.ScheduleState != nil {
		add("schedule_state", *patch.ScheduleState)
	}
	if patch.CancelledFixer != nil {
		add("cancelled_fixer", *patch.CancelledFixer)
	}
	if patch.ReprogramReason != nil {
		add("reprogram_reason", *patch.ReprogramReason)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, fmt.Sprintf(`
		UPDATE appointments
		SET %s
		WHERE id = $1
		RETURNING %s
	`, strings.Join(sets, ", "), appointmentColumns), args...)

	updated, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := r.recordLifecycleEvent(ctx, tx, lifecycleEventType(patch), updated); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

// lifecycleEventType classifies a patch: flipping cancelled_fixer retires
// the slot, re-setting schedule_state to booked revives it, anything else
// is a plain update.
func lifecycleEventType(patch model.AppointmentPatch) string {
	switch {
	case patch.CancelledFixer != nil && *patch.CancelledFixer:
		return outbox.EventAppointmentCancelledByFixer
	case patch.ScheduleState != nil && *patch.ScheduleState == model.ScheduleStateBooked:
		return outbox.EventAppointmentRebooked
	default:
		return outbox.EventAppointmentUpdated
	}
}

func (r *AppointmentRepository) recordLifecycleEvent(ctx context.Context, tx pgx.Tx, eventType string, appt *model.Appointment) error {
	payload, err := json.Marshal(map[string]any{
		"appointment_id":   appt.ID,
		"fixer_id":         appt.FixerID,
		"requester_id":     appt.RequesterID,
		"selected_date":    appt.SelectedDate.UTC().Format("2006-01-02"),
		"starting_time":    appt.StartingTime.UTC().Format(time.RFC3339),
		"appointment_type": appt.AppointmentType,
		"schedule_state":   appt.ScheduleState,
		"cancelled_fixer":  appt.CancelledFixer,
	})
	if err != nil {
		return err
	}
	return r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
	})
}

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	var appt model.Appointment
	var finishingTime *time.Time
	err := row.Scan(
		&appt.ID,
		&appt.FixerID,
		&appt.RequesterID,
		&appt.SelectedDate,
		&appt.StartingTime,
		&finishingTime,
		&appt.AppointmentType,
		&appt.Description,
		&appt.LinkID,
		&appt.DisplayLocationName,
		&appt.Lat,
		&appt.Lon,
		&appt.RequesterName,
		&appt.RequesterPhone,
		&appt.ScheduleState,
		&appt.CancelledFixer,
		&appt.ReprogramReason,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	appt.FinishingTime = finishingTime
	return &appt, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
