package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/servibook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/servibook/services/booking-service/internal/model"
)

type AppointmentHandler struct {
	svc    *booking.Service
	logger *slog.Logger
}

func NewAppointmentHandler(svc *booking.Service, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, logger: logger}
}

type bookRequest struct {
	FixerID             string `json:"id_fixer"`
	RequesterID         string `json:"id_requester"`
	SelectedDate        string `json:"selected_date"`
	StartingTime        string `json:"starting_time"`
	FinishingTime       string `json:"finishing_time"`
	AppointmentType     string `json:"appointment_type"`
	Description         string `json:"description"`
	LinkID              string `json:"link_id"`
	DisplayLocationName string `json:"display_location_name"`
	Lat                 string `json:"lat"`
	Lon                 string `json:"lon"`
	RequesterName       string `json:"requester_name"`
	RequesterPhone      string `json:"requester_phone"`
}

type bookResponse struct {
	Result        bool   `json:"result"`
	Created       bool   `json:"created"`
	AppointmentID string `json:"appointment_id"`
}

type updateRequest struct {
	AppointmentID       string  `json:"appointment_id"`
	SelectedDate        *string `json:"selected_date"`
	StartingTime        *string `json:"starting_time"`
	FinishingTime       *string `json:"finishing_time"`
	AppointmentType     *string `json:"appointment_type"`
	Description         *string `json:"description"`
	LinkID              *string `json:"link_id"`
	DisplayLocationName *string `json:"display_location_name"`
	Lat                 *string `json:"lat"`
	Lon                 *string `json:"lon"`
	RequesterName       *string `json:"requester_name"`
	RequesterPhone      *string `json:"requester_phone"`
	ScheduleState       *string `json:"schedule_state"`
	ReprogramReason     *string `json:"reprogram_reason"`
}

type updateResponse struct {
	Result        bool   `json:"result"`
	Rescheduled   bool   `json:"rescheduled"`
	AppointmentID string `json:"appointment_id"`
}

type cancelByFixerRequest struct {
	AppointmentID string `json:"appointment_id"`
}

type cancelByFixerResponse struct {
	Result        bool   `json:"result"`
	AppointmentID string `json:"appointment_id"`
}

type appointmentItem struct {
	AppointmentID       string `json:"appointment_id"`
	FixerID             string `json:"id_fixer"`
	RequesterID         string `json:"id_requester"`
	SelectedDate        string `json:"selected_date"`
	StartingTime        string `json:"starting_time"`
	FinishingTime       string `json:"finishing_time,omitempty"`
	AppointmentType     string `json:"appointment_type"`
	Description         string `json:"description,omitempty"`
	LinkID              string `json:"link_id,omitempty"`
	DisplayLocationName string `json:"display_location_name,omitempty"`
	Lat                 string `json:"lat,omitempty"`
	Lon                 string `json:"lon,omitempty"`
	RequesterName       string `json:"requester_name,omitempty"`
	RequesterPhone      string `json:"requester_phone,omitempty"`
	ScheduleState       string `json:"schedule_state"`
	CancelledFixer      bool   `json:"cancelled_fixer"`
	ReprogramReason     string `json:"reprogram_reason,omitempty"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
}

func (h *AppointmentHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	req.FixerID = strings.TrimSpace(req.FixerID)
	req.RequesterID = strings.TrimSpace(req.RequesterID)
	if req.FixerID == "" || req.RequesterID == "" {
		http.Error(w, "id_fixer and id_requester required", http.StatusBadRequest)
		return
	}

	selectedDate, err := time.Parse(time.RFC3339, req.SelectedDate)
	if err != nil {
		http.Error(w, "invalid selected_date", http.StatusBadRequest)
		return
	}
	startingTime, err := time.Parse(time.RFC3339, req.StartingTime)
	if err != nil {
		http.Error(w, "invalid starting_time", http.StatusBadRequest)
		return
	}
	var finishingTime *time.Time
	if strings.TrimSpace(req.FinishingTime) != "" {
		ft, err := time.Parse(time.RFC3339, req.FinishingTime)
		if err != nil {
			http.Error(w, "invalid finishing_time", http.StatusBadRequest)
			return
		}
		finishingTime = &ft
	}

	apptType := strings.TrimSpace(req.AppointmentType)
	if apptType != model.AppointmentTypeVirtual && apptType != model.AppointmentTypePresential {
		http.Error(w, "appointment_type must be virtual or presential", http.StatusBadRequest)
		return
	}

	res, err := h.svc.Book(r.Context(), booking.BookRequest{
		FixerID:             req.FixerID,
		RequesterID:         req.RequesterID,
		SelectedDate:        selectedDate,
		StartingTime:        startingTime,
		FinishingTime:       finishingTime,
		AppointmentType:     apptType,
		Description:         strings.TrimSpace(req.Description),
		LinkID:              strings.TrimSpace(req.LinkID),
		DisplayLocationName: strings.TrimSpace(req.DisplayLocationName),
		Lat:                 strings.TrimSpace(req.Lat),
		Lon:                 strings.TrimSpace(req.Lon),
		RequesterName:       strings.TrimSpace(req.RequesterName),
		RequesterPhone:      strings.TrimSpace(req.RequesterPhone),
	})
	if err != nil {
		h.writeError(w, r, err, "failed to book appointment")
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, bookResponse{
		Result:        true,
		Created:       res.Created,
		AppointmentID: res.Appointment.ID,
	})
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	patch, err := buildPatch(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, rescheduled, err := h.svc.Update(r.Context(), req.AppointmentID, patch)
	if err != nil {
		h.writeError(w, r, err, "failed to update appointment")
		return
	}

	writeJSON(w, http.StatusOK, updateResponse{
		Result:        true,
		Rescheduled:   rescheduled,
		AppointmentID: updated.ID,
	})
}

func (h *AppointmentHandler) CancelByFixer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelByFixerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	updated, err := h.svc.CancelByFixer(r.Context(), req.AppointmentID)
	if err != nil {
		h.writeError(w, r, err, "failed to cancel appointment")
		return
	}

	writeJSON(w, http.StatusOK, cancelByFixerResponse{
		Result:        true,
		AppointmentID: updated.ID,
	})
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("appointment_id"))
	if id == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	appt, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "failed to load appointment")
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentItem(appt))
}

func buildPatch(req updateRequest) (model.AppointmentPatch, error) {
	var patch model.AppointmentPatch
	var err error

	if patch.SelectedDate, err = parseTimeField(req.SelectedDate, "selected_date"); err != nil {
		return patch, err
	}
	if patch.StartingTime, err = parseTimeField(req.StartingTime, "starting_time"); err != nil {
		return patch, err
	}
	if patch.FinishingTime, err = parseTimeField(req.FinishingTime, "finishing_time"); err != nil {
		return patch, err
	}
	if req.AppointmentType != nil {
		t := strings.TrimSpace(*req.AppointmentType)
		if t != model.AppointmentTypeVirtual && t != model.AppointmentTypePresential {
			return patch, errors.New("appointment_type must be virtual or presential")
		}
		patch.AppointmentType = &t
	}
	if req.ScheduleState != nil {
		s := strings.TrimSpace(*req.ScheduleState)
		if s != model.ScheduleStateBooked && s != model.ScheduleStateCancelled {
			return patch, errors.New("schedule_state must be booked or cancelled")
		}
		patch.ScheduleState = &s
	}
	patch.Description = req.Description
	patch.LinkID = req.LinkID
	patch.DisplayLocationName = req.DisplayLocationName
	patch.Lat = req.Lat
	patch.Lon = req.Lon
	patch.RequesterName = req.RequesterName
	patch.RequesterPhone = req.RequesterPhone
	patch.ReprogramReason = req.ReprogramReason
	return patch, nil
}

func parseTimeField(raw *string, name string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*raw))
	if err != nil {
		return nil, errors.New("invalid " + name)
	}
	return &t, nil
}

func toAppointmentItem(a *model.Appointment) appointmentItem {
	item := appointmentItem{
		AppointmentID:       a.ID,
		FixerID:             a.FixerID,
		RequesterID:         a.RequesterID,
		SelectedDate:        a.SelectedDate.UTC().Format(time.RFC3339),
		StartingTime:        a.StartingTime.UTC().Format(time.RFC3339),
		AppointmentType:     a.AppointmentType,
		Description:         a.Description,
		LinkID:              a.LinkID,
		DisplayLocationName: a.DisplayLocationName,
		Lat:                 a.Lat,
		Lon:                 a.Lon,
		RequesterName:       a.RequesterName,
		RequesterPhone:      a.RequesterPhone,
		ScheduleState:       a.ScheduleState,
		CancelledFixer:      a.CancelledFixer,
		ReprogramReason:     a.ReprogramReason,
		CreatedAt:           a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:           a.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if a.FinishingTime != nil {
		item.FinishingTime = a.FinishingTime.UTC().Format(time.RFC3339)
	}
	return item
}

// writeError maps service errors onto HTTP statuses. Validation sentinels
// keep their message; anything else is logged and masked.
func (h *AppointmentHandler) writeError(w http.ResponseWriter, r *http.Request, err error, masked string) {
	switch {
	case errors.Is(err, booking.ErrDuplicateAppointment):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, booking.ErrRequesterNotFound), errors.Is(err, booking.ErrFixerNotFound):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, booking.ErrAppointmentNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.logger.Error(masked, "path", r.URL.Path, "error", err)
		http.Error(w, masked, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
