package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/servibook/services/booking-service/internal/model"
)

func TestFormatLocalizedDateTime(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), "Miércoles 1 de mayo, 10:00 a. m."},
		{time.Date(2024, 5, 1, 0, 5, 0, 0, time.UTC), "Miércoles 1 de mayo, 12:05 a. m."},
		{time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), "Miércoles 1 de mayo, 12:00 p. m."},
		{time.Date(2024, 12, 25, 18, 30, 0, 0, time.UTC), "Miércoles 25 de diciembre, 6:30 p. m."},
		{time.Time{}, "[No especificada]"},
	}
	for _, tt := range tests {
		if got := formatLocalizedDateTime(tt.in); got != tt.want {
			t.Errorf("formatLocalizedDateTime(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatLocalizedDateTimeNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("BOT", -4*3600)
	in := time.Date(2024, 5, 1, 6, 0, 0, 0, loc) // 10:00 UTC
	if got := formatLocalizedDateTime(in); got != "Miércoles 1 de mayo, 10:00 a. m." {
		t.Fatalf("got %q", got)
	}
}

func TestEmailBody(t *testing.T) {
	got := emailBody("*Hola*\nmundo")
	if got != "Hola<br>mundo" {
		t.Fatalf("emailBody = %q", got)
	}
}

func TestRenderConfirmationFallbacks(t *testing.T) {
	evt := Confirmation{
		Fixer:     &model.User{},
		Requester: &model.User{},
		Appointment: &model.Appointment{
			AppointmentType: model.AppointmentTypePresential,
		},
	}
	_, text := renderConfirmationForFixer(evt)
	for _, want := range []string{"Profesional", "Cliente", "Sin descripción", "Ubicación no especificada", "Presencial", "[No especificada]"} {
		if !strings.Contains(text, want) {
			t.Errorf("fixer confirmation missing %q:\n%s", want, text)
		}
	}

	_, text = renderConfirmationForRequester(evt)
	if !strings.Contains(text, "Tu cita ha sido confirmada") {
		t.Errorf("requester confirmation missing closing line:\n%s", text)
	}
}

func TestRenderConfirmationVirtualLink(t *testing.T) {
	evt := Confirmation{
		Fixer:     &model.User{Name: "Ana"},
		Requester: &model.User{Name: "Luis"},
		Appointment: &model.Appointment{
			AppointmentType: model.AppointmentTypeVirtual,
			LinkID:          "https://meet.example/abc",
		},
	}
	_, text := renderConfirmationForRequester(evt)
	if !strings.Contains(text, "Virtual") || !strings.Contains(text, "https://meet.example/abc") {
		t.Fatalf("virtual confirmation missing modality/link:\n%s", text)
	}
}

func TestRenderRescheduleIncludesBothDates(t *testing.T) {
	evt := Reschedule{
		Fixer:           &model.User{Name: "Ana"},
		Requester:       &model.User{Name: "Luis"},
		OldStartingTime: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Appointment: &model.Appointment{
			StartingTime:    time.Date(2024, 5, 3, 15, 0, 0, 0, time.UTC),
			ReprogramReason: "Conflicto de agenda",
		},
	}
	_, text := renderRescheduleForFixer(evt)
	if !strings.Contains(text, "Miércoles 1 de mayo") || !strings.Contains(text, "Viernes 3 de mayo") {
		t.Fatalf("reschedule missing dates:\n%s", text)
	}
	if !strings.Contains(text, "Conflicto de agenda") {
		t.Fatalf("reschedule missing reason:\n%s", text)
	}

	_, text = renderRescheduleForRequester(evt)
	if !strings.Contains(text, "Viernes 3 de mayo") || !strings.Contains(text, "Ana") {
		t.Fatalf("requester reschedule incomplete:\n%s", text)
	}
}

func TestRenderCancellation(t *testing.T) {
	evt := Cancellation{
		ClientName: "Luis",
		FixerName:  "Ana",
		Date:       time.Date(2024, 6, 10, 15, 30, 0, 0, time.UTC),
	}
	subject, text := renderCancellation(evt)
	if subject == "" {
		t.Fatal("empty subject")
	}
	for _, want := range []string{"Luis", "Ana", "Lunes 10 de junio", "Disculpa las molestias"} {
		if !strings.Contains(text, want) {
			t.Errorf("cancellation missing %q:\n%s", want, text)
		}
	}
}
