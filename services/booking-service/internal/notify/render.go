package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/servibook/services/booking-service/internal/model"
)

// Message templates are Spanish, matching the product's market. Rendering
// is pure: same event in, same strings out.

var spanishWeekdays = [7]string{
	"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado",
}

var spanishMonths = [12]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// formatLocalizedDateTime renders an instant as a Spanish date line:
// capitalized weekday, day, month and 12-hour time, always in UTC so the
// wall-clock value the user booked is what they read back.
func formatLocalizedDateTime(t time.Time) string {
	if t.IsZero() {
		return "[No especificada]"
	}
	t = t.UTC()

	hour := t.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	meridiem := "a. m."
	if t.Hour() >= 12 {
		meridiem = "p. m."
	}

	s := fmt.Sprintf("%s %d de %s, %d:%02d %s",
		spanishWeekdays[t.Weekday()], t.Day(), spanishMonths[t.Month()-1],
		hour, t.Minute(), meridiem)
	return strings.ToUpper(s[:1]) + s[1:]
}

// emailBody derives the HTML email body from the WhatsApp text: markdown
// bold markers dropped, newlines turned into line breaks.
func emailBody(text string) string {
	return strings.ReplaceAll(strings.ReplaceAll(text, "*", ""), "\n", "<br>")
}

func displayName(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}

func modalityText(appt *model.Appointment) string {
	if appt.AppointmentType == model.AppointmentTypePresential {
		return "Presencial"
	}
	return "Virtual"
}

func modalityDetails(appt *model.Appointment) string {
	if appt.AppointmentType == model.AppointmentTypePresential {
		if appt.DisplayLocationName == "" {
			return "Ubicación no especificada"
		}
		return appt.DisplayLocationName
	}
	if appt.LinkID == "" {
		return "Enlace no especificado"
	}
	return appt.LinkID
}

func detailsText(appt *model.Appointment) string {
	if strings.TrimSpace(appt.Description) == "" {
		return "Sin descripción"
	}
	return appt.Description
}

func renderConfirmationForFixer(evt Confirmation) (subject, text string) {
	subject = "📅 NUEVA CITA AGENDADA"
	text = fmt.Sprintf(`*📅 NUEVA CITA AGENDADA*

Hola *%s*,

Tienes un nuevo servicio:

*Cliente:* %s

*Fecha y Hora:* %s

*Modalidad:* %s

*Servicio solicitado:* %s

*Ubicación/Enlace:* %s

Por favor, revisa más detalles en la app.`,
		displayName(evt.Fixer.Name, "Profesional"),
		displayName(evt.Requester.Name, "Cliente"),
		formatLocalizedDateTime(evt.Appointment.StartingTime),
		modalityText(evt.Appointment),
		detailsText(evt.Appointment),
		modalityDetails(evt.Appointment),
	)
	return subject, text
}

func renderConfirmationForRequester(evt Confirmation) (subject, text string) {
	subject = "✅ ¡Cita Agendada Exitosamente!"
	text = fmt.Sprintf(`*✅ ¡Cita Agendada Exitosamente!*

*Profesional asignado:*
%s

*Fecha y hora:*
%s

*Modalidad:*
%s

%s

*Detalles:*
%s

*Tu cita ha sido confirmada.*`,
		displayName(evt.Fixer.Name, "Profesional"),
		formatLocalizedDateTime(evt.Appointment.StartingTime),
		modalityText(evt.Appointment),
		modalityDetails(evt.Appointment),
		detailsText(evt.Appointment),
	)
	return subject, text
}

func reprogramReason(appt *model.Appointment) string {
	if strings.TrimSpace(appt.ReprogramReason) == "" {
		return "No especificado"
	}
	return appt.ReprogramReason
}

func renderRescheduleForFixer(evt Reschedule) (subject, text string) {
	subject = "🔄 CITA REPROGRAMADA"
	text = fmt.Sprintf(`*🔄 CITA REPROGRAMADA*

Hola *%s*,

El cliente *%s* ha reprogramado su cita.

*Motivo:* %s

*Fecha anterior:*
%s

*Nueva fecha:*
%s

*Servicio:* %s
*Modalidad:* %s

Por favor, revisa tu calendario en la app.`,
		displayName(evt.Fixer.Name, "Profesional"),
		displayName(evt.Requester.Name, "Cliente"),
		reprogramReason(evt.Appointment),
		formatLocalizedDateTime(evt.OldStartingTime),
		formatLocalizedDateTime(evt.Appointment.StartingTime),
		detailsText(evt.Appointment),
		modalityText(evt.Appointment),
	)
	return subject, text
}

func renderRescheduleForRequester(evt Reschedule) (subject, text string) {
	subject = "🔄 Confirmación de Reprogramación"
	text = fmt.Sprintf(`*🔄 Confirmación de Reprogramación*

Hola *%s*,

Tu cita con *%s* ha sido reprogramada exitosamente.

*Nueva fecha:*
%s

*Motivo:* %s`,
		displayName(evt.Requester.Name, "Cliente"),
		displayName(evt.Fixer.Name, "Profesional"),
		formatLocalizedDateTime(evt.Appointment.StartingTime),
		reprogramReason(evt.Appointment),
	)
	return subject, text
}

func renderCancellation(evt Cancellation) (subject, text string) {
	subject = "Actualización sobre tu solicitud de servicio"
	text = fmt.Sprintf("Hola %s, lamentamos informarte que el fixer %s no podrá atender tu solicitud de la fecha: %s. Disculpa las molestias.",
		displayName(evt.ClientName, "Cliente"),
		displayName(evt.FixerName, "Profesional"),
		formatLocalizedDateTime(evt.Date),
	)
	return subject, text
}
