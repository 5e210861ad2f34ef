package services

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/alimgiray/salesconsole/internal/models"
)

const whatsAppBaseURL = "https://wa.me/"

var spanishWeekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// RenderedMessage is the confirmation text and, when a phone is known, its deep link
type RenderedMessage struct {
	Text         string
	WhatsAppLink *string
	ToPhone      *string
}

// MessageRenderer builds deterministic confirmation messages in the organization's timezone
type MessageRenderer struct {
	phones   *PhoneNormalizer
	location *time.Location
}

func NewMessageRenderer(phones *PhoneNormalizer, location *time.Location) *MessageRenderer {
	return &MessageRenderer{
		phones:   phones,
		location: location,
	}
}

// Render fills the template for a contact and meeting. The text only depends on its
// inputs and always uses an absolute date, so re-generation yields identical messages.
func (r *MessageRenderer) Render(contact *models.Contact, summary string, start time.Time) RenderedMessage {
	rendered := RenderedMessage{
		Text: r.text(contact.FirstName(), summary, start),
	}

	phone, err := r.phones.Normalize(contact.RawPhone())
	if err != nil {
		return rendered
	}

	link := WhatsAppLink(phone, rendered.Text)
	toPhone := "+" + phone
	rendered.WhatsAppLink = &link
	rendered.ToPhone = &toPhone
	return rendered
}

func (r *MessageRenderer) text(firstName, summary string, start time.Time) string {
	local := start.In(r.location)

	greeting := "Hola"
	if firstName != "" {
		greeting += " " + firstName
	}

	meeting := "nuestra reunión"
	if summary = strings.TrimSpace(summary); summary != "" {
		meeting += ` "` + summary + `"`
	}

	return fmt.Sprintf("%s, te escribo para confirmar %s del %s %d de %s a las %s. ¿Nos confirmas tu asistencia?",
		greeting,
		meeting,
		spanishWeekdays[local.Weekday()],
		local.Day(),
		spanishMonths[local.Month()-1],
		local.Format("15:04"),
	)
}

// WhatsAppLink builds a wa.me deep link; spaces are encoded as %20 because
// WhatsApp shows a literal "+" for form-encoded spaces
func WhatsAppLink(phoneDigits, text string) string {
	return whatsAppBaseURL + phoneDigits + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
