package models

import (
	"strings"
	"time"
)

// ResponseStatus is an attendee's answer to a meeting invitation
type ResponseStatus string

const (
	ResponseAccepted    ResponseStatus = "accepted"
	ResponseDeclined    ResponseStatus = "declined"
	ResponseNeedsAction ResponseStatus = "needsAction"
	ResponseTentative   ResponseStatus = "tentative"
)

// Attendee is an invitee on a single calendar event
type Attendee struct {
	Email          string         `json:"email"`
	Name           string         `json:"name,omitempty"`
	ResponseStatus ResponseStatus `json:"response_status"`
	Self           bool           `json:"self,omitempty"`
}

// CalendarEvent is a read-only snapshot of a meeting taken from the calendar source
type CalendarEvent struct {
	ID         string     `json:"id"`
	Summary    string     `json:"summary"`
	Start      time.Time  `json:"start"`
	End        time.Time  `json:"end"`
	AllDay     bool       `json:"all_day"`
	Cancelled  bool       `json:"cancelled"`
	OwnerEmail string     `json:"owner_email,omitempty"`
	Attendees  []Attendee `json:"attendees"`
}

// FindAttendee looks up an attendee by email, ignoring case
func (e *CalendarEvent) FindAttendee(email string) (*Attendee, bool) {
	email = NormalizeEmail(email)
	for i := range e.Attendees {
		if NormalizeEmail(e.Attendees[i].Email) == email {
			return &e.Attendees[i], true
		}
	}
	return nil, false
}

// HasAttendee reports whether the email is invited to the event
func (e *CalendarEvent) HasAttendee(email string) bool {
	_, ok := e.FindAttendee(email)
	return ok
}

// AttendeeEmails returns the normalized, de-duplicated attendee addresses in event order
func (e *CalendarEvent) AttendeeEmails() []string {
	seen := make(map[string]bool, len(e.Attendees))
	emails := make([]string, 0, len(e.Attendees))
	for _, attendee := range e.Attendees {
		email := NormalizeEmail(attendee.Email)
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		emails = append(emails, email)
	}
	return emails
}

// NormalizeEmail lower-cases and trims an address; a "mailto:" prefix is dropped
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	if len(email) >= 7 && strings.EqualFold(email[:7], "mailto:") {
		email = email[7:]
	}
	return strings.ToLower(email)
}

// EmailDomain returns the part after the last "@", or "" when there is none
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
