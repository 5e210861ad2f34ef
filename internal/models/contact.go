package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// ContactStageInitial is the first stage of the sales pipeline
	ContactStageInitial = 1

	// ContactSourceCalendarImport marks contacts synthesized from meeting attendees
	ContactSourceCalendarImport = "calendar_import"
)

// Contact represents a person in the sales pipeline
type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Stage     int       `json:"stage"`
	Source    string    `json:"source"`
	Phone     *string   `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewContact creates a new Contact with a generated UUID
func NewContact(name, email string) *Contact {
	now := time.Now()
	return &Contact{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     NormalizeEmail(email),
		Stage:     ContactStageInitial,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewCalendarImportContact creates the contact synthesized for an unknown attendee
func NewCalendarImportContact(name, email string) *Contact {
	contact := NewContact(name, email)
	contact.Source = ContactSourceCalendarImport
	return contact
}

// RawPhone returns the stored phone or an empty string
func (c *Contact) RawPhone() string {
	if c.Phone == nil {
		return ""
	}
	return *c.Phone
}

// FirstName returns the first word of the display name
func (c *Contact) FirstName() string {
	fields := strings.Fields(c.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
