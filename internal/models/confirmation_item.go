package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Bucket is the display group of a confirmation item
type Bucket string

const (
	BucketToday    Bucket = "today"
	BucketTomorrow Bucket = "tomorrow"
	BucketUpcoming Bucket = "upcoming"
	BucketNoPhone  Bucket = "no_phone"
)

// Buckets lists every bucket in display order
var Buckets = []Bucket{BucketToday, BucketTomorrow, BucketUpcoming, BucketNoPhone}

// ConfirmationStatus is the operator-facing state of a confirmation item
type ConfirmationStatus string

const (
	ConfirmationStatusPending ConfirmationStatus = "pending"
	ConfirmationStatusCopied  ConfirmationStatus = "copied"
	ConfirmationStatusSnoozed ConfirmationStatus = "snoozed"
)

// ErrInvalidTransition is returned when a status change is not allowed from the current state
var ErrInvalidTransition = errors.New("invalid status transition")

// ConfirmationItem is the engine's record for one (event, attendee) pair
type ConfirmationItem struct {
	ID                string             `json:"id"`
	EventID           string             `json:"event_id"`
	EventSummary      string             `json:"event_summary"`
	AttendeeEmail     string             `json:"attendee_email"`
	ContactID         string             `json:"contact_id"`
	ContactName       string             `json:"contact_name"`
	StartDatetime     time.Time          `json:"start_datetime"`
	Bucket            Bucket             `json:"bucket"`
	Status            ConfirmationStatus `json:"status"`
	MessageText       string             `json:"message_text"`
	WhatsAppLink      *string            `json:"whatsapp_link"`
	ToPhone           *string            `json:"to_phone"`
	SnoozeUntil       *time.Time         `json:"snooze_until"`
	CopiedAt          *time.Time         `json:"copied_at"`
	ContactWasCreated bool               `json:"contact_was_created"`
	Version           int                `json:"-"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// NewConfirmationItem creates a pending item for an (event, attendee) pair
func NewConfirmationItem(eventID, attendeeEmail string) *ConfirmationItem {
	now := time.Now()
	return &ConfirmationItem{
		ID:            uuid.New().String(),
		EventID:       eventID,
		AttendeeEmail: NormalizeEmail(attendeeEmail),
		Status:        ConfirmationStatusPending,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsPending checks if the item still waits for the operator
func (i *ConfirmationItem) IsPending() bool {
	return i.Status == ConfirmationStatusPending
}

// IsCopied checks if the message was already copied
func (i *ConfirmationItem) IsCopied() bool {
	return i.Status == ConfirmationStatusCopied
}

// IsSnoozed checks if the item is snoozed, whether or not the snooze has elapsed
func (i *ConfirmationItem) IsSnoozed() bool {
	return i.Status == ConfirmationStatusSnoozed
}

// SnoozeElapsed reports whether a snoozed item is due to reappear at now
func (i *ConfirmationItem) SnoozeElapsed(now time.Time) bool {
	return i.IsSnoozed() && (i.SnoozeUntil == nil || !now.Before(*i.SnoozeUntil))
}

// ReactivateIfDue moves an elapsed snooze back to pending and reports whether it did
func (i *ConfirmationItem) ReactivateIfDue(now time.Time) bool {
	if !i.SnoozeElapsed(now) {
		return false
	}
	i.Status = ConfirmationStatusPending
	i.SnoozeUntil = nil
	return true
}

// MarkCopied records that the operator copied the message. Copying twice keeps the first timestamp.
func (i *ConfirmationItem) MarkCopied(now time.Time) {
	if i.IsCopied() {
		return
	}
	i.Status = ConfirmationStatusCopied
	i.CopiedAt = &now
	i.SnoozeUntil = nil
}

// Snooze defers the item until the given instant; only pending items can be snoozed
func (i *ConfirmationItem) Snooze(now, until time.Time) error {
	i.ReactivateIfDue(now)
	if !i.IsPending() {
		return fmt.Errorf("%w: cannot snooze a %s item", ErrInvalidTransition, i.Status)
	}
	i.Status = ConfirmationStatusSnoozed
	i.SnoozeUntil = &until
	return nil
}

// Reset clears operator state and puts the item back to pending
func (i *ConfirmationItem) Reset() {
	i.Status = ConfirmationStatusPending
	i.SnoozeUntil = nil
	i.CopiedAt = nil
}

// HasPhone reports whether a WhatsApp recipient is known for the item
func (i *ConfirmationItem) HasPhone() bool {
	return i.ToPhone != nil && *i.ToPhone != ""
}
