package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alimgiray/salesconsole/internal/models"
)

const confirmationItemColumns = `
	id, event_id, attendee_email, event_summary, contact_id, contact_name, start_datetime,
	bucket, status, message_text, whatsapp_link, to_phone, snooze_until, copied_at,
	contact_was_created, version, created_at, updated_at
`

// ConfirmationItemRepository handles database operations for confirmation items.
// Writes are guarded by the version column, so concurrent generation runs and
// operator actions never overwrite each other silently.
type ConfirmationItemRepository struct {
	db *sql.DB
}

func NewConfirmationItemRepository(db *sql.DB) *ConfirmationItemRepository {
	return &ConfirmationItemRepository{db: db}
}

// Create inserts a new item
func (r *ConfirmationItemRepository) Create(item *models.ConfirmationItem) error {
	query := `
		INSERT INTO confirmation_items (` + confirmationItemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		item.ID,
		item.EventID,
		item.AttendeeEmail,
		item.EventSummary,
		item.ContactID,
		item.ContactName,
		item.StartDatetime.UTC(),
		item.Bucket,
		item.Status,
		item.MessageText,
		item.WhatsAppLink,
		item.ToPhone,
		utcPtr(item.SnoozeUntil),
		utcPtr(item.CopiedAt),
		item.ContactWasCreated,
		item.Version,
		item.CreatedAt.UTC(),
		item.UpdatedAt.UTC(),
	)
	return err
}

// GetByID retrieves an item by ID
func (r *ConfirmationItemRepository) GetByID(id string) (*models.ConfirmationItem, error) {
	query := `SELECT ` + confirmationItemColumns + ` FROM confirmation_items WHERE id = ?`
	return scanConfirmationItem(r.db.QueryRow(query, id))
}

// GetByKey retrieves the item of an (event, attendee) pair
func (r *ConfirmationItemRepository) GetByKey(eventID, attendeeEmail string) (*models.ConfirmationItem, error) {
	query := `SELECT ` + confirmationItemColumns + ` FROM confirmation_items WHERE event_id = ? AND attendee_email = ?`
	return scanConfirmationItem(r.db.QueryRow(query, eventID, models.NormalizeEmail(attendeeEmail)))
}

// UpdateVersioned writes every mutable field if the stored version still matches item.Version.
// On success item.Version is advanced.
func (r *ConfirmationItemRepository) UpdateVersioned(item *models.ConfirmationItem) error {
	query := `
		UPDATE confirmation_items SET
			event_summary = ?, contact_id = ?, contact_name = ?, start_datetime = ?, bucket = ?,
			status = ?, message_text = ?, whatsapp_link = ?, to_phone = ?, snooze_until = ?,
			copied_at = ?, contact_was_created = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	now := time.Now()
	result, err := r.db.Exec(query,
		item.EventSummary,
		item.ContactID,
		item.ContactName,
		item.StartDatetime.UTC(),
		item.Bucket,
		item.Status,
		item.MessageText,
		item.WhatsAppLink,
		item.ToPhone,
		utcPtr(item.SnoozeUntil),
		utcPtr(item.CopiedAt),
		item.ContactWasCreated,
		now.UTC(),
		item.ID,
		item.Version,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVersionConflict
	}

	item.Version++
	item.UpdatedAt = now
	return nil
}

// Upsert creates or updates the item of an (event, attendee) pair.
// merge receives the stored item (nil when none exists) and returns the row to persist;
// it is called again with fresh data whenever a concurrent writer wins the race.
func (r *ConfirmationItemRepository) Upsert(eventID, attendeeEmail string, merge func(existing *models.ConfirmationItem) *models.ConfirmationItem) (*models.ConfirmationItem, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		existing, err := r.GetByKey(eventID, attendeeEmail)
		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}
		if err == sql.ErrNoRows {
			existing = nil
		}

		item := merge(existing)
		if existing == nil {
			if err := r.Create(item); err != nil {
				if isUniqueViolation(err) {
					continue
				}
				return nil, err
			}
			return item, nil
		}

		item.ID = existing.ID
		item.Version = existing.Version
		item.CreatedAt = existing.CreatedAt
		if err := r.UpdateVersioned(item); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				continue
			}
			return nil, err
		}
		return item, nil
	}

	return nil, fmt.Errorf("upsert %s/%s: %w", eventID, attendeeEmail, ErrVersionConflict)
}

// Mutate loads an item, applies fn and writes it back, retrying on version conflicts.
// An error from fn aborts without writing.
func (r *ConfirmationItemRepository) Mutate(id string, fn func(item *models.ConfirmationItem) error) (*models.ConfirmationItem, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		item, err := r.GetByID(id)
		if err != nil {
			return nil, err
		}

		if err := fn(item); err != nil {
			return nil, err
		}

		if err := r.UpdateVersioned(item); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				continue
			}
			return nil, err
		}
		return item, nil
	}

	return nil, fmt.Errorf("update item %s: %w", id, ErrVersionConflict)
}

// ListFrom returns the items whose meeting starts at or after from, ordered by start then email
func (r *ConfirmationItemRepository) ListFrom(from time.Time) ([]*models.ConfirmationItem, error) {
	query := `
		SELECT ` + confirmationItemColumns + `
		FROM confirmation_items
		WHERE start_datetime >= ?
		ORDER BY start_datetime ASC, attendee_email ASC
	`
	return r.query(query, from.UTC())
}

// ListByContactID returns all items addressed to a contact
func (r *ConfirmationItemRepository) ListByContactID(contactID string) ([]*models.ConfirmationItem, error) {
	query := `
		SELECT ` + confirmationItemColumns + `
		FROM confirmation_items
		WHERE contact_id = ?
		ORDER BY start_datetime ASC, attendee_email ASC
	`
	return r.query(query, contactID)
}

func (r *ConfirmationItemRepository) query(query string, args ...interface{}) ([]*models.ConfirmationItem, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.ConfirmationItem
	for rows.Next() {
		item, err := scanConfirmationItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConfirmationItem(row rowScanner) (*models.ConfirmationItem, error) {
	item := &models.ConfirmationItem{}
	err := row.Scan(
		&item.ID,
		&item.EventID,
		&item.AttendeeEmail,
		&item.EventSummary,
		&item.ContactID,
		&item.ContactName,
		&item.StartDatetime,
		&item.Bucket,
		&item.Status,
		&item.MessageText,
		&item.WhatsAppLink,
		&item.ToPhone,
		&item.SnoozeUntil,
		&item.CopiedAt,
		&item.ContactWasCreated,
		&item.Version,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
