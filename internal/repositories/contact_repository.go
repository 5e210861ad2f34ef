package repositories

import (
	"database/sql"
	"time"

	"github.com/alimgiray/salesconsole/internal/models"
)

type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Create creates a new contact
func (r *ContactRepository) Create(contact *models.Contact) error {
	query := `
		INSERT INTO contacts (id, name, email, stage, source, phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		contact.ID,
		contact.Name,
		contact.Email,
		contact.Stage,
		contact.Source,
		contact.Phone,
		contact.CreatedAt.UTC(),
		contact.UpdatedAt.UTC(),
	)
	return err
}

// GetByID retrieves a contact by ID
func (r *ContactRepository) GetByID(id string) (*models.Contact, error) {
	query := `
		SELECT id, name, email, stage, source, phone, created_at, updated_at
		FROM contacts WHERE id = ?
	`
	return scanContact(r.db.QueryRow(query, id))
}

// GetByEmail retrieves a contact by email, ignoring case
func (r *ContactRepository) GetByEmail(email string) (*models.Contact, error) {
	query := `
		SELECT id, name, email, stage, source, phone, created_at, updated_at
		FROM contacts WHERE email = ?
	`
	return scanContact(r.db.QueryRow(query, models.NormalizeEmail(email)))
}

// GetOrCreateByEmail gets a contact by email or creates a calendar-import contact.
// The boolean result is true only when this call inserted the row.
func (r *ContactRepository) GetOrCreateByEmail(name, email string) (*models.Contact, bool, error) {
	contact, err := r.GetByEmail(email)
	if err == nil {
		return contact, false, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, err
	}

	contact = models.NewCalendarImportContact(name, email)
	if err := r.Create(contact); err != nil {
		// Another run created the same contact first
		if isUniqueViolation(err) {
			existing, getErr := r.GetByEmail(email)
			if getErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}

	return contact, true, nil
}

// UpdatePhone stores a normalized phone number for a contact
func (r *ContactRepository) UpdatePhone(id, phone string) error {
	query := `UPDATE contacts SET phone = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.Exec(query, phone, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Count returns the number of contacts
func (r *ContactRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM contacts`).Scan(&count)
	return count, err
}

func scanContact(row *sql.Row) (*models.Contact, error) {
	contact := &models.Contact{}
	err := row.Scan(
		&contact.ID,
		&contact.Name,
		&contact.Email,
		&contact.Stage,
		&contact.Source,
		&contact.Phone,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return contact, nil
}
