package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/alimgiray/salesconsole/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ContactStore is the contact lookup the resolver depends on
type ContactStore interface {
	GetByEmail(email string) (*models.Contact, error)
	GetOrCreateByEmail(name, email string) (*models.Contact, bool, error)
}

// ContactResolution describes the contact behind an attendee email
type ContactResolution struct {
	Contact  *models.Contact
	Created  bool
	HasPhone bool
	// Phone is the normalized number (digits only) when HasPhone is true
	Phone string
}

type ContactResolver struct {
	store  ContactStore
	phones *PhoneNormalizer
}

func NewContactResolver(store ContactStore, phones *PhoneNormalizer) *ContactResolver {
	return &ContactResolver{
		store:  store,
		phones: phones,
	}
}

// Resolve finds the contact for email or creates a calendar-import contact for it
func (r *ContactResolver) Resolve(email string) (*ContactResolution, error) {
	email = models.NormalizeEmail(email)

	contact, created, err := r.store.GetOrCreateByEmail(DeriveDisplayName(email), email)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve contact %s: %v", ErrSourceUnavailable, email, err)
	}

	return r.resolution(contact, created), nil
}

// DryResolve reports what Resolve would return without creating anything.
// Created is true when Resolve would create the contact.
func (r *ContactResolver) DryResolve(email string) (*ContactResolution, error) {
	email = models.NormalizeEmail(email)

	contact, err := r.store.GetByEmail(email)
	if err == nil {
		return r.resolution(contact, false), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: look up contact %s: %v", ErrSourceUnavailable, email, err)
	}

	return r.resolution(models.NewCalendarImportContact(DeriveDisplayName(email), email), true), nil
}

func (r *ContactResolver) resolution(contact *models.Contact, created bool) *ContactResolution {
	resolution := &ContactResolution{
		Contact: contact,
		Created: created,
	}
	if phone, err := r.phones.Normalize(contact.RawPhone()); err == nil {
		resolution.HasPhone = true
		resolution.Phone = phone
	}
	return resolution
}

var nameSeparators = strings.NewReplacer(".", " ", "_", " ", "-", " ", "+", " ")

// DeriveDisplayName builds a display name from the local part of an email,
// e.g. "ana.maria_lopez@x.com" becomes "Ana Maria Lopez"
func DeriveDisplayName(email string) string {
	local := models.NormalizeEmail(email)
	if at := strings.Index(local, "@"); at >= 0 {
		local = local[:at]
	}

	words := strings.Fields(nameSeparators.Replace(local))
	if len(words) == 0 {
		return email
	}

	return cases.Title(language.Spanish).String(strings.Join(words, " "))
}
