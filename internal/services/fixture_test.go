package services

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/alimgiray/salesconsole/internal/calendar"
	"github.com/alimgiray/salesconsole/internal/models"
	"github.com/alimgiray/salesconsole/internal/repositories"
	"github.com/alimgiray/salesconsole/pkg/database"
	"github.com/stretchr/testify/require"
)

const (
	testOwnerEmail = "owner@acme.com"
	testDomain     = "acme.com"
)

// engineFixture wires the confirmation engine to a temporary SQLite file and an in-memory calendar
type engineFixture struct {
	db          *sql.DB
	loc         *time.Location
	now         time.Time
	source      *calendar.MemorySource
	contacts    *repositories.ContactRepository
	items       *repositories.ConfirmationItemRepository
	runs        *repositories.GenerationRunRepository
	service     *ConfirmationService
	diagnostics *DiagnosticService
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)

	db, err := database.Open(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &engineFixture{
		db:       db,
		loc:      loc,
		now:      time.Date(2026, 10, 18, 9, 0, 0, 0, loc),
		source:   calendar.NewMemorySource(),
		contacts: repositories.NewContactRepository(db),
		items:    repositories.NewConfirmationItemRepository(db),
		runs:     repositories.NewGenerationRunRepository(db),
	}

	settings := EngineSettings{
		Location:    loc,
		ScanDays:    30,
		SnoozeDays:  1,
		Concurrency: 4,
	}
	pipeline := NewEligibilityPipeline(EligibilityOptions{
		OwnerEmail:      testOwnerEmail,
		InternalDomains: []string{testDomain},
	})
	phones := NewPhoneNormalizer("52", 10)

	f.service = NewConfirmationService(f.source, pipeline, phones, f.items, f.contacts, f.runs, settings)
	f.diagnostics = NewDiagnosticService(f.source, pipeline, phones, f.contacts, settings)

	clock := func() time.Time { return f.now }
	f.service.SetClock(clock)
	f.diagnostics.SetClock(clock)

	return f
}

// at returns a local time dayOffset days after the fixture's today
func (f *engineFixture) at(dayOffset, hour, minute int) time.Time {
	y, m, d := f.now.Date()
	return time.Date(y, m, d+dayOffset, hour, minute, 0, 0, f.loc)
}

func (f *engineFixture) addContact(t *testing.T, name, email, phone string) *models.Contact {
	t.Helper()
	contact := models.NewContact(name, email)
	if phone != "" {
		contact.Phone = &phone
	}
	require.NoError(t, f.contacts.Create(contact))
	return contact
}

func (f *engineFixture) countContacts(t *testing.T) int {
	t.Helper()
	count, err := f.contacts.Count()
	require.NoError(t, err)
	return count
}

func (f *engineFixture) item(t *testing.T, eventID, email string) *models.ConfirmationItem {
	t.Helper()
	item, err := f.items.GetByKey(eventID, email)
	require.NoError(t, err)
	return item
}

func meeting(id, summary string, start time.Time, attendees ...models.Attendee) models.CalendarEvent {
	return models.CalendarEvent{
		ID:         id,
		Summary:    summary,
		Start:      start,
		End:        start.Add(time.Hour),
		OwnerEmail: testOwnerEmail,
		Attendees:  attendees,
	}
}

func accepted(email string) models.Attendee {
	return models.Attendee{Email: email, ResponseStatus: models.ResponseAccepted}
}

func owner() models.Attendee {
	return models.Attendee{Email: testOwnerEmail, ResponseStatus: models.ResponseAccepted, Self: true}
}
