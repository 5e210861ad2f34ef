package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/alimgiray/salesconsole/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugAgreesWithGenerate(t *testing.T) {
	f := newEngineFixture(t)

	cancelled := meeting("evt-cancelled", "Cancelada", f.at(2, 10, 0), accepted("external@client.com"))
	cancelled.Cancelled = true
	allDay := meeting("evt-allday", "Offsite", f.at(2, 0, 0), accepted("external@client.com"))
	allDay.AllDay = true
	declined := meeting("evt-declined", "Demo", f.at(3, 10, 0),
		models.Attendee{Email: "external@client.com", ResponseStatus: models.ResponseDeclined})

	f.source.SetEvents(
		meeting("evt-ok", "Kickoff", f.at(1, 10, 0), owner(), accepted("external@client.com"), accepted("luis@acme.com")),
		cancelled,
		allDay,
		declined,
		meeting("evt-far", "Lejana", f.at(25, 10, 0), accepted("external@client.com")),
		meeting("evt-other", "Otra", f.at(1, 11, 0), accepted("someone@else.com")),
	)

	report, err := f.diagnostics.Debug(context.Background(), "External@Client.com")
	require.NoError(t, err)

	assert.Equal(t, "external@client.com", report.Email)
	assert.Equal(t, 6, report.TotalEventsScanned)
	assert.Equal(t, 5, report.EventsWithEmail)
	assert.Equal(t, 1, report.ClassificationsCount)
	assert.False(t, report.Contact.Found)
	assert.True(t, report.Contact.WouldCreate)
	assert.Equal(t, "External", report.Contact.DerivedName)
	assert.Equal(t, models.ContactSourceCalendarImport, report.Contact.Source)
	assert.Equal(t, models.ContactStageInitial, report.Contact.Stage)
	assert.False(t, report.Contact.HasPhone)
	assert.Equal(t, 0, f.countContacts(t), "debug never writes")

	byID := make(map[string]DiagnosticEvent)
	for _, event := range report.Events {
		assert.Len(t, event.Filters, 6, "diagnostics run every filter")
		byID[event.EventID] = event
	}

	assert.Equal(t, string(models.BucketNoPhone), byID["evt-ok"].Bucket)
	assert.Equal(t, 1, byID["evt-ok"].DayOffset)
	assert.Equal(t, FilterEventNotCancelled, byID["evt-cancelled"].SkipFilter)
	assert.Equal(t, FilterNotAllDay, byID["evt-allday"].SkipFilter)
	assert.Equal(t, FilterNotDeclined, byID["evt-declined"].SkipFilter)
	assert.Equal(t, BucketExcluded, byID["evt-far"].Bucket)
	assert.True(t, byID["evt-far"].OverallPass)
	assert.Empty(t, byID["evt-declined"].Bucket)

	summary, err := f.service.Generate(context.Background(), models.RunTriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SkippedByFilter[FilterEventNotCancelled])
	assert.Equal(t, 1, summary.SkippedByFilter[FilterNotAllDay])
	assert.Equal(t, 1, summary.SkippedByFilter[FilterNotDeclined])
	assert.Equal(t, 1, summary.SkippedByFilter[FilterNotInternalDomain])
	assert.Equal(t, 1, summary.SkippedByFilter[FilterNotSelf])

	for _, event := range report.Events {
		production := f.service.pipeline.Evaluate(findEvent(t, f, event.EventID), report.Email)
		assert.Equal(t, event.OverallPass, production.OverallPass, event.EventID)
		assert.Equal(t, event.SkipReason, production.SkipReason, event.EventID)

		item, err := f.items.GetByKey(event.EventID, report.Email)
		if event.OverallPass && event.Bucket != BucketExcluded {
			require.NoError(t, err, event.EventID)
			assert.Equal(t, event.Bucket, string(item.Bucket), event.EventID)
		} else {
			assert.ErrorIs(t, err, sql.ErrNoRows, event.EventID)
		}
	}

	after, err := f.diagnostics.Debug(context.Background(), "external@client.com")
	require.NoError(t, err)
	assert.True(t, after.Contact.Found)
	assert.NotEmpty(t, after.Contact.ID)
}

func TestDebugInternalAttendee(t *testing.T) {
	f := newEngineFixture(t)
	f.source.SetEvents(meeting("evt-1", "Interna", f.at(1, 10, 0), accepted("luis@ventas.acme.com")))

	report, err := f.diagnostics.Debug(context.Background(), "luis@ventas.acme.com")
	require.NoError(t, err)
	require.Len(t, report.Events, 1)
	assert.False(t, report.Events[0].OverallPass)
	assert.Equal(t, FilterNotInternalDomain, report.Events[0].SkipFilter)
	assert.Equal(t, 0, report.ClassificationsCount)
}

func TestDebugErrors(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.diagnostics.Debug(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	f.source.SetError(errors.New("timeout"))
	_, err = f.diagnostics.Debug(context.Background(), "ana@cliente.com")
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func findEvent(t *testing.T, f *engineFixture, id string) *models.CalendarEvent {
	t.Helper()
	from, to := ScanWindow(f.now, f.loc, 30)
	events, err := f.source.ListEvents(context.Background(), from, to)
	require.NoError(t, err)
	for i := range events {
		if events[i].ID == id {
			return &events[i]
		}
	}
	t.Fatalf("event %s not found", id)
	return nil
}
