package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestICSSourceListEvents(t *testing.T) {
	loc := mexicoCity(t)
	feed := icsFeed(
		"BEGIN:VEVENT",
		"UID:kickoff-1",
		"SUMMARY:Kickoff Call",
		"DTSTART;TZID=America/Mexico_City:20261020T100000",
		"ATTENDEE:mailto:ana@cliente.com",
		"END:VEVENT",
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(feed))
	}))
	defer server.Close()

	source := NewICSSource(server.URL, server.Client(), ParseOptions{Location: loc})
	from := time.Date(2026, 10, 18, 0, 0, 0, 0, loc)

	events, err := source.ListEvents(context.Background(), from, from.AddDate(0, 0, 22))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "kickoff-1", events[0].ID)
	assert.Equal(t, []string{"ana@cliente.com"}, events[0].AttendeeEmails())
}

func TestICSSourceErrors(t *testing.T) {
	loc := mexicoCity(t)
	from := time.Date(2026, 10, 18, 0, 0, 0, 0, loc)

	t.Run("Non-200 response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		source := NewICSSource(server.URL, server.Client(), ParseOptions{Location: loc})
		_, err := source.ListEvents(context.Background(), from, from.AddDate(0, 0, 22))
		assert.ErrorContains(t, err, "HTTP 500")
	})

	t.Run("HTML instead of calendar", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html><body>Sign in</body></html>"))
		}))
		defer server.Close()

		source := NewICSSource(server.URL, server.Client(), ParseOptions{Location: loc})
		_, err := source.ListEvents(context.Background(), from, from.AddDate(0, 0, 22))
		assert.ErrorContains(t, err, "HTML")
	})
}

func TestMemorySourceFiltersAndSorts(t *testing.T) {
	loc := mexicoCity(t)
	from := time.Date(2026, 10, 18, 0, 0, 0, 0, loc)

	source := NewMemorySource(
		testEvent("b", from.Add(48*time.Hour)),
		testEvent("a", from.Add(48*time.Hour)),
		testEvent("early", from.Add(-time.Hour)),
		testEvent("first", from.Add(time.Hour)),
	)

	events, err := source.ListEvents(context.Background(), from, from.AddDate(0, 0, 22))
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "first", events[0].ID)
	assert.Equal(t, "a", events[1].ID)
	assert.Equal(t, "b", events[2].ID)

	source.SetError(assert.AnError)
	_, err = source.ListEvents(context.Background(), from, from.AddDate(0, 0, 22))
	assert.ErrorIs(t, err, assert.AnError)
}
