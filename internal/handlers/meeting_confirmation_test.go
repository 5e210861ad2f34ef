package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alimgiray/salesconsole/internal/calendar"
	"github.com/alimgiray/salesconsole/internal/models"
	"github.com/alimgiray/salesconsole/internal/repositories"
	"github.com/alimgiray/salesconsole/internal/services"
	"github.com/alimgiray/salesconsole/pkg/database"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router   *gin.Engine
	source   *calendar.MemorySource
	contacts *repositories.ContactRepository
	now      time.Time
	loc      *time.Location
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)

	db, err := database.Open(filepath.Join(t.TempDir(), "handlers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := &testServer{
		source:   calendar.NewMemorySource(),
		contacts: repositories.NewContactRepository(db),
		now:      time.Date(2026, 10, 18, 9, 0, 0, 0, loc),
		loc:      loc,
	}

	settings := services.EngineSettings{Location: loc, ScanDays: 21, SnoozeDays: 1, Concurrency: 2}
	pipeline := services.NewEligibilityPipeline(services.EligibilityOptions{
		OwnerEmail:      "owner@acme.com",
		InternalDomains: []string{"acme.com"},
	})
	phones := services.NewPhoneNormalizer("52", 10)

	confirmations := services.NewConfirmationService(s.source, pipeline, phones,
		repositories.NewConfirmationItemRepository(db), s.contacts,
		repositories.NewGenerationRunRepository(db), settings)
	diagnostics := services.NewDiagnosticService(s.source, pipeline, phones, s.contacts, settings)
	clock := func() time.Time { return s.now }
	confirmations.SetClock(clock)
	diagnostics.SetClock(clock)

	handler := NewMeetingConfirmationHandler(confirmations, diagnostics, services.NewExportService(confirmations))

	s.router = gin.New()
	s.router.GET("/health", NewHealthHandler().Health)
	handler.RegisterRoutes(s.router.Group("/meetings-confirmations"))
	s.router.NoRoute(NewNotFoundHandler().NotFound)

	return s
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) seed(t *testing.T) {
	t.Helper()

	phone := "+525511112222"
	contact := models.NewContact("Ana López", "ana@cliente.com")
	contact.Phone = &phone
	require.NoError(t, s.contacts.Create(contact))

	y, m, d := s.now.Date()
	attendees := []models.Attendee{
		{Email: "owner@acme.com", ResponseStatus: models.ResponseAccepted, Self: true},
		{Email: "ana@cliente.com", ResponseStatus: models.ResponseAccepted},
		{Email: "nuevo@prospecto.com", ResponseStatus: models.ResponseAccepted},
	}
	s.source.SetEvents(models.CalendarEvent{
		ID:         "evt-1",
		Summary:    "Kickoff",
		Start:      time.Date(y, m, d+1, 10, 0, 0, 0, s.loc),
		End:        time.Date(y, m, d+1, 11, 0, 0, 0, s.loc),
		OwnerEmail: "owner@acme.com",
		Attendees:  attendees,
	})
}

type itemsResponse struct {
	Today    []models.ConfirmationItem `json:"today"`
	Tomorrow []models.ConfirmationItem `json:"tomorrow"`
	Upcoming []models.ConfirmationItem `json:"upcoming"`
	NoPhone  []models.ConfirmationItem `json:"no_phone"`
}

func (r itemsResponse) total() int {
	return len(r.Today) + len(r.Tomorrow) + len(r.Upcoming) + len(r.NoPhone)
}

func (s *testServer) board(t *testing.T) itemsResponse {
	t.Helper()
	w := s.do(t, "GET", "/meetings-confirmations/items", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var keys map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &keys))
	assert.Len(t, keys, 4)
	for _, key := range []string{"today", "tomorrow", "upcoming", "no_phone"} {
		assert.Contains(t, keys, key)
	}

	var resp itemsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthAndNotFound(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = s.do(t, "GET", "/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "/nope")
}

func TestGenerateAndOperatorFlow(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	w := s.do(t, "POST", "/meetings-confirmations/generate", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var summary services.GenerationSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.TotalContactsCreated)
	assert.Equal(t, 2, summary.ItemsUpserted)

	board := s.board(t)
	assert.Equal(t, 2, board.total())
	require.Len(t, board.Tomorrow, 1)
	require.Len(t, board.NoPhone, 1)
	withPhone := board.Tomorrow[0]
	noPhone := board.NoPhone[0]

	t.Run("Copy", func(t *testing.T) {
		w := s.do(t, "POST", "/meetings-confirmations/items/"+withPhone.ID+"/copy", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"copied"`)
	})

	t.Run("Snooze copied item conflicts", func(t *testing.T) {
		w := s.do(t, "POST", "/meetings-confirmations/items/"+withPhone.ID+"/snooze", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Reset then snooze", func(t *testing.T) {
		w := s.do(t, "POST", "/meetings-confirmations/items/"+withPhone.ID+"/reset", nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = s.do(t, "POST", "/meetings-confirmations/items/"+withPhone.ID+"/snooze", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			SnoozeUntil string `json:"snooze_until"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "2026-10-19", resp.SnoozeUntil)

		board := s.board(t)
		assert.Empty(t, board.Tomorrow, "snoozed items stay off the board")
	})

	t.Run("Invalid phone", func(t *testing.T) {
		w := s.do(t, "POST", "/meetings-confirmations/items/"+noPhone.ID+"/add-phone", gin.H{"phone": "123"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Missing phone", func(t *testing.T) {
		w := s.do(t, "POST", "/meetings-confirmations/items/"+noPhone.ID+"/add-phone", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Add phone moves item out of no_phone", func(t *testing.T) {
		w := s.do(t, "POST", "/meetings-confirmations/items/"+noPhone.ID+"/add-phone", gin.H{"phone": "55 3333 4444"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "wa.me/5215533334444")

		board := s.board(t)
		assert.Empty(t, board.NoPhone)
		require.Len(t, board.Tomorrow, 1)
		assert.Equal(t, noPhone.ID, board.Tomorrow[0].ID)
	})

	t.Run("Unknown item", func(t *testing.T) {
		w := s.do(t, "POST", "/meetings-confirmations/items/does-not-exist/copy", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Bulk copy reports each id", func(t *testing.T) {
		w := s.do(t, "POST", "/meetings-confirmations/items/copy-bulk",
			gin.H{"item_ids": []string{noPhone.ID, "does-not-exist"}})
		require.Equal(t, http.StatusOK, w.Code)

		var result services.BulkCopyResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, 1, result.Copied)
		require.Len(t, result.Results, 2)
		assert.True(t, result.Results[0].OK)
		assert.False(t, result.Results[1].OK)
	})

	t.Run("Bulk copy requires ids", func(t *testing.T) {
		w := s.do(t, "POST", "/meetings-confirmations/items/copy-bulk", gin.H{"item_ids": []string{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Runs", func(t *testing.T) {
		w := s.do(t, "GET", "/meetings-confirmations/runs?limit=5", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"completed"`)

		w = s.do(t, "GET", "/meetings-confirmations/runs?limit=abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Export", func(t *testing.T) {
		w := s.do(t, "GET", "/meetings-confirmations/export", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "confirmaciones-2026-10-18.xlsx")
		assert.NotZero(t, w.Body.Len())
	})
}

func TestDebugEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	w := s.do(t, "GET", "/meetings-confirmations/debug", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "GET", "/meetings-confirmations/debug?email=nuevo@prospecto.com", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report services.DiagnosticReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.EventsWithEmail)
	assert.True(t, report.Contact.WouldCreate)
	require.Len(t, report.Events, 1)
	assert.True(t, report.Events[0].OverallPass)
}

func TestGenerateSourceUnavailable(t *testing.T) {
	s := newTestServer(t)
	s.source.SetError(assert.AnError)

	w := s.do(t, "POST", "/meetings-confirmations/generate", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
