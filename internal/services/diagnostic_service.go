package services

import (
	"context"
	"fmt"
	"time"

	"github.com/alimgiray/salesconsole/internal/calendar"
	"github.com/alimgiray/salesconsole/internal/models"
	"github.com/alimgiray/salesconsole/internal/repositories"
)

// BucketExcluded marks a passing pair whose meeting is outside the item window
const BucketExcluded = "excluded"

// DiagnosticContact describes how an email maps to a contact
type DiagnosticContact struct {
	Found       bool    `json:"found"`
	WouldCreate bool    `json:"would_create"`
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	DerivedName string  `json:"derived_name"`
	Stage       int     `json:"stage"`
	Source      string  `json:"source"`
	Phone       *string `json:"phone"`
	HasPhone    bool    `json:"has_phone"`
}

// DiagnosticEvent is the full filter report for one event listing the email
type DiagnosticEvent struct {
	EventID       string          `json:"event_id"`
	Summary       string          `json:"summary"`
	StartDatetime time.Time       `json:"start_datetime"`
	DayOffset     int             `json:"day_offset"`
	Bucket        string          `json:"bucket"`
	OverallPass   bool            `json:"overall_pass"`
	SkipReason    string          `json:"skip_reason,omitempty"`
	SkipFilter    string          `json:"skip_filter,omitempty"`
	Filters       []FilterOutcome `json:"filters"`
}

// DiagnosticReport explains why an email does or does not get confirmation items
type DiagnosticReport struct {
	Email                string            `json:"email"`
	Contact              DiagnosticContact `json:"contact"`
	Events               []DiagnosticEvent `json:"events"`
	EventsWithEmail      int               `json:"events_with_email"`
	TotalEventsScanned   int               `json:"total_events_scanned"`
	ClassificationsCount int               `json:"classifications_count"`
	WindowStart          time.Time         `json:"window_start"`
	WindowEnd            time.Time         `json:"window_end"`
}

// DiagnosticService replays the generation pipeline for one email without writing anything
type DiagnosticService struct {
	source   calendar.EventSource
	pipeline *EligibilityPipeline
	resolver *ContactResolver
	settings EngineSettings
	now      func() time.Time
}

func NewDiagnosticService(
	source calendar.EventSource,
	pipeline *EligibilityPipeline,
	phones *PhoneNormalizer,
	contacts *repositories.ContactRepository,
	settings EngineSettings,
) *DiagnosticService {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.ScanDays <= 0 {
		settings.ScanDays = MaxUpcomingDayOffset
	}

	return &DiagnosticService{
		source:   source,
		pipeline: pipeline,
		resolver: NewContactResolver(contacts, phones),
		settings: settings,
		now:      time.Now,
	}
}

// SetClock replaces the time source, for tests and replays
func (s *DiagnosticService) SetClock(now func() time.Time) {
	s.now = now
}

// Debug runs every filter against every scanned event that lists email
func (s *DiagnosticService) Debug(ctx context.Context, email string) (*DiagnosticReport, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	now := s.now()
	from, to := ScanWindow(now, s.settings.Location, s.settings.ScanDays)

	events, err := s.source.ListEvents(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: list calendar events: %v", ErrSourceUnavailable, err)
	}

	resolution, err := s.resolver.DryResolve(email)
	if err != nil {
		return nil, err
	}

	report := &DiagnosticReport{
		Email:              email,
		Contact:            diagnosticContact(email, resolution),
		Events:             []DiagnosticEvent{},
		TotalEventsScanned: len(events),
		WindowStart:        from,
		WindowEnd:          to,
	}

	for i := range events {
		event := &events[i]
		if !event.HasAttendee(email) {
			continue
		}
		report.EventsWithEmail++

		result := s.pipeline.Explain(event, email)
		offset := DayOffset(event.Start, now, s.settings.Location)

		entry := DiagnosticEvent{
			EventID:       event.ID,
			Summary:       event.Summary,
			StartDatetime: event.Start.In(s.settings.Location),
			DayOffset:     offset,
			OverallPass:   result.OverallPass,
			SkipReason:    result.SkipReason,
			SkipFilter:    result.SkipFilter,
			Filters:       result.Filters,
		}

		if result.OverallPass {
			if bucket, ok := ClassifyBucket(event.Start, resolution.HasPhone, now, s.settings.Location); ok {
				entry.Bucket = string(bucket)
				report.ClassificationsCount++
			} else {
				entry.Bucket = BucketExcluded
			}
		}

		report.Events = append(report.Events, entry)
	}

	return report, nil
}

func diagnosticContact(email string, resolution *ContactResolution) DiagnosticContact {
	contact := resolution.Contact
	return DiagnosticContact{
		Found:       !resolution.Created,
		WouldCreate: resolution.Created,
		ID:          persistedID(contact, resolution.Created),
		Name:        contact.Name,
		DerivedName: DeriveDisplayName(email),
		Stage:       contact.Stage,
		Source:      contact.Source,
		Phone:       contact.Phone,
		HasPhone:    resolution.HasPhone,
	}
}

func persistedID(contact *models.Contact, wouldCreate bool) string {
	if wouldCreate {
		return ""
	}
	return contact.ID
}
