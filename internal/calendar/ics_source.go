package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alimgiray/salesconsole/internal/models"
	"github.com/alimgiray/salesconsole/pkg/logger"
	"github.com/emersion/go-ical"
	"github.com/sirupsen/logrus"
)

// ICSSource reads events from an iCalendar feed published over HTTP
type ICSSource struct {
	url        string
	httpClient *http.Client
	opts       ParseOptions
}

// NewICSSource creates a feed reader; a nil client gets a 30 second timeout client
func NewICSSource(url string, httpClient *http.Client, opts ParseOptions) *ICSSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &ICSSource{
		url:        url,
		httpClient: httpClient,
		opts:       opts,
	}
}

func (s *ICSSource) ListEvents(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build ICS request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ICS feed returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	events, err := ParseFeed(string(body), from, to, s.opts)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"source": "ics",
		"events": len(events),
	}).Debug("Fetched calendar feed")

	return events, nil
}

// ParseFeed decodes every VCALENDAR in an ICS document
func ParseFeed(body string, from, to time.Time, opts ParseOptions) ([]models.CalendarEvent, error) {
	if err := validateICalFormat(body); err != nil {
		return nil, err
	}

	decoder := ical.NewDecoder(strings.NewReader(body))
	var events []models.CalendarEvent
	for {
		cal, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}
		events = append(events, ParseCalendar(cal, from, to, opts)...)
	}

	sortEvents(events)
	return events, nil
}

func validateICalFormat(body string) error {
	trimmed := strings.TrimSpace(body)
	upper := strings.ToUpper(trimmed)
	if strings.HasPrefix(upper, "<!DOCTYPE") || strings.HasPrefix(upper, "<HTML") {
		return fmt.Errorf("received HTML instead of iCalendar data - check if URL requires authentication")
	}

	if !strings.HasPrefix(trimmed, "BEGIN:VCALENDAR") {
		preview := trimmed
		if len(preview) > 100 {
			preview = preview[:100]
		}
		return fmt.Errorf("invalid iCalendar format - expected BEGIN:VCALENDAR, got: %s", preview)
	}

	return nil
}
