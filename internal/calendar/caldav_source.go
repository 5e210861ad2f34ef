package calendar

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/alimgiray/salesconsole/internal/models"
	"github.com/alimgiray/salesconsole/pkg/logger"
	"github.com/emersion/go-webdav/caldav"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// CalDAVOptions configures a CalDAV calendar connection
type CalDAVOptions struct {
	URL      string
	Username string
	Password string
	// BearerToken switches authentication from basic auth to OAuth2 bearer tokens
	BearerToken string
	// CalendarPath selects a calendar; when empty the first calendar of the principal is used
	CalendarPath string
	Parse        ParseOptions
}

// CalDAVSource reads events from a CalDAV server
type CalDAVSource struct {
	opts CalDAVOptions

	mu           sync.Mutex
	client       *caldav.Client
	calendarPath string
}

func NewCalDAVSource(opts CalDAVOptions) *CalDAVSource {
	return &CalDAVSource{
		opts:         opts,
		calendarPath: opts.CalendarPath,
	}
}

// IsConfigured returns true if the source has an endpoint and credentials
func (s *CalDAVSource) IsConfigured() bool {
	return s.opts.URL != "" && (s.opts.BearerToken != "" || (s.opts.Username != "" && s.opts.Password != ""))
}

func (s *CalDAVSource) ListEvents(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	client, calendarPath, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{
				{
					Name:  "VEVENT",
					Start: from,
					End:   to,
				},
			},
		},
	}

	objects, err := client.QueryCalendar(ctx, calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}

	var events []models.CalendarEvent
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		events = append(events, ParseCalendar(obj.Data, from, to, s.opts.Parse)...)
	}
	sortEvents(events)

	logger.WithFields(logrus.Fields{
		"source":   "caldav",
		"calendar": calendarPath,
		"objects":  len(objects),
		"events":   len(events),
	}).Debug("Queried CalDAV calendar")

	return events, nil
}

// connect establishes the CalDAV client and resolves the calendar path once
func (s *CalDAVSource) connect(ctx context.Context) (*caldav.Client, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.IsConfigured() {
		return nil, "", fmt.Errorf("CalDAV not configured")
	}

	if s.client == nil {
		client, err := caldav.NewClient(s.httpClient(ctx), s.opts.URL)
		if err != nil {
			return nil, "", fmt.Errorf("connect to CalDAV: %w", err)
		}
		s.client = client
	}

	if s.calendarPath == "" {
		path, err := s.discoverCalendar(ctx)
		if err != nil {
			return nil, "", err
		}
		s.calendarPath = path
	}

	return s.client, s.calendarPath, nil
}

func (s *CalDAVSource) httpClient(ctx context.Context) *http.Client {
	if s.opts.BearerToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: s.opts.BearerToken})
		client := oauth2.NewClient(context.WithoutCancel(ctx), ts)
		client.Timeout = 30 * time.Second
		return client
	}

	return &http.Client{
		Transport: &basicAuthTransport{
			username: s.opts.Username,
			password: s.opts.Password,
		},
		Timeout: 30 * time.Second,
	}
}

func (s *CalDAVSource) discoverCalendar(ctx context.Context) (string, error) {
	principal, err := s.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := s.client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("find home set: %w", err)
	}

	calendars, err := s.client.FindCalendars(ctx, homeSet)
	if err != nil {
		return "", fmt.Errorf("find calendars: %w", err)
	}
	if len(calendars) == 0 {
		return "", fmt.Errorf("no calendars found under %s", homeSet)
	}

	logger.WithFields(logrus.Fields{
		"calendar": calendars[0].Path,
		"name":     calendars[0].Name,
	}).Info("Using first discovered CalDAV calendar")

	return calendars[0].Path, nil
}

// basicAuthTransport adds Basic Auth to HTTP requests
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}
