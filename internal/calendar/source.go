// Package calendar reads meetings and their attendees from external calendars.
package calendar

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alimgiray/salesconsole/internal/models"
)

// EventSource returns the events starting inside [from, to)
type EventSource interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error)
}

// MemorySource is an EventSource backed by a slice, used for local runs and tests
type MemorySource struct {
	mu     sync.RWMutex
	events []models.CalendarEvent
	err    error
}

// NewMemorySource creates a MemorySource holding the given events
func NewMemorySource(events ...models.CalendarEvent) *MemorySource {
	s := &MemorySource{}
	s.SetEvents(events...)
	return s
}

// SetEvents replaces the calendar contents
func (s *MemorySource) SetEvents(events ...models.CalendarEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append([]models.CalendarEvent(nil), events...)
}

// SetError makes every subsequent ListEvents call fail with err (nil clears it)
func (s *MemorySource) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemorySource) ListEvents(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return nil, s.err
	}

	var events []models.CalendarEvent
	for _, event := range s.events {
		if inWindow(event.Start, from, to) {
			events = append(events, event)
		}
	}
	sortEvents(events)
	return events, nil
}

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func sortEvents(events []models.CalendarEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].ID < events[j].ID
	})
}
