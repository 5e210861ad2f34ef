package calendar

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/alimgiray/salesconsole/internal/models"
	"github.com/alimgiray/salesconsole/pkg/logger"
	"github.com/emersion/go-ical"
	"github.com/sirupsen/logrus"
)

const instanceIDFormat = "20060102T150405Z"

var cancelledTitle = regexp.MustCompile(`[^a-z0-9]+`)

// ParseOptions controls how raw iCalendar data becomes CalendarEvents
type ParseOptions struct {
	// OwnerEmail is the address of the calendar owner; attendees matching it are "self".
	// When empty no attendee is marked as self.
	OwnerEmail string
	// Location is used for floating times and all-day dates
	Location *time.Location
}

func (o ParseOptions) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// ParseCalendar extracts every VEVENT (expanding recurrences) that starts inside [from, to)
func ParseCalendar(cal *ical.Calendar, from, to time.Time, opts ParseOptions) []models.CalendarEvent {
	var (
		masters   []masterEvent
		overrides = make(map[string]models.CalendarEvent)
		events    []models.CalendarEvent
	)

	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		normalizeComponentTimezones(comp)

		event, err := parseEvent(comp, opts)
		if err != nil {
			logger.WithError(err).Debug("Skipping unparsable calendar event")
			continue
		}

		// A RECURRENCE-ID marks a modified instance of a recurring series
		if recurrenceID := comp.Props.Get(ical.PropRecurrenceID); recurrenceID != nil {
			if t, err := recurrenceID.DateTime(propLocation(recurrenceID, opts.location())); err == nil {
				event.ID = instanceID(event.ID, t)
			}
			overrides[event.ID] = event
			continue
		}

		if rule := comp.Props.Get(ical.PropRecurrenceRule); rule != nil {
			masters = append(masters, masterEvent{
				event:   event,
				rule:    rule.Value,
				exdates: parseExceptionDates(comp, opts.location()),
			})
			continue
		}

		events = append(events, event)
	}

	for _, master := range masters {
		instances, err := expandRecurrence(master.event, master.rule, master.exdates, from, to)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"event_id": master.event.ID,
				"rrule":    master.rule,
			}).WithError(err).Warn("Failed to expand recurring event")
			continue
		}
		for _, instance := range instances {
			if _, overridden := overrides[instance.ID]; overridden {
				continue
			}
			events = append(events, instance)
		}
	}

	for _, override := range overrides {
		events = append(events, override)
	}

	seen := make(map[string]bool, len(events))
	var result []models.CalendarEvent
	for _, event := range events {
		if !inWindow(event.Start, from, to) || seen[event.ID] {
			continue
		}
		seen[event.ID] = true
		result = append(result, event)
	}

	sortEvents(result)
	return result
}

type masterEvent struct {
	event   models.CalendarEvent
	rule    string
	exdates []time.Time
}

func parseEvent(comp *ical.Component, opts ParseOptions) (models.CalendarEvent, error) {
	event := models.CalendarEvent{}
	loc := opts.location()

	if prop := comp.Props.Get(ical.PropUID); prop != nil {
		event.ID = strings.TrimSpace(prop.Value)
	}

	if prop := comp.Props.Get(ical.PropSummary); prop != nil {
		event.Summary = strings.TrimSpace(prop.Value)
	}

	start := comp.Props.Get(ical.PropDateTimeStart)
	if start == nil {
		return event, fmt.Errorf("event %q has no DTSTART", event.ID)
	}
	startTime, err := start.DateTime(propLocation(start, loc))
	if err != nil {
		return event, fmt.Errorf("event %q: parse DTSTART: %w", event.ID, err)
	}
	event.Start = startTime
	event.AllDay = isDateValue(start)

	if end := comp.Props.Get(ical.PropDateTimeEnd); end != nil {
		if t, err := end.DateTime(propLocation(end, loc)); err == nil {
			event.End = t
		}
	}
	if event.End.IsZero() {
		event.End = event.Start
		if event.AllDay {
			event.End = event.Start.AddDate(0, 0, 1)
		}
	}

	if prop := comp.Props.Get(ical.PropStatus); prop != nil {
		event.Cancelled = strings.EqualFold(strings.TrimSpace(prop.Value), "CANCELLED")
	}
	// Some providers only rename the meeting instead of setting STATUS
	if !event.Cancelled && isCancelledTitle(event.Summary) {
		event.Cancelled = true
	}

	// Only the configured owner is self, never the ORGANIZER
	event.OwnerEmail = models.NormalizeEmail(opts.OwnerEmail)

	for _, prop := range comp.Props.Values(ical.PropAttendee) {
		attendee := parseAttendee(prop)
		if attendee.Email == "" {
			continue
		}
		attendee.Self = event.OwnerEmail != "" && attendee.Email == event.OwnerEmail
		event.Attendees = append(event.Attendees, attendee)
	}

	// Stable fallback id for feeds without UID
	if event.ID == "" {
		event.ID = event.Start.UTC().Format(instanceIDFormat) + "-" + event.Summary
	}

	return event, nil
}

func parseAttendee(prop ical.Prop) models.Attendee {
	email := models.NormalizeEmail(prop.Value)
	if override := prop.Params.Get("EMAIL"); override != "" {
		email = models.NormalizeEmail(override)
	}

	return models.Attendee{
		Email:          email,
		Name:           strings.Trim(prop.Params.Get(ical.ParamCommonName), `"`),
		ResponseStatus: parseParticipationStatus(prop.Params.Get(ical.ParamParticipationStatus)),
	}
}

func parseParticipationStatus(partstat string) models.ResponseStatus {
	switch strings.ToUpper(strings.TrimSpace(partstat)) {
	case "ACCEPTED":
		return models.ResponseAccepted
	case "DECLINED":
		return models.ResponseDeclined
	case "TENTATIVE":
		return models.ResponseTentative
	default:
		return models.ResponseNeedsAction
	}
}

func isDateValue(prop *ical.Prop) bool {
	if strings.EqualFold(prop.Params.Get(ical.ParamValue), string(ical.ValueDate)) {
		return true
	}
	return len(strings.TrimSpace(prop.Value)) == len("20060102")
}

func isCancelledTitle(title string) bool {
	clean := cancelledTitle.ReplaceAllString(strings.ToLower(title), "")
	return strings.HasPrefix(clean, "canceled") ||
		strings.HasPrefix(clean, "cancelled") ||
		strings.HasPrefix(clean, "cancelado") ||
		strings.HasPrefix(clean, "cancelada")
}

// parseExceptionDates reads EXDATE properties, which may hold comma separated lists
func parseExceptionDates(comp *ical.Component, fallback *time.Location) []time.Time {
	var dates []time.Time
	for _, prop := range comp.Props.Values(ical.PropExceptionDates) {
		loc := propLocation(&prop, fallback)
		for _, value := range strings.Split(prop.Value, ",") {
			if t, ok := parseDateValue(strings.TrimSpace(value), loc); ok {
				dates = append(dates, t)
			}
		}
	}
	return dates
}

func parseDateValue(value string, loc *time.Location) (time.Time, bool) {
	if strings.HasSuffix(value, "Z") {
		t, err := time.Parse(instanceIDFormat, value)
		return t, err == nil
	}
	for _, layout := range []string{"20060102T150405", "20060102"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func instanceID(uid string, start time.Time) string {
	return uid + "_" + start.UTC().Format(instanceIDFormat)
}
