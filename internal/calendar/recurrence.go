package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/alimgiray/salesconsole/internal/models"
	"github.com/teambition/rrule-go"
)

// expandRecurrence turns a recurring master event into the instances starting inside [from, to)
func expandRecurrence(master models.CalendarEvent, rule string, exdates []time.Time, from, to time.Time) ([]models.CalendarEvent, error) {
	option, err := rrule.StrToROption(strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:"))
	if err != nil {
		return nil, fmt.Errorf("parse RRULE %q: %w", rule, err)
	}
	option.Dtstart = master.Start

	recurrence, err := rrule.NewRRule(*option)
	if err != nil {
		return nil, fmt.Errorf("build RRULE %q: %w", rule, err)
	}

	set := &rrule.Set{}
	set.RRule(recurrence)
	for _, exdate := range exdates {
		set.ExDate(exdate)
	}

	duration := master.End.Sub(master.Start)
	var instances []models.CalendarEvent
	for _, start := range set.Between(from, to, true) {
		if !start.Before(to) {
			continue
		}
		instance := master
		instance.ID = instanceID(master.ID, start)
		instance.Start = start
		instance.End = start.Add(duration)
		instance.Attendees = append([]models.Attendee(nil), master.Attendees...)
		instances = append(instances, instance)
	}

	return instances, nil
}
