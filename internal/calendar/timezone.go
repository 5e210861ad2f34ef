package calendar

import (
	"time"

	"github.com/emersion/go-ical"
)

// Outlook and Exchange feeds use Windows zone names in TZID
var windowsToIANA = map[string]string{
	"Pacific Standard Time":          "America/Los_Angeles",
	"Mountain Standard Time":         "America/Denver",
	"Central Standard Time":          "America/Chicago",
	"Central Standard Time (Mexico)": "America/Mexico_City",
	"Eastern Standard Time":          "America/New_York",
	"SA Pacific Standard Time":       "America/Bogota",
	"Argentina Standard Time":        "America/Argentina/Buenos_Aires",
	"E. South America Standard Time": "America/Sao_Paulo",
	"Pacific SA Standard Time":       "America/Santiago",
	"GMT Standard Time":              "Europe/London",
	"Romance Standard Time":          "Europe/Madrid",
	"Central Europe Standard Time":   "Europe/Budapest",
	"W. Europe Standard Time":        "Europe/Berlin",
	"UTC":                            "UTC",
}

// normalizeComponentTimezones rewrites Windows TZIDs on date properties to IANA names
func normalizeComponentTimezones(comp *ical.Component) {
	for _, name := range []string{ical.PropDateTimeStart, ical.PropDateTimeEnd, ical.PropRecurrenceID} {
		if prop := comp.Props.Get(name); prop != nil {
			normalizePropTimezone(prop)
		}
	}

	exdates := comp.Props[ical.PropExceptionDates]
	for i := range exdates {
		normalizePropTimezone(&exdates[i])
	}
}

func normalizePropTimezone(prop *ical.Prop) {
	if tzid := prop.Params.Get(ical.ParamTimezoneID); tzid != "" {
		if ianaName, ok := windowsToIANA[tzid]; ok {
			prop.Params.Set(ical.ParamTimezoneID, ianaName)
		}
	}
}

// propLocation returns the zone named by the TZID parameter, or fallback
func propLocation(prop *ical.Prop, fallback *time.Location) *time.Location {
	if tzid := prop.Params.Get(ical.ParamTimezoneID); tzid != "" {
		if loc, err := time.LoadLocation(tzid); err == nil {
			return loc
		}
	}
	return fallback
}
