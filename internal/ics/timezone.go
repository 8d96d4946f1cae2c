package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
)

const onsetLayout = "20060102T150405"

// Observance is one STANDARD or DAYLIGHT rule of a fixed-rule zone.
type Observance struct {
	// Kind is "STANDARD" or "DAYLIGHT".
	Kind string
	// Name is the TZNAME abbreviation, e.g. "EDT".
	Name string
	// OffsetFrom / OffsetTo are seconds east of UTC.
	OffsetFrom int
	OffsetTo   int
	// Onset is the first local wall time the rule applies, expressed in
	// OffsetFrom.
	Onset time.Time
	// RRule repeats the onset.
	RRule string
}

// FixedZone is a timezone defined by a hardcoded set of yearly rules rather
// than a tz database entry.
type FixedZone struct {
	ID          string
	Observances []Observance
}

var fixedZones = map[string]FixedZone{
	"America/Toronto": {
		ID: "America/Toronto",
		Observances: []Observance{
			{
				Kind:       "DAYLIGHT",
				Name:       "EDT",
				OffsetFrom: -5 * 3600,
				OffsetTo:   -4 * 3600,
				Onset:      time.Date(1970, 3, 8, 2, 0, 0, 0, time.UTC),
				RRule:      "FREQ=YEARLY;BYMONTH=3;BYDAY=2SU",
			},
			{
				Kind:       "STANDARD",
				Name:       "EST",
				OffsetFrom: -4 * 3600,
				OffsetTo:   -5 * 3600,
				Onset:      time.Date(1970, 11, 1, 2, 0, 0, 0, time.UTC),
				RRule:      "FREQ=YEARLY;BYMONTH=11;BYDAY=1SU",
			},
		},
	},
}

// LookupFixedZone returns the rule set for tzid. Only America/Toronto is
// known; every other id reports false and gets no embedded rules.
func LookupFixedZone(tzid string) (FixedZone, bool) {
	z, ok := fixedZones[tzid]
	return z, ok
}

// Offset reports the abbreviation and UTC offset (seconds east) in effect at
// the floating wall time local. Wall times inside a spring-forward gap
// resolve to the new offset, ambiguous fall-back times to the old one.
func (z FixedZone) Offset(local time.Time) (string, int, error) {
	wall := floating(local)

	var (
		current *Observance
		latest  time.Time
	)
	for i := range z.Observances {
		o := &z.Observances[i]
		r, err := rrule.StrToRRule(o.RRule)
		if err != nil {
			return "", 0, fmt.Errorf("zone %s: %s rule: %w", z.ID, o.Kind, err)
		}
		r.DTStart(o.Onset)

		at := r.Before(wall, true)
		if at.IsZero() {
			continue
		}
		if current == nil || at.After(latest) {
			current, latest = o, at
		}
	}

	if current != nil {
		return current.Name, current.OffsetTo, nil
	}
	// Before the first onset standard time applies.
	for _, o := range z.Observances {
		if o.Kind == "STANDARD" {
			return o.Name, o.OffsetTo, nil
		}
	}
	return "", 0, fmt.Errorf("zone %s: no standard observance", z.ID)
}

// UTC converts the floating wall time local to an instant.
func (z FixedZone) UTC(local time.Time) (time.Time, string, error) {
	name, offset, err := z.Offset(local)
	if err != nil {
		return time.Time{}, "", err
	}
	return floating(local).Add(-time.Duration(offset) * time.Second), name, nil
}

// Timezone builds the VTIMEZONE component declaring tzid, or nil when tzid
// has no fixed rules. A nil result still leaves TZID referenced by events.
func Timezone(tzid string) *ical.VTimezone {
	z, ok := LookupFixedZone(tzid)
	if !ok {
		return nil
	}

	tz := &ical.VTimezone{}
	tz.SetProperty(ical.ComponentProperty("TZID"), z.ID)
	tz.SetProperty(ical.ComponentProperty("X-LIC-LOCATION"), z.ID)

	for _, o := range z.Observances {
		var base *ical.ComponentBase
		switch o.Kind {
		case "DAYLIGHT":
			d := &ical.Daylight{}
			tz.Components = append(tz.Components, d)
			base = &d.ComponentBase
		default:
			s := &ical.Standard{}
			tz.Components = append(tz.Components, s)
			base = &s.ComponentBase
		}
		base.SetProperty(ical.ComponentProperty("TZOFFSETFROM"), formatOffset(o.OffsetFrom))
		base.SetProperty(ical.ComponentProperty("TZOFFSETTO"), formatOffset(o.OffsetTo))
		base.SetProperty(ical.ComponentProperty("TZNAME"), o.Name)
		base.SetProperty(ical.ComponentProperty("DTSTART"), o.Onset.Format(onsetLayout))
		base.SetProperty(ical.ComponentProperty("RRULE"), o.RRule)
	}
	return tz
}

// formatOffset renders seconds east of UTC as ±hhmm.
func formatOffset(sec int) string {
	sign := '+'
	if sec < 0 {
		sign = '-'
		sec = -sec
	}
	return fmt.Sprintf("%c%02d%02d", sign, sec/3600, sec%3600/60)
}

// floating strips the location, keeping the wall clock fields.
func floating(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
