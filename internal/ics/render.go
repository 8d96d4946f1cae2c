package ics

import (
	"fmt"
	"io"
	"strings"

	ical "github.com/arran4/golang-ical"

	"blockerday/internal/model"
)

const (
	// ProductID is the PRODID of every generated feed.
	ProductID = "-//Blocker.day//Blocker.day Calendar//EN"

	localLayout = "20060102T150405"
)

// Build assembles the VCALENDAR for cal: header, the optional VTIMEZONE and
// one VEVENT per busy block in generation order.
func Build(cal model.Calendar) *ical.Calendar {
	cfg := cal.Config

	out := ical.NewCalendar()
	out.SetProductId(ProductID)
	out.SetCalscale("GREGORIAN")
	out.SetMethod(ical.MethodPublish)
	out.SetXWRCalName(cfg.CalendarName)
	out.SetXWRTimezone(cfg.Timezone)

	if tz := Timezone(cfg.Timezone); tz != nil {
		out.Components = append(out.Components, tz)
	}

	for _, ev := range cal.Events {
		vevent := out.AddEvent(ev.UID)
		vevent.SetDtStampTime(ev.Stamp)
		setLocalTime(vevent, ical.ComponentPropertyDtStart, ev.Start.Format(localLayout), cfg.Timezone)
		setLocalTime(vevent, ical.ComponentPropertyDtEnd, ev.End.Format(localLayout), cfg.Timezone)
		vevent.SetSummary(ev.Summary)
		vevent.SetProperty(ical.ComponentProperty("TRANSP"), "OPAQUE")
		vevent.SetProperty(ical.ComponentPropertyStatus, "BUSY")
	}

	return out
}

// Write serializes cal as an iCalendar document to w.
func Write(w io.Writer, cal model.Calendar) error {
	if err := Build(cal).SerializeTo(w); err != nil {
		return fmt.Errorf("serialize calendar: %w", err)
	}
	return nil
}

// Render returns cal as an iCalendar document.
func Render(cal model.Calendar) (string, error) {
	var b strings.Builder
	if err := Write(&b, cal); err != nil {
		return "", err
	}
	return b.String(), nil
}

// setLocalTime writes a floating wall time qualified by TZID, which is kept
// even when no VTIMEZONE defines it.
func setLocalTime(ev *ical.VEvent, prop ical.ComponentProperty, value, tzid string) {
	ev.SetProperty(prop, value)
	if p := ev.GetProperty(prop); p != nil {
		p.ICalParameters = map[string][]string{"TZID": {tzid}}
	}
}
