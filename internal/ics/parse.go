package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	goical "github.com/emersion/go-ical"
)

// ParsedEvent is a VEVENT read back from a feed.
type ParsedEvent struct {
	UID          string
	Summary      string
	Status       string
	Transparency string

	// StartTZ / EndTZ are the TZID parameters of DTSTART / DTEND.
	StartTZ string
	EndTZ   string
	// Start / End are floating wall times (location UTC).
	Start time.Time
	End   time.Time
	Stamp time.Time
}

// ParsedFeed is the calendar-level view of a parsed feed.
type ParsedFeed struct {
	Name     string
	Timezone string
	// TimezoneIDs lists the TZIDs of embedded VTIMEZONE components.
	TimezoneIDs []string
	Events      []ParsedEvent
}

// ParseFeed decodes an iCalendar document with an independent parser. It
// is used to check that generated feeds are readable by strict consumers.
func ParseFeed(body []byte) (ParsedFeed, error) {
	var feed ParsedFeed
	if len(body) == 0 {
		return feed, errors.New("empty ICS body")
	}

	cal, err := goical.NewDecoder(bytes.NewReader(body)).Decode()
	if err != nil {
		return feed, fmt.Errorf("decode feed: %w", err)
	}

	feed.Name = propValue(cal.Props, "X-WR-CALNAME")
	feed.Timezone = propValue(cal.Props, "X-WR-TIMEZONE")

	for _, child := range cal.Children {
		if child.Name == goical.CompTimezone {
			feed.TimezoneIDs = append(feed.TimezoneIDs, propValue(child.Props, goical.PropTimezoneID))
		}
	}

	for _, ev := range cal.Events() {
		pe, err := parseEvent(ev)
		if err != nil {
			return feed, fmt.Errorf("event %q: %w", pe.UID, err)
		}
		feed.Events = append(feed.Events, pe)
	}
	return feed, nil
}

func parseEvent(ev goical.Event) (ParsedEvent, error) {
	out := ParsedEvent{
		UID:          propValue(ev.Props, goical.PropUID),
		Summary:      propValue(ev.Props, goical.PropSummary),
		Status:       propValue(ev.Props, goical.PropStatus),
		Transparency: propValue(ev.Props, "TRANSP"),
	}
	if out.UID == "" {
		return out, errors.New("missing UID")
	}

	var err error
	if out.Start, out.StartTZ, err = localProp(ev.Props, goical.PropDateTimeStart); err != nil {
		return out, err
	}
	if out.End, out.EndTZ, err = localProp(ev.Props, goical.PropDateTimeEnd); err != nil {
		return out, err
	}

	stamp := propValue(ev.Props, goical.PropDateTimeStamp)
	if out.Stamp, err = time.Parse("20060102T150405Z", stamp); err != nil {
		return out, fmt.Errorf("DTSTAMP %q: %w", stamp, err)
	}
	return out, nil
}

// localProp reads a DATE-TIME as a floating wall time without resolving its
// TZID, so ids unknown to the tz database still parse.
func localProp(props goical.Props, name string) (time.Time, string, error) {
	p := props.Get(name)
	if p == nil {
		return time.Time{}, "", fmt.Errorf("missing %s", name)
	}
	v := strings.TrimSuffix(strings.TrimSpace(p.Value), "Z")
	t, err := time.ParseInLocation(localLayout, v, time.UTC)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%s %q: %w", name, p.Value, err)
	}
	return t, p.Params.Get(goical.ParamTimezoneID), nil
}

func propValue(props goical.Props, name string) string {
	if p := props.Get(name); p != nil {
		return p.Value
	}
	return ""
}
