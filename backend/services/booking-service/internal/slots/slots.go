// Package slots generates the bookable time-slot catalog of a day.
package slots

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Catalog defaults.
const (
	DefaultStartHour = 6
	DefaultEndHour   = 22
	DefaultStep      = 30
)

// DateLayout is the wire format of booking dates.
const DateLayout = "2006-01-02"

var (
	// ErrInvalidLabel is returned for labels that are not "HH:MM-HH:MM".
	ErrInvalidLabel = errors.New("slots: invalid slot label")
	// ErrUnknownSlot is returned when a label is not part of the catalog.
	ErrUnknownSlot = errors.New("slots: slot not in catalog")
	// ErrSpanOverflow is returned when a duration runs past the last slot.
	ErrSpanOverflow = errors.New("slots: booking runs past closing time")
)

// Generate returns the ordered slot labels between startHour and endHour, stepMinutes apart.
// Invalid input yields an empty catalog.
func Generate(startHour, endHour, stepMinutes int) []string {
	if stepMinutes <= 0 || stepMinutes > 60 || startHour >= endHour || startHour < 0 || endHour > 24 {
		return []string{}
	}

	out := make([]string, 0, (endHour-startHour)*60/stepMinutes+1)
	for h := startHour; h < endHour; h++ {
		for m := 0; m < 60; m += stepMinutes {
			endH, endM := h, m+stepMinutes
			if endM >= 60 {
				endH++
				endM -= 60
			}
			out = append(out, fmt.Sprintf("%02d:%02d-%02d:%02d", h, m, endH, endM))
		}
	}
	return out
}

// Default returns the 06:00-22:00 catalog in 30 minute steps.
func Default() []string {
	return Generate(DefaultStartHour, DefaultEndHour, DefaultStep)
}

// Parse returns the start and end of label as minutes since midnight.
func Parse(label string) (start, end int, err error) {
	from, to, ok := strings.Cut(strings.TrimSpace(label), "-")
	if !ok {
		return 0, 0, ErrInvalidLabel
	}
	if start, err = clock(from); err != nil {
		return 0, 0, err
	}
	if end, err = clock(to); err != nil {
		return 0, 0, err
	}
	if end <= start {
		return 0, 0, ErrInvalidLabel
	}
	return start, end, nil
}

func clock(v string) (int, error) {
	hh, mm, ok := strings.Cut(v, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, ErrInvalidLabel
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 24 {
		return 0, ErrInvalidLabel
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, ErrInvalidLabel
	}
	return h*60 + m, nil
}

// Span returns the consecutive catalog labels covered by a booking of durationMinutes starting at first.
// A booking always occupies at least one slot.
func Span(catalog []string, first string, durationMinutes, stepMinutes int) ([]string, error) {
	idx := -1
	for i, label := range catalog {
		if label == first {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrUnknownSlot
	}
	if stepMinutes <= 0 {
		return nil, ErrInvalidLabel
	}

	count := (durationMinutes + stepMinutes - 1) / stepMinutes
	if count < 1 {
		count = 1
	}
	if idx+count > len(catalog) {
		return nil, ErrSpanOverflow
	}

	out := make([]string, count)
	copy(out, catalog[idx:idx+count])
	return out, nil
}

// StartTime resolves the absolute start of label on date in loc.
func StartTime(date, label string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("slots: parse date: %w", err)
	}
	start, _, err := Parse(label)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), start/60, start%60, 0, 0, loc), nil
}

// ParseDate validates a YYYY-MM-DD date.
func ParseDate(date string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(date))
}
