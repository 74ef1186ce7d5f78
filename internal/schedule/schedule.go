// Package schedule resolves a medicine's recurring schedule into concrete
// per-day dose slots and derives the canonical slot identifier. Everything
// here is a pure function of its inputs.
package schedule

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"medicine-tracker/internal/models"
)

const dateLayout = "2006-01-02"

// timePattern requires zero-padded HH:MM so that lexicographic order of
// times equals chronological order.
var timePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// SlotRef identifies a single dose slot: one scheduled time of one medicine
// on one calendar date.
type SlotRef struct {
	Date       string // YYYY-MM-DD
	MedicineID int64
	Time       string // HH:MM
}

// ValidTime reports whether t is a zero-padded 24h HH:MM time.
func ValidTime(t string) bool {
	return timePattern.MatchString(t)
}

// ParseDate validates a YYYY-MM-DD calendar date and returns it unchanged.
func ParseDate(s string) (string, error) {
	parsed, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	// time.Parse accepts some non-canonical strings (e.g. "2024-1-02" does
	// not parse, but keep the round-trip check as the single source of truth).
	if parsed.Format(dateLayout) != s {
		return "", fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return s, nil
}

// Today returns the current calendar date in the given location.
func Today(loc *time.Location) string {
	return time.Now().In(loc).Format(dateLayout)
}

// Due reports whether the medicine has doses due on the given date: the date
// falls within [StartDate, EndDate], with an absent EndDate meaning open-ended.
func Due(m *models.Medicine, date string) bool {
	if date < m.StartDate {
		return false
	}
	if m.EndDate.Valid && date > m.EndDate.String {
		return false
	}
	return true
}

// DueSlots expands a medicine into its due slots on the given date, ordered
// ascending by time. Returns nil when the date is outside the schedule
// window. Callers pass active medicines with validated time lists.
func DueSlots(m *models.Medicine, date string) []SlotRef {
	if !Due(m, date) {
		return nil
	}

	times := make([]string, len(m.Times))
	copy(times, m.Times)
	sort.Strings(times)

	slots := make([]SlotRef, 0, len(times))
	for _, t := range times {
		slots = append(slots, SlotRef{Date: date, MedicineID: m.ID, Time: t})
	}
	return slots
}

// HasTime reports whether t is one of the medicine's scheduled times.
func HasTime(m *models.Medicine, t string) bool {
	for _, mt := range m.Times {
		if mt == t {
			return true
		}
	}
	return false
}

// SlotID derives the canonical slot identifier: the ISO date, medicine id and
// time joined by pipes, e.g. "2024-01-01|3|08:00".
func SlotID(date string, medicineID int64, t string) string {
	return fmt.Sprintf("%s|%d|%s", date, medicineID, t)
}

// ID returns the canonical identifier for the slot.
func (s SlotRef) ID() string {
	return SlotID(s.Date, s.MedicineID, s.Time)
}

// ParseSlotID parses a canonical slot identifier back into its parts. Any
// identifier that does not split into exactly three non-empty parts, or whose
// parts are not a valid date, numeric medicine id and HH:MM time, is rejected.
func ParseSlotID(id string) (SlotRef, error) {
	parts := strings.Split(id, "|")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return SlotRef{}, fmt.Errorf("invalid dose id %q: expected date|medicine|time", id)
	}

	date, err := ParseDate(parts[0])
	if err != nil {
		return SlotRef{}, fmt.Errorf("invalid dose id %q: %w", id, err)
	}

	medicineID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return SlotRef{}, fmt.Errorf("invalid dose id %q: bad medicine id", id)
	}

	if !ValidTime(parts[2]) {
		return SlotRef{}, fmt.Errorf("invalid dose id %q: bad time", id)
	}

	return SlotRef{Date: date, MedicineID: medicineID, Time: parts[2]}, nil
}

// DateRange expands [from, to] into every calendar date in the inclusive
// range, ascending. Errors when either bound is malformed or from > to.
func DateRange(from, to string) ([]string, error) {
	if _, err := ParseDate(from); err != nil {
		return nil, err
	}
	if _, err := ParseDate(to); err != nil {
		return nil, err
	}
	if from > to {
		return nil, fmt.Errorf("invalid range: from %s is after to %s", from, to)
	}

	start, _ := time.Parse(dateLayout, from)
	end, _ := time.Parse(dateLayout, to)

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(dateLayout))
	}
	return dates, nil
}

// ValidateTimes checks a medicine's time-of-day list at creation time: at
// least one entry, every entry zero-padded HH:MM, no duplicates.
func ValidateTimes(times []string) error {
	if len(times) == 0 {
		return fmt.Errorf("at least one dose time is required")
	}
	seen := make(map[string]bool, len(times))
	for _, t := range times {
		if !ValidTime(t) {
			return fmt.Errorf("invalid time %q: use zero-padded 24h HH:MM", t)
		}
		if seen[t] {
			return fmt.Errorf("duplicate time %q", t)
		}
		seen[t] = true
	}
	return nil
}
