package models

import (
	"errors"
	"strings"
)

// DoseStatus is the canonical dose status vocabulary. Nothing outside this
// set is ever stored.
type DoseStatus string

const (
	StatusScheduled DoseStatus = "scheduled"
	StatusTaken     DoseStatus = "taken"
	StatusMissed    DoseStatus = "missed"
	StatusSkipped   DoseStatus = "skipped"
)

var ErrInvalidStatus = errors.New("invalid dose status")

// NormalizeStatus maps a caller-supplied status string onto the canonical
// set. Matching is case-insensitive and "not taken" collapses to missed;
// clients historically sent "Taken"/"Not taken"/"Missed" interchangeably.
// Unknown values are rejected, never stored.
func NormalizeStatus(s string) (DoseStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scheduled":
		return StatusScheduled, nil
	case "taken":
		return StatusTaken, nil
	case "missed", "not taken":
		return StatusMissed, nil
	case "skipped":
		return StatusSkipped, nil
	}
	return "", ErrInvalidStatus
}
