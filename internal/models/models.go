package models

import (
	"database/sql"
	"time"
)

// User roles. Role is assigned at registration and not changed by normal flows.
const (
	RolePatient   = "patient"
	RoleCaregiver = "caregiver"
	RoleDoctor    = "doctor"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RolePatient, RoleCaregiver, RoleDoctor:
		return true
	}
	return false
}

// User represents a registered user
type User struct {
	ID                  int64
	Email               string
	PasswordHash        string
	Role                string // "patient", "caregiver" or "doctor"
	FirstName           sql.NullString
	LastName            sql.NullString
	Phone               sql.NullString
	IsActive            bool
	FailedLoginAttempts int
	LockedUntil         sql.NullTime
	CreatedAt           time.Time
	LastLogin           sql.NullTime
}

// FullName returns the user's display name, falling back to email
func (u *User) FullName() string {
	if u.FirstName.Valid && u.LastName.Valid {
		return u.FirstName.String + " " + u.LastName.String
	}
	if u.FirstName.Valid {
		return u.FirstName.String
	}
	return u.Email
}

// Medicine represents a recurring medicine schedule owned by a user.
// Dates are YYYY-MM-DD strings and times zero-padded HH:MM, so
// lexicographic order equals chronological order.
type Medicine struct {
	ID           int64
	UserID       int64
	Name         string
	Dosage       sql.NullString
	Instructions sql.NullString
	Times        []string // at least one entry, each HH:MM
	StartDate    string   // YYYY-MM-DD
	EndDate      sql.NullString
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Dose represents a stored status record for a single dose slot.
// Identity is the natural key (user_id, medicine_id, date, time); a slot
// without a stored record is implicitly scheduled.
type Dose struct {
	ID         int64
	UserID     int64
	MedicineID int64
	Date       string // YYYY-MM-DD
	Time       string // HH:MM
	Status     DoseStatus
	TakenAt    sql.NullTime // set iff Status == taken
	Notes      sql.NullString
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Notification represents an in-app notification (polled, never pushed)
type Notification struct {
	ID        int64
	UserID    int64
	Type      string
	Title     string
	Message   string
	DoseSlot  sql.NullString // slot id for dose reminders, used for dedup
	IsRead    bool
	CreatedAt time.Time
}

// AuditLog represents an audit log entry
type AuditLog struct {
	ID         int64
	UserID     sql.NullInt64
	Action     string
	EntityType string
	EntityID   sql.NullInt64
	Details    sql.NullString
	IPAddress  sql.NullString
	UserAgent  sql.NullString
	Timestamp  time.Time
}
