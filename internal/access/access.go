// Package access decides whether an authenticated user may act on another
// user's data. Every handler that takes a target user id routes the
// decision through CanAccess so the rules live in one place.
package access

import "medicine-tracker/internal/models"

// Operation classifies what the actor wants to do with the target's data
type Operation string

const (
	OpRead  Operation = "read"
	OpWrite Operation = "write"
)

// CanAccess reports whether actor may perform op on target's data.
// Everyone has full access to their own data. Doctors may additionally
// read any patient's data but never write it. Patients and caregivers
// never cross user boundaries.
func CanAccess(actorID int64, actorRole string, targetID int64, op Operation) bool {
	if actorID == targetID {
		return true
	}
	if actorRole == models.RoleDoctor && op == OpRead {
		return true
	}
	return false
}
