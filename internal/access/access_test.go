package access

import (
	"testing"

	"medicine-tracker/internal/models"
)

func TestCanAccess(t *testing.T) {
	tests := []struct {
		name      string
		actorID   int64
		actorRole string
		targetID  int64
		op        Operation
		want      bool
	}{
		{"patient reads own data", 1, models.RolePatient, 1, OpRead, true},
		{"patient writes own data", 1, models.RolePatient, 1, OpWrite, true},
		{"patient reads other patient", 1, models.RolePatient, 2, OpRead, false},
		{"patient writes other patient", 1, models.RolePatient, 2, OpWrite, false},
		{"caregiver reads own data", 3, models.RoleCaregiver, 3, OpRead, true},
		{"caregiver reads other user", 3, models.RoleCaregiver, 1, OpRead, false},
		{"doctor reads own data", 5, models.RoleDoctor, 5, OpWrite, true},
		{"doctor reads patient", 5, models.RoleDoctor, 1, OpRead, true},
		{"doctor writes patient", 5, models.RoleDoctor, 1, OpWrite, false},
		{"unknown role other user", 9, "admin", 1, OpRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanAccess(tt.actorID, tt.actorRole, tt.targetID, tt.op)
			if got != tt.want {
				t.Errorf("CanAccess(%d, %q, %d, %q) = %v, want %v",
					tt.actorID, tt.actorRole, tt.targetID, tt.op, got, tt.want)
			}
		})
	}
}
