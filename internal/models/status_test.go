package models

import "testing"

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		want        DoseStatus
		expectError bool
	}{
		{name: "lowercase taken", input: "taken", want: StatusTaken},
		{name: "capitalized taken", input: "Taken", want: StatusTaken},
		{name: "lowercase missed", input: "missed", want: StatusMissed},
		{name: "not taken collapses to missed", input: "Not taken", want: StatusMissed},
		{name: "skipped", input: "skipped", want: StatusSkipped},
		{name: "scheduled", input: "scheduled", want: StatusScheduled},
		{name: "surrounding whitespace", input: "  taken  ", want: StatusTaken},
		{name: "unknown value rejected", input: "maybe", expectError: true},
		{name: "empty string rejected", input: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeStatus(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("NormalizeStatus(%q) = %q, expected error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeStatus(%q) returned error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeStatus(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []string{RolePatient, RoleCaregiver, RoleDoctor} {
		if !ValidRole(role) {
			t.Errorf("ValidRole(%q) = false, want true", role)
		}
	}
	for _, role := range []string{"admin", "Patient", ""} {
		if ValidRole(role) {
			t.Errorf("ValidRole(%q) = true, want false", role)
		}
	}
}
