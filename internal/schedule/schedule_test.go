package schedule

import (
	"database/sql"
	"testing"

	"medicine-tracker/internal/models"
)

func testMedicine(id int64, times []string, start, end string) *models.Medicine {
	m := &models.Medicine{
		ID:        id,
		UserID:    1,
		Name:      "Test Medicine",
		Times:     times,
		StartDate: start,
		IsActive:  true,
	}
	if end != "" {
		m.EndDate = sql.NullString{String: end, Valid: true}
	}
	return m
}

func TestDueSlots(t *testing.T) {
	tests := []struct {
		name      string
		medicine  *models.Medicine
		date      string
		wantTimes []string
	}{
		{
			name:      "open-ended schedule on start date",
			medicine:  testMedicine(1, []string{"08:00", "20:00"}, "2024-01-01", ""),
			date:      "2024-01-01",
			wantTimes: []string{"08:00", "20:00"},
		},
		{
			name:      "day before start date",
			medicine:  testMedicine(1, []string{"08:00", "20:00"}, "2024-01-01", ""),
			date:      "2023-12-31",
			wantTimes: nil,
		},
		{
			name:      "within closed window",
			medicine:  testMedicine(2, []string{"12:00"}, "2024-01-01", "2024-01-31"),
			date:      "2024-01-31",
			wantTimes: []string{"12:00"},
		},
		{
			name:      "day after end date",
			medicine:  testMedicine(2, []string{"12:00"}, "2024-01-01", "2024-01-31"),
			date:      "2024-02-01",
			wantTimes: nil,
		},
		{
			name:      "unsorted times come back ascending",
			medicine:  testMedicine(3, []string{"20:00", "08:00", "12:30"}, "2024-01-01", ""),
			date:      "2024-06-15",
			wantTimes: []string{"08:00", "12:30", "20:00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := DueSlots(tt.medicine, tt.date)
			if len(slots) != len(tt.wantTimes) {
				t.Fatalf("DueSlots returned %d slots, want %d", len(slots), len(tt.wantTimes))
			}
			for i, slot := range slots {
				if slot.Time != tt.wantTimes[i] {
					t.Errorf("slot %d time = %q, want %q", i, slot.Time, tt.wantTimes[i])
				}
				if slot.Date != tt.date {
					t.Errorf("slot %d date = %q, want %q", i, slot.Date, tt.date)
				}
				if slot.MedicineID != tt.medicine.ID {
					t.Errorf("slot %d medicine id = %d, want %d", i, slot.MedicineID, tt.medicine.ID)
				}
			}
		})
	}
}

func TestDueSlotsCountMatchesTimes(t *testing.T) {
	m := testMedicine(7, []string{"06:00", "14:00", "22:00"}, "2024-03-01", "2024-03-31")

	for _, date := range []string{"2024-03-01", "2024-03-15", "2024-03-31"} {
		if got := len(DueSlots(m, date)); got != len(m.Times) {
			t.Errorf("DueSlots(%s) returned %d slots, want %d", date, got, len(m.Times))
		}
	}
	for _, date := range []string{"2024-02-29", "2024-04-01"} {
		if got := len(DueSlots(m, date)); got != 0 {
			t.Errorf("DueSlots(%s) returned %d slots, want 0", date, got)
		}
	}
}

func TestSlotIDRoundTrip(t *testing.T) {
	id := SlotID("2024-01-01", 42, "08:00")
	if id != "2024-01-01|42|08:00" {
		t.Fatalf("SlotID = %q, want %q", id, "2024-01-01|42|08:00")
	}

	ref, err := ParseSlotID(id)
	if err != nil {
		t.Fatalf("ParseSlotID(%q) returned error: %v", id, err)
	}
	if ref.Date != "2024-01-01" || ref.MedicineID != 42 || ref.Time != "08:00" {
		t.Errorf("ParseSlotID(%q) = %+v", id, ref)
	}
}

func TestParseSlotIDRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{name: "empty", id: ""},
		{name: "too few parts", id: "2024-01-01|42"},
		{name: "too many parts", id: "2024-01-01|42|08:00|extra"},
		{name: "empty date part", id: "|42|08:00"},
		{name: "empty medicine part", id: "2024-01-01||08:00"},
		{name: "empty time part", id: "2024-01-01|42|"},
		{name: "bad date", id: "2024-13-01|42|08:00"},
		{name: "non-numeric medicine", id: "2024-01-01|abc|08:00"},
		{name: "bad time", id: "2024-01-01|42|8:00"},
		{name: "out of range time", id: "2024-01-01|42|24:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ref, err := ParseSlotID(tt.id); err == nil {
				t.Errorf("ParseSlotID(%q) = %+v, expected error", tt.id, ref)
			}
		})
	}
}

func TestDateRange(t *testing.T) {
	dates, err := DateRange("2024-01-30", "2024-02-02")
	if err != nil {
		t.Fatalf("DateRange returned error: %v", err)
	}
	want := []string{"2024-01-30", "2024-01-31", "2024-02-01", "2024-02-02"}
	if len(dates) != len(want) {
		t.Fatalf("DateRange returned %d dates, want %d", len(dates), len(want))
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Errorf("dates[%d] = %q, want %q", i, dates[i], want[i])
		}
	}

	single, err := DateRange("2024-05-10", "2024-05-10")
	if err != nil || len(single) != 1 {
		t.Errorf("single-day range: dates=%v err=%v", single, err)
	}

	if _, err := DateRange("2024-02-02", "2024-01-30"); err == nil {
		t.Error("expected error for inverted range")
	}
	if _, err := DateRange("bogus", "2024-01-30"); err == nil {
		t.Error("expected error for malformed from date")
	}
}

func TestValidTime(t *testing.T) {
	valid := []string{"00:00", "08:00", "12:30", "23:59"}
	for _, v := range valid {
		if !ValidTime(v) {
			t.Errorf("ValidTime(%q) = false, want true", v)
		}
	}

	invalid := []string{"8:00", "24:00", "12:60", "noon", "08:0", "", "08:00:00"}
	for _, v := range invalid {
		if ValidTime(v) {
			t.Errorf("ValidTime(%q) = true, want false", v)
		}
	}
}

func TestValidateTimes(t *testing.T) {
	if err := ValidateTimes([]string{"08:00", "20:00"}); err != nil {
		t.Errorf("unexpected error for valid list: %v", err)
	}
	if err := ValidateTimes(nil); err == nil {
		t.Error("expected error for empty list")
	}
	if err := ValidateTimes([]string{"8:00"}); err == nil {
		t.Error("expected error for non-padded time")
	}
	if err := ValidateTimes([]string{"08:00", "08:00"}); err == nil {
		t.Error("expected error for duplicate time")
	}
}

func TestParseDate(t *testing.T) {
	if _, err := ParseDate("2024-02-29"); err != nil {
		t.Errorf("leap day rejected: %v", err)
	}
	for _, bad := range []string{"2023-02-29", "2024-1-02", "01-01-2024", "2024/01/01", ""} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) accepted malformed date", bad)
		}
	}
}
