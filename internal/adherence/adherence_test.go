package adherence

import (
	"database/sql"
	"testing"

	"medicine-tracker/internal/models"
	"medicine-tracker/internal/schedule"
)

func testMedicine(id int64, times []string, start string) *models.Medicine {
	return &models.Medicine{
		ID:        id,
		UserID:    1,
		Name:      "Aspirin",
		Times:     times,
		StartDate: start,
		IsActive:  true,
	}
}

func slotID(date string, medicineID int64, timeOfDay string) string {
	return schedule.SlotID(date, medicineID, timeOfDay)
}

func TestDailyEmptyRange(t *testing.T) {
	// No medicines: every day in the range must still appear, with zeros
	days := Daily(nil, nil, "2024-01-01", "2024-01-07", "2024-01-10")
	if len(days) != 7 {
		t.Fatalf("got %d days, want 7", len(days))
	}
	for _, d := range days {
		if d.Taken != 0 || d.Missed != 0 {
			t.Errorf("day %s: got taken=%d missed=%d, want zeros", d.Date, d.Taken, d.Missed)
		}
	}
	if days[0].Date != "2024-01-01" || days[6].Date != "2024-01-07" {
		t.Errorf("unexpected date bounds: %s..%s", days[0].Date, days[6].Date)
	}

	s := Summarize(days)
	if s.Total != 0 || s.Rate != 0 || s.CurrentStreak != 0 || s.LongestStreak != 0 {
		t.Errorf("expected zero summary, got %+v", s)
	}
}

func TestDailyCountsRecordedStatuses(t *testing.T) {
	m := testMedicine(1, []string{"08:00", "20:00"}, "2024-01-01")
	recorded := map[string]models.DoseStatus{
		slotID("2024-01-01", 1, "08:00"): models.StatusTaken,
		slotID("2024-01-01", 1, "20:00"): models.StatusMissed,
		slotID("2024-01-02", 1, "08:00"): models.StatusTaken,
		slotID("2024-01-02", 1, "20:00"): models.StatusSkipped,
	}

	days := Daily([]*models.Medicine{m}, recorded, "2024-01-01", "2024-01-02", "2024-01-10")
	if len(days) != 2 {
		t.Fatalf("got %d days, want 2", len(days))
	}
	for i, want := range []DayCount{
		{Date: "2024-01-01", Taken: 1, Missed: 1},
		{Date: "2024-01-02", Taken: 1, Missed: 1},
	} {
		if days[i] != want {
			t.Errorf("day %d: got %+v, want %+v", i, days[i], want)
		}
	}
}

func TestDailyUnrecordedSlots(t *testing.T) {
	m := testMedicine(1, []string{"08:00"}, "2024-01-01")
	today := "2024-01-03"

	// 01-01 and 01-02 are past with nothing recorded: missed.
	// 01-03 is today and 01-04 future: excluded from counting.
	days := Daily([]*models.Medicine{m}, nil, "2024-01-01", "2024-01-04", today)
	want := []DayCount{
		{Date: "2024-01-01", Missed: 1},
		{Date: "2024-01-02", Missed: 1},
		{Date: "2024-01-03"},
		{Date: "2024-01-04"},
	}
	for i := range want {
		if days[i] != want[i] {
			t.Errorf("day %d: got %+v, want %+v", i, days[i], want[i])
		}
	}
}

func TestDailyStoredScheduledTreatedAsUnrecorded(t *testing.T) {
	m := testMedicine(1, []string{"08:00"}, "2024-01-01")
	recorded := map[string]models.DoseStatus{
		slotID("2024-01-01", 1, "08:00"): models.StatusScheduled,
		slotID("2024-01-05", 1, "08:00"): models.StatusScheduled,
	}

	days := Daily([]*models.Medicine{m}, recorded, "2024-01-01", "2024-01-05", "2024-01-03")
	if days[0].Missed != 1 {
		t.Errorf("past stored-scheduled slot should count missed, got %+v", days[0])
	}
	if days[4].Taken != 0 || days[4].Missed != 0 {
		t.Errorf("future stored-scheduled slot should be excluded, got %+v", days[4])
	}
}

func TestDailyRespectsMedicineDateWindow(t *testing.T) {
	m := testMedicine(1, []string{"08:00"}, "2024-01-03")
	m.EndDate = sql.NullString{String: "2024-01-04", Valid: true}

	days := Daily([]*models.Medicine{m}, nil, "2024-01-01", "2024-01-06", "2024-01-10")
	for _, d := range days {
		due := d.Date >= "2024-01-03" && d.Date <= "2024-01-04"
		if due && d.Total() != 1 {
			t.Errorf("day %s inside window: got total %d, want 1", d.Date, d.Total())
		}
		if !due && d.Total() != 0 {
			t.Errorf("day %s outside window: got total %d, want 0", d.Date, d.Total())
		}
	}
}

func TestRate(t *testing.T) {
	tests := []struct {
		taken, missed int
		want          float64
	}{
		{0, 0, 0},
		{1, 0, 100},
		{0, 1, 0},
		{3, 1, 75},
		{4, 1, 80},
	}
	for _, tt := range tests {
		if got := Rate(tt.taken, tt.missed); got != tt.want {
			t.Errorf("Rate(%d, %d) = %v, want %v", tt.taken, tt.missed, got, tt.want)
		}
	}
}

func TestStreaks(t *testing.T) {
	day := func(date string, taken, missed int) DayCount {
		return DayCount{Date: date, Taken: taken, Missed: missed}
	}

	tests := []struct {
		name                  string
		days                  []DayCount
		current, longest      int
	}{
		{
			name:    "empty",
			days:    nil,
			current: 0, longest: 0,
		},
		{
			name: "all good",
			days: []DayCount{
				day("2024-01-01", 2, 0),
				day("2024-01-02", 2, 0),
				day("2024-01-03", 2, 0),
			},
			current: 3, longest: 3,
		},
		{
			name: "broken in the middle",
			days: []DayCount{
				day("2024-01-01", 2, 0),
				day("2024-01-02", 2, 0),
				day("2024-01-03", 0, 2),
				day("2024-01-04", 2, 0),
			},
			current: 1, longest: 2,
		},
		{
			name: "zero-dose days are neutral",
			days: []DayCount{
				day("2024-01-01", 2, 0),
				day("2024-01-02", 0, 0),
				day("2024-01-03", 2, 0),
			},
			current: 2, longest: 2,
		},
		{
			name: "trailing zero-dose days keep the streak",
			days: []DayCount{
				day("2024-01-01", 2, 0),
				day("2024-01-02", 0, 0),
				day("2024-01-03", 0, 0),
			},
			current: 1, longest: 1,
		},
		{
			name: "exactly at threshold counts",
			days: []DayCount{
				day("2024-01-01", 4, 1), // 80%
				day("2024-01-02", 3, 1), // 75%
			},
			current: 0, longest: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current, longest := Streaks(tt.days, StreakThreshold)
			if current != tt.current || longest != tt.longest {
				t.Errorf("got current=%d longest=%d, want current=%d longest=%d",
					current, longest, tt.current, tt.longest)
			}
		})
	}
}

func TestPerMedicine(t *testing.T) {
	m1 := testMedicine(1, []string{"08:00"}, "2024-01-01")
	m2 := testMedicine(2, []string{"08:00", "20:00"}, "2024-01-01")
	m2.Name = "Metformin"

	recorded := map[string]models.DoseStatus{
		slotID("2024-01-01", 1, "08:00"): models.StatusTaken,
		slotID("2024-01-02", 1, "08:00"): models.StatusTaken,
		slotID("2024-01-01", 2, "08:00"): models.StatusTaken,
		slotID("2024-01-01", 2, "20:00"): models.StatusMissed,
		slotID("2024-01-02", 2, "08:00"): models.StatusMissed,
		slotID("2024-01-02", 2, "20:00"): models.StatusMissed,
	}

	counts := PerMedicine([]*models.Medicine{m1, m2}, recorded, "2024-01-01", "2024-01-02", "2024-01-10")
	if len(counts) != 2 {
		t.Fatalf("got %d medicines, want 2", len(counts))
	}
	if counts[0].Taken != 2 || counts[0].Missed != 0 || counts[0].Rate != 100 {
		t.Errorf("m1: got %+v", counts[0])
	}
	if counts[1].Taken != 1 || counts[1].Missed != 3 || counts[1].Rate != 25 {
		t.Errorf("m2: got %+v", counts[1])
	}
}

func TestSummarize(t *testing.T) {
	days := []DayCount{
		{Date: "2024-01-01", Taken: 2, Missed: 0},
		{Date: "2024-01-02", Taken: 1, Missed: 1},
		{Date: "2024-01-03", Taken: 0, Missed: 0},
	}
	s := Summarize(days)
	if s.Taken != 3 || s.Missed != 1 || s.Total != 4 {
		t.Errorf("got totals %+v", s)
	}
	if s.Rate != 75 {
		t.Errorf("got rate %v, want 75", s.Rate)
	}
	if s.CurrentStreak != 2 || s.LongestStreak != 2 {
		t.Errorf("got streaks current=%d longest=%d, want 2/2", s.CurrentStreak, s.LongestStreak)
	}
}

func TestWeekly(t *testing.T) {
	// 2024-01-01 is a Monday
	days := []DayCount{
		{Date: "2024-01-01", Taken: 1},
		{Date: "2024-01-07", Taken: 1, Missed: 1}, // Sunday, same week
		{Date: "2024-01-08", Missed: 1},           // next Monday
	}
	weeks := Weekly(days)
	if len(weeks) != 2 {
		t.Fatalf("got %d weeks, want 2", len(weeks))
	}
	if weeks[0].WeekStart != "2024-01-01" || weeks[0].Taken != 2 || weeks[0].Missed != 1 {
		t.Errorf("week 0: got %+v", weeks[0])
	}
	if weeks[1].WeekStart != "2024-01-08" || weeks[1].Missed != 1 || weeks[1].Rate != 0 {
		t.Errorf("week 1: got %+v", weeks[1])
	}
}
