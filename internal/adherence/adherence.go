// Package adherence computes adherence statistics from medicine schedules
// and recorded dose statuses. All functions are pure: callers load the
// schedule and the recorded-status map, and the aggregator never touches
// the database.
package adherence

import (
	"time"

	"medicine-tracker/internal/models"
	"medicine-tracker/internal/schedule"
)

// StreakThreshold is the minimum daily adherence rate, in percent, for a
// day to count toward a streak.
const StreakThreshold = 80.0

// DayCount holds per-day dose counts. Taken+Missed can be zero on days
// where no medicine was due.
type DayCount struct {
	Date   string `json:"date"`
	Taken  int    `json:"taken"`
	Missed int    `json:"missed"`
}

// Total returns the number of countable doses for the day
func (d DayCount) Total() int {
	return d.Taken + d.Missed
}

// Rate returns the day's adherence rate in percent, 0 for empty days
func (d DayCount) Rate() float64 {
	return Rate(d.Taken, d.Missed)
}

// MedicineCount holds per-medicine dose counts over a range
type MedicineCount struct {
	MedicineID int64   `json:"medicineId"`
	Name       string  `json:"name"`
	Dosage     string  `json:"dosage,omitempty"`
	Taken      int     `json:"taken"`
	Missed     int     `json:"missed"`
	Rate       float64 `json:"rate"`
}

// Summary aggregates a date range
type Summary struct {
	Taken         int     `json:"taken"`
	Missed        int     `json:"missed"`
	Total         int     `json:"total"`
	Rate          float64 `json:"rate"`
	CurrentStreak int     `json:"currentStreak"`
	LongestStreak int     `json:"longestStreak"`
}

// Rate converts taken/missed counts to a percentage. An empty range has
// rate 0 rather than NaN.
func Rate(taken, missed int) float64 {
	total := taken + missed
	if total == 0 {
		return 0
	}
	return float64(taken) / float64(total) * 100
}

// countable classifies a slot's status for counting purposes. A slot whose
// stored status is "scheduled", or that has no record at all, counts as
// missed once its date has passed and is excluded while it is today or in
// the future.
func countable(status models.DoseStatus, date, today string) (taken, missed bool) {
	switch status {
	case models.StatusTaken:
		return true, false
	case models.StatusMissed, models.StatusSkipped:
		return false, true
	default:
		if date < today {
			return false, true
		}
		return false, false
	}
}

// Daily computes per-day counts for every calendar date from "from" to
// "to" inclusive. Days with no due doses appear with zero counts so charts
// get a continuous series. recorded maps slot ids to stored statuses.
func Daily(medicines []*models.Medicine, recorded map[string]models.DoseStatus, from, to, today string) []DayCount {
	// Callers validate the range; a malformed one yields an empty series.
	dates, _ := schedule.DateRange(from, to)
	days := make([]DayCount, 0, len(dates))

	for _, date := range dates {
		day := DayCount{Date: date}
		for _, m := range medicines {
			for _, slot := range schedule.DueSlots(m, date) {
				status := recorded[slot.ID()]
				taken, missed := countable(status, date, today)
				if taken {
					day.Taken++
				}
				if missed {
					day.Missed++
				}
			}
		}
		days = append(days, day)
	}

	return days
}

// PerMedicine computes counts for each medicine over the range, in the
// order the medicines were given
func PerMedicine(medicines []*models.Medicine, recorded map[string]models.DoseStatus, from, to, today string) []MedicineCount {
	dates, _ := schedule.DateRange(from, to)
	counts := make([]MedicineCount, 0, len(medicines))

	for _, m := range medicines {
		count := MedicineCount{MedicineID: m.ID, Name: m.Name, Dosage: m.Dosage.String}
		for _, date := range dates {
			for _, slot := range schedule.DueSlots(m, date) {
				status := recorded[slot.ID()]
				taken, missed := countable(status, date, today)
				if taken {
					count.Taken++
				}
				if missed {
					count.Missed++
				}
			}
		}
		count.Rate = Rate(count.Taken, count.Missed)
		counts = append(counts, count)
	}

	return counts
}

// Streaks computes the current and longest streaks over days, which must
// be in ascending date order. A streak day has adherence of at least
// threshold percent; days with no due doses neither extend nor break a
// streak. The current streak is the trailing run.
func Streaks(days []DayCount, threshold float64) (current, longest int) {
	run := 0
	for _, day := range days {
		if day.Total() == 0 {
			continue
		}
		if day.Rate() >= threshold {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return run, longest
}

// Summarize folds per-day counts into range totals and streaks
func Summarize(days []DayCount) Summary {
	var s Summary
	for _, day := range days {
		s.Taken += day.Taken
		s.Missed += day.Missed
	}
	s.Total = s.Taken + s.Missed
	s.Rate = Rate(s.Taken, s.Missed)
	s.CurrentStreak, s.LongestStreak = Streaks(days, StreakThreshold)
	return s
}

// WeekCount holds counts for one week, keyed by its Monday
type WeekCount struct {
	WeekStart string  `json:"weekStart"`
	Taken     int     `json:"taken"`
	Missed    int     `json:"missed"`
	Rate      float64 `json:"rate"`
}

// Weekly buckets per-day counts into calendar weeks starting Monday.
// Weeks appear in ascending order; empty weeks are kept so trend charts
// stay continuous.
func Weekly(days []DayCount) []WeekCount {
	var weeks []WeekCount
	index := make(map[string]int)

	for _, day := range days {
		start := weekStart(day.Date)
		i, ok := index[start]
		if !ok {
			i = len(weeks)
			index[start] = i
			weeks = append(weeks, WeekCount{WeekStart: start})
		}
		weeks[i].Taken += day.Taken
		weeks[i].Missed += day.Missed
	}

	for i := range weeks {
		weeks[i].Rate = Rate(weeks[i].Taken, weeks[i].Missed)
	}

	return weeks
}

func weekStart(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset).Format("2006-01-02")
}
