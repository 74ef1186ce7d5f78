package handlers

import (
	"net/http"
	"time"

	"medicine-tracker/internal/adherence"
	"medicine-tracker/internal/database"
	"medicine-tracker/internal/middleware"
	"medicine-tracker/internal/models"
	"medicine-tracker/internal/repository"
	"medicine-tracker/internal/schedule"
)

// AdherenceResponse is the full adherence report for a range
type AdherenceResponse struct {
	From    string              `json:"from"`
	To      string              `json:"to"`
	Days    []adherence.DayCount `json:"days"`
	Summary adherence.Summary    `json:"summary"`
}

// loadAdherenceInputs fetches the schedule and recorded statuses the
// aggregator needs for one user and range.
func loadAdherenceInputs(db *database.DB, userID int64, from, to string) ([]*models.Medicine, map[string]models.DoseStatus, error) {
	medicines, err := repository.NewMedicineRepository(db).ListActive(userID)
	if err != nil {
		return nil, nil, err
	}
	recorded, err := repository.NewDoseRepository(db).StatusMap(userID, from, to)
	if err != nil {
		return nil, nil, err
	}
	return medicines, recorded, nil
}

// HandleGetAdherence returns per-day counts and a summary for a range
func HandleGetAdherence(db *database.DB, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.GetUserID(r.Context())
		if userID == 0 {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		from, to, err := parseRangeParams(r, loc, 30)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		medicines, recorded, err := loadAdherenceInputs(db, userID, from, to)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to compute adherence")
			return
		}

		days := adherence.Daily(medicines, recorded, from, to, schedule.Today(loc))
		respondJSON(w, http.StatusOK, AdherenceResponse{
			From:    from,
			To:      to,
			Days:    days,
			Summary: adherence.Summarize(days),
		})
	}
}

// HandleGetMedicineAdherence returns per-medicine counts for a range
func HandleGetMedicineAdherence(db *database.DB, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.GetUserID(r.Context())
		if userID == 0 {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		from, to, err := parseRangeParams(r, loc, 30)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		medicines, recorded, err := loadAdherenceInputs(db, userID, from, to)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to compute adherence")
			return
		}

		counts := adherence.PerMedicine(medicines, recorded, from, to, schedule.Today(loc))
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"from":      from,
			"to":        to,
			"medicines": counts,
		})
	}
}

// HandleGetSummary returns range totals and streaks without the day series
func HandleGetSummary(db *database.DB, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.GetUserID(r.Context())
		if userID == 0 {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		from, to, err := parseRangeParams(r, loc, 30)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		medicines, recorded, err := loadAdherenceInputs(db, userID, from, to)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to compute adherence")
			return
		}

		days := adherence.Daily(medicines, recorded, from, to, schedule.Today(loc))
		respondJSON(w, http.StatusOK, adherence.Summarize(days))
	}
}

// periodDays maps a trend period to its trailing window length. Unknown
// values fall back to a week, matching what trend charts expect by default.
func periodDays(period string) (string, int) {
	switch period {
	case "month":
		return "month", 30
	case "quarter":
		return "quarter", 90
	}
	return "week", 7
}

// HandleGetTrends returns weekly adherence buckets plus per-medicine rates
// over a trailing window selected by ?period=week|month|quarter.
func HandleGetTrends(db *database.DB, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.GetUserID(r.Context())
		if userID == 0 {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		period, days := periodDays(r.URL.Query().Get("period"))
		today := schedule.Today(loc)
		t, _ := time.Parse("2006-01-02", today)
		from := t.AddDate(0, 0, -(days - 1)).Format("2006-01-02")

		medicines, recorded, err := loadAdherenceInputs(db, userID, from, today)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to compute adherence")
			return
		}

		daily := adherence.Daily(medicines, recorded, from, today, today)
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"period":    period,
			"from":      from,
			"to":        today,
			"weeks":     adherence.Weekly(daily),
			"medicines": adherence.PerMedicine(medicines, recorded, from, today, today),
		})
	}
}
