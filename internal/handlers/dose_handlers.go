package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"medicine-tracker/internal/database"
	"medicine-tracker/internal/middleware"
	"medicine-tracker/internal/models"
	"medicine-tracker/internal/repository"
	"medicine-tracker/internal/schedule"

	"github.com/go-chi/chi/v5"
)

// DoseSlotResponse represents one dose slot for a day, recorded or not.
// Unrecorded slots surface with status "scheduled" and no recorded fields.
type DoseSlotResponse struct {
	ID           string  `json:"id"`
	MedicineID   int64   `json:"medicineId"`
	MedicineName string  `json:"medicineName"`
	Dosage       string  `json:"dosage,omitempty"`
	Date         string  `json:"date"`
	Time         string  `json:"time"`
	Status       string  `json:"status"`
	TakenAt      *string `json:"takenAt,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

// UpdateDoseRequest represents the request body for recording a dose status
type UpdateDoseRequest struct {
	Status  string  `json:"status"`
	TakenAt *string `json:"takenAt,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

// BulkUpdateRequest represents a bulk status update for one date
type BulkUpdateRequest struct {
	Doses []BulkDoseItem `json:"doses"`
}

// BulkDoseItem is one slot update within a bulk request. ID is a full slot
// id; its date must match the date in the request path.
type BulkDoseItem struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// BulkDoseResult is the per-item outcome of a bulk update
type BulkDoseResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// HandleGetDosesByDate expands the user's active medicines into dose slots
// for one date and overlays recorded statuses.
func HandleGetDosesByDate(db *database.DB) http.HandlerFunc {
	medicineRepo := repository.NewMedicineRepository(db)
	doseRepo := repository.NewDoseRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.GetUserID(r.Context())
		if userID == 0 {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		date, err := schedule.ParseDate(chi.URLParam(r, "date"))
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		medicines, err := medicineRepo.ListActive(userID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to retrieve medicines")
			return
		}

		// One query for the date, then an in-memory overlay per slot
		recorded, err := doseRepo.ListByUserAndDate(userID, date)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to retrieve doses")
			return
		}
		byKey := make(map[string]*models.Dose, len(recorded))
		for _, d := range recorded {
			byKey[schedule.SlotID(d.Date, d.MedicineID, d.Time)] = d
		}

		slots := []*DoseSlotResponse{}
		for _, m := range medicines {
			for _, slot := range schedule.DueSlots(m, date) {
				resp := &DoseSlotResponse{
					ID:           slot.ID(),
					MedicineID:   m.ID,
					MedicineName: m.Name,
					Dosage:       m.Dosage.String,
					Date:         slot.Date,
					Time:         slot.Time,
					Status:       string(models.StatusScheduled),
				}
				if dose, ok := byKey[slot.ID()]; ok {
					resp.Status = string(dose.Status)
					resp.Notes = dose.Notes.String
					if dose.TakenAt.Valid {
						takenAt := dose.TakenAt.Time.Format(time.RFC3339)
						resp.TakenAt = &takenAt
					}
				}
				slots = append(slots, resp)
			}
		}

		respondJSON(w, http.StatusOK, slots)
	}
}

// HandleGetDoseHistory returns recorded doses in a date range, newest first
func HandleGetDoseHistory(db *database.DB, loc *time.Location) http.HandlerFunc {
	doseRepo := repository.NewDoseRepository(db)

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

		limit := 500
		if v := r.URL.Query().Get("limit"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 1 || parsed > 1000 {
				respondError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
				return
			}
			limit = parsed
		}

		history, err := doseRepo.ListByUserAndDateRange(userID, from, to, limit)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to retrieve dose history")
			return
		}

		responses := make([]*DoseSlotResponse, 0, len(history))
		for _, d := range history {
			resp := &DoseSlotResponse{
				ID:           schedule.SlotID(d.Date, d.MedicineID, d.Time),
				MedicineID:   d.MedicineID,
				MedicineName: d.MedicineName,
				Dosage:       d.MedicineDosage.String,
				Date:         d.Date,
				Time:         d.Time,
				Status:       string(d.Status),
				Notes:        d.Notes.String,
			}
			if d.TakenAt.Valid {
				takenAt := d.TakenAt.Time.Format(time.RFC3339)
				resp.TakenAt = &takenAt
			}
			responses = append(responses, resp)
		}

		respondJSON(w, http.StatusOK, responses)
	}
}

// HandleUpdateDose records a status for one dose slot. The slot id in the
// path carries the date, medicine and time; repeated updates overwrite the
// same record.
func HandleUpdateDose(db *database.DB) http.HandlerFunc {
	medicineRepo := repository.NewMedicineRepository(db)
	doseRepo := repository.NewDoseRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.GetUserID(r.Context())
		if userID == 0 {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		slot, err := schedule.ParseSlotID(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		var req UpdateDoseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		status, err := models.NormalizeStatus(req.Status)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid status: use taken, missed, skipped or scheduled")
			return
		}

		dose, medicine, msg := recordDose(medicineRepo, doseRepo, userID, slot, status, req.TakenAt, req.Notes)
		if msg != "" {
			code := http.StatusBadRequest
			if msg == "Medicine not found" {
				code = http.StatusNotFound
			}
			respondError(w, code, msg)
			return
		}

		_ = auditRepo.LogWithDetails(
			sql.NullInt64{Int64: userID, Valid: true},
			"dose_recorded",
			"dose",
			sql.NullInt64{Int64: dose.ID, Valid: true},
			map[string]interface{}{"slot": slot.ID(), "status": string(status)},
			getIPAddress(r),
			r.Header.Get("User-Agent"),
		)

		resp := &DoseSlotResponse{
			ID:           slot.ID(),
			MedicineID:   dose.MedicineID,
			MedicineName: medicine.Name,
			Dosage:       medicine.Dosage.String,
			Date:         dose.Date,
			Time:         dose.Time,
			Status:       string(dose.Status),
			Notes:        dose.Notes.String,
		}
		if dose.TakenAt.Valid {
			takenAt := dose.TakenAt.Time.Format(time.RFC3339)
			resp.TakenAt = &takenAt
		}

		respondJSON(w, http.StatusOK, resp)
	}
}

// HandleBulkUpdateDoses records statuses for several slots on one date.
// Items are applied independently; the response carries a result per item.
func HandleBulkUpdateDoses(db *database.DB) http.HandlerFunc {
	medicineRepo := repository.NewMedicineRepository(db)
	doseRepo := repository.NewDoseRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.GetUserID(r.Context())
		if userID == 0 {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		date, err := schedule.ParseDate(chi.URLParam(r, "date"))
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		var req BulkUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if len(req.Doses) == 0 {
			respondError(w, http.StatusBadRequest, "doses must not be empty")
			return
		}

		results := make([]BulkDoseResult, 0, len(req.Doses))
		succeeded := 0
		for _, item := range req.Doses {
			result := BulkDoseResult{ID: item.ID}

			slot, err := schedule.ParseSlotID(item.ID)
			if err != nil {
				result.Error = "invalid dose id"
				results = append(results, result)
				continue
			}
			if slot.Date != date {
				result.Error = "dose id date does not match request date"
				results = append(results, result)
				continue
			}

			status, err := models.NormalizeStatus(item.Status)
			if err != nil {
				result.Error = "invalid status"
				results = append(results, result)
				continue
			}

			if _, _, msg := recordDose(medicineRepo, doseRepo, userID, slot, status, nil, nil); msg != "" {
				result.Error = msg
				results = append(results, result)
				continue
			}

			result.Success = true
			succeeded++
			results = append(results, result)
		}

		_ = auditRepo.LogWithDetails(
			sql.NullInt64{Int64: userID, Valid: true},
			"doses_bulk_recorded",
			"dose",
			sql.NullInt64{Valid: false},
			map[string]interface{}{"date": date, "total": len(results), "succeeded": succeeded},
			getIPAddress(r),
			r.Header.Get("User-Agent"),
		)

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"results":   results,
			"succeeded": succeeded,
			"failed":    len(results) - succeeded,
		})
	}
}

// recordDose validates a slot against its medicine's schedule and writes
// the status. Returns a user-facing message on validation failure.
func recordDose(medicineRepo *repository.MedicineRepository, doseRepo *repository.DoseRepository,
	userID int64, slot schedule.SlotRef, status models.DoseStatus, takenAtParam, notes *string) (*models.Dose, *models.Medicine, string) {

	if !schedule.ValidTime(slot.Time) {
		return nil, nil, "Invalid time: use zero-padded 24h HH:MM"
	}

	medicine, err := medicineRepo.GetActiveByID(slot.MedicineID, userID)
	if err == repository.ErrNotFound {
		return nil, nil, "Medicine not found"
	}
	if err != nil {
		return nil, nil, "An error occurred"
	}

	if !schedule.HasTime(medicine, slot.Time) {
		return nil, nil, "Time is not part of the medicine's schedule"
	}
	if !schedule.Due(medicine, slot.Date) {
		return nil, nil, "Medicine is not scheduled on this date"
	}

	// taken_at is only meaningful for taken doses; re-marking a slot to any
	// other status clears it
	var takenAt sql.NullTime
	if status == models.StatusTaken {
		takenAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
		if takenAtParam != nil && *takenAtParam != "" {
			parsed, err := time.Parse(time.RFC3339, *takenAtParam)
			if err != nil {
				return nil, nil, "Invalid takenAt: use RFC3339"
			}
			takenAt = sql.NullTime{Time: parsed.UTC(), Valid: true}
		}
	}

	dose, err := doseRepo.UpsertStatus(userID, slot.MedicineID, slot.Date, slot.Time, status, takenAt, nullString(notes))
	if err != nil {
		return nil, nil, "Failed to record dose"
	}
	return dose, medicine, ""
}

// parseRangeParams reads from/to query params, defaulting to the trailing
// defaultDays window ending today.
func parseRangeParams(r *http.Request, loc *time.Location, defaultDays int) (from, to string, err error) {
	today := schedule.Today(loc)

	to = r.URL.Query().Get("to")
	if to == "" {
		to = today
	} else if to, err = schedule.ParseDate(to); err != nil {
		return "", "", err
	}

	from = r.URL.Query().Get("from")
	if from == "" {
		t, _ := time.Parse("2006-01-02", to)
		from = t.AddDate(0, 0, -(defaultDays - 1)).Format("2006-01-02")
	} else if from, err = schedule.ParseDate(from); err != nil {
		return "", "", err
	}

	if from > to {
		return "", "", errRange
	}
	return from, to, nil
}

var errRange = errors.New("from must not be after to")
