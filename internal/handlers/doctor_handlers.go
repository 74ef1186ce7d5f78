package handlers

import (
	"net/http"
	"strconv"
	"time"

	"medicine-tracker/internal/access"
	"medicine-tracker/internal/adherence"
	"medicine-tracker/internal/database"
	"medicine-tracker/internal/middleware"
	"medicine-tracker/internal/models"
	"medicine-tracker/internal/repository"
	"medicine-tracker/internal/schedule"

	"github.com/go-chi/chi/v5"
)

// PatientSummary is one row in the doctor's patient list
type PatientSummary struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	MedicineCount int    `json:"medicineCount"`
	LastLogin     string `json:"lastLogin,omitempty"`
}

// PatientAdherence is one row in the doctor's overview
type PatientAdherence struct {
	ID      int64             `json:"id"`
	Name    string            `json:"name"`
	Summary adherence.Summary `json:"summary"`
}

// requirePatientAccess resolves the {id} path param and checks the actor
// may read that user's data. Writes the error response itself and returns
// 0 when access is denied.
func requirePatientAccess(w http.ResponseWriter, r *http.Request) int64 {
	actorID := middleware.GetUserID(r.Context())
	if actorID == 0 {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return 0
	}

	targetID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid patient ID")
		return 0
	}

	if !access.CanAccess(actorID, middleware.GetRole(r.Context()), targetID, access.OpRead) {
		respondError(w, http.StatusForbidden, "Access denied")
		return 0
	}

	return targetID
}

// HandleListPatients lists all patients and caregivers with their active
// medicine counts
func HandleListPatients(db *database.DB) http.HandlerFunc {
	userRepo := repository.NewUserRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		users, err := userRepo.ListByRoles([]string{models.RolePatient, models.RoleCaregiver})
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to retrieve patients")
			return
		}

		summaries := make([]*PatientSummary, 0, len(users))
		for _, u := range users {
			count, err := userRepo.CountMedicines(u.ID)
			if err != nil {
				respondError(w, http.StatusInternalServerError, "Failed to retrieve patients")
				return
			}
			summary := &PatientSummary{
				ID:            u.ID,
				Email:         u.Email,
				Name:          u.FullName(),
				Role:          u.Role,
				MedicineCount: count,
			}
			if u.LastLogin.Valid {
				summary.LastLogin = u.LastLogin.Time.Format(time.RFC3339)
			}
			summaries = append(summaries, summary)
		}

		respondJSON(w, http.StatusOK, summaries)
	}
}

// HandleGetPatient returns one patient's profile
func HandleGetPatient(db *database.DB) http.HandlerFunc {
	userRepo := repository.NewUserRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		targetID := requirePatientAccess(w, r)
		if targetID == 0 {
			return
		}

		user, err := userRepo.GetByID(targetID)
		if err == repository.ErrNotFound {
			respondError(w, http.StatusNotFound, "Patient not found")
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "An error occurred")
			return
		}

		respondJSON(w, http.StatusOK, userResponse(user))
	}
}

// HandleGetPatientMedicines returns a patient's medicines
func HandleGetPatientMedicines(db *database.DB) http.HandlerFunc {
	medicineRepo := repository.NewMedicineRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		targetID := requirePatientAccess(w, r)
		if targetID == 0 {
			return
		}

		medicines, err := medicineRepo.ListActive(targetID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to retrieve medicines")
			return
		}

		respondJSON(w, http.StatusOK, medicineResponses(medicines))
	}
}

// HandleGetPatientDoses returns a patient's recorded dose history
func HandleGetPatientDoses(db *database.DB, loc *time.Location) http.HandlerFunc {
	doseRepo := repository.NewDoseRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		targetID := requirePatientAccess(w, r)
		if targetID == 0 {
			return
		}

		from, to, err := parseRangeParams(r, loc, 30)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		history, err := doseRepo.ListByUserAndDateRange(targetID, from, to, 500)
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

// HandleGetPatientAdherence returns a patient's adherence report
func HandleGetPatientAdherence(db *database.DB, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetID := requirePatientAccess(w, r)
		if targetID == 0 {
			return
		}

		from, to, err := parseRangeParams(r, loc, 30)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		medicines, recorded, err := loadAdherenceInputs(db, targetID, from, to)
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

// HandleGetPatientsOverview computes an adherence summary per patient.
// Works for an empty patient roster, returning an empty list.
func HandleGetPatientsOverview(db *database.DB, loc *time.Location) http.HandlerFunc {
	userRepo := repository.NewUserRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		from, to, err := parseRangeParams(r, loc, 30)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		users, err := userRepo.ListByRoles([]string{models.RolePatient, models.RoleCaregiver})
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to retrieve patients")
			return
		}

		today := schedule.Today(loc)
		overview := make([]*PatientAdherence, 0, len(users))
		for _, u := range users {
			medicines, recorded, err := loadAdherenceInputs(db, u.ID, from, to)
			if err != nil {
				respondError(w, http.StatusInternalServerError, "Failed to compute adherence")
				return
			}
			days := adherence.Daily(medicines, recorded, from, to, today)
			overview = append(overview, &PatientAdherence{
				ID:      u.ID,
				Name:    u.FullName(),
				Summary: adherence.Summarize(days),
			})
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"from":     from,
			"to":       to,
			"patients": overview,
		})
	}
}
