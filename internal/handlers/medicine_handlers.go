package handlers

import (
	"database/sql"
	"encoding/json"
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

// CreateMedicineRequest represents the request body for creating a medicine
type CreateMedicineRequest struct {
	Name         string   `json:"name"`
	Dosage       *string  `json:"dosage,omitempty"`
	Instructions *string  `json:"instructions,omitempty"`
	Times        []string `json:"times"`
	StartDate    string   `json:"startDate"`
	EndDate      *string  `json:"endDate,omitempty"`
}

// UpdateMedicineRequest represents the request body for updating a medicine
type UpdateMedicineRequest struct {
	Name         *string  `json:"name,omitempty"`
	Dosage       *string  `json:"dosage,omitempty"`
	Instructions *string  `json:"instructions,omitempty"`
	Times        []string `json:"times,omitempty"`
	StartDate    *string  `json:"startDate,omitempty"`
	EndDate      *string  `json:"endDate,omitempty"`
	IsActive     *bool    `json:"isActive,omitempty"`
}

// MedicineResponse represents a medicine in responses
type MedicineResponse struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Dosage       string   `json:"dosage,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
	Times        []string `json:"times"`
	StartDate    string   `json:"startDate"`
	EndDate      *string  `json:"endDate,omitempty"`
	IsActive     bool     `json:"isActive"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
}

func medicineResponse(m *models.Medicine) *MedicineResponse {
	return &MedicineResponse{
		ID:           m.ID,
		Name:         m.Name,
		Dosage:       m.Dosage.String,
		Instructions: m.Instructions.String,
		Times:        m.Times,
		StartDate:    m.StartDate,
		EndDate:      nullStringToPtr(m.EndDate),
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    m.UpdatedAt.Format(time.RFC3339),
	}
}

func medicineResponses(medicines []*models.Medicine) []*MedicineResponse {
	responses := make([]*MedicineResponse, 0, len(medicines))
	for _, m := range medicines {
		responses = append(responses, medicineResponse(m))
	}
	return responses
}

// validateSchedule checks times and the start/end date window
func validateSchedule(times []string, startDate string, endDate *string) string {
	if err := schedule.ValidateTimes(times); err != nil {
		return err.Error()
	}
	if _, err := schedule.ParseDate(startDate); err != nil {
		return "Invalid startDate, use YYYY-MM-DD"
	}
	if endDate != nil && *endDate != "" {
		if _, err := schedule.ParseDate(*endDate); err != nil {
			return "Invalid endDate, use YYYY-MM-DD"
		}
		if *endDate < startDate {
			return "endDate must not be before startDate"
		}
	}
	return ""
}

// HandleListMedicines returns the user's medicines
func HandleListMedicines(db *database.DB) http.HandlerFunc {
	medicineRepo := repository.NewMedicineRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.GetUserID(r.Context())
		if userID == 0 {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var medicines []*models.Medicine
		var err error
		if r.URL.Query().Get("filter") == "active" {
			medicines, err = medicineRepo.ListActive(userID)
		} else {
			medicines, err = medicineRepo.List(userID)
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to retrieve medicines")
			return
		}

		respondJSON(w, http.StatusOK, medicineResponses(medicines))
	}
}

// HandleGetMedicine returns a single medicine by id
func HandleGetMedicine(db *database.DB) http.HandlerFunc {
	medicineRepo := repository.NewMedicineRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.GetUserID(r.Context())
		if userID == 0 {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid medicine ID")
			return
		}

		medicine, err := medicineRepo.GetByID(id, userID)
		if err == repository.ErrNotFound {
			respondError(w, http.StatusNotFound, "Medicine not found")
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "An error occurred")
			return
		}

		respondJSON(w, http.StatusOK, medicineResponse(medicine))
	}
}

// HandleCreateMedicine creates a new medicine schedule
func HandleCreateMedicine(db *database.DB) http.HandlerFunc {
	medicineRepo := repository.NewMedicineRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.GetUserID(r.Context())
		if userID == 0 {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req CreateMedicineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Name == "" {
			respondError(w, http.StatusBadRequest, "name is required")
			return
		}
		if msg := validateSchedule(req.Times, req.StartDate, req.EndDate); msg != "" {
			respondError(w, http.StatusBadRequest, msg)
			return
		}

		medicine := &models.Medicine{
			UserID:       userID,
			Name:         req.Name,
			Dosage:       nullString(req.Dosage),
			Instructions: nullString(req.Instructions),
			Times:        req.Times,
			StartDate:    req.StartDate,
			EndDate:      nullString(req.EndDate),
			IsActive:     true,
		}

		if err := medicineRepo.Create(medicine); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to create medicine")
			return
		}

		_ = auditRepo.LogWithDetails(
			sql.NullInt64{Int64: userID, Valid: true},
			"medicine_created",
			"medicine",
			sql.NullInt64{Int64: medicine.ID, Valid: true},
			map[string]interface{}{"name": medicine.Name},
			getIPAddress(r),
			r.Header.Get("User-Agent"),
		)

		respondJSON(w, http.StatusCreated, medicineResponse(medicine))
	}
}

// HandleUpdateMedicine updates an existing medicine schedule
func HandleUpdateMedicine(db *database.DB) http.HandlerFunc {
	medicineRepo := repository.NewMedicineRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.GetUserID(r.Context())
		if userID == 0 {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid medicine ID")
			return
		}

		var req UpdateMedicineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		medicine, err := medicineRepo.GetByID(id, userID)
		if err == repository.ErrNotFound {
			respondError(w, http.StatusNotFound, "Medicine not found")
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "An error occurred")
			return
		}

		if req.Name != nil {
			if *req.Name == "" {
				respondError(w, http.StatusBadRequest, "name must not be empty")
				return
			}
			medicine.Name = *req.Name
		}
		if req.Dosage != nil {
			medicine.Dosage = nullString(req.Dosage)
		}
		if req.Instructions != nil {
			medicine.Instructions = nullString(req.Instructions)
		}
		if req.Times != nil {
			medicine.Times = req.Times
		}
		if req.StartDate != nil {
			medicine.StartDate = *req.StartDate
		}
		if req.EndDate != nil {
			medicine.EndDate = nullString(req.EndDate)
		}
		if req.IsActive != nil {
			medicine.IsActive = *req.IsActive
		}

		endDate := nullStringToPtr(medicine.EndDate)
		if msg := validateSchedule(medicine.Times, medicine.StartDate, endDate); msg != "" {
			respondError(w, http.StatusBadRequest, msg)
			return
		}

		if err := medicineRepo.Update(medicine); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to update medicine")
			return
		}

		_ = auditRepo.LogWithDetails(
			sql.NullInt64{Int64: userID, Valid: true},
			"medicine_updated",
			"medicine",
			sql.NullInt64{Int64: medicine.ID, Valid: true},
			map[string]interface{}{"name": medicine.Name},
			getIPAddress(r),
			r.Header.Get("User-Agent"),
		)

		respondJSON(w, http.StatusOK, medicineResponse(medicine))
	}
}

// HandleDeleteMedicine deactivates a medicine. History is kept; the
// medicine stops generating due slots from now on.
func HandleDeleteMedicine(db *database.DB) http.HandlerFunc {
	medicineRepo := repository.NewMedicineRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.GetUserID(r.Context())
		if userID == 0 {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid medicine ID")
			return
		}

		if err := medicineRepo.Deactivate(id, userID); err == repository.ErrNotFound {
			respondError(w, http.StatusNotFound, "Medicine not found")
			return
		} else if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to delete medicine")
			return
		}

		_ = auditRepo.Log(
			sql.NullInt64{Int64: userID, Valid: true},
			"medicine_deleted",
			"medicine",
			sql.NullInt64{Int64: id, Valid: true},
			getIPAddress(r),
			r.Header.Get("User-Agent"),
		)

		respondJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
