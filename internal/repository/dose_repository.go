package repository

import (
	"database/sql"
	"fmt"

	"medicine-tracker/internal/database"
	"medicine-tracker/internal/models"
	"medicine-tracker/internal/schedule"
)

type DoseRepository struct {
	db *database.DB
}

func NewDoseRepository(db *database.DB) *DoseRepository {
	return &DoseRepository{db: db}
}

// SlotState is the result of looking up a dose slot. A slot with no stored
// record is implicitly scheduled; Recorded distinguishes that default from a
// row whose status happens to be "scheduled".
type SlotState struct {
	Recorded bool
	Dose     *models.Dose
}

// Status returns the slot's effective status
func (s SlotState) Status() models.DoseStatus {
	if !s.Recorded {
		return models.StatusScheduled
	}
	return s.Dose.Status
}

// DoseWithMedicine is a dose row joined with its medicine's display fields
type DoseWithMedicine struct {
	models.Dose
	MedicineName   string
	MedicineDosage sql.NullString
}

// UpsertStatus writes a status for a slot as a single atomic conditional
// write: insert when no record exists for the natural key, otherwise
// overwrite status, taken_at and notes in place. The UNIQUE index on
// (user_id, medicine_id, date, time) makes concurrent writes for the same
// slot serialize instead of duplicating. Returns the stored record.
func (r *DoseRepository) UpsertStatus(userID, medicineID int64, date, timeOfDay string, status models.DoseStatus, takenAt sql.NullTime, notes sql.NullString) (*models.Dose, error) {
	query := `
		INSERT INTO doses (user_id, medicine_id, date, time, status, taken_at, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, medicine_id, date, time) DO UPDATE SET
			status = excluded.status,
			taken_at = excluded.taken_at,
			notes = COALESCE(excluded.notes, doses.notes),
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := r.db.Exec(query, userID, medicineID, date, timeOfDay, status, takenAt, notes)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert dose status: %w", err)
	}

	state, err := r.GetSlotState(userID, medicineID, date, timeOfDay)
	if err != nil {
		return nil, err
	}
	if !state.Recorded {
		return nil, fmt.Errorf("failed to read back dose record")
	}
	return state.Dose, nil
}

// GetSlotState looks up the stored record for a slot, if any
func (r *DoseRepository) GetSlotState(userID, medicineID int64, date, timeOfDay string) (SlotState, error) {
	query := `
		SELECT id, user_id, medicine_id, date, time, status, taken_at, notes, created_at, updated_at
		FROM doses
		WHERE user_id = ? AND medicine_id = ? AND date = ? AND time = ?
	`
	dose, err := scanDose(r.db.QueryRow(query, userID, medicineID, date, timeOfDay))
	if err == sql.ErrNoRows {
		return SlotState{}, nil
	}
	if err != nil {
		return SlotState{}, fmt.Errorf("failed to get dose: %w", err)
	}
	return SlotState{Recorded: true, Dose: dose}, nil
}

// ListByUserAndDate retrieves a user's stored dose records for one date
func (r *DoseRepository) ListByUserAndDate(userID int64, date string) ([]*models.Dose, error) {
	query := `
		SELECT id, user_id, medicine_id, date, time, status, taken_at, notes, created_at, updated_at
		FROM doses
		WHERE user_id = ? AND date = ?
		ORDER BY time
	`
	return r.queryDoses(query, userID, date)
}

// ListByUserAndDateRange retrieves a user's stored dose records within an
// inclusive date range, joined with medicine display fields, newest first
func (r *DoseRepository) ListByUserAndDateRange(userID int64, from, to string, limit int) ([]*DoseWithMedicine, error) {
	query := `
		SELECT d.id, d.user_id, d.medicine_id, d.date, d.time, d.status, d.taken_at, d.notes, d.created_at, d.updated_at,
		       m.name, m.dosage
		FROM doses d
		JOIN medicines m ON m.id = d.medicine_id
		WHERE d.user_id = ? AND d.date >= ? AND d.date <= ?
		ORDER BY d.date DESC, d.time
		LIMIT ?
	`
	rows, err := r.db.Query(query, userID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list doses by date range: %w", err)
	}
	defer rows.Close()

	var doses []*DoseWithMedicine
	for rows.Next() {
		var d DoseWithMedicine
		err := rows.Scan(
			&d.ID,
			&d.UserID,
			&d.MedicineID,
			&d.Date,
			&d.Time,
			&d.Status,
			&d.TakenAt,
			&d.Notes,
			&d.CreatedAt,
			&d.UpdatedAt,
			&d.MedicineName,
			&d.MedicineDosage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dose: %w", err)
		}
		doses = append(doses, &d)
	}

	return doses, rows.Err()
}

// StatusMap retrieves a user's stored statuses within an inclusive date
// range, keyed by canonical slot id. Used by the adherence aggregator so a
// range query costs one round trip instead of one per slot.
func (r *DoseRepository) StatusMap(userID int64, from, to string) (map[string]models.DoseStatus, error) {
	query := `
		SELECT medicine_id, date, time, status
		FROM doses
		WHERE user_id = ? AND date >= ? AND date <= ?
	`
	rows, err := r.db.Query(query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load dose statuses: %w", err)
	}
	defer rows.Close()

	statuses := make(map[string]models.DoseStatus)
	for rows.Next() {
		var medicineID int64
		var date, timeOfDay string
		var status models.DoseStatus
		if err := rows.Scan(&medicineID, &date, &timeOfDay, &status); err != nil {
			return nil, fmt.Errorf("failed to scan dose status: %w", err)
		}
		statuses[schedule.SlotID(date, medicineID, timeOfDay)] = status
	}

	return statuses, rows.Err()
}

func (r *DoseRepository) queryDoses(query string, args ...interface{}) ([]*models.Dose, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list doses: %w", err)
	}
	defer rows.Close()

	var doses []*models.Dose
	for rows.Next() {
		dose, err := scanDose(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dose: %w", err)
		}
		doses = append(doses, dose)
	}

	return doses, rows.Err()
}

func scanDose(row rowScanner) (*models.Dose, error) {
	var dose models.Dose
	err := row.Scan(
		&dose.ID,
		&dose.UserID,
		&dose.MedicineID,
		&dose.Date,
		&dose.Time,
		&dose.Status,
		&dose.TakenAt,
		&dose.Notes,
		&dose.CreatedAt,
		&dose.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &dose, nil
}
