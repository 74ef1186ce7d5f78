package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"medicine-tracker/internal/database"
	"medicine-tracker/internal/models"
)

type MedicineRepository struct {
	db *database.DB
}

func NewMedicineRepository(db *database.DB) *MedicineRepository {
	return &MedicineRepository{db: db}
}

// Create creates a new medicine
func (r *MedicineRepository) Create(medicine *models.Medicine) error {
	times, err := json.Marshal(medicine.Times)
	if err != nil {
		return fmt.Errorf("failed to encode times: %w", err)
	}

	query := `
		INSERT INTO medicines (user_id, name, dosage, instructions, times, start_date, end_date, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`
	result, err := r.db.Exec(query,
		medicine.UserID,
		medicine.Name,
		medicine.Dosage,
		medicine.Instructions,
		string(times),
		medicine.StartDate,
		medicine.EndDate,
		medicine.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to create medicine: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	medicine.ID = id
	return nil
}

// GetByID retrieves a medicine owned by the given user
func (r *MedicineRepository) GetByID(id, userID int64) (*models.Medicine, error) {
	query := `
		SELECT id, user_id, name, dosage, instructions, times, start_date, end_date, is_active, created_at, updated_at
		FROM medicines
		WHERE id = ? AND user_id = ?
	`
	row := r.db.QueryRow(query, id, userID)
	medicine, err := scanMedicine(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get medicine: %w", err)
	}
	return medicine, nil
}

// GetActiveByID retrieves an active medicine owned by the given user.
// Inactive medicines are indistinguishable from missing ones to callers.
func (r *MedicineRepository) GetActiveByID(id, userID int64) (*models.Medicine, error) {
	medicine, err := r.GetByID(id, userID)
	if err != nil {
		return nil, err
	}
	if !medicine.IsActive {
		return nil, ErrNotFound
	}
	return medicine, nil
}

// Update updates a medicine's editable fields
func (r *MedicineRepository) Update(medicine *models.Medicine) error {
	times, err := json.Marshal(medicine.Times)
	if err != nil {
		return fmt.Errorf("failed to encode times: %w", err)
	}

	query := `
		UPDATE medicines
		SET name = ?, dosage = ?, instructions = ?, times = ?, start_date = ?, end_date = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?
	`
	_, err = r.db.Exec(query,
		medicine.Name,
		medicine.Dosage,
		medicine.Instructions,
		string(times),
		medicine.StartDate,
		medicine.EndDate,
		medicine.IsActive,
		medicine.ID,
		medicine.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update medicine: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a medicine. Rows are never hard-deleted so that
// historical dose records keep a valid medicine reference.
func (r *MedicineRepository) Deactivate(id, userID int64) error {
	query := `UPDATE medicines SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ?`
	result, err := r.db.Exec(query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate medicine: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// List retrieves all of a user's medicines, active or not
func (r *MedicineRepository) List(userID int64) ([]*models.Medicine, error) {
	query := `
		SELECT id, user_id, name, dosage, instructions, times, start_date, end_date, is_active, created_at, updated_at
		FROM medicines
		WHERE user_id = ?
		ORDER BY name
	`
	return r.queryMedicines(query, userID)
}

// ListActive retrieves a user's active medicines
func (r *MedicineRepository) ListActive(userID int64) ([]*models.Medicine, error) {
	query := `
		SELECT id, user_id, name, dosage, instructions, times, start_date, end_date, is_active, created_at, updated_at
		FROM medicines
		WHERE user_id = ? AND is_active = 1
		ORDER BY name
	`
	return r.queryMedicines(query, userID)
}

func (r *MedicineRepository) queryMedicines(query string, args ...interface{}) ([]*models.Medicine, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list medicines: %w", err)
	}
	defer rows.Close()

	var medicines []*models.Medicine
	for rows.Next() {
		medicine, err := scanMedicine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan medicine: %w", err)
		}
		medicines = append(medicines, medicine)
	}

	return medicines, rows.Err()
}

func scanMedicine(row rowScanner) (*models.Medicine, error) {
	var medicine models.Medicine
	var times string
	err := row.Scan(
		&medicine.ID,
		&medicine.UserID,
		&medicine.Name,
		&medicine.Dosage,
		&medicine.Instructions,
		&times,
		&medicine.StartDate,
		&medicine.EndDate,
		&medicine.IsActive,
		&medicine.CreatedAt,
		&medicine.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(times), &medicine.Times); err != nil {
		return nil, fmt.Errorf("failed to decode times for medicine %d: %w", medicine.ID, err)
	}
	return &medicine, nil
}
