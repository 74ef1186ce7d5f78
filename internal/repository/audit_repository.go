package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"medicine-tracker/internal/database"
	"medicine-tracker/internal/models"
)

type AuditRepository struct {
	db *database.DB
}

func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Log creates an audit log entry
func (r *AuditRepository) Log(userID sql.NullInt64, action, entityType string, entityID sql.NullInt64, ipAddress, userAgent string) error {
	return r.LogWithDetails(userID, action, entityType, entityID, nil, ipAddress, userAgent)
}

// LogWithDetails creates an audit log entry with a JSON details payload
func (r *AuditRepository) LogWithDetails(userID sql.NullInt64, action, entityType string, entityID sql.NullInt64, details map[string]interface{}, ipAddress, userAgent string) error {
	var detailsJSON sql.NullString
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to marshal audit details: %w", err)
		}
		detailsJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, details, ip_address, user_agent, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`
	_, err := r.db.Exec(query, userID, action, entityType, entityID, detailsJSON,
		sql.NullString{String: ipAddress, Valid: ipAddress != ""},
		sql.NullString{String: userAgent, Valid: userAgent != ""})
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// ListByUser retrieves recent audit entries for a user
func (r *AuditRepository) ListByUser(userID int64, limit int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, user_id, action, entity_type, entity_id, details, ip_address, user_agent, timestamp
		FROM audit_logs
		WHERE user_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.EntityType, &l.EntityID, &l.Details, &l.IPAddress, &l.UserAgent, &l.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, &l)
	}

	return logs, rows.Err()
}
