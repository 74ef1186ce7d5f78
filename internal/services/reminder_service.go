// Package services holds background-style domain logic that spans several
// repositories.
package services

import (
	"database/sql"
	"fmt"
	"time"

	"medicine-tracker/internal/database"
	"medicine-tracker/internal/models"
	"medicine-tracker/internal/repository"
	"medicine-tracker/internal/schedule"
)

// ReminderService creates dose-reminder notifications for slots whose time
// has passed today without a recorded status. Notifications are in-app
// only; clients poll for them.
type ReminderService struct {
	medicineRepo     *repository.MedicineRepository
	doseRepo         *repository.DoseRepository
	notificationRepo *repository.NotificationRepository
	loc              *time.Location
}

func NewReminderService(db *database.DB, loc *time.Location) *ReminderService {
	return &ReminderService{
		medicineRepo:     repository.NewMedicineRepository(db),
		doseRepo:         repository.NewDoseRepository(db),
		notificationRepo: repository.NewNotificationRepository(db),
		loc:              loc,
	}
}

// SweepOverdue scans today's due slots for the user and creates one
// reminder per overdue unrecorded slot. The slot-id dedup in the store
// makes repeated sweeps cheap and idempotent.
func (s *ReminderService) SweepOverdue(userID int64) error {
	now := time.Now().In(s.loc)
	today := now.Format("2006-01-02")
	nowTime := now.Format("15:04")

	medicines, err := s.medicineRepo.ListActive(userID)
	if err != nil {
		return fmt.Errorf("failed to list medicines: %w", err)
	}
	if len(medicines) == 0 {
		return nil
	}

	recorded, err := s.doseRepo.ListByUserAndDate(userID, today)
	if err != nil {
		return fmt.Errorf("failed to list doses: %w", err)
	}
	seen := make(map[string]bool, len(recorded))
	for _, d := range recorded {
		seen[schedule.SlotID(d.Date, d.MedicineID, d.Time)] = true
	}

	for _, m := range medicines {
		for _, slot := range schedule.DueSlots(m, today) {
			if slot.Time > nowTime || seen[slot.ID()] {
				continue
			}
			notification := &models.Notification{
				UserID:   userID,
				Type:     "dose_reminder",
				Title:    "Medication due",
				Message:  fmt.Sprintf("%s was due at %s", m.Name, slot.Time),
				DoseSlot: sql.NullString{String: slot.ID(), Valid: true},
			}
			if err := s.notificationRepo.CreateForSlot(notification); err != nil {
				return fmt.Errorf("failed to create reminder: %w", err)
			}
		}
	}

	return nil
}
