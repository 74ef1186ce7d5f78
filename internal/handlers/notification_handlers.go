package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"medicine-tracker/internal/database"
	"medicine-tracker/internal/middleware"
	"medicine-tracker/internal/models"
	"medicine-tracker/internal/repository"
	"medicine-tracker/internal/services"

	"github.com/go-chi/chi/v5"
)

// NotificationResponse represents a notification in responses
type NotificationResponse struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	DoseSlot  string `json:"doseSlot,omitempty"`
	IsRead    bool   `json:"isRead"`
	CreatedAt string `json:"createdAt"`
}

func notificationResponses(notifications []*models.Notification) []*NotificationResponse {
	responses := make([]*NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		responses = append(responses, &NotificationResponse{
			ID:        n.ID,
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			DoseSlot:  n.DoseSlot.String,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		})
	}
	return responses
}

// HandleListNotifications returns the user's notifications. Each poll also
// sweeps today's overdue slots so reminders appear without a scheduler.
func HandleListNotifications(db *database.DB, reminders *services.ReminderService) http.HandlerFunc {
	notificationRepo := repository.NewNotificationRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.GetUserID(r.Context())
		if userID == 0 {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if err := reminders.SweepOverdue(userID); err != nil {
			// Stale reminders are better than a failed poll
			log.Printf("Reminder sweep failed for user %d: %v", userID, err)
		}

		unreadOnly := r.URL.Query().Get("filter") == "unread"
		notifications, err := notificationRepo.ListByUser(userID, unreadOnly, 100)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to retrieve notifications")
			return
		}

		respondJSON(w, http.StatusOK, notificationResponses(notifications))
	}
}

// HandleMarkNotificationRead marks one notification as read
func HandleMarkNotificationRead(db *database.DB) http.HandlerFunc {
	notificationRepo := repository.NewNotificationRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.GetUserID(r.Context())
		if userID == 0 {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid notification ID")
			return
		}

		if err := notificationRepo.MarkRead(id, userID); err == repository.ErrNotFound {
			respondError(w, http.StatusNotFound, "Notification not found")
			return
		} else if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to update notification")
			return
		}

		respondJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
