package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"medicine-tracker/internal/auth"
	"medicine-tracker/internal/database"
	"medicine-tracker/internal/middleware"
	"medicine-tracker/internal/models"
	"medicine-tracker/internal/repository"
)

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	User    *UserResponse `json:"user,omitempty"`
	Token   string        `json:"token,omitempty"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"createdAt"`
	LastLogin string `json:"lastLogin,omitempty"`
}

func userResponse(user *models.User) *UserResponse {
	resp := &UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Role:      user.Role,
		FirstName: user.FirstName.String,
		LastName:  user.LastName.String,
		Phone:     user.Phone.String,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
	if user.LastLogin.Valid {
		resp.LastLogin = user.LastLogin.Time.Format(time.RFC3339)
	}
	return resp
}

// HandleRegister handles user registration
func HandleRegister(db *database.DB, jwtManager *auth.JWTManager) http.HandlerFunc {
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || !strings.Contains(req.Email, "@") {
			respondError(w, http.StatusBadRequest, "A valid email is required")
			return
		}

		// Role defaults to patient; unknown roles are rejected
		role := req.Role
		if role == "" {
			role = models.RolePatient
		}
		if !models.ValidRole(role) {
			respondError(w, http.StatusBadRequest, "Invalid role")
			return
		}

		passwordHash, err := auth.HashPassword(req.Password)
		if err == auth.ErrWeakPassword {
			respondError(w, http.StatusBadRequest, "Password must be at least 8 characters")
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to process password")
			return
		}

		user := &models.User{
			Email:        req.Email,
			PasswordHash: passwordHash,
			Role:         role,
			IsActive:     true,
		}
		if req.FirstName != "" {
			user.FirstName = sql.NullString{String: req.FirstName, Valid: true}
		}
		if req.LastName != "" {
			user.LastName = sql.NullString{String: req.LastName, Valid: true}
		}
		if req.Phone != "" {
			user.Phone = sql.NullString{String: req.Phone, Valid: true}
		}

		if _, err := userRepo.GetByEmail(req.Email); err == nil {
			respondError(w, http.StatusConflict, "Email is already registered")
			return
		} else if err != repository.ErrNotFound {
			respondError(w, http.StatusInternalServerError, "An error occurred")
			return
		}

		if err := userRepo.Create(user); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to create user")
			return
		}

		token, err := jwtManager.GenerateToken(user.ID, user.Email, user.Role)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to generate authentication token")
			return
		}

		setAuthCookie(w, token, jwtManager.SessionDuration())

		_ = auditRepo.Log(
			sql.NullInt64{Int64: user.ID, Valid: true},
			"user_registered",
			"user",
			sql.NullInt64{Int64: user.ID, Valid: true},
			getIPAddress(r),
			r.Header.Get("User-Agent"),
		)

		respondJSON(w, http.StatusCreated, AuthResponse{
			Success: true,
			Message: "Registration successful",
			User:    userResponse(user),
			Token:   token,
		})
	}
}

// HandleLogin handles user login with account lockout protection
func HandleLogin(db *database.DB, jwtManager *auth.JWTManager, maxFailedAttempts int, lockoutDuration time.Duration) http.HandlerFunc {
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Email == "" || req.Password == "" {
			respondError(w, http.StatusBadRequest, "Email and password are required")
			return
		}

		ipAddress := getIPAddress(r)
		userAgent := r.Header.Get("User-Agent")

		user, err := userRepo.GetByEmail(req.Email)
		if err == repository.ErrNotFound {
			// Don't reveal that the user doesn't exist
			_ = auditRepo.LogWithDetails(
				sql.NullInt64{Valid: false},
				"login_failed",
				"user",
				sql.NullInt64{Valid: false},
				map[string]interface{}{"reason": "user_not_found"},
				ipAddress,
				userAgent,
			)
			respondError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "An error occurred")
			return
		}

		if !user.IsActive {
			_ = auditRepo.LogWithDetails(
				sql.NullInt64{Int64: user.ID, Valid: true},
				"login_failed",
				"user",
				sql.NullInt64{Int64: user.ID, Valid: true},
				map[string]interface{}{"reason": "account_inactive"},
				ipAddress,
				userAgent,
			)
			respondError(w, http.StatusForbidden, "Account is inactive")
			return
		}

		if user.LockedUntil.Valid && time.Now().Before(user.LockedUntil.Time) {
			_ = auditRepo.LogWithDetails(
				sql.NullInt64{Int64: user.ID, Valid: true},
				"login_failed",
				"user",
				sql.NullInt64{Int64: user.ID, Valid: true},
				map[string]interface{}{"reason": "account_locked"},
				ipAddress,
				userAgent,
			)
			respondError(w, http.StatusForbidden, fmt.Sprintf("Account is locked due to too many failed login attempts. Please try again in %d minutes.", int(lockoutDuration.Minutes())))
			return
		}

		if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
			if err := userRepo.IncrementFailedLogins(user.ID); err != nil {
				log.Printf("Error incrementing failed logins: %v", err)
			}

			user.FailedLoginAttempts++
			if user.FailedLoginAttempts >= maxFailedAttempts {
				lockUntil := time.Now().Add(lockoutDuration)
				if err := userRepo.LockAccount(user.ID, lockUntil); err != nil {
					log.Printf("Error locking account: %v", err)
				}

				_ = auditRepo.LogWithDetails(
					sql.NullInt64{Int64: user.ID, Valid: true},
					"account_locked",
					"user",
					sql.NullInt64{Int64: user.ID, Valid: true},
					map[string]interface{}{"reason": "max_failed_attempts", "attempts": user.FailedLoginAttempts},
					ipAddress,
					userAgent,
				)

				respondError(w, http.StatusForbidden, fmt.Sprintf("Account locked due to too many failed login attempts. Please try again in %d minutes.", int(lockoutDuration.Minutes())))
				return
			}

			_ = auditRepo.LogWithDetails(
				sql.NullInt64{Int64: user.ID, Valid: true},
				"login_failed",
				"user",
				sql.NullInt64{Int64: user.ID, Valid: true},
				map[string]interface{}{"reason": "invalid_password", "attempts": user.FailedLoginAttempts},
				ipAddress,
				userAgent,
			)

			respondError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}

		if err := userRepo.ResetFailedLogins(user.ID); err != nil {
			log.Printf("Error resetting failed logins: %v", err)
		}
		if err := userRepo.UpdateLastLogin(user.ID); err != nil {
			log.Printf("Error updating last login: %v", err)
		}

		token, err := jwtManager.GenerateToken(user.ID, user.Email, user.Role)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to generate authentication token")
			return
		}

		setAuthCookie(w, token, jwtManager.SessionDuration())

		_ = auditRepo.Log(
			sql.NullInt64{Int64: user.ID, Valid: true},
			"login_success",
			"user",
			sql.NullInt64{Int64: user.ID, Valid: true},
			ipAddress,
			userAgent,
		)

		respondJSON(w, http.StatusOK, AuthResponse{
			Success: true,
			Message: "Login successful",
			User:    userResponse(user),
			Token:   token,
		})
	}
}

// HandleLogout clears the auth cookie
func HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     "auth_token",
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		})
		respondJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "Logged out"})
	}
}

// HandleRefreshToken issues a fresh token for the current session
func HandleRefreshToken(db *database.DB, jwtManager *auth.JWTManager) http.HandlerFunc {
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		token := getTokenFromRequest(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "No token provided")
			return
		}

		newToken, err := jwtManager.RefreshToken(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		claims, err := jwtManager.ValidateToken(newToken)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "An error occurred")
			return
		}

		// Refuse to extend sessions for deactivated users
		user, err := userRepo.GetByID(claims.UserID)
		if err != nil || !user.IsActive {
			respondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		setAuthCookie(w, newToken, jwtManager.SessionDuration())

		_ = auditRepo.Log(
			sql.NullInt64{Int64: user.ID, Valid: true},
			"token_refreshed",
			"token",
			sql.NullInt64{Int64: user.ID, Valid: true},
			getIPAddress(r),
			r.Header.Get("User-Agent"),
		)

		respondJSON(w, http.StatusOK, AuthResponse{
			Success: true,
			Message: "Token refreshed successfully",
			Token:   newToken,
		})
	}
}

// HandleGetProfile returns the authenticated user's profile
func HandleGetProfile(db *database.DB) http.HandlerFunc {
	userRepo := repository.NewUserRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.GetUserID(r.Context())
		if userID == 0 {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		user, err := userRepo.GetByID(userID)
		if err == repository.ErrNotFound {
			respondError(w, http.StatusNotFound, "User not found")
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "An error occurred")
			return
		}

		respondJSON(w, http.StatusOK, userResponse(user))
	}
}

// UpdateProfileRequest represents the profile update payload
type UpdateProfileRequest struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

// HandleUpdateProfile updates name and phone for the authenticated user
func HandleUpdateProfile(db *database.DB) http.HandlerFunc {
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.GetUserID(r.Context())
		if userID == 0 {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req UpdateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		user, err := userRepo.GetByID(userID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "An error occurred")
			return
		}

		if req.FirstName != nil {
			user.FirstName = nullString(req.FirstName)
		}
		if req.LastName != nil {
			user.LastName = nullString(req.LastName)
		}
		if req.Phone != nil {
			user.Phone = nullString(req.Phone)
		}

		if err := userRepo.UpdateProfile(user); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to update profile")
			return
		}

		_ = auditRepo.Log(
			sql.NullInt64{Int64: userID, Valid: true},
			"profile_updated",
			"user",
			sql.NullInt64{Int64: userID, Valid: true},
			getIPAddress(r),
			r.Header.Get("User-Agent"),
		)

		respondJSON(w, http.StatusOK, userResponse(user))
	}
}

// ChangePasswordRequest represents the password change payload
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// HandleChangePassword changes the authenticated user's password
func HandleChangePassword(db *database.DB) http.HandlerFunc {
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.GetUserID(r.Context())
		if userID == 0 {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req ChangePasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		user, err := userRepo.GetByID(userID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "An error occurred")
			return
		}

		if err := auth.VerifyPassword(user.PasswordHash, req.CurrentPassword); err != nil {
			respondError(w, http.StatusUnauthorized, "Current password is incorrect")
			return
		}

		newHash, err := auth.HashPassword(req.NewPassword)
		if err == auth.ErrWeakPassword {
			respondError(w, http.StatusBadRequest, "Password must be at least 8 characters")
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to process password")
			return
		}

		if err := userRepo.UpdatePassword(userID, newHash); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to update password")
			return
		}

		_ = auditRepo.Log(
			sql.NullInt64{Int64: userID, Valid: true},
			"password_changed",
			"user",
			sql.NullInt64{Int64: userID, Valid: true},
			getIPAddress(r),
			r.Header.Get("User-Agent"),
		)

		respondJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "Password changed"})
	}
}

// HandleCSRFToken issues a one-time CSRF token for the session
func HandleCSRFToken(csrf *middleware.CSRFProtection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"csrfToken": csrf.GenerateToken()})
	}
}

func setAuthCookie(w http.ResponseWriter, token string, duration time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Path:     "/",
		MaxAge:   int(duration.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

// getTokenFromRequest extracts JWT token from request (cookie or header)
func getTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}

	return ""
}
