package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/DavidDevlo/FINTide/src/config"
	"github.com/DavidDevlo/FINTide/src/logger"
	"github.com/DavidDevlo/FINTide/src/model"
	"github.com/DavidDevlo/FINTide/src/security"
	"github.com/DavidDevlo/FINTide/src/services"
	"github.com/DavidDevlo/FINTide/src/utils"
)

// UserHandler serves the account and gate endpoints: registration, the PIN,
// unlock (which issues tokens) and session maintenance.
type UserHandler struct {
	db          *sql.DB
	authService *security.AuthService
	userService *services.UserService
}

func NewUserHandler(db *sql.DB, authService *security.AuthService, userService *services.UserService) *UserHandler {
	return &UserHandler{
		db:          db,
		authService: authService,
		userService: userService,
	}
}

// HandleFlowStep tells the client which gate screen to show next.
func (h *UserHandler) HandleFlowStep(w http.ResponseWriter, r *http.Request) {
	step, err := h.userService.FlowStep()
	if err != nil {
		logger.L.Error("Failed to derive auth flow step", "error", err)
		utils.SendJSONError(w, "Failed to derive auth flow step", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, map[string]string{"step": step}, http.StatusOK)
}

// HandleRegister creates the local account from a typed name.
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		GivenName  string `json:"givenName"`
		FamilyName string `json:"familyName"`
		Email      string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.userService.RegisterManual(payload.GivenName, payload.FamilyName, payload.Email)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	logger.L.Info("Account registered", "userId", user.ID, "provider", user.Provider)
	utils.SendJSON(w, user, http.StatusCreated)
}

// HandleSetPin stores a new PIN. During onboarding (CREATE_PIN step) the
// call is open; once the account is secured it requires a valid token, so a
// locked phone cannot have its PIN swapped out from under the owner.
func (h *UserHandler) HandleSetPin(w http.ResponseWriter, r *http.Request) {
	step, err := h.userService.FlowStep()
	if err != nil {
		utils.SendJSONError(w, "Failed to derive auth flow step", http.StatusInternalServerError)
		return
	}
	if step != services.StepCreatePin {
		tokenString, _ := cutBearer(r.Header.Get("Authorization"))
		if _, err := h.authService.ValidateToken(tokenString); err != nil {
			utils.SendJSONError(w, "Authentication required to change PIN", http.StatusUnauthorized)
			return
		}
		if _, err := model.GetSessionByToken(h.db, tokenString); err != nil {
			utils.SendJSONError(w, "Authentication required to change PIN", http.StatusUnauthorized)
			return
		}
	}

	var payload struct {
		Pin string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.userService.SetPin(payload.Pin); err != nil {
		if errors.Is(err, security.ErrInvalidPin) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if errors.Is(err, model.ErrNotFound) {
			utils.SendJSONError(w, "No account to set a PIN for", http.StatusConflict)
			return
		}
		logger.L.Error("Failed to set PIN", "error", err)
		utils.SendJSONError(w, "Failed to set PIN", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "PIN set"}, http.StatusOK)
}

// HandleUnlock verifies the PIN and, on success, opens a session and returns
// an access/refresh token pair.
func (h *UserHandler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Pin string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.userService.VerifyPin(payload.Pin)
	if err != nil {
		switch {
		case errors.Is(err, security.ErrInvalidPin):
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrPinMismatch):
			logger.L.Warn("Unlock attempt with incorrect PIN", "remoteAddr", r.RemoteAddr)
			utils.SendJSONError(w, "Incorrect PIN", http.StatusUnauthorized)
		case errors.Is(err, model.ErrNotFound):
			utils.SendJSONError(w, "No account exists", http.StatusConflict)
		default:
			logger.L.Error("Unlock failed", "error", err)
			utils.SendJSONError(w, "Unlock failed", http.StatusInternalServerError)
		}
		return
	}

	token, err := h.authService.GenerateToken(fmt.Sprintf("%d", user.ID))
	if err != nil {
		logger.L.Error("Failed to generate access token", "error", err)
		utils.SendJSONError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}
	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		logger.L.Error("Failed to generate refresh token", "error", err)
		utils.SendJSONError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	session := &model.Session{
		UserID:       user.ID,
		Token:        token,
		RefreshToken: refreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		ExpiresAt:    time.Now().Add(config.Cfg.RefreshTokenExpiry),
	}
	if err := model.CreateSession(h.db, session); err != nil {
		logger.L.Error("Failed to create session", "error", err, "userId", user.ID)
		utils.SendJSONError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	logger.L.Info("App unlocked", "userId", user.ID)
	utils.SendJSON(w, map[string]any{
		"token":        token,
		"refreshToken": refreshToken,
		"expiresAt":    session.ExpiresAt.UnixMilli(),
		"user":         user,
	}, http.StatusOK)
}

// HandleRefreshToken swaps a valid refresh token for a fresh access token.
func (h *UserHandler) HandleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.RefreshToken == "" {
		utils.SendJSONError(w, "Refresh token required", http.StatusBadRequest)
		return
	}

	session, err := model.GetSessionByRefreshToken(h.db, payload.RefreshToken)
	if err != nil {
		logger.L.Warn("Refresh attempt with unknown or expired token")
		utils.SendJSONError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}

	token, err := h.authService.GenerateToken(fmt.Sprintf("%d", session.UserID))
	if err != nil {
		logger.L.Error("Failed to generate access token on refresh", "error", err)
		utils.SendJSONError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}
	if err := model.UpdateSessionToken(h.db, session.ID, token); err != nil {
		logger.L.Error("Failed to update session token", "error", err)
		utils.SendJSONError(w, "Failed to refresh session", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, map[string]string{"token": token}, http.StatusOK)
}

// HandleLogout removes the current session. Logging out twice is fine.
func (h *UserHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	tokenString := authHeader
	if after, ok := cutBearer(authHeader); ok {
		tokenString = after
	}
	if err := model.DeleteSessionByToken(h.db, tokenString); err != nil {
		logger.L.Error("Failed to delete session", "error", err)
		utils.SendJSONError(w, "Logout failed", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Logged out"}, http.StatusOK)
}

// HandleProfile returns the active account.
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.ActiveUser()
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			utils.SendJSONError(w, "No account exists", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to load profile", "error", err)
		utils.SendJSONError(w, "Failed to load profile", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, user, http.StatusOK)
}

func cutBearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):], true
	}
	return header, false
}
