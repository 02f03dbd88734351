package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"plotgate/auth"
	"plotgate/models"
)

// AuthStore is the slice of the document store login needs.
type AuthStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserProfile(ctx context.Context, userID string) (*models.User, error)
	GetPasswordHash(ctx context.Context, userID string) (string, error)
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
}

type AuthHandler struct {
	store      AuthStore
	jwtManager *auth.JWTManager
}

func NewAuthHandler(store AuthStore, jwtManager *auth.JWTManager) *AuthHandler {
	return &AuthHandler{
		store:      store,
		jwtManager: jwtManager,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

// Login handles user authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		log.Printf("Login failed for %s: user not found", req.Email)
		writeError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	if user.Disabled {
		log.Printf("Login rejected for %s: account disabled", req.Email)
		writeError(w, "Account is disabled", http.StatusUnauthorized)
		return
	}

	passwordHash, err := h.store.GetPasswordHash(r.Context(), user.UserID)
	if err != nil {
		log.Printf("Login failed for %s: password hash not found", req.Email)
		writeError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	if err := auth.CheckPassword(req.Password, passwordHash); err != nil {
		log.Printf("Login failed for %s: invalid password", req.Email)
		writeError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	if err := h.store.UpdateLastLogin(r.Context(), user.UserID, time.Now()); err != nil {
		log.Printf("Warning: failed to update last login for %s: %v", req.Email, err)
	}

	token, err := h.jwtManager.GenerateToken(user)
	if err != nil {
		log.Printf("Failed to generate token for %s: %v", req.Email, err)
		writeError(w, "Failed to generate authentication token", http.StatusInternalServerError)
		return
	}

	refreshToken, err := h.jwtManager.GenerateRefreshToken(user)
	if err != nil {
		log.Printf("Failed to generate refresh token for %s: %v", req.Email, err)
		writeError(w, "Failed to generate refresh token", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ User logged in: %s (role: %s)", user.Email, user.Role)

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         user,
	})
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenResponse struct {
	Token string `json:"token"`
}

// RefreshToken handles token refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	claims, err := h.jwtManager.ValidateToken(req.RefreshToken)
	if err != nil {
		writeError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}

	user, err := h.store.GetUserProfile(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, "User not found", http.StatusUnauthorized)
		return
	}
	if user.Disabled {
		writeError(w, "Account is disabled", http.StatusUnauthorized)
		return
	}

	token, err := h.jwtManager.GenerateToken(user)
	if err != nil {
		log.Printf("Failed to generate token for %s: %v", user.Email, err)
		writeError(w, "Failed to generate authentication token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, RefreshTokenResponse{Token: token})
}
