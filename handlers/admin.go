package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"plotgate/auth"
	"plotgate/middleware"
	"plotgate/models"
	"plotgate/users"
)

// AdminStore is the read side of user management.
type AdminStore interface {
	ListUsersByRole(ctx context.Context, role models.UserRole, includeDisabled bool) ([]models.User, error)
}

type AdminHandler struct {
	accounts *users.Service
	store    AdminStore
}

func NewAdminHandler(accounts *users.Service, store AdminStore) *AdminHandler {
	return &AdminHandler{accounts: accounts, store: store}
}

type CreateUserRequest struct {
	Email    string          `json:"email"`
	Password string          `json:"password,omitempty"`
	Name     string          `json:"name"`
	Phone    string          `json:"phone,omitempty"`
	Role     models.UserRole `json:"role"`
}

// CreateUser provisions a role-bearing account: auth record with role claim,
// profile document and portal password. Guests get a generated throwaway
// password since their access runs through visit QR tokens.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	adminUser, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var user *models.User
	var err error
	if req.Role == models.RoleGuest {
		// Guests never see their password; their access runs through visit
		// QR tokens, so an omitted one is generated and discarded.
		password := req.Password
		if password == "" {
			password = auth.TempPassword()
		}
		user, err = h.accounts.ProvisionGuest(r.Context(), req.Email, req.Name, req.Phone, password)
	} else {
		if err := auth.ValidatePasswordStrength(req.Password); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		user, err = h.accounts.Create(r.Context(), users.CreateInput{
			Email:    req.Email,
			Password: req.Password,
			Name:     req.Name,
			Phone:    req.Phone,
			Role:     req.Role,
		})
	}
	if err != nil {
		writeServiceError(w, "create user", err)
		return
	}

	log.Printf("✅ User created by %s: %s (role: %s)", adminUser.Email, user.Email, user.Role)
	writeJSON(w, http.StatusCreated, user)
}

type DisableUserRequest struct {
	UserID string `json:"userId"`
}

// DisableUser deactivates an account in both the identity provider and the
// profile document.
func (h *AdminHandler) DisableUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	adminUser, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	var req DisableUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "userId is required", http.StatusBadRequest)
		return
	}
	if req.UserID == adminUser.UserID {
		writeError(w, "Cannot disable your own account", http.StatusBadRequest)
		return
	}

	if err := h.accounts.Deactivate(r.Context(), req.UserID); err != nil {
		writeServiceError(w, "disable user", err)
		return
	}

	log.Printf("🚫 User disabled by %s: %s", adminUser.Email, req.UserID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "User disabled successfully",
	})
}

// GetUsers lists users, optionally filtered by role via ?role=.
func (h *AdminHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	roles := []models.UserRole{
		models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager,
		models.RoleClient, models.RoleGuest,
	}
	if filter := r.URL.Query().Get("role"); filter != "" {
		roles = []models.UserRole{models.UserRole(filter)}
	}

	var all []models.User
	for _, role := range roles {
		list, err := h.store.ListUsersByRole(r.Context(), role, true)
		if err != nil {
			writeServiceError(w, "list users", err)
			return
		}
		all = append(all, list...)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users": all,
		"count": len(all),
	})
}
