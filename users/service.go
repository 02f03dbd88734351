// Package users manages role-bearing accounts, which live in two places at
// once: a Firebase Auth record and a Firestore profile document. Everything
// that must touch both goes through this service so the two views only
// diverge in ways the caller can see.
package users

import (
	"context"
	"fmt"
	"log"
	"time"

	"plotgate/apperr"
	"plotgate/models"
)

// Identity is the slice of the identity provider this service needs.
type Identity interface {
	CreateAccount(ctx context.Context, email, password, name string, role models.UserRole) (string, error)
	Disable(ctx context.Context, userID string) error
}

// Store is the slice of the document store this service needs.
type Store interface {
	CreateUserProfile(ctx context.Context, user *models.User) error
	GetUserProfile(ctx context.Context, userID string) (*models.User, error)
	SetUserDisabled(ctx context.Context, userID string, disabled bool) error
	StorePasswordHash(ctx context.Context, userID, passwordHash string) error
	ListUsersByRole(ctx context.Context, role models.UserRole, includeDisabled bool) ([]models.User, error)
}

// Hasher hashes portal login passwords.
type Hasher func(password string) (string, error)

// Service provisions and deactivates accounts.
type Service struct {
	identity Identity
	store    Store
	hash     Hasher
}

// NewService wires the account service.
func NewService(identity Identity, store Store, hash Hasher) *Service {
	return &Service{identity: identity, store: store, hash: hash}
}

// CreateInput carries the fields for a new account.
type CreateInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Role     models.UserRole
}

// Create provisions a new account: auth record with role claim, profile
// document, portal password hash. The writes are sequential, auth record
// first, so a failed profile write leaves a claimable orphan in the provider
// rather than a profile nobody can log in to.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.User, error) {
	if in.Email == "" || in.Password == "" || in.Name == "" {
		return nil, apperr.Validation("email, password and name are required")
	}
	switch in.Role {
	case models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager, models.RoleClient, models.RoleGuest:
	default:
		return nil, apperr.Validation("unknown role")
	}

	userID, err := s.identity.CreateAccount(ctx, in.Email, in.Password, in.Name, in.Role)
	if err != nil {
		return nil, fmt.Errorf("create auth account: %w", err)
	}

	user := &models.User{
		UserID:    userID,
		Email:     in.Email,
		Name:      in.Name,
		Phone:     in.Phone,
		Role:      in.Role,
		Disabled:  false,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateUserProfile(ctx, user); err != nil {
		return nil, apperr.Partial(
			fmt.Sprintf("auth account %s created but profile write failed", userID), err)
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.StorePasswordHash(ctx, userID, hash); err != nil {
		return nil, apperr.Partial(
			fmt.Sprintf("account %s created but password hash write failed", userID), err)
	}

	log.Printf("✅ Account created: %s (role: %s)", in.Email, in.Role)
	return user, nil
}

// Deactivate disables an account in both the identity provider and the
// profile document. The two writes are sequential, not transactional: a
// failure after the first write returns a Partial error naming the applied
// half so the caller can reconcile instead of silently diverging.
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	if err := s.identity.Disable(ctx, userID); err != nil {
		return fmt.Errorf("disable auth account: %w", err)
	}

	if err := s.store.SetUserDisabled(ctx, userID, true); err != nil {
		return apperr.Partial(
			fmt.Sprintf("auth account %s disabled but profile still shows enabled", userID), err)
	}

	log.Printf("🚫 Account deactivated: %s", userID)
	return nil
}

// ProvisionGuest creates a guest account for a walk-in visitor booked by an
// admin. Guests authenticate through their visit QR, so the login password is
// generated and discarded.
func (s *Service) ProvisionGuest(ctx context.Context, email, name, phone, tempPassword string) (*models.User, error) {
	return s.Create(ctx, CreateInput{
		Email:    email,
		Password: tempPassword,
		Name:     name,
		Phone:    phone,
		Role:     models.RoleGuest,
	})
}
