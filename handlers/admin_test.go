package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"plotgate/apperr"
	"plotgate/models"
	"plotgate/users"
)

// fakeIdentityProvider satisfies users.Identity for handler tests.
type fakeIdentityProvider struct {
	nextID   string
	disabled []string
}

func (f *fakeIdentityProvider) CreateAccount(ctx context.Context, email, password, name string, role models.UserRole) (string, error) {
	return f.nextID, nil
}

func (f *fakeIdentityProvider) Disable(ctx context.Context, userID string) error {
	f.disabled = append(f.disabled, userID)
	return nil
}

// fakeAccountStore satisfies users.Store for handler tests.
type fakeAccountStore struct {
	profiles map[string]*models.User
	hashes   map[string]string
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{
		profiles: make(map[string]*models.User),
		hashes:   make(map[string]string),
	}
}

func (s *fakeAccountStore) CreateUserProfile(ctx context.Context, user *models.User) error {
	s.profiles[user.UserID] = user
	return nil
}

func (s *fakeAccountStore) GetUserProfile(ctx context.Context, userID string) (*models.User, error) {
	user, ok := s.profiles[userID]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return user, nil
}

func (s *fakeAccountStore) SetUserDisabled(ctx context.Context, userID string, disabled bool) error {
	user, ok := s.profiles[userID]
	if !ok {
		return apperr.NotFound("user not found")
	}
	user.Disabled = disabled
	return nil
}

func (s *fakeAccountStore) StorePasswordHash(ctx context.Context, userID, passwordHash string) error {
	s.hashes[userID] = passwordHash
	return nil
}

func (s *fakeAccountStore) ListUsersByRole(ctx context.Context, role models.UserRole, includeDisabled bool) ([]models.User, error) {
	var out []models.User
	for _, user := range s.profiles {
		if user.Role == role && (includeDisabled || !user.Disabled) {
			out = append(out, *user)
		}
	}
	return out, nil
}

func newTestAdminHandler(store *fakeAccountStore, nextID string) *AdminHandler {
	accounts := users.NewService(&fakeIdentityProvider{nextID: nextID}, store,
		func(password string) (string, error) { return "hash:" + password, nil })
	return NewAdminHandler(accounts, store)
}

func TestCreateGuestWithoutPassword(t *testing.T) {
	t.Parallel()

	store := newFakeAccountStore()
	handler := newTestAdminHandler(store, "guest-1")

	body := `{"email":"walkin@example.com","name":"Walk In","phone":"555-0102","role":"guest"}`
	rec := httptest.NewRecorder()
	handler.CreateUser(rec, authedRequest(http.MethodPost, "/api/admin/users/create", body, gateUser))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	profile, ok := store.profiles["guest-1"]
	if !ok {
		t.Fatal("guest profile not written")
	}
	if profile.Role != models.RoleGuest {
		t.Errorf("role: got %v, want guest", profile.Role)
	}
	// The omitted password is generated, hashed and stored like any other.
	if store.hashes["guest-1"] == "" || store.hashes["guest-1"] == "hash:" {
		t.Errorf("guest password hash: got %q", store.hashes["guest-1"])
	}
}

func TestCreateUserRejectsWeakPassword(t *testing.T) {
	t.Parallel()

	store := newFakeAccountStore()
	handler := newTestAdminHandler(store, "client-1")

	for _, body := range []string{
		`{"email":"c@example.com","name":"C","role":"client"}`,
		`{"email":"c@example.com","name":"C","role":"client","password":"short1"}`,
		`{"email":"c@example.com","name":"C","role":"client","password":"lettersonly"}`,
	} {
		rec := httptest.NewRecorder()
		handler.CreateUser(rec, authedRequest(http.MethodPost, "/api/admin/users/create", body, gateUser))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
	if len(store.profiles) != 0 {
		t.Errorf("profiles written despite rejection: %d", len(store.profiles))
	}
}

func TestDisableUserBlocksSelf(t *testing.T) {
	t.Parallel()

	store := newFakeAccountStore()
	handler := newTestAdminHandler(store, "x")

	rec := httptest.NewRecorder()
	handler.DisableUser(rec, authedRequest(http.MethodPost, "/api/admin/users/disable",
		`{"userId":"`+gateUser.UserID+`"}`, gateUser))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestDisableUserFlipsBothHalves(t *testing.T) {
	t.Parallel()

	store := newFakeAccountStore()
	store.profiles["client-1"] = &models.User{UserID: "client-1", Role: models.RoleClient}
	handler := newTestAdminHandler(store, "x")

	rec := httptest.NewRecorder()
	handler.DisableUser(rec, authedRequest(http.MethodPost, "/api/admin/users/disable",
		`{"userId":"client-1"}`, gateUser))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if !store.profiles["client-1"].Disabled {
		t.Error("profile not marked disabled")
	}
}
