package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"plotgate/apperr"
	"plotgate/models"
	"plotgate/visits"
)

// fakeVisitStore implements visits.Store for handler tests.
type fakeVisitStore struct {
	visits map[string]*models.VisitRequest
}

func newFakeVisitStore() *fakeVisitStore {
	return &fakeVisitStore{visits: make(map[string]*models.VisitRequest)}
}

func (s *fakeVisitStore) CreateVisit(ctx context.Context, visit *models.VisitRequest) error {
	s.visits[visit.VisitID] = visit
	return nil
}

func (s *fakeVisitStore) GetVisit(ctx context.Context, visitID string) (*models.VisitRequest, error) {
	visit, ok := s.visits[visitID]
	if !ok {
		return nil, apperr.NotFound("visit not found")
	}
	return visit, nil
}

func (s *fakeVisitStore) RejectVisit(ctx context.Context, visitID, reason, approverID string, at time.Time) error {
	s.visits[visitID].Status = models.VisitRejected
	return nil
}

func (s *fakeVisitStore) ListVisitsByUser(ctx context.Context, userID string) ([]models.VisitRequest, error) {
	var out []models.VisitRequest
	for _, visit := range s.visits {
		if visit.UserID == userID {
			out = append(out, *visit)
		}
	}
	return out, nil
}

func (s *fakeVisitStore) ListAllVisits(ctx context.Context) ([]models.VisitRequest, error) {
	var out []models.VisitRequest
	for _, visit := range s.visits {
		out = append(out, *visit)
	}
	return out, nil
}

// fakeVisitIssuer satisfies visits.TokenIssuer.
type fakeVisitIssuer struct{}

func (fakeVisitIssuer) IssueVisitToken(ctx context.Context, visitID, approverID string) (string, time.Time, error) {
	return "tok-fixed", time.Time{}, nil
}

func newTestVisitHandler(store *fakeVisitStore) *VisitHandler {
	return NewVisitHandler(visits.NewService(store, fakeVisitIssuer{}))
}

func TestCreateVisitEndpoint(t *testing.T) {
	t.Parallel()

	store := newFakeVisitStore()
	handler := newTestVisitHandler(store)
	client := &models.User{UserID: "client-1", Name: "First Client", Role: models.RoleClient}

	body := `{"projectId":"proj-1","timeSlot":{"date":"2026-06-01","start":"10:00","end":"11:00"}}`
	rec := httptest.NewRecorder()
	handler.Create(rec, authedRequest(http.MethodPost, "/api/visits", body, client))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	if len(store.visits) != 1 {
		t.Fatalf("stored visits: got %d, want 1", len(store.visits))
	}
	for _, visit := range store.visits {
		if !visit.IsClientBooking {
			t.Error("client booking not flagged")
		}
		if visit.Status != models.VisitPending {
			t.Errorf("status: got %v, want pending", visit.Status)
		}
	}
}

func TestCreateVisitValidationEndpoint(t *testing.T) {
	t.Parallel()

	handler := newTestVisitHandler(newFakeVisitStore())
	client := &models.User{UserID: "client-1", Name: "First Client", Role: models.RoleClient}

	rec := httptest.NewRecorder()
	handler.Create(rec, authedRequest(http.MethodPost, "/api/visits", `{"projectId":"proj-1"}`, client))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestListVisitsScopedByRole(t *testing.T) {
	t.Parallel()

	store := newFakeVisitStore()
	store.visits["v-1"] = &models.VisitRequest{VisitID: "v-1", UserID: "client-1"}
	store.visits["v-2"] = &models.VisitRequest{VisitID: "v-2", UserID: "client-2"}
	handler := newTestVisitHandler(store)

	rec := httptest.NewRecorder()
	handler.List(rec, authedRequest(http.MethodGet, "/api/visits", "",
		&models.User{UserID: "client-1", Role: models.RoleClient}))
	if got := decodeBody(t, rec)["count"].(float64); got != 1 {
		t.Errorf("client count: got %v, want 1", got)
	}

	rec = httptest.NewRecorder()
	handler.List(rec, authedRequest(http.MethodGet, "/api/visits", "",
		&models.User{UserID: "admin-1", Role: models.RoleAdmin}))
	if got := decodeBody(t, rec)["count"].(float64); got != 2 {
		t.Errorf("admin count: got %v, want 2", got)
	}
}

func TestDecideEndpointApproves(t *testing.T) {
	t.Parallel()

	store := newFakeVisitStore()
	store.visits["v-1"] = &models.VisitRequest{VisitID: "v-1", Status: models.VisitPending}
	handler := newTestVisitHandler(store)

	rec := httptest.NewRecorder()
	handler.Decide(rec, authedRequest(http.MethodPost, "/api/approve-leave",
		`{"leaveId":"v-1","approved":true}`, gateUser))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if resp := decodeBody(t, rec); resp["status"] != string(models.VisitApproved) {
		t.Errorf("status field: got %v, want approved", resp["status"])
	}
}

func TestDecideEndpointValidation(t *testing.T) {
	t.Parallel()

	handler := newTestVisitHandler(newFakeVisitStore())

	for _, body := range []string{`{}`, `{"leaveId":"v-1"}`, `{"approved":false}`} {
		rec := httptest.NewRecorder()
		handler.Decide(rec, authedRequest(http.MethodPost, "/api/approve-leave", body, gateUser))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestDecideEndpointUnknownVisit(t *testing.T) {
	t.Parallel()

	handler := newTestVisitHandler(newFakeVisitStore())

	rec := httptest.NewRecorder()
	handler.Decide(rec, authedRequest(http.MethodPost, "/api/approve-leave",
		`{"leaveId":"missing","approved":true}`, gateUser))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}
