package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"plotgate/apperr"
	"plotgate/gate"
	"plotgate/middleware"
	"plotgate/models"
)

// fakeGateStore implements the gate store interfaces plus PassStore so one
// fixture can drive the whole QR handler.
type fakeGateStore struct {
	users    map[string]*models.User
	plots    map[string]*models.Plot
	visits   map[string]*models.VisitRequest
	passes   map[string]*models.VisitorQR
	latest   *models.VisitorQR
	failWith error
}

func newFakeGateStore() *fakeGateStore {
	return &fakeGateStore{
		users:  make(map[string]*models.User),
		plots:  make(map[string]*models.Plot),
		visits: make(map[string]*models.VisitRequest),
		passes: make(map[string]*models.VisitorQR),
	}
}

func (s *fakeGateStore) GetUserProfile(ctx context.Context, userID string) (*models.User, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	user, ok := s.users[userID]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return user, nil
}

func (s *fakeGateStore) GetPlot(ctx context.Context, plotID string) (*models.Plot, error) {
	plot, ok := s.plots[plotID]
	if !ok {
		return nil, apperr.NotFound("plot not found")
	}
	return plot, nil
}

func (s *fakeGateStore) GetVisit(ctx context.Context, visitID string) (*models.VisitRequest, error) {
	visit, ok := s.visits[visitID]
	if !ok {
		return nil, apperr.NotFound("visit not found")
	}
	copied := *visit
	return &copied, nil
}

func (s *fakeGateStore) ApproveVisit(ctx context.Context, visitID, token string, expiry time.Time, approverID string, at time.Time) error {
	visit := s.visits[visitID]
	visit.Status = models.VisitApproved
	visit.QRToken = token
	visit.QRExpiry = expiry
	return nil
}

func (s *fakeGateStore) GetVisitByToken(ctx context.Context, token string) (*models.VisitRequest, error) {
	for _, visit := range s.visits {
		if visit.QRToken == token {
			return visit, nil
		}
	}
	return nil, apperr.NotFound("visit not found")
}

func (s *fakeGateStore) MarkVisitCheckedIn(ctx context.Context, visitID string, at time.Time) error {
	s.visits[visitID].Status = models.VisitCheckedIn
	return nil
}

func (s *fakeGateStore) CreateVisitorQR(ctx context.Context, qr *models.VisitorQR) error {
	s.passes[qr.QRToken] = qr
	s.latest = qr
	return nil
}

func (s *fakeGateStore) FindActiveVisitorQR(ctx context.Context, token string, now time.Time) (*models.VisitorQR, error) {
	qr, ok := s.passes[token]
	if !ok || qr.Status != models.VisitorQRActive || !qr.ExpiryDate.After(now) {
		return nil, apperr.NotFound("visitor QR not found")
	}
	return qr, nil
}

func (s *fakeGateStore) MarkVisitorQRUsed(ctx context.Context, qrID string) error {
	for _, qr := range s.passes {
		if qr.QRID == qrID {
			qr.Status = models.VisitorQRUsed
			return nil
		}
	}
	return apperr.NotFound("visitor QR not found")
}

func (s *fakeGateStore) CreateAccessLog(ctx context.Context, entry *models.AccessLog) error {
	return nil
}

func (s *fakeGateStore) LatestVisitorQRForClient(ctx context.Context, clientID string) (*models.VisitorQR, error) {
	if s.latest == nil || s.latest.ClientID != clientID {
		return nil, apperr.NotFound("no visitor QR found")
	}
	return s.latest, nil
}

func newTestQRHandler(store *fakeGateStore) *QRHandler {
	issuer := gate.NewIssuer(store, time.UTC)
	verifier := gate.NewVerifier(store)
	return NewQRHandler(issuer, verifier, store)
}

func authedRequest(method, target, body string, user *models.User) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if user != nil {
		ctx := context.WithValue(req.Context(), middleware.UserContextKey, user)
		req = req.WithContext(ctx)
	}
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

var gateUser = &models.User{UserID: "admin-1", Role: models.RoleAdmin}

func TestVerifyClientQREndpoint(t *testing.T) {
	t.Parallel()

	store := newFakeGateStore()
	store.users["user-1"] = &models.User{UserID: "user-1", Name: "Owner One", Email: "o1@example.com"}
	store.plots["plot-1"] = &models.Plot{PlotID: "plot-1", PlotNumber: "GA-001", OwnerID: "user-1"}
	handler := newTestQRHandler(store)

	body := `{"qrToken":"` + gate.ClientQR("user-1", "plot-1") + `","type":"client"}`
	rec := httptest.NewRecorder()
	handler.Verify(rec, authedRequest(http.MethodPost, "/api/verify-qr", body, gateUser))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	user, _ := resp["user"].(map[string]interface{})
	if user["name"] != "Owner One" {
		t.Errorf("user: got %v", resp["user"])
	}
	plot, _ := resp["plot"].(map[string]interface{})
	if plot["number"] != "GA-001" {
		t.Errorf("plot: got %v", resp["plot"])
	}
}

func TestVerifyQRRejectsUnknownType(t *testing.T) {
	t.Parallel()

	handler := newTestQRHandler(newFakeGateStore())

	rec := httptest.NewRecorder()
	handler.Verify(rec, authedRequest(http.MethodPost, "/api/verify-qr", `{"qrToken":"x","type":"drone"}`, gateUser))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
	if resp := decodeBody(t, rec); resp["error"] != "type must be client or visitor" {
		t.Errorf("error: got %v", resp["error"])
	}
}

func TestVerifyQRMissingFields(t *testing.T) {
	t.Parallel()

	handler := newTestQRHandler(newFakeGateStore())

	for _, body := range []string{`{}`, `{"qrToken":"x"}`, `{"type":"client"}`} {
		rec := httptest.NewRecorder()
		handler.Verify(rec, authedRequest(http.MethodPost, "/api/verify-qr", body, gateUser))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestVerifyVisitorQRExpiredMapsToBadRequest(t *testing.T) {
	t.Parallel()

	store := newFakeGateStore()
	store.passes["tok-old"] = &models.VisitorQR{
		QRID:       "qr-1",
		QRToken:    "tok-old",
		Status:     models.VisitorQRActive,
		ExpiryDate: time.Now().Add(-time.Hour),
	}
	handler := newTestQRHandler(store)

	rec := httptest.NewRecorder()
	handler.Verify(rec, authedRequest(http.MethodPost, "/api/verify-qr", `{"qrToken":"tok-old","type":"visitor"}`, gateUser))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
}

func TestVerifyQRBackendUnavailableMapsTo503(t *testing.T) {
	t.Parallel()

	store := newFakeGateStore()
	store.failWith = apperr.Unavailable("backend temporarily unavailable", nil)
	handler := newTestQRHandler(store)

	body := `{"qrToken":"` + gate.ClientQR("user-1", "plot-1") + `","type":"client"}`
	rec := httptest.NewRecorder()
	handler.Verify(rec, authedRequest(http.MethodPost, "/api/verify-qr", body, gateUser))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want 503", rec.Code)
	}
	if resp := decodeBody(t, rec); resp["error"] != "Service temporarily unavailable, please retry" {
		t.Errorf("error: got %v", resp["error"])
	}
}

func TestGenerateTokenEndpoint(t *testing.T) {
	t.Parallel()

	store := newFakeGateStore()
	store.visits["v-1"] = &models.VisitRequest{
		VisitID:  "v-1",
		Status:   models.VisitPending,
		TimeSlot: models.TimeSlot{Date: "2026-06-01"},
	}
	handler := newTestQRHandler(store)

	rec := httptest.NewRecorder()
	handler.GenerateToken(rec, authedRequest(http.MethodPost, "/api/generate-qr-token", `{"visitId":"v-1"}`, gateUser))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	token, _ := resp["qrCodeToken"].(string)
	if token == "" {
		t.Fatalf("qrCodeToken missing: %v", resp)
	}
	if store.visits["v-1"].QRToken != token {
		t.Errorf("persisted token %q, responded %q", store.visits["v-1"].QRToken, token)
	}
}

func TestGenerateTokenValidationAndNotFound(t *testing.T) {
	t.Parallel()

	handler := newTestQRHandler(newFakeGateStore())

	rec := httptest.NewRecorder()
	handler.GenerateToken(rec, authedRequest(http.MethodPost, "/api/generate-qr-token", `{}`, gateUser))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing visitId: status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.GenerateToken(rec, authedRequest(http.MethodPost, "/api/generate-qr-token", `{"visitId":"missing"}`, gateUser))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown visit: status = %d, want 404", rec.Code)
	}
}

func TestCheckInEndpoint(t *testing.T) {
	t.Parallel()

	store := newFakeGateStore()
	store.visits["v-1"] = &models.VisitRequest{
		VisitID:  "v-1",
		UserName: "Walk In",
		Status:   models.VisitApproved,
		QRToken:  "vtok-1",
		QRExpiry: time.Now().Add(2 * time.Hour),
	}
	handler := newTestQRHandler(store)

	rec := httptest.NewRecorder()
	handler.CheckIn(rec, authedRequest(http.MethodPost, "/api/check-in", `{"qrToken":"vtok-1"}`, gateUser))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if store.visits["v-1"].Status != models.VisitCheckedIn {
		t.Errorf("status: got %v, want checked_in", store.visits["v-1"].Status)
	}
}

func TestIssueAndFetchLatestVisitorQR(t *testing.T) {
	t.Parallel()

	store := newFakeGateStore()
	handler := newTestQRHandler(store)
	client := &models.User{UserID: "client-1", Role: models.RoleClient}

	// No pass yet: the latest endpoint answers 200 with a null pass.
	rec := httptest.NewRecorder()
	handler.LatestVisitorQR(rec, authedRequest(http.MethodGet, "/api/visitor-qr/latest", "", client))
	if rec.Code != http.StatusOK {
		t.Fatalf("empty latest: status = %d, want 200", rec.Code)
	}
	if resp := decodeBody(t, rec); resp["qr"] != nil {
		t.Errorf("empty latest: qr = %v, want null", resp["qr"])
	}

	rec = httptest.NewRecorder()
	handler.IssueVisitorQR(rec, authedRequest(http.MethodPost, "/api/visitor-qr",
		`{"plotId":"plot-1","visitorName":"Jane Doe","purpose":"delivery"}`, client))
	if rec.Code != http.StatusCreated {
		t.Fatalf("issue: status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.LatestVisitorQR(rec, authedRequest(http.MethodGet, "/api/visitor-qr/latest", "", client))
	if rec.Code != http.StatusOK {
		t.Fatalf("latest: status = %d, want 200", rec.Code)
	}
	resp := decodeBody(t, rec)
	qr, _ := resp["qr"].(map[string]interface{})
	if qr == nil || qr["visitor_name"] != "Jane Doe" {
		t.Errorf("latest qr: got %v", resp["qr"])
	}
}

func TestQRHandlerRequiresContextUser(t *testing.T) {
	t.Parallel()

	handler := newTestQRHandler(newFakeGateStore())

	rec := httptest.NewRecorder()
	handler.GenerateToken(rec, authedRequest(http.MethodPost, "/api/generate-qr-token", `{"visitId":"v-1"}`, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}
