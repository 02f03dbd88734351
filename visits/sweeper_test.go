package visits

import (
	"context"
	"errors"
	"testing"
	"time"

	"plotgate/apperr"
	"plotgate/models"
)

// fakeSweeperStore backs the sweeper with in-memory visits and profiles.
type fakeSweeperStore struct {
	visits      map[string]*models.VisitRequest
	profiles    map[string]*models.User
	completeErr map[string]error // per-visit failure injection
	listErr     error
}

func newFakeSweeperStore() *fakeSweeperStore {
	return &fakeSweeperStore{
		visits:      make(map[string]*models.VisitRequest),
		profiles:    make(map[string]*models.User),
		completeErr: make(map[string]error),
	}
}

func (s *fakeSweeperStore) ListExpiredVisits(ctx context.Context, now time.Time) ([]models.VisitRequest, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.VisitRequest
	for _, visit := range s.visits {
		live := visit.Status == models.VisitApproved || visit.Status == models.VisitCheckedIn
		if live && visit.QRExpiry.Before(now) {
			out = append(out, *visit)
		}
	}
	return out, nil
}

func (s *fakeSweeperStore) CompleteVisit(ctx context.Context, visitID string, at time.Time) error {
	if err := s.completeErr[visitID]; err != nil {
		return err
	}
	visit := s.visits[visitID]
	visit.Status = models.VisitCompleted
	visit.QRToken = ""
	return nil
}

func (s *fakeSweeperStore) GetUserProfile(ctx context.Context, userID string) (*models.User, error) {
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return profile, nil
}

func (s *fakeSweeperStore) ListLiveVisitsForUser(ctx context.Context, userID string, now time.Time) ([]models.VisitRequest, error) {
	var out []models.VisitRequest
	for _, visit := range s.visits {
		live := visit.Status == models.VisitApproved || visit.Status == models.VisitCheckedIn
		if visit.UserID == userID && live && visit.QRExpiry.After(now) {
			out = append(out, *visit)
		}
	}
	return out, nil
}

// fakeAccounts records deactivations.
type fakeAccounts struct {
	deactivated   []string
	deactivateErr error
}

func (a *fakeAccounts) Deactivate(ctx context.Context, userID string) error {
	if a.deactivateErr != nil {
		return a.deactivateErr
	}
	a.deactivated = append(a.deactivated, userID)
	return nil
}

func expiredVisit(id, userID string) *models.VisitRequest {
	return &models.VisitRequest{
		VisitID:  id,
		UserID:   userID,
		Status:   models.VisitApproved,
		QRToken:  "tok-" + id,
		QRExpiry: time.Date(2026, 6, 1, 23, 59, 59, 999_000_000, time.UTC),
	}
}

var sweepNow = time.Date(2026, 6, 2, 3, 0, 0, 0, time.UTC)

func TestSweepCompletesExpired(t *testing.T) {
	t.Parallel()

	store := newFakeSweeperStore()
	store.visits["v-1"] = expiredVisit("v-1", "client-1")
	store.profiles["client-1"] = &models.User{UserID: "client-1", Role: models.RoleClient}
	accounts := &fakeAccounts{}
	sweeper := NewSweeper(store, accounts)

	result, err := sweeper.Sweep(context.Background(), sweepNow)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if result.ProcessedCount != 1 || len(result.Failed) != 0 {
		t.Fatalf("result: got %+v", result)
	}
	if result.Processed[0].Action != ActionVisitCompleted {
		t.Errorf("action: got %q, want %q", result.Processed[0].Action, ActionVisitCompleted)
	}
	if store.visits["v-1"].Status != models.VisitCompleted {
		t.Errorf("status: got %v, want completed", store.visits["v-1"].Status)
	}
	// Clients are never retired by the sweep.
	if len(accounts.deactivated) != 0 {
		t.Errorf("deactivated: got %v, want none", accounts.deactivated)
	}
}

func TestSweepIdempotent(t *testing.T) {
	t.Parallel()

	store := newFakeSweeperStore()
	store.visits["v-1"] = expiredVisit("v-1", "client-1")
	store.profiles["client-1"] = &models.User{UserID: "client-1", Role: models.RoleClient}
	sweeper := NewSweeper(store, &fakeAccounts{})

	if _, err := sweeper.Sweep(context.Background(), sweepNow); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	second, err := sweeper.Sweep(context.Background(), sweepNow)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if second.ProcessedCount != 0 {
		t.Errorf("second sweep processed %d visits, want 0", second.ProcessedCount)
	}
}

func TestSweepRetiresGuestWithNoLiveVisits(t *testing.T) {
	t.Parallel()

	store := newFakeSweeperStore()
	store.visits["v-1"] = expiredVisit("v-1", "guest-1")
	store.profiles["guest-1"] = &models.User{UserID: "guest-1", Role: models.RoleGuest}
	accounts := &fakeAccounts{}
	sweeper := NewSweeper(store, accounts)

	result, err := sweeper.Sweep(context.Background(), sweepNow)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if result.Processed[0].Action != ActionAccountDisabled {
		t.Errorf("action: got %q, want %q", result.Processed[0].Action, ActionAccountDisabled)
	}
	if len(accounts.deactivated) != 1 || accounts.deactivated[0] != "guest-1" {
		t.Errorf("deactivated: got %v, want [guest-1]", accounts.deactivated)
	}
}

func TestSweepKeepsGuestWithUpcomingVisit(t *testing.T) {
	t.Parallel()

	store := newFakeSweeperStore()
	store.visits["v-1"] = expiredVisit("v-1", "guest-1")
	upcoming := expiredVisit("v-2", "guest-1")
	upcoming.QRExpiry = time.Date(2026, 6, 10, 23, 59, 59, 999_000_000, time.UTC)
	store.visits["v-2"] = upcoming
	store.profiles["guest-1"] = &models.User{UserID: "guest-1", Role: models.RoleGuest}
	accounts := &fakeAccounts{}
	sweeper := NewSweeper(store, accounts)

	result, err := sweeper.Sweep(context.Background(), sweepNow)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if result.Processed[0].Action != ActionVisitCompleted {
		t.Errorf("action: got %q, want %q", result.Processed[0].Action, ActionVisitCompleted)
	}
	if len(accounts.deactivated) != 0 {
		t.Errorf("deactivated: got %v, want none", accounts.deactivated)
	}
}

func TestSweepSkipsAlreadyDisabledGuest(t *testing.T) {
	t.Parallel()

	store := newFakeSweeperStore()
	store.visits["v-1"] = expiredVisit("v-1", "guest-1")
	store.profiles["guest-1"] = &models.User{UserID: "guest-1", Role: models.RoleGuest, Disabled: true}
	accounts := &fakeAccounts{}
	sweeper := NewSweeper(store, accounts)

	if _, err := sweeper.Sweep(context.Background(), sweepNow); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(accounts.deactivated) != 0 {
		t.Errorf("deactivated: got %v, want none", accounts.deactivated)
	}
}

func TestSweepToleratesMissingProfile(t *testing.T) {
	t.Parallel()

	store := newFakeSweeperStore()
	store.visits["v-1"] = expiredVisit("v-1", "gone-user")
	sweeper := NewSweeper(store, &fakeAccounts{})

	result, err := sweeper.Sweep(context.Background(), sweepNow)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if result.ProcessedCount != 1 || len(result.Failed) != 0 {
		t.Errorf("result: got %+v", result)
	}
}

func TestSweepIsolatesPerVisitFailures(t *testing.T) {
	t.Parallel()

	store := newFakeSweeperStore()
	store.visits["v-bad"] = expiredVisit("v-bad", "client-1")
	store.visits["v-ok"] = expiredVisit("v-ok", "client-1")
	store.profiles["client-1"] = &models.User{UserID: "client-1", Role: models.RoleClient}
	store.completeErr["v-bad"] = errors.New("write contention")
	sweeper := NewSweeper(store, &fakeAccounts{})

	result, err := sweeper.Sweep(context.Background(), sweepNow)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if result.ProcessedCount != 1 {
		t.Errorf("processed: got %d, want 1", result.ProcessedCount)
	}
	if len(result.Failed) != 1 || result.Failed[0].VisitID != "v-bad" {
		t.Errorf("failed: got %+v", result.Failed)
	}
	if store.visits["v-ok"].Status != models.VisitCompleted {
		t.Errorf("v-ok status: got %v, want completed", store.visits["v-ok"].Status)
	}
}

func TestSweepGuestCascadeFailureStillCompletesVisit(t *testing.T) {
	t.Parallel()

	store := newFakeSweeperStore()
	store.visits["v-1"] = expiredVisit("v-1", "guest-1")
	store.profiles["guest-1"] = &models.User{UserID: "guest-1", Role: models.RoleGuest}
	accounts := &fakeAccounts{deactivateErr: errors.New("identity provider down")}
	sweeper := NewSweeper(store, accounts)

	result, err := sweeper.Sweep(context.Background(), sweepNow)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if store.visits["v-1"].Status != models.VisitCompleted {
		t.Errorf("status: got %v, want completed", store.visits["v-1"].Status)
	}
	if result.ProcessedCount != 1 || result.Processed[0].Action != ActionVisitCompleted {
		t.Errorf("processed: got %+v", result.Processed)
	}
	if len(result.Failed) != 1 {
		t.Errorf("failed: got %+v", result.Failed)
	}
}

func TestSweepListFailureAborts(t *testing.T) {
	t.Parallel()

	store := newFakeSweeperStore()
	store.listErr = apperr.Unavailable("backend temporarily unavailable", errors.New("rpc"))
	sweeper := NewSweeper(store, &fakeAccounts{})

	if _, err := sweeper.Sweep(context.Background(), sweepNow); apperr.KindOf(err) != apperr.KindUnavailable {
		t.Errorf("kind: got %v, want KindUnavailable", apperr.KindOf(err))
	}
}
