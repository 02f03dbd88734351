package visits

import (
	"context"
	"log"
	"time"

	"plotgate/apperr"
	"plotgate/models"
)

// Sweep actions reported per processed visit.
const (
	ActionVisitCompleted  = "visit_completed"
	ActionAccountDisabled = "account_disabled"
)

// SweeperStore is the slice of the document store the sweeper needs.
type SweeperStore interface {
	ListExpiredVisits(ctx context.Context, now time.Time) ([]models.VisitRequest, error)
	CompleteVisit(ctx context.Context, visitID string, at time.Time) error
	GetUserProfile(ctx context.Context, userID string) (*models.User, error)
	ListLiveVisitsForUser(ctx context.Context, userID string, now time.Time) ([]models.VisitRequest, error)
}

// Accounts deactivates an account in both the identity provider and the
// profile document.
type Accounts interface {
	Deactivate(ctx context.Context, userID string) error
}

// Sweeper finalizes visits whose QR validity window has passed. It is meant
// to be triggered by an external scheduler; each run is idempotent because
// swept visits no longer match the status filter.
type Sweeper struct {
	store    SweeperStore
	accounts Accounts
}

// NewSweeper wires the expiry sweeper.
func NewSweeper(store SweeperStore, accounts Accounts) *Sweeper {
	return &Sweeper{store: store, accounts: accounts}
}

// ProcessedVisit records what the sweep did for one visit.
type ProcessedVisit struct {
	VisitID string `json:"visit_id"`
	UserID  string `json:"user_id"`
	Action  string `json:"action"`
}

// SweepFailure records a visit the sweep could not fully process.
type SweepFailure struct {
	VisitID string `json:"visit_id"`
	Error   string `json:"error"`
}

// SweepResult summarizes one sweep run. The two lists can overlap: a visit
// whose completion succeeded but whose guest cascade failed appears in
// Processed (the visit IS completed) and in Failed (the retirement still
// needs a later sweep or manual reconciliation).
type SweepResult struct {
	ProcessedCount int              `json:"processed_count"`
	Processed      []ProcessedVisit `json:"processed"`
	Failed         []SweepFailure   `json:"failed,omitempty"`
}

// Sweep transitions every approved or checked-in visit with qrExpiry before
// now to completed, then retires guest accounts left with no live visit
// window. Failures are isolated per visit: one flaky record never aborts the
// rest of the batch, so the sweep makes forward progress under partial
// backend trouble.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (*SweepResult, error) {
	expired, err := s.store.ListExpiredVisits(ctx, now)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{}
	for i := range expired {
		visit := &expired[i]

		if err := s.store.CompleteVisit(ctx, visit.VisitID, now); err != nil {
			log.Printf("⚠️  Sweep: failed to complete visit %s: %v", visit.VisitID, err)
			result.Failed = append(result.Failed, SweepFailure{VisitID: visit.VisitID, Error: err.Error()})
			continue
		}

		action := ActionVisitCompleted
		if disabled, err := s.retireGuestIfDone(ctx, visit.UserID, now); err != nil {
			// The visit itself is completed; only the guest cascade failed.
			log.Printf("⚠️  Sweep: guest check for visit %s (user %s) failed: %v", visit.VisitID, visit.UserID, err)
			result.Failed = append(result.Failed, SweepFailure{VisitID: visit.VisitID, Error: err.Error()})
		} else if disabled {
			action = ActionAccountDisabled
		}

		result.Processed = append(result.Processed, ProcessedVisit{
			VisitID: visit.VisitID,
			UserID:  visit.UserID,
			Action:  action,
		})
		result.ProcessedCount++
	}

	log.Printf("🧹 Sweep done: %d processed, %d failed", result.ProcessedCount, len(result.Failed))
	return result, nil
}

// retireGuestIfDone disables a guest account once it holds no further visit
// with a live QR window. Guest accounts are self-expiring credentials tied
// to having at least one such window. Non-guest requesters are untouched.
func (s *Sweeper) retireGuestIfDone(ctx context.Context, userID string, now time.Time) (bool, error) {
	profile, err := s.store.GetUserProfile(ctx, userID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			// Requester profile already gone; nothing to retire.
			return false, nil
		}
		return false, err
	}
	if profile.Role != models.RoleGuest || profile.Disabled {
		return false, nil
	}

	live, err := s.store.ListLiveVisitsForUser(ctx, userID, now)
	if err != nil {
		return false, err
	}
	if len(live) > 0 {
		return false, nil
	}

	if err := s.accounts.Deactivate(ctx, userID); err != nil {
		return false, err
	}
	return true, nil
}
