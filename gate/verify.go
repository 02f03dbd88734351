package gate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"plotgate/apperr"
	"plotgate/models"
)

// VerifierStore is the slice of the document store verification needs.
type VerifierStore interface {
	GetUserProfile(ctx context.Context, userID string) (*models.User, error)
	GetPlot(ctx context.Context, plotID string) (*models.Plot, error)
	FindActiveVisitorQR(ctx context.Context, token string, now time.Time) (*models.VisitorQR, error)
	MarkVisitorQRUsed(ctx context.Context, qrID string) error
	GetVisitByToken(ctx context.Context, token string) (*models.VisitRequest, error)
	MarkVisitCheckedIn(ctx context.Context, visitID string, at time.Time) error
	CreateAccessLog(ctx context.Context, entry *models.AccessLog) error
}

// Verifier checks QR payloads at the point of physical entry and writes the
// access log.
type Verifier struct {
	store VerifierStore
	now   func() time.Time
}

// NewVerifier wires a gate verifier.
func NewVerifier(store VerifierStore) *Verifier {
	return &Verifier{store: store, now: time.Now}
}

// ClientEntry is the gate display payload for a successful owner scan.
type ClientEntry struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	PlotID     string `json:"plot_id"`
	PlotNumber string `json:"plot_number"`
}

// VisitorEntry is the gate display payload for a successful visitor scan.
type VisitorEntry struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Purpose string `json:"purpose,omitempty"`
	PlotID  string `json:"plot_id"`
}

// VisitEntry is the gate display payload for a successful visit check-in.
type VisitEntry struct {
	VisitID     string `json:"visit_id"`
	Name        string `json:"name"`
	ProjectID   string `json:"project_id"`
	ProjectName string `json:"project_name,omitempty"`
	PlotID      string `json:"plot_id,omitempty"`
}

// VerifyClient authorizes a permanent owner credential. It mutates nothing:
// ownership is checked against live data and the only write is the access
// log entry.
func (v *Verifier) VerifyClient(ctx context.Context, token string) (*ClientEntry, error) {
	userID, plotID, err := ParseClientQR(token)
	if err != nil {
		return nil, err
	}

	user, err := v.store.GetUserProfile(ctx, userID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.BusinessRule("invalid or disabled user")
		}
		return nil, err
	}
	if user.Disabled {
		return nil, apperr.BusinessRule("invalid or disabled user")
	}

	plot, err := v.store.GetPlot(ctx, plotID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.BusinessRule("plot not found or ownership mismatch")
		}
		return nil, err
	}
	if plot.OwnerID != userID {
		return nil, apperr.BusinessRule("plot not found or ownership mismatch")
	}

	entry := &models.AccessLog{
		LogID:       uuid.NewString(),
		Type:        models.AccessClient,
		UserID:      userID,
		PlotID:      plotID,
		SubjectName: user.Name,
		Action:      models.ActionEntry,
		Timestamp:   v.now(),
	}
	if err := v.store.CreateAccessLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("append access log: %w", err)
	}

	log.Printf("🚪 Client entry: user=%s plot=%s", userID, plotID)
	return &ClientEntry{
		UserID:     userID,
		Name:       user.Name,
		Email:      user.Email,
		PlotID:     plot.PlotID,
		PlotNumber: plot.PlotNumber,
	}, nil
}

// VerifyVisitor authorizes a single-day visitor pass and consumes it. A
// wrong token, an already-used pass and an expired pass all fail with the
// same generic message; the gate deliberately does not reveal which.
//
// The read and the mark-used are separate writes, so two concurrent scans of
// the same still-active pass can both succeed and both log entry. Entry
// logging is at-least-once; a stronger guarantee would need a conditional
// update the store is not asked for today.
func (v *Verifier) VerifyVisitor(ctx context.Context, token string) (*VisitorEntry, error) {
	qr, err := v.store.FindActiveVisitorQR(ctx, token, v.now())
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.BusinessRule("invalid or expired visitor QR code")
		}
		return nil, err
	}

	entry := &models.AccessLog{
		LogID:       uuid.NewString(),
		Type:        models.AccessVisitor,
		VisitorID:   qr.QRID,
		ClientID:    qr.ClientID,
		PlotID:      qr.PlotID,
		SubjectName: qr.VisitorName,
		Action:      models.ActionEntry,
		Timestamp:   v.now(),
	}
	if err := v.store.CreateAccessLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("append access log: %w", err)
	}

	if err := v.store.MarkVisitorQRUsed(ctx, qr.QRID); err != nil {
		return nil, fmt.Errorf("consume visitor pass: %w", err)
	}

	log.Printf("🚪 Visitor entry: visitor=%s plot=%s client=%s", qr.VisitorName, qr.PlotID, qr.ClientID)
	return &VisitorEntry{
		Name:    qr.VisitorName,
		Phone:   qr.VisitorPhone,
		Purpose: qr.Purpose,
		PlotID:  qr.PlotID,
	}, nil
}

// CheckInVisit verifies a visit QR token at the gate and transitions the
// booking from approved to checked_in. Re-scanning an already checked-in
// visit within its window succeeds without a second transition, so the gate
// can re-admit someone who stepped out.
func (v *Verifier) CheckInVisit(ctx context.Context, token string) (*VisitEntry, error) {
	if token == "" {
		return nil, apperr.Validation("qrToken is required")
	}

	visit, err := v.store.GetVisitByToken(ctx, token)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.BusinessRule("invalid or expired visit QR code")
		}
		return nil, err
	}

	now := v.now()
	if !visit.HasLiveQR(now) {
		return nil, apperr.BusinessRule("invalid or expired visit QR code")
	}

	entry := &models.AccessLog{
		LogID:       uuid.NewString(),
		Type:        models.AccessClient,
		UserID:      visit.UserID,
		PlotID:      visit.PlotID,
		SubjectName: visit.UserName,
		Action:      models.ActionEntry,
		Timestamp:   now,
	}
	if err := v.store.CreateAccessLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("append access log: %w", err)
	}

	if visit.Status == models.VisitApproved {
		if err := v.store.MarkVisitCheckedIn(ctx, visit.VisitID, now); err != nil {
			return nil, fmt.Errorf("mark visit checked in: %w", err)
		}
	}

	log.Printf("🚪 Visit check-in: visit=%s user=%s", visit.VisitID, visit.UserID)
	return &VisitEntry{
		VisitID:     visit.VisitID,
		Name:        visit.UserName,
		ProjectID:   visit.ProjectID,
		ProjectName: visit.ProjectName,
		PlotID:      visit.PlotID,
	}, nil
}
