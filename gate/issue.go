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

// IssuerStore is the slice of the document store token issuance needs.
type IssuerStore interface {
	GetVisit(ctx context.Context, visitID string) (*models.VisitRequest, error)
	ApproveVisit(ctx context.Context, visitID, token string, expiry time.Time, approverID string, at time.Time) error
	CreateVisitorQR(ctx context.Context, qr *models.VisitorQR) error
}

// Issuer mints QR tokens for approved visits and same-day visitor passes.
type Issuer struct {
	store IssuerStore
	loc   *time.Location
	now   func() time.Time
}

// NewIssuer wires a token issuer. loc is the site timezone used for
// end-of-day expiry computation.
func NewIssuer(store IssuerStore, loc *time.Location) *Issuer {
	return &Issuer{store: store, loc: loc, now: time.Now}
}

// IssueVisitToken approves a visit and mints its QR token. Calling it again
// on an already-approved visit returns the existing token unchanged, which
// makes approval safe to retry.
//
// The read-then-write is not atomic: two concurrent approvals can both mint
// a token with the last write winning. Approval is single-admin-driven, so
// this is an accepted gap rather than something locking papers over.
func (i *Issuer) IssueVisitToken(ctx context.Context, visitID, approverID string) (string, time.Time, error) {
	visit, err := i.store.GetVisit(ctx, visitID)
	if err != nil {
		return "", time.Time{}, err
	}

	if visit.Status == models.VisitApproved && visit.QRToken != "" {
		return visit.QRToken, visit.QRExpiry, nil
	}

	expiry, err := VisitExpiry(visit.TimeSlot.Date, i.loc)
	if err != nil {
		return "", time.Time{}, err
	}

	token := NewToken()
	if err := i.store.ApproveVisit(ctx, visitID, token, expiry, approverID, i.now()); err != nil {
		return "", time.Time{}, fmt.Errorf("persist visit approval: %w", err)
	}

	log.Printf("🎫 Visit QR issued: visit=%s expiry=%s", visitID, expiry.Format(time.RFC3339))
	return token, expiry, nil
}

// VisitorPassInput carries the fields for a client-issued visitor pass.
type VisitorPassInput struct {
	ClientID     string
	PlotID       string
	VisitorName  string
	VisitorPhone string
	Purpose      string
}

// IssueVisitorPass creates a single-day pass for a named visitor. The pass
// expires at end of the issuance day, not the day of any visit. A prior
// active pass for the same client is left untouched in storage; the portal
// surfaces only the newest one.
func (i *Issuer) IssueVisitorPass(ctx context.Context, in VisitorPassInput) (*models.VisitorQR, error) {
	if in.ClientID == "" || in.PlotID == "" || in.VisitorName == "" {
		return nil, apperr.Validation("clientId, plotId and visitorName are required")
	}

	now := i.now()
	qr := &models.VisitorQR{
		QRID:         uuid.NewString(),
		ClientID:     in.ClientID,
		PlotID:       in.PlotID,
		VisitorName:  in.VisitorName,
		VisitorPhone: in.VisitorPhone,
		Purpose:      in.Purpose,
		QRToken:      NewToken(),
		Status:       models.VisitorQRActive,
		ExpiryDate:   EndOfDay(now, i.loc),
		CreatedAt:    now,
	}

	if err := i.store.CreateVisitorQR(ctx, qr); err != nil {
		return nil, fmt.Errorf("persist visitor pass: %w", err)
	}

	log.Printf("🎫 Visitor pass issued: client=%s visitor=%s plot=%s", in.ClientID, in.VisitorName, in.PlotID)
	return qr, nil
}
