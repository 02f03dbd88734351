// Package visits manages the site-visit booking state machine: creation,
// admin decision, and the periodic expiry sweep that finalizes visits and
// retires guest accounts whose last live visit window has closed.
package visits

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"plotgate/apperr"
	"plotgate/models"
)

// Store is the slice of the document store the lifecycle service needs.
type Store interface {
	CreateVisit(ctx context.Context, visit *models.VisitRequest) error
	GetVisit(ctx context.Context, visitID string) (*models.VisitRequest, error)
	RejectVisit(ctx context.Context, visitID, reason, approverID string, at time.Time) error
	ListVisitsByUser(ctx context.Context, userID string) ([]models.VisitRequest, error)
	ListAllVisits(ctx context.Context) ([]models.VisitRequest, error)
}

// TokenIssuer approves a visit and mints its QR token.
type TokenIssuer interface {
	IssueVisitToken(ctx context.Context, visitID, approverID string) (string, time.Time, error)
}

// Service drives a visit request from creation to decision.
type Service struct {
	store  Store
	issuer TokenIssuer
	now    func() time.Time
}

// NewService wires the visit lifecycle service.
func NewService(store Store, issuer TokenIssuer) *Service {
	return &Service{store: store, issuer: issuer, now: time.Now}
}

// CreateInput carries the fields for a new booking.
type CreateInput struct {
	UserID          string
	UserName        string
	UserEmail       string
	UserPhone       string
	ProjectID       string
	ProjectName     string
	PlotID          string
	PlotNumber      string
	TimeSlot        models.TimeSlot
	Notes           string
	IsClientBooking bool
}

// Create inserts a pending visit request. There is no uniqueness constraint
// beyond the storage-assigned id; the same person may hold several pending
// bookings.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.VisitRequest, error) {
	if in.UserID == "" || in.UserName == "" || in.ProjectID == "" {
		return nil, apperr.Validation("userId, userName and projectId are required")
	}
	if in.TimeSlot.Date == "" {
		return nil, apperr.Validation("timeSlot.date is required")
	}
	if _, err := time.Parse("2006-01-02", in.TimeSlot.Date); err != nil {
		return nil, apperr.Validation("timeSlot.date must be YYYY-MM-DD")
	}

	now := s.now()
	visit := &models.VisitRequest{
		VisitID:         uuid.NewString(),
		UserID:          in.UserID,
		UserName:        in.UserName,
		UserEmail:       in.UserEmail,
		UserPhone:       in.UserPhone,
		ProjectID:       in.ProjectID,
		ProjectName:     in.ProjectName,
		PlotID:          in.PlotID,
		PlotNumber:      in.PlotNumber,
		TimeSlot:        in.TimeSlot,
		Status:          models.VisitPending,
		Notes:           in.Notes,
		IsClientBooking: in.IsClientBooking,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.CreateVisit(ctx, visit); err != nil {
		return nil, fmt.Errorf("persist visit: %w", err)
	}

	log.Printf("📅 Visit requested: visit=%s user=%s project=%s date=%s",
		visit.VisitID, in.UserID, in.ProjectID, in.TimeSlot.Date)
	return visit, nil
}

// Decision is the outcome of an admin ruling on a visit.
type Decision struct {
	VisitID string
	Status  models.VisitStatus
	QRToken string
}

// Decide approves or rejects a visit. Approval delegates to the token
// issuer, which also makes re-approval idempotent. Rejection revokes any
// previously issued QR token, so rejecting an approved booking withdraws its
// gate access. A rejection reason is caller-supplied policy; this operation
// records whatever it is given.
func (s *Service) Decide(ctx context.Context, visitID string, approved bool, reason, approverID string) (*Decision, error) {
	if visitID == "" {
		return nil, apperr.Validation("visitId is required")
	}

	// Existence check up front so both branches fail the same way.
	if _, err := s.store.GetVisit(ctx, visitID); err != nil {
		return nil, err
	}

	if approved {
		token, _, err := s.issuer.IssueVisitToken(ctx, visitID, approverID)
		if err != nil {
			return nil, err
		}
		log.Printf("✅ Visit approved: visit=%s by=%s", visitID, approverID)
		return &Decision{VisitID: visitID, Status: models.VisitApproved, QRToken: token}, nil
	}

	if err := s.store.RejectVisit(ctx, visitID, reason, approverID, s.now()); err != nil {
		return nil, err
	}
	log.Printf("⛔ Visit rejected: visit=%s by=%s", visitID, approverID)
	return &Decision{VisitID: visitID, Status: models.VisitRejected}, nil
}

// ListForUser returns a requester's own visits.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.VisitRequest, error) {
	return s.store.ListVisitsByUser(ctx, userID)
}

// ListAll returns every visit, for admin dashboards.
func (s *Service) ListAll(ctx context.Context) ([]models.VisitRequest, error) {
	return s.store.ListAllVisits(ctx)
}
