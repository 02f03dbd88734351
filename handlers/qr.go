package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"plotgate/apperr"
	"plotgate/gate"
	"plotgate/middleware"
	"plotgate/models"
)

// PassStore is the slice of the document store the QR handler needs beyond
// the gate services.
type PassStore interface {
	LatestVisitorQRForClient(ctx context.Context, clientID string) (*models.VisitorQR, error)
}

type QRHandler struct {
	issuer   *gate.Issuer
	verifier *gate.Verifier
	passes   PassStore
}

func NewQRHandler(issuer *gate.Issuer, verifier *gate.Verifier, passes PassStore) *QRHandler {
	return &QRHandler{issuer: issuer, verifier: verifier, passes: passes}
}

type GenerateTokenRequest struct {
	VisitID string `json:"visitId"`
}

// GenerateToken mints (or re-returns) the QR token of a visit. Retrying a
// generation for an already-approved visit returns the same token.
func (h *QRHandler) GenerateToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	var req GenerateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.VisitID == "" {
		writeError(w, "visitId is required", http.StatusBadRequest)
		return
	}

	token, _, err := h.issuer.IssueVisitToken(r.Context(), req.VisitID, user.UserID)
	if err != nil {
		writeServiceError(w, "generate QR token", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"qrCodeToken": token,
	})
}

type VerifyQRRequest struct {
	QRToken string `json:"qrToken"`
	Type    string `json:"type"`
}

// Verify checks a QR payload at the gate: a permanent client credential or a
// single-day visitor pass.
func (h *QRHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req VerifyQRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.QRToken == "" || req.Type == "" {
		writeError(w, "qrToken and type are required", http.StatusBadRequest)
		return
	}

	switch models.AccessType(req.Type) {
	case models.AccessClient:
		entry, err := h.verifier.VerifyClient(r.Context(), req.QRToken)
		if err != nil {
			writeServiceError(w, "verify client QR", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"user": map[string]string{
				"name":  entry.Name,
				"email": entry.Email,
			},
			"plot": map[string]string{
				"id":     entry.PlotID,
				"number": entry.PlotNumber,
			},
		})

	case models.AccessVisitor:
		entry, err := h.verifier.VerifyVisitor(r.Context(), req.QRToken)
		if err != nil {
			writeServiceError(w, "verify visitor QR", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"visitor": map[string]string{
				"name":    entry.Name,
				"phone":   entry.Phone,
				"purpose": entry.Purpose,
			},
			"plot": map[string]string{
				"id": entry.PlotID,
			},
		})

	default:
		writeError(w, "type must be client or visitor", http.StatusBadRequest)
	}
}

type CheckInRequest struct {
	QRToken string `json:"qrToken"`
}

// CheckIn verifies a visit QR token at the gate and marks the booking
// checked in.
func (h *QRHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := h.verifier.CheckInVisit(r.Context(), req.QRToken)
	if err != nil {
		writeServiceError(w, "visit check-in", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"visit":   entry,
	})
}

type IssueVisitorQRRequest struct {
	PlotID       string `json:"plotId"`
	VisitorName  string `json:"visitorName"`
	VisitorPhone string `json:"visitorPhone,omitempty"`
	Purpose      string `json:"purpose,omitempty"`
}

// IssueVisitorQR creates a same-day pass for a named visitor to one of the
// caller's plots.
func (h *QRHandler) IssueVisitorQR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	var req IssueVisitorQRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	qr, err := h.issuer.IssueVisitorPass(r.Context(), gate.VisitorPassInput{
		ClientID:     user.UserID,
		PlotID:       req.PlotID,
		VisitorName:  req.VisitorName,
		VisitorPhone: req.VisitorPhone,
		Purpose:      req.Purpose,
	})
	if err != nil {
		writeServiceError(w, "issue visitor QR", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"qr":      qr,
	})
}

// LatestVisitorQR returns the caller's newest visitor pass. Older passes may
// linger active in storage; only the newest is surfaced.
func (h *QRHandler) LatestVisitorQR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	qr, err := h.passes.LatestVisitorQRForClient(r.Context(), user.UserID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "qr": nil})
			return
		}
		writeServiceError(w, "latest visitor QR", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"qr":      qr,
	})
}
