package handlers

import (
	"encoding/json"
	"net/http"

	"plotgate/middleware"
	"plotgate/models"
	"plotgate/visits"
)

type VisitHandler struct {
	visits *visits.Service
}

func NewVisitHandler(service *visits.Service) *VisitHandler {
	return &VisitHandler{visits: service}
}

type CreateVisitRequest struct {
	ProjectID   string          `json:"projectId"`
	ProjectName string          `json:"projectName,omitempty"`
	PlotID      string          `json:"plotId,omitempty"`
	PlotNumber  string          `json:"plotNumber,omitempty"`
	TimeSlot    models.TimeSlot `json:"timeSlot"`
	Notes       string          `json:"notes,omitempty"`
}

// Create books a site visit for the authenticated user. Client bookings are
// flagged so the gate can distinguish owner visits from guest ones.
func (h *VisitHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	var req CreateVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	visit, err := h.visits.Create(r.Context(), visits.CreateInput{
		UserID:          user.UserID,
		UserName:        user.Name,
		UserEmail:       user.Email,
		UserPhone:       user.Phone,
		ProjectID:       req.ProjectID,
		ProjectName:     req.ProjectName,
		PlotID:          req.PlotID,
		PlotNumber:      req.PlotNumber,
		TimeSlot:        req.TimeSlot,
		Notes:           req.Notes,
		IsClientBooking: user.Role == models.RoleClient,
	})
	if err != nil {
		writeServiceError(w, "create visit", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"visit":   visit,
	})
}

// List returns the caller's own visits; admins see every visit.
func (h *VisitHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	var (
		list []models.VisitRequest
		err  error
	)
	if user.Role == models.RoleAdmin || user.Role == models.RoleSuperAdmin {
		list, err = h.visits.ListAll(r.Context())
	} else {
		list, err = h.visits.ListForUser(r.Context(), user.UserID)
	}
	if err != nil {
		writeServiceError(w, "list visits", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"visits": list,
		"count":  len(list),
	})
}

type ApproveLeaveRequest struct {
	LeaveID  string `json:"leaveId"`
	Approved *bool  `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// Decide approves or rejects a visit booking. The path name predates the
// portal: the deployed UI posts visit decisions to /approve-leave.
func (h *VisitHandler) Decide(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	var req ApproveLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.LeaveID == "" || req.Approved == nil {
		writeError(w, "leaveId and approved are required", http.StatusBadRequest)
		return
	}

	decision, err := h.visits.Decide(r.Context(), req.LeaveID, *req.Approved, req.Reason, user.UserID)
	if err != nil {
		writeServiceError(w, "decide visit", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  decision.Status,
	})
}
