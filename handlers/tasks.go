package handlers

import (
	"encoding/json"
	"net/http"

	"plotgate/middleware"
	"plotgate/models"
	"plotgate/tasks"
)

type TaskHandler struct {
	tasks *tasks.Service
}

func NewTaskHandler(service *tasks.Service) *TaskHandler {
	return &TaskHandler{tasks: service}
}

type AssignTaskRequest struct {
	TaskType    string `json:"taskType"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	DueDate     string `json:"dueDate"`
	ProjectID   string `json:"projectId,omitempty"`
	PlotID      string `json:"plotId,omitempty"`
	ClientID    string `json:"clientId,omitempty"`
}

// Assign creates an operational task and hands it to the next manager in the
// rotation.
func (h *TaskHandler) Assign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AssignTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.TaskType == "" || req.Title == "" {
		writeError(w, "taskType and title are required", http.StatusBadRequest)
		return
	}

	task, err := h.tasks.Assign(r.Context(), tasks.AssignInput{
		TaskType:    req.TaskType,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		ProjectID:   req.ProjectID,
		PlotID:      req.PlotID,
		ClientID:    req.ClientID,
	})
	if err != nil {
		writeServiceError(w, "assign task", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"taskId":  task.TaskID,
		"assignedTo": map[string]string{
			"managerId":   task.ManagerID,
			"managerName": task.ManagerName,
		},
	})
}

// List returns the authenticated manager's tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	list, err := h.tasks.ListForManager(r.Context(), user.UserID)
	if err != nil {
		writeServiceError(w, "list tasks", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": list,
		"count": len(list),
	})
}

type UpdateTaskStatusRequest struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

// UpdateStatus moves the caller's own task through its lifecycle.
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	var req UpdateTaskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.TaskID == "" || req.Status == "" {
		writeError(w, "taskId and status are required", http.StatusBadRequest)
		return
	}

	task, err := h.tasks.UpdateStatus(r.Context(), req.TaskID, user.UserID, models.TaskStatus(req.Status))
	if err != nil {
		writeServiceError(w, "update task status", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"task":    task,
	})
}

type TaskFeedbackRequest struct {
	TaskID   string `json:"taskId"`
	Rating   int    `json:"rating,omitempty"`
	Comments string `json:"comments,omitempty"`
}

// Feedback records the one-time writeup on a completed task.
func (h *TaskHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	var req TaskFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	fb, err := h.tasks.SubmitFeedback(r.Context(), tasks.FeedbackInput{
		TaskID:    req.TaskID,
		ManagerID: user.UserID,
		Rating:    req.Rating,
		Comments:  req.Comments,
	})
	if err != nil {
		writeServiceError(w, "submit task feedback", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"feedback": fb,
	})
}
