// Package tasks distributes operational work across the on-site manager
// roster and tracks each task through its lifecycle.
package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"plotgate/apperr"
	"plotgate/models"
)

// Store is the slice of the document store the task service needs.
type Store interface {
	ListUsersByRole(ctx context.Context, role models.UserRole, includeDisabled bool) ([]models.User, error)
	LatestTask(ctx context.Context) (*models.ManagerTask, error)
	CreateTask(ctx context.Context, task *models.ManagerTask) error
	GetTask(ctx context.Context, taskID string) (*models.ManagerTask, error)
	ListTasksByManager(ctx context.Context, managerID string) ([]models.ManagerTask, error)
	UpdateTaskStatus(ctx context.Context, taskID string, status models.TaskStatus, at time.Time) error
	SetTaskFeedbackSubmitted(ctx context.Context, taskID string, at time.Time) error
	CreateFeedback(ctx context.Context, fb *models.ManagerFeedback) error
}

// Service assigns and progresses manager tasks.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService wires the task service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// AssignInput carries the fields for a new task.
type AssignInput struct {
	TaskType    string
	Title       string
	Description string
	Priority    string
	DueDate     string
	ProjectID   string
	PlotID      string
	ClientID    string
}

// Assign creates a task and picks its manager by round-robin over the
// currently active roster. The rotation state is the most recently created
// task: the next manager is the one after the last assignee in today's
// roster order. An assignee who has since fallen off the roster resets the
// rotation to the start rather than to where they would have been.
//
// The latest-task read and the task write are not atomic; concurrent
// creation can hand two tasks to the same manager. Task creation is a
// low-frequency back-office action, so strict fairness under load is not a
// guarantee this version makes.
func (s *Service) Assign(ctx context.Context, in AssignInput) (*models.ManagerTask, error) {
	if in.TaskType == "" || in.Title == "" {
		return nil, apperr.Validation("taskType and title are required")
	}

	managers, err := s.store.ListUsersByRole(ctx, models.RoleManager, false)
	if err != nil {
		return nil, err
	}
	if len(managers) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "no active managers available")
	}

	last, err := s.store.LatestTask(ctx)
	if err != nil {
		return nil, err
	}

	lastIdx := -1
	if last != nil {
		for i := range managers {
			if managers[i].UserID == last.ManagerID {
				lastIdx = i
				break
			}
		}
	}
	next := managers[(lastIdx+1)%len(managers)]

	now := s.now()
	task := &models.ManagerTask{
		TaskID:      uuid.NewString(),
		ManagerID:   next.UserID,
		ManagerName: next.Name,
		TaskType:    in.TaskType,
		Title:       in.Title,
		Description: in.Description,
		Status:      models.TaskPending,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		ProjectID:   in.ProjectID,
		PlotID:      in.PlotID,
		ClientID:    in.ClientID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("persist task: %w", err)
	}

	log.Printf("📋 Task assigned: task=%s manager=%s type=%s", task.TaskID, next.UserID, in.TaskType)
	return task, nil
}

// validTransitions is the task state machine under manager control.
var validTransitions = map[models.TaskStatus][]models.TaskStatus{
	models.TaskPending:    {models.TaskInProgress, models.TaskCancelled},
	models.TaskInProgress: {models.TaskCompleted, models.TaskCancelled},
}

// UpdateStatus moves a manager's own task through its lifecycle. Completed
// and cancelled are terminal.
func (s *Service) UpdateStatus(ctx context.Context, taskID, managerID string, to models.TaskStatus) (*models.ManagerTask, error) {
	if taskID == "" {
		return nil, apperr.Validation("taskId is required")
	}

	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.ManagerID != managerID {
		return nil, apperr.BusinessRule("task is assigned to another manager")
	}

	allowed := false
	for _, next := range validTransitions[task.Status] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperr.BusinessRule(fmt.Sprintf("cannot move task from %s to %s", task.Status, to))
	}

	now := s.now()
	if err := s.store.UpdateTaskStatus(ctx, taskID, to, now); err != nil {
		return nil, err
	}

	task.Status = to
	task.UpdatedAt = now
	return task, nil
}

// FeedbackInput carries a manager's writeup on a completed task.
type FeedbackInput struct {
	TaskID    string
	ManagerID string
	Rating    int
	Comments  string
}

// SubmitFeedback records the one-time feedback on a completed task.
func (s *Service) SubmitFeedback(ctx context.Context, in FeedbackInput) (*models.ManagerFeedback, error) {
	if in.TaskID == "" {
		return nil, apperr.Validation("taskId is required")
	}

	task, err := s.store.GetTask(ctx, in.TaskID)
	if err != nil {
		return nil, err
	}
	if task.ManagerID != in.ManagerID {
		return nil, apperr.BusinessRule("task is assigned to another manager")
	}
	if task.Status != models.TaskCompleted {
		return nil, apperr.BusinessRule("feedback is only accepted on completed tasks")
	}
	if task.FeedbackSubmitted {
		return nil, apperr.BusinessRule("feedback has already been submitted for this task")
	}

	now := s.now()
	fb := &models.ManagerFeedback{
		FeedbackID: uuid.NewString(),
		TaskID:     in.TaskID,
		ManagerID:  in.ManagerID,
		Rating:     in.Rating,
		Comments:   in.Comments,
		CreatedAt:  now,
	}
	if err := s.store.CreateFeedback(ctx, fb); err != nil {
		return nil, fmt.Errorf("persist feedback: %w", err)
	}
	if err := s.store.SetTaskFeedbackSubmitted(ctx, in.TaskID, now); err != nil {
		return nil, apperr.Partial("feedback stored but task flag not updated", err)
	}

	log.Printf("📝 Task feedback: task=%s manager=%s", in.TaskID, in.ManagerID)
	return fb, nil
}

// ListForManager returns a manager's assigned tasks.
func (s *Service) ListForManager(ctx context.Context, managerID string) ([]models.ManagerTask, error) {
	return s.store.ListTasksByManager(ctx, managerID)
}
