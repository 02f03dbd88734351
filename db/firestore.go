package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"plotgate/apperr"
	"plotgate/models"
)

// Collection names.
const (
	colUsers      = "users"
	colPasswords  = "passwords"
	colProjects   = "projects"
	colPlots      = "plots"
	colVisits     = "visit_requests"
	colVisitorQRs = "visitor_qrs"
	colAccessLogs = "access_logs"
	colTasks      = "manager_tasks"
	colFeedback   = "manager_feedback"
)

// FirestoreDB wraps the Firestore client with typed per-collection
// operations. Errors are classified into apperr kinds so callers can tell a
// missing document from a backend outage.
type FirestoreDB struct {
	client *firestore.Client
}

// NewFirestoreDB initializes a new Firestore client
func NewFirestoreDB(ctx context.Context, projectID, credentialsPath string) (*FirestoreDB, error) {
	opt := option.WithCredentialsFile(credentialsPath)

	config := &firebase.Config{ProjectID: projectID}
	app, err := firebase.NewApp(ctx, config, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firestore client: %w", err)
	}

	log.Printf("✅ Connected to Firestore project: %s", projectID)

	return &FirestoreDB{client: client}, nil
}

// Close closes the Firestore client
func (db *FirestoreDB) Close() error {
	return db.client.Close()
}

// classify maps a Firestore error onto the portal error taxonomy. Firestore
// surfaces gRPC status codes; anything signalling a service-level fault
// becomes retryable Unavailable, a missing document becomes NotFound.
func classify(op string, err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return apperr.Wrap(apperr.KindNotFound, op+" not found", err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return apperr.Unavailable("backend temporarily unavailable", err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// --- User Operations ---

// CreateUserProfile creates the Firestore profile document for an account.
func (db *FirestoreDB) CreateUserProfile(ctx context.Context, user *models.User) error {
	_, err := db.client.Collection(colUsers).Doc(user.UserID).Set(ctx, user)
	if err != nil {
		return classify("user", err)
	}
	return nil
}

// GetUserProfile retrieves a user profile by ID
func (db *FirestoreDB) GetUserProfile(ctx context.Context, userID string) (*models.User, error) {
	doc, err := db.client.Collection(colUsers).Doc(userID).Get(ctx)
	if err != nil {
		return nil, classify("user", err)
	}

	var user models.User
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to parse user: %w", err)
	}

	return &user, nil
}

// GetUserByEmail retrieves a user profile by email
func (db *FirestoreDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	iter := db.client.Collection(colUsers).
		Where("email", "==", email).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, classify("user", err)
	}

	var user models.User
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to parse user: %w", err)
	}

	return &user, nil
}

// ListUsersByRole retrieves users holding a role, optionally including
// disabled accounts.
func (db *FirestoreDB) ListUsersByRole(ctx context.Context, role models.UserRole, includeDisabled bool) ([]models.User, error) {
	q := db.client.Collection(colUsers).Where("role", "==", string(role))
	if !includeDisabled {
		q = q.Where("disabled", "==", false)
	}
	iter := q.Documents(ctx)
	defer iter.Stop()

	var users []models.User
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, classify("users", err)
		}

		var user models.User
		if err := doc.DataTo(&user); err != nil {
			log.Printf("Warning: failed to parse user %s: %v", doc.Ref.ID, err)
			continue
		}
		users = append(users, user)
	}

	return users, nil
}

// SetUserDisabled flips the disabled flag on a profile document.
func (db *FirestoreDB) SetUserDisabled(ctx context.Context, userID string, disabled bool) error {
	_, err := db.client.Collection(colUsers).Doc(userID).Update(ctx, []firestore.Update{
		{Path: "disabled", Value: disabled},
	})
	if err != nil {
		return classify("user", err)
	}
	return nil
}

// UpdateLastLogin stamps a profile with its latest login time.
func (db *FirestoreDB) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := db.client.Collection(colUsers).Doc(userID).Update(ctx, []firestore.Update{
		{Path: "last_login", Value: at},
	})
	if err != nil {
		return classify("user", err)
	}
	return nil
}

// --- Password Operations ---

// StorePasswordHash stores a password hash for a user
func (db *FirestoreDB) StorePasswordHash(ctx context.Context, userID, passwordHash string) error {
	_, err := db.client.Collection(colPasswords).Doc(userID).Set(ctx, map[string]interface{}{
		"user_id":       userID,
		"password_hash": passwordHash,
		"updated_at":    time.Now(),
	})
	if err != nil {
		return classify("password", err)
	}
	return nil
}

// GetPasswordHash retrieves a password hash for a user
func (db *FirestoreDB) GetPasswordHash(ctx context.Context, userID string) (string, error) {
	doc, err := db.client.Collection(colPasswords).Doc(userID).Get(ctx)
	if err != nil {
		return "", classify("password", err)
	}

	data := doc.Data()
	if hash, ok := data["password_hash"].(string); ok {
		return hash, nil
	}

	return "", apperr.NotFound("password hash not found")
}

// --- Project / Plot Operations ---

// CreateProject creates a project document.
func (db *FirestoreDB) CreateProject(ctx context.Context, project *models.Project) error {
	_, err := db.client.Collection(colProjects).Doc(project.ProjectID).Set(ctx, project)
	if err != nil {
		return classify("project", err)
	}
	return nil
}

// GetProject retrieves a project by ID
func (db *FirestoreDB) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	doc, err := db.client.Collection(colProjects).Doc(projectID).Get(ctx)
	if err != nil {
		return nil, classify("project", err)
	}

	var project models.Project
	if err := doc.DataTo(&project); err != nil {
		return nil, fmt.Errorf("failed to parse project: %w", err)
	}

	return &project, nil
}

// CreatePlot creates a plot document.
func (db *FirestoreDB) CreatePlot(ctx context.Context, plot *models.Plot) error {
	_, err := db.client.Collection(colPlots).Doc(plot.PlotID).Set(ctx, plot)
	if err != nil {
		return classify("plot", err)
	}
	return nil
}

// GetPlot retrieves a plot by ID
func (db *FirestoreDB) GetPlot(ctx context.Context, plotID string) (*models.Plot, error) {
	doc, err := db.client.Collection(colPlots).Doc(plotID).Get(ctx)
	if err != nil {
		return nil, classify("plot", err)
	}

	var plot models.Plot
	if err := doc.DataTo(&plot); err != nil {
		return nil, fmt.Errorf("failed to parse plot: %w", err)
	}

	return &plot, nil
}

// --- Visit Request Operations ---

// CreateVisit creates a visit request document.
func (db *FirestoreDB) CreateVisit(ctx context.Context, visit *models.VisitRequest) error {
	_, err := db.client.Collection(colVisits).Doc(visit.VisitID).Set(ctx, visit)
	if err != nil {
		return classify("visit", err)
	}
	return nil
}

// GetVisit retrieves a visit request by ID
func (db *FirestoreDB) GetVisit(ctx context.Context, visitID string) (*models.VisitRequest, error) {
	doc, err := db.client.Collection(colVisits).Doc(visitID).Get(ctx)
	if err != nil {
		return nil, classify("visit", err)
	}

	var visit models.VisitRequest
	if err := doc.DataTo(&visit); err != nil {
		return nil, fmt.Errorf("failed to parse visit: %w", err)
	}

	return &visit, nil
}

// ApproveVisit stamps the approval fields and QR token onto a visit.
func (db *FirestoreDB) ApproveVisit(ctx context.Context, visitID, token string, expiry time.Time, approverID string, at time.Time) error {
	_, err := db.client.Collection(colVisits).Doc(visitID).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(models.VisitApproved)},
		{Path: "qr_token", Value: token},
		{Path: "qr_expiry", Value: expiry},
		{Path: "approved_by", Value: approverID},
		{Path: "approved_at", Value: at},
		{Path: "updated_at", Value: at},
	})
	if err != nil {
		return classify("visit", err)
	}
	return nil
}

// RejectVisit stamps the rejection fields onto a visit. Any QR token is
// removed so a token exists only on approved or checked_in visits; rejecting
// an already-approved booking revokes its gate access.
func (db *FirestoreDB) RejectVisit(ctx context.Context, visitID, reason, approverID string, at time.Time) error {
	_, err := db.client.Collection(colVisits).Doc(visitID).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(models.VisitRejected)},
		{Path: "qr_token", Value: firestore.Delete},
		{Path: "rejection_reason", Value: reason},
		{Path: "approved_by", Value: approverID},
		{Path: "approved_at", Value: at},
		{Path: "updated_at", Value: at},
	})
	if err != nil {
		return classify("visit", err)
	}
	return nil
}

// MarkVisitCheckedIn transitions an approved visit to checked_in.
func (db *FirestoreDB) MarkVisitCheckedIn(ctx context.Context, visitID string, at time.Time) error {
	_, err := db.client.Collection(colVisits).Doc(visitID).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(models.VisitCheckedIn)},
		{Path: "updated_at", Value: at},
	})
	if err != nil {
		return classify("visit", err)
	}
	return nil
}

// CompleteVisit finalizes a visit. The QR token is removed so a token exists
// only on approved or checked_in visits; the expiry stays for audit.
func (db *FirestoreDB) CompleteVisit(ctx context.Context, visitID string, at time.Time) error {
	_, err := db.client.Collection(colVisits).Doc(visitID).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(models.VisitCompleted)},
		{Path: "qr_token", Value: firestore.Delete},
		{Path: "updated_at", Value: at},
	})
	if err != nil {
		return classify("visit", err)
	}
	return nil
}

// GetVisitByToken finds the visit holding a QR token. Tokens only exist on
// approved and checked-in visits, so at most one live match exists.
func (db *FirestoreDB) GetVisitByToken(ctx context.Context, token string) (*models.VisitRequest, error) {
	iter := db.client.Collection(colVisits).
		Where("qr_token", "==", token).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, apperr.NotFound("visit not found")
	}
	if err != nil {
		return nil, classify("visit", err)
	}

	var visit models.VisitRequest
	if err := doc.DataTo(&visit); err != nil {
		return nil, fmt.Errorf("failed to parse visit: %w", err)
	}

	return &visit, nil
}

// ListVisitsByUser retrieves all visits requested by a user.
func (db *FirestoreDB) ListVisitsByUser(ctx context.Context, userID string) ([]models.VisitRequest, error) {
	iter := db.client.Collection(colVisits).
		Where("user_id", "==", userID).
		Documents(ctx)
	defer iter.Stop()

	return collectVisits(iter)
}

// ListAllVisits retrieves every visit request.
func (db *FirestoreDB) ListAllVisits(ctx context.Context) ([]models.VisitRequest, error) {
	iter := db.client.Collection(colVisits).Documents(ctx)
	defer iter.Stop()

	return collectVisits(iter)
}

// ListExpiredVisits retrieves approved or checked-in visits whose QR validity
// window has passed.
func (db *FirestoreDB) ListExpiredVisits(ctx context.Context, now time.Time) ([]models.VisitRequest, error) {
	iter := db.client.Collection(colVisits).
		Where("status", "in", []string{string(models.VisitApproved), string(models.VisitCheckedIn)}).
		Where("qr_expiry", "<", now).
		Documents(ctx)
	defer iter.Stop()

	return collectVisits(iter)
}

// ListLiveVisitsForUser retrieves a user's visits that still hold a valid QR
// window (approved or checked-in, expiry in the future).
func (db *FirestoreDB) ListLiveVisitsForUser(ctx context.Context, userID string, now time.Time) ([]models.VisitRequest, error) {
	iter := db.client.Collection(colVisits).
		Where("user_id", "==", userID).
		Where("status", "in", []string{string(models.VisitApproved), string(models.VisitCheckedIn)}).
		Where("qr_expiry", ">", now).
		Documents(ctx)
	defer iter.Stop()

	return collectVisits(iter)
}

func collectVisits(iter *firestore.DocumentIterator) ([]models.VisitRequest, error) {
	var visits []models.VisitRequest
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, classify("visits", err)
		}

		var visit models.VisitRequest
		if err := doc.DataTo(&visit); err != nil {
			log.Printf("Warning: failed to parse visit %s: %v", doc.Ref.ID, err)
			continue
		}
		visits = append(visits, visit)
	}

	return visits, nil
}

// --- Visitor QR Operations ---

// CreateVisitorQR creates a visitor pass document.
func (db *FirestoreDB) CreateVisitorQR(ctx context.Context, qr *models.VisitorQR) error {
	_, err := db.client.Collection(colVisitorQRs).Doc(qr.QRID).Set(ctx, qr)
	if err != nil {
		return classify("visitor QR", err)
	}
	return nil
}

// FindActiveVisitorQR finds the visitor pass matching a token that is still
// active and unexpired. A wrong token, an already-used pass and a past-expiry
// pass all come back as the same NotFound; callers present them uniformly.
func (db *FirestoreDB) FindActiveVisitorQR(ctx context.Context, token string, now time.Time) (*models.VisitorQR, error) {
	iter := db.client.Collection(colVisitorQRs).
		Where("qr_token", "==", token).
		Where("status", "==", string(models.VisitorQRActive)).
		Where("expiry_date", ">", now).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, apperr.NotFound("visitor QR not found")
	}
	if err != nil {
		return nil, classify("visitor QR", err)
	}

	var qr models.VisitorQR
	if err := doc.DataTo(&qr); err != nil {
		return nil, fmt.Errorf("failed to parse visitor QR: %w", err)
	}

	return &qr, nil
}

// MarkVisitorQRUsed consumes a visitor pass after a successful scan.
func (db *FirestoreDB) MarkVisitorQRUsed(ctx context.Context, qrID string) error {
	_, err := db.client.Collection(colVisitorQRs).Doc(qrID).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(models.VisitorQRUsed)},
	})
	if err != nil {
		return classify("visitor QR", err)
	}
	return nil
}

// LatestVisitorQRForClient retrieves the newest pass a client has issued.
// Older passes may still be active in storage; the portal only surfaces the
// newest one.
func (db *FirestoreDB) LatestVisitorQRForClient(ctx context.Context, clientID string) (*models.VisitorQR, error) {
	iter := db.client.Collection(colVisitorQRs).
		Where("client_id", "==", clientID).
		OrderBy("created_at", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, apperr.NotFound("no visitor QR issued")
	}
	if err != nil {
		return nil, classify("visitor QR", err)
	}

	var qr models.VisitorQR
	if err := doc.DataTo(&qr); err != nil {
		return nil, fmt.Errorf("failed to parse visitor QR: %w", err)
	}

	return &qr, nil
}

// --- Access Log Operations ---

// CreateAccessLog appends an access event. Access logs are never updated or
// deleted.
func (db *FirestoreDB) CreateAccessLog(ctx context.Context, entry *models.AccessLog) error {
	_, err := db.client.Collection(colAccessLogs).Doc(entry.LogID).Set(ctx, entry)
	if err != nil {
		return classify("access log", err)
	}
	return nil
}

// ListAccessLogs retrieves all access events, newest first.
func (db *FirestoreDB) ListAccessLogs(ctx context.Context) ([]models.AccessLog, error) {
	iter := db.client.Collection(colAccessLogs).
		OrderBy("timestamp", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var logs []models.AccessLog
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, classify("access logs", err)
		}

		var entry models.AccessLog
		if err := doc.DataTo(&entry); err != nil {
			log.Printf("Warning: failed to parse access log %s: %v", doc.Ref.ID, err)
			continue
		}
		logs = append(logs, entry)
	}

	return logs, nil
}

// --- Manager Task Operations ---

// CreateTask creates a manager task document.
func (db *FirestoreDB) CreateTask(ctx context.Context, task *models.ManagerTask) error {
	_, err := db.client.Collection(colTasks).Doc(task.TaskID).Set(ctx, task)
	if err != nil {
		return classify("task", err)
	}
	return nil
}

// GetTask retrieves a task by ID
func (db *FirestoreDB) GetTask(ctx context.Context, taskID string) (*models.ManagerTask, error) {
	doc, err := db.client.Collection(colTasks).Doc(taskID).Get(ctx)
	if err != nil {
		return nil, classify("task", err)
	}

	var task models.ManagerTask
	if err := doc.DataTo(&task); err != nil {
		return nil, fmt.Errorf("failed to parse task: %w", err)
	}

	return &task, nil
}

// LatestTask retrieves the most recently created task, or nil when no task
// exists yet. The round-robin assigner reads its rotation state from it.
func (db *FirestoreDB) LatestTask(ctx context.Context) (*models.ManagerTask, error) {
	iter := db.client.Collection(colTasks).
		OrderBy("created_at", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, classify("task", err)
	}

	var task models.ManagerTask
	if err := doc.DataTo(&task); err != nil {
		return nil, fmt.Errorf("failed to parse task: %w", err)
	}

	return &task, nil
}

// ListTasksByManager retrieves all tasks assigned to a manager.
func (db *FirestoreDB) ListTasksByManager(ctx context.Context, managerID string) ([]models.ManagerTask, error) {
	iter := db.client.Collection(colTasks).
		Where("manager_id", "==", managerID).
		Documents(ctx)
	defer iter.Stop()

	var tasks []models.ManagerTask
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, classify("tasks", err)
		}

		var task models.ManagerTask
		if err := doc.DataTo(&task); err != nil {
			log.Printf("Warning: failed to parse task %s: %v", doc.Ref.ID, err)
			continue
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

// UpdateTaskStatus moves a task through its lifecycle.
func (db *FirestoreDB) UpdateTaskStatus(ctx context.Context, taskID string, taskStatus models.TaskStatus, at time.Time) error {
	_, err := db.client.Collection(colTasks).Doc(taskID).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(taskStatus)},
		{Path: "updated_at", Value: at},
	})
	if err != nil {
		return classify("task", err)
	}
	return nil
}

// SetTaskFeedbackSubmitted flags a completed task as having feedback.
func (db *FirestoreDB) SetTaskFeedbackSubmitted(ctx context.Context, taskID string, at time.Time) error {
	_, err := db.client.Collection(colTasks).Doc(taskID).Update(ctx, []firestore.Update{
		{Path: "feedback_submitted", Value: true},
		{Path: "updated_at", Value: at},
	})
	if err != nil {
		return classify("task", err)
	}
	return nil
}

// CreateFeedback stores a manager's feedback record.
func (db *FirestoreDB) CreateFeedback(ctx context.Context, fb *models.ManagerFeedback) error {
	_, err := db.client.Collection(colFeedback).Doc(fb.FeedbackID).Set(ctx, fb)
	if err != nil {
		return classify("feedback", err)
	}
	return nil
}
