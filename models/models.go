// models.go
// Defines the core data structures of the plot-portal backend: users, plots,
// visit requests, QR passes, access logs and manager tasks.

package models

import (
	"time"
)

// UserRole defines the access level of a portal account.
type UserRole string

const (
	RoleSuperAdmin UserRole = "superadmin"
	RoleAdmin      UserRole = "admin"
	RoleManager    UserRole = "manager"
	RoleClient     UserRole = "client"
	RoleGuest      UserRole = "guest"
)

// User is the Firestore profile document mirroring a Firebase Auth account.
// The role and disabled flag must stay consistent with the auth record; the
// users service is the only writer that touches both.
type User struct {
	UserID    string    `firestore:"user_id" json:"user_id"`
	Email     string    `firestore:"email" json:"email"`
	Name      string    `firestore:"name" json:"name"`
	Phone     string    `firestore:"phone,omitempty" json:"phone,omitempty"`
	Role      UserRole  `firestore:"role" json:"role"`
	Disabled  bool      `firestore:"disabled" json:"disabled"`
	CreatedAt time.Time `firestore:"created_at" json:"created_at"`
	LastLogin time.Time `firestore:"last_login,omitempty" json:"last_login,omitempty"`
}

// Project is a development the portal sells plots in.
type Project struct {
	ProjectID string `firestore:"project_id" json:"project_id"`
	Name      string `firestore:"name" json:"name"`
	Location  string `firestore:"location,omitempty" json:"location,omitempty"`
}

// PlotStatus tracks where a plot sits in the sales pipeline.
type PlotStatus string

const (
	PlotAvailable PlotStatus = "available"
	PlotReserved  PlotStatus = "reserved"
	PlotSold      PlotStatus = "sold"
)

// Plot is a saleable unit inside a project. OwnerID is empty until sold.
type Plot struct {
	PlotID     string     `firestore:"plot_id" json:"plot_id"`
	ProjectID  string     `firestore:"project_id" json:"project_id"`
	PlotNumber string     `firestore:"plot_number" json:"plot_number"`
	OwnerID    string     `firestore:"owner_id,omitempty" json:"owner_id,omitempty"`
	Status     PlotStatus `firestore:"status" json:"status"`
}

// VisitStatus is the state of a site-visit booking.
type VisitStatus string

const (
	VisitPending   VisitStatus = "pending"
	VisitApproved  VisitStatus = "approved"
	VisitRejected  VisitStatus = "rejected"
	VisitCheckedIn VisitStatus = "checked_in"
	VisitCompleted VisitStatus = "completed"
)

// TimeSlot is the scheduled window of a visit. Date is YYYY-MM-DD.
type TimeSlot struct {
	Date  string `firestore:"date" json:"date"`
	Start string `firestore:"start" json:"start"`
	End   string `firestore:"end" json:"end"`
}

// VisitRequest is one person's booking to physically visit a project or plot.
//
// QRToken is set if and only if Status is approved or checked_in. QRExpiry,
// once set, is end-of-day of the visit date and never moves backward.
type VisitRequest struct {
	VisitID         string      `firestore:"visit_id" json:"visit_id"`
	UserID          string      `firestore:"user_id" json:"user_id"`
	UserName        string      `firestore:"user_name" json:"user_name"`
	UserEmail       string      `firestore:"user_email,omitempty" json:"user_email,omitempty"`
	UserPhone       string      `firestore:"user_phone,omitempty" json:"user_phone,omitempty"`
	ProjectID       string      `firestore:"project_id" json:"project_id"`
	ProjectName     string      `firestore:"project_name,omitempty" json:"project_name,omitempty"`
	PlotID          string      `firestore:"plot_id,omitempty" json:"plot_id,omitempty"`
	PlotNumber      string      `firestore:"plot_number,omitempty" json:"plot_number,omitempty"`
	TimeSlot        TimeSlot    `firestore:"time_slot" json:"time_slot"`
	Status          VisitStatus `firestore:"status" json:"status"`
	QRToken         string      `firestore:"qr_token,omitempty" json:"qr_token,omitempty"`
	QRExpiry        time.Time   `firestore:"qr_expiry,omitempty" json:"qr_expiry,omitempty"`
	Notes           string      `firestore:"notes,omitempty" json:"notes,omitempty"`
	IsClientBooking bool        `firestore:"is_client_booking" json:"is_client_booking"`
	ApprovedBy      string      `firestore:"approved_by,omitempty" json:"approved_by,omitempty"`
	ApprovedAt      time.Time   `firestore:"approved_at,omitempty" json:"approved_at,omitempty"`
	RejectionReason string      `firestore:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time   `firestore:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `firestore:"updated_at" json:"updated_at"`
}

// HasLiveQR reports whether the visit holds a QR token that is still within
// its validity window at the given instant.
func (v *VisitRequest) HasLiveQR(now time.Time) bool {
	if v.Status != VisitApproved && v.Status != VisitCheckedIn {
		return false
	}
	return v.QRExpiry.After(now)
}

// VisitorQRStatus is the state of a client-issued visitor pass.
type VisitorQRStatus string

const (
	VisitorQRActive  VisitorQRStatus = "active"
	VisitorQRUsed    VisitorQRStatus = "used"
	VisitorQRExpired VisitorQRStatus = "expired"
)

// VisitorQR is a single-day pass a client issues for a named visitor to
// access one of their plots. It expires at end of the issuance day and is
// consumed by the first successful gate scan.
type VisitorQR struct {
	QRID         string          `firestore:"qr_id" json:"qr_id"`
	ClientID     string          `firestore:"client_id" json:"client_id"`
	PlotID       string          `firestore:"plot_id" json:"plot_id"`
	VisitorName  string          `firestore:"visitor_name" json:"visitor_name"`
	VisitorPhone string          `firestore:"visitor_phone,omitempty" json:"visitor_phone,omitempty"`
	Purpose      string          `firestore:"purpose,omitempty" json:"purpose,omitempty"`
	QRToken      string          `firestore:"qr_token" json:"qr_token"`
	Status       VisitorQRStatus `firestore:"status" json:"status"`
	ExpiryDate   time.Time       `firestore:"expiry_date" json:"expiry_date"`
	CreatedAt    time.Time       `firestore:"created_at" json:"created_at"`
}

// AccessType distinguishes the two kinds of gate entry.
type AccessType string

const (
	AccessClient  AccessType = "client"
	AccessVisitor AccessType = "visitor"
)

// ActionEntry is the only access-log action the gate currently produces.
const ActionEntry = "entry"

// AccessLog is an append-only record of a physical entry event. Written
// exclusively by QR verification, never mutated or deleted.
type AccessLog struct {
	LogID       string     `firestore:"log_id" json:"log_id"`
	Type        AccessType `firestore:"type" json:"type"`
	UserID      string     `firestore:"user_id,omitempty" json:"user_id,omitempty"`
	VisitorID   string     `firestore:"visitor_id,omitempty" json:"visitor_id,omitempty"`
	ClientID    string     `firestore:"client_id,omitempty" json:"client_id,omitempty"`
	PlotID      string     `firestore:"plot_id,omitempty" json:"plot_id,omitempty"`
	SubjectName string     `firestore:"subject_name,omitempty" json:"subject_name,omitempty"`
	Action      string     `firestore:"action" json:"action"`
	Timestamp   time.Time  `firestore:"timestamp" json:"timestamp"`
}

// TaskStatus is the state of an operational manager task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

// ManagerTask is a unit of operational work auto-assigned to a manager at
// creation time by round-robin over the active roster. ManagerID is never
// reassigned afterward.
type ManagerTask struct {
	TaskID            string     `firestore:"task_id" json:"task_id"`
	ManagerID         string     `firestore:"manager_id" json:"manager_id"`
	ManagerName       string     `firestore:"manager_name" json:"manager_name"`
	TaskType          string     `firestore:"task_type" json:"task_type"`
	Title             string     `firestore:"title" json:"title"`
	Description       string     `firestore:"description,omitempty" json:"description,omitempty"`
	Status            TaskStatus `firestore:"status" json:"status"`
	Priority          string     `firestore:"priority,omitempty" json:"priority,omitempty"`
	DueDate           string     `firestore:"due_date,omitempty" json:"due_date,omitempty"`
	ProjectID         string     `firestore:"project_id,omitempty" json:"project_id,omitempty"`
	PlotID            string     `firestore:"plot_id,omitempty" json:"plot_id,omitempty"`
	ClientID          string     `firestore:"client_id,omitempty" json:"client_id,omitempty"`
	FeedbackSubmitted bool       `firestore:"feedback_submitted" json:"feedback_submitted"`
	CreatedAt         time.Time  `firestore:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `firestore:"updated_at" json:"updated_at"`
}

// ManagerFeedback is a manager's one-time writeup on a completed task.
type ManagerFeedback struct {
	FeedbackID string    `firestore:"feedback_id" json:"feedback_id"`
	TaskID     string    `firestore:"task_id" json:"task_id"`
	ManagerID  string    `firestore:"manager_id" json:"manager_id"`
	Rating     int       `firestore:"rating,omitempty" json:"rating,omitempty"`
	Comments   string    `firestore:"comments,omitempty" json:"comments,omitempty"`
	CreatedAt  time.Time `firestore:"created_at" json:"created_at"`
}
