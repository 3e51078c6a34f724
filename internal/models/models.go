package models

import (
	"time"
)

// Role is one of the closed set of organizational roles.
type Role string

const (
	RoleUser                  Role = "user"
	RoleExecutiveHead         Role = "executive_head"
	RoleDirectorOffice        Role = "director_office"
	RoleDirectorGeneral       Role = "director_general"
	RoleDeputyDirectorGeneral Role = "deputy_director_general"
	RoleExecutiveAdvisor      Role = "executive_advisor"
	RoleAdmin                 Role = "admin"
)

// TopLevelRoles occupy the apex of the hierarchy (depth-0 department).
var TopLevelRoles = []Role{RoleDirectorGeneral, RoleDeputyDirectorGeneral, RoleExecutiveAdvisor}

// RoleCapability describes what a role may do and where it sits in the tree.
type RoleCapability struct {
	CanApprove              bool
	CanAssign               bool
	ExpectedDepartmentDepth int // segments; 0 = top-level sentinel department
}

// Capabilities is the single role-capability table consulted by routing and
// lifecycle guards instead of scattered role checks.
var Capabilities = map[Role]RoleCapability{
	RoleDirectorGeneral:       {CanApprove: true, CanAssign: true, ExpectedDepartmentDepth: 0},
	RoleDeputyDirectorGeneral: {CanApprove: true, CanAssign: true, ExpectedDepartmentDepth: 0},
	RoleExecutiveAdvisor:      {CanApprove: true, CanAssign: true, ExpectedDepartmentDepth: 0},
	RoleDirectorOffice:        {CanApprove: true, CanAssign: true, ExpectedDepartmentDepth: 2},
	RoleExecutiveHead:         {CanApprove: true, CanAssign: true, ExpectedDepartmentDepth: 3},
	RoleUser:                  {CanApprove: true, CanAssign: false, ExpectedDepartmentDepth: 3},
	RoleAdmin:                 {CanApprove: false, CanAssign: false, ExpectedDepartmentDepth: 0},
}

// IsTopLevel reports whether the role sits at the apex of the hierarchy.
func (r Role) IsTopLevel() bool {
	for _, tl := range TopLevelRoles {
		if r == tl {
			return true
		}
	}
	return false
}

// Valid reports whether the role belongs to the closed role set.
func (r Role) Valid() bool {
	_, ok := Capabilities[r]
	return ok
}

// User represents a user in the directory. Users are never hard-deleted;
// deactivation flips Active and removes them from new routing candidate sets
// while keeping them visible on past letters.
type User struct {
	ID           string     `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Phone        string     `json:"phone,omitempty" db:"phone"`
	Role         Role       `json:"role" db:"role"`
	Department   string     `json:"department" db:"department"` // ">"-delimited path, up to 3 segments
	Active       bool       `json:"active" db:"active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Status is a letter lifecycle status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusClosed     Status = "closed"
)

// Valid reports whether the status belongs to the closed status set.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusAssigned,
		StatusInProgress, StatusCompleted, StatusClosed:
		return true
	}
	return false
}

// Terminal reports whether no further status transitions are possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCompleted, StatusClosed:
		return true
	}
	return false
}

// Priority is a letter priority.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether the priority belongs to the closed priority set.
func (p Priority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Attachment references an uploaded file by metadata only. File bytes live in
// an external store and are never inspected here.
type Attachment struct {
	Filename    string `json:"filename" db:"filename"`
	ContentType string `json:"content_type" db:"content_type"`
	Size        int64  `json:"size" db:"size"`
}

// Assignment carries the delegation sub-record of an assigned letter copy.
// A letter with a non-nil Assignment is what the UI presents as a task.
type Assignment struct {
	OriginalLetterID   string `json:"original_letter_id" db:"original_letter_id"`
	AssignerID         string `json:"assigner_id" db:"assigner_id"`
	AssignerName       string `json:"assigner_name" db:"assigner_name"`
	AssignerDepartment string `json:"assigner_department" db:"assigner_department"`
	Comment            string `json:"comment" db:"assign_comment"`
}

// Letter is the single tagged entity for both routed letters and assigned
// task copies. Archived, Starred and Unread are orthogonal to Status.
type Letter struct {
	ID              string              `json:"id" db:"id"`
	Subject         string              `json:"subject" db:"subject"`
	Content         string              `json:"content" db:"content"`
	FromEmail       string              `json:"from_email" db:"from_email"`
	FromName        string              `json:"from_name" db:"from_name"`
	ToEmail         string              `json:"to_email" db:"to_email"`
	ToName          string              `json:"to_name" db:"to_name"`
	Department      string              `json:"department" db:"department"`
	Priority        Priority            `json:"priority" db:"priority"`
	Status          Status              `json:"status" db:"status"`
	CC              []string            `json:"cc"`
	CCEmployees     map[string][]string `json:"cc_employees"`
	Attachments     []Attachment        `json:"attachments"`
	Archived        bool                `json:"archived" db:"archived"`
	Starred         bool                `json:"starred" db:"starred"`
	Unread          bool                `json:"unread" db:"unread"`
	RejectionReason string              `json:"rejection_reason,omitempty" db:"rejection_reason"`
	ApproverID      string              `json:"approver_id,omitempty" db:"approver_id"`
	ApprovedAt      *time.Time          `json:"approved_at,omitempty" db:"approved_at"`
	RejectorID      string              `json:"rejector_id,omitempty" db:"rejector_id"`
	RejectedAt      *time.Time          `json:"rejected_at,omitempty" db:"rejected_at"`
	Assignment      *Assignment         `json:"assignment,omitempty"`
	CreatedAt       time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at" db:"updated_at"`
}

// IsTask reports whether the letter is an assigned copy of another letter.
func (l *Letter) IsTask() bool {
	return l.Assignment != nil
}

// ProgressEntry is one append-only progress log record on an assigned letter.
type ProgressEntry struct {
	ID        string    `json:"id" db:"id"`
	LetterID  string    `json:"letter_id" db:"letter_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Comment   string    `json:"comment" db:"comment"`
	Status    Status    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AuditLog represents an audit log entry
type AuditLog struct {
	ID        uint      `json:"id" db:"id"`
	UserID    *string   `json:"user_id,omitempty" db:"user_id"`
	UserEmail *string   `json:"user_email,omitempty" db:"user_email"`
	Action    string    `json:"action" db:"action"`
	Resource  string    `json:"resource" db:"resource"`
	Details   string    `json:"details,omitempty" db:"details"`
	IPAddress string    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent string    `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DateCount is one calendar-day bucket in a dashboard rollup.
type DateCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// OverallStats is the organization-wide dashboard rollup.
type OverallStats struct {
	UserCount       int            `json:"user_count"`
	LetterCount     int            `json:"letter_count"`
	DepartmentCount int            `json:"department_count"`
	ByStatus        map[Status]int `json:"by_status"`
	ByDepartment    map[string]int `json:"by_department"`
	ByDate          []DateCount    `json:"by_date"`
}

// UserStats is the per-user dashboard rollup. TotalLetters is sent+received
// and intentionally double-counts self-addressed letters; callers rely on the
// documented behavior, do not "fix" it here.
type UserStats struct {
	SentCount     int            `json:"sent_count"`
	ReceivedCount int            `json:"received_count"`
	TotalLetters  int            `json:"total_letters"`
	ByStatus      map[Status]int `json:"by_status"`
	ByDate        []DateCount    `json:"by_date"`
}

// DashboardStats bundles the overall rollup with an optional per-user one.
type DashboardStats struct {
	OverallStats
	UserStats *UserStats `json:"user_stats,omitempty"`
}
