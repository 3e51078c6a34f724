// Package lifecycle is the letter state machine. It owns every legal status
// transition, the authorization guard attached to each, and the per-letter
// serialization that keeps two writers from both succeeding.
package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"letterflow/internal/department"
	"letterflow/internal/directory"
	"letterflow/internal/models"
	"letterflow/internal/routing"
)

// LetterStore is the persistence contract consumed by the state machine.
// GetLetter returns (nil, nil) for an unknown id. UpdateLetter persists the
// letter only when its stored status still equals expected and returns
// ErrConflict otherwise; that conditional write is what makes concurrent
// approve/reject resolve to exactly one winner.
type LetterStore interface {
	GetLetter(ctx context.Context, id string) (*models.Letter, error)
	CreateLetter(ctx context.Context, l *models.Letter) error
	UpdateLetter(ctx context.Context, l *models.Letter, expected models.Status) error
	AppendProgress(ctx context.Context, e *models.ProgressEntry) error
	ListProgress(ctx context.Context, letterID string) ([]models.ProgressEntry, error)
}

// Transition describes exactly what one operation changed, so callers can
// patch their own view instead of re-fetching everything.
type Transition struct {
	LetterID string         `json:"letter_id"`
	From     models.Status  `json:"from"`
	To       models.Status  `json:"to"`
	Changed  []string       `json:"changed"`
	Created  *models.Letter `json:"created,omitempty"` // assigned copy, when one was produced
}

// Service coordinates guard checks and transitions over a letter store and
// the user directory.
type Service struct {
	letters LetterStore
	dir     *directory.Directory
	tree    *department.Tree

	// Per-letter locks serialize read-check-write sequences within this
	// process; the store's conditional update covers competing processes.
	locks sync.Map // letter id -> *sync.Mutex
}

// NewService creates a new lifecycle service.
func NewService(letters LetterStore, dir *directory.Directory, tree *department.Tree) *Service {
	return &Service{letters: letters, dir: dir, tree: tree}
}

func (s *Service) lock(letterID string) func() {
	v, _ := s.locks.LoadOrStore(letterID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// CreateInput carries the fields a sender supplies when composing a letter.
type CreateInput struct {
	Subject     string              `json:"subject" validate:"required"`
	Content     string              `json:"content" validate:"required"`
	ToEmail     string              `json:"to_email" validate:"required,email"`
	ToName      string              `json:"to_name"`
	Department  string              `json:"department" validate:"required"`
	Priority    models.Priority     `json:"priority"`
	CC          []string            `json:"cc"`
	CCEmployees map[string][]string `json:"cc_employees"`
	Attachments []models.Attachment `json:"attachments"`
}

// Create enters a new letter into the lifecycle at pending.
func (s *Service) Create(ctx context.Context, actor models.User, in CreateInput) (*models.Letter, error) {
	if strings.TrimSpace(in.Subject) == "" || strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: subject and content are required", ErrValidation)
	}
	if in.Priority == "" {
		in.Priority = models.PriorityNormal
	}
	if !in.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, in.Priority)
	}

	path := department.ParsePath(in.Department)
	if path.Key() != department.TopLevelSentinel && !s.tree.IsValid(path) {
		return nil, fmt.Errorf("%w: department path %q", ErrNotFound, in.Department)
	}

	now := time.Now()
	letter := &models.Letter{
		ID:          uuid.NewString(),
		Subject:     strings.TrimSpace(in.Subject),
		Content:     in.Content,
		FromEmail:   actor.Email,
		FromName:    actor.Name,
		ToEmail:     strings.TrimSpace(in.ToEmail),
		ToName:      in.ToName,
		Department:  path.String(),
		Priority:    in.Priority,
		Status:      models.StatusPending,
		CC:          in.CC,
		CCEmployees: in.CCEmployees,
		Attachments: in.Attachments,
		Unread:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.letters.CreateLetter(ctx, letter); err != nil {
		return nil, err
	}
	return letter, nil
}

// Get returns a letter by id.
func (s *Service) Get(ctx context.Context, id string) (*models.Letter, error) {
	letter, err := s.letters.GetLetter(ctx, id)
	if err != nil {
		return nil, err
	}
	if letter == nil {
		return nil, fmt.Errorf("%w: letter %s", ErrNotFound, id)
	}
	return letter, nil
}

// Approve transitions a pending letter to approved. The actor must belong to
// the approval candidate set for the letter's department. When called on an
// assigned copy by its assignee, the approval applies to the original letter
// on behalf of the chain, guarded by the assignee's own role capability.
func (s *Service) Approve(ctx context.Context, actor models.User, letterID string) (*Transition, error) {
	unlock := s.lock(letterID)
	defer unlock()

	letter, err := s.Get(ctx, letterID)
	if err != nil {
		return nil, err
	}

	if letter.IsTask() {
		return s.resolveAsAssignee(ctx, actor, letter, models.StatusApproved, "")
	}

	if err := s.requireEligible(ctx, actor, letter); err != nil {
		return nil, err
	}
	if letter.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: cannot approve a %s letter", ErrInvalidState, letter.Status)
	}

	now := time.Now()
	from := letter.Status
	letter.Status = models.StatusApproved
	letter.ApproverID = actor.ID
	letter.ApprovedAt = &now
	letter.UpdatedAt = now
	if err := s.letters.UpdateLetter(ctx, letter, from); err != nil {
		return nil, err
	}
	return &Transition{
		LetterID: letter.ID,
		From:     from,
		To:       letter.Status,
		Changed:  []string{"status", "approver_id", "approved_at"},
	}, nil
}

// Reject transitions a pending letter to rejected. A non-empty reason is
// required. Assigned copies behave as in Approve, targeting the original.
func (s *Service) Reject(ctx context.Context, actor models.User, letterID, reason string) (*Transition, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", ErrValidation)
	}

	unlock := s.lock(letterID)
	defer unlock()

	letter, err := s.Get(ctx, letterID)
	if err != nil {
		return nil, err
	}

	if letter.IsTask() {
		return s.resolveAsAssignee(ctx, actor, letter, models.StatusRejected, reason)
	}

	if err := s.requireEligible(ctx, actor, letter); err != nil {
		return nil, err
	}
	if letter.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: cannot reject a %s letter", ErrInvalidState, letter.Status)
	}

	now := time.Now()
	from := letter.Status
	letter.Status = models.StatusRejected
	letter.RejectorID = actor.ID
	letter.RejectedAt = &now
	letter.RejectionReason = strings.TrimSpace(reason)
	letter.UpdatedAt = now
	if err := s.letters.UpdateLetter(ctx, letter, from); err != nil {
		return nil, err
	}
	return &Transition{
		LetterID: letter.ID,
		From:     from,
		To:       letter.Status,
		Changed:  []string{"status", "rejector_id", "rejected_at", "rejection_reason"},
	}, nil
}

// resolveAsAssignee lets the recipient of an assigned copy approve or reject
// the original letter on behalf of the chain. Eligibility is evaluated
// against the assignee's own role, not the original sender's position.
func (s *Service) resolveAsAssignee(ctx context.Context, actor models.User, task *models.Letter, to models.Status, reason string) (*Transition, error) {
	if !directory.SameEmail(task.ToEmail, actor.Email) {
		return nil, fmt.Errorf("%w: only the assignee may act on an assigned letter", ErrUnauthorized)
	}
	if !models.Capabilities[actor.Role].CanApprove {
		return nil, fmt.Errorf("%w: role %s cannot approve", ErrUnauthorized, actor.Role)
	}

	original, err := s.Get(ctx, task.Assignment.OriginalLetterID)
	if err != nil {
		return nil, err
	}
	if original.Status != models.StatusPending && original.Status != models.StatusAssigned {
		return nil, fmt.Errorf("%w: original letter is already %s", ErrInvalidState, original.Status)
	}

	now := time.Now()
	from := original.Status
	original.Status = to
	original.UpdatedAt = now
	changed := []string{"status"}
	switch to {
	case models.StatusApproved:
		original.ApproverID = actor.ID
		original.ApprovedAt = &now
		changed = append(changed, "approver_id", "approved_at")
	case models.StatusRejected:
		original.RejectorID = actor.ID
		original.RejectedAt = &now
		original.RejectionReason = strings.TrimSpace(reason)
		changed = append(changed, "rejector_id", "rejected_at", "rejection_reason")
	}
	if err := s.letters.UpdateLetter(ctx, original, from); err != nil {
		return nil, err
	}
	return &Transition{LetterID: original.ID, From: from, To: to, Changed: changed}, nil
}

// Assign delegates a letter to a specific recipient. The source letter moves
// to assigned and a derived copy is created for the recipient, carrying the
// assigner's provenance and a back-reference to the source.
func (s *Service) Assign(ctx context.Context, actor models.User, letterID, recipientID, comment string) (*Transition, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, fmt.Errorf("%w: assignment comment is required", ErrValidation)
	}
	if strings.TrimSpace(recipientID) == "" {
		return nil, fmt.Errorf("%w: recipient is required", ErrValidation)
	}

	unlock := s.lock(letterID)
	defer unlock()

	letter, err := s.Get(ctx, letterID)
	if err != nil {
		return nil, err
	}
	if letter.Status != models.StatusPending && letter.Status != models.StatusApproved {
		return nil, fmt.Errorf("%w: cannot assign a %s letter", ErrInvalidState, letter.Status)
	}

	// Any hierarchy role with subordinates may assign; otherwise the actor
	// must be in the letter's delegation candidate set.
	if !models.Capabilities[actor.Role].CanAssign {
		users, err := s.dir.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		if !routing.SnapshotEligible(users, letter.FromEmail, letter.Department, actor) {
			return nil, fmt.Errorf("%w: role %s cannot assign this letter", ErrUnauthorized, actor.Role)
		}
	}

	recipient, err := s.dir.FindByID(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("%w: recipient %s", ErrNotFound, recipientID)
	}
	if !recipient.Active {
		return nil, fmt.Errorf("%w: recipient is deactivated", ErrValidation)
	}

	now := time.Now()
	copyLetter := &models.Letter{
		ID:          uuid.NewString(),
		Subject:     letter.Subject,
		Content:     letter.Content,
		FromEmail:   letter.FromEmail,
		FromName:    letter.FromName,
		ToEmail:     recipient.Email,
		ToName:      recipient.Name,
		Department:  letter.Department,
		Priority:    letter.Priority,
		Status:      models.StatusAssigned,
		CC:          letter.CC,
		CCEmployees: letter.CCEmployees,
		Attachments: letter.Attachments,
		Unread:      true,
		Assignment: &models.Assignment{
			OriginalLetterID:   letter.ID,
			AssignerID:         actor.ID,
			AssignerName:       actor.Name,
			AssignerDepartment: actor.Department,
			Comment:            strings.TrimSpace(comment),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	from := letter.Status
	letter.Status = models.StatusAssigned
	letter.UpdatedAt = now
	if err := s.letters.UpdateLetter(ctx, letter, from); err != nil {
		return nil, err
	}
	if err := s.letters.CreateLetter(ctx, copyLetter); err != nil {
		return nil, err
	}

	return &Transition{
		LetterID: letter.ID,
		From:     from,
		To:       models.StatusAssigned,
		Changed:  []string{"status"},
		Created:  copyLetter,
	}, nil
}

// Progress advances an assigned copy through in_progress, completed or
// closed, appending one entry to its append-only progress log. Only the
// assignee may report progress.
func (s *Service) Progress(ctx context.Context, actor models.User, letterID string, to models.Status, comment string) (*Transition, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, fmt.Errorf("%w: progress comment is required", ErrValidation)
	}
	switch to {
	case models.StatusInProgress, models.StatusCompleted, models.StatusClosed:
	default:
		return nil, fmt.Errorf("%w: %q is not a progress status", ErrValidation, to)
	}

	unlock := s.lock(letterID)
	defer unlock()

	letter, err := s.Get(ctx, letterID)
	if err != nil {
		return nil, err
	}
	if !letter.IsTask() {
		return nil, fmt.Errorf("%w: letter is not an assigned task", ErrInvalidState)
	}
	if !directory.SameEmail(letter.ToEmail, actor.Email) {
		return nil, fmt.Errorf("%w: only the assignee may report progress", ErrUnauthorized)
	}
	if letter.Status != models.StatusAssigned && letter.Status != models.StatusInProgress {
		return nil, fmt.Errorf("%w: cannot report progress on a %s task", ErrInvalidState, letter.Status)
	}

	now := time.Now()
	from := letter.Status
	letter.Status = to
	letter.UpdatedAt = now
	if err := s.letters.UpdateLetter(ctx, letter, from); err != nil {
		return nil, err
	}

	entry := &models.ProgressEntry{
		ID:        uuid.NewString(),
		LetterID:  letter.ID,
		UserID:    actor.ID,
		Comment:   strings.TrimSpace(comment),
		Status:    to,
		CreatedAt: now,
	}
	if err := s.letters.AppendProgress(ctx, entry); err != nil {
		return nil, err
	}

	return &Transition{
		LetterID: letter.ID,
		From:     from,
		To:       to,
		Changed:  []string{"status", "progress"},
	}, nil
}

// ProgressLog returns the append-only progress history of an assigned copy,
// ordered by timestamp.
func (s *Service) ProgressLog(ctx context.Context, letterID string) ([]models.ProgressEntry, error) {
	if _, err := s.Get(ctx, letterID); err != nil {
		return nil, err
	}
	return s.letters.ListProgress(ctx, letterID)
}

// SetArchived flips the orthogonal archived flag. The sender or any member of
// the letter's current candidate set may archive or restore; status is left
// untouched, so a restored letter resumes exactly where it was.
func (s *Service) SetArchived(ctx context.Context, actor models.User, letterID string, archived bool) (*Transition, error) {
	unlock := s.lock(letterID)
	defer unlock()

	letter, err := s.Get(ctx, letterID)
	if err != nil {
		return nil, err
	}
	if !s.mayTouch(ctx, actor, letter) {
		return nil, fmt.Errorf("%w: not the owner or a routing candidate", ErrUnauthorized)
	}
	if letter.Archived == archived {
		return &Transition{LetterID: letter.ID, From: letter.Status, To: letter.Status}, nil
	}

	letter.Archived = archived
	letter.UpdatedAt = time.Now()
	if err := s.letters.UpdateLetter(ctx, letter, letter.Status); err != nil {
		return nil, err
	}
	return &Transition{
		LetterID: letter.ID,
		From:     letter.Status,
		To:       letter.Status,
		Changed:  []string{"archived"},
	}, nil
}

// SetStarred flips the starred flag for the sender or recipient.
func (s *Service) SetStarred(ctx context.Context, actor models.User, letterID string, starred bool) error {
	return s.setFlag(ctx, actor, letterID, func(l *models.Letter) { l.Starred = starred })
}

// MarkRead clears the unread flag for the sender or recipient.
func (s *Service) MarkRead(ctx context.Context, actor models.User, letterID string) error {
	return s.setFlag(ctx, actor, letterID, func(l *models.Letter) { l.Unread = false })
}

func (s *Service) setFlag(ctx context.Context, actor models.User, letterID string, mutate func(*models.Letter)) error {
	unlock := s.lock(letterID)
	defer unlock()

	letter, err := s.Get(ctx, letterID)
	if err != nil {
		return err
	}
	if !directory.SameEmail(letter.FromEmail, actor.Email) && !directory.SameEmail(letter.ToEmail, actor.Email) {
		return fmt.Errorf("%w: not a participant of this letter", ErrUnauthorized)
	}
	mutate(letter)
	letter.UpdatedAt = time.Now()
	return s.letters.UpdateLetter(ctx, letter, letter.Status)
}

// requireEligible checks that the actor belongs to the approval candidate
// set for the letter's department and sender position.
func (s *Service) requireEligible(ctx context.Context, actor models.User, letter *models.Letter) error {
	users, err := s.dir.Snapshot(ctx)
	if err != nil {
		return err
	}
	if !routing.SnapshotEligible(users, letter.FromEmail, letter.Department, actor) {
		return fmt.Errorf("%w: %s is not in the approval candidate set", ErrUnauthorized, actor.Email)
	}
	return nil
}

// mayTouch reports whether the actor owns the letter or belongs to its
// current candidate set.
func (s *Service) mayTouch(ctx context.Context, actor models.User, letter *models.Letter) bool {
	if directory.SameEmail(letter.FromEmail, actor.Email) || directory.SameEmail(letter.ToEmail, actor.Email) {
		return true
	}
	users, err := s.dir.Snapshot(ctx)
	if err != nil {
		return false
	}
	return routing.SnapshotEligible(users, letter.FromEmail, letter.Department, actor)
}
