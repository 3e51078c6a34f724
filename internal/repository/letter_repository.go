package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"letterflow/internal/lifecycle"
	"letterflow/internal/models"
)

const letterColumns = `id, subject, content, from_email, from_name, to_email, to_name,
	       department, priority, status, cc, cc_employees, attachments,
	       archived, starred, unread, rejection_reason,
	       approver_id, approved_at, rejector_id, rejected_at,
	       original_letter_id, assigner_id, assigner_name, assigner_department, assign_comment,
	       created_at, updated_at`

// LetterRepository handles letter and progress-log database operations. It is
// the production implementation of lifecycle.LetterStore.
type LetterRepository struct {
	db *sql.DB
}

// NewLetterRepository creates a new letter repository
func NewLetterRepository(db *sql.DB) *LetterRepository {
	return &LetterRepository{db: db}
}

// CreateLetter inserts a letter together with its optional assignment record.
func (r *LetterRepository) CreateLetter(ctx context.Context, l *models.Letter) error {
	query := `
		INSERT INTO letters (id, subject, content, from_email, from_name, to_email, to_name,
		                     department, priority, status, cc, cc_employees, attachments,
		                     archived, starred, unread, rejection_reason,
		                     approver_id, approved_at, rejector_id, rejected_at,
		                     original_letter_id, assigner_id, assigner_name, assigner_department, assign_comment,
		                     created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		        $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
	`

	ccEmployees, attachments, err := marshalLetterJSON(l)
	if err != nil {
		return err
	}

	now := time.Now()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now

	var origID, assignerID, assignerName, assignerDept, assignComment *string
	if l.Assignment != nil {
		origID = &l.Assignment.OriginalLetterID
		assignerID = &l.Assignment.AssignerID
		assignerName = &l.Assignment.AssignerName
		assignerDept = &l.Assignment.AssignerDepartment
		assignComment = &l.Assignment.Comment
	}

	_, err = r.db.ExecContext(
		ctx,
		query,
		l.ID, l.Subject, l.Content, l.FromEmail, l.FromName, l.ToEmail, l.ToName,
		l.Department, l.Priority, l.Status, pq.Array(l.CC), ccEmployees, attachments,
		l.Archived, l.Starred, l.Unread, l.RejectionReason,
		nullIfEmpty(l.ApproverID), l.ApprovedAt, nullIfEmpty(l.RejectorID), l.RejectedAt,
		origID, assignerID, assignerName, assignerDept, assignComment,
		l.CreatedAt, l.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create letter: %w", err)
	}

	return nil
}

// GetLetter retrieves a letter by ID. Unknown ids map to (nil, nil).
func (r *LetterRepository) GetLetter(ctx context.Context, id string) (*models.Letter, error) {
	query := `SELECT ` + letterColumns + ` FROM letters WHERE id = $1`

	letter, err := scanLetter(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get letter: %w", err)
	}

	return letter, nil
}

// UpdateLetter persists the letter only while its stored status still equals
// expected. A lost race surfaces as lifecycle.ErrConflict so the caller can
// tell "someone beat you to it" apart from a plain failure.
func (r *LetterRepository) UpdateLetter(ctx context.Context, l *models.Letter, expected models.Status) error {
	query := `
		UPDATE letters
		SET subject = $1, content = $2, status = $3, cc = $4, cc_employees = $5,
		    archived = $6, starred = $7, unread = $8, rejection_reason = $9,
		    approver_id = $10, approved_at = $11, rejector_id = $12, rejected_at = $13,
		    updated_at = $14
		WHERE id = $15 AND status = $16
	`

	ccEmployees, _, err := marshalLetterJSON(l)
	if err != nil {
		return err
	}

	l.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(
		ctx,
		query,
		l.Subject, l.Content, l.Status, pq.Array(l.CC), ccEmployees,
		l.Archived, l.Starred, l.Unread, l.RejectionReason,
		nullIfEmpty(l.ApproverID), l.ApprovedAt, nullIfEmpty(l.RejectorID), l.RejectedAt,
		l.UpdatedAt,
		l.ID, expected,
	)

	if err != nil {
		return fmt.Errorf("failed to update letter: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("letter %s no longer %s: %w", l.ID, expected, lifecycle.ErrConflict)
	}

	return nil
}

// LetterFilters holds filter parameters for letter list queries. Nil pointer
// fields mean "no constraint".
type LetterFilters struct {
	// ParticipantEmail keeps letters the address sent, received or is CC'd on.
	ParticipantEmail string
	Status           models.Status
	Archived         *bool
	// TasksOnly keeps assigned copies; LettersOnly keeps originals.
	TasksOnly   bool
	LettersOnly bool
}

// ListLetters retrieves letters matching the filters, newest first.
func (r *LetterRepository) ListLetters(ctx context.Context, filters LetterFilters) ([]models.Letter, error) {
	query := `SELECT ` + letterColumns + ` FROM letters WHERE 1=1`

	args := []interface{}{}
	argPos := 1

	if filters.ParticipantEmail != "" {
		query += fmt.Sprintf(` AND (LOWER(from_email) = LOWER(TRIM($%d)) OR LOWER(to_email) = LOWER(TRIM($%d)) OR EXISTS (
			SELECT 1 FROM unnest(cc) AS cc_entry WHERE LOWER(cc_entry) = LOWER(TRIM($%d))
		))`, argPos, argPos, argPos)
		args = append(args, filters.ParticipantEmail)
		argPos++
	}

	if filters.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argPos)
		args = append(args, filters.Status)
		argPos++
	}

	if filters.Archived != nil {
		query += fmt.Sprintf(` AND archived = $%d`, argPos)
		args = append(args, *filters.Archived)
		argPos++
	}

	if filters.TasksOnly {
		query += ` AND original_letter_id IS NOT NULL`
	}
	if filters.LettersOnly {
		query += ` AND original_letter_id IS NULL`
	}

	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list letters: %w", err)
	}
	defer rows.Close()

	var letters []models.Letter
	for rows.Next() {
		letter, err := scanLetter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan letter: %w", err)
		}
		letters = append(letters, *letter)
	}

	return letters, rows.Err()
}

// GetAllLetters retrieves the whole collection for dashboard rollups.
func (r *LetterRepository) GetAllLetters(ctx context.Context) ([]models.Letter, error) {
	return r.ListLetters(ctx, LetterFilters{})
}

// AppendProgress inserts one progress log entry.
func (r *LetterRepository) AppendProgress(ctx context.Context, e *models.ProgressEntry) error {
	query := `
		INSERT INTO progress_entries (id, letter_id, user_id, comment, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query, e.ID, e.LetterID, e.UserID, e.Comment, e.Status, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append progress entry: %w", err)
	}

	return nil
}

// ListProgress retrieves a letter's progress log in insertion order.
func (r *LetterRepository) ListProgress(ctx context.Context, letterID string) ([]models.ProgressEntry, error) {
	query := `
		SELECT id, letter_id, user_id, comment, status, created_at
		FROM progress_entries
		WHERE letter_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, letterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress entries: %w", err)
	}
	defer rows.Close()

	var entries []models.ProgressEntry
	for rows.Next() {
		var e models.ProgressEntry
		if err := rows.Scan(&e.ID, &e.LetterID, &e.UserID, &e.Comment, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func scanLetter(row rowScanner) (*models.Letter, error) {
	var (
		l                           models.Letter
		cc                          pq.StringArray
		ccEmployees, attachments    []byte
		rejectionReason             sql.NullString
		approverID, rejectorID      sql.NullString
		origID, assignerID          sql.NullString
		assignerName, assignerDept  sql.NullString
		assignComment               sql.NullString
	)

	err := row.Scan(
		&l.ID, &l.Subject, &l.Content, &l.FromEmail, &l.FromName, &l.ToEmail, &l.ToName,
		&l.Department, &l.Priority, &l.Status, &cc, &ccEmployees, &attachments,
		&l.Archived, &l.Starred, &l.Unread, &rejectionReason,
		&approverID, &l.ApprovedAt, &rejectorID, &l.RejectedAt,
		&origID, &assignerID, &assignerName, &assignerDept, &assignComment,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.CC = []string(cc)
	l.RejectionReason = rejectionReason.String
	l.ApproverID = approverID.String
	l.RejectorID = rejectorID.String

	if len(ccEmployees) > 0 {
		if err := json.Unmarshal(ccEmployees, &l.CCEmployees); err != nil {
			return nil, fmt.Errorf("failed to decode cc_employees: %w", err)
		}
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &l.Attachments); err != nil {
			return nil, fmt.Errorf("failed to decode attachments: %w", err)
		}
	}

	if origID.Valid {
		l.Assignment = &models.Assignment{
			OriginalLetterID:   origID.String,
			AssignerID:         assignerID.String,
			AssignerName:       assignerName.String,
			AssignerDepartment: assignerDept.String,
			Comment:            assignComment.String,
		}
	}

	return &l, nil
}

func marshalLetterJSON(l *models.Letter) (ccEmployees, attachments []byte, err error) {
	if l.CCEmployees != nil {
		ccEmployees, err = json.Marshal(l.CCEmployees)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode cc_employees: %w", err)
		}
	}
	if l.Attachments != nil {
		attachments, err = json.Marshal(l.Attachments)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode attachments: %w", err)
		}
	}
	return ccEmployees, attachments, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
