package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"letterflow/internal/lifecycle"
	"letterflow/internal/models"
	"letterflow/internal/repository"
	"letterflow/internal/testutil"
)

func newLetter(from, to models.User) *models.Letter {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Letter{
		ID:          uuid.NewString(),
		Subject:     "Quarterly report",
		Content:     "Please review the attached report.",
		FromEmail:   from.Email,
		FromName:    from.Name,
		ToEmail:     to.Email,
		ToName:      to.Name,
		Department:  from.Department,
		Priority:    models.PriorityNormal,
		Status:      models.StatusPending,
		CC:          []string{"ops.office@letterflow.test"},
		CCEmployees: map[string][]string{"Operations": {"Olga Operations"}},
		Attachments: []models.Attachment{{Filename: "report.pdf", ContentType: "application/pdf", Size: 2048}},
		Unread:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestUserRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	org := testutil.SeedOrg(t, containers.DB)
	repo := repository.NewUserRepository(containers.DB)
	ctx := context.Background()

	t.Run("GetByID", func(t *testing.T) {
		u, err := repo.GetByID(ctx, org.Alice.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if u.Email != org.Alice.Email || u.Role != models.RoleUser {
			t.Errorf("Got %s/%s", u.Email, u.Role)
		}

		if _, err := repo.GetByID(ctx, uuid.NewString()); !errors.Is(err, repository.ErrUserNotFound) {
			t.Errorf("Expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("GetByEmailCaseInsensitive", func(t *testing.T) {
		u, err := repo.GetByEmail(ctx, "  ALICE@Letterflow.Test ")
		if err != nil {
			t.Fatalf("GetByEmail failed: %v", err)
		}
		if u.ID != org.Alice.ID {
			t.Errorf("Got %s, want %s", u.ID, org.Alice.ID)
		}
	})

	t.Run("CreateDuplicateEmail", func(t *testing.T) {
		dup := org.Alice
		dup.ID = uuid.NewString()
		dup.PasswordHash = "x"
		if err := repo.Create(ctx, &dup); !errors.Is(err, repository.ErrUserExists) {
			t.Errorf("Expected ErrUserExists, got %v", err)
		}
	})

	t.Run("UpdateActiveStatus", func(t *testing.T) {
		if err := repo.UpdateActiveStatus(ctx, org.Bob.ID, false); err != nil {
			t.Fatalf("UpdateActiveStatus failed: %v", err)
		}
		u, err := repo.GetByID(ctx, org.Bob.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if u.Active {
			t.Error("Expected user to be deactivated")
		}
		if err := repo.UpdateActiveStatus(ctx, org.Bob.ID, true); err != nil {
			t.Fatalf("Reactivate failed: %v", err)
		}
	})

	t.Run("GetUserSourceContract", func(t *testing.T) {
		// Unknown ids map to (nil, nil), not an error.
		u, err := repo.GetUser(ctx, uuid.NewString())
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if u != nil {
			t.Errorf("Expected nil for unknown id, got %v", u)
		}

		users, err := repo.ListUsers(ctx)
		if err != nil {
			t.Fatalf("ListUsers failed: %v", err)
		}
		if len(users) != len(org.Users()) {
			t.Errorf("ListUsers returned %d users, want %d", len(users), len(org.Users()))
		}
	})

	t.Run("CountAll", func(t *testing.T) {
		n, err := repo.CountAll(ctx)
		if err != nil {
			t.Fatalf("CountAll failed: %v", err)
		}
		if n != len(org.Users()) {
			t.Errorf("CountAll = %d, want %d", n, len(org.Users()))
		}
	})
}

func TestLetterRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	org := testutil.SeedOrg(t, containers.DB)
	repo := repository.NewLetterRepository(containers.DB)
	ctx := context.Background()

	t.Run("CreateAndGetRoundTrip", func(t *testing.T) {
		letter := newLetter(org.Alice, org.AppDevHead)
		if err := repo.CreateLetter(ctx, letter); err != nil {
			t.Fatalf("CreateLetter failed: %v", err)
		}

		got, err := repo.GetLetter(ctx, letter.ID)
		if err != nil {
			t.Fatalf("GetLetter failed: %v", err)
		}
		if got == nil {
			t.Fatal("Expected letter, got nil")
		}
		if got.Subject != letter.Subject || got.Status != models.StatusPending {
			t.Errorf("Got %q/%s", got.Subject, got.Status)
		}
		if len(got.CC) != 1 || got.CC[0] != letter.CC[0] {
			t.Errorf("CC = %v", got.CC)
		}
		if len(got.CCEmployees["Operations"]) != 1 {
			t.Errorf("CCEmployees = %v", got.CCEmployees)
		}
		if len(got.Attachments) != 1 || got.Attachments[0].Filename != "report.pdf" {
			t.Errorf("Attachments = %v", got.Attachments)
		}
		if got.IsTask() {
			t.Error("Plain letter must not carry an assignment")
		}
	})

	t.Run("GetUnknownReturnsNilNil", func(t *testing.T) {
		got, err := repo.GetLetter(ctx, uuid.NewString())
		if err != nil {
			t.Fatalf("GetLetter failed: %v", err)
		}
		if got != nil {
			t.Errorf("Expected nil for unknown id, got %v", got)
		}
	})

	t.Run("ConditionalUpdate", func(t *testing.T) {
		letter := newLetter(org.Alice, org.AppDevHead)
		if err := repo.CreateLetter(ctx, letter); err != nil {
			t.Fatalf("CreateLetter failed: %v", err)
		}

		letter.Status = models.StatusApproved
		letter.ApproverID = org.AppDevHead.ID
		now := time.Now()
		letter.ApprovedAt = &now
		if err := repo.UpdateLetter(ctx, letter, models.StatusPending); err != nil {
			t.Fatalf("UpdateLetter failed: %v", err)
		}

		// A second writer still expecting pending must lose.
		letter.Status = models.StatusRejected
		if err := repo.UpdateLetter(ctx, letter, models.StatusPending); !errors.Is(err, lifecycle.ErrConflict) {
			t.Errorf("Expected ErrConflict, got %v", err)
		}

		got, _ := repo.GetLetter(ctx, letter.ID)
		if got.Status != models.StatusApproved {
			t.Errorf("Status = %s, want approved", got.Status)
		}
	})

	t.Run("AssignmentRoundTrip", func(t *testing.T) {
		original := newLetter(org.Alice, org.AppDevHead)
		if err := repo.CreateLetter(ctx, original); err != nil {
			t.Fatalf("CreateLetter failed: %v", err)
		}

		task := newLetter(org.Alice, org.Bob)
		task.Status = models.StatusAssigned
		task.Assignment = &models.Assignment{
			OriginalLetterID:   original.ID,
			AssignerID:         org.AppDevHead.ID,
			AssignerName:       org.AppDevHead.Name,
			AssignerDepartment: org.AppDevHead.Department,
			Comment:            "Handle this one",
		}
		if err := repo.CreateLetter(ctx, task); err != nil {
			t.Fatalf("CreateLetter for task failed: %v", err)
		}

		got, err := repo.GetLetter(ctx, task.ID)
		if err != nil {
			t.Fatalf("GetLetter failed: %v", err)
		}
		if !got.IsTask() {
			t.Fatal("Expected assignment to survive the round trip")
		}
		if got.Assignment.OriginalLetterID != original.ID || got.Assignment.Comment != "Handle this one" {
			t.Errorf("Assignment = %+v", got.Assignment)
		}
	})

	t.Run("ListFilters", func(t *testing.T) {
		letters, err := repo.ListLetters(ctx, repository.LetterFilters{ParticipantEmail: org.Bob.Email, TasksOnly: true})
		if err != nil {
			t.Fatalf("ListLetters failed: %v", err)
		}
		for _, l := range letters {
			if !l.IsTask() {
				t.Errorf("TasksOnly returned a plain letter %s", l.ID)
			}
		}
		if len(letters) == 0 {
			t.Error("Expected the assigned copy in Bob's tasks")
		}

		ccOnly, err := repo.ListLetters(ctx, repository.LetterFilters{ParticipantEmail: "ops.office@letterflow.test"})
		if err != nil {
			t.Fatalf("ListLetters by CC failed: %v", err)
		}
		if len(ccOnly) == 0 {
			t.Error("Expected CC participation to match")
		}

		archived := true
		none, err := repo.ListLetters(ctx, repository.LetterFilters{ParticipantEmail: org.Bob.Email, Archived: &archived})
		if err != nil {
			t.Fatalf("ListLetters archived failed: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("Expected no archived letters, got %d", len(none))
		}
	})

	t.Run("ProgressLog", func(t *testing.T) {
		letter := newLetter(org.Alice, org.Bob)
		if err := repo.CreateLetter(ctx, letter); err != nil {
			t.Fatalf("CreateLetter failed: %v", err)
		}

		for i, st := range []models.Status{models.StatusInProgress, models.StatusCompleted} {
			e := &models.ProgressEntry{
				ID:        uuid.NewString(),
				LetterID:  letter.ID,
				UserID:    org.Bob.ID,
				Comment:   "step",
				Status:    st,
				CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
			}
			if err := repo.AppendProgress(ctx, e); err != nil {
				t.Fatalf("AppendProgress failed: %v", err)
			}
		}

		log, err := repo.ListProgress(ctx, letter.ID)
		if err != nil {
			t.Fatalf("ListProgress failed: %v", err)
		}
		if len(log) != 2 {
			t.Fatalf("Expected 2 entries, got %d", len(log))
		}
		if log[0].Status != models.StatusInProgress || log[1].Status != models.StatusCompleted {
			t.Errorf("Log order wrong: %s, %s", log[0].Status, log[1].Status)
		}
	})
}

func TestAuditRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	org := testutil.SeedOrg(t, containers.DB)
	repo := repository.NewAuditRepository(containers.DB)
	ctx := context.Background()

	for _, action := range []string{"user.login", "letter.create", "letter.approve"} {
		entry := &models.AuditLog{
			UserID:    &org.Alice.ID,
			UserEmail: &org.Alice.Email,
			Action:    action,
			Resource:  "letter",
			IPAddress: "127.0.0.1",
		}
		if err := repo.Create(ctx, entry); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if entry.ID == 0 {
			t.Error("Expected generated id")
		}
	}

	logs, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(logs))
	}
	if logs[0].Action != "letter.approve" {
		t.Errorf("Expected newest first, got %s", logs[0].Action)
	}
}
