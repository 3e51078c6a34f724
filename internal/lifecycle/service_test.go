package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"letterflow/internal/department"
	"letterflow/internal/directory"
	"letterflow/internal/lifecycle"
	"letterflow/internal/models"
	"letterflow/internal/testutil"
)

type fixture struct {
	svc   *lifecycle.Service
	store *testutil.MemLetterStore
	org   *testutil.Org
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tree, err := department.Load("")
	if err != nil {
		t.Fatalf("Failed to load tree: %v", err)
	}
	org := testutil.NewOrg()
	store := testutil.NewMemLetterStore()
	dir := directory.New(testutil.NewMemUserSource(org.Users()))
	return &fixture{
		svc:   lifecycle.NewService(store, dir, tree),
		store: store,
		org:   org,
	}
}

func (f *fixture) createLetter(t *testing.T, from models.User) *models.Letter {
	t.Helper()

	letter, err := f.svc.Create(context.Background(), from, lifecycle.CreateInput{
		Subject:    "Quarterly report",
		Content:    "Please review the attached report.",
		ToEmail:    f.org.AppDevHead.Email,
		ToName:     f.org.AppDevHead.Name,
		Department: from.Department,
	})
	if err != nil {
		t.Fatalf("Failed to create letter: %v", err)
	}
	return letter
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	letter := f.createLetter(t, f.org.Alice)

	if letter.Status != models.StatusPending {
		t.Errorf("New letter must be pending, got %s", letter.Status)
	}
	if letter.Priority != models.PriorityNormal {
		t.Errorf("Priority must default to normal, got %s", letter.Priority)
	}
	if !letter.Unread {
		t.Error("New letter must start unread")
	}
	if letter.Department != "Director General > Information Technology > Application Development" {
		t.Errorf("Department must be stored in canonical rendering, got %q", letter.Department)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.org.Alice, lifecycle.CreateInput{
		Subject:    "  ",
		Content:    "body",
		ToEmail:    f.org.Bob.Email,
		Department: f.org.Alice.Department,
	})
	if !errors.Is(err, lifecycle.ErrValidation) {
		t.Errorf("Blank subject: expected ErrValidation, got %v", err)
	}

	_, err = f.svc.Create(ctx, f.org.Alice, lifecycle.CreateInput{
		Subject:    "s",
		Content:    "c",
		ToEmail:    f.org.Bob.Email,
		Department: "Director General > Marketing",
	})
	if !errors.Is(err, lifecycle.ErrNotFound) {
		t.Errorf("Unknown department: expected ErrNotFound, got %v", err)
	}

	_, err = f.svc.Create(ctx, f.org.Alice, lifecycle.CreateInput{
		Subject:    "s",
		Content:    "c",
		ToEmail:    f.org.Bob.Email,
		Department: f.org.Alice.Department,
		Priority:   "whenever",
	})
	if !errors.Is(err, lifecycle.ErrValidation) {
		t.Errorf("Unknown priority: expected ErrValidation, got %v", err)
	}
}

func TestApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	letter := f.createLetter(t, f.org.Alice)

	tr, err := f.svc.Approve(ctx, f.org.AppDevHead, letter.ID)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if tr.From != models.StatusPending || tr.To != models.StatusApproved {
		t.Errorf("Transition = %s -> %s", tr.From, tr.To)
	}

	got, err := f.svc.Get(ctx, letter.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != models.StatusApproved {
		t.Errorf("Status = %s, want approved", got.Status)
	}
	if got.ApproverID != f.org.AppDevHead.ID {
		t.Errorf("ApproverID = %s", got.ApproverID)
	}
	if got.ApprovedAt == nil {
		t.Error("ApprovedAt must be set")
	}
}

func TestApproveUnauthorizedLeavesLetterUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	letter := f.createLetter(t, f.org.Alice)

	_, err := f.svc.Approve(ctx, f.org.FinanceClerk, letter.ID)
	if !errors.Is(err, lifecycle.ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized, got %v", err)
	}

	got, _ := f.svc.Get(ctx, letter.ID)
	if got.Status != models.StatusPending || got.ApproverID != "" {
		t.Errorf("Failed guard must not mutate the letter: status=%s approver=%q", got.Status, got.ApproverID)
	}
}

func TestApproveTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	letter := f.createLetter(t, f.org.Alice)

	if _, err := f.svc.Approve(ctx, f.org.AppDevHead, letter.ID); err != nil {
		t.Fatalf("First approve failed: %v", err)
	}
	if _, err := f.svc.Approve(ctx, f.org.Bob, letter.ID); !errors.Is(err, lifecycle.ErrInvalidState) {
		t.Errorf("Second approve: expected ErrInvalidState, got %v", err)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	f := newFixture(t)
	letter := f.createLetter(t, f.org.Alice)

	if _, err := f.svc.Reject(context.Background(), f.org.AppDevHead, letter.ID, "  "); !errors.Is(err, lifecycle.ErrValidation) {
		t.Errorf("Expected ErrValidation for blank reason, got %v", err)
	}
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	letter := f.createLetter(t, f.org.Alice)

	tr, err := f.svc.Reject(ctx, f.org.Bob, letter.ID, "Numbers do not add up")
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if tr.To != models.StatusRejected {
		t.Errorf("Transition to %s, want rejected", tr.To)
	}

	got, _ := f.svc.Get(ctx, letter.ID)
	if got.RejectionReason != "Numbers do not add up" {
		t.Errorf("RejectionReason = %q", got.RejectionReason)
	}
	if got.RejectorID != f.org.Bob.ID || got.RejectedAt == nil {
		t.Error("Rejector provenance must be recorded")
	}

	if _, err := f.svc.Reject(ctx, f.org.AppDevHead, letter.ID, "again"); !errors.Is(err, lifecycle.ErrInvalidState) {
		t.Errorf("Second reject: expected ErrInvalidState, got %v", err)
	}
}

func TestAssign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	letter := f.createLetter(t, f.org.Alice)

	tr, err := f.svc.Assign(ctx, f.org.AppDevHead, letter.ID, f.org.Bob.ID, "Handle this one")
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if tr.To != models.StatusAssigned {
		t.Errorf("Source transition to %s, want assigned", tr.To)
	}
	if tr.Created == nil {
		t.Fatal("Assign must produce a copy")
	}

	task := tr.Created
	if !task.IsTask() {
		t.Fatal("Copy must carry an assignment record")
	}
	if task.Assignment.OriginalLetterID != letter.ID {
		t.Errorf("Back-reference = %s, want %s", task.Assignment.OriginalLetterID, letter.ID)
	}
	if task.Assignment.AssignerID != f.org.AppDevHead.ID {
		t.Errorf("AssignerID = %s", task.Assignment.AssignerID)
	}
	if task.ToEmail != f.org.Bob.Email {
		t.Errorf("Copy addressed to %s, want %s", task.ToEmail, f.org.Bob.Email)
	}
	if task.Status != models.StatusAssigned || !task.Unread {
		t.Errorf("Copy must be assigned and unread, got %s unread=%v", task.Status, task.Unread)
	}

	source, _ := f.svc.Get(ctx, letter.ID)
	if source.Status != models.StatusAssigned {
		t.Errorf("Source status = %s, want assigned", source.Status)
	}
}

func TestAssignValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	letter := f.createLetter(t, f.org.Alice)

	if _, err := f.svc.Assign(ctx, f.org.AppDevHead, letter.ID, f.org.Bob.ID, ""); !errors.Is(err, lifecycle.ErrValidation) {
		t.Errorf("Blank comment: expected ErrValidation, got %v", err)
	}
	if _, err := f.svc.Assign(ctx, f.org.AppDevHead, letter.ID, "u-nope", "c"); !errors.Is(err, lifecycle.ErrNotFound) {
		t.Errorf("Unknown recipient: expected ErrNotFound, got %v", err)
	}
	if _, err := f.svc.Assign(ctx, f.org.AppDevHead, letter.ID, f.org.Inactive.ID, "c"); !errors.Is(err, lifecycle.ErrValidation) {
		t.Errorf("Deactivated recipient: expected ErrValidation, got %v", err)
	}
	if _, err := f.svc.Assign(ctx, f.org.FinanceClerk, letter.ID, f.org.Bob.ID, "c"); !errors.Is(err, lifecycle.ErrUnauthorized) {
		t.Errorf("Outsider assigner: expected ErrUnauthorized, got %v", err)
	}
}

func TestAssignRejectedLetter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	letter := f.createLetter(t, f.org.Alice)

	if _, err := f.svc.Reject(ctx, f.org.AppDevHead, letter.ID, "no"); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if _, err := f.svc.Assign(ctx, f.org.AppDevHead, letter.ID, f.org.Bob.ID, "c"); !errors.Is(err, lifecycle.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState, got %v", err)
	}
}

func TestProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	letter := f.createLetter(t, f.org.Alice)

	tr, err := f.svc.Assign(ctx, f.org.AppDevHead, letter.ID, f.org.Bob.ID, "Handle this one")
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	task := tr.Created

	if _, err := f.svc.Progress(ctx, f.org.Bob, task.ID, models.StatusInProgress, "Started"); err != nil {
		t.Fatalf("Progress to in_progress failed: %v", err)
	}
	if _, err := f.svc.Progress(ctx, f.org.Bob, task.ID, models.StatusCompleted, "Done"); err != nil {
		t.Fatalf("Progress to completed failed: %v", err)
	}

	log, err := f.svc.ProgressLog(ctx, task.ID)
	if err != nil {
		t.Fatalf("ProgressLog failed: %v", err)
	}
	if len(log) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(log))
	}
	if log[0].Status != models.StatusInProgress || log[1].Status != models.StatusCompleted {
		t.Errorf("Log order wrong: %s, %s", log[0].Status, log[1].Status)
	}
	if log[0].UserID != f.org.Bob.ID {
		t.Errorf("Entry author = %s", log[0].UserID)
	}

	// Completed is terminal for the task.
	if _, err := f.svc.Progress(ctx, f.org.Bob, task.ID, models.StatusClosed, "More"); !errors.Is(err, lifecycle.ErrInvalidState) {
		t.Errorf("Progress on completed task: expected ErrInvalidState, got %v", err)
	}
}

func TestProgressGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	letter := f.createLetter(t, f.org.Alice)

	// Not a task at all.
	if _, err := f.svc.Progress(ctx, f.org.Bob, letter.ID, models.StatusInProgress, "c"); !errors.Is(err, lifecycle.ErrInvalidState) {
		t.Errorf("Progress on plain letter: expected ErrInvalidState, got %v", err)
	}

	tr, err := f.svc.Assign(ctx, f.org.AppDevHead, letter.ID, f.org.Bob.ID, "Handle")
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	task := tr.Created

	if _, err := f.svc.Progress(ctx, f.org.Alice, task.ID, models.StatusInProgress, "c"); !errors.Is(err, lifecycle.ErrUnauthorized) {
		t.Errorf("Non-assignee: expected ErrUnauthorized, got %v", err)
	}
	if _, err := f.svc.Progress(ctx, f.org.Bob, task.ID, models.StatusApproved, "c"); !errors.Is(err, lifecycle.ErrValidation) {
		t.Errorf("Non-progress status: expected ErrValidation, got %v", err)
	}
	if _, err := f.svc.Progress(ctx, f.org.Bob, task.ID, models.StatusInProgress, ""); !errors.Is(err, lifecycle.ErrValidation) {
		t.Errorf("Blank comment: expected ErrValidation, got %v", err)
	}
}

func TestAssigneeResolvesOriginal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	letter := f.createLetter(t, f.org.Alice)

	tr, err := f.svc.Assign(ctx, f.org.AppDevHead, letter.ID, f.org.Bob.ID, "Decide")
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	task := tr.Created

	// Only the assignee may act on the copy.
	if _, err := f.svc.Approve(ctx, f.org.Alice, task.ID); !errors.Is(err, lifecycle.ErrUnauthorized) {
		t.Errorf("Non-assignee on task: expected ErrUnauthorized, got %v", err)
	}

	res, err := f.svc.Approve(ctx, f.org.Bob, task.ID)
	if err != nil {
		t.Fatalf("Assignee approve failed: %v", err)
	}
	if res.LetterID != letter.ID {
		t.Errorf("Resolution must target the original, got %s", res.LetterID)
	}

	original, _ := f.svc.Get(ctx, letter.ID)
	if original.Status != models.StatusApproved {
		t.Errorf("Original status = %s, want approved", original.Status)
	}
	if original.ApproverID != f.org.Bob.ID {
		t.Errorf("Approver = %s, want the assignee", original.ApproverID)
	}
}

func TestArchiveRestoreRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	letter := f.createLetter(t, f.org.Alice)

	if _, err := f.svc.Approve(ctx, f.org.AppDevHead, letter.ID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	if _, err := f.svc.SetArchived(ctx, f.org.Alice, letter.ID, true); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	got, _ := f.svc.Get(ctx, letter.ID)
	if !got.Archived || got.Status != models.StatusApproved {
		t.Errorf("Archive must not touch status: archived=%v status=%s", got.Archived, got.Status)
	}

	if _, err := f.svc.SetArchived(ctx, f.org.Alice, letter.ID, false); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	got, _ = f.svc.Get(ctx, letter.ID)
	if got.Archived || got.Status != models.StatusApproved {
		t.Errorf("Restore must resume exactly where the letter was: archived=%v status=%s", got.Archived, got.Status)
	}

	if _, err := f.svc.SetArchived(ctx, f.org.FinanceClerk, letter.ID, true); !errors.Is(err, lifecycle.ErrUnauthorized) {
		t.Errorf("Outsider archive: expected ErrUnauthorized, got %v", err)
	}
}

func TestStarAndMarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	letter := f.createLetter(t, f.org.Alice)

	if err := f.svc.SetStarred(ctx, f.org.AppDevHead, letter.ID, true); err != nil {
		t.Fatalf("Star failed: %v", err)
	}
	if err := f.svc.MarkRead(ctx, f.org.AppDevHead, letter.ID); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	got, _ := f.svc.Get(ctx, letter.ID)
	if !got.Starred || got.Unread {
		t.Errorf("Flags not applied: starred=%v unread=%v", got.Starred, got.Unread)
	}

	if err := f.svc.SetStarred(ctx, f.org.FinanceClerk, letter.ID, true); !errors.Is(err, lifecycle.ErrUnauthorized) {
		t.Errorf("Non-participant star: expected ErrUnauthorized, got %v", err)
	}
}

func TestConcurrentApproveRejectExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	letter := f.createLetter(t, f.org.Alice)

	var wg sync.WaitGroup
	var approveErr, rejectErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, approveErr = f.svc.Approve(ctx, f.org.AppDevHead, letter.ID)
	}()
	go func() {
		defer wg.Done()
		_, rejectErr = f.svc.Reject(ctx, f.org.Bob, letter.ID, "no")
	}()
	wg.Wait()

	if (approveErr == nil) == (rejectErr == nil) {
		t.Fatalf("Exactly one transition must win: approve=%v reject=%v", approveErr, rejectErr)
	}

	got, _ := f.svc.Get(ctx, letter.ID)
	switch {
	case approveErr == nil && got.Status != models.StatusApproved:
		t.Errorf("Winner approved but status = %s", got.Status)
	case rejectErr == nil && got.Status != models.StatusRejected:
		t.Errorf("Winner rejected but status = %s", got.Status)
	}
}

func TestStoreConflictSurfaces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	letter := f.createLetter(t, f.org.Alice)

	// Simulate a competing process that already moved the letter on.
	stale, _ := f.store.GetLetter(ctx, letter.ID)
	won, _ := f.store.GetLetter(ctx, letter.ID)
	won.Status = models.StatusApproved
	if err := f.store.UpdateLetter(ctx, won, models.StatusPending); err != nil {
		t.Fatalf("Winning update failed: %v", err)
	}

	stale.Status = models.StatusRejected
	if err := f.store.UpdateLetter(ctx, stale, models.StatusPending); !errors.Is(err, lifecycle.ErrConflict) {
		t.Errorf("Expected ErrConflict for lost race, got %v", err)
	}
}

func TestGetUnknownLetter(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Get(context.Background(), "nope"); !errors.Is(err, lifecycle.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
