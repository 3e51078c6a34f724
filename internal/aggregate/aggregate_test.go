package aggregate

import (
	"testing"
	"time"

	"letterflow/internal/models"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func sampleLetters() []models.Letter {
	return []models.Letter{
		{
			ID: "l1", FromEmail: "alice@x.test", ToEmail: "bob@x.test",
			Department: "Director General > Operations", Status: models.StatusPending,
			CreatedAt: day("2026-08-01"),
		},
		{
			ID: "l2", FromEmail: "bob@x.test", ToEmail: "alice@x.test",
			Department: "Director General > Operations", Status: models.StatusApproved,
			CreatedAt: day("2026-08-01"),
		},
		{
			ID: "l3", FromEmail: "carol@x.test", ToEmail: "dave@x.test",
			CC:         []string{"alice@x.test"},
			Department: "Director General > Corporate Services", Status: models.StatusRejected,
			CreatedAt: day("2026-08-03"),
		},
		{
			ID: "l4", FromEmail: "alice@x.test", ToEmail: "alice@x.test",
			Department: "Director General > Operations", Status: models.StatusPending,
			CreatedAt: day("2026-08-02"),
		},
	}
}

func sampleUsers() []models.User {
	return []models.User{
		{ID: "u1", Email: "alice@x.test", Department: "Director General > Operations"},
		{ID: "u2", Email: "bob@x.test", Department: "director general>OPERATIONS"},
		{ID: "u3", Email: "carol@x.test", Department: "Director General"},
	}
}

func TestOverall(t *testing.T) {
	stats := Overall(sampleLetters(), sampleUsers())

	if stats.UserCount != 3 {
		t.Errorf("UserCount = %d", stats.UserCount)
	}
	if stats.LetterCount != 4 {
		t.Errorf("LetterCount = %d", stats.LetterCount)
	}

	// Operations (shared by users and letters under canonical comparison),
	// Director General, Corporate Services.
	if stats.DepartmentCount != 3 {
		t.Errorf("DepartmentCount = %d, want 3", stats.DepartmentCount)
	}

	if stats.ByStatus[models.StatusPending] != 2 {
		t.Errorf("pending = %d", stats.ByStatus[models.StatusPending])
	}
	if stats.ByStatus[models.StatusApproved] != 1 || stats.ByStatus[models.StatusRejected] != 1 {
		t.Errorf("ByStatus = %v", stats.ByStatus)
	}

	if len(stats.ByDate) != 3 {
		t.Fatalf("ByDate = %v", stats.ByDate)
	}
	// Ascending by date.
	if stats.ByDate[0].Date != "2026-08-01" || stats.ByDate[0].Count != 2 {
		t.Errorf("ByDate[0] = %v", stats.ByDate[0])
	}
	if stats.ByDate[2].Date != "2026-08-03" {
		t.Errorf("ByDate[2] = %v", stats.ByDate[2])
	}
}

func TestOverallEmptyInput(t *testing.T) {
	stats := Overall(nil, nil)

	if stats.UserCount != 0 || stats.LetterCount != 0 || stats.DepartmentCount != 0 {
		t.Errorf("Counts not zero: %+v", stats)
	}
	if stats.ByStatus == nil || stats.ByDepartment == nil {
		t.Error("Maps must be non-nil for empty input")
	}
	if stats.ByDate == nil || len(stats.ByDate) != 0 {
		t.Errorf("ByDate must be an empty slice, got %v", stats.ByDate)
	}
}

func TestForUser(t *testing.T) {
	stats := ForUser(sampleLetters(), "Alice@X.Test")

	// Sent: l1, l4. Received: l2 (recipient), l3 (CC), l4 (self-addressed).
	if stats.SentCount != 2 {
		t.Errorf("SentCount = %d, want 2", stats.SentCount)
	}
	if stats.ReceivedCount != 3 {
		t.Errorf("ReceivedCount = %d, want 3", stats.ReceivedCount)
	}

	// Self-addressed letters count on both sides.
	if stats.TotalLetters != stats.SentCount+stats.ReceivedCount {
		t.Errorf("TotalLetters = %d, want %d", stats.TotalLetters, stats.SentCount+stats.ReceivedCount)
	}

	// Every letter touches alice, so all four statuses show up once per
	// letter, not per sent/received side.
	total := 0
	for _, n := range stats.ByStatus {
		total += n
	}
	if total != 4 {
		t.Errorf("ByStatus sums to %d, want 4", total)
	}
}

func TestForUserUninvolved(t *testing.T) {
	stats := ForUser(sampleLetters(), "stranger@x.test")

	if stats.SentCount != 0 || stats.ReceivedCount != 0 || stats.TotalLetters != 0 {
		t.Errorf("Expected zero involvement, got %+v", stats)
	}
	if len(stats.ByDate) != 0 {
		t.Errorf("ByDate = %v", stats.ByDate)
	}
}

func TestDashboard(t *testing.T) {
	letters, users := sampleLetters(), sampleUsers()

	with := Dashboard(letters, users, "alice@x.test")
	if with.UserStats == nil {
		t.Fatal("Expected per-user stats when an email is given")
	}
	if with.UserStats.SentCount != 2 {
		t.Errorf("SentCount = %d", with.UserStats.SentCount)
	}

	without := Dashboard(letters, users, "")
	if without.UserStats != nil {
		t.Error("Expected no per-user stats without an email")
	}
}
