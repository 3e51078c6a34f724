package directory_test

import (
	"context"
	"errors"
	"testing"

	"letterflow/internal/department"
	"letterflow/internal/directory"
	"letterflow/internal/models"
	"letterflow/internal/testutil"
)

func testDirectory() (*directory.Directory, *testutil.Org) {
	org := testutil.NewOrg()
	return directory.New(testutil.NewMemUserSource(org.Users())), org
}

func TestSameEmail(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"alice@letterflow.test", "alice@letterflow.test", true},
		{"Alice@Letterflow.Test", "alice@letterflow.test", true},
		{"  alice@letterflow.test ", "alice@letterflow.test", true},
		{"alice@letterflow.test", "bob@letterflow.test", false},
		{"", "", true},
	}
	for _, tt := range tests {
		if got := directory.SameEmail(tt.a, tt.b); got != tt.want {
			t.Errorf("SameEmail(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFindByEmail(t *testing.T) {
	dir, org := testDirectory()

	u, err := dir.FindByEmail(context.Background(), "ALICE@letterflow.test")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if u.ID != org.Alice.ID {
		t.Errorf("Expected %s, got %s", org.Alice.ID, u.ID)
	}

	if _, err := dir.FindByEmail(context.Background(), "nobody@letterflow.test"); !errors.Is(err, directory.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestFindByID(t *testing.T) {
	dir, org := testDirectory()

	u, err := dir.FindByID(context.Background(), org.Inactive.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if u.Active {
		t.Error("Expected deactivated user to be returned as-is")
	}

	if _, err := dir.FindByID(context.Background(), "u-nope"); !errors.Is(err, directory.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestFindByDepartment(t *testing.T) {
	dir, org := testDirectory()
	leaf := department.ParsePath("director general > information technology > application development")

	users, err := dir.FindByDepartment(context.Background(), leaf, nil)
	if err != nil {
		t.Fatalf("FindByDepartment failed: %v", err)
	}

	// Alice, Bob and the executive head live there; the deactivated user
	// must be excluded.
	ids := map[string]bool{}
	for _, u := range users {
		ids[u.ID] = true
	}
	for _, want := range []string{org.Alice.ID, org.Bob.ID, org.AppDevHead.ID} {
		if !ids[want] {
			t.Errorf("Expected %s in department members", want)
		}
	}
	if ids[org.Inactive.ID] {
		t.Error("Deactivated user must not appear in routing lookups")
	}

	heads, err := dir.FindByDepartment(context.Background(), leaf, map[models.Role]bool{models.RoleExecutiveHead: true})
	if err != nil {
		t.Fatalf("FindByDepartment with role filter failed: %v", err)
	}
	if len(heads) != 1 || heads[0].ID != org.AppDevHead.ID {
		t.Errorf("Expected only the executive head, got %v", heads)
	}
}

func TestActiveUsers(t *testing.T) {
	org := testutil.NewOrg()
	active := directory.ActiveUsers(org.Users())
	for _, u := range active {
		if !u.Active {
			t.Errorf("ActiveUsers returned inactive user %s", u.ID)
		}
	}
	if len(active) != len(org.Users())-1 {
		t.Errorf("Expected exactly one user filtered out, got %d of %d", len(active), len(org.Users()))
	}
}
