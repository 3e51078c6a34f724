// Package directory answers "who occupies this position in the hierarchy"
// questions over a user source snapshot. All department comparisons go
// through the canonical normalization in the department package.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"letterflow/internal/department"
	"letterflow/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserSource supplies user records. It is assumed eventually-consistent with
// writes from the admin/profile-edit flow.
type UserSource interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Directory consults a UserSource for routing decisions.
type Directory struct {
	source UserSource
}

// New creates a directory over the given user source.
func New(source UserSource) *Directory {
	return &Directory{source: source}
}

// Snapshot returns all users as of now. Routing candidate computations run
// against one snapshot so a single decision never mixes directory states.
func (d *Directory) Snapshot(ctx context.Context) ([]models.User, error) {
	users, err := d.source.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// FindByDepartment returns the active users whose department refers to the
// same node as path and whose role is in roles. An empty roles set matches
// any role.
func (d *Directory) FindByDepartment(ctx context.Context, path department.Path, roles map[models.Role]bool) ([]models.User, error) {
	users, err := d.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByDepartment(users, path, roles), nil
}

// FindByID returns the user with the given id, active or not.
func (d *Directory) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, err := d.source.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// FindByEmail returns the user with the given email, compared
// case-insensitively. Emails are unique in the directory.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	users, err := d.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if SameEmail(users[i].Email, email) {
			return &users[i], nil
		}
	}
	return nil, ErrUserNotFound
}

// FilterByDepartment is the snapshot-level form of FindByDepartment. Only
// active users participate in new routing decisions.
func FilterByDepartment(users []models.User, path department.Path, roles map[models.Role]bool) []models.User {
	key := path.Key()
	var out []models.User
	for _, u := range users {
		if !u.Active {
			continue
		}
		if len(roles) > 0 && !roles[u.Role] {
			continue
		}
		if department.ParsePath(u.Department).Key() == key {
			out = append(out, u)
		}
	}
	return out
}

// SameEmail compares two email addresses case-insensitively, ignoring
// surrounding whitespace.
func SameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ActiveUsers filters a snapshot down to active users.
func ActiveUsers(users []models.User) []models.User {
	var out []models.User
	for _, u := range users {
		if u.Active {
			out = append(out, u)
		}
	}
	return out
}
