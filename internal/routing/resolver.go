// Package routing computes who in the hierarchy may act next on a letter.
// All functions are pure over a user directory snapshot; presentation order
// of candidate sets is a UI concern, not a contract of this package.
package routing

import (
	"letterflow/internal/department"
	"letterflow/internal/directory"
	"letterflow/internal/models"
)

// Position is an acting position in the hierarchy: a role at a department
// path, occupied by a specific user. Candidate sets never include the
// occupant themselves.
type Position struct {
	UserID     string
	Role       models.Role
	Department department.Path
}

// PositionOf derives the acting position of a user.
func PositionOf(u models.User) Position {
	return Position{
		UserID:     u.ID,
		Role:       u.Role,
		Department: department.ParsePath(u.Department),
	}
}

// ApprovalCandidates computes the set of users eligible to approve, reject or
// be handed a letter originating from the given position:
//
//   - top-level roles route to the other top-level users and to every
//     sub-category director office (depth-2 director_office),
//   - a director office routes to its peer offices, all top-level users and
//     the executive heads of its own sub-tree,
//   - an executive head routes to peer heads in the same leaf, sibling heads
//     in the same sub-category and its own director office,
//   - a regular user (depth-3 department only) routes within the exact leaf:
//     fellow users and the leaf's executive heads.
//
// Inactive users and the occupant are always excluded; any other role yields
// no candidates.
func ApprovalCandidates(pos Position, users []models.User) []models.User {
	var out []models.User
	for _, u := range users {
		if !u.Active || u.ID == pos.UserID {
			continue
		}
		if eligible(pos, u) {
			out = append(out, u)
		}
	}
	return out
}

// DelegationCandidates computes who an assignee may further delegate to.
// Assignment and approval share one eligibility rule: both mean "who in the
// hierarchy may act next on this letter".
func DelegationCandidates(pos Position, users []models.User) []models.User {
	return ApprovalCandidates(pos, users)
}

// Eligible reports whether actor belongs to the approval candidate set of the
// given position.
func Eligible(pos Position, actor models.User) bool {
	if !actor.Active || actor.ID == pos.UserID {
		return false
	}
	return eligible(pos, actor)
}

func eligible(pos Position, u models.User) bool {
	uPath := department.ParsePath(u.Department)

	switch {
	case pos.Role.IsTopLevel():
		if u.Role.IsTopLevel() {
			return true
		}
		return u.Role == models.RoleDirectorOffice && uPath.Depth() == 2

	case pos.Role == models.RoleDirectorOffice:
		if u.Role.IsTopLevel() {
			return true
		}
		if u.Role == models.RoleDirectorOffice && uPath.Depth() == 2 {
			return true
		}
		return u.Role == models.RoleExecutiveHead &&
			uPath.Depth() == 3 &&
			uPath.Prefix(2).Equal(pos.Department.Prefix(2))

	case pos.Role == models.RoleExecutiveHead:
		if u.Role == models.RoleExecutiveHead && uPath.Depth() == 3 {
			// Same leaf, or sibling leaf under the same sub-category.
			if uPath.Prefix(2).Equal(pos.Department.Prefix(2)) {
				return true
			}
		}
		return u.Role == models.RoleDirectorOffice &&
			uPath.Equal(pos.Department.Prefix(2))

	case pos.Role == models.RoleUser:
		if pos.Department.Depth() != 3 {
			return false
		}
		if u.Role != models.RoleUser && u.Role != models.RoleExecutiveHead {
			return false
		}
		return uPath.Equal(pos.Department)
	}

	return false
}

// CCRecipients expands one checked department-tree node into its carbon-copy
// recipient set. The rule depends only on the node's depth (0=Main, 1=Sub,
// 2=SubSub), never on who is composing:
//
//   - depth 0: users at the top-level sentinel department with an apex or
//     director office role,
//   - depth 1: director offices whose path contains the node's label,
//   - depth 2: executive heads whose path contains the node's label.
//
// Unchecking a node drops the whole entry; callers recompute rather than
// patch (remove-then-recompute).
func CCRecipients(label string, depth int, users []models.User) []models.User {
	var out []models.User
	for _, u := range users {
		if !u.Active {
			continue
		}
		uPath := department.ParsePath(u.Department)
		switch depth {
		case 0:
			if uPath.Key() != department.TopLevelSentinel {
				continue
			}
			if u.Role.IsTopLevel() || u.Role == models.RoleDirectorOffice {
				out = append(out, u)
			}
		case 1:
			if u.Role == models.RoleDirectorOffice && uPath.Contains(label) {
				out = append(out, u)
			}
		case 2:
			if u.Role == models.RoleExecutiveHead && uPath.Contains(label) {
				out = append(out, u)
			}
		}
	}
	return out
}

// ExpandCC recomputes the recipient map for a set of checked nodes keyed by
// label. Each node is expanded independently; names only, matching what the
// compose form stores on the letter.
func ExpandCC(nodes map[string]int, users []models.User) map[string][]string {
	out := make(map[string][]string, len(nodes))
	for label, depth := range nodes {
		recipients := CCRecipients(label, depth, users)
		names := make([]string, 0, len(recipients))
		for _, r := range recipients {
			names = append(names, r.Name)
		}
		out[label] = names
	}
	return out
}

// SnapshotEligible is a convenience over a directory snapshot: it resolves
// the sender of a letter by email and reports whether actor may act on it.
// An unknown or deactivated sender leaves only the department to go by, so
// eligibility falls back to the leaf-level rules for a depth-3 path.
func SnapshotEligible(users []models.User, senderEmail, letterDepartment string, actor models.User) bool {
	for _, u := range users {
		if directory.SameEmail(u.Email, senderEmail) {
			pos := PositionOf(u)
			pos.Department = department.ParsePath(letterDepartment)
			return Eligible(pos, actor)
		}
	}
	pos := Position{Role: models.RoleUser, Department: department.ParsePath(letterDepartment)}
	return Eligible(pos, actor)
}
