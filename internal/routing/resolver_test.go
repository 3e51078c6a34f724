package routing_test

import (
	"sort"
	"testing"

	"letterflow/internal/models"
	"letterflow/internal/routing"
	"letterflow/internal/testutil"
)

func candidateIDs(users []models.User) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	sort.Strings(ids)
	return ids
}

func assertIDs(t *testing.T, got []models.User, want ...string) {
	t.Helper()
	sort.Strings(want)
	gotIDs := candidateIDs(got)
	if len(gotIDs) != len(want) {
		t.Fatalf("Expected candidates %v, got %v", want, gotIDs)
	}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("Expected candidates %v, got %v", want, gotIDs)
		}
	}
}

func TestApprovalCandidatesTopLevel(t *testing.T) {
	org := testutil.NewOrg()
	users := org.Users()

	got := routing.ApprovalCandidates(routing.PositionOf(org.DirectorGeneral), users)

	// Other apex users plus every sub-category director office. Never the
	// occupant, never heads or regular users.
	assertIDs(t, got,
		org.Deputy.ID, org.Advisor.ID,
		org.OpsOffice.ID, org.ITOffice.ID,
	)
}

func TestApprovalCandidatesDirectorOffice(t *testing.T) {
	org := testutil.NewOrg()
	users := org.Users()

	got := routing.ApprovalCandidates(routing.PositionOf(org.OpsOffice), users)

	// Apex, peer offices and the executive heads of its own sub-tree only;
	// heads under Information Technology stay out.
	assertIDs(t, got,
		org.DirectorGeneral.ID, org.Deputy.ID, org.Advisor.ID,
		org.ITOffice.ID,
		org.FieldHead.ID, org.LogisticsHead.ID,
	)
}

func TestApprovalCandidatesExecutiveHead(t *testing.T) {
	org := testutil.NewOrg()
	users := org.Users()

	got := routing.ApprovalCandidates(routing.PositionOf(org.FieldHead), users)

	// Sibling heads in the same sub-category and the own director office.
	assertIDs(t, got,
		org.LogisticsHead.ID,
		org.OpsOffice.ID,
	)
}

func TestApprovalCandidatesUser(t *testing.T) {
	org := testutil.NewOrg()
	users := org.Users()

	got := routing.ApprovalCandidates(routing.PositionOf(org.Alice), users)

	// Exactly the leaf: the fellow user and the leaf's executive head.
	// The deactivated leaf member and users of other leaves are excluded.
	assertIDs(t, got,
		org.Bob.ID,
		org.AppDevHead.ID,
	)
}

func TestApprovalCandidatesAdmin(t *testing.T) {
	org := testutil.NewOrg()

	if got := routing.ApprovalCandidates(routing.PositionOf(org.Admin), org.Users()); len(got) != 0 {
		t.Errorf("Admin position must yield no candidates, got %v", candidateIDs(got))
	}
}

func TestDelegationSharesApprovalRule(t *testing.T) {
	org := testutil.NewOrg()
	users := org.Users()
	pos := routing.PositionOf(org.OpsOffice)

	approve := candidateIDs(routing.ApprovalCandidates(pos, users))
	delegate := candidateIDs(routing.DelegationCandidates(pos, users))
	if len(approve) != len(delegate) {
		t.Fatalf("Approval and delegation sets differ: %v vs %v", approve, delegate)
	}
	for i := range approve {
		if approve[i] != delegate[i] {
			t.Fatalf("Approval and delegation sets differ: %v vs %v", approve, delegate)
		}
	}
}

func TestEligibleExcludesSelfAndInactive(t *testing.T) {
	org := testutil.NewOrg()
	pos := routing.PositionOf(org.Alice)

	if routing.Eligible(pos, org.Alice) {
		t.Error("The occupant must never be eligible on their own position")
	}
	if routing.Eligible(pos, org.Inactive) {
		t.Error("Deactivated users must never be eligible")
	}
	if !routing.Eligible(pos, org.Bob) {
		t.Error("Expected fellow leaf user to be eligible")
	}
}

func TestCCRecipientsByDepth(t *testing.T) {
	org := testutil.NewOrg()
	users := org.Users()

	// Depth 0: apex users only.
	assertIDs(t, routing.CCRecipients("Director General", 0, users),
		org.DirectorGeneral.ID, org.Deputy.ID, org.Advisor.ID)

	// Depth 1: director offices matching the label.
	assertIDs(t, routing.CCRecipients("Operations", 1, users), org.OpsOffice.ID)

	// Depth 2: executive heads matching the label.
	assertIDs(t, routing.CCRecipients("Application Development", 2, users), org.AppDevHead.ID)

	if got := routing.CCRecipients("Nowhere", 1, users); len(got) != 0 {
		t.Errorf("Unknown label must yield no recipients, got %v", candidateIDs(got))
	}
}

func TestExpandCCRecomputesWholeSelection(t *testing.T) {
	org := testutil.NewOrg()
	users := org.Users()

	expanded := routing.ExpandCC(map[string]int{
		"Operations":              1,
		"Application Development": 2,
	}, users)
	if len(expanded) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(expanded))
	}
	if got := expanded["Operations"]; len(got) != 1 || got[0] != org.OpsOffice.Name {
		t.Errorf("Operations = %v", got)
	}

	// Unchecking a node drops its whole entry on recompute.
	expanded = routing.ExpandCC(map[string]int{"Operations": 1}, users)
	if _, ok := expanded["Application Development"]; ok {
		t.Error("Unchecked node must not survive recomputation")
	}
	if len(expanded) != 1 {
		t.Errorf("Expected 1 entry after uncheck, got %d", len(expanded))
	}
}

func TestSnapshotEligible(t *testing.T) {
	org := testutil.NewOrg()
	users := org.Users()
	leaf := org.Alice.Department

	if !routing.SnapshotEligible(users, org.Alice.Email, leaf, org.Bob) {
		t.Error("Expected fellow leaf user to be eligible for a user-sent letter")
	}
	if !routing.SnapshotEligible(users, org.Alice.Email, leaf, org.AppDevHead) {
		t.Error("Expected the leaf's executive head to be eligible")
	}
	if routing.SnapshotEligible(users, org.Alice.Email, leaf, org.FinanceClerk) {
		t.Error("Expected a user of another leaf to be ineligible")
	}
	if routing.SnapshotEligible(users, org.Alice.Email, leaf, org.Inactive) {
		t.Error("Expected a deactivated user to be ineligible")
	}

	// Unknown sender falls back to leaf-level rules over the department.
	if !routing.SnapshotEligible(users, "ghost@letterflow.test", leaf, org.Bob) {
		t.Error("Expected leaf fallback to keep leaf members eligible")
	}
}
