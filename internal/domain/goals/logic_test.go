package goals

import "testing"

func TestCanSubmitOnlyFromDraft(t *testing.T) {
	if !CanSubmit(StatusDraft) {
		t.Fatal("expected draft goal to be submittable")
	}
	for _, status := range []string{StatusPendingApproval, StatusApproved, StatusInProgress, StatusCompleted} {
		if CanSubmit(status) {
			t.Fatalf("expected %s goal to not be submittable", status)
		}
	}
}

func TestCanDecideOnlyPending(t *testing.T) {
	if !CanDecide(StatusPendingApproval) {
		t.Fatal("expected pending goal to be decidable")
	}
	for _, status := range []string{StatusDraft, StatusApproved, StatusInProgress, StatusCompleted} {
		if CanDecide(status) {
			t.Fatalf("expected %s goal to not be decidable", status)
		}
	}
}

func TestCanEditDraftAndPending(t *testing.T) {
	for _, status := range []string{StatusDraft, StatusPendingApproval} {
		if !CanEdit(status) {
			t.Fatalf("expected %s goal to be editable", status)
		}
	}
	for _, status := range []string{StatusApproved, StatusInProgress, StatusCompleted} {
		if CanEdit(status) {
			t.Fatalf("expected %s goal to not be editable", status)
		}
	}
}

func TestProgressAllowedAfterApproval(t *testing.T) {
	for _, status := range []string{StatusApproved, StatusInProgress} {
		if !CanRecordProgress(status) {
			t.Fatalf("expected progress allowed for %s goal", status)
		}
	}
	for _, status := range []string{StatusDraft, StatusPendingApproval, StatusCompleted} {
		if CanRecordProgress(status) {
			t.Fatalf("expected progress rejected for %s goal", status)
		}
	}
}

func TestFirstProgressActivatesGoal(t *testing.T) {
	if got := NextStatusAfterProgress(StatusApproved); got != StatusInProgress {
		t.Fatalf("expected approved goal to become in_progress, got %s", got)
	}
	if got := NextStatusAfterProgress(StatusInProgress); got != StatusInProgress {
		t.Fatalf("expected in_progress goal to stay in_progress, got %s", got)
	}
}

func TestValidCategory(t *testing.T) {
	for _, category := range Categories {
		if !ValidCategory(category) {
			t.Fatalf("expected %s to be a valid category", category)
		}
	}
	if ValidCategory("attitude") {
		t.Fatal("expected unknown category to be invalid")
	}
}
