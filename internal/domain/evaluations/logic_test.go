package evaluations

import (
	"testing"
	"time"
)

func TestDedupeScoresLastWins(t *testing.T) {
	scores := []ScoreInput{
		{GoalID: "g1", Score: 3, Achievement: 80},
		{GoalID: "g2", Score: 4},
		{GoalID: "g1", Score: 5, Achievement: 90, Comment: "revised"},
	}
	got := DedupeScores(scores)
	if len(got) != 2 {
		t.Fatalf("expected 2 scores after dedupe, got %d", len(got))
	}
	if got[0].GoalID != "g1" || got[0].Score != 5 || got[0].Achievement != 90 || got[0].Comment != "revised" {
		t.Fatalf("expected g1 to keep the last occurrence, got %+v", got[0])
	}
	if got[1].GoalID != "g2" || got[1].Score != 4 {
		t.Fatalf("expected g2 unchanged, got %+v", got[1])
	}
}

func TestDedupeScoresEmpty(t *testing.T) {
	if got := DedupeScores(nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %d entries", len(got))
	}
}

func TestOverallScoreAverage(t *testing.T) {
	scores := []ScoreInput{{GoalID: "g1", Score: 3}, {GoalID: "g2", Score: 5}}
	got := OverallScore(scores)
	if got == nil || *got != 4 {
		t.Fatalf("expected overall score 4, got %v", got)
	}
	if OverallScore(nil) != nil {
		t.Fatal("expected nil overall for empty scores")
	}
}

func TestValidScoreRange(t *testing.T) {
	for _, value := range []float64{1, 3, 5} {
		if !ValidScore(value) {
			t.Fatalf("expected %.1f to be valid", value)
		}
	}
	for _, value := range []float64{0, 0.5, 5.5, -1} {
		if ValidScore(value) {
			t.Fatalf("expected %.1f to be invalid", value)
		}
	}
}

func TestNextCycleStatus(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		status string
		now    time.Time
		want   string
	}{
		{"draft before start stays draft", CycleStatusDraft, start.AddDate(0, 0, -1), CycleStatusDraft},
		{"draft on start activates", CycleStatusDraft, start, CycleStatusActive},
		{"draft past end closes", CycleStatusDraft, end.AddDate(0, 0, 1), CycleStatusClosed},
		{"active within window stays active", CycleStatusActive, start.AddDate(0, 1, 0), CycleStatusActive},
		{"active past end closes", CycleStatusActive, end.AddDate(0, 0, 1), CycleStatusClosed},
		{"closed never reopens", CycleStatusClosed, start.AddDate(0, 1, 0), CycleStatusClosed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NextCycleStatus(tc.status, start, end, tc.now); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
