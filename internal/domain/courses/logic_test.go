package courses

import "testing"

func TestLessonStatusFor(t *testing.T) {
	cases := []struct {
		name       string
		percentage float64
		current    string
		want       string
	}{
		{"full completes", 100, LessonStatusInProgress, LessonStatusCompleted},
		{"partial starts", 40, LessonStatusNotStarted, LessonStatusInProgress},
		{"zero leaves not_started", 0, LessonStatusNotStarted, LessonStatusNotStarted},
		{"zero leaves in_progress", 0, LessonStatusInProgress, LessonStatusInProgress},
		{"zero never regresses completed", 0, LessonStatusCompleted, LessonStatusCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LessonStatusFor(tc.percentage, tc.current); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestEnrollmentAggregateOneOfThree(t *testing.T) {
	percentage, status, changed := EnrollmentAggregate(1, 3, EnrollmentStatusEnrolled)
	if !changed {
		t.Fatal("expected aggregate to apply")
	}
	if percentage != 33 {
		t.Fatalf("expected 33 percent, got %.0f", percentage)
	}
	if status != EnrollmentStatusInProgress {
		t.Fatalf("expected in_progress, got %s", status)
	}
}

func TestEnrollmentAggregateAllComplete(t *testing.T) {
	percentage, status, _ := EnrollmentAggregate(3, 3, EnrollmentStatusInProgress)
	if percentage != 100 || status != EnrollmentStatusCompleted {
		t.Fatalf("expected 100/completed, got %.0f/%s", percentage, status)
	}
}

func TestEnrollmentAggregateNoLessons(t *testing.T) {
	_, status, changed := EnrollmentAggregate(0, 0, EnrollmentStatusEnrolled)
	if changed {
		t.Fatal("expected zero-lesson course to leave the enrollment untouched")
	}
	if status != EnrollmentStatusEnrolled {
		t.Fatalf("expected status preserved, got %s", status)
	}
}

// Lessons can be underway without any finished yet. The rollup stays
// at zero percent and the enrollment keeps whatever status it had.
func TestEnrollmentAggregateNoneCompleted(t *testing.T) {
	for _, current := range []string{EnrollmentStatusEnrolled, EnrollmentStatusInProgress} {
		percentage, status, changed := EnrollmentAggregate(0, 3, current)
		if !changed {
			t.Fatal("expected aggregate to apply")
		}
		if percentage != 0 {
			t.Fatalf("expected 0 percent, got %.0f", percentage)
		}
		if status != current {
			t.Fatalf("expected %s status preserved, got %s", current, status)
		}
	}
}

func TestEnrollmentAggregateRounding(t *testing.T) {
	percentage, _, _ := EnrollmentAggregate(2, 3, EnrollmentStatusInProgress)
	if percentage != 67 {
		t.Fatalf("expected 67 percent, got %.0f", percentage)
	}
}
