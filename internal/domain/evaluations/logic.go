package evaluations

import "time"

// DedupeScores collapses repeated goalId entries; the last occurrence
// wins but rows keep the order of first appearance.
func DedupeScores(scores []ScoreInput) []ScoreInput {
	index := make(map[string]int, len(scores))
	out := make([]ScoreInput, 0, len(scores))
	for _, score := range scores {
		if at, seen := index[score.GoalID]; seen {
			out[at] = score
			continue
		}
		index[score.GoalID] = len(out)
		out = append(out, score)
	}
	return out
}

func ValidScore(value float64) bool {
	return value >= MinScore && value <= MaxScore
}

func ValidType(value string) bool {
	for _, candidate := range EvaluationTypes {
		if value == candidate {
			return true
		}
	}
	return false
}

// OverallScore averages the per-goal scores. Callers pass deduplicated
// input; an empty slice yields nil so the column stays NULL.
func OverallScore(scores []ScoreInput) *float64 {
	if len(scores) == 0 {
		return nil
	}
	var sum float64
	for _, score := range scores {
		sum += score.Score
	}
	avg := sum / float64(len(scores))
	return &avg
}

// NextCycleStatus advances a cycle based on the clock: draft cycles
// activate once the start date passes, active cycles close after the
// end date. It never reopens a closed cycle.
func NextCycleStatus(status string, start, end, now time.Time) string {
	switch status {
	case CycleStatusDraft:
		if !now.Before(start) {
			if now.After(end) {
				return CycleStatusClosed
			}
			return CycleStatusActive
		}
	case CycleStatusActive:
		if now.After(end) {
			return CycleStatusClosed
		}
	}
	return status
}
