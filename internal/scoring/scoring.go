// Package scoring maps bounded assessment responses to a total score, an
// outcome level and a percentage.
package scoring

import (
	"sort"

	"carepath/internal/apperr"
	"carepath/internal/levelkey"
	"carepath/internal/model"
)

// DefaultMaxPerQuestion is the upper bound of a single response.
const DefaultMaxPerQuestion = 4

// Result is the outcome of scoring one assessment.
type Result struct {
	TotalScore   int     `json:"totalScore"`
	OutcomeLevel string  `json:"outcomeLevel"`
	Percentage   float64 `json:"percentage"`
	HighestTier  bool    `json:"highestTier"`
}

// Score validates responses against the question set and resolves the
// outcome level from ranges. Every question needs exactly one response in
// [0, maxPerQuestion]; a total outside every range is a configuration error.
func Score(responses map[string]int, questionIDs []string, maxPerQuestion int, ranges []model.ScoreRange) (Result, error) {
	if len(questionIDs) == 0 {
		return Result{}, apperr.Validation("no_questions", "assessment has no questions")
	}
	if maxPerQuestion <= 0 {
		return Result{}, apperr.Validation("bad_max", "max per question must be positive, got %d", maxPerQuestion)
	}

	known := make(map[string]bool, len(questionIDs))
	total := 0
	for _, id := range questionIDs {
		known[id] = true
		v, ok := responses[id]
		if !ok {
			return Result{}, apperr.Validation("missing_response", "missing response for question %q", id)
		}
		if v < 0 || v > maxPerQuestion {
			return Result{}, apperr.Validation("out_of_range", "response %d for question %q outside [0,%d]", v, id, maxPerQuestion)
		}
		total += v
	}
	for id := range responses {
		if !known[id] {
			return Result{}, apperr.Validation("unknown_question", "response for unknown question %q", id)
		}
	}

	r, ok := rangeFor(ranges, total)
	if !ok {
		return Result{}, apperr.Validation("no_matching_range", "no score range covers total %d", total)
	}

	possible := len(questionIDs) * maxPerQuestion
	top, _ := HighestRange(ranges)
	return Result{
		TotalScore:   total,
		OutcomeLevel: r.LevelKey,
		Percentage:   float64(total) / float64(possible) * 100,
		HighestTier:  levelkey.Normalize(r.LevelKey) == levelkey.Normalize(top.LevelKey),
	}, nil
}

// ValidateRanges checks that ranges partition [0, questionCount*maxPerQuestion]
// with no gap and no overlap, and that level keys are distinct.
func ValidateRanges(ranges []model.ScoreRange, questionCount, maxPerQuestion int) error {
	if len(ranges) == 0 {
		return apperr.Validation("no_ranges", "score ranges are required")
	}
	sorted := append([]model.ScoreRange(nil), ranges...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MinScore < sorted[j].MinScore })

	seen := make(map[string]bool, len(sorted))
	possible := questionCount * maxPerQuestion
	next := 0
	for _, r := range sorted {
		key := levelkey.Normalize(r.LevelKey)
		if key == "" {
			return apperr.Validation("bad_range", "score range %d-%d has no level key", r.MinScore, r.MaxScore)
		}
		if seen[key] {
			return apperr.Validation("bad_range", "level %q has more than one score range", r.LevelKey)
		}
		seen[key] = true
		if r.MinScore > r.MaxScore {
			return apperr.Validation("bad_range", "range %q has min %d above max %d", r.LevelKey, r.MinScore, r.MaxScore)
		}
		if r.MinScore < next {
			return apperr.Validation("range_overlap", "range %q overlaps at score %d", r.LevelKey, r.MinScore)
		}
		if r.MinScore > next {
			return apperr.Validation("range_gap", "scores %d-%d are not covered", next, r.MinScore-1)
		}
		next = r.MaxScore + 1
	}
	if next-1 != possible {
		if next-1 < possible {
			return apperr.Validation("range_gap", "scores %d-%d are not covered", next, possible)
		}
		return apperr.Validation("bad_range", "ranges extend to %d beyond the maximum score %d", next-1, possible)
	}
	return nil
}

// HighestRange returns the range with the greatest max score.
func HighestRange(ranges []model.ScoreRange) (model.ScoreRange, bool) {
	if len(ranges) == 0 {
		return model.ScoreRange{}, false
	}
	top := ranges[0]
	for _, r := range ranges[1:] {
		if r.MaxScore > top.MaxScore {
			top = r
		}
	}
	return top, true
}

func rangeFor(ranges []model.ScoreRange, total int) (model.ScoreRange, bool) {
	for _, r := range ranges {
		if total >= r.MinScore && total <= r.MaxScore {
			return r, true
		}
	}
	return model.ScoreRange{}, false
}
