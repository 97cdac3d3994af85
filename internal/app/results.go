package app

import (
	"context"
	"fmt"

	"trivia-session-service/internal/domain"
)

// BuildResults adapts a handoff into the results view: it asks the scorer
// for the authoritative correctness count and derives the display figures.
// Entries holding the NoAnswer sentinel count as not answered.
func BuildResults(ctx context.Context, scorer Scorer, handoff domain.Handoff, total int, rules Rules) (domain.ResultView, error) {
	if handoff.Identity == "" || handoff.Answers == nil {
		return domain.ResultView{}, domain.ErrMissingHandoff
	}

	result, err := scorer.Score(ctx, handoff.Identity, handoff.Answers)
	if err != nil {
		return domain.ResultView{}, fmt.Errorf("score answers: %w", err)
	}

	answered := handoff.Answers.Answered()
	points := result.PointsEarned
	if points == 0 && result.Score > 0 {
		points = result.Score * rules.PointsPerCorrect
	}
	return domain.ResultView{
		Total:       total,
		Answered:    answered,
		NotAnswered: total - answered,
		Correct:     result.Score,
		Wrong:       total - result.Score,
		Points:      points,
		TotalPoints: result.TotalPoints,
	}, nil
}
