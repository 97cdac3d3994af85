package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trivia-session-service/internal/domain"
)

// Scorer checks answers against the bank's answer key, accumulates total
// points per user, and starts the play cooldown on each scored attempt.
type Scorer struct {
	bank             *BankRepository
	bankID           string
	cooldowns        Cooldowns
	pointsPerCorrect int
	clock            func() time.Time

	mu     sync.Mutex
	totals map[string]int
}

func NewScorer(bank *BankRepository, bankID string, cooldowns Cooldowns, pointsPerCorrect int) *Scorer {
	if pointsPerCorrect <= 0 {
		pointsPerCorrect = 10
	}
	return &Scorer{
		bank:             bank,
		bankID:           bankID,
		cooldowns:        cooldowns,
		pointsPerCorrect: pointsPerCorrect,
		clock:            time.Now,
		totals:           make(map[string]int),
	}
}

func (s *Scorer) Score(ctx context.Context, userID string, answers domain.AnswerMap) (domain.Result, error) {
	questions, err := s.bank.Bank(ctx, s.bankID)
	if err != nil {
		return domain.Result{}, fmt.Errorf("load answer key: %w", err)
	}

	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	score := 0
	detail := make(map[string]domain.QuestionResult, len(answers))
	for questionID, answer := range answers {
		q := byID[questionID]
		correct := answer == q.Answer && q.Answer != ""
		detail[questionID] = domain.QuestionResult{
			Prompt:        q.Prompt,
			YourAnswer:    answer,
			CorrectAnswer: q.Answer,
			Correct:       correct,
		}
		if correct {
			score++
		}
	}

	earned := score * s.pointsPerCorrect
	s.mu.Lock()
	s.totals[userID] += earned
	total := s.totals[userID]
	s.mu.Unlock()

	if err := s.cooldowns.MarkPlayed(ctx, userID); err != nil {
		return domain.Result{}, fmt.Errorf("mark attempt: %w", err)
	}

	return domain.Result{
		Score:        score,
		PointsEarned: earned,
		TotalPoints:  total,
		Detail:       detail,
		ScoredAt:     s.clock(),
	}, nil
}
