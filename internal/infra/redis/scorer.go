package redis

import (
	"context"
	"fmt"
	"time"

	"trivia-session-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Scorer checks answers against the Redis-cached answer key and keeps the
// user's running points total in Redis. Each scored attempt starts the
// play cooldown.
type Scorer struct {
	client           *redis.Client
	keys             *AnswerKeyRepository
	bankID           string
	cooldowns        *CooldownStore
	pointsPerCorrect int
}

func NewScorer(client *redis.Client, keys *AnswerKeyRepository, bankID string, cooldowns *CooldownStore, pointsPerCorrect int) *Scorer {
	if pointsPerCorrect <= 0 {
		pointsPerCorrect = 10
	}
	return &Scorer{
		client:           client,
		keys:             keys,
		bankID:           bankID,
		cooldowns:        cooldowns,
		pointsPerCorrect: pointsPerCorrect,
	}
}

func (s *Scorer) Score(ctx context.Context, userID string, answers domain.AnswerMap) (domain.Result, error) {
	key, err := s.keys.AnswerKey(ctx, s.bankID)
	if err != nil {
		return domain.Result{}, fmt.Errorf("load answer key: %w", err)
	}

	score := 0
	detail := make(map[string]domain.QuestionResult, len(answers))
	for questionID, answer := range answers {
		correctAnswer := key[questionID]
		correct := correctAnswer != "" && answer == correctAnswer
		detail[questionID] = domain.QuestionResult{
			YourAnswer:    answer,
			CorrectAnswer: correctAnswer,
			Correct:       correct,
		}
		if correct {
			score++
		}
	}

	earned := score * s.pointsPerCorrect
	total, err := s.client.IncrBy(ctx, s.pointsKey(userID), int64(earned)).Result()
	if err != nil {
		return domain.Result{}, fmt.Errorf("update points: %w", err)
	}

	if err := s.cooldowns.MarkPlayed(ctx, userID); err != nil {
		return domain.Result{}, fmt.Errorf("mark attempt: %w", err)
	}

	return domain.Result{
		Score:        score,
		PointsEarned: earned,
		TotalPoints:  int(total),
		Detail:       detail,
		ScoredAt:     time.Now(),
	}, nil
}

func (s *Scorer) pointsKey(userID string) string {
	return "trivia:points:" + userID
}
