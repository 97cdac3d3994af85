package redis

import (
	"context"
	"math/rand"
	"time"

	"trivia-session-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches a question bank from a backing store (e.g., Postgres).
type BankLoader interface {
	LoadBank(ctx context.Context, bankID string) ([]domain.Question, error)
}

// AnswerKeyRepository caches a bank's answer key in Redis (hash per bank)
// and falls back to a loader on cache miss.
// Keys are stored as: HSET trivia:bank:{bankID}:answers {questionID} {answer}
type AnswerKeyRepository struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewAnswerKeyRepository(client *redis.Client, loader BankLoader, ttl time.Duration) *AnswerKeyRepository {
	return &AnswerKeyRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// AnswerKey returns questionID -> correct answer text for a bank.
func (r *AnswerKeyRepository) AnswerKey(ctx context.Context, bankID string) (map[string]string, error) {
	key := r.key(bankID)

	cached, err := r.client.HGetAll(ctx, key).Result()
	if err == nil && len(cached) > 0 {
		return cached, nil
	}

	result, err, _ := r.sf.Do(bankID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		cached, err := r.client.HGetAll(ctx, key).Result()
		if err == nil && len(cached) > 0 {
			return cached, nil
		}

		questions, err := r.loader.LoadBank(ctx, bankID)
		if err != nil {
			return nil, err
		}

		answers := make(map[string]string, len(questions))
		pipe := r.client.Pipeline()
		for _, q := range questions {
			answers[q.ID] = q.Answer
			pipe.HSet(ctx, key, q.ID, q.Answer)
		}
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return answers, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]string), nil
}

func (r *AnswerKeyRepository) key(bankID string) string {
	return "trivia:bank:" + bankID + ":answers"
}

func (r *AnswerKeyRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
