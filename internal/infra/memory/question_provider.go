package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"trivia-session-service/internal/domain"
)

// QuestionProvider samples a session's worth of questions from a bank,
// enforcing the play cooldown first.
type QuestionProvider struct {
	bank       *BankRepository
	bankID     string
	cooldowns  Cooldowns
	perSession int

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionProvider(bank *BankRepository, bankID string, cooldowns Cooldowns, perSession int) *QuestionProvider {
	if perSession <= 0 {
		perSession = 10
	}
	return &QuestionProvider{
		bank:       bank,
		bankID:     bankID,
		cooldowns:  cooldowns,
		perSession: perSession,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *QuestionProvider) QuestionsFor(ctx context.Context, userID string) (domain.QuestionSet, error) {
	remaining, err := p.cooldowns.Remaining(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check cooldown: %w", err)
	}
	if remaining > 0 {
		return nil, domain.NewCooldownRejection(remaining)
	}

	questions, err := p.bank.Bank(ctx, p.bankID)
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	return p.sample(questions), nil
}

// sample picks perSession questions without replacement; a smaller bank is
// returned whole, shuffled.
func (p *QuestionProvider) sample(questions []domain.Question) domain.QuestionSet {
	picked := make(domain.QuestionSet, len(questions))
	copy(picked, questions)

	p.mu.Lock()
	p.rnd.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})
	p.mu.Unlock()

	if len(picked) > p.perSession {
		picked = picked[:p.perSession]
	}
	return picked
}
