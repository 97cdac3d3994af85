package app

import (
	"context"

	"trivia-session-service/internal/domain"
)

// SessionRepository abstracts how live sessions are tracked (in-memory,
// Redis-marked, etc). Sessions are keyed by user identity.
type SessionRepository interface {
	Put(identity string, session *Session)
	Get(identity string) (*Session, bool)
	Delete(identity string)
}

// QuestionProvider fetches a question set for a user. A domain-level
// rejection (e.g. cooldown) is returned as *domain.RejectionError.
type QuestionProvider interface {
	QuestionsFor(ctx context.Context, userID string) (domain.QuestionSet, error)
}

// Scorer checks a finished answer map against the answer key. It is
// authoritative; sessions never compute correctness themselves.
type Scorer interface {
	Score(ctx context.Context, userID string, answers domain.AnswerMap) (domain.Result, error)
}

// TriviaService contains the trivia session use cases.
type TriviaService struct {
	sessions SessionRepository
	provider QuestionProvider
	scorer   Scorer
	rules    Rules
	clock    Clock
	gateHook GateHook
}

func NewTriviaService(sessions SessionRepository, provider QuestionProvider, scorer Scorer, rules Rules, hook GateHook) *TriviaService {
	return NewTriviaServiceWithClock(sessions, provider, scorer, rules, hook, RealClock())
}

// NewTriviaServiceWithClock is test-only for deterministic countdowns.
func NewTriviaServiceWithClock(sessions SessionRepository, provider QuestionProvider, scorer Scorer, rules Rules, hook GateHook, clock Clock) *TriviaService {
	return &TriviaService{
		sessions: sessions,
		provider: provider,
		scorer:   scorer,
		rules:    rules.withDefaults(),
		clock:    clock,
		gateHook: hook,
	}
}

// Start fetches a question set for userID and begins a session. An empty
// identity fails fast with no provider call. A live session is resumed
// rather than restarted; a new set is only fetched for a fresh session.
func (t *TriviaService) Start(ctx context.Context, userID string) (Snapshot, error) {
	if userID == "" {
		return Snapshot{}, domain.ErrMissingIdentity
	}

	if existing, ok := t.sessions.Get(userID); ok && existing.IsLive() {
		return existing.Snapshot(), nil
	}

	questions, err := t.provider.QuestionsFor(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	// A response landing after the caller went away is discarded, not applied.
	if ctx.Err() != nil {
		return Snapshot{}, ctx.Err()
	}
	if len(questions) == 0 {
		return Snapshot{}, domain.ErrEmptyQuestionSet
	}

	session := NewSession(userID, sanitize(questions), t.rules, t.clock, t.gateHook)
	t.sessions.Put(userID, session)
	session.begin()
	return session.Snapshot(), nil
}

// SelectAnswer records an answer for the user's current question and
// triggers the advance protocol.
func (t *TriviaService) SelectAnswer(_ context.Context, userID, option string) (Snapshot, error) {
	session, ok := t.sessions.Get(userID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	if err := session.selectAnswer(option); err != nil {
		return session.Snapshot(), err
	}
	return session.Snapshot(), nil
}

// Finish performs the gate's continue action: the frozen answer map is
// handed off, scored remotely, and the session is retired.
func (t *TriviaService) Finish(ctx context.Context, userID string) (domain.ResultView, error) {
	session, ok := t.sessions.Get(userID)
	if !ok {
		return domain.ResultView{}, domain.ErrSessionNotFound
	}
	handoff, err := session.continueFromGate()
	if err != nil {
		return domain.ResultView{}, err
	}
	view, err := BuildResults(ctx, t.scorer, handoff, session.Snapshot().Total, t.rules)
	if err != nil {
		return domain.ResultView{}, err
	}
	t.sessions.Delete(userID)
	return view, nil
}

// Subscribe returns a channel of session snapshots for rendering. The
// caller must invoke the returned cancel function to avoid leaks.
func (t *TriviaService) Subscribe(_ context.Context, userID string) (<-chan Snapshot, func(), error) {
	session, ok := t.sessions.Get(userID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Abandon tears down the user's session, stopping its countdown.
func (t *TriviaService) Abandon(_ context.Context, userID string) {
	session, ok := t.sessions.Get(userID)
	if !ok {
		return
	}
	session.retire()
	t.sessions.Delete(userID)
}

// sanitize strips answer keys before questions enter a session; sessions
// only ever see prompts and options.
func sanitize(questions domain.QuestionSet) domain.QuestionSet {
	out := make(domain.QuestionSet, len(questions))
	for i, q := range questions {
		q.Answer = ""
		out[i] = q
	}
	return out
}
