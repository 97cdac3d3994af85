package app

import (
	"sync"
	"time"

	"trivia-session-service/internal/domain"
)

// Rules are the per-session timing and scoring knobs.
type Rules struct {
	QuestionSeconds  int
	TransitionDelay  time.Duration
	PointsPerCorrect int
}

func (r Rules) withDefaults() Rules {
	if r.QuestionSeconds <= 0 {
		r.QuestionSeconds = 10
	}
	if r.TransitionDelay <= 0 {
		r.TransitionDelay = 500 * time.Millisecond
	}
	if r.PointsPerCorrect <= 0 {
		r.PointsPerCorrect = 10
	}
	return r
}

// GateHook runs exactly once each time a session enters the gate, e.g. to
// register a sponsor impression.
type GateHook func(identity string)

// QuestionView is the client-safe projection of the current question.
type QuestionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
}

// Snapshot is a point-in-time view of a session, safe to hand to renderers.
// Reading a snapshot never affects the countdown.
type Snapshot struct {
	Identity  string        `json:"userId"`
	Phase     domain.Phase  `json:"phase"`
	Index     int           `json:"index"`
	Total     int           `json:"total"`
	Question  *QuestionView `json:"question,omitempty"`
	Remaining int           `json:"secondsRemaining"`
	Progress  float64       `json:"progress"`
	Answers   int           `json:"answerCount"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Session is one traversal of a question set from start to handoff. All
// state is guarded by mu; the advancing flag serializes the advance
// protocol so each question yields at most one index increment.
type Session struct {
	identity  string
	questions domain.QuestionSet
	rules     Rules
	clock     Clock
	gateHook  GateHook

	mu          sync.RWMutex
	phase       domain.Phase
	index       int
	remaining   int
	answers     domain.AnswerMap
	advancing   bool
	epoch       int           // bumped per question activation; stale ticks no-op
	stop        chan struct{} // tears down the countdown goroutine
	subscribers map[chan Snapshot]struct{}
}

// NewSession builds a session over an already-fetched question set. It
// stays in Loading until begin is called.
func NewSession(identity string, questions domain.QuestionSet, rules Rules, clock Clock, hook GateHook) *Session {
	return &Session{
		identity:    identity,
		questions:   questions,
		rules:       rules.withDefaults(),
		clock:       clock,
		gateHook:    hook,
		phase:       domain.PhaseLoading,
		answers:     make(domain.AnswerMap, len(questions)),
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// begin transitions Loading -> Active(0, full) and starts the countdown.
func (s *Session) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseLoading {
		return
	}
	s.phase = domain.PhaseActive
	s.remaining = s.rules.QuestionSeconds
	s.startCountdownLocked()
	s.broadcastLocked()
}

// selectAnswer records option for the current question and invokes the
// advance protocol. Re-selection is allowed until an advance is in flight;
// a selection arriving during the transition delay is dropped.
func (s *Session) selectAnswer(option string) error {
	s.mu.Lock()
	if s.phase != domain.PhaseActive {
		s.mu.Unlock()
		return domain.ErrNotActive
	}
	if s.advancing {
		s.mu.Unlock()
		return nil
	}
	s.answers[s.questions[s.index].ID] = option
	s.mu.Unlock()
	s.advance(option)
	return nil
}

// advance runs the advance protocol: record the answer if the current
// question has none, reset the countdown, and after the transition delay
// either move to the next question or enter the gate. Duplicate calls for
// the same question degenerate to no-ops.
func (s *Session) advance(answer string) {
	s.mu.Lock()
	if s.phase != domain.PhaseActive || s.advancing {
		s.mu.Unlock()
		return
	}
	s.advancing = true
	q := s.questions[s.index]
	if _, ok := s.answers[q.ID]; !ok {
		s.answers[q.ID] = answer
	}
	s.remaining = s.rules.QuestionSeconds
	stop := s.stop
	s.stop = nil
	last := s.index+1 >= len(s.questions)
	// Registered under the lock so anyone who has observed this broadcast
	// can rely on the delay being armed.
	delay := s.clock.After(s.rules.TransitionDelay)
	s.broadcastLocked()
	s.mu.Unlock()

	if stop != nil {
		close(stop)
	}

	go func() {
		<-delay
		s.mu.Lock()
		if s.phase != domain.PhaseActive {
			s.mu.Unlock()
			return
		}
		s.advancing = false
		enteredGate := false
		if last {
			s.phase = domain.PhaseGated
			enteredGate = true
		} else {
			s.index++
			s.startCountdownLocked()
		}
		s.broadcastLocked()
		s.mu.Unlock()
		if enteredGate && s.gateHook != nil {
			s.gateHook(s.identity)
		}
	}()
}

// continueFromGate performs the handoff: the answer map is frozen and
// transferred, and the session's own copy is retired.
func (s *Session) continueFromGate() (domain.Handoff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseGated {
		return domain.Handoff{}, domain.ErrGateNotReached
	}
	s.phase = domain.PhaseHandedOff
	frozen := s.answers.Clone()
	s.answers = nil
	s.broadcastLocked()
	return domain.Handoff{Identity: s.identity, Answers: frozen}, nil
}

// retire tears the session down from any phase: the countdown stops and no
// further transitions are applied, including a pending delayed advance.
func (s *Session) retire() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.epoch++
	s.phase = domain.PhaseHandedOff
	s.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

// IsLive reports whether the session can still make progress.
func (s *Session) IsLive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase != domain.PhaseHandedOff
}

// Snapshot returns the current view without touching the countdown.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) startCountdownLocked() {
	s.epoch++
	s.stop = make(chan struct{})
	ticker := s.clock.NewTicker(time.Second)
	go s.runCountdown(ticker, s.epoch, s.stop)
}

func (s *Session) runCountdown(ticker Ticker, epoch int, stop chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C():
			if s.tick(epoch) {
				return
			}
		case <-stop:
			return
		}
	}
}

// tick decrements the countdown; at zero it forces an advance with the
// NoAnswer sentinel. Returns true when this countdown is finished.
func (s *Session) tick(epoch int) bool {
	s.mu.Lock()
	if s.phase != domain.PhaseActive || s.epoch != epoch || s.advancing {
		s.mu.Unlock()
		return true
	}
	s.remaining--
	if s.remaining > 0 {
		s.broadcastLocked()
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()
	s.advance(domain.NoAnswer)
	return true
}

func (s *Session) subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the oldest update so the latest state always lands.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Identity:  s.identity,
		Phase:     s.phase,
		Index:     s.index,
		Total:     len(s.questions),
		Remaining: s.remaining,
		Answers:   len(s.answers),
		UpdatedAt: s.clock.Now(),
	}
	if s.rules.QuestionSeconds > 0 {
		snap.Progress = float64(s.remaining) / float64(s.rules.QuestionSeconds)
	}
	if s.phase == domain.PhaseActive && s.index < len(s.questions) {
		q := s.questions[s.index]
		snap.Question = &QuestionView{ID: q.ID, Prompt: q.Prompt, Options: q.Options}
	}
	return snap
}
