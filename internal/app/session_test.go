package app

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"trivia-session-service/internal/domain"
)

func testRules() Rules {
	return Rules{QuestionSeconds: 10, TransitionDelay: 500 * time.Millisecond, PointsPerCorrect: 10}
}

func testQuestions(n int) domain.QuestionSet {
	qs := make(domain.QuestionSet, 0, n)
	for i := 1; i <= n; i++ {
		qs = append(qs, domain.Question{
			ID:      fmt.Sprintf("q%d", i),
			Prompt:  fmt.Sprintf("Question %d", i),
			Options: []string{"A", "B", "C"},
		})
	}
	return qs
}

func startedSession(t *testing.T, clk *fakeClock, n int, hook GateHook) (*Session, <-chan Snapshot, func()) {
	t.Helper()
	session := NewSession("u1", testQuestions(n), testRules(), clk, hook)
	session.begin()
	ch, cancel := session.subscribe()
	return session, ch, cancel
}

func waitSnapshot(t *testing.T, ch <-chan Snapshot, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				t.Fatalf("snapshot channel closed")
			}
			if cond(snap) {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out waiting for snapshot condition")
		}
	}
}

func TestSelectedAnswerRecordedVerbatim(t *testing.T) {
	clk := newFakeClock()
	session, ch, cancel := startedSession(t, clk, 2, nil)
	defer cancel()

	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Phase == domain.PhaseActive })

	if err := session.selectAnswer("B"); err != nil {
		t.Fatalf("select: %v", err)
	}
	snap := waitSnapshot(t, ch, func(s Snapshot) bool { return s.Answers >= 1 })
	if snap.Index != 0 {
		t.Fatalf("index must not move before the transition delay, got %d", snap.Index)
	}
	if snap.Answers != snap.Index+1 {
		t.Fatalf("answer count %d does not match index %d after advance", snap.Answers, snap.Index)
	}

	session.mu.RLock()
	got := session.answers["q1"]
	session.mu.RUnlock()
	if got != "B" {
		t.Fatalf("expected recorded answer %q, got %q", "B", got)
	}
}

func TestCountdownExpiryRecordsSentinelOnce(t *testing.T) {
	clk := newFakeClock()
	session, ch, cancel := startedSession(t, clk, 2, nil)
	defer cancel()

	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Phase == domain.PhaseActive })

	// Queue more ticks than the countdown needs; the forced advance must
	// still happen exactly once.
	clk.Advance(15 * time.Second)
	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Answers >= 1 })
	clk.Advance(600 * time.Millisecond)
	snap := waitSnapshot(t, ch, func(s Snapshot) bool { return s.Index >= 1 })
	if snap.Index != 1 {
		t.Fatalf("expected exactly one index increment, got %d", snap.Index)
	}

	session.mu.RLock()
	got := session.answers["q1"]
	session.mu.RUnlock()
	if got != domain.NoAnswer {
		t.Fatalf("expected %q sentinel, got %q", domain.NoAnswer, got)
	}
}

func TestTicksDecrementWithoutResetting(t *testing.T) {
	clk := newFakeClock()
	session, ch, cancel := startedSession(t, clk, 1, nil)
	defer cancel()

	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Phase == domain.PhaseActive && s.Remaining == 10 })

	clk.Advance(3 * time.Second)
	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Remaining == 7 })

	// Reading snapshots stands in for unrelated re-renders; it must not
	// touch the countdown.
	for i := 0; i < 5; i++ {
		_ = session.Snapshot()
	}

	clk.Advance(time.Second)
	snap := waitSnapshot(t, ch, func(s Snapshot) bool { return s.Remaining <= 6 })
	if snap.Remaining != 6 {
		t.Fatalf("expected countdown at 6 after one more tick, got %d", snap.Remaining)
	}
	if want := 0.6; snap.Progress != want {
		t.Fatalf("expected progress %v, got %v", want, snap.Progress)
	}
}

func TestAdvanceTwiceIsIdempotent(t *testing.T) {
	clk := newFakeClock()
	session, ch, cancel := startedSession(t, clk, 3, nil)
	defer cancel()

	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Phase == domain.PhaseActive })

	session.advance("A")
	session.advance("A")

	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Answers >= 1 })
	clk.Advance(600 * time.Millisecond)
	snap := waitSnapshot(t, ch, func(s Snapshot) bool { return s.Index >= 1 })
	if snap.Index != 1 || snap.Answers != 1 {
		t.Fatalf("double advance must increment once: index=%d answers=%d", snap.Index, snap.Answers)
	}
}

func TestSingleQuestionReachesGateAfterDelay(t *testing.T) {
	var gateEntries int32
	clk := newFakeClock()
	session, ch, cancel := startedSession(t, clk, 1, func(string) {
		atomic.AddInt32(&gateEntries, 1)
	})
	defer cancel()

	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Phase == domain.PhaseActive })

	if err := session.selectAnswer("A"); err != nil {
		t.Fatalf("select: %v", err)
	}
	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Answers >= 1 })
	clk.Advance(600 * time.Millisecond)
	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Phase == domain.PhaseGated })

	handoff, err := session.continueFromGate()
	if err != nil {
		t.Fatalf("continue: %v", err)
	}
	if len(handoff.Answers) != 1 || handoff.Answers["q1"] != "A" {
		t.Fatalf("unexpected handoff answers: %v", handoff.Answers)
	}
	if n := atomic.LoadInt32(&gateEntries); n != 1 {
		t.Fatalf("gate hook must fire exactly once, fired %d times", n)
	}
}

func TestUnattendedSessionTimesOutToGate(t *testing.T) {
	clk := newFakeClock()
	session, ch, cancel := startedSession(t, clk, 3, nil)
	defer cancel()

	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Phase == domain.PhaseActive })

	for q := 0; q < 3; q++ {
		clk.Advance(10 * time.Second)
		waitSnapshot(t, ch, func(s Snapshot) bool { return s.Answers >= q+1 })
		clk.Advance(600 * time.Millisecond)
		if q < 2 {
			waitSnapshot(t, ch, func(s Snapshot) bool { return s.Index >= q+1 })
		}
	}
	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Phase == domain.PhaseGated })

	handoff, err := session.continueFromGate()
	if err != nil {
		t.Fatalf("continue: %v", err)
	}
	for _, id := range []string{"q1", "q2", "q3"} {
		if handoff.Answers[id] != domain.NoAnswer {
			t.Fatalf("expected %s timed out with sentinel, got %q", id, handoff.Answers[id])
		}
	}
}

func TestGateHasNoCountdown(t *testing.T) {
	clk := newFakeClock()
	session, ch, cancel := startedSession(t, clk, 1, nil)
	defer cancel()

	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Phase == domain.PhaseActive })
	_ = session.selectAnswer("A")
	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Answers >= 1 })
	clk.Advance(600 * time.Millisecond)
	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Phase == domain.PhaseGated })

	// No timer may push the user past the gate.
	clk.Advance(time.Minute)
	if snap := session.Snapshot(); snap.Phase != domain.PhaseGated {
		t.Fatalf("expected session to stay gated, got %s", snap.Phase)
	}
}

func TestSelectDuringTransitionDelayIsDropped(t *testing.T) {
	clk := newFakeClock()
	session, ch, cancel := startedSession(t, clk, 2, nil)
	defer cancel()

	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Phase == domain.PhaseActive })
	_ = session.selectAnswer("A")
	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Answers >= 1 })

	// A late tap inside the delay window must not change the record.
	_ = session.selectAnswer("C")

	session.mu.RLock()
	got := session.answers["q1"]
	session.mu.RUnlock()
	if got != "A" {
		t.Fatalf("late selection must be dropped, got %q", got)
	}
}

func TestContinueRequiresGate(t *testing.T) {
	clk := newFakeClock()
	session, ch, cancel := startedSession(t, clk, 2, nil)
	defer cancel()

	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Phase == domain.PhaseActive })
	if _, err := session.continueFromGate(); err != domain.ErrGateNotReached {
		t.Fatalf("expected gate error, got %v", err)
	}
}

func TestHandoffIsTerminal(t *testing.T) {
	clk := newFakeClock()
	session, ch, cancel := startedSession(t, clk, 1, nil)
	defer cancel()

	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Phase == domain.PhaseActive })
	_ = session.selectAnswer("A")
	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Answers >= 1 })
	clk.Advance(600 * time.Millisecond)
	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Phase == domain.PhaseGated })

	if _, err := session.continueFromGate(); err != nil {
		t.Fatalf("continue: %v", err)
	}
	if _, err := session.continueFromGate(); err != domain.ErrGateNotReached {
		t.Fatalf("handoff must be one-time, got %v", err)
	}
	if session.IsLive() {
		t.Fatalf("handed-off session must not be live")
	}
}

func TestRetireStopsPendingTransitions(t *testing.T) {
	clk := newFakeClock()
	session, ch, cancel := startedSession(t, clk, 2, nil)
	defer cancel()

	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Phase == domain.PhaseActive })
	_ = session.selectAnswer("A")
	waitSnapshot(t, ch, func(s Snapshot) bool { return s.Answers >= 1 })

	session.retire()
	// The armed transition delay must not resurrect the session.
	clk.Advance(600 * time.Millisecond)
	clk.Advance(10 * time.Second)

	if snap := session.Snapshot(); snap.Phase != domain.PhaseHandedOff || snap.Index != 0 {
		t.Fatalf("retired session moved: phase=%s index=%d", snap.Phase, snap.Index)
	}
}
