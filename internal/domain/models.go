package domain

import "time"

// NoAnswer is the sentinel recorded when the countdown expires with no
// selection. It is distinct from an absent key, which means the question
// was never reached.
const NoAnswer = "No Answer"

// Phase is the session's lifecycle position. Transitions only move forward:
// Loading -> Active -> Gated -> HandedOff.
type Phase string

const (
	PhaseLoading   Phase = "loading"
	PhaseActive    Phase = "active"
	PhaseGated     Phase = "gated"
	PhaseHandedOff Phase = "handed_off"
)

// Screen names a destination in the hosting application. The core only
// requests navigation; it does not own the address space.
type Screen string

const (
	ScreenHome    Screen = "home"
	ScreenLogin   Screen = "login"
	ScreenProfile Screen = "profile"
	ScreenResults Screen = "results"
)

// Question is one trivia prompt with its ordered options. Immutable once
// fetched; owned by the session for its lifetime.
type Question struct {
	ID         string   `json:"id"`
	Prompt     string   `json:"question"`
	Options    []string `json:"options"`
	Answer     string   `json:"correct_answer,omitempty"` // stripped before questions reach a session
	Subject    string   `json:"subject,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
}

// QuestionSet is the ordered sequence a session traverses. Fetched once per
// session and never restarted; a new session requires a new fetch.
type QuestionSet []Question

// AnswerMap maps question ID to the selected option text (or NoAnswer).
// Entries are append/update only and never removed.
type AnswerMap map[string]string

// Answered counts entries that carry a real selection, excluding the
// NoAnswer sentinel.
func (m AnswerMap) Answered() int {
	n := 0
	for _, v := range m {
		if v != NoAnswer {
			n++
		}
	}
	return n
}

// Clone returns an independent copy, used to freeze the map at handoff.
func (m AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Handoff is the one-time transfer of a finished session to the results
// phase: the identity it was played under and the frozen answer map.
type Handoff struct {
	Identity string    `json:"userId"`
	Answers  AnswerMap `json:"answers"`
}

// QuestionResult is the scorer's per-question verdict.
type QuestionResult struct {
	Prompt        string `json:"question"`
	YourAnswer    string `json:"your_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Correct       bool   `json:"is_correct"`
}

// Result is the authoritative scoring outcome. The core never computes
// correctness itself.
type Result struct {
	Score        int                       `json:"score"`
	PointsEarned int                       `json:"points_earned"`
	TotalPoints  int                       `json:"total_points"`
	Detail       map[string]QuestionResult `json:"results,omitempty"`
	ScoredAt     time.Time                 `json:"scoredAt"`
}

// ResultView is what the results screen displays, derived from the frozen
// answer map plus the scorer's Result.
type ResultView struct {
	Total       int `json:"total"`
	Answered    int `json:"answered"`
	NotAnswered int `json:"notAnswered"`
	Correct     int `json:"correct"`
	Wrong       int `json:"wrong"`
	Points      int `json:"points"`
	TotalPoints int `json:"totalPoints"`
}
