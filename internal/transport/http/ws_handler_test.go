package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trivia-session-service/internal/app"
	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*httptest.Server, func()) {
	t.Helper()
	bank := memory.NewBankRepository(memory.NewStaticBankLoader(map[string][]domain.Question{
		"default": {
			{ID: "q1", Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, Answer: "4"},
		},
	}), time.Minute)
	cooldowns := memory.NewCooldownLedger(time.Hour)
	provider := memory.NewQuestionProvider(bank, "default", cooldowns, 1)
	scorer := memory.NewScorer(bank, "default", cooldowns, 10)
	rules := app.Rules{QuestionSeconds: 5, TransitionDelay: 20 * time.Millisecond, PointsPerCorrect: 10}
	service := app.NewTriviaService(memory.NewSessionStore(), provider, scorer, rules, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewWSHandler(service).ServeWS)
	server := httptest.NewServer(mux)
	return server, server.Close
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestWebSocketSessionFlow(t *testing.T) {
	server, cleanup := newTestServer(t)
	defer cleanup()

	conn := dial(t, server, "?userId=u1")
	defer conn.Close()

	// First snapshot: the session is active on question 1.
	msgType, payload := readNext(conn, t, "session")
	if msgType != "session" {
		t.Fatalf("expected session, got %s", msgType)
	}
	if phase, _ := payload["phase"].(string); phase != string(domain.PhaseActive) {
		t.Fatalf("expected active session, got %v", payload["phase"])
	}

	if err := conn.WriteJSON(map[string]any{
		"type":    "answer",
		"payload": map[string]any{"option": "4"},
	}); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	// The single question was the last one; wait for the gate.
	gated := false
	for i := 0; i < 10 && !gated; i++ {
		typ, payload := readNext(conn, t, "")
		if typ == "session" && payload["phase"] == string(domain.PhaseGated) {
			gated = true
		}
	}
	if !gated {
		t.Fatalf("expected session to reach the gate")
	}

	if err := conn.WriteJSON(map[string]any{"type": "continue"}); err != nil {
		t.Fatalf("write continue: %v", err)
	}

	for i := 0; i < 10; i++ {
		typ, payload := readNext(conn, t, "")
		if typ != "result" {
			continue
		}
		if payload["total"] != float64(1) || payload["correct"] != float64(1) || payload["points"] != float64(10) {
			t.Fatalf("unexpected result payload: %v", payload)
		}
		return
	}
	t.Fatalf("expected a result message")
}

func TestWebSocketMissingIdentityRedirects(t *testing.T) {
	server, cleanup := newTestServer(t)
	defer cleanup()

	conn := dial(t, server, "")
	defer conn.Close()

	msgType, payload := readNext(conn, t, "redirect")
	if msgType != "redirect" {
		t.Fatalf("expected redirect, got %s", msgType)
	}
	if payload["screen"] != string(domain.ScreenLogin) {
		t.Fatalf("expected login redirect, got %v", payload["screen"])
	}
	if msg, ok := payload["message"]; ok && msg != "" {
		t.Fatalf("precondition redirect must be silent, got %v", msg)
	}
}

func TestWebSocketCooldownRedirects(t *testing.T) {
	server, cleanup := newTestServer(t)
	defer cleanup()

	// Play a full session to arm the cooldown.
	conn := dial(t, server, "?userId=u2")
	readNext(conn, t, "session")
	_ = conn.WriteJSON(map[string]any{"type": "answer", "payload": map[string]any{"option": "4"}})
	for i := 0; i < 10; i++ {
		typ, payload := readNext(conn, t, "")
		if typ == "session" && payload["phase"] == string(domain.PhaseGated) {
			break
		}
	}
	_ = conn.WriteJSON(map[string]any{"type": "continue"})
	for i := 0; i < 10; i++ {
		if typ, _ := readNext(conn, t, ""); typ == "result" {
			break
		}
	}
	conn.Close()

	// The next attempt is inside the cooldown window.
	retry := dial(t, server, "?userId=u2")
	defer retry.Close()
	msgType, payload := readNext(retry, t, "redirect")
	if msgType != "redirect" {
		t.Fatalf("expected redirect, got %s", msgType)
	}
	if payload["screen"] != string(domain.ScreenHome) {
		t.Fatalf("expected home redirect, got %v", payload["screen"])
	}
	if msg, _ := payload["message"].(string); msg == "" {
		t.Fatalf("cooldown redirect must carry the rejection message")
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
