package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"trivia-session-service/internal/app"
	"trivia-session-service/internal/domain"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.TriviaService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.TriviaService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Option string `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type redirectPayload struct {
	Screen  domain.Screen `json:"screen"`
	Message string        `json:"message,omitempty"`
}

// ServeWS upgrades HTTP requests to websockets and drives one trivia
// session per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	snapshot, err := h.service.Start(r.Context(), userID)
	if err != nil {
		h.reject(conn, err)
		return
	}
	defer h.service.Abandon(r.Context(), userID)

	updates, cancel, err := h.service.Subscribe(r.Context(), userID)
	if err != nil {
		h.reject(conn, err)
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "session", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "session", Payload: snapshot}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			if _, err := h.service.SelectAnswer(r.Context(), userID, payload.Option); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "continue":
			view, err := h.service.Finish(r.Context(), userID)
			if err != nil {
				if screen, ok := redirectScreen(err); ok {
					send <- outboundMessage[any]{Type: "redirect", Payload: redirectPayload{Screen: screen, Message: err.Error()}}
					continue
				}
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "result", Payload: view}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// reject reports a session that never started: rejections and missing
// preconditions become redirects, anything else an error message.
func (h *WSHandler) reject(conn *websocket.Conn, err error) {
	if screen, ok := redirectScreen(err); ok {
		_ = conn.WriteJSON(outboundMessage[redirectPayload]{Type: "redirect", Payload: redirectPayload{Screen: screen, Message: redirectMessage(err)}})
		return
	}
	_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
}

// redirectScreen maps domain failures to the host screen the client should
// land on. Transient errors return false and stay on the current screen.
func redirectScreen(err error) (domain.Screen, bool) {
	var rejection *domain.RejectionError
	switch {
	case errors.Is(err, domain.ErrMissingIdentity):
		return domain.ScreenLogin, true
	case errors.As(err, &rejection):
		return domain.ScreenHome, true
	case errors.Is(err, domain.ErrMissingHandoff),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrEmptyQuestionSet):
		return domain.ScreenHome, true
	}
	return "", false
}

// redirectMessage keeps precondition redirects silent; only domain
// rejections carry their message to the user.
func redirectMessage(err error) string {
	var rejection *domain.RejectionError
	if errors.As(err, &rejection) {
		return rejection.Message
	}
	return ""
}
