// Package server is the thin HTTP wrapper around the orchestration loop. It
// translates the inbound turn request into a loop turn and renders the
// outbound response document; turn-level failures become a generic failure
// body, never a crash.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hupe1980/concierge/core"
	"github.com/hupe1980/concierge/logging"
	"github.com/hupe1980/concierge/loop"
)

// TurnRunner is the core contract the wrapper drives. *loop.Loop satisfies it.
type TurnRunner interface {
	Turn(ctx context.Context, conversationID, userInput string) (*loop.TurnResult, error)
}

// TurnRequest is the inbound wire document.
type TurnRequest struct {
	ConversationID    string `json:"conversationId"`
	ConversationState string `json:"conversationState,omitempty"`
	UserInput         string `json:"userInput"`
}

// ConversationMessage is one rendered reply entry.
type ConversationMessage struct {
	ResponseType string `json:"responseType"`
	ResponseData string `json:"responseData"`
}

// TurnResponse is the outbound wire document.
type TurnResponse struct {
	Status               int                   `json:"status"`
	ConversationID       string                `json:"conversationId"`
	ConversationState    string                `json:"conversationState"`
	ResponseMessage      string                `json:"responseMessage"`
	ConversationMessages []ConversationMessage `json:"conversationMessages"`
}

// Options configure the server.
type Options struct {
	Logger logging.Logger
}

// Server exposes the assistant over HTTP.
type Server struct {
	runner TurnRunner
	logger logging.Logger
}

// New constructs a Server over the given turn runner.
func New(runner TurnRunner, optFns ...func(o *Options)) *Server {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Server{runner: runner, logger: opts.Logger}
}

// Handler returns the HTTP handler serving the assistant API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /assistant", s.handleTurn)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if req.UserInput == "" {
		http.Error(w, "userInput is required", http.StatusBadRequest)
		return
	}
	// Conversation IDs are assigned at first contact and immutable after.
	if req.ConversationID == "" {
		req.ConversationID = core.NewID()
	}

	result, err := s.runner.Turn(r.Context(), req.ConversationID, req.UserInput)
	if err != nil {
		// The process stays available; the caller gets a generic
		// failure while the transcript (if persisted) stays intact.
		s.logger.Error("server.turn.failed",
			"conversation_id", req.ConversationID, "error", err.Error())
		writeJSON(w, TurnResponse{
			Status:            0,
			ConversationID:    req.ConversationID,
			ConversationState: "ongoing",
			ResponseMessage:   "Internal server error.",
			ConversationMessages: []ConversationMessage{
				{ResponseType: "text", ResponseData: "Internal server error."},
			},
		})
		return
	}

	conversationState := "ongoing"
	if result.Terminal {
		conversationState = "ended"
	}
	writeJSON(w, TurnResponse{
		Status:            1,
		ConversationID:    req.ConversationID,
		ConversationState: conversationState,
		ResponseMessage:   "Answer generated successfully",
		ConversationMessages: []ConversationMessage{
			{ResponseType: "Json", ResponseData: result.FinalText},
		},
	})
}

func writeJSON(w http.ResponseWriter, body TurnResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
