package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/triad-ai/triad/internal/core"
)

// maxTurnBody bounds the request body of POST /turns.
const maxTurnBody = 1 << 20

// CreateTurnRequest is the body of POST /api/v1/turns.
type CreateTurnRequest struct {
	Input     string `json:"input"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Voice     bool   `json:"voice,omitempty"`
}

// TurnResponse is the result of a turn.
type TurnResponse struct {
	TurnID        string              `json:"turn_id"`
	SessionID     string              `json:"session_id"`
	UserID        string              `json:"user_id"`
	Topic         core.Topic          `json:"topic,omitempty"`
	ActiveAgent   core.Agent          `json:"active_agent"`
	FinalResponse string              `json:"final_response"`
	Responses     []AgentResponse     `json:"responses"`
	History       []core.HistoryEntry `json:"history"`
}

// AgentResponse is one specialist's contribution.
type AgentResponse struct {
	Agent      core.Agent `json:"agent"`
	Response   string     `json:"response"`
	Confidence float64    `json:"confidence"`
}

// NewTurnResponse converts a finished turn.
func NewTurnResponse(t core.TurnState) TurnResponse {
	resp := TurnResponse{
		TurnID:        t.TurnID,
		SessionID:     t.SessionID,
		UserID:        t.UserID,
		Topic:         t.Topic,
		ActiveAgent:   t.ActiveAgent,
		FinalResponse: t.FinalResponse,
		Responses:     []AgentResponse{},
		History:       t.History,
	}
	for _, e := range t.ResponseBuffer {
		resp.Responses = append(resp.Responses, AgentResponse{
			Agent:      e.Agent,
			Response:   e.Text,
			Confidence: t.Slot(e.Agent).Confidence,
		})
	}
	if resp.History == nil {
		resp.History = []core.HistoryEntry{}
	}
	return resp
}

// handleCreateTurn runs one turn. Requests without a session id start a new
// session; blank input is answered with the clarifying message, not an error.
func (s *Server) handleCreateTurn(w http.ResponseWriter, r *http.Request) {
	var req CreateTurnRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTurnBody))
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		if errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "request body required")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if n := utf8.RuneCountInString(req.Input); n > core.MaxInputLength {
		respondDomainError(w, core.ErrValidation(core.CodeInputTooLong,
			fmt.Sprintf("input has %d characters, the limit is %d", n, core.MaxInputLength)))
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	} else if err := core.ValidateSessionID(req.SessionID); err != nil {
		respondDomainError(w, err)
		return
	}

	ctx := r.Context()
	if s.config.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.TurnTimeout)
		defer cancel()
	}

	turn := s.turns.Process(ctx, core.TurnRequest{
		Input:     req.Input,
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Voice:     req.Voice,
	})
	respondJSON(w, http.StatusOK, NewTurnResponse(turn))
}
