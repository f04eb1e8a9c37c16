package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/scoutline/scoutline/internal/core"
	"github.com/scoutline/scoutline/internal/core/engine"
	"github.com/scoutline/scoutline/internal/metrics"
	"github.com/scoutline/scoutline/internal/server/middleware"
	"github.com/scoutline/scoutline/internal/sse"
)

// TurnRunner executes a chat turn against an event sink. *engine.Orchestrator satisfies it.
type TurnRunner interface {
	Run(ctx context.Context, messages []core.ChatMessage, out engine.Emitter) (*engine.Outcome, error)
}

type chatRequest struct {
	Messages []core.ChatMessage `json:"messages" validate:"required,min=1,dive"`
}

// ChatHandler serves POST /api/chat as a server-sent event stream.
type ChatHandler struct {
	Runner TurnRunner
	Logger *logging.Logger
}

// ServeHTTP validates the request, opens the event stream and runs one turn.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}
	if len(req.Messages) == 0 {
		respondBadRequest(w, r, engine.ErrMessagesRequired.Error())
		return
	}
	if err := apiValidate.Struct(&req); err != nil {
		respondValidation(w, r, err)
		return
	}
	if err := engine.ValidateMessages(req.Messages); err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}
	if h.Runner == nil {
		respondInternal(w, r, "chat pipeline is not configured")
		return
	}

	stream, err := sse.NewWriter(w)
	if err != nil {
		respondInternal(w, r, err.Error())
		return
	}

	// Answers can outlive the server write timeout.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.debug("clear write deadline failed", zap.Error(err))
	}

	closed := metrics.StreamOpened()
	defer closed()

	sse.SetHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err := stream.Comment("connected"); err != nil {
		h.debug("client went away before the first frame", zap.Error(err))
		return
	}

	started := time.Now()
	outcome, err := h.Runner.Run(r.Context(), req.Messages, stream)
	if err != nil {
		// Validation already passed, so this only happens if the runner changed its rules.
		h.warn("chat turn rejected", err, zap.String("request_id", middleware.GetRequestID(r.Context())))
		_ = stream.Done()
		return
	}

	if h.Logger != nil {
		h.Logger.Info("Chat turn completed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("turn_id", outcome.TurnID),
			zap.Bool("searched", len(outcome.Entries) > 0),
			zap.Int("entries", len(outcome.Entries)),
			zap.Int("search_failures", len(outcome.Failures)),
			zap.Bool("degraded", outcome.Degraded),
			zap.Bool("disconnected", outcome.Disconnected),
			zap.Duration("duration", time.Since(started)))
	}
}

func (h *ChatHandler) warn(msg string, err error, fields ...zap.Field) {
	if h.Logger == nil {
		return
	}
	h.Logger.Warn(msg, append(fields, zap.Error(err))...)
}

func (h *ChatHandler) debug(msg string, fields ...zap.Field) {
	if h.Logger == nil {
		return
	}
	h.Logger.Debug(msg, fields...)
}
