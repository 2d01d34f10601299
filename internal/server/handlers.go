package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/soyeahso/vchat/internal/assistant"
	"github.com/soyeahso/vchat/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxMessageBytes      = 1 << 20
	defaultExchangeLimit = 20
	maxExchangeLimit     = 200
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// MessageResponse is returned by POST /message.
type MessageResponse struct {
	Response string `json:"response"`
}

// ExchangesResponse is returned by GET /exchanges.
type ExchangesResponse struct {
	Exchanges []domain.Exchange `json:"exchanges"`
	Total     int               `json:"total"`
}

// handleRoot reports that the server is up.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": s.assistantName + " Chat assistant server is running",
	})
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleMessage answers one chat message.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := RequestID(r.Context())

	ctx, span := s.tracer.Start(r.Context(), "server.message", trace.WithAttributes(
		attribute.String("request.id", reqID),
	))
	defer span.End()

	var req assistant.Request
	body := http.MaxBytesReader(w, r.Body, maxMessageBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if isBodyTooLarge(err) {
			s.countRequest(ctx, http.StatusRequestEntityTooLarge)
			writeError(w, http.StatusRequestEntityTooLarge, "message body too large")
			return
		}
		s.countRequest(ctx, http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.countRequest(ctx, http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	text, err := s.responder.Reply(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "responder failed")
		if ctx.Err() != nil {
			s.log.Debug().Str("requestId", reqID).Msg("client went away before reply")
			return
		}
		s.log.Error().Err(err).Str("requestId", reqID).Msg("responder failed")
		s.countRequest(ctx, http.StatusInternalServerError)
		writeError(w, http.StatusInternalServerError, "failed to generate a response")
		return
	}

	ex := domain.Exchange{
		RequestID:   reqID,
		Message:     req.Message,
		ChatHistory: req.ChatHistory,
		Response:    text,
		Status:      http.StatusOK,
		DurationMs:  time.Since(start).Milliseconds(),
	}
	if s.exchanges != nil {
		recorded, err := s.exchanges.Record(ctx, ex)
		if err != nil {
			s.log.Warn().Err(err).Str("requestId", reqID).Msg("failed to record exchange")
		} else {
			ex = recorded
		}
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}
	s.feed.Broadcast(EventExchange, ex, s.eventSeq.Add(1))

	s.countRequest(ctx, http.StatusOK)
	s.log.Info().
		Str("requestId", reqID).
		Int("messageLen", len(req.Message)).
		Int("historyLen", len(req.ChatHistory)).
		Dur("duration", time.Since(start)).
		Msg("message answered")

	writeJSON(w, http.StatusOK, MessageResponse{Response: text})
}

// handleExchanges lists recent exchanges, newest first.
func (s *Server) handleExchanges(w http.ResponseWriter, r *http.Request) {
	limit := defaultExchangeLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxExchangeLimit)
	}

	if s.exchanges == nil {
		writeJSON(w, http.StatusOK, ExchangesResponse{Exchanges: []domain.Exchange{}})
		return
	}

	recent, err := s.exchanges.Recent(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("listing exchanges")
		writeError(w, http.StatusInternalServerError, "failed to list exchanges")
		return
	}
	total, err := s.exchanges.Count(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("counting exchanges")
		writeError(w, http.StatusInternalServerError, "failed to count exchanges")
		return
	}
	if recent == nil {
		recent = []domain.Exchange{}
	}
	writeJSON(w, http.StatusOK, ExchangesResponse{Exchanges: recent, Total: total})
}

// handleNotFound returns a 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}

func (s *Server) countRequest(ctx context.Context, status int) {
	if s.requests == nil {
		return
	}
	s.requests.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.Int("http.status_code", status)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// isBodyTooLarge reports whether err came from http.MaxBytesReader.
func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
