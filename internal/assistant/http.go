package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/vchat/internal/logging"
	"github.com/soyeahso/vchat/internal/version"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxReplyBytes caps the response body. Larger replies are rejected, not truncated.
const maxReplyBytes = 1 << 20

// Config configures an HTTPClient.
type Config struct {
	BaseURL       string
	Path          string
	Timeout       time.Duration
	ResponseField string
	FallbackField string
}

// HTTPClient posts requests to the assistant endpoint.
type HTTPClient struct {
	cfg    Config
	client *http.Client
	tracer trace.Tracer
	log    *logging.Logger
}

// NewHTTPClient creates an assistant client.
// BaseURL should be like "http://localhost:8000".
func NewHTTPClient(cfg Config, log *logging.Logger) *HTTPClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8000"
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Path == "" {
		cfg.Path = "/message"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.ResponseField == "" {
		cfg.ResponseField = "response"
	}
	if cfg.FallbackField == "" {
		cfg.FallbackField = "reply"
	}

	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		tracer: otel.Tracer("github.com/soyeahso/vchat/internal/assistant"),
		log:    log.Sub("assistant"),
	}
}

// URL returns the full request URL.
func (c *HTTPClient) URL() string {
	return c.cfg.BaseURL + c.cfg.Path
}

// Send posts req and interprets the reply. Any non-2xx status is a
// KindBadStatus error regardless of class.
func (c *HTTPClient) Send(ctx context.Context, req Request) (*Reply, error) {
	reqID := uuid.New().String()
	ctx, span := c.tracer.Start(ctx, "assistant.send", trace.WithAttributes(
		attribute.String("http.url", c.URL()),
		attribute.String("request.id", reqID),
		attribute.Int("chat_history.bytes", len(req.ChatHistory)),
	))
	defer span.End()

	reply, err := c.send(ctx, reqID, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
		return nil, err
	}
	span.SetAttributes(attribute.String("reply.field", reply.Field))
	return reply, nil
}

func (c *HTTPClient) send(ctx context.Context, reqID string, req Request) (*Reply, error) {
	start := time.Now()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: "failed to marshal request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(), bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: "failed to create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	httpReq.Header.Set("X-Request-ID", reqID)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes+1))
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Status: resp.StatusCode, Message: "failed to read response", Err: err}
	}
	if len(body) > maxReplyBytes {
		c.log.Warn().
			Str("requestId", reqID).
			Int("status", resp.StatusCode).
			Int("limit", maxReplyBytes).
			Msg("reply too large")
		return nil, &Error{
			Kind:    KindMalformedBody,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("reply too large: exceeds %d bytes", maxReplyBytes),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: KindBadStatus, Status: resp.StatusCode, Message: snippet(body)}
	}

	reply, err := DecodeReply(body, c.cfg.ResponseField, c.cfg.FallbackField)
	if err != nil {
		return nil, err
	}
	reply.Status = resp.StatusCode
	reply.RequestID = reqID

	c.log.Debug().
		Str("requestId", reqID).
		Int("status", resp.StatusCode).
		Str("field", reply.Field).
		Dur("duration", time.Since(start)).
		Msg("assistant replied")

	return &reply, nil
}

// DecodeReply extracts the reply text from a success body. The body must be
// a JSON object. The primary key wins when both keys carry text; a missing,
// empty, or non-string value counts as absent. When neither key has text the
// returned Reply has an empty Field.
func DecodeReply(body []byte, primary, fallback string) (Reply, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		if err == nil {
			err = fmt.Errorf("body is not a JSON object")
		}
		return Reply{}, &Error{Kind: KindMalformedBody, Message: snippet(body), Err: err}
	}

	for _, key := range []string{primary, fallback} {
		if key == "" {
			continue
		}
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var text string
		if err := json.Unmarshal(raw, &text); err != nil || text == "" {
			continue
		}
		return Reply{Text: text, Field: key}, nil
	}
	return Reply{}, nil
}

// snippet trims a body for log and error output.
func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
