// Package service orchestrates the support pipeline: validate the
// request, build the system prompt, call the completion provider,
// extract the intent marker, persist the exchange, and shape the reply.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/echolabs/echo-support-go/internal/domain"
	"github.com/echolabs/echo-support-go/internal/infra/observability"
	"github.com/echolabs/echo-support-go/internal/intent"
	"github.com/echolabs/echo-support-go/internal/port"
	"github.com/echolabs/echo-support-go/internal/prompt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service/support")

const (
	defaultUserID   = "anonymous"
	defaultUserName = "Guest"
)

// Options tune the support pipeline.
type Options struct {
	// Model is the completion model ID sent with every request.
	Model string
	// AgentID namespaces persisted exchange records.
	AgentID string
	// ListLimit caps GET /api/logs results.
	ListLimit int
	// StrictPersistence fails the request when the log write fails,
	// mirroring the reference deployment's unguarded store call.
	// When false the reply is still returned and the failure is logged.
	StrictPersistence bool
}

// Support is the support-endpoint service. The completion client and
// log store are long-lived handles injected at startup; store may be
// nil when no credential was configured.
type Support struct {
	completions port.CompletionClient
	store       port.LogStore
	opts        Options
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewSupport creates the support service with all dependencies injected.
func NewSupport(
	completions port.CompletionClient,
	store port.LogStore,
	opts Options,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Support {
	if opts.ListLimit <= 0 {
		opts.ListLimit = 100
	}
	return &Support{
		completions: completions,
		store:       store,
		opts:        opts,
		metrics:     metrics,
		logger:      logger,
	}
}

// HandleMessage runs one support exchange end to end.
//
// Validation failures are *domain.ErrValidation and happen before any
// external call. Every later failure reaches the handler as a generic
// server error, except a persistence failure in non-strict mode, which
// is logged and swallowed: the user already has a good reply.
func (s *Support) HandleMessage(ctx context.Context, req *domain.SupportRequest) (*domain.SupportResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "Support.HandleMessage")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("support", time.Since(start))
	}()

	if req == nil || req.Message == "" {
		s.metrics.IncrRequest("invalid")
		return nil, &domain.ErrValidation{Field: "message", Message: "'message' is required."}
	}

	var userID, userName string
	var preferences map[string]any
	if req.User != nil {
		userID = req.User.ID
		userName = req.User.Name
		preferences = req.User.Preferences
	}

	messages := []domain.Message{
		{Role: "system", Content: prompt.BuildSystemPrompt(userName, preferences)},
		{Role: "user", Content: req.Message},
	}

	completionStart := time.Now()
	result, err := s.completions.Complete(ctx, s.opts.Model, messages)
	s.metrics.RecordRequestDuration("completion", time.Since(completionStart))
	if err != nil {
		s.logger.Error("completion call failed", zap.Error(err))
		s.metrics.IncrExternalError("completion")
		s.metrics.IncrRequest("error")
		return nil, fmt.Errorf("completion call: %w", err)
	}

	cleaned, label := intent.Extract(result.Text)
	span.SetAttributes(attribute.String("support.intent", label))
	s.metrics.RecordTokens(result.Usage.PromptTokens, result.Usage.CompletionTokens)
	s.metrics.IncrIntent(label)

	rec := &domain.ExchangeRecord{
		UserID:   orDefault(userID, defaultUserID),
		UserName: orDefault(userName, defaultUserName),
		Question: req.Message,
		Answer:   cleaned,
		Category: label,
		AgentID:  s.opts.AgentID,
	}

	if err := s.persist(ctx, rec); err != nil {
		s.metrics.IncrRequest("error")
		return nil, err
	}

	s.metrics.IncrRequest("success")
	return &domain.SupportResponse{Reply: cleaned, Intent: label}, nil
}

func (s *Support) persist(ctx context.Context, rec *domain.ExchangeRecord) error {
	if s.store == nil {
		if s.opts.StrictPersistence {
			return &domain.ErrStoreUnavailable{}
		}
		s.logger.Warn("log store unavailable, skipping persistence",
			zap.String("agent_id", s.opts.AgentID),
		)
		return nil
	}

	id, err := s.store.Append(ctx, s.opts.AgentID, rec)
	if err != nil {
		s.metrics.IncrExternalError("logstore")
		if s.opts.StrictPersistence {
			return fmt.Errorf("persist exchange: %w", err)
		}
		s.logger.Error("failed to persist exchange",
			zap.String("agent_id", s.opts.AgentID),
			zap.String("category", rec.Category),
			zap.Error(err),
		)
		return nil
	}

	s.logger.Debug("exchange persisted",
		zap.String("agent_id", s.opts.AgentID),
		zap.String("doc_id", id),
		zap.String("category", rec.Category),
	)
	return nil
}

// ListLogs returns the most recent exchanges for an agent, newest
// first, each annotated with its store document ID. A nil store handle
// reports *domain.ErrStoreUnavailable without touching the network.
func (s *Support) ListLogs(ctx context.Context, agentID string) ([]domain.LogEntry, error) {
	ctx, span := tracer.Start(ctx, "Support.ListLogs")
	defer span.End()
	span.SetAttributes(attribute.String("agent.id", agentID))

	if s.store == nil {
		return nil, &domain.ErrStoreUnavailable{}
	}

	records, err := s.store.ListRecent(ctx, agentID, s.opts.ListLimit)
	if err != nil {
		s.metrics.IncrExternalError("logstore")
		return nil, fmt.Errorf("list logs: %w", err)
	}

	entries := make([]domain.LogEntry, 0, len(records))
	for _, r := range records {
		entry := domain.LogEntry{
			ID:       r.ID,
			UserID:   r.Record.UserID,
			UserName: r.Record.UserName,
			Question: r.Record.Question,
			Answer:   r.Record.Answer,
			Category: r.Record.Category,
			AgentID:  r.Record.AgentID,
		}
		if !r.Record.Timestamp.IsZero() {
			ts := r.Record.Timestamp.UTC().Format(time.RFC3339)
			entry.Timestamp = &ts
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// StoreAvailable reports whether the log store handle was configured.
// Used by the health endpoint.
func (s *Support) StoreAvailable() bool {
	return s.store != nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
