// Package port defines the interfaces (ports) for the two external
// collaborators. Following hexagonal architecture, these ports decouple
// the service layer from the concrete provider and store clients, so
// tests can substitute stubs.
package port

import (
	"context"

	"github.com/echolabs/echo-support-go/internal/domain"
)

// CompletionClient produces a single text completion for an ordered
// conversation payload.
type CompletionClient interface {
	Complete(ctx context.Context, model string, messages []domain.Message) (*domain.CompletionResult, error)
}

// LogStore is an append-only, per-agent, timestamp-ordered collection
// of exchange records.
type LogStore interface {
	// Append persists one record under the agent's log collection and
	// returns the store-assigned document ID.
	Append(ctx context.Context, agentID string, rec *domain.ExchangeRecord) (string, error)

	// ListRecent returns up to limit records for the agent, newest first.
	ListRecent(ctx context.Context, agentID string, limit int) ([]domain.StoredExchange, error)
}
