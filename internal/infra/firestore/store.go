// Package firestore adapts Cloud Firestore to the LogStore port.
// Records live under agents/{agent_id}/logs/{auto_id}; timestamps are
// assigned server-side on write.
package firestore

import (
	"context"
	"encoding/json"
	"fmt"

	cloudfirestore "cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/echolabs/echo-support-go/internal/domain"
)

const (
	agentsCollection = "agents"
	logsCollection   = "logs"
	timestampField   = "timestamp"
)

// LogStore is the Firestore-backed exchange log.
type LogStore struct {
	client *cloudfirestore.Client
	logger *zap.Logger
}

// NewLogStore builds a store from a service-account credential JSON
// blob (the FIREBASE_SERVICE_ACCOUNT value). The project ID is read
// from the credential itself.
func NewLogStore(ctx context.Context, serviceAccountJSON string, logger *zap.Logger) (*LogStore, error) {
	creds := []byte(serviceAccountJSON)

	var sa struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(creds, &sa); err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	if sa.ProjectID == "" {
		return nil, fmt.Errorf("service account has no project_id")
	}

	client, err := cloudfirestore.NewClient(ctx, sa.ProjectID, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}

	return &LogStore{client: client, logger: logger}, nil
}

// Append writes one exchange record and returns the auto-assigned
// document ID. The record's Timestamp field is replaced by the server
// timestamp on write.
func (s *LogStore) Append(ctx context.Context, agentID string, rec *domain.ExchangeRecord) (string, error) {
	ref, _, err := s.logs(agentID).Add(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("append log record: %w", err)
	}
	return ref.ID, nil
}

// ListRecent queries up to limit records for the agent, newest first.
func (s *LogStore) ListRecent(ctx context.Context, agentID string, limit int) ([]domain.StoredExchange, error) {
	iter := s.logs(agentID).
		OrderBy(timestampField, cloudfirestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var out []domain.StoredExchange
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query log records: %w", err)
		}

		var rec domain.ExchangeRecord
		if err := doc.DataTo(&rec); err != nil {
			// A malformed document should not take the whole listing down.
			s.logger.Warn("skipping undecodable log record",
				zap.String("agent_id", agentID),
				zap.String("doc_id", doc.Ref.ID),
				zap.Error(err),
			)
			continue
		}

		out = append(out, domain.StoredExchange{ID: doc.Ref.ID, Record: rec})
	}
	return out, nil
}

// Close releases the underlying client.
func (s *LogStore) Close() error {
	return s.client.Close()
}

func (s *LogStore) logs(agentID string) *cloudfirestore.CollectionRef {
	return s.client.Collection(agentsCollection).Doc(agentID).Collection(logsCollection)
}
