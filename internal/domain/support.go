// Package domain contains the core types shared across the relay:
// the support request/response contract, the persisted exchange record,
// and the error taxonomy.
package domain

import "time"

// Message is one entry of the conversation payload sent to the
// completion provider (OpenAI chat-completions wire format).
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserProfile carries the optional, request-scoped user fields.
// Only Name and Preferences are interpolated into the prompt;
// ID and Name are copied into the persisted record.
type UserProfile struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

// SupportRequest is the body of POST /api/support.
type SupportRequest struct {
	Message string       `json:"message"`
	User    *UserProfile `json:"user,omitempty"`
}

// SupportResponse is the success body of POST /api/support.
type SupportResponse struct {
	Reply  string `json:"reply"`
	Intent string `json:"intent"`
}

// CompletionResult is what the completion client returns: the raw
// completion text plus provider-reported token usage.
type CompletionResult struct {
	Text  string
	Usage TokenUsage
}

// TokenUsage mirrors the provider's usage block.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ExchangeRecord is one persisted question/answer/intent tuple.
// The timestamp is assigned by the store server-side; records are
// never mutated or deleted by this service.
type ExchangeRecord struct {
	Timestamp time.Time `firestore:"timestamp,serverTimestamp" json:"timestamp"`
	UserID    string    `firestore:"user_id" json:"user_id"`
	UserName  string    `firestore:"user_name" json:"user_name"`
	Question  string    `firestore:"question" json:"question"`
	Answer    string    `firestore:"answer" json:"answer"`
	Category  string    `firestore:"category" json:"category"`
	AgentID   string    `firestore:"agent_id" json:"agent_id"`
}

// StoredExchange pairs an ExchangeRecord with its store-assigned
// document ID, as returned by log queries.
type StoredExchange struct {
	ID     string
	Record ExchangeRecord
}

// LogEntry is the wire shape of one record on GET /api/logs/{agent_id}.
// Timestamp is RFC3339, or null when the store has not assigned one yet.
type LogEntry struct {
	ID        string  `json:"id"`
	Timestamp *string `json:"timestamp"`
	UserID    string  `json:"user_id"`
	UserName  string  `json:"user_name"`
	Question  string  `json:"question"`
	Answer    string  `json:"answer"`
	Category  string  `json:"category"`
	AgentID   string  `json:"agent_id"`
}

// ServiceHealth describes one dependency on GET /healthz.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LastChecked string `json:"last_checked"`
}

// HealthStatus is the GET /healthz response body.
type HealthStatus struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
}

// SupportMetrics is the aggregate snapshot served by
// GET /api/metrics/support (feeds the dashboard ring chart).
type SupportMetrics struct {
	TotalRequests       int64              `json:"total_requests"`
	ErrorRate           float64            `json:"error_rate"`
	AvgTokensPerRequest float64            `json:"avg_tokens_per_request"`
	IntentCounts        map[string]float64 `json:"intent_counts"`
	Period              string             `json:"period"`
}
