package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/echolabs/echo-support-go/internal/domain"
	"github.com/echolabs/echo-support-go/internal/handler"
	"github.com/echolabs/echo-support-go/internal/infra/llm"
	"github.com/echolabs/echo-support-go/internal/infra/observability"
	"github.com/echolabs/echo-support-go/internal/infra/resilience"
	"github.com/echolabs/echo-support-go/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// memoryLogStore is an in-memory stand-in for the Firestore adapter:
// auto-assigned document IDs, server-side timestamps, newest-first reads.
type memoryLogStore struct {
	mu      sync.Mutex
	records []domain.StoredExchange
}

func (m *memoryLogStore) Append(_ context.Context, _ string, rec *domain.ExchangeRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *rec
	stored.Timestamp = time.Now().UTC()
	id := uuid.NewString()
	m.records = append(m.records, domain.StoredExchange{ID: id, Record: stored})
	return id, nil
}

func (m *memoryLogStore) ListRecent(_ context.Context, agentID string, limit int) ([]domain.StoredExchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.StoredExchange
	for _, r := range m.records {
		if r.Record.AgentID == agentID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Record.Timestamp.After(out[j].Record.Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newCompletionServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": reply}},
			},
			"usage": map[string]int{
				"prompt_tokens":     640,
				"completion_tokens": 24,
				"total_tokens":      664,
			},
		})
	}))
}

func newStack(completionURL string, store *memoryLogStore) http.Handler {
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cb := resilience.NewCircuitBreaker("test-completion")
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	httpClient := &http.Client{Timeout: 5 * time.Second}

	completions := llm.NewClient(httpClient, completionURL, "test-key", cb, cfg)

	svc := service.NewSupport(completions, store, service.Options{
		Model:     "gemini-2.5-flash",
		AgentID:   "echo-support",
		ListLimit: 100,
	}, metrics, logger)

	return handler.NewRouter(svc, metrics, logger)
}

// TestIntegration_SupportFlow exercises the full exchange: POST the
// message, get the cleaned reply and intent back, then read the
// persisted record through the logs endpoint.
func TestIntegration_SupportFlow(t *testing.T) {
	completionServer := newCompletionServer(t, "Your invoice is attached. <intent=bills>")
	defer completionServer.Close()

	store := &memoryLogStore{}
	router := newStack(completionServer.URL, store)

	body, _ := json.Marshal(domain.SupportRequest{
		Message: "Where is my invoice?",
		User:    &domain.UserProfile{ID: "u-42", Name: "Sara"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/support", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var resp domain.SupportResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Reply != "Your invoice is attached." {
		t.Errorf("reply = %q, want marker stripped", resp.Reply)
	}
	if resp.Intent != "bills" {
		t.Errorf("intent = %q, want bills", resp.Intent)
	}

	// --- Read it back through the logs endpoint ---
	logsReq := httptest.NewRequest(http.MethodGet, "/api/logs/echo-support", nil)
	logsRec := httptest.NewRecorder()
	router.ServeHTTP(logsRec, logsReq)

	if logsRec.Code != http.StatusOK {
		t.Fatalf("logs: expected 200, got %d. Body: %s", logsRec.Code, logsRec.Body.String())
	}

	var entries []domain.LogEntry
	if err := json.NewDecoder(logsRec.Body).Decode(&entries); err != nil {
		t.Fatalf("failed to decode logs: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.ID == "" {
		t.Error("expected a non-empty document ID")
	}
	if entry.Timestamp == nil {
		t.Error("expected a server-assigned timestamp")
	}
	if entry.Question != "Where is my invoice?" || entry.Answer != "Your invoice is attached." {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Category != "bills" {
		t.Errorf("category = %q, want bills", entry.Category)
	}
	if entry.UserID != "u-42" || entry.UserName != "Sara" {
		t.Errorf("user fields = %q/%q", entry.UserID, entry.UserName)
	}
	if entry.AgentID != "echo-support" {
		t.Errorf("agent_id = %q", entry.AgentID)
	}
}

// TestIntegration_LogsNewestFirst posts several exchanges and checks the
// listing order.
func TestIntegration_LogsNewestFirst(t *testing.T) {
	completionServer := newCompletionServer(t, "Noted. <intent=smalltalk>")
	defer completionServer.Close()

	store := &memoryLogStore{}
	router := newStack(completionServer.URL, store)

	questions := []string{"first", "second", "third"}
	for _, q := range questions {
		body, _ := json.Marshal(domain.SupportRequest{Message: q})
		req := httptest.NewRequest(http.MethodPost, "/api/support", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("POST %q: expected 200, got %d", q, rec.Code)
		}
		// Distinct timestamps so ordering is deterministic.
		time.Sleep(2 * time.Millisecond)
	}

	logsReq := httptest.NewRequest(http.MethodGet, "/api/logs/echo-support", nil)
	logsRec := httptest.NewRecorder()
	router.ServeHTTP(logsRec, logsReq)

	var entries []domain.LogEntry
	if err := json.NewDecoder(logsRec.Body).Decode(&entries); err != nil {
		t.Fatalf("failed to decode logs: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []string{"third", "second", "first"} {
		if entries[i].Question != want {
			t.Errorf("entries[%d].Question = %q, want %q", i, entries[i].Question, want)
		}
	}
}

// TestIntegration_ProviderDown: the provider is unreachable, the
// support endpoint returns the generic failure body, and nothing is
// persisted.
func TestIntegration_ProviderDown(t *testing.T) {
	completionServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer completionServer.Close()

	store := &memoryLogStore{}
	router := newStack(completionServer.URL, store)

	body, _ := json.Marshal(domain.SupportRequest{Message: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/support", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	var respBody map[string]string
	json.NewDecoder(rec.Body).Decode(&respBody)
	if respBody["reply"] != "Something went wrong on the server." {
		t.Errorf("reply = %q", respBody["reply"])
	}
	if len(store.records) != 0 {
		t.Errorf("expected no persisted records, got %d", len(store.records))
	}
}

// TestIntegration_AgentScoping: logs for one agent never leak into
// another agent's listing.
func TestIntegration_AgentScoping(t *testing.T) {
	completionServer := newCompletionServer(t, "Sure. <intent=course_info>")
	defer completionServer.Close()

	store := &memoryLogStore{}
	router := newStack(completionServer.URL, store)

	body, _ := json.Marshal(domain.SupportRequest{Message: "what courses do you offer?"})
	req := httptest.NewRequest(http.MethodPost, "/api/support", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	logsReq := httptest.NewRequest(http.MethodGet, "/api/logs/other-agent", nil)
	logsRec := httptest.NewRecorder()
	router.ServeHTTP(logsRec, logsReq)

	if logsRec.Code != http.StatusOK {
		t.Fatalf("logs: expected 200, got %d", logsRec.Code)
	}
	var entries []domain.LogEntry
	json.NewDecoder(logsRec.Body).Decode(&entries)
	if len(entries) != 0 {
		t.Errorf("expected no entries for other-agent, got %d", len(entries))
	}
}
