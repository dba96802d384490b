package memory

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Role tags which side of a turn a stored episodic row belongs to.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one episodic row: a single side of a conversation turn.
type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Turn is one user message plus the assistant reply, the atomic unit of
// storage. Immutable once written.
type Turn struct {
	SessionID        string    `json:"session_id"`
	UserMessage      string    `json:"user_message"`
	AssistantMessage string    `json:"assistant_message"`
	Timestamp        time.Time `json:"timestamp"`
}

// Document is the semantic-store representation of a turn. The embedding is
// computed over CombinedText.
type Document struct {
	SessionID        string    `json:"session_id"`
	UserMessage      string    `json:"user_message"`
	AssistantMessage string    `json:"assistant_message"`
	Timestamp        time.Time `json:"timestamp"`
}

// CombinedText renders the turn as a single document for embedding.
func (d Document) CombinedText() string {
	return fmt.Sprintf("User: %s\nAssistant: %s", d.UserMessage, d.AssistantMessage)
}

// RetrievedMemory is a semantic search hit together with its similarity score.
type RetrievedMemory struct {
	Document
	Similarity float32 `json:"similarity"`
}

// ContextMode selects which memory branches a context request fetches.
// Unknown modes are rejected at the boundary, not silently defaulted.
type ContextMode string

const (
	ModeHybrid       ContextMode = "hybrid"
	ModeRecentOnly   ContextMode = "recent_only"
	ModeSemanticOnly ContextMode = "semantic_only"
	ModeNone         ContextMode = "none"
)

// ParseContextMode maps a request string onto the closed mode set.
// The empty string means hybrid, the default retrieval behavior.
func ParseContextMode(s string) (ContextMode, error) {
	switch ContextMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeHybrid:
		return ModeHybrid, nil
	case ModeRecentOnly:
		return ModeRecentOnly, nil
	case ModeSemanticOnly:
		return ModeSemanticOnly, nil
	case ModeNone:
		return ModeNone, nil
	default:
		return "", fmt.Errorf("invalid context mode: %q (expected hybrid|recent_only|semantic_only|none)", s)
	}
}

// EpisodicStats summarizes the episodic log.
type EpisodicStats struct {
	Messages      int64     `json:"messages"`
	Sessions      int64     `json:"sessions"`
	LastMessageAt time.Time `json:"last_message_at"` // zero when the log is empty
}

// SessionStats summarizes a single session's slice of the episodic log.
type SessionStats struct {
	SessionID         string    `json:"session_id"`
	TotalMessages     int64     `json:"total_messages"`
	UserMessages      int64     `json:"user_messages"`
	AssistantMessages int64     `json:"assistant_messages"`
	FirstMessageAt    time.Time `json:"first_message_at"`
	LastMessageAt     time.Time `json:"last_message_at"`
	ConversationPairs int64     `json:"conversation_pairs"`
}

// Per-store status flags reported by Stats.
const (
	StoreStatusOK    = "ok"
	StoreStatusError = "error"
)

// Overall subsystem status reported by Stats.
const (
	StatusOperational = "operational"
	StatusDegraded    = "degraded"
	StatusError       = "error"
)

// Stats aggregates diagnostics across both stores. A failing store leaves its
// numeric fields at zero and flips its status flag; the call itself never fails.
type Stats struct {
	EpisodicMessages  int64     `json:"episodic_messages"`
	Sessions          int64     `json:"sessions"`
	LastMessageAt     time.Time `json:"last_message_at"`
	SemanticDocuments int64     `json:"semantic_documents"`
	EpisodicStatus    string    `json:"episodic_status"`
	SemanticStatus    string    `json:"semantic_status"`
	Status            string    `json:"status"`
}

// EpisodicStore is the append-only, session-scoped conversation log.
type EpisodicStore interface {
	// Append writes both rows of a turn atomically.
	Append(ctx context.Context, sessionID, userMessage, assistantMessage string, ts time.Time) error
	// Recent returns up to limit turns (2*limit rows) in ascending
	// chronological order. An unknown session yields an empty slice.
	Recent(ctx context.Context, sessionID string, limit int) ([]Message, error)
	// Cleanup deletes rows older than the retention window and reports how
	// many were removed. Maintenance only, never on the request path.
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
	Stats(ctx context.Context) (EpisodicStats, error)
	SessionStats(ctx context.Context, sessionID string) (SessionStats, error)
	Close() error
}

// SemanticStore is the similarity-searchable document index spanning all sessions.
type SemanticStore interface {
	// EnsureSchema idempotently provisions the document collection.
	EnsureSchema(ctx context.Context) error
	// Upsert embeds and persists one document, returning its id.
	Upsert(ctx context.Context, doc Document) (string, error)
	// SearchSimilar returns up to k documents ranked by similarity, skipping
	// anything below the relevance floor and anything from excludeSessionID.
	SearchSimilar(ctx context.Context, query string, k int, excludeSessionID string) ([]RetrievedMemory, error)
	// CountAll is diagnostic only and may be approximate.
	CountAll(ctx context.Context) (int64, error)
	Close() error
}
