package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
)

const (
	// collectionName is the conversation collection provisioned by EnsureSchema.
	collectionName = "ConversationMemory"

	// sessionFilterSlack is how many extra hits a search fetches so that
	// dropping the current session's own documents can still fill k results.
	sessionFilterSlack = 5

	// DefaultMinSimilarity is the relevance floor a match must meet.
	DefaultMinSimilarity = 0.7
)

// sharedDB is the process-wide chromem handle. Connection reuse across
// managers is allowed, but the first open must be single-flight.
var sharedDB struct {
	once sync.Once
	db   *chromem.DB
	err  error
}

// OpenSharedDB opens the process-wide chromem database exactly once;
// concurrent first callers share one initialization. An empty path selects a
// non-persistent in-memory database.
func OpenSharedDB(path string) (*chromem.DB, error) {
	sharedDB.once.Do(func() {
		if strings.TrimSpace(path) == "" {
			sharedDB.db = chromem.NewDB()
			return
		}
		sharedDB.db, sharedDB.err = chromem.NewPersistentDB(path, false)
	})
	return sharedDB.db, sharedDB.err
}

// ChromemStore keeps embedded conversation documents in chromem-go, an
// embedded pure-Go vector database. Results carry cosine similarity scores.
type ChromemStore struct {
	db            *chromem.DB
	embedder      Embedder
	minSimilarity float32

	mu  sync.Mutex
	col *chromem.Collection

	// embedCache memoizes text -> vector so repeated queries and re-stored
	// turns skip the embedder.
	embedCache *ristretto.Cache
}

func NewChromemStore(db *chromem.DB, embedder Embedder, minSimilarity float32) (*ChromemStore, error) {
	if db == nil {
		return nil, fmt.Errorf("nil chromem db")
	}
	if embedder == nil {
		return nil, fmt.Errorf("nil embedder")
	}
	if minSimilarity <= 0 {
		minSimilarity = DefaultMinSimilarity
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 14,
		MaxCost:     4 << 20, // ~4MiB of cached vectors
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("init embedding cache: %w", err)
	}

	return &ChromemStore{
		db:            db,
		embedder:      embedder,
		minSimilarity: minSimilarity,
		embedCache:    cache,
	}, nil
}

// EnsureSchema idempotently provisions the conversation collection. Safe
// under concurrent and repeated invocation; an existing collection is reused,
// never surfaced as an error.
func (s *ChromemStore) EnsureSchema(ctx context.Context) error {
	_ = ctx // chromem provisions locally, no network round trip
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked()
}

func (s *ChromemStore) ensureLocked() error {
	if s.col != nil {
		return nil
	}
	// The embedding function stays nil: documents and queries always carry
	// explicit vectors from the injected embedder.
	col, err := s.db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return storageErr(KindSchema, "ensure conversation collection", err)
	}
	s.col = col
	return nil
}

func (s *ChromemStore) collection() (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLocked(); err != nil {
		return nil, err
	}
	return s.col, nil
}

// Upsert embeds the combined text and persists the document with its metadata.
func (s *ChromemStore) Upsert(ctx context.Context, doc Document) (string, error) {
	col, err := s.collection()
	if err != nil {
		return "", err
	}

	vec, err := s.embed(ctx, doc.CombinedText())
	if err != nil {
		return "", storageErr(KindWrite, "embed document", err)
	}

	id := uuid.NewString()
	err = col.AddDocument(ctx, chromem.Document{
		ID:        id,
		Content:   doc.CombinedText(),
		Embedding: vec,
		Metadata: map[string]string{
			"session_id":        doc.SessionID,
			"timestamp":         doc.Timestamp.UTC().Format(time.RFC3339),
			"user_message":      doc.UserMessage,
			"assistant_message": doc.AssistantMessage,
		},
	})
	if err != nil {
		return "", storageErr(KindWrite, "add document", err)
	}
	return id, nil
}

// SearchSimilar returns up to k documents ranked by similarity. Documents
// from excludeSessionID are dropped: the current session's own turns are
// already covered by the episodic store, re-surfacing them is redundant.
// Matches below the relevance floor are dropped even if fewer than k remain.
func (s *ChromemStore) SearchSimilar(ctx context.Context, query string, k int, excludeSessionID string) ([]RetrievedMemory, error) {
	if k <= 0 {
		return nil, nil
	}
	col, err := s.collection()
	if err != nil {
		return nil, err
	}

	vec, err := s.embed(ctx, query)
	if err != nil {
		return nil, storageErr(KindQuery, "embed query", err)
	}

	// chromem rejects result counts beyond the collection size, so
	// over-fetch for the session filter but clamp to what exists.
	fetch := k + sessionFilterSlack
	if total := col.Count(); fetch > total {
		fetch = total
	}
	if fetch == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, vec, fetch, nil, nil)
	if err != nil {
		return nil, storageErr(KindQuery, "query similar documents", err)
	}

	out := make([]RetrievedMemory, 0, k)
	for _, r := range results {
		if r.Similarity < s.minSimilarity {
			// Results arrive ranked best-first; everything after is weaker.
			break
		}
		if excludeSessionID != "" && r.Metadata["session_id"] == excludeSessionID {
			continue
		}
		ts, _ := time.Parse(time.RFC3339, r.Metadata["timestamp"])
		out = append(out, RetrievedMemory{
			Document: Document{
				SessionID:        r.Metadata["session_id"],
				UserMessage:      r.Metadata["user_message"],
				AssistantMessage: r.Metadata["assistant_message"],
				Timestamp:        ts,
			},
			Similarity: r.Similarity,
		})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// CountAll reports the collection size. Diagnostic only.
func (s *ChromemStore) CountAll(ctx context.Context) (int64, error) {
	_ = ctx
	col, err := s.collection()
	if err != nil {
		return 0, err
	}
	return int64(col.Count()), nil
}

func (s *ChromemStore) Close() error {
	if s.embedCache != nil {
		s.embedCache.Close()
	}
	return nil
}

func (s *ChromemStore) embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := s.embedCache.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.embedCache.Set(text, vec, int64(len(vec)*4))
	return vec, nil
}
