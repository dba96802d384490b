package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	chromem "github.com/philippgille/chromem-go"
)

// scriptedEmbedder returns fixed vectors per text so similarity is controllable.
type scriptedEmbedder struct {
	vectors map[string][]float32
}

func (e *scriptedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	// Unscripted text lands orthogonal to everything scripted.
	return []float32{0, 0, 1}, nil
}

func (e *scriptedEmbedder) Dimensions() int { return 3 }

func newTestChromemStore(t *testing.T, embedder Embedder) *ChromemStore {
	t.Helper()
	s, err := NewChromemStore(chromem.NewDB(), embedder, 0.7)
	if err != nil {
		t.Fatalf("NewChromemStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	s := newTestChromemStore(t, NewLocalEmbedder())
	for i := 0; i < 5; i++ {
		if err := s.EnsureSchema(context.Background()); err != nil {
			t.Fatalf("EnsureSchema() call %d error = %v", i+1, err)
		}
	}
	if count, err := s.CountAll(context.Background()); err != nil || count != 0 {
		t.Fatalf("CountAll() = %d, %v; want 0, nil", count, err)
	}
}

func TestEnsureSchemaConcurrent(t *testing.T) {
	s := newTestChromemStore(t, NewLocalEmbedder())
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.EnsureSchema(context.Background())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent EnsureSchema() error = %v", err)
		}
	}
}

func TestUpsertAndCount(t *testing.T) {
	s := newTestChromemStore(t, NewLocalEmbedder())

	id, err := s.Upsert(context.Background(), Document{
		SessionID:        "s1",
		UserMessage:      "hello",
		AssistantMessage: "hi",
		Timestamp:        time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if id == "" {
		t.Fatalf("Upsert() returned empty document id")
	}
	if count, err := s.CountAll(context.Background()); err != nil || count != 1 {
		t.Fatalf("CountAll() = %d, %v; want 1, nil", count, err)
	}
}

func TestSearchSimilarThresholdAndExclusion(t *testing.T) {
	colorDoc := Document{SessionID: "s1", UserMessage: "my favorite color is blue", AssistantMessage: "Noted."}
	sameSessionDoc := Document{SessionID: "s2", UserMessage: "I also like blue", AssistantMessage: "Good choice."}
	offTopicDoc := Document{SessionID: "s3", UserMessage: "the train leaves at nine", AssistantMessage: "Safe travels."}

	emb := &scriptedEmbedder{vectors: map[string][]float32{
		colorDoc.CombinedText():       {1, 0, 0},
		sameSessionDoc.CombinedText(): {0.999, 0.045, 0},
		offTopicDoc.CombinedText():    {0, 1, 0},
		"what is my favorite color":   {0.985, 0.174, 0},
	}}
	s := newTestChromemStore(t, emb)

	ts := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	for _, doc := range []Document{colorDoc, sameSessionDoc, offTopicDoc} {
		doc.Timestamp = ts
		if _, err := s.Upsert(context.Background(), doc); err != nil {
			t.Fatalf("Upsert(%s) error = %v", doc.SessionID, err)
		}
	}

	got, err := s.SearchSimilar(context.Background(), "what is my favorite color", 3, "s2")
	if err != nil {
		t.Fatalf("SearchSimilar() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("SearchSimilar() returned %d results, want 1 (threshold and session filter applied): %+v", len(got), got)
	}
	if got[0].SessionID != "s1" {
		t.Fatalf("result session = %q, want s1", got[0].SessionID)
	}
	if got[0].UserMessage != "my favorite color is blue" {
		t.Fatalf("result user message = %q", got[0].UserMessage)
	}
	if got[0].Similarity < 0.7 {
		t.Fatalf("result similarity %f below threshold", got[0].Similarity)
	}
	if !got[0].Timestamp.Equal(ts) {
		t.Fatalf("result timestamp = %v, want %v", got[0].Timestamp, ts)
	}
}

func TestSearchSimilarEmptyCollection(t *testing.T) {
	s := newTestChromemStore(t, NewLocalEmbedder())
	got, err := s.SearchSimilar(context.Background(), "anything", 3, "s1")
	if err != nil {
		t.Fatalf("SearchSimilar() on empty collection error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("SearchSimilar() on empty collection = %d results, want 0", len(got))
	}
}

func TestOpenSharedDBSingleFlight(t *testing.T) {
	var wg sync.WaitGroup
	dbs := make([]*chromem.DB, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			db, err := OpenSharedDB("")
			if err != nil {
				t.Errorf("OpenSharedDB() error = %v", err)
				return
			}
			dbs[i] = db
		}(i)
	}
	wg.Wait()
	for i := 1; i < len(dbs); i++ {
		if dbs[i] != dbs[0] {
			t.Fatalf("concurrent first use must share one database handle")
		}
	}
}

func TestLocalEmbedderDeterministic(t *testing.T) {
	e := NewLocalEmbedder()
	a, err := e.Embed(context.Background(), "same text")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	b, _ := e.Embed(context.Background(), "same text")
	if len(a) != e.Dimensions() {
		t.Fatalf("embedding length = %d, want %d", len(a), e.Dimensions())
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embeddings for identical text differ at index %d", i)
		}
	}
}
