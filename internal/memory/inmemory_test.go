package memory

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryRecentOrderAndLimit(t *testing.T) {
	s := NewInMemoryStore()
	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		if err := s.Append(context.Background(), "s1", "q", "a", ts); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := s.Recent(context.Background(), "s1", 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("Recent(2 turns) = %d rows, want 4", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.Before(got[i-1].Timestamp) {
			t.Fatalf("rows out of chronological order at index %d", i)
		}
	}
	if !got[0].Timestamp.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("limit must keep the most recent turns, first row at %v", got[0].Timestamp)
	}
}

func TestInMemoryRecentUnknownSession(t *testing.T) {
	s := NewInMemoryStore()
	got, err := s.Recent(context.Background(), "nope", 5)
	if err != nil {
		t.Fatalf("Recent() on unknown session error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Recent() on unknown session = %d rows, want 0", len(got))
	}
}

func TestInMemoryCleanupByAge(t *testing.T) {
	s := NewInMemoryStore()
	old := time.Now().UTC().Add(-48 * time.Hour)
	fresh := time.Now().UTC()
	s.Append(context.Background(), "s1", "old q", "old a", old)
	s.Append(context.Background(), "s1", "new q", "new a", fresh)

	deleted, err := s.Cleanup(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if deleted != 2 {
		t.Fatalf("Cleanup() deleted %d rows, want 2", deleted)
	}

	got, _ := s.Recent(context.Background(), "s1", 5)
	if len(got) != 2 {
		t.Fatalf("fresh turn must survive cleanup, have %d rows", len(got))
	}
	for _, m := range got {
		if m.Timestamp.Before(time.Now().UTC().Add(-24 * time.Hour)) {
			t.Fatalf("expired row survived cleanup: %+v", m)
		}
	}
}

func TestInMemorySessionStats(t *testing.T) {
	s := NewInMemoryStore()
	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	s.Append(context.Background(), "s1", "q1", "a1", base)
	s.Append(context.Background(), "s1", "q2", "a2", base.Add(time.Minute))

	st, err := s.SessionStats(context.Background(), "s1")
	if err != nil {
		t.Fatalf("SessionStats() error = %v", err)
	}
	if st.TotalMessages != 4 || st.UserMessages != 2 || st.AssistantMessages != 2 {
		t.Fatalf("unexpected counters: %+v", st)
	}
	if st.ConversationPairs != 2 {
		t.Fatalf("ConversationPairs = %d, want 2", st.ConversationPairs)
	}
	if !st.FirstMessageAt.Equal(base) || !st.LastMessageAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("timespan wrong: %+v", st)
	}
}
