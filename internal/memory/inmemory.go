package memory

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore is a simple in-process episodic store for local/dev use.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Message
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string][]Message)}
}

func (s *InMemoryStore) Append(_ context.Context, sessionID, userMessage, assistantMessage string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID],
		Message{Role: RoleUser, Text: userMessage, Timestamp: ts},
		Message{Role: RoleAssistant, Text: assistantMessage, Timestamp: ts},
	)
	return nil
}

func (s *InMemoryStore) Recent(_ context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 5
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.sessions[sessionID]
	if len(arr) == 0 {
		return nil, nil
	}
	n := limit * 2
	if n > len(arr) {
		n = len(arr)
	}
	out := make([]Message, n)
	copy(out, arr[len(arr)-n:])
	return out, nil
}

func (s *InMemoryStore) Cleanup(_ context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, arr := range s.sessions {
		kept := arr[:0]
		for _, m := range arr {
			if m.Timestamp.Before(cutoff) {
				deleted++
				continue
			}
			kept = append(kept, m)
		}
		if len(kept) == 0 {
			delete(s.sessions, id)
			continue
		}
		s.sessions[id] = kept
	}
	return deleted, nil
}

func (s *InMemoryStore) Stats(_ context.Context) (EpisodicStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st EpisodicStats
	for _, arr := range s.sessions {
		if len(arr) == 0 {
			continue
		}
		st.Sessions++
		st.Messages += int64(len(arr))
		if last := arr[len(arr)-1].Timestamp; last.After(st.LastMessageAt) {
			st.LastMessageAt = last
		}
	}
	return st, nil
}

func (s *InMemoryStore) SessionStats(_ context.Context, sessionID string) (SessionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := SessionStats{SessionID: sessionID}
	arr := s.sessions[sessionID]
	if len(arr) == 0 {
		return st, nil
	}
	st.TotalMessages = int64(len(arr))
	st.FirstMessageAt = arr[0].Timestamp
	st.LastMessageAt = arr[len(arr)-1].Timestamp
	for _, m := range arr {
		switch m.Role {
		case RoleUser:
			st.UserMessages++
		case RoleAssistant:
			st.AssistantMessages++
		}
	}
	st.ConversationPairs = st.UserMessages
	if st.AssistantMessages < st.ConversationPairs {
		st.ConversationPairs = st.AssistantMessages
	}
	return st, nil
}

func (s *InMemoryStore) Close() error { return nil }
