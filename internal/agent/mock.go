package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockResponder echoes a canned reply and remembers the prompts it saw. It
// keeps the server usable without an API key.
type MockResponder struct {
	mu      sync.Mutex
	Reply   string
	Err     error
	Prompts []string
}

func NewMockResponder() *MockResponder {
	return &MockResponder{Reply: "I heard you."}
}

func (r *MockResponder) Respond(_ context.Context, prompt string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Prompts = append(r.Prompts, prompt)
	if r.Err != nil {
		return "", r.Err
	}
	return r.Reply, nil
}

func (r *MockResponder) LastPrompt() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Prompts) == 0 {
		return ""
	}
	return r.Prompts[len(r.Prompts)-1]
}

// MockSearcher fabricates deterministic results for a query.
type MockSearcher struct{}

func (MockSearcher) Search(_ context.Context, query string, maxResults int) ([]SearchResult, error) {
	if maxResults <= 0 {
		maxResults = 3
	}
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(query)), " ", "-")
	results := make([]SearchResult, 0, maxResults)
	for i := 0; i < maxResults; i++ {
		results = append(results, SearchResult{
			Title:   fmt.Sprintf("Result %d for %s", i+1, query),
			URL:     fmt.Sprintf("https://example.com/%s/%d", slug, i+1),
			Snippet: fmt.Sprintf("Simulated snippet %d about %s.", i+1, query),
		})
	}
	return results, nil
}
