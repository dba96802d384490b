package llm

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/CatiaMachado997/EthicompanionV2/internal/agent"
)

func TestNewClaudeValidates(t *testing.T) {
	if _, err := NewClaude(Config{Model: "m"}, nil); err == nil {
		t.Fatalf("NewClaude should reject a missing API key")
	}
	if _, err := NewClaude(Config{APIKey: "k"}, nil); err == nil {
		t.Fatalf("NewClaude should reject a missing model")
	}

	c, err := NewClaude(Config{APIKey: "k", Model: "m"}, nil)
	if err != nil {
		t.Fatalf("NewClaude() error = %v", err)
	}
	if c.maxTokens != 1024 {
		t.Fatalf("maxTokens = %d, want default 1024", c.maxTokens)
	}
}

func TestRunToolWebSearch(t *testing.T) {
	c, err := NewClaude(Config{APIKey: "k", Model: "m"}, agent.MockSearcher{})
	if err != nil {
		t.Fatalf("NewClaude() error = %v", err)
	}

	out, isErr := c.runTool(context.Background(), "web_search", json.RawMessage(`{"query":"stoicism"}`))
	if isErr {
		t.Fatalf("runTool reported error: %s", out)
	}
	var results []agent.SearchResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("tool output is not JSON results: %v", err)
	}
	if len(results) == 0 {
		t.Fatalf("expected at least one search result")
	}
}

func TestRunToolRejectsBadInput(t *testing.T) {
	c, err := NewClaude(Config{APIKey: "k", Model: "m"}, agent.MockSearcher{})
	if err != nil {
		t.Fatalf("NewClaude() error = %v", err)
	}

	if out, isErr := c.runTool(context.Background(), "web_search", json.RawMessage(`{"query":""}`)); !isErr {
		t.Fatalf("empty query should be an error, got %q", out)
	}
	if out, isErr := c.runTool(context.Background(), "other_tool", json.RawMessage(`{}`)); !isErr || !strings.Contains(out, "unknown tool") {
		t.Fatalf("unknown tool should be an error, got %q", out)
	}
}
