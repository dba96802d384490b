package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/CatiaMachado997/EthicompanionV2/internal/memory"
)

// FallbackReply is returned when the responder fails; the turn is still
// recorded so the failure stays visible in the history.
const FallbackReply = "Sorry, I had trouble processing your message. Could you try again?"

// Responder produces an assistant reply for a fully assembled prompt.
type Responder interface {
	Respond(ctx context.Context, prompt string) (string, error)
}

// SearchResult is one hit from a web search collaborator.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// WebSearcher lets the responder ground answers in fresh web results.
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// ContextMemory is the slice of the memory manager the agent needs.
type ContextMemory interface {
	GetContextMode(ctx context.Context, mode memory.ContextMode, sessionID, query string, recentCount, semanticCount int) string
	AddTurn(ctx context.Context, sessionID, userMessage, assistantMessage string) bool
}

type Options struct {
	RecentLimit   int
	SemanticLimit int
}

type Agent struct {
	mem       ContextMemory
	responder Responder
	opts      Options
}

func New(mem ContextMemory, responder Responder, opts Options) *Agent {
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 5
	}
	if opts.SemanticLimit <= 0 {
		opts.SemanticLimit = 3
	}
	return &Agent{mem: mem, responder: responder, opts: opts}
}

// Reply is the outcome of one chat turn.
type Reply struct {
	Response    string
	ContextUsed bool
	Saved       bool
}

// HandleMessage runs one turn: fetch context, build the prompt, ask the
// responder, and record the exchange. A responder failure degrades to
// FallbackReply instead of failing the turn.
func (a *Agent) HandleMessage(ctx context.Context, sessionID, message string, mode memory.ContextMode) (Reply, error) {
	if strings.TrimSpace(message) == "" {
		return Reply{}, fmt.Errorf("agent: empty message")
	}

	contextBlock := ""
	if mode != memory.ModeNone {
		contextBlock = a.mem.GetContextMode(ctx, mode, sessionID, message, a.opts.RecentLimit, a.opts.SemanticLimit)
	}

	prompt := BuildPrompt(message, contextBlock, mode)
	contextUsed := prompt != message

	response, err := a.responder.Respond(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return Reply{}, ctx.Err()
		}
		log.Printf("agent: responder failed for session %s: %v", sessionID, err)
		response = FallbackReply
	}
	if strings.TrimSpace(response) == "" {
		log.Printf("agent: empty response for session %s", sessionID)
		response = FallbackReply
	}

	saved := a.mem.AddTurn(ctx, sessionID, message, response)

	return Reply{Response: response, ContextUsed: contextUsed, Saved: saved}, nil
}

// BuildPrompt merges the formatted memory context with the current message.
// The message passes through untouched when the mode disables context or the
// context block carries nothing useful.
func BuildPrompt(message, contextBlock string, mode memory.ContextMode) string {
	if mode == memory.ModeNone {
		return message
	}
	trimmed := strings.TrimSpace(contextBlock)
	if trimmed == "" || trimmed == memory.NoContextSentinel {
		return message
	}

	return fmt.Sprintf(`MEMORY CONTEXT:
%s

---

CURRENT USER MESSAGE:
%s

---

INSTRUCTIONS:
- Use the memory context above to answer in a personalized and consistent way
- When the history holds relevant information, refer to it naturally
- Keep continuity with earlier conversations when appropriate
- When no relevant context exists, answer the current message normally`, trimmed, message)
}
