package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/CatiaMachado997/EthicompanionV2/internal/agent"
)

const systemPrompt = `You are Ethic Companion, an assistant focused on ethics, philosophy, and personal growth.

Your mission is to help people:
1. Reflect on complex ethical questions
2. Develop deeper critical thinking
3. Navigate moral dilemmas with wisdom
4. Grow their self-knowledge

Personality traits:
- Empathetic and understanding
- Inquisitive without being judgmental
- Wise but humble
- Practical in suggestions
- Respectful of every perspective

Use the web_search tool when a question needs current or specific information. Keep a warm, approachable tone.`

// maxToolRounds bounds the tool loop so a misbehaving exchange cannot spin.
const maxToolRounds = 3

const maxSearchResults = 5

type Config struct {
	APIKey    string
	Model     string
	MaxTokens int64
}

// Claude answers prompts through the Anthropic Messages API, with an
// optional web search tool round.
type Claude struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	searcher  agent.WebSearcher
}

func NewClaude(cfg Config, searcher agent.WebSearcher) (*Claude, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llm: missing API key")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm: missing model")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &Claude{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     anthropic.Model(cfg.Model),
		maxTokens: cfg.MaxTokens,
		searcher:  searcher,
	}, nil
}

func (c *Claude) Respond(ctx context.Context, prompt string) (string, error) {
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
	}

	var tools []anthropic.ToolUnionParam
	if c.searcher != nil {
		tools = []anthropic.ToolUnionParam{webSearchTool()}
	}

	var lastText string
	for round := 0; round < maxToolRounds; round++ {
		params := anthropic.MessageNewParams{
			Model:     c.model,
			MaxTokens: c.maxTokens,
			Messages:  messages,
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
		}
		if len(tools) > 0 {
			params.Tools = tools
		}

		resp, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("llm: messages.new: %w", err)
		}

		var text strings.Builder
		var toolResults []anthropic.ContentBlockParamUnion
		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				text.WriteString(block.Text)
			case "tool_use":
				result, isErr := c.runTool(ctx, block.Name, block.Input)
				toolResults = append(toolResults, anthropic.NewToolResultBlock(block.ID, result, isErr))
			}
		}
		if text.Len() > 0 {
			lastText = text.String()
		}

		if len(toolResults) == 0 {
			return lastText, nil
		}

		messages = append(messages, resp.ToParam())
		messages = append(messages, anthropic.NewUserMessage(toolResults...))
	}

	if lastText == "" {
		return "", fmt.Errorf("llm: no text response after %d rounds", maxToolRounds)
	}
	return lastText, nil
}

func (c *Claude) runTool(ctx context.Context, name string, input json.RawMessage) (string, bool) {
	if name != "web_search" {
		return fmt.Sprintf("unknown tool: %s", name), true
	}
	if c.searcher == nil {
		return "web search is not configured", true
	}

	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return fmt.Sprintf("invalid tool input JSON: %s", err), true
	}
	if strings.TrimSpace(args.Query) == "" {
		return "query must not be empty", true
	}

	results, err := c.searcher.Search(ctx, args.Query, maxSearchResults)
	if err != nil {
		return fmt.Sprintf("search failed: %s", err), true
	}

	encoded, err := json.Marshal(results)
	if err != nil {
		return fmt.Sprintf("encode results: %s", err), true
	}
	return string(encoded), false
}

func webSearchTool() anthropic.ToolUnionParam {
	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        "web_search",
			Description: anthropic.String("Search the web for current or specific information. Returns a JSON array of results with title, url, and snippet."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "The search query",
					},
				},
				Required: []string{"query"},
			},
		},
	}
}
