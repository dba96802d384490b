package memory

import (
	"fmt"
	"strings"
)

// Context block layout. Both section headers always print; an empty section
// prints its placeholder line so downstream prompt assembly can rely on a
// stable shape. Identical inputs produce identical bytes.
const (
	recentHeader      = "[Recent Conversation History]"
	memoriesHeader    = "[Relevant Long-Term Memories]"
	recentEmptyLine   = "(no recent messages in this session)"
	memoriesEmptyLine = "(no relevant memories found)"

	// NoContextSentinel is returned when both memory branches came back
	// empty, whether genuinely or because both stores degraded. It is
	// distinct from a formatted block with empty sections.
	NoContextSentinel = "[No previous context available]"
)

// FormatContext renders retrieved episodic and semantic results into one
// deterministic text block. Pure; no I/O, no clock.
func FormatContext(recent []Message, memories []RetrievedMemory) string {
	if len(recent) == 0 && len(memories) == 0 {
		return NoContextSentinel
	}

	var b strings.Builder

	b.WriteString(recentHeader)
	b.WriteByte('\n')
	if len(recent) == 0 {
		b.WriteString(recentEmptyLine)
		b.WriteByte('\n')
	} else {
		for _, m := range recent {
			fmt.Fprintf(&b, "%s %s: %s\n", m.Timestamp.UTC().Format("15:04"), roleLabel(m.Role), m.Text)
		}
	}

	b.WriteByte('\n')
	b.WriteString(memoriesHeader)
	b.WriteByte('\n')
	if len(memories) == 0 {
		b.WriteString(memoriesEmptyLine)
		b.WriteByte('\n')
	} else {
		for i, mem := range memories {
			fmt.Fprintf(&b, "%d. (session %s) User: %s | Assistant: %s\n",
				i+1, mem.SessionID, mem.UserMessage, mem.AssistantMessage)
		}
	}

	return b.String()
}

func roleLabel(r Role) string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}
