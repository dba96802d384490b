package memory

import (
	"strings"
	"testing"
	"time"
)

func TestFormatContextBothEmpty(t *testing.T) {
	got := FormatContext(nil, nil)
	if got != NoContextSentinel {
		t.Fatalf("FormatContext(nil, nil) = %q, want sentinel %q", got, NoContextSentinel)
	}
	if got == "" {
		t.Fatalf("sentinel must not be the empty string")
	}
}

func TestFormatContextStableShape(t *testing.T) {
	ts := time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC)
	recent := []Message{
		{Role: RoleUser, Text: "What is the golden rule?", Timestamp: ts},
		{Role: RoleAssistant, Text: "Treat others as you would want to be treated.", Timestamp: ts},
	}

	got := FormatContext(recent, nil)

	recentIdx := strings.Index(got, recentHeader)
	memIdx := strings.Index(got, memoriesHeader)
	if recentIdx < 0 || memIdx < 0 {
		t.Fatalf("both section headers must always print, got:\n%s", got)
	}
	if recentIdx > memIdx {
		t.Fatalf("recent history must precede relevant memories")
	}

	answerIdx := strings.Index(got, "Treat others as you would want to be treated.")
	if answerIdx < 0 || answerIdx > memIdx {
		t.Fatalf("assistant reply must appear under the recent history section:\n%s", got)
	}
	if !strings.Contains(got, "14:30 User: What is the golden rule?") {
		t.Fatalf("recent entries should carry HH:MM and role label:\n%s", got)
	}
	if !strings.Contains(got, memoriesEmptyLine) {
		t.Fatalf("empty memories section must print its placeholder:\n%s", got)
	}
}

func TestFormatContextMemoriesRankedAndLabeled(t *testing.T) {
	memories := []RetrievedMemory{
		{Document: Document{SessionID: "s1", UserMessage: "my favorite color is blue", AssistantMessage: "Noted!"}, Similarity: 0.91},
		{Document: Document{SessionID: "s3", UserMessage: "I like hiking", AssistantMessage: "Great hobby."}, Similarity: 0.81},
	}

	got := FormatContext(nil, memories)

	if !strings.Contains(got, "1. (session s1) User: my favorite color is blue | Assistant: Noted!") {
		t.Fatalf("memories must be 1-indexed and labeled with their session:\n%s", got)
	}
	if !strings.Contains(got, "2. (session s3)") {
		t.Fatalf("second memory missing or misnumbered:\n%s", got)
	}
	if !strings.Contains(got, recentEmptyLine) {
		t.Fatalf("empty recent section must print its placeholder:\n%s", got)
	}
}

func TestFormatContextDeterministic(t *testing.T) {
	ts := time.Date(2025, 3, 1, 9, 5, 0, 0, time.UTC)
	recent := []Message{{Role: RoleUser, Text: "hi", Timestamp: ts}}
	memories := []RetrievedMemory{{Document: Document{SessionID: "s9", UserMessage: "a", AssistantMessage: "b"}, Similarity: 0.8}}

	first := FormatContext(recent, memories)
	for i := 0; i < 10; i++ {
		if got := FormatContext(recent, memories); got != first {
			t.Fatalf("output must be byte-identical across runs")
		}
	}
}
