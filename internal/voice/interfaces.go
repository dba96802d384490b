package voice

import (
	"context"

	"github.com/CatiaMachado997/EthicompanionV2/internal/audio"
)

// Transcript is the result of a speech-to-text pass over one audio payload.
type Transcript struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	DurationMS int64   `json:"duration_ms"`
}

// Transcriber converts an audio payload into text. Implementations own any
// network calls; callers bound them with the context.
type Transcriber interface {
	Transcribe(ctx context.Context, in audio.Input) (Transcript, error)
}
