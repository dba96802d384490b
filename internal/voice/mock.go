package voice

import (
	"context"
	"fmt"
	"sync"

	"github.com/CatiaMachado997/EthicompanionV2/internal/audio"
)

// MockTranscriber is a local fallback used when no speech provider is
// configured. It validates the WAV header and fabricates a transcript so the
// rest of the pipeline can be exercised end to end.
type MockTranscriber struct {
	mu    sync.Mutex
	calls int
}

func NewMockTranscriber() *MockTranscriber { return &MockTranscriber{} }

func (t *MockTranscriber) Transcribe(ctx context.Context, in audio.Input) (Transcript, error) {
	if err := ctx.Err(); err != nil {
		return Transcript{}, err
	}
	data, err := in.Bytes()
	if err != nil {
		return Transcript{}, err
	}

	format, err := audio.SniffWAV(data)
	if err != nil {
		return Transcript{}, fmt.Errorf("transcribe: %w", err)
	}

	t.mu.Lock()
	t.calls++
	n := t.calls
	t.mu.Unlock()

	var durationMS int64
	bytesPerSecond := int64(format.SampleRate) * int64(format.NumChannels) * int64(format.BitsPerSample) / 8
	if bytesPerSecond > 0 && len(data) > 44 {
		durationMS = int64(len(data)-44) * 1000 / bytesPerSecond
	}

	return Transcript{
		Text:       fmt.Sprintf("simulated voice input %d", n),
		Confidence: 0.7,
		DurationMS: durationMS,
	}, nil
}

// Calls reports how many transcriptions ran. Used by tests.
func (t *MockTranscriber) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
