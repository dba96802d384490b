package voice

import (
	"bytes"
	"context"
	"testing"

	"github.com/CatiaMachado997/EthicompanionV2/internal/audio"
)

func TestMockTranscriberAcceptsWAV(t *testing.T) {
	pcm := make([]byte, 32000) // one second at 16kHz PCM16 mono
	wav, err := audio.EncodeWAVPCM16LE(pcm, 16000)
	if err != nil {
		t.Fatalf("EncodeWAVPCM16LE() error = %v", err)
	}

	tr := NewMockTranscriber()
	got, err := tr.Transcribe(context.Background(), audio.FromBytes(wav))
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got.Text == "" {
		t.Fatalf("transcript text should not be empty")
	}
	if got.DurationMS != 1000 {
		t.Fatalf("DurationMS = %d, want 1000", got.DurationMS)
	}
	if tr.Calls() != 1 {
		t.Fatalf("Calls() = %d, want 1", tr.Calls())
	}
}

func TestMockTranscriberRejectsNonWAV(t *testing.T) {
	tr := NewMockTranscriber()
	_, err := tr.Transcribe(context.Background(), audio.FromStream(bytes.NewReader([]byte("plain text, not audio at all"))))
	if err == nil {
		t.Fatalf("Transcribe() should reject non-WAV payloads")
	}
}
