package audio

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestInputBytesRoundTrip(t *testing.T) {
	in := FromBytes([]byte("abc"))
	got, err := in.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	if string(got) != "abc" {
		t.Fatalf("Bytes() = %q, want %q", got, "abc")
	}

	read, err := io.ReadAll(in.Reader())
	if err != nil {
		t.Fatalf("ReadAll error = %v", err)
	}
	if string(read) != "abc" {
		t.Fatalf("Reader() yielded %q, want %q", read, "abc")
	}
}

func TestInputStreamDrains(t *testing.T) {
	in := FromStream(strings.NewReader("streamed"))
	got, err := in.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	if string(got) != "streamed" {
		t.Fatalf("Bytes() = %q, want %q", got, "streamed")
	}
}

func TestInputStreamRejectsOversize(t *testing.T) {
	in := FromStream(io.LimitReader(zeroReader{}, MaxInputBytes+2))
	if _, err := in.Bytes(); err != ErrInputTooLarge {
		t.Fatalf("Bytes() error = %v, want ErrInputTooLarge", err)
	}
}

func TestInputZeroValue(t *testing.T) {
	var in Input
	if !in.IsZero() {
		t.Fatalf("zero Input should report IsZero")
	}
	got, err := in.Bytes()
	if err != nil || len(got) != 0 {
		t.Fatalf("zero Input Bytes() = %v, %v", got, err)
	}
}

func TestEncodeWAVPCM16LEHeader(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	wav, err := EncodeWAVPCM16LE(pcm, 16000)
	if err != nil {
		t.Fatalf("EncodeWAVPCM16LE() error = %v", err)
	}
	if len(wav) != 44+len(pcm) {
		t.Fatalf("wav length = %d, want %d", len(wav), 44+len(pcm))
	}

	format, err := SniffWAV(wav)
	if err != nil {
		t.Fatalf("SniffWAV() error = %v", err)
	}
	if format.AudioFormat != 1 || format.NumChannels != 1 {
		t.Fatalf("unexpected format: %+v", format)
	}
	if format.SampleRate != 16000 || format.BitsPerSample != 16 {
		t.Fatalf("unexpected format: %+v", format)
	}
	if !bytes.Equal(wav[44:], pcm) {
		t.Fatalf("data chunk does not match input PCM")
	}
}

func TestSniffWAVRejectsGarbage(t *testing.T) {
	if _, err := SniffWAV([]byte("not a wav file, just text")); err != ErrNotWAV {
		t.Fatalf("SniffWAV() error = %v, want ErrNotWAV", err)
	}
	if _, err := SniffWAV(nil); err != ErrNotWAV {
		t.Fatalf("SniffWAV(nil) error = %v, want ErrNotWAV", err)
	}
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
