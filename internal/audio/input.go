package audio

import (
	"bytes"
	"errors"
	"io"
)

// MaxInputBytes caps how much audio a single request may carry.
const MaxInputBytes = 25 << 20

var ErrInputTooLarge = errors.New("audio input exceeds size limit")

type inputKind int

const (
	inputBytes inputKind = iota + 1
	inputStream
)

// Input is a tagged audio payload: either a fully buffered byte slice or a
// streaming reader. Constructing it through FromBytes or FromStream records
// which form the caller supplied, so downstream code never has to guess.
type Input struct {
	kind   inputKind
	data   []byte
	stream io.Reader
}

func FromBytes(data []byte) Input {
	return Input{kind: inputBytes, data: data}
}

func FromStream(r io.Reader) Input {
	return Input{kind: inputStream, stream: r}
}

func (in Input) IsZero() bool {
	return in.kind == 0
}

// Reader exposes the payload uniformly as an io.Reader.
func (in Input) Reader() io.Reader {
	switch in.kind {
	case inputBytes:
		return bytes.NewReader(in.data)
	case inputStream:
		return in.stream
	default:
		return bytes.NewReader(nil)
	}
}

// Bytes materializes the payload, draining the stream if necessary. Payloads
// larger than MaxInputBytes are rejected rather than buffered.
func (in Input) Bytes() ([]byte, error) {
	switch in.kind {
	case inputBytes:
		if len(in.data) > MaxInputBytes {
			return nil, ErrInputTooLarge
		}
		return in.data, nil
	case inputStream:
		limited := io.LimitReader(in.stream, MaxInputBytes+1)
		data, err := io.ReadAll(limited)
		if err != nil {
			return nil, err
		}
		if len(data) > MaxInputBytes {
			return nil, ErrInputTooLarge
		}
		return data, nil
	default:
		return nil, nil
	}
}
