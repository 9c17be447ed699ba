package capture

import (
	"context"
	"errors"
)

var (
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	ErrNoAudio           = errors.New("no audio recorded")
)

// Constraints are processing hints passed to the device. Devices that
// cannot honour a hint ignore it.
type Constraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// DefaultAudioConstraints asks for every voice processing feature.
var DefaultAudioConstraints = Constraints{
	EchoCancellation: true,
	NoiseSuppression: true,
	AutoGainControl:  true,
}

// Device opens audio streams.
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream delivers recorded chunks. Chunks is closed when the stream ends,
// either because the source is exhausted or because Close was called.
type Stream interface {
	Chunks() <-chan []byte
	// Err reports the read error that ended the stream, if any. It is only
	// meaningful after Chunks is closed.
	Err() error
	// Close stops the source and releases it. It is safe to call more
	// than once.
	Close() error
}
