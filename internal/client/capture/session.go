package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Session is one recording. It owns its stream until Stop or Discard.
type Session struct {
	id     uuid.UUID
	stream Stream
	pumped chan struct{}

	release sync.Once

	mu     sync.Mutex
	chunks [][]byte
}

// Start opens dev and begins collecting chunks.
func Start(ctx context.Context, dev Device, c Constraints) (*Session, error) {
	st, err := dev.Open(ctx, c)
	if err != nil {
		if errors.Is(err, ErrDeviceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	s := &Session{
		id:     uuid.New(),
		stream: st,
		pumped: make(chan struct{}),
	}
	go s.pump()
	return s, nil
}

func (s *Session) ID() string { return s.id.String() }

func (s *Session) pump() {
	defer close(s.pumped)
	for b := range s.stream.Chunks() {
		if len(b) == 0 {
			continue
		}
		s.mu.Lock()
		s.chunks = append(s.chunks, b)
		s.mu.Unlock()
	}
}

// Done is closed when the stream has ended, either because the device ran
// out of data or because the session was released.
func (s *Session) Done() <-chan struct{} { return s.pumped }

// Chunks reports how many non-empty chunks have been collected so far.
func (s *Session) Chunks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

func (s *Session) close() {
	s.release.Do(func() {
		_ = s.stream.Close()
		<-s.pumped
	})
}

// Stop releases the device and returns every chunk joined into a single
// recording. A session that captured nothing returns ErrNoAudio.
func (s *Session) Stop() ([]byte, error) {
	s.close()

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.chunks) == 0 {
		if err := s.stream.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
		}
		return nil, ErrNoAudio
	}
	return bytes.Join(s.chunks, nil), nil
}

// Discard releases the device and drops whatever was captured.
func (s *Session) Discard() {
	s.close()

	s.mu.Lock()
	s.chunks = nil
	s.mu.Unlock()
}
