package capture

import (
	"errors"
	"io"
	"sync"
)

const defaultChunkSize = 4096

// readerStream turns an io.Reader into a Stream. stop interrupts the
// source, finish releases it once reading has ended.
type readerStream struct {
	src    io.Reader
	size   int
	stop   func()
	finish func() error

	ch      chan []byte
	done    chan struct{}
	drained chan struct{}

	once     sync.Once
	closeErr error

	mu  sync.Mutex
	err error
}

func newReaderStream(src io.Reader, size int, stop func(), finish func() error) *readerStream {
	if size <= 0 {
		size = defaultChunkSize
	}
	s := &readerStream{
		src:     src,
		size:    size,
		stop:    stop,
		finish:  finish,
		ch:      make(chan []byte),
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}
	go s.read()
	return s
}

func (s *readerStream) read() {
	defer close(s.drained)
	defer close(s.ch)

	for {
		select {
		case <-s.done:
			return
		default:
		}

		buf := make([]byte, s.size)
		n, err := s.src.Read(buf)
		if n > 0 {
			select {
			case s.ch <- buf[:n]:
			case <-s.done:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				select {
				case <-s.done:
				default:
					s.mu.Lock()
					s.err = err
					s.mu.Unlock()
				}
			}
			return
		}
	}
}

func (s *readerStream) Chunks() <-chan []byte { return s.ch }

func (s *readerStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *readerStream) Close() error {
	s.once.Do(func() {
		close(s.done)
		if s.stop != nil {
			s.stop()
		}
		<-s.drained
		if s.finish != nil {
			s.closeErr = s.finish()
		}
	})
	return s.closeErr
}
