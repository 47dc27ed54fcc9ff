package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
)

var ErrInvalidRank = errors.New("transport: invalid rank")

// Broadcast fans one writer out to a fixed set of per-rank readers. Writes
// never block; each reader buffers whatever it has not consumed yet.
type Broadcast struct {
	streams []*memStream
}

func NewBroadcast(ranks int) *Broadcast {
	b := &Broadcast{streams: make([]*memStream, ranks)}
	for i := range b.streams {
		s := &memStream{}
		s.cond = sync.NewCond(&s.mu)
		b.streams[i] = s
	}
	return b
}

// Write appends p to every rank's stream.
func (b *Broadcast) Write(p []byte) (int, error) {
	for _, s := range b.streams {
		if err := s.append(p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Reader returns rank's view of the stream.
func (b *Broadcast) Reader(rank int) (io.ReadCloser, error) {
	if rank < 0 || rank >= len(b.streams) {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidRank, rank, len(b.streams))
	}
	return b.streams[rank], nil
}

// Close ends every stream. Readers drain buffered bytes, then see io.EOF.
func (b *Broadcast) Close() error {
	return b.CloseWithError(nil)
}

// CloseWithError ends every stream. Readers see err immediately instead of
// draining.
func (b *Broadcast) CloseWithError(err error) error {
	for _, s := range b.streams {
		s.closeWith(err)
	}
	return nil
}

type memStream struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    bytes.Buffer
	closed bool
	err    error
}

func (s *memStream) append(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return io.ErrClosedPipe
	}
	s.buf.Write(p)
	s.cond.Broadcast()
	return nil
}

func (s *memStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if s.err != nil {
			return 0, s.err
		}
		if s.buf.Len() > 0 {
			return s.buf.Read(p)
		}
		if s.closed {
			return 0, io.EOF
		}
		s.cond.Wait()
	}
}

func (s *memStream) Close() error {
	s.closeWith(nil)
	return nil
}

func (s *memStream) closeWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if err != nil && s.err == nil {
		s.err = err
	}
	s.cond.Broadcast()
}
