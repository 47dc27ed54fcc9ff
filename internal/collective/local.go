package collective

import (
	"context"
	"fmt"
	"sync"
)

// NewLocalGroup returns size in-process members sharing one hub, indexed
// by rank.
func NewLocalGroup(size int) ([]Group, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d", ErrInvalidGroup, size)
	}
	h := &hub{size: size}
	h.round = h.newRound()
	members := make([]Group, size)
	for rank := range members {
		members[rank] = &localMember{hub: h, rank: rank}
	}
	return members, nil
}

type round struct {
	op      Op
	sum     int
	arrived int
	err     error
	done    chan struct{}
}

type hub struct {
	mu     sync.Mutex
	size   int
	round  *round
	closed bool
	seq    uint64
}

func (h *hub) newRound() *round {
	return &round{done: make(chan struct{})}
}

func (h *hub) enter(ctx context.Context, op Op, v int) (int, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return 0, ErrClosed
	}
	r := h.round
	if r.arrived == 0 {
		r.op = op
	} else if r.op != op && r.err == nil {
		r.err = fmt.Errorf("%w: %s then %s at round %d", ErrMismatch, r.op, op, h.seq)
	}
	r.sum += v
	r.arrived++
	if r.arrived == h.size {
		close(r.done)
		h.round = h.newRound()
		h.seq++
	}
	h.mu.Unlock()

	select {
	case <-r.done:
		if r.err != nil {
			return 0, r.err
		}
		return r.sum, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	if h.round.arrived > 0 {
		h.round.err = ErrClosed
		close(h.round.done)
	}
}

type localMember struct {
	hub  *hub
	rank int
}

func (m *localMember) Rank() int { return m.rank }
func (m *localMember) Size() int { return m.hub.size }

func (m *localMember) AllReduceSum(ctx context.Context, v int) (int, error) {
	return m.hub.enter(ctx, OpAllReduceSum, v)
}

func (m *localMember) Barrier(ctx context.Context) error {
	_, err := m.hub.enter(ctx, OpBarrier, 0)
	return err
}

// Close releases every member blocked in the current round with ErrClosed.
func (m *localMember) Close() error {
	m.hub.close()
	return nil
}
