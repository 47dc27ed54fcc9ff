package transport

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/danmuck/renderd/internal/protocol"
	"github.com/redis/go-redis/v9"
)

// Responder carries rank 0's replies to the master.
type Responder interface {
	Send(ctx context.Context, resp protocol.Response) error
}

// Discard drops every response. Ranks other than 0 use it.
type Discard struct{}

func (Discard) Send(context.Context, protocol.Response) error { return nil }

// StreamResponder writes msgpack records to w.
type StreamResponder struct {
	mu sync.Mutex
	w  io.Writer
}

func NewStreamResponder(w io.Writer) *StreamResponder {
	return &StreamResponder{w: w}
}

func (r *StreamResponder) Send(_ context.Context, resp protocol.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := protocol.EncodeResponse(r.w, resp); err != nil {
		return fmt.Errorf("transport: send %s response: %w", resp.Opcode, err)
	}
	return nil
}

// MemResponder records responses in memory.
type MemResponder struct {
	mu        sync.Mutex
	responses []protocol.Response
}

func (r *MemResponder) Send(_ context.Context, resp protocol.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, resp)
	return nil
}

// Responses returns a copy of everything sent so far.
func (r *MemResponder) Responses() []protocol.Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Response(nil), r.responses...)
}

// RedisResponder pushes msgpack records onto a per-session list.
type RedisResponder struct {
	client redis.UniversalClient
	key    string
}

func NewRedisResponder(client redis.UniversalClient, session string) *RedisResponder {
	return &RedisResponder{client: client, key: ResponseKey(session)}
}

func (r *RedisResponder) Send(ctx context.Context, resp protocol.Response) error {
	payload, err := protocol.MarshalResponse(resp)
	if err != nil {
		return err
	}
	if err := r.client.RPush(ctx, r.key, payload).Err(); err != nil {
		return fmt.Errorf("transport: push %s response: %w", resp.Opcode, err)
	}
	return nil
}
