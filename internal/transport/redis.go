package transport

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/renderd/internal/protocol"
	"github.com/redis/go-redis/v9"
)

// streamField is the XADD field holding one chunk of command bytes.
const streamField = "data"

// CommandKey is the stream every rank of session reads.
func CommandKey(session string) string {
	return fmt.Sprintf("renderd:%s:commands", session)
}

// ResponseKey is the list rank 0 pushes responses onto.
func ResponseKey(session string) string {
	return fmt.Sprintf("renderd:%s:responses", session)
}

// RedisStream reads a session's command stream from the beginning. Entries
// are byte chunks; their concatenation is the command stream.
type RedisStream struct {
	ctx    context.Context
	client redis.UniversalClient
	key    string
	lastID string
	batch  int64
	buf    []byte
}

func NewRedisStream(ctx context.Context, client redis.UniversalClient, session string) *RedisStream {
	return &RedisStream{
		ctx:    ctx,
		client: client,
		key:    CommandKey(session),
		lastID: "0",
		batch:  64,
	}
}

func (s *RedisStream) Read(p []byte) (int, error) {
	for len(s.buf) == 0 {
		if err := s.fetch(); err != nil {
			return 0, err
		}
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

func (s *RedisStream) fetch() error {
	streams, err := s.client.XRead(s.ctx, &redis.XReadArgs{
		Streams: []string{s.key, s.lastID},
		Count:   s.batch,
		Block:   0,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if s.ctx.Err() != nil {
			return s.ctx.Err()
		}
		return fmt.Errorf("transport: xread %s: %w", s.key, err)
	}
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			s.lastID = msg.ID
			chunk, err := messageBytes(msg)
			if err != nil {
				return err
			}
			s.buf = append(s.buf, chunk...)
		}
	}
	return nil
}

func messageBytes(msg redis.XMessage) ([]byte, error) {
	raw, ok := msg.Values[streamField]
	if !ok {
		return nil, fmt.Errorf("transport: stream entry %s missing %q", msg.ID, streamField)
	}
	switch v := raw.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("transport: stream entry %s has %T payload", msg.ID, raw)
	}
}

// RedisPublisher appends command bytes to a session stream.
type RedisPublisher struct {
	client redis.UniversalClient
	key    string
}

func NewRedisPublisher(client redis.UniversalClient, session string) *RedisPublisher {
	return &RedisPublisher{client: client, key: CommandKey(session)}
}

// Publish appends p as one stream entry.
func (p *RedisPublisher) Publish(ctx context.Context, chunk []byte) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.key,
		Values: map[string]any{streamField: chunk},
	}).Err()
	if err != nil {
		return fmt.Errorf("transport: xadd %s: %w", p.key, err)
	}
	return nil
}

// PublishFrom copies r into the stream in chunks of at most chunkSize.
func (p *RedisPublisher) PublishFrom(ctx context.Context, r io.Reader, chunkSize int) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = 64 << 10
	}
	buf := make([]byte, chunkSize)
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if perr := p.Publish(ctx, buf[:n]); perr != nil {
				return total, perr
			}
			total += int64(n)
		}
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// RedisResponses pops rank 0's responses for a session.
type RedisResponses struct {
	client redis.UniversalClient
	key    string
}

func NewRedisResponses(client redis.UniversalClient, session string) *RedisResponses {
	return &RedisResponses{client: client, key: ResponseKey(session)}
}

// Next blocks until rank 0 pushes a response.
func (r *RedisResponses) Next(ctx context.Context) (protocol.Response, error) {
	res, err := r.client.BLPop(ctx, 0, r.key).Result()
	if err != nil {
		return protocol.Response{}, fmt.Errorf("transport: blpop %s: %w", r.key, err)
	}
	if len(res) != 2 {
		return protocol.Response{}, fmt.Errorf("transport: blpop %s: malformed reply", r.key)
	}
	return protocol.UnmarshalResponse([]byte(res[1]))
}
