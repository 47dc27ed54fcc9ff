package collective

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig places one rank in a group coordinated through Redis keys
// under a per-session prefix.
type RedisConfig struct {
	Session string
	Rank    int
	Size    int
	// KeyTTL bounds how long round keys outlive an abandoned session.
	KeyTTL time.Duration
}

// RedisGroup implements Group with atomic counters. The last rank to arrive
// at a round publishes the result to every rank's reply list.
type RedisGroup struct {
	client redis.UniversalClient
	cfg    RedisConfig
	seq    uint64
}

func NewRedisGroup(client redis.UniversalClient, cfg RedisConfig) (*RedisGroup, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: nil redis client", ErrInvalidGroup)
	}
	if cfg.Size <= 0 || cfg.Rank < 0 || cfg.Rank >= cfg.Size {
		return nil, fmt.Errorf("%w: rank %d of %d", ErrInvalidGroup, cfg.Rank, cfg.Size)
	}
	if strings.TrimSpace(cfg.Session) == "" {
		return nil, fmt.Errorf("%w: session required", ErrInvalidGroup)
	}
	if cfg.KeyTTL <= 0 {
		cfg.KeyTTL = 10 * time.Minute
	}
	return &RedisGroup{client: client, cfg: cfg}, nil
}

func (g *RedisGroup) Rank() int { return g.cfg.Rank }
func (g *RedisGroup) Size() int { return g.cfg.Size }

func (g *RedisGroup) AllReduceSum(ctx context.Context, v int) (int, error) {
	return g.enter(ctx, OpAllReduceSum, v)
}

func (g *RedisGroup) Barrier(ctx context.Context) error {
	_, err := g.enter(ctx, OpBarrier, 0)
	return err
}

func (g *RedisGroup) Close() error {
	return nil
}

func (g *RedisGroup) enter(ctx context.Context, op Op, v int) (int, error) {
	seq := g.seq
	g.seq++
	keys := roundKeys(g.cfg.Session, seq)

	var sum *redis.IntCmd
	var count *redis.IntCmd
	var first *redis.BoolCmd
	_, err := g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		first = pipe.SetNX(ctx, keys.op, string(op), g.cfg.KeyTTL)
		sum = pipe.IncrBy(ctx, keys.sum, int64(v))
		count = pipe.Incr(ctx, keys.count)
		pipe.Expire(ctx, keys.sum, g.cfg.KeyTTL)
		pipe.Expire(ctx, keys.count, g.cfg.KeyTTL)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("collective: redis %s round %d: %w", op, seq, err)
	}
	if !first.Val() {
		recorded, err := g.client.Get(ctx, keys.op).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return 0, fmt.Errorf("collective: redis %s round %d: %w", op, seq, err)
		}
		if recorded != "" && recorded != string(op) {
			return 0, fmt.Errorf("%w: %s then %s at round %d", ErrMismatch, recorded, op, seq)
		}
	}

	if count.Val() == int64(g.cfg.Size) {
		if err := g.publish(ctx, keys, sum.Val()); err != nil {
			return 0, err
		}
	}

	res, err := g.client.BLPop(ctx, 0, keys.reply(g.cfg.Rank)).Result()
	if err != nil {
		return 0, fmt.Errorf("collective: redis %s round %d wait: %w", op, seq, err)
	}
	if len(res) != 2 {
		return 0, fmt.Errorf("collective: redis %s round %d: malformed reply %v", op, seq, res)
	}
	total, err := strconv.Atoi(res[1])
	if err != nil {
		return 0, fmt.Errorf("collective: redis %s round %d: %w", op, seq, err)
	}
	return total, nil
}

func (g *RedisGroup) publish(ctx context.Context, keys redisRoundKeys, total int64) error {
	_, err := g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for rank := 0; rank < g.cfg.Size; rank++ {
			reply := keys.reply(rank)
			pipe.RPush(ctx, reply, total)
			pipe.Expire(ctx, reply, g.cfg.KeyTTL)
		}
		pipe.Del(ctx, keys.sum, keys.count, keys.op)
		return nil
	})
	if err != nil {
		return fmt.Errorf("collective: redis publish: %w", err)
	}
	return nil
}

type redisRoundKeys struct {
	base  string
	sum   string
	count string
	op    string
}

func roundKeys(session string, seq uint64) redisRoundKeys {
	base := fmt.Sprintf("renderd:%s:coll:%d", session, seq)
	return redisRoundKeys{
		base:  base,
		sum:   base + ":sum",
		count: base + ":count",
		op:    base + ":op",
	}
}

func (k redisRoundKeys) reply(rank int) string {
	return fmt.Sprintf("%s:reply:%d", k.base, rank)
}
