package collective

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/danmuck/renderd/internal/testutil/testlog"
)

func TestLocalAllReduceSum(t *testing.T) {
	testlog.Start(t)

	members, err := NewLocalGroup(4)
	require.NoError(t, err)

	results := make([]int, len(members))
	g, ctx := errgroup.WithContext(context.Background())
	for rank, m := range members {
		rank, m := rank, m
		g.Go(func() error {
			sum, err := m.AllReduceSum(ctx, rank)
			results[rank] = sum
			return err
		})
	}
	require.NoError(t, g.Wait())
	for rank, sum := range results {
		assert.Equal(t, 0+1+2+3, sum, "rank %d", rank)
	}
}

func TestLocalRoundsAreSequential(t *testing.T) {
	testlog.Start(t)

	members, err := NewLocalGroup(3)
	require.NoError(t, err)

	g, ctx := errgroup.WithContext(context.Background())
	for _, m := range members {
		m := m
		g.Go(func() error {
			for round := 0; round < 50; round++ {
				sum, err := m.AllReduceSum(ctx, round)
				if err != nil {
					return err
				}
				if sum != 3*round {
					return errors.New("round results interleaved")
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestLocalBarrierHoldsUntilAllArrive(t *testing.T) {
	testlog.Start(t)

	members, err := NewLocalGroup(3)
	require.NoError(t, err)

	var arrived atomic.Int32
	var passedEarly atomic.Bool
	g, ctx := errgroup.WithContext(context.Background())
	for rank, m := range members {
		rank, m := rank, m
		g.Go(func() error {
			if rank == 2 {
				time.Sleep(20 * time.Millisecond)
			}
			arrived.Add(1)
			if err := m.Barrier(ctx); err != nil {
				return err
			}
			if arrived.Load() != 3 {
				passedEarly.Store(true)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.False(t, passedEarly.Load(), "a rank left the barrier before every rank entered")
}

func TestLocalMismatchDetected(t *testing.T) {
	testlog.Start(t)

	members, err := NewLocalGroup(2)
	require.NoError(t, err)

	errs := make([]error, 2)
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		_, errs[0] = members[0].AllReduceSum(ctx, 1)
		return nil
	})
	g.Go(func() error {
		errs[1] = members[1].Barrier(ctx)
		return nil
	})
	require.NoError(t, g.Wait())
	assert.ErrorIs(t, errs[0], ErrMismatch)
	assert.ErrorIs(t, errs[1], ErrMismatch)
}

func TestLocalContextCancel(t *testing.T) {
	testlog.Start(t)

	members, err := NewLocalGroup(2)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = members[0].AllReduceSum(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocalCloseReleasesWaiters(t *testing.T) {
	testlog.Start(t)

	members, err := NewLocalGroup(2)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- members[0].Barrier(context.Background())
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, members[1].Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatalf("waiter not released by Close")
	}
	_, err = members[1].AllReduceSum(context.Background(), 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestInvalidGroups(t *testing.T) {
	testlog.Start(t)

	_, err := NewLocalGroup(0)
	assert.ErrorIs(t, err, ErrInvalidGroup)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	_, err = NewRedisGroup(client, RedisConfig{Session: "s", Rank: 2, Size: 2})
	assert.ErrorIs(t, err, ErrInvalidGroup)
	_, err = NewRedisGroup(client, RedisConfig{Rank: 0, Size: 2})
	assert.ErrorIs(t, err, ErrInvalidGroup)
	_, err = NewRedisGroup(nil, RedisConfig{Session: "s", Rank: 0, Size: 1})
	assert.ErrorIs(t, err, ErrInvalidGroup)
}

func TestSolo(t *testing.T) {
	testlog.Start(t)

	var g Group = Solo{}
	sum, err := g.AllReduceSum(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, sum)
	assert.NoError(t, g.Barrier(context.Background()))
	assert.Equal(t, 1, g.Size())
}

func TestRoundKeys(t *testing.T) {
	keys := roundKeys("abc", 7)
	assert.Equal(t, "renderd:abc:coll:7:sum", keys.sum)
	assert.Equal(t, "renderd:abc:coll:7:count", keys.count)
	assert.Equal(t, "renderd:abc:coll:7:reply:3", keys.reply(3))
}

// Runs against a live server when RENDERD_TEST_REDIS_URL is set.
func TestRedisAllReduceSum(t *testing.T) {
	testlog.Start(t)

	url := os.Getenv("RENDERD_TEST_REDIS_URL")
	if url == "" {
		t.Skip("RENDERD_TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	session := uuid.NewString()
	const size = 3
	results := make([]int, size)
	g, ctx := errgroup.WithContext(context.Background())
	for rank := 0; rank < size; rank++ {
		rank := rank
		client := redis.NewClient(opts)
		t.Cleanup(func() { _ = client.Close() })
		member, err := NewRedisGroup(client, RedisConfig{Session: session, Rank: rank, Size: size})
		require.NoError(t, err)
		g.Go(func() error {
			if err := member.Barrier(ctx); err != nil {
				return err
			}
			sum, err := member.AllReduceSum(ctx, rank+1)
			results[rank] = sum
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, []int{6, 6, 6}, results)
}
