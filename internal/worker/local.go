package worker

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/danmuck/renderd/internal/collective"
	logs "github.com/danmuck/renderd/internal/logging"
	"github.com/danmuck/renderd/internal/scene"
	"github.com/danmuck/renderd/internal/transport"
)

// LocalConfig runs a whole worker group inside one process.
type LocalConfig struct {
	Ranks       int
	Interpreter Config
	// Modules are loaded into every rank's registry before the first command.
	Modules []string
	// RegistryFor, when set, supplies each rank's registry. Ranks may
	// legitimately differ in what they can create.
	RegistryFor func(rank int) *scene.Registry
	// OnStart is called with every interpreter before any command runs.
	OnStart func(interps []*Interpreter)
}

// LocalResult holds per-rank outcomes, indexed by rank.
type LocalResult struct {
	Status       []int
	Interpreters []*Interpreter
}

// RunLocal broadcasts stream to cfg.Ranks interpreters and runs them to
// completion. The first rank failure cancels the rest.
func RunLocal(ctx context.Context, cfg LocalConfig, stream io.Reader, responder transport.Responder) (LocalResult, error) {
	if cfg.Ranks <= 0 {
		return LocalResult{}, fmt.Errorf("worker: local group needs at least one rank, got %d", cfg.Ranks)
	}
	members, err := collective.NewLocalGroup(cfg.Ranks)
	if err != nil {
		return LocalResult{}, err
	}
	bcast := transport.NewBroadcast(cfg.Ranks)

	res := LocalResult{
		Status:       make([]int, cfg.Ranks),
		Interpreters: make([]*Interpreter, cfg.Ranks),
	}
	for rank := 0; rank < cfg.Ranks; rank++ {
		icfg := cfg.Interpreter
		if cfg.RegistryFor != nil {
			icfg.Registry = cfg.RegistryFor(rank)
		}
		if icfg.Registry == nil {
			icfg.Registry = scene.DefaultRegistry()
		}
		for _, name := range cfg.Modules {
			if err := icfg.Registry.LoadModule(name); err != nil {
				return LocalResult{}, fmt.Errorf("worker: rank %d preload: %w", rank, err)
			}
		}
		r, err := bcast.Reader(rank)
		if err != nil {
			return LocalResult{}, err
		}
		interp, err := New(icfg, r, members[rank], responder)
		if err != nil {
			return LocalResult{}, err
		}
		res.Interpreters[rank] = interp
	}
	if cfg.OnStart != nil {
		cfg.OnStart(res.Interpreters)
	}

	g, gctx := errgroup.WithContext(ctx)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-gctx.Done():
			_ = bcast.CloseWithError(gctx.Err())
			_ = members[0].Close()
		case <-stop:
		}
	}()

	// The feeder is not part of the group: ranks return on finalize even
	// while the stream is still open.
	go func() {
		if _, err := io.Copy(bcast, stream); err != nil {
			_ = bcast.CloseWithError(fmt.Errorf("worker: feed local group: %w", err))
			return
		}
		_ = bcast.Close()
	}()
	for rank, interp := range res.Interpreters {
		rank, interp := rank, interp
		g.Go(func() error {
			status, err := interp.Run(gctx)
			res.Status[rank] = status
			if err != nil {
				return fmt.Errorf("worker: rank %d: %w", rank, err)
			}
			return nil
		})
	}
	err = g.Wait()
	logs.Infof("worker.RunLocal done ranks=%d status=%v", cfg.Ranks, res.Status)
	return res, err
}
