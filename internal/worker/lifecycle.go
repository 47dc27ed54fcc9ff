package worker

import (
	"context"
	"fmt"

	"github.com/danmuck/renderd/internal/api"
	logs "github.com/danmuck/renderd/internal/logging"
	"github.com/danmuck/renderd/internal/protocol"
	"github.com/danmuck/renderd/internal/scene"
)

// handleCommit rebuilds derived state, then holds the rank at a barrier
// until every rank has committed, so no rank renders ahead.
func handleCommit(ctx context.Context, in *Interpreter) error {
	h, err := in.in.Handle()
	if err != nil {
		return err
	}
	obj, err := in.handles.Lookup(h)
	if err != nil {
		return err
	}
	if err := obj.Commit(); err != nil {
		return err
	}
	in.emit(protocol.CmdCommit, PhaseBarrier)
	if err := in.group.Barrier(ctx); err != nil {
		return fmt.Errorf("worker: commit barrier after %s: %w", h, err)
	}
	return nil
}

func handleRelease(_ context.Context, in *Interpreter) error {
	h, err := in.in.Handle()
	if err != nil {
		return err
	}
	destroyed, err := in.handles.Release(h)
	if err != nil {
		return err
	}
	if destroyed && in.isRoot() {
		logs.Debugf("worker.Interpreter.release rank=0 handle=%s destroyed=true", h)
	}
	return nil
}

func handleRenderFrame(_ context.Context, in *Interpreter) error {
	fh, rh, err := in.readPair()
	if err != nil {
		return err
	}
	channels, err := in.in.Int32()
	if err != nil {
		return err
	}
	fb, err := lookupAs[*scene.FrameBuffer](in, fh)
	if err != nil {
		return err
	}
	renderer, err := lookupAs[*scene.Renderer](in, rh)
	if err != nil {
		return err
	}
	return renderer.RenderFrame(fb, api.Channel(channels))
}
