package worker

import (
	"context"
	"fmt"

	"github.com/danmuck/renderd/internal/api"
	logs "github.com/danmuck/renderd/internal/logging"
	"github.com/danmuck/renderd/internal/observability"
	"github.com/danmuck/renderd/internal/protocol"
	"github.com/danmuck/renderd/internal/scene"
)

// vote sums local failure flags across the group. Every rank must call it
// for the same command; rank 0 reports the total to the master.
func (in *Interpreter) vote(ctx context.Context, op protocol.Opcode, failed bool) (bool, error) {
	local := 0
	if failed {
		local = 1
	}
	failures, err := in.group.AllReduceSum(ctx, local)
	if err != nil {
		return false, fmt.Errorf("worker: %s vote: %w", op, err)
	}
	accepted := failures == 0
	if in.isRoot() {
		observability.RecordVote(op.String(), accepted)
		logs.Infof("worker.Interpreter.vote rank=0 op=%s failures=%d size=%d accepted=%v",
			op, failures, in.Size(), accepted)
	}
	if err := in.reply(ctx, protocol.Vote(op, failures)); err != nil {
		return false, err
	}
	return accepted, nil
}

// createCollectively binds obj only if every rank produced one. A nil obj
// is this rank's failure.
func (in *Interpreter) createCollectively(ctx context.Context, op protocol.Opcode, h api.Handle, obj scene.Object) error {
	accepted, err := in.vote(ctx, op, obj == nil)
	if err != nil {
		if obj != nil {
			discard(obj)
		}
		return err
	}
	if !accepted {
		if obj != nil {
			discard(obj)
		}
		return nil
	}
	return in.bindNew(h, obj)
}

// readRendererScoped reads the renderer handle, target handle and type name
// shared by material and light creation.
func (in *Interpreter) readRendererScoped() (*scene.Renderer, api.Handle, string, error) {
	rh, err := in.in.Handle()
	if err != nil {
		return nil, 0, "", err
	}
	h, err := in.in.Handle()
	if err != nil {
		return nil, 0, "", err
	}
	typeName, err := in.in.String()
	if err != nil {
		return nil, 0, "", err
	}
	renderer, err := lookupOptional[*scene.Renderer](in, rh)
	if err != nil {
		return nil, 0, "", err
	}
	return renderer, h, typeName, nil
}

// handleNewMaterial prefers the renderer's own material over the default
// registry, then votes.
func handleNewMaterial(ctx context.Context, in *Interpreter) error {
	renderer, h, typeName, err := in.readRendererScoped()
	if err != nil {
		return err
	}
	var obj scene.Object
	if renderer != nil {
		if m := renderer.CreateMaterial(typeName); m != nil {
			obj = m
		}
	}
	if obj == nil {
		if m, ok := in.registry.Create(scene.KindMaterial, typeName); ok {
			obj = m
		}
	}
	return in.createCollectively(ctx, protocol.CmdNewMaterial, h, obj)
}

func handleNewLight(ctx context.Context, in *Interpreter) error {
	renderer, h, typeName, err := in.readRendererScoped()
	if err != nil {
		return err
	}
	var obj scene.Object
	if renderer != nil {
		if l := renderer.CreateLight(typeName); l != nil {
			obj = l
		}
	}
	if obj == nil {
		if l, ok := in.registry.Create(scene.KindLight, typeName); ok {
			obj = l
		}
	}
	return in.createCollectively(ctx, protocol.CmdNewLight, h, obj)
}
