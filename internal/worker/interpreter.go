package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/danmuck/renderd/internal/collective"
	"github.com/danmuck/renderd/internal/handles"
	logs "github.com/danmuck/renderd/internal/logging"
	"github.com/danmuck/renderd/internal/observability"
	"github.com/danmuck/renderd/internal/protocol"
	"github.com/danmuck/renderd/internal/scene"
	"github.com/danmuck/renderd/internal/transport"
)

// DefaultRegionScratchBytes is the size of the reusable region buffer.
const DefaultRegionScratchBytes = 40 << 20

// Config tunes one interpreter instance.
type Config struct {
	// RegionScratchBytes is both the scratch buffer size and the largest
	// region payload served without a dedicated allocation.
	RegionScratchBytes int
	Limits             protocol.Limits
	// Registry is this rank's type registry. Nil selects scene.DefaultRegistry.
	Registry  *scene.Registry
	Allocator Allocator
	// Trace, when set, observes command boundaries and barrier entry.
	Trace func(TraceEvent)
}

func DefaultConfig() Config {
	return Config{
		RegionScratchBytes: DefaultRegionScratchBytes,
		Limits:             protocol.DefaultLimits(),
	}
}

// TracePhase marks where in a command a TraceEvent fired.
type TracePhase string

const (
	PhaseBegin   TracePhase = "begin"
	PhaseBarrier TracePhase = "barrier"
	PhaseEnd     TracePhase = "end"
)

type TraceEvent struct {
	Rank   int
	Opcode protocol.Opcode
	Phase  TracePhase
}

// Status is a point-in-time view safe to read from other goroutines.
type Status struct {
	Rank       int    `json:"rank"`
	Size       int    `json:"size"`
	Commands   uint64 `json:"commands"`
	LastOpcode string `json:"last_opcode"`
	Handles    int64  `json:"handles"`
	Finalized  bool   `json:"finalized"`
}

// Interpreter applies one rank's command stream. All command handling runs
// on the goroutine that calls Step or Run.
type Interpreter struct {
	in        *protocol.Reader
	group     collective.Group
	responder transport.Responder
	registry  *scene.Registry
	handles   *handles.Table
	scratch   []byte
	alloc     Allocator
	trace     func(TraceEvent)

	commands  atomic.Uint64
	lastOp    atomic.Uint32
	bound     atomic.Int64
	finalized atomic.Bool
}

// New builds an interpreter reading commands from in. responder is only
// written by rank 0; other ranks may pass nil.
func New(cfg Config, in io.Reader, group collective.Group, responder transport.Responder) (*Interpreter, error) {
	if in == nil {
		return nil, errors.New("worker: nil command stream")
	}
	if group == nil {
		return nil, errors.New("worker: nil collective group")
	}
	if cfg.RegionScratchBytes < 0 {
		return nil, fmt.Errorf("worker: negative region scratch size %d", cfg.RegionScratchBytes)
	}
	if cfg.Limits == (protocol.Limits{}) {
		cfg.Limits = protocol.DefaultLimits()
	}
	if cfg.Registry == nil {
		cfg.Registry = scene.DefaultRegistry()
	}
	if cfg.Allocator == nil {
		cfg.Allocator = heapAllocator{}
	}
	if responder == nil || group.Rank() != 0 {
		responder = transport.Discard{}
	}
	return &Interpreter{
		in:        protocol.NewReader(in, cfg.Limits),
		group:     group,
		responder: responder,
		registry:  cfg.Registry,
		handles:   handles.NewTable(),
		scratch:   make([]byte, cfg.RegionScratchBytes),
		alloc:     cfg.Allocator,
		trace:     cfg.Trace,
	}, nil
}

func (in *Interpreter) Rank() int { return in.group.Rank() }
func (in *Interpreter) Size() int { return in.group.Size() }

// Handles exposes the handle table to tests and status reporting on the
// interpreter goroutine.
func (in *Interpreter) Handles() *handles.Table { return in.handles }

func (in *Interpreter) Registry() *scene.Registry { return in.registry }

// Consumed is the number of command stream bytes decoded so far.
func (in *Interpreter) Consumed() int64 { return in.in.Consumed() }

func (in *Interpreter) Status() Status {
	return Status{
		Rank:       in.group.Rank(),
		Size:       in.group.Size(),
		Commands:   in.commands.Load(),
		LastOpcode: protocol.Opcode(in.lastOp.Load()).String(),
		Handles:    in.bound.Load(),
		Finalized:  in.finalized.Load(),
	}
}

// Step decodes and applies exactly one command. It returns ErrFinalized
// after a finalize command and any other error when the rank must stop.
func (in *Interpreter) Step(ctx context.Context) error {
	op, err := in.in.Opcode()
	if err != nil {
		return &ProtocolError{Opcode: op, Err: err}
	}
	h, ok := handlers[op]
	if !ok {
		return &ProtocolError{Opcode: op, Err: protocol.ErrUnknownOpcode}
	}

	in.emit(op, PhaseBegin)
	start := time.Now()
	err = h(ctx, in)
	elapsed := time.Since(start)

	in.commands.Add(1)
	in.lastOp.Store(uint32(op))
	in.bound.Store(int64(in.handles.Len()))
	observability.RecordCommand(in.Rank(), op.String(), elapsed, err == nil || errors.Is(err, ErrFinalized))
	observability.SetBoundHandles(in.Rank(), in.handles.Len())

	if err != nil {
		if errors.Is(err, ErrFinalized) {
			in.finalized.Store(true)
			return err
		}
		var perr *ProtocolError
		if errors.As(err, &perr) {
			return err
		}
		if isProtocolViolation(err) {
			return &ProtocolError{Opcode: op, Err: err}
		}
		return &CommandError{Opcode: op, Err: err}
	}
	in.emit(op, PhaseEnd)
	return nil
}

// Run applies commands until finalize or the first error and returns the
// process exit status. No command is attempted after an error.
func (in *Interpreter) Run(ctx context.Context) (int, error) {
	for {
		err := in.Step(ctx)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrFinalized) {
			logs.Infof("worker.Interpreter.Run finalized rank=%d commands=%d", in.Rank(), in.commands.Load())
			return 0, nil
		}
		logs.Errorf("worker.Interpreter.Run fatal rank=%d commands=%d consumed=%d err=%v",
			in.Rank(), in.commands.Load(), in.Consumed(), err)
		return 1, err
	}
}

// Close drops every handle reference still held by this rank.
func (in *Interpreter) Close() error {
	err := in.handles.ReleaseAll()
	in.bound.Store(0)
	return err
}

func (in *Interpreter) emit(op protocol.Opcode, phase TracePhase) {
	if in.trace != nil {
		in.trace(TraceEvent{Rank: in.Rank(), Opcode: op, Phase: phase})
	}
}

func (in *Interpreter) isRoot() bool {
	return in.group.Rank() == 0
}

// reply sends resp from rank 0 only.
func (in *Interpreter) reply(ctx context.Context, resp protocol.Response) error {
	if !in.isRoot() {
		return nil
	}
	return in.responder.Send(ctx, resp)
}

// isProtocolViolation reports errors that mean this rank lost its place in
// the stream or its agreement with the master about bound handles.
func isProtocolViolation(err error) bool {
	var unbound *UnboundHandleError
	return errors.As(err, &unbound) ||
		errors.Is(err, handles.ErrAlreadyBound) ||
		errors.Is(err, handles.ErrNullHandle) ||
		errors.Is(err, scene.ErrKindMismatch) ||
		errors.Is(err, collective.ErrMismatch) ||
		errors.Is(err, protocol.ErrTruncated) ||
		errors.Is(err, protocol.ErrStreamClosed) ||
		errors.Is(err, protocol.ErrStringTooLarge) ||
		errors.Is(err, protocol.ErrBlobTooLarge) ||
		errors.Is(err, protocol.ErrInvalidLength)
}
