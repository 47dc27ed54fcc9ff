package worker

import (
	"context"
	"fmt"
	"math"

	"github.com/danmuck/renderd/internal/api"
	"github.com/danmuck/renderd/internal/protocol"
	"github.com/danmuck/renderd/internal/scene"
)

// handleSetRegion copies a voxel region into a volume and votes on whether
// every rank applied it. Payloads that fit the scratch buffer reuse it;
// larger ones get a dedicated buffer freed before the vote.
func handleSetRegion(ctx context.Context, in *Interpreter) error {
	h, err := in.in.Handle()
	if err != nil {
		return err
	}
	index, err := in.in.Vec3i()
	if err != nil {
		return err
	}
	count, err := in.in.Vec3i()
	if err != nil {
		return err
	}
	n, err := in.in.Size()
	if err != nil {
		return err
	}
	if n > math.MaxInt {
		return &ProtocolError{
			Opcode: protocol.CmdSetRegion,
			Err:    fmt.Errorf("%w: region of %d bytes", protocol.ErrInvalidLength, n),
		}
	}
	if limit := in.in.Limits().MaxBlobBytes; n > limit {
		return &ProtocolError{
			Opcode: protocol.CmdSetRegion,
			Err:    fmt.Errorf("%w: region of %d bytes, limit %d", protocol.ErrBlobTooLarge, n, limit),
		}
	}

	var buf []byte
	dedicated := n > uint64(len(in.scratch))
	if dedicated {
		buf = in.alloc.Alloc(int(n))
	} else {
		buf = in.scratch[:n]
	}
	err = in.in.ReadInto(buf)
	applied := false
	if err == nil {
		var vol *scene.Volume
		vol, err = lookupAs[*scene.Volume](in, h)
		if err == nil {
			applied = vol.SetRegion(buf, index, count)
		}
	}
	if dedicated {
		in.alloc.Free(buf)
	}
	if err != nil {
		return err
	}

	_, err = in.vote(ctx, protocol.CmdSetRegion, !applied)
	return err
}

// handleSampleVolume samples on every rank; rank 0 replies with the values.
func handleSampleVolume(ctx context.Context, in *Interpreter) error {
	h, err := in.in.Handle()
	if err != nil {
		return err
	}
	n, err := in.in.Size()
	if err != nil {
		return err
	}
	if n > math.MaxUint64/12 {
		return &ProtocolError{
			Opcode: protocol.CmdSampleVolume,
			Err:    fmt.Errorf("%w: %d sample coordinates", protocol.ErrInvalidLength, n),
		}
	}
	raw, err := in.in.Blob(n * 12)
	if err != nil {
		return err
	}
	coords, err := protocol.DecodeVec3fs(raw)
	if err != nil {
		return err
	}
	vol, err := lookupAs[*scene.Volume](in, h)
	if err != nil {
		return err
	}
	samples := vol.ComputeSamples(coords)
	return in.reply(ctx, protocol.Response{
		Opcode:  protocol.CmdSampleVolume,
		Success: true,
		Type:    api.TypeFloat,
		Floats:  samples,
	})
}
