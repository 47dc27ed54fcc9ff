package worker

import (
	"context"

	"github.com/danmuck/renderd/internal/protocol"
)

type handlerFunc func(ctx context.Context, in *Interpreter) error

// handlers is the complete dispatch table. An opcode missing here is a
// protocol error.
var handlers = map[protocol.Opcode]handlerFunc{
	protocol.CmdNewModel:            handleNewModel,
	protocol.CmdNewGeometry:         handleNewGeometry,
	protocol.CmdNewMaterial:         handleNewMaterial,
	protocol.CmdNewLight:            handleNewLight,
	protocol.CmdNewTriangleMesh:     handleNewTriangleMesh,
	protocol.CmdNewCamera:           handleNewCamera,
	protocol.CmdNewVolume:           handleNewVolume,
	protocol.CmdNewTransferFunction: handleNewTransferFunction,
	protocol.CmdNewData:             handleNewData,
	protocol.CmdNewTexture2D:        handleNewTexture2D,
	protocol.CmdNewRenderer:         handleNewRenderer,
	protocol.CmdNewPixelOp:          handleNewPixelOp,

	protocol.CmdAddGeometry:    handleAddGeometry,
	protocol.CmdRemoveGeometry: handleRemoveGeometry,
	protocol.CmdAddVolume:      handleAddVolume,
	protocol.CmdRemoveVolume:   handleRemoveVolume,
	protocol.CmdCommit:         handleCommit,
	protocol.CmdRelease:        handleRelease,
	protocol.CmdSetMaterial:    handleSetMaterial,
	protocol.CmdSetRegion:      handleSetRegion,
	protocol.CmdSetPixelOp:     handleSetPixelOp,
	protocol.CmdSampleVolume:   handleSampleVolume,

	protocol.CmdFrameBufferCreate: handleFrameBufferCreate,
	protocol.CmdFrameBufferMap:    handleUnsupported,
	protocol.CmdFrameBufferClear:  handleFrameBufferClear,
	protocol.CmdRenderFrame:       handleRenderFrame,

	protocol.CmdSetObject: handleSetObject,
	protocol.CmdSetString: handleSetString,
	protocol.CmdSetInt:    handleSetInt,
	protocol.CmdSetFloat:  handleSetFloat,
	protocol.CmdSetVec2f:  handleSetVec2f,
	protocol.CmdSetVec3f:  handleSetVec3f,
	protocol.CmdSetVec4f:  handleSetVec4f,
	protocol.CmdSetVec2i:  handleSetVec2i,
	protocol.CmdSetVec3i:  handleSetVec3i,

	protocol.CmdGetType:  handleGetType,
	protocol.CmdGetValue: handleGetValue,

	protocol.CmdLoadModule: handleLoadModule,
	protocol.CmdApiMode:    handleApiMode,
	protocol.CmdFinalize:   handleFinalize,
}
