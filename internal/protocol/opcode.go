package protocol

import "fmt"

// Opcode tags one command frame.
type Opcode uint32

const (
	CmdNewModel            Opcode = 100
	CmdNewGeometry         Opcode = 101
	CmdNewMaterial         Opcode = 102
	CmdNewLight            Opcode = 103
	CmdNewTriangleMesh     Opcode = 104
	CmdNewCamera           Opcode = 105
	CmdNewVolume           Opcode = 106
	CmdNewTransferFunction Opcode = 107
	CmdNewData             Opcode = 108
	CmdNewTexture2D        Opcode = 109
	CmdNewRenderer         Opcode = 110
	CmdNewPixelOp          Opcode = 111

	CmdAddGeometry    Opcode = 200
	CmdRemoveGeometry Opcode = 201
	CmdAddVolume      Opcode = 202
	CmdRemoveVolume   Opcode = 203
	CmdCommit         Opcode = 204
	CmdRelease        Opcode = 205
	CmdSetMaterial    Opcode = 206
	CmdSetRegion      Opcode = 207
	CmdSetPixelOp     Opcode = 208
	CmdSampleVolume   Opcode = 209

	CmdFrameBufferCreate Opcode = 300
	CmdFrameBufferMap    Opcode = 301
	CmdFrameBufferClear  Opcode = 302
	CmdRenderFrame       Opcode = 303

	CmdSetObject Opcode = 400
	CmdSetString Opcode = 401
	CmdSetInt    Opcode = 402
	CmdSetFloat  Opcode = 403
	CmdSetVec2f  Opcode = 404
	CmdSetVec3f  Opcode = 405
	CmdSetVec4f  Opcode = 406
	CmdSetVec2i  Opcode = 407
	CmdSetVec3i  Opcode = 408

	CmdGetType  Opcode = 500
	CmdGetValue Opcode = 501

	CmdLoadModule Opcode = 600
	CmdApiMode    Opcode = 601
	CmdFinalize   Opcode = 602
)

func (op Opcode) String() string {
	if info, ok := schemas[op]; ok {
		return info.Name
	}
	return fmt.Sprintf("opcode(%d)", uint32(op))
}

// Known reports whether op has a declared field schema.
func (op Opcode) Known() bool {
	_, ok := schemas[op]
	return ok
}
