package native

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga/ir"
)

type formatKey struct {
	kind       ir.ScalarKind
	width      uint8
	components uint8
}

type vertexFormat struct {
	format gputypes.VertexFormat
	size   uint64
}

// vertexFormats maps 32-bit scalar and vector input types to vertex formats.
var vertexFormats = map[formatKey]vertexFormat{
	{ir.ScalarFloat, 4, 1}: {gputypes.VertexFormatFloat32, 4},
	{ir.ScalarFloat, 4, 2}: {gputypes.VertexFormatFloat32x2, 8},
	{ir.ScalarFloat, 4, 3}: {gputypes.VertexFormatFloat32x3, 12},
	{ir.ScalarFloat, 4, 4}: {gputypes.VertexFormatFloat32x4, 16},
	{ir.ScalarUint, 4, 1}:  {gputypes.VertexFormatUint32, 4},
	{ir.ScalarUint, 4, 2}:  {gputypes.VertexFormatUint32x2, 8},
	{ir.ScalarUint, 4, 3}:  {gputypes.VertexFormatUint32x3, 12},
	{ir.ScalarUint, 4, 4}:  {gputypes.VertexFormatUint32x4, 16},
	{ir.ScalarSint, 4, 1}:  {gputypes.VertexFormatSint32, 4},
	{ir.ScalarSint, 4, 2}:  {gputypes.VertexFormatSint32x2, 8},
	{ir.ScalarSint, 4, 3}:  {gputypes.VertexFormatSint32x3, 12},
	{ir.ScalarSint, 4, 4}:  {gputypes.VertexFormatSint32x4, 16},
}

// vertexFormatOf returns the vertex format of an input type.
func vertexFormatOf(m *ir.Module, th ir.TypeHandle) (vertexFormat, bool) {
	var key formatKey
	switch t := typeInner(m, th).(type) {
	case ir.ScalarType:
		key = formatKey{t.Kind, t.Width, 1}
	case ir.VectorType:
		key = formatKey{t.Scalar.Kind, t.Scalar.Width, uint8(t.Size)}
	default:
		return vertexFormat{}, false
	}
	f, ok := vertexFormats[key]
	return f, ok
}
