package mesh

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

var (
	ErrAttributeLengthMismatch = errors.New("attribute length mismatch")
	ErrIndexOutOfRange         = errors.New("index out of range")
	ErrJointOutOfRange         = errors.New("joint out of range")
)

// NoSkin marks a mesh that is not bound to any skin.
const NoSkin = -1

// Vertex attribute order in the interleaved buffer:
// position 3f, normal 3f, color 3f, texcoord 2f, weights 4f, joints 4i.
const VertexStride = (3+3+3+2+4)*4 + 4*4

type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Color    mgl32.Vec3
	TexCoord mgl32.Vec2
	Weights  mgl32.Vec4
	Joints   [4]int32
}

// Streams holds per-vertex attribute arrays; an absent attribute is nil.
// Joints are global joint indices, see SkinTable.
type Streams struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Colors    []mgl32.Vec3
	TexCoords []mgl32.Vec2
	Weights   []mgl32.Vec4
	Joints    [][4]int32
	Indices   []uint32
}

type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
	Skin     int
}

// Assemble interleaves streams into vertices. When Indices is nil the mesh is
// indexed by the identity sequence.
func Assemble(name string, s Streams) (*Mesh, error) {
	n := len(s.Positions)
	for _, a := range [...]struct {
		name   string
		count  int
		absent bool
	}{
		{"NORMAL", len(s.Normals), s.Normals == nil},
		{"COLOR", len(s.Colors), s.Colors == nil},
		{"TEXCOORD", len(s.TexCoords), s.TexCoords == nil},
		{"WEIGHTS", len(s.Weights), s.Weights == nil},
		{"JOINTS", len(s.Joints), s.Joints == nil},
	} {
		if !a.absent && a.count != n {
			return nil, errors.Wrapf(ErrAttributeLengthMismatch, "mesh %q: %s has %d elements, POSITION has %d",
				name, a.name, a.count, n)
		}
	}

	m := &Mesh{
		Name:     name,
		Vertices: make([]Vertex, n),
		Skin:     NoSkin,
	}
	for i := range m.Vertices {
		v := &m.Vertices[i]
		v.Position = s.Positions[i]
		if s.Normals != nil {
			v.Normal = s.Normals[i]
		}
		if s.Colors != nil {
			v.Color = s.Colors[i]
		}
		if s.TexCoords != nil {
			v.TexCoord = s.TexCoords[i]
		}
		if s.Weights != nil {
			v.Weights = s.Weights[i]
		}
		if s.Joints != nil {
			v.Joints = s.Joints[i]
		}
	}

	if s.Indices == nil {
		m.Indices = make([]uint32, n)
		for i := range m.Indices {
			m.Indices[i] = uint32(i)
		}
	} else {
		for i, idx := range s.Indices {
			if int(idx) >= n {
				return nil, errors.Wrapf(ErrIndexOutOfRange, "mesh %q: index[%d] = %d, %d vertices", name, i, idx, n)
			}
		}
		m.Indices = s.Indices
	}
	return m, nil
}

func putFloats(buf []byte, fs ...float32) []byte {
	for _, f := range fs {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
		buf = buf[4:]
	}
	return buf
}

// VertexBytes returns the interleaved little-endian vertex buffer, VertexStride bytes per vertex.
func (m *Mesh) VertexBytes() []byte {
	out := make([]byte, len(m.Vertices)*VertexStride)
	buf := out
	for i := range m.Vertices {
		v := &m.Vertices[i]
		buf = putFloats(buf, v.Position[:]...)
		buf = putFloats(buf, v.Normal[:]...)
		buf = putFloats(buf, v.Color[:]...)
		buf = putFloats(buf, v.TexCoord[:]...)
		buf = putFloats(buf, v.Weights[:]...)
		for _, j := range v.Joints {
			binary.LittleEndian.PutUint32(buf, uint32(j))
			buf = buf[4:]
		}
	}
	return out
}

func (m *Mesh) IndexBytes() []byte {
	out := make([]byte, len(m.Indices)*4)
	for i, idx := range m.Indices {
		binary.LittleEndian.PutUint32(out[i*4:], idx)
	}
	return out
}

// Bounds returns the axis aligned box of all positions, zero for an empty mesh.
func (m *Mesh) Bounds() (min, max mgl32.Vec3) {
	if len(m.Vertices) == 0 {
		return
	}
	min, max = m.Vertices[0].Position, m.Vertices[0].Position
	for i := range m.Vertices[1:] {
		p := m.Vertices[i+1].Position
		for c := 0; c < 3; c++ {
			if p[c] < min[c] {
				min[c] = p[c]
			}
			if p[c] > max[c] {
				max[c] = p[c]
			}
		}
	}
	return
}

func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}
