package model

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/rig_importer/mesh"
)

type ShapeKind int

const (
	ShapeNone ShapeKind = iota
	ShapeSphere
	ShapeBox
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeSphere:
		return "sphere"
	case ShapeBox:
		return "box"
	default:
		return "none"
	}
}

func (k ShapeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Shape is the bounding volume of a model. It also scales the model matrix.
type Shape struct {
	Kind   ShapeKind
	Radius float32
	Size   mgl32.Vec3
}

func Sphere(radius float32) Shape {
	return Shape{Kind: ShapeSphere, Radius: radius}
}

func Box(size mgl32.Vec3) Shape {
	return Shape{Kind: ShapeBox, Size: size}
}

func (s Shape) Scale() mgl32.Vec3 {
	switch s.Kind {
	case ShapeSphere:
		return mgl32.Vec3{s.Radius, s.Radius, s.Radius}
	case ShapeBox:
		return s.Size
	default:
		return mgl32.Vec3{1, 1, 1}
	}
}

// ShapeFromBounds fits a shape of the given kind around all meshes.
func ShapeFromBounds(meshes []*mesh.Mesh, kind ShapeKind) Shape {
	var lo, hi mgl32.Vec3
	first := true
	for _, m := range meshes {
		if len(m.Vertices) == 0 {
			continue
		}
		mlo, mhi := m.Bounds()
		if first {
			lo, hi = mlo, mhi
			first = false
			continue
		}
		for c := 0; c < 3; c++ {
			if mlo[c] < lo[c] {
				lo[c] = mlo[c]
			}
			if mhi[c] > hi[c] {
				hi[c] = mhi[c]
			}
		}
	}

	switch kind {
	case ShapeSphere:
		return Sphere(hi.Sub(lo).Len() / 2)
	case ShapeBox:
		return Box(hi.Sub(lo))
	default:
		return Shape{}
	}
}

type Model struct {
	meshes   []*mesh.Mesh
	shape    Shape
	position mgl32.Vec3
	rotation mgl32.Quat
	matrix   mgl32.Mat4
}

func New(meshes []*mesh.Mesh, shape Shape) *Model {
	m := &Model{
		meshes:   meshes,
		shape:    shape,
		rotation: mgl32.QuatIdent(),
	}
	m.update()
	return m
}

func (m *Model) update() {
	s := m.shape.Scale()
	m.matrix = mgl32.Translate3D(m.position[0], m.position[1], m.position[2]).
		Mul4(m.rotation.Mat4()).
		Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}

func (m *Model) Meshes() []*mesh.Mesh { return m.meshes }
func (m *Model) Shape() Shape { return m.shape }
func (m *Model) Position() mgl32.Vec3 { return m.position }
func (m *Model) Rotation() mgl32.Quat { return m.rotation }
func (m *Model) Matrix() mgl32.Mat4 { return m.matrix }

func (m *Model) SetPosition(p mgl32.Vec3) {
	m.position = p
	m.update()
}

func (m *Model) SetRotation(r mgl32.Quat) {
	m.rotation = r.Normalize()
	m.update()
}

func (m *Model) SetShape(s Shape) {
	m.shape = s
	m.update()
}
