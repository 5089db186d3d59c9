package daeimport

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/rig_importer/collada"
	"github.com/mogaika/rig_importer/importer"
	"github.com/mogaika/rig_importer/mesh"
)

// corners accumulates expanded polygon corners of one geometry.
// Attributes missing from some primitive are zero filled.
type corners struct {
	positions  []mgl32.Vec3
	normals    []mgl32.Vec3
	colors     []mgl32.Vec3
	texcoords  []mgl32.Vec2
	hasNormals bool
	hasColors  bool
	hasUVs     bool
}

func (c *corners) streams() mesh.Streams {
	st := mesh.Streams{Positions: c.positions}
	if c.hasNormals {
		st.Normals = c.normals
	}
	if c.hasColors {
		st.Colors = c.colors
	}
	if c.hasUVs {
		st.TexCoords = c.texcoords
	}
	return st
}

// binding is one input of a primitive resolved to its source.
type binding struct {
	src    *collada.Source
	offset int
}

func (b *binding) read(p []int, base int) ([]float32, error) {
	at := base + b.offset
	if at < 0 || at >= len(p) {
		return nil, importer.Malformed("<p> has %d entries, corner needs %d", len(p), at+1)
	}
	v, err := b.src.At(p[at])
	if err != nil {
		return nil, importer.Malformed("%v", err)
	}
	return v, nil
}

func (s *Source) Meshes() ([]*mesh.Mesh, error) {
	if s.opts.SkipMeshes {
		return nil, nil
	}

	var baked map[string]mgl32.Mat4
	if s.opts.BakeNodeTransforms {
		var err error
		if baked, err = s.instanceTransforms(); err != nil {
			return nil, err
		}
	}

	var meshes []*mesh.Mesh
	for gi := range s.doc.Geometries {
		g := &s.doc.Geometries[gi]
		name := g.Name
		if name == "" {
			name = g.ID
		}
		if name == "" {
			name = fmt.Sprintf("geometry_%d", gi)
		}
		if g.Mesh == nil {
			s.Unsupported("geometry %q: not a <mesh>", name)
			continue
		}

		m, err := s.geometry(name, g.Mesh)
		if err != nil {
			return nil, errors.Wrapf(err, "geometry %q", name)
		}
		if m == nil {
			continue
		}
		if global, ok := baked[g.ID]; ok {
			bake(m, global)
		}
		meshes = append(meshes, m)
		s.log.Debug("mesh imported", zap.String("mesh", name),
			zap.Int("vertices", len(m.Vertices)), zap.Int("triangles", m.TriangleCount()))
	}
	return meshes, nil
}

func (s *Source) geometry(name string, cm *collada.Mesh) (*mesh.Mesh, error) {
	skipped := make([]string, 0, len(cm.Skipped))
	for kind := range cm.Skipped {
		skipped = append(skipped, kind)
	}
	sort.Strings(skipped)
	for _, kind := range skipped {
		s.Unsupported("geometry %q: %d <%s> elements", name, cm.Skipped[kind], kind)
	}

	var c corners
	for i := range cm.Triangles {
		if err := s.primitive(name, cm, &cm.Triangles[i], &c); err != nil {
			return nil, errors.Wrapf(err, "triangles %d", i)
		}
	}
	for i := range cm.Polylists {
		if err := s.primitive(name, cm, &cm.Polylists[i], &c); err != nil {
			return nil, errors.Wrapf(err, "polylist %d", i)
		}
	}
	if len(c.positions) == 0 {
		s.Unsupported("geometry %q: no triangles", name)
		return nil, nil
	}
	return mesh.Assemble(name, c.streams())
}

// primitive fan-triangulates every polygon and appends its corners, no vertex is shared.
func (s *Source) primitive(name string, cm *collada.Mesh, p *collada.Primitive, c *corners) error {
	var position, normal, color, texcoord *binding
	inputs := cm.ExpandInputs(p.Inputs)
	for i := range inputs {
		in := &inputs[i]
		var slot **binding
		var need int
		switch in.Semantic {
		case "POSITION":
			slot, need = &position, 3
		case "NORMAL":
			slot, need = &normal, 3
		case "COLOR":
			slot, need = &color, 3
		case "TEXCOORD":
			slot, need = &texcoord, 2
		default:
			continue
		}
		// first input of a semantic wins
		if *slot != nil {
			continue
		}
		src, err := cm.Source(in.Source)
		if err != nil {
			return importer.Malformed("%v", err)
		}
		if src.Stride < need {
			return importer.Malformed("%s source %q has stride %d", in.Semantic, src.ID, src.Stride)
		}
		*slot = &binding{src: src, offset: in.Offset}
	}
	if position == nil {
		s.Unsupported("geometry %q: primitive without POSITION", name)
		return nil
	}

	c.hasNormals = c.hasNormals || normal != nil
	c.hasColors = c.hasColors || color != nil
	c.hasUVs = c.hasUVs || texcoord != nil

	stride := p.IndexStride()
	emit := func(corner int) error {
		base := corner * stride
		v, err := position.read(p.P, base)
		if err != nil {
			return err
		}
		c.positions = append(c.positions, mgl32.Vec3{v[0], v[1], v[2]})

		var n, col mgl32.Vec3
		var uv mgl32.Vec2
		if normal != nil {
			if v, err = normal.read(p.P, base); err != nil {
				return err
			}
			n = mgl32.Vec3{v[0], v[1], v[2]}
		}
		if color != nil {
			if v, err = color.read(p.P, base); err != nil {
				return err
			}
			col = mgl32.Vec3{v[0], v[1], v[2]}
		}
		if texcoord != nil {
			if v, err = texcoord.read(p.P, base); err != nil {
				return err
			}
			uv = mgl32.Vec2{v[0], v[1]}
		}
		c.normals = append(c.normals, n)
		c.colors = append(c.colors, col)
		c.texcoords = append(c.texcoords, uv)
		return nil
	}

	corner := 0
	for pi, count := range p.VertexCounts(3) {
		if count < 0 {
			return importer.Malformed("polygon %d: vertex count %d", pi, count)
		}
		if (corner+count)*stride > len(p.P) {
			return importer.Malformed("polygon %d: <p> has %d entries, %d corners need %d",
				pi, len(p.P), corner+count, (corner+count)*stride)
		}
		if count < 3 {
			s.Unsupported("geometry %q: polygon %d has %d vertices", name, pi, count)
			corner += count
			continue
		}
		for k := 1; k+1 < count; k++ {
			for _, ci := range [3]int{corner, corner + k, corner + k + 1} {
				if err := emit(ci); err != nil {
					return errors.Wrapf(err, "polygon %d", pi)
				}
			}
		}
		corner += count
	}
	return nil
}

// bake moves mesh vertices into the space of the node instancing it.
func bake(m *mesh.Mesh, global mgl32.Mat4) {
	normalMat := global.Mat3().Inv().Transpose()
	for i := range m.Vertices {
		v := &m.Vertices[i]
		v.Position = global.Mul4x1(v.Position.Vec4(1)).Vec3()
		if n := normalMat.Mul3x1(v.Normal); n.Len() > 0 {
			v.Normal = n.Normalize()
		}
	}
}
