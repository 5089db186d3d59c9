package gltfimport

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/mogaika/rig_importer/importer"
	"github.com/mogaika/rig_importer/mesh"
)

// meshSkins returns the skin of every glTF mesh referenced together with a skin by some node.
func (s *Source) meshSkins() map[uint32]int {
	owners := make(map[uint32]int)
	for i, node := range s.doc.Nodes {
		if node.Mesh == nil || node.Skin == nil {
			continue
		}
		if prev, ok := owners[*node.Mesh]; ok && prev != int(*node.Skin) {
			s.Unsupported("node %d: mesh %d already skinned by skin %d", i, *node.Mesh, prev)
			continue
		}
		owners[*node.Mesh] = int(*node.Skin)
	}
	return owners
}

// skinned reports a primitive carrying both skinning attributes.
func skinned(prim *gltf.Primitive) bool {
	_, hasJoints := prim.Attributes["JOINTS_0"]
	_, hasWeights := prim.Attributes["WEIGHTS_0"]
	return hasJoints && hasWeights
}

func (s *Source) Meshes() ([]*mesh.Mesh, error) {
	if s.opts.SkipMeshes {
		return nil, nil
	}

	for si, skin := range s.doc.Skins {
		name := skin.Name
		if name == "" {
			name = fmt.Sprintf("skin_%d", si)
		}
		joints := make([]int, len(skin.Joints))
		for k, j := range skin.Joints {
			joints[k] = int(j)
		}
		s.skins.Add(mesh.SkinTable{Name: name, Joints: joints})
	}
	owners := s.meshSkins()

	var meshes []*mesh.Mesh
	for mi, gm := range s.doc.Meshes {
		base := gm.Name
		if base == "" {
			base = fmt.Sprintf("mesh_%d", mi)
		}

		skin := mesh.NoSkin
		if si, ok := owners[uint32(mi)]; ok {
			if si >= s.skins.Len() {
				return nil, importer.Malformed("mesh %d: skin %d out of range", mi, si)
			}
			skin = si
		} else if s.skins.Len() == 1 {
			skin = 0
		}

		for pi, prim := range gm.Primitives {
			name := base
			if len(gm.Primitives) > 1 {
				name = fmt.Sprintf("%s_%d", base, pi)
			}
			if prim.Mode != gltf.PrimitiveTriangles {
				s.Unsupported("mesh %q: primitive mode %v", name, prim.Mode)
				continue
			}

			// static primitives stay unbound even when the node has a skin
			primSkin := skin
			if !skinned(prim) {
				primSkin = mesh.NoSkin
			}
			m, err := s.primitive(name, prim, primSkin)
			if errors.Cause(err) == errSparse {
				s.Unsupported("mesh %q: %v", name, err)
				continue
			} else if err != nil {
				return nil, errors.Wrapf(err, "mesh %q", name)
			}
			if m == nil {
				continue
			}
			if primSkin != mesh.NoSkin {
				m.Skin = primSkin
				if err := s.skins.Bind(len(meshes), primSkin); err != nil {
					return nil, err
				}
			}
			meshes = append(meshes, m)
			s.log.Debug("mesh imported", zap.String("mesh", name),
				zap.Int("vertices", len(m.Vertices)), zap.Int("triangles", m.TriangleCount()))
		}
	}
	return meshes, nil
}

func (s *Source) primitive(name string, prim *gltf.Primitive, skin int) (*mesh.Mesh, error) {
	doc := s.doc
	var streams mesh.Streams

	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		s.Unsupported("mesh %q: primitive without POSITION", name)
		return nil, nil
	}
	acr, err := accessor(doc, posIdx)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(doc, acr, nil)
	if err != nil {
		return nil, importer.Malformed("POSITION: %v", err)
	}
	streams.Positions = make([]mgl32.Vec3, len(positions))
	for i, p := range positions {
		streams.Positions[i] = p
	}

	if idx, ok := prim.Attributes["NORMAL"]; ok {
		if acr, err = accessor(doc, idx); err != nil {
			return nil, err
		}
		normals, err := modeler.ReadNormal(doc, acr, nil)
		if err != nil {
			return nil, importer.Malformed("NORMAL: %v", err)
		}
		streams.Normals = make([]mgl32.Vec3, len(normals))
		for i, n := range normals {
			streams.Normals[i] = n
		}
	}

	if idx, ok := prim.Attributes["COLOR_0"]; ok {
		if acr, err = accessor(doc, idx); err != nil {
			return nil, err
		}
		if streams.Colors, err = readColors(doc, acr); err != nil {
			return nil, errors.Wrap(err, "COLOR_0")
		}
	}

	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		if acr, err = accessor(doc, idx); err != nil {
			return nil, err
		}
		uvs, err := modeler.ReadTextureCoord(doc, acr, nil)
		if err != nil {
			return nil, importer.Malformed("TEXCOORD_0: %v", err)
		}
		streams.TexCoords = make([]mgl32.Vec2, len(uvs))
		for i, uv := range uvs {
			streams.TexCoords[i] = uv
		}
	}

	jointsIdx, hasJoints := prim.Attributes["JOINTS_0"]
	weightsIdx, hasWeights := prim.Attributes["WEIGHTS_0"]
	if hasJoints != hasWeights {
		s.Unsupported("mesh %q: JOINTS_0 and WEIGHTS_0 must come together", name)
	} else if hasJoints && skin == mesh.NoSkin {
		s.Unsupported("mesh %q: skinning attributes without a skin", name)
	} else if hasJoints {
		if acr, err = accessor(doc, weightsIdx); err != nil {
			return nil, err
		}
		weights, err := modeler.ReadWeights(doc, acr, nil)
		if err != nil {
			return nil, importer.Malformed("WEIGHTS_0: %v", err)
		}
		streams.Weights = make([]mgl32.Vec4, len(weights))
		for i, w := range weights {
			streams.Weights[i] = w
		}

		if acr, err = accessor(doc, jointsIdx); err != nil {
			return nil, err
		}
		local, err := modeler.ReadJoints(doc, acr, nil)
		if err != nil {
			return nil, importer.Malformed("JOINTS_0: %v", err)
		}
		if streams.Joints, err = s.skins.Table(skin).RemapAll(local); err != nil {
			return nil, err
		}
	}

	if prim.Indices != nil {
		if acr, err = accessor(doc, *prim.Indices); err != nil {
			return nil, err
		}
		if streams.Indices, err = modeler.ReadIndices(doc, acr, nil); err != nil {
			return nil, importer.Malformed("indices: %v", err)
		}
	}

	return mesh.Assemble(name, streams)
}
