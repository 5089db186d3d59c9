package gltfutils

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/rig_importer/anim"
	"github.com/mogaika/rig_importer/importer"
	"github.com/mogaika/rig_importer/mesh"
	"github.com/mogaika/rig_importer/skeleton"
	"github.com/mogaika/rig_importer/utils"
)

// FromAsset builds a document with one node per joint (node index == joint index).
// Meshes are carried by joint nodes so that importing the document again yields
// the same joints; a mesh gets a node of its own only when no joint can carry it.
func FromAsset(asset *importer.Asset) (*gltf.Document, error) {
	doc := NewDocument()

	if asset.Skeleton != nil {
		exportJoints(doc, asset.Skeleton)
	}

	meshes := asset.Model.Meshes()
	tables := make([]*mesh.SkinTable, len(meshes))
	if asset.Skins != nil {
		for mi := range meshes {
			tables[mi] = asset.Skins.For(mi)
		}
	}
	hosts, err := meshHosts(asset.Skeleton, tables)
	if err != nil {
		return nil, err
	}

	skinIndex := make(map[int]uint32)
	for mi, m := range meshes {
		table := tables[mi]
		prim, err := exportMesh(doc, m, table)
		if err != nil {
			return nil, errors.Wrapf(err, "mesh %q", m.Name)
		}

		var node *gltf.Node
		if hosts[mi] >= 0 {
			node = doc.Nodes[hosts[mi]]
		} else {
			node = &gltf.Node{
				Name:     m.Name,
				Rotation: [4]float32{0, 0, 0, 1},
				Scale:    [3]float32{1, 1, 1},
			}
			doc.Nodes = append(doc.Nodes, node)
		}
		node.Mesh = gltf.Index(uint32(len(doc.Meshes)))

		if table != nil {
			si, ok := skinIndex[m.Skin]
			if !ok {
				if si, err = exportSkin(doc, table, asset.Skeleton); err != nil {
					return nil, err
				}
				skinIndex[m.Skin] = si
			}
			node.Skin = gltf.Index(si)
		}
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: m.Name, Primitives: []*gltf.Primitive{prim}})
	}

	if asset.Clips != nil {
		for _, clip := range asset.Clips.Clips() {
			doc.Animations = append(doc.Animations, exportClip(doc, clip))
		}
	}

	doc.Scenes[0].Nodes = RootNodes(doc)
	return doc, nil
}

// meshHosts picks the joint node carrying each mesh, -1 when none is free.
// A skinned mesh goes to a joint of its skin, viewers ignore the node transform
// of skinned meshes. A static mesh needs a joint placed at the origin in rest pose.
func meshHosts(skel *skeleton.Skeleton, tables []*mesh.SkinTable) ([]int, error) {
	hosts := make([]int, len(tables))
	for mi := range hosts {
		hosts[mi] = -1
	}
	if skel == nil || skel.JointCount() == 0 {
		return hosts, nil
	}

	n := skel.JointCount()
	globals := make([]mgl32.Mat4, n)
	if err := skel.GlobalTransforms(skel.RestPose(), globals); err != nil {
		return nil, err
	}
	used := make([]bool, n)
	for mi, table := range tables {
		if table != nil {
			for _, j := range table.Joints {
				if j >= 0 && j < n && !used[j] {
					hosts[mi] = j
					break
				}
			}
		} else {
			for j := 0; j < n; j++ {
				if !used[j] && utils.Mat4ApproxEqual(globals[j], mgl32.Ident4(), 1e-6) {
					hosts[mi] = j
					break
				}
			}
		}
		if hosts[mi] >= 0 {
			used[hosts[mi]] = true
		}
	}
	return hosts, nil
}

func exportJoints(doc *gltf.Document, skel *skeleton.Skeleton) {
	base := uint32(len(doc.Nodes))
	for j := 0; j < skel.JointCount(); j++ {
		rest := skel.LocalRest(j)
		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name:        skel.Name(j),
			Translation: rest.Translation,
			Rotation:    utils.QuatToArray(rest.Rotation),
			Scale:       rest.Scale,
		})
	}
	for j := 0; j < skel.JointCount(); j++ {
		if p := skel.Parent(j); p != skeleton.NoParent {
			parent := doc.Nodes[base+uint32(p)]
			parent.Children = append(parent.Children, base+uint32(j))
		}
	}
}

func exportSkin(doc *gltf.Document, table *mesh.SkinTable, skel *skeleton.Skeleton) (uint32, error) {
	skin := &gltf.Skin{Name: table.Name, Joints: make([]uint32, len(table.Joints))}
	ibm := make([][4][4]float32, len(table.Joints))
	for k, j := range table.Joints {
		if skel == nil || j < 0 || j >= skel.JointCount() {
			return 0, errors.Wrapf(mesh.ErrJointOutOfRange, "skin %q: joint %d", table.Name, j)
		}
		skin.Joints[k] = uint32(j)
		ibm[k] = utils.Mat4ToColumnMajor(skel.InverseBind(j))
	}
	skin.InverseBindMatrices = gltf.Index(modeler.WriteAccessor(doc, gltf.TargetNone, ibm))
	doc.Skins = append(doc.Skins, skin)
	return uint32(len(doc.Skins) - 1), nil
}

func exportMesh(doc *gltf.Document, m *mesh.Mesh, table *mesh.SkinTable) (*gltf.Primitive, error) {
	n := len(m.Vertices)
	positions := make([][3]float32, n)
	normals := make([][3]float32, n)
	colors := make([][3]float32, n)
	uvs := make([][2]float32, n)
	var hasNormals, hasColors, hasUVs bool
	for i := range m.Vertices {
		v := &m.Vertices[i]
		positions[i] = v.Position
		normals[i] = v.Normal
		colors[i] = v.Color
		uvs[i] = v.TexCoord
		hasNormals = hasNormals || v.Normal != mgl32.Vec3{}
		hasColors = hasColors || v.Color != mgl32.Vec3{}
		hasUVs = hasUVs || v.TexCoord != mgl32.Vec2{}
	}

	attributes := map[string]uint32{
		"POSITION": modeler.WritePosition(doc, positions),
	}
	if hasNormals {
		attributes["NORMAL"] = modeler.WriteNormal(doc, normals)
	}
	if hasColors {
		attributes["COLOR_0"] = modeler.WriteAccessor(doc, gltf.TargetArrayBuffer, colors)
	}
	if hasUVs {
		attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(doc, uvs)
	}

	if table != nil {
		local := make(map[int32]uint16, len(table.Joints))
		for k, j := range table.Joints {
			if _, ok := local[int32(j)]; !ok {
				local[int32(j)] = uint16(k)
			}
		}
		joints := make([][4]uint16, n)
		weights := make([][4]float32, n)
		for i := range m.Vertices {
			v := &m.Vertices[i]
			weights[i] = v.Weights
			for k, j := range v.Joints {
				lj, ok := local[j]
				if !ok && v.Weights[k] != 0 {
					return nil, errors.Wrapf(mesh.ErrJointOutOfRange, "vertex %d: joint %d not in skin %q", i, j, table.Name)
				}
				joints[i][k] = lj
			}
		}
		attributes["JOINTS_0"] = modeler.WriteJoints(doc, joints)
		attributes["WEIGHTS_0"] = modeler.WriteWeights(doc, weights)
	}

	return &gltf.Primitive{
		Attributes: attributes,
		Indices:    gltf.Index(modeler.WriteIndices(doc, m.Indices)),
	}, nil
}

func interpolation(i anim.Interpolation) gltf.Interpolation {
	switch i {
	case anim.Constant:
		return gltf.InterpolationStep
	case anim.Cubic:
		return gltf.InterpolationCubicSpline
	default:
		return gltf.InterpolationLinear
	}
}

func exportClip(doc *gltf.Document, clip *anim.Clip) *gltf.Animation {
	ga := &gltf.Animation{Name: clip.Name()}
	addChannel := func(joint int, path gltf.TRSProperty, interp anim.Interpolation, times []float32, values interface{}) {
		ga.Samplers = append(ga.Samplers, &gltf.AnimationSampler{
			Input:         gltf.Index(modeler.WriteAccessor(doc, gltf.TargetNone, times)),
			Output:        gltf.Index(modeler.WriteAccessor(doc, gltf.TargetNone, values)),
			Interpolation: interpolation(interp),
		})
		ga.Channels = append(ga.Channels, &gltf.Channel{
			Sampler: gltf.Index(uint32(len(ga.Samplers) - 1)),
			Target:  gltf.ChannelTarget{Node: gltf.Index(uint32(joint)), Path: path},
		})
	}

	for _, tt := range clip.Tracks() {
		for _, vt := range []struct {
			path  gltf.TRSProperty
			track *anim.VectorTrack
		}{
			{gltf.TRSTranslation, &tt.Position},
			{gltf.TRSScale, &tt.Scaling},
		} {
			if vt.track.Len() == 0 {
				continue
			}
			times, values := vectorKeys(vt.track)
			addChannel(tt.Joint, vt.path, vt.track.Interpolation, times, values)
		}
		if tt.Rotation.Len() != 0 {
			times, values := quaternionKeys(&tt.Rotation)
			addChannel(tt.Joint, gltf.TRSRotation, tt.Rotation.Interpolation, times, values)
		}
	}
	return ga
}

// vectorKeys flattens frames into sampler input and output, cubic tracks as in-tangent, value, out-tangent triples.
func vectorKeys(track *anim.VectorTrack) ([]float32, [][3]float32) {
	times := make([]float32, len(track.Frames))
	var values [][3]float32
	for k, f := range track.Frames {
		times[k] = f.Time
		if track.Interpolation == anim.Cubic {
			values = append(values, f.In, f.Value, f.Out)
		} else {
			values = append(values, f.Value)
		}
	}
	return times, values
}

func quaternionKeys(track *anim.QuaternionTrack) ([]float32, [][4]float32) {
	times := make([]float32, len(track.Frames))
	var values [][4]float32
	for k, f := range track.Frames {
		times[k] = f.Time
		if track.Interpolation == anim.Cubic {
			values = append(values, utils.QuatToArray(f.In), utils.QuatToArray(f.Value), utils.QuatToArray(f.Out))
		} else {
			values = append(values, utils.QuatToArray(f.Value))
		}
	}
	return times, values
}
