package gltfutils

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/rig_importer/anim"
	"github.com/mogaika/rig_importer/importer"
	"github.com/mogaika/rig_importer/importer/gltfimport"
	"github.com/mogaika/rig_importer/mesh"
	"github.com/mogaika/rig_importer/model"
	"github.com/mogaika/rig_importer/skeleton"
	"github.com/mogaika/rig_importer/utils"
)

func testAsset(t *testing.T) *importer.Asset {
	t.Helper()
	rest := skeleton.NewPose(2)
	rest.Names = []string{"root", "arm"}
	rest.Parents[1] = 0
	rest.Joints[1].Translation = mgl32.Vec3{0, 1, 0}
	skel, err := skeleton.Build(*rest, []mgl32.Mat4{mgl32.Ident4(), mgl32.Translate3D(0, -1, 0)})
	if err != nil {
		t.Fatal(err)
	}

	m, err := mesh.Assemble("tri", mesh.Streams{
		Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Weights:   []mgl32.Vec4{{1, 0, 0, 0}, {1, 0, 0, 0}, {0.5, 0.5, 0, 0}},
		Joints:    [][4]int32{{1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}},
	})
	if err != nil {
		t.Fatal(err)
	}
	skins := mesh.NewSkinSet()
	m.Skin = skins.Add(mesh.SkinTable{Name: "body", Joints: []int{1, 0}})
	if err := skins.Bind(0, m.Skin); err != nil {
		t.Fatal(err)
	}

	clip := anim.NewClip("wave", []anim.TransformTrack{{
		Joint: 1,
		Rotation: anim.QuaternionTrack{
			Frames: []anim.QuaternionFrame{
				{Time: 0, Value: mgl32.QuatIdent()},
				{Time: 2, Value: mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})},
			},
			Interpolation: anim.Linear,
		},
	}})

	return &importer.Asset{
		Name:     "test",
		Kind:     importer.KindGLTF,
		Model:    model.New([]*mesh.Mesh{m}, model.Shape{}),
		Skeleton: skel,
		Clips:    anim.NewLibrary(clip),
		Skins:    skins,
	}
}

func TestFromAssetLayout(t *testing.T) {
	doc, err := FromAsset(testAsset(t))
	if err != nil {
		t.Fatal(err)
	}
	// the skinned mesh rides on the first joint of its skin
	if len(doc.Nodes) != 2 || doc.Nodes[1].Mesh == nil || doc.Nodes[1].Skin == nil || doc.Nodes[1].Name != "arm" {
		t.Fatalf("nodes %+v", doc.Nodes)
	}
	if doc.Meshes[0].Name != "tri" {
		t.Errorf("mesh name %q", doc.Meshes[0].Name)
	}
	if c := doc.Nodes[0].Children; len(c) != 1 || c[0] != 1 {
		t.Errorf("root children %v", c)
	}
	if roots := doc.Scenes[0].Nodes; len(roots) != 1 || roots[0] != 0 {
		t.Errorf("scene roots %v", roots)
	}
	if j := doc.Skins[0].Joints; len(j) != 2 || j[0] != 1 || j[1] != 0 {
		t.Errorf("skin joints %v", j)
	}
	if len(doc.Animations) != 1 || len(doc.Animations[0].Channels) != 1 {
		t.Fatalf("animations %+v", doc.Animations)
	}
	if p := doc.Animations[0].Channels[0].Target.Path; p != gltf.TRSRotation {
		t.Errorf("channel path %v", p)
	}
}

func TestFromAssetRoundTrip(t *testing.T) {
	doc, err := FromAsset(testAsset(t))
	if err != nil {
		t.Fatal(err)
	}
	back, err := importer.Collect("rt.gltf", importer.KindGLTF, gltfimport.FromDocument("rt.gltf", doc, importer.Options{}))
	if err != nil {
		t.Fatal(err)
	}
	if len(back.Warnings) != 0 {
		t.Errorf("warnings %v", back.Warnings)
	}

	if n := back.Skeleton.JointCount(); n != 2 {
		t.Fatalf("%d joints after round trip", n)
	}
	arm, err := back.Skeleton.Index("arm")
	if err != nil {
		t.Fatal(err)
	}
	if arm != 1 || back.Skeleton.Parent(arm) != 0 {
		t.Errorf("arm %d parent %d", arm, back.Skeleton.Parent(arm))
	}
	if tr := back.Skeleton.LocalRest(arm).Translation; !utils.Vec3ApproxEqual(tr, mgl32.Vec3{0, 1, 0}, 1e-6) {
		t.Errorf("arm rest %v", tr)
	}
	if ibm := back.Skeleton.InverseBind(arm); !utils.Mat4ApproxEqual(ibm, mgl32.Translate3D(0, -1, 0), 1e-6) {
		t.Errorf("arm inverse bind %v", ibm)
	}

	clip, err := back.Clip("wave")
	if err != nil {
		t.Fatal(err)
	}
	if clip.Duration() != 2 {
		t.Errorf("duration %v", clip.Duration())
	}

	meshes := back.Model.Meshes()
	if len(meshes) != 1 || len(meshes[0].Vertices) != 3 || meshes[0].Name != "tri" {
		t.Fatalf("meshes %v", meshes)
	}
	for i, v := range meshes[0].Vertices {
		if v.Joints != [4]int32{1, 0, 0, 0} {
			t.Errorf("vertex %d joints %v", i, v.Joints)
		}
	}
	if w := meshes[0].Vertices[2].Weights; w != (mgl32.Vec4{0.5, 0.5, 0, 0}) {
		t.Errorf("weights %v", w)
	}
}

func TestExportBinary(t *testing.T) {
	doc, err := FromAsset(testAsset(t))
	if err != nil {
		t.Fatal(err)
	}
	doc.Scenes[0].Nodes = nil

	var buf bytes.Buffer
	if err := ExportBinary(&buf, doc); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("glTF")) {
		t.Fatalf("header %q", buf.Bytes()[:4])
	}

	var decoded gltf.Document
	if err := gltf.NewDecoder(bytes.NewReader(buf.Bytes())).Decode(&decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Nodes) != 2 || len(decoded.Scenes[0].Nodes) != 1 {
		t.Errorf("decoded %d nodes, scene %v", len(decoded.Nodes), decoded.Scenes[0].Nodes)
	}
}

func TestStaticMeshHosts(t *testing.T) {
	asset := testAsset(t)
	tri := asset.Model.Meshes()[0]
	static := func(name string) *mesh.Mesh {
		m, err := mesh.Assemble(name, mesh.Streams{Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}})
		if err != nil {
			t.Fatal(err)
		}
		return m
	}
	asset.Model = model.New([]*mesh.Mesh{tri, static("prop"), static("crate")}, model.Shape{})

	doc, err := FromAsset(asset)
	if err != nil {
		t.Fatal(err)
	}
	// root sits at the origin and carries the first static mesh, arm is taken by the skinned one
	if len(doc.Nodes) != 3 {
		t.Fatalf("%d nodes", len(doc.Nodes))
	}
	if n := doc.Nodes[0]; n.Name != "root" || n.Mesh == nil || *n.Mesh != 1 || n.Skin != nil {
		t.Errorf("root node %+v", n)
	}
	if n := doc.Nodes[2]; n.Name != "crate" || n.Mesh == nil || *n.Mesh != 2 {
		t.Errorf("extra node %+v", n)
	}

	back, err := importer.Collect("rt.gltf", importer.KindGLTF, gltfimport.FromDocument("rt.gltf", doc, importer.Options{}))
	if err != nil {
		t.Fatal(err)
	}
	meshes := back.Model.Meshes()
	if len(meshes) != 3 || meshes[1].Name != "prop" || meshes[1].Skin != mesh.NoSkin {
		t.Errorf("meshes %v", meshes)
	}
}
