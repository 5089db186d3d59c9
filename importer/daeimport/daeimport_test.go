package daeimport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/rig_importer/collada"
	"github.com/mogaika/rig_importer/importer"
	"github.com/mogaika/rig_importer/utils"
)

const sceneDocument = `<?xml version="1.0" encoding="utf-8"?>
<COLLADA xmlns="http://www.collada.org/2005/11/COLLADASchema" version="1.4.1">
  <library_geometries>
    <geometry id="quad-mesh" name="quad">
      <mesh>
        <source id="quad-pos">
          <float_array id="quad-pos-a" count="12">0 0 0  1 0 0  1 1 0  0 1 0</float_array>
          <technique_common><accessor source="#quad-pos-a" count="4" stride="3"/></technique_common>
        </source>
        <source id="quad-nrm">
          <float_array id="quad-nrm-a" count="3">0 0 1</float_array>
          <technique_common><accessor source="#quad-nrm-a" count="1" stride="3"/></technique_common>
        </source>
        <source id="quad-uv">
          <float_array id="quad-uv-a" count="8">0 0  1 0  1 1  0 1</float_array>
          <technique_common><accessor source="#quad-uv-a" count="4" stride="2"/></technique_common>
        </source>
        <vertices id="quad-verts">
          <input semantic="POSITION" source="#quad-pos"/>
        </vertices>
        <polylist count="2">
          <input semantic="VERTEX" source="#quad-verts" offset="0"/>
          <input semantic="NORMAL" source="#quad-nrm" offset="1"/>
          <input semantic="TEXCOORD" source="#quad-uv" offset="2" set="0"/>
          <vcount>4 2</vcount>
          <p>0 0 0  1 0 1  2 0 2  3 0 3  0 0 0  1 0 1</p>
        </polylist>
        <lines count="1">
          <input semantic="VERTEX" source="#quad-verts" offset="0"/>
          <p>0 1</p>
        </lines>
      </mesh>
    </geometry>
    <geometry id="tri-mesh">
      <mesh>
        <source id="tri-pos">
          <float_array id="tri-pos-a" count="9">0 0 0  2 0 0  0 2 0</float_array>
          <technique_common><accessor source="#tri-pos-a" count="3" stride="3"/></technique_common>
        </source>
        <source id="tri-col">
          <float_array id="tri-col-a" count="4">1 0 0 1</float_array>
          <technique_common><accessor source="#tri-col-a" count="1" stride="4"/></technique_common>
        </source>
        <vertices id="tri-verts">
          <input semantic="POSITION" source="#tri-pos"/>
        </vertices>
        <triangles count="1">
          <input semantic="VERTEX" source="#tri-verts" offset="0"/>
          <input semantic="COLOR" source="#tri-col" offset="1"/>
          <p>0 0 1 0 2 0</p>
        </triangles>
      </mesh>
    </geometry>
  </library_geometries>
  <library_controllers>
    <controller id="skin-ctrl"/>
  </library_controllers>
  <library_visual_scenes>
    <visual_scene id="scene">
      <node id="root">
        <matrix>1 0 0 5  0 1 0 6  0 0 1 7  0 0 0 1</matrix>
        <node id="child">
          <instance_geometry url="#quad-mesh"/>
        </node>
      </node>
      <node id="a"><instance_geometry url="#tri-mesh"/></node>
      <node id="b"><instance_geometry url="#tri-mesh"/></node>
    </visual_scene>
  </library_visual_scenes>
</COLLADA>`

func decode(t *testing.T, text string, opts importer.Options) *Source {
	t.Helper()
	doc, err := collada.Decode(strings.NewReader(text))
	if err != nil {
		t.Fatal(err)
	}
	return FromDocument("scene.dae", doc, opts)
}

func unsupportedCount(warnings []error) int {
	n := 0
	for _, w := range warnings {
		if errors.Cause(w) == importer.ErrUnsupportedFeature {
			n++
		}
	}
	return n
}

func TestPolylistExpansion(t *testing.T) {
	src := decode(t, sceneDocument, importer.Options{})
	meshes, err := src.Meshes()
	if err != nil {
		t.Fatal(err)
	}
	if len(meshes) != 2 {
		t.Fatalf("%d meshes", len(meshes))
	}

	quad := meshes[0]
	if quad.Name != "quad" {
		t.Errorf("name %q", quad.Name)
	}
	wantPos := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	wantUV := []mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 0}, {1, 1}, {0, 1}}
	if len(quad.Vertices) != len(wantPos) {
		t.Fatalf("%d vertices", len(quad.Vertices))
	}
	for i, v := range quad.Vertices {
		if v.Position != wantPos[i] || v.TexCoord != wantUV[i] || v.Normal != (mgl32.Vec3{0, 0, 1}) {
			t.Errorf("vertex %d = %+v", i, v)
		}
		if quad.Indices[i] != uint32(i) {
			t.Errorf("index %d = %d", i, quad.Indices[i])
		}
	}

	tri := meshes[1]
	if tri.Name != "tri-mesh" || len(tri.Vertices) != 3 {
		t.Fatalf("tri %q with %d vertices", tri.Name, len(tri.Vertices))
	}
	for i, v := range tri.Vertices {
		if v.Color != (mgl32.Vec3{1, 0, 0}) || v.Normal != (mgl32.Vec3{}) {
			t.Errorf("tri vertex %d = %+v", i, v)
		}
	}

	// the two vertex polygon and <lines>
	if n := unsupportedCount(src.Warnings()); n != 2 {
		t.Errorf("%d unsupported warnings: %v", n, src.Warnings())
	}
}

func TestEmptySkeletonAndControllers(t *testing.T) {
	src := decode(t, sceneDocument, importer.Options{})
	skel, err := src.Skeleton()
	if err != nil {
		t.Fatal(err)
	}
	if skel.JointCount() != 0 {
		t.Errorf("%d joints", skel.JointCount())
	}
	clips, err := src.Clips()
	if err != nil || len(clips) != 0 {
		t.Errorf("clips %v, %v", clips, err)
	}
	if n := unsupportedCount(src.Warnings()); n != 1 {
		t.Errorf("%d unsupported warnings", n)
	}
}

func TestBakeNodeTransforms(t *testing.T) {
	src := decode(t, sceneDocument, importer.Options{BakeNodeTransforms: true})
	meshes, err := src.Meshes()
	if err != nil {
		t.Fatal(err)
	}
	if p := meshes[0].Vertices[5].Position; !p.ApproxEqual(mgl32.Vec3{5, 7, 7}) {
		t.Errorf("baked position %v", p)
	}
	if n := meshes[0].Vertices[0].Normal; !utils.Vec3ApproxEqual(n, mgl32.Vec3{0, 0, 1}, 1e-6) {
		t.Errorf("baked normal %v", n)
	}
	// instanced twice, left in geometry space
	if p := meshes[1].Vertices[1].Position; p != (mgl32.Vec3{2, 0, 0}) {
		t.Errorf("tri position %v", p)
	}
}

func TestMalformedIndices(t *testing.T) {
	for _, tc := range []struct {
		name, from, to string
	}{
		{"short p", "<vcount>4 2</vcount>", "<vcount>4 3</vcount>"},
		{"negative vcount", "<vcount>4 2</vcount>", "<vcount>-1 4</vcount>"},
		{"negative index", "<p>0 0 1 0 2 0</p>", "<p>0 0 -1 0 2 0</p>"},
		{"index out of range", "<p>0 0 1 0 2 0</p>", "<p>0 0 1 0 9 0</p>"},
		{"missing source", `source="#tri-col"`, `source="#nothing"`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			src := decode(t, strings.Replace(sceneDocument, tc.from, tc.to, 1), importer.Options{})
			_, err := src.Meshes()
			if errors.Cause(err) != importer.ErrMalformedDocument {
				t.Errorf("error %v", err)
			}
		})
	}
}

func TestLoadDae(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.dae")
	if err := os.WriteFile(path, []byte(sceneDocument), 0644); err != nil {
		t.Fatal(err)
	}
	if kind := importer.KindOf(path); kind != importer.KindCollada {
		t.Fatalf("kind %v", kind)
	}
	asset, err := importer.Load(path, importer.Options{SkipMeshes: true})
	if err != nil {
		t.Fatal(err)
	}
	if asset.Name != "scene.dae" || len(asset.Model.Meshes()) != 0 || asset.Skeleton.JointCount() != 0 {
		t.Errorf("asset %+v", asset)
	}
	if len(asset.Warnings) != 1 {
		t.Errorf("warnings %v", asset.Warnings)
	}
}
