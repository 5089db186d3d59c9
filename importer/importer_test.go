package importer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/rig_importer/anim"
	"github.com/mogaika/rig_importer/mesh"
	"github.com/mogaika/rig_importer/skeleton"
)

type stubSource struct {
	*Report
	skelErr error
}

func (s *stubSource) Meshes() ([]*mesh.Mesh, error) {
	m, err := mesh.Assemble("tri", mesh.Streams{Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}})
	return []*mesh.Mesh{m}, err
}

func (s *stubSource) Skeleton() (*skeleton.Skeleton, error) {
	if s.skelErr != nil {
		return nil, s.skelErr
	}
	rest := skeleton.NewPose(1)
	rest.Names[0] = "root"
	return skeleton.Build(*rest, []mgl32.Mat4{mgl32.Ident4()})
}

func (s *stubSource) Clips() ([]*anim.Clip, error) {
	return []*anim.Clip{anim.NewClip("idle", nil)}, nil
}

func (s *stubSource) Skins() *mesh.SkinSet { return nil }

func init() {
	SetHandler(".stub", KindGLTF, func(path string, opts Options) (Source, error) {
		src := &stubSource{Report: NewReport(path, zap.NewNop())}
		src.Unsupported("stub %s", "feature")
		return src, nil
	})
	SetHandler(".broken", KindCollada, func(path string, opts Options) (Source, error) {
		return &stubSource{
			Report:  NewReport(path, zap.NewNop()),
			skelErr: errors.Wrap(skeleton.ErrInvalidSkeleton, "cycle"),
		}, nil
	})
}

func TestKindOf(t *testing.T) {
	for path, want := range map[string]SourceKind{
		"models/a.STUB": KindGLTF,
		"b.broken":      KindCollada,
		"c.obj":         KindUnknown,
		"no_extension":  KindUnknown,
	} {
		if got := KindOf(path); got != want {
			t.Errorf("KindOf(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestLoad(t *testing.T) {
	asset, err := Load("dir/robot.stub", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if asset.Name != "robot.stub" || asset.Kind != KindGLTF {
		t.Errorf("asset %q kind %v", asset.Name, asset.Kind)
	}
	if len(asset.Model.Meshes()) != 1 || asset.Skeleton.JointCount() != 1 {
		t.Errorf("asset contents %+v", asset)
	}
	if _, err := asset.Clip("idle"); err != nil {
		t.Error(err)
	}
	if _, err := asset.Clip("run"); errors.Cause(err) != anim.ErrClipNotFound {
		t.Errorf("missing clip error %v", err)
	}
	if len(asset.Warnings) != 1 || errors.Cause(asset.Warnings[0]) != ErrUnsupportedFeature {
		t.Errorf("warnings %v", asset.Warnings)
	}
	if asset.Skins == nil {
		t.Error("nil skin set")
	}
}

func TestLoadErrors(t *testing.T) {
	asset, err := Load("robot.broken", Options{})
	if asset != nil || errors.Cause(err) != skeleton.ErrInvalidSkeleton {
		t.Errorf("Load = %v, %v", asset, err)
	}
	if _, err := Load("robot.fbx", Options{}); errors.Cause(err) != ErrUnknownFormat {
		t.Errorf("unknown extension error %v", err)
	}
}

func TestMalformed(t *testing.T) {
	err := Malformed("accessor %d out of range", 4)
	if errors.Cause(err) != ErrMalformedDocument || err.Error() != "accessor 4 out of range: malformed document" {
		t.Errorf("got %v", err)
	}
}
