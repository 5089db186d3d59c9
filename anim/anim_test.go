package anim

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/rig_importer/skeleton"
	"github.com/mogaika/rig_importer/utils"
)

const eps = 1e-4

func rotZ(deg float32) mgl32.Quat {
	return mgl32.QuatRotate(mgl32.DegToRad(deg), mgl32.Vec3{0, 0, 1})
}

func linearVector() *VectorTrack {
	return &VectorTrack{
		Interpolation: Linear,
		Frames: []VectorFrame{
			{Time: 1, Value: mgl32.Vec3{1, 0, 0}},
			{Time: 2, Value: mgl32.Vec3{4, 0, 0}},
			{Time: 3, Value: mgl32.Vec3{3, 2, 0}},
		},
	}
}

func TestVectorSample(t *testing.T) {
	tr := linearVector()
	for _, tc := range []struct {
		t    float32
		loop bool
		want mgl32.Vec3
	}{
		{-5, false, mgl32.Vec3{1, 0, 0}},
		{1, false, mgl32.Vec3{1, 0, 0}},
		{1.5, false, mgl32.Vec3{2.5, 0, 0}},
		{2, false, mgl32.Vec3{4, 0, 0}},
		{2.5, false, mgl32.Vec3{3.5, 1, 0}},
		{3, false, mgl32.Vec3{3, 2, 0}},
		{100, false, mgl32.Vec3{3, 2, 0}},
		// period is 2, 3 wraps back to 1
		{3, true, mgl32.Vec3{1, 0, 0}},
		{3.5, true, mgl32.Vec3{2.5, 0, 0}},
		{0.5, true, mgl32.Vec3{3.5, 1, 0}},
	} {
		got := tr.Sample(tc.t, tc.loop)
		if !utils.Vec3ApproxEqual(got, tc.want, eps) {
			t.Errorf("Sample(%v, %v) = %v, want %v", tc.t, tc.loop, got, tc.want)
		}
	}
}

func TestLoopPeriodic(t *testing.T) {
	tr := linearVector()
	rt := &QuaternionTrack{
		Interpolation: Linear,
		Frames: []QuaternionFrame{
			{Time: 0, Value: rotZ(0)},
			{Time: 0.5, Value: rotZ(60)},
			{Time: 1.25, Value: rotZ(170)},
		},
	}
	for ts := float32(-3); ts < 6; ts += 0.37 {
		a, b := tr.Sample(ts, true), tr.Sample(ts+2, true)
		if !utils.Vec3ApproxEqual(a, b, 1e-3) {
			t.Errorf("vector t=%v: %v != %v", ts, a, b)
		}
		qa, qb := rt.Sample(ts, true), rt.Sample(ts+1.25, true)
		if !qa.OrientationEqualThreshold(qb, 1e-3) {
			t.Errorf("rotation t=%v: %v != %v", ts, qa, qb)
		}
	}
}

func TestEmptyAndSingle(t *testing.T) {
	var vt VectorTrack
	if v := vt.Sample(1, false); v != (mgl32.Vec3{}) {
		t.Errorf("empty vector track = %v", v)
	}
	var qt QuaternionTrack
	if q := qt.Sample(1, true); q != mgl32.QuatIdent() {
		t.Errorf("empty rotation track = %v", q)
	}
	var tt TransformTrack
	if s := tt.Sample(1, false).Scale; s != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("empty scaling track = %v", s)
	}

	vt.Frames = []VectorFrame{{Time: 2, Value: mgl32.Vec3{7, 8, 9}}}
	for _, ts := range []float32{-1, 2, 10} {
		if v := vt.Sample(ts, true); v != (mgl32.Vec3{7, 8, 9}) {
			t.Errorf("single frame at %v = %v", ts, v)
		}
	}
}

func TestRotationLinear(t *testing.T) {
	a, b := rotZ(0), rotZ(90)
	tr := &QuaternionTrack{
		Interpolation: Linear,
		Frames:        []QuaternionFrame{{Time: 0, Value: a}, {Time: 1, Value: b}},
	}
	if q := tr.Sample(0, false); !q.ApproxEqualThreshold(a, eps) {
		t.Errorf("f=0: %v, want %v", q, a)
	}
	if q := tr.Sample(1, false); !q.ApproxEqualThreshold(b, eps) {
		t.Errorf("f=1: %v, want %v", q, b)
	}
	for f := float32(0); f <= 1; f += 0.1 {
		q := tr.Sample(f, false)
		if !mgl32.FloatEqualThreshold(q.Len(), 1, eps) {
			t.Errorf("f=%v: length %v", f, q.Len())
		}
	}
	if q := tr.Sample(0.5, false); !q.OrientationEqualThreshold(rotZ(45), eps) {
		t.Errorf("f=0.5: %v, want %v", q, rotZ(45))
	}
}

func TestRotationShortestArc(t *testing.T) {
	tr := &QuaternionTrack{
		Interpolation: Linear,
		Frames: []QuaternionFrame{
			{Time: 0, Value: rotZ(10)},
			{Time: 1, Value: rotZ(50).Scale(-1)},
		},
	}
	if q := tr.Sample(0.5, false); !q.OrientationEqualThreshold(rotZ(30), eps) {
		t.Errorf("midpoint %v, want orientation of %v", q, rotZ(30))
	}
}

func TestConstant(t *testing.T) {
	tr := linearVector()
	tr.Interpolation = Constant
	if v := tr.Sample(1.99, false); v != (mgl32.Vec3{1, 0, 0}) {
		t.Errorf("constant at 1.99 = %v", v)
	}
	if v := tr.Sample(2, false); v != (mgl32.Vec3{4, 0, 0}) {
		t.Errorf("constant at 2 = %v", v)
	}
}

func TestZeroWidthBracket(t *testing.T) {
	tr := &VectorTrack{
		Interpolation: Linear,
		Frames: []VectorFrame{
			{Time: 0, Value: mgl32.Vec3{0, 0, 0}},
			{Time: 1, Value: mgl32.Vec3{1, 0, 0}},
			{Time: 1, Value: mgl32.Vec3{5, 0, 0}},
		},
	}
	if v := tr.Sample(1, false); v != (mgl32.Vec3{1, 0, 0}) {
		t.Errorf("duplicate time sample = %v", v)
	}
}

func TestCubic(t *testing.T) {
	tr := &VectorTrack{
		Interpolation: Cubic,
		Frames: []VectorFrame{
			{Time: 0, Value: mgl32.Vec3{0, 0, 0}, Out: mgl32.Vec3{3, 0, 0}},
			{Time: 2, Value: mgl32.Vec3{2, 4, 0}, In: mgl32.Vec3{-1, 0, 0}},
		},
	}
	if v := tr.Sample(0, false); !utils.Vec3ApproxEqual(v, mgl32.Vec3{0, 0, 0}, eps) {
		t.Errorf("cubic start %v", v)
	}
	if v := tr.Sample(2, false); !utils.Vec3ApproxEqual(v, mgl32.Vec3{2, 4, 0}, eps) {
		t.Errorf("cubic end %v", v)
	}
	// midpoint: 0.5*a + 0.125*w*out + 0.5*b - 0.125*w*in
	want := mgl32.Vec3{1 + 0.75 + 0.25, 2, 0}
	if v := tr.Sample(1, false); !utils.Vec3ApproxEqual(v, want, eps) {
		t.Errorf("cubic midpoint %v, want %v", v, want)
	}

	qt := &QuaternionTrack{
		Interpolation: Cubic,
		Frames:        []QuaternionFrame{{Time: 0, Value: rotZ(0)}, {Time: 1, Value: rotZ(90)}},
	}
	if q := qt.Sample(1, false); !q.ApproxEqualThreshold(rotZ(90), eps) {
		t.Errorf("cubic rotation end %v", q)
	}
	if q := qt.Sample(0.3, false); !mgl32.FloatEqualThreshold(q.Len(), 1, eps) {
		t.Errorf("cubic rotation not normalized: %v", q.Len())
	}
}

func TestClipDuration(t *testing.T) {
	c := NewClip("walk", []TransformTrack{
		{Joint: 0, Position: VectorTrack{Frames: []VectorFrame{{Time: 0.25}, {Time: 0.5}}}},
		{Joint: 3, Rotation: QuaternionTrack{Frames: []QuaternionFrame{{Time: 0}, {Time: 0.8}, {Time: 2.125}}}},
		{Joint: 4},
	})
	if c.Duration() != 2.125 {
		t.Errorf("duration %v", c.Duration())
	}
	if c.StartTime() != 0 {
		t.Errorf("start %v", c.StartTime())
	}
	if c.Track(3) == nil || c.Track(3).Joint != 3 {
		t.Errorf("track lookup failed")
	}
	if c.Track(1) != nil {
		t.Errorf("unexpected track for joint 1")
	}
	if d := NewClip("empty", nil).Duration(); d != 0 {
		t.Errorf("empty clip duration %v", d)
	}
}

func TestSamplePose(t *testing.T) {
	rest := skeleton.NewPose(2)
	rest.Names = []string{"root", "child"}
	rest.Parents[1] = 0
	rest.Joints[1].Rotation = rotZ(30)
	rest.Joints[1].Translation = mgl32.Vec3{0, 5, 0}

	c := NewClip("move", []TransformTrack{{
		Joint: 1,
		Position: VectorTrack{Interpolation: Linear, Frames: []VectorFrame{
			{Time: 0, Value: mgl32.Vec3{0, 0, 0}},
			{Time: 2, Value: mgl32.Vec3{2, 0, 0}},
		}},
	}})

	out := skeleton.NewPose(0)
	if err := c.SamplePose(rest, 0.5, false, out); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 2 {
		t.Fatalf("pose has %d joints", out.Len())
	}
	if !utils.Vec3ApproxEqual(out.Joints[1].Translation, mgl32.Vec3{0.5, 0, 0}, eps) {
		t.Errorf("child translation %v", out.Joints[1].Translation)
	}
	if out.Joints[1].Rotation != rotZ(30) {
		t.Errorf("rest rotation not kept: %v", out.Joints[1].Rotation)
	}
	if !out.Joints[0].ApproxEqual(skeleton.Identity(), eps) {
		t.Errorf("root changed: %+v", out.Joints[0])
	}

	if err := c.SamplePose(rest, 2.5, true, out); err != nil {
		t.Fatal(err)
	}
	if !utils.Vec3ApproxEqual(out.Joints[1].Translation, mgl32.Vec3{0.5, 0, 0}, eps) {
		t.Errorf("looped child translation %v", out.Joints[1].Translation)
	}

	bad := NewClip("bad", []TransformTrack{{Joint: 7}})
	if err := bad.SamplePose(rest, 0, false, out); err == nil {
		t.Error("out of range joint accepted")
	}
}

func TestLibrary(t *testing.T) {
	l := NewLibrary(NewClip("idle", nil), NewClip("run", nil))
	if c, err := l.Clip("run"); err != nil || c.Name() != "run" {
		t.Errorf("Clip(run) = %v, %v", c, err)
	}
	if _, err := l.Clip("jump"); errors.Cause(err) != ErrClipNotFound {
		t.Errorf("Clip(jump) error %v", err)
	}
	l.Add(NewClip("idle", nil))
	if len(l.Clips()) != 2 {
		t.Errorf("replaced clip duplicated: %v", l.Names())
	}
}

func TestParseInterpolation(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Interpolation
	}{
		{"STEP", Constant},
		{"LINEAR", Linear},
		{"CUBICSPLINE", Cubic},
		{"cubic", Cubic},
		{"", Linear},
	} {
		got, err := ParseInterpolation(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("ParseInterpolation(%q) = %v, %v", tc.in, got, err)
		}
	}
	if _, err := ParseInterpolation("bezier"); err == nil {
		t.Error("bezier accepted")
	}
}
