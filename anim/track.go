package anim

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

type VectorFrame struct {
	Time  float32
	Value mgl32.Vec3
	// tangents, Cubic only
	In  mgl32.Vec3
	Out mgl32.Vec3
}

type QuaternionFrame struct {
	Time  float32
	Value mgl32.Quat
	In    mgl32.Quat
	Out   mgl32.Quat
}

type VectorTrack struct {
	Frames        []VectorFrame
	Interpolation Interpolation
}

type QuaternionTrack struct {
	Frames        []QuaternionFrame
	Interpolation Interpolation
}

// wrapTime maps t into the keyframe range. Looping wraps into [first, last),
// otherwise t is clamped into [first, last].
func wrapTime(t, first, last float32, loop bool) float32 {
	if loop {
		span := last - first
		if span <= 0 {
			return first
		}
		m := float32(math.Mod(float64(t-first), float64(span)))
		if m < 0 {
			m += span
		}
		if m >= span {
			m = 0
		}
		return first + m
	}
	if t < first {
		return first
	}
	if t > last {
		return last
	}
	return t
}

// bracket returns the frame pair a, b with time(a) <= t <= time(b) and the
// normalized position of t between them. n must be at least 2.
func bracket(n int, timeAt func(int) float32, t float32) (a, b int, f float32) {
	b = sort.Search(n, func(i int) bool { return timeAt(i) > t })
	if b == 0 {
		b = 1
	} else if b == n {
		b = n - 1
	}
	a = b - 1
	width := timeAt(b) - timeAt(a)
	if width <= 0 {
		return a, b, 0
	}
	f = (t - timeAt(a)) / width
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	return a, b, f
}

func hermite(f float32) (h00, h10, h01, h11 float32) {
	f2 := f * f
	f3 := f2 * f
	h00 = 2*f3 - 3*f2 + 1
	h10 = f3 - 2*f2 + f
	h01 = -2*f3 + 3*f2
	h11 = f3 - f2
	return
}

func (tr *VectorTrack) Len() int { return len(tr.Frames) }

func (tr *VectorTrack) StartTime() float32 {
	if len(tr.Frames) == 0 {
		return 0
	}
	return tr.Frames[0].Time
}

func (tr *VectorTrack) EndTime() float32 {
	if len(tr.Frames) == 0 {
		return 0
	}
	return tr.Frames[len(tr.Frames)-1].Time
}

func (tr *VectorTrack) IsSorted() bool {
	return sort.SliceIsSorted(tr.Frames, func(i, j int) bool {
		return tr.Frames[i].Time < tr.Frames[j].Time
	})
}

// Sample evaluates the track at t; an empty track gives the zero vector.
func (tr *VectorTrack) Sample(t float32, loop bool) mgl32.Vec3 {
	return tr.SampleOr(mgl32.Vec3{}, t, loop)
}

// SampleOr is Sample with def returned for an empty track.
func (tr *VectorTrack) SampleOr(def mgl32.Vec3, t float32, loop bool) mgl32.Vec3 {
	n := len(tr.Frames)
	switch n {
	case 0:
		return def
	case 1:
		return tr.Frames[0].Value
	}

	t = wrapTime(t, tr.Frames[0].Time, tr.Frames[n-1].Time, loop)
	ai, bi, f := bracket(n, func(i int) float32 { return tr.Frames[i].Time }, t)
	a, b := &tr.Frames[ai], &tr.Frames[bi]
	if b.Time <= a.Time {
		return a.Value
	}

	switch tr.Interpolation {
	case Constant:
		return a.Value
	case Cubic:
		width := b.Time - a.Time
		h00, h10, h01, h11 := hermite(f)
		return a.Value.Mul(h00).
			Add(a.Out.Mul(h10 * width)).
			Add(b.Value.Mul(h01)).
			Add(b.In.Mul(h11 * width))
	default:
		return a.Value.Add(b.Value.Sub(a.Value).Mul(f))
	}
}

func (tr *QuaternionTrack) Len() int { return len(tr.Frames) }

func (tr *QuaternionTrack) StartTime() float32 {
	if len(tr.Frames) == 0 {
		return 0
	}
	return tr.Frames[0].Time
}

func (tr *QuaternionTrack) EndTime() float32 {
	if len(tr.Frames) == 0 {
		return 0
	}
	return tr.Frames[len(tr.Frames)-1].Time
}

func (tr *QuaternionTrack) IsSorted() bool {
	return sort.SliceIsSorted(tr.Frames, func(i, j int) bool {
		return tr.Frames[i].Time < tr.Frames[j].Time
	})
}

// Sample evaluates the track at t; an empty track gives the identity rotation.
func (tr *QuaternionTrack) Sample(t float32, loop bool) mgl32.Quat {
	return tr.SampleOr(mgl32.QuatIdent(), t, loop)
}

func (tr *QuaternionTrack) SampleOr(def mgl32.Quat, t float32, loop bool) mgl32.Quat {
	n := len(tr.Frames)
	switch n {
	case 0:
		return def
	case 1:
		return tr.Frames[0].Value
	}

	t = wrapTime(t, tr.Frames[0].Time, tr.Frames[n-1].Time, loop)
	ai, bi, f := bracket(n, func(i int) float32 { return tr.Frames[i].Time }, t)
	a, b := &tr.Frames[ai], &tr.Frames[bi]
	if b.Time <= a.Time {
		return a.Value
	}

	switch tr.Interpolation {
	case Constant:
		return a.Value
	case Cubic:
		width := b.Time - a.Time
		h00, h10, h01, h11 := hermite(f)
		q := a.Value.Scale(h00).
			Add(a.Out.Scale(h10 * width)).
			Add(b.Value.Scale(h01)).
			Add(b.In.Scale(h11 * width))
		return q.Normalize()
	default:
		bv := b.Value
		// shortest arc
		if a.Value.Dot(bv) < 0 {
			bv = bv.Scale(-1)
		}
		return mgl32.QuatSlerp(a.Value, bv, f)
	}
}
