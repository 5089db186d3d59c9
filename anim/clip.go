package anim

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/rig_importer/skeleton"
)

var ErrClipNotFound = errors.New("clip not found")

// TransformTrack animates the local transform of one joint. Any of the three tracks may be empty.
type TransformTrack struct {
	Joint    int
	Position VectorTrack
	Rotation QuaternionTrack
	Scaling  VectorTrack
}

func (tt *TransformTrack) IsEmpty() bool {
	return tt.Position.Len() == 0 && tt.Rotation.Len() == 0 && tt.Scaling.Len() == 0
}

func (tt *TransformTrack) StartTime() float32 {
	start := float32(math.MaxFloat32)
	for _, v := range [...]struct {
		n int
		t float32
	}{
		{tt.Position.Len(), tt.Position.StartTime()},
		{tt.Rotation.Len(), tt.Rotation.StartTime()},
		{tt.Scaling.Len(), tt.Scaling.StartTime()},
	} {
		if v.n != 0 && v.t < start {
			start = v.t
		}
	}
	if start == math.MaxFloat32 {
		return 0
	}
	return start
}

func (tt *TransformTrack) EndTime() float32 {
	end := tt.Position.EndTime()
	if e := tt.Rotation.EndTime(); e > end {
		end = e
	}
	if e := tt.Scaling.EndTime(); e > end {
		end = e
	}
	return end
}

// Sample evaluates all three components, empty ones give the identity component.
func (tt *TransformTrack) Sample(t float32, loop bool) skeleton.Transform {
	return skeleton.Transform{
		Translation: tt.Position.Sample(t, loop),
		Rotation:    tt.Rotation.Sample(t, loop),
		Scale:       tt.Scaling.SampleOr(mgl32.Vec3{1, 1, 1}, t, loop),
	}
}

// SampleFrom is Sample with empty components taken from ref.
func (tt *TransformTrack) SampleFrom(ref skeleton.Transform, t float32, loop bool) skeleton.Transform {
	return skeleton.Transform{
		Translation: tt.Position.SampleOr(ref.Translation, t, loop),
		Rotation:    tt.Rotation.SampleOr(ref.Rotation, t, loop),
		Scale:       tt.Scaling.SampleOr(ref.Scale, t, loop),
	}
}

type Clip struct {
	name     string
	tracks   []TransformTrack
	byJoint  map[int]int
	start    float32
	duration float32
}

// NewClip takes ownership of tracks. Duration is the latest keyframe time of any track.
func NewClip(name string, tracks []TransformTrack) *Clip {
	c := &Clip{
		name:    name,
		tracks:  tracks,
		byJoint: make(map[int]int, len(tracks)),
	}
	first := true
	for i := range tracks {
		tt := &tracks[i]
		if _, ok := c.byJoint[tt.Joint]; !ok {
			c.byJoint[tt.Joint] = i
		}
		if tt.IsEmpty() {
			continue
		}
		if end := tt.EndTime(); end > c.duration {
			c.duration = end
		}
		if start := tt.StartTime(); first || start < c.start {
			c.start = start
			first = false
		}
	}
	return c
}

func (c *Clip) Name() string { return c.name }

func (c *Clip) Duration() float32 { return c.duration }

func (c *Clip) StartTime() float32 { return c.start }

func (c *Clip) Tracks() []TransformTrack { return c.tracks }

// Track returns the track animating joint, or nil.
func (c *Clip) Track(joint int) *TransformTrack {
	if i, ok := c.byJoint[joint]; ok {
		return &c.tracks[i]
	}
	return nil
}

// SamplePose writes rest into out and replaces every animated joint by its sampled transform.
// With loop set t is wrapped into [0, duration).
func (c *Clip) SamplePose(rest *skeleton.Pose, t float32, loop bool, out *skeleton.Pose) error {
	if loop {
		if c.duration > 0 {
			t = wrapTime(t, 0, c.duration, true)
		} else {
			t = 0
		}
	}
	out.CopyFrom(rest)
	for i := range c.tracks {
		tt := &c.tracks[i]
		if tt.Joint < 0 || tt.Joint >= rest.Len() {
			return errors.Errorf("clip %q: track %d targets joint %d, pose has %d joints",
				c.name, i, tt.Joint, rest.Len())
		}
		out.Joints[tt.Joint] = tt.SampleFrom(rest.Joints[tt.Joint], t, false)
	}
	return nil
}

// Library indexes clips by name.
type Library struct {
	clips  []*Clip
	byName map[string]*Clip
}

func NewLibrary(clips ...*Clip) *Library {
	l := &Library{byName: make(map[string]*Clip, len(clips))}
	for _, c := range clips {
		l.Add(c)
	}
	return l
}

// Add registers c. A clip with the same name is replaced.
func (l *Library) Add(c *Clip) {
	if prev, ok := l.byName[c.name]; ok {
		for i := range l.clips {
			if l.clips[i] == prev {
				l.clips[i] = c
			}
		}
	} else {
		l.clips = append(l.clips, c)
	}
	l.byName[c.name] = c
}

func (l *Library) Clip(name string) (*Clip, error) {
	if c, ok := l.byName[name]; ok {
		return c, nil
	}
	return nil, errors.Wrapf(ErrClipNotFound, "%q", name)
}

func (l *Library) Clips() []*Clip {
	return l.clips
}

func (l *Library) Names() []string {
	names := make([]string, len(l.clips))
	for i, c := range l.clips {
		names[i] = c.name
	}
	return names
}
