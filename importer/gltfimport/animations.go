package gltfimport

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/mogaika/rig_importer/anim"
	"github.com/mogaika/rig_importer/importer"
)

func interpolationOf(i gltf.Interpolation) anim.Interpolation {
	switch i {
	case gltf.InterpolationStep:
		return anim.Constant
	case gltf.InterpolationCubicSpline:
		return anim.Cubic
	default:
		return anim.Linear
	}
}

func channelSampler(ga *gltf.Animation, ch *gltf.Channel) (*gltf.AnimationSampler, error) {
	if ch.Sampler == nil || int(*ch.Sampler) >= len(ga.Samplers) {
		return nil, importer.Malformed("channel sampler missing or out of range")
	}
	return ga.Samplers[*ch.Sampler], nil
}

func (s *Source) Clips() ([]*anim.Clip, error) {
	if s.opts.SkipAnimations {
		return nil, nil
	}
	clips := make([]*anim.Clip, 0, len(s.doc.Animations))
	for ai, ga := range s.doc.Animations {
		clip, err := s.clip(ai, ga)
		if err != nil {
			return nil, errors.Wrapf(err, "animation %d", ai)
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

// clip merges all channels of one animation into a track per target node,
// tracks are kept in order of first appearance.
func (s *Source) clip(ai int, ga *gltf.Animation) (*anim.Clip, error) {
	name := ga.Name
	if name == "" {
		name = fmt.Sprintf("animation_%d", ai)
	}

	var tracks []anim.TransformTrack
	byNode := make(map[uint32]int)

	for ci, ch := range ga.Channels {
		if ch.Target.Node == nil {
			s.Unsupported("animation %q channel %d: no target node", name, ci)
			continue
		}
		node := *ch.Target.Node
		if int(node) >= len(s.doc.Nodes) {
			return nil, importer.Malformed("channel %d: node %d out of range", ci, node)
		}
		if ch.Target.Path == gltf.TRSWeights {
			s.Unsupported("animation %q channel %d: morph target weights", name, ci)
			continue
		}

		ti, ok := byNode[node]
		if !ok {
			ti = len(tracks)
			byNode[node] = ti
			tracks = append(tracks, anim.TransformTrack{Joint: int(node)})
		}

		sampler, err := channelSampler(ga, ch)
		if err != nil {
			return nil, errors.Wrapf(err, "channel %d", ci)
		}
		err = s.channel(&tracks[ti], ch.Target.Path, sampler)
		if errors.Cause(err) == errSparse {
			s.Unsupported("animation %q channel %d: %v", name, ci, err)
			continue
		} else if err != nil {
			return nil, errors.Wrapf(err, "channel %d", ci)
		}
	}

	clip := anim.NewClip(name, tracks)
	s.log.Debug("clip imported", zap.String("clip", name),
		zap.Int("tracks", len(tracks)), zap.Float32("duration", clip.Duration()))
	return clip, nil
}

// unsorted keyframes are kept in file order unless StrictKeyframes is set.
func (s *Source) unsorted(node int) error {
	if s.opts.StrictKeyframes {
		return importer.Malformed("node %d: keyframe times are not sorted", node)
	}
	s.Add(errors.Errorf("node %d: keyframe times are not sorted", node))
	return nil
}

func (s *Source) channel(tt *anim.TransformTrack, path gltf.TRSProperty, sampler *gltf.AnimationSampler) error {
	inAcr, err := accessorPtr(s.doc, sampler.Input, "input")
	if err != nil {
		return err
	}
	outAcr, err := accessorPtr(s.doc, sampler.Output, "output")
	if err != nil {
		return err
	}
	times, err := readFloats(s.doc, inAcr)
	if err != nil {
		return errors.Wrap(err, "input")
	}

	interp := interpolationOf(sampler.Interpolation)
	perFrame := 1
	if interp == anim.Cubic {
		perFrame = 3
	}
	cubicAsLinear := interp == anim.Cubic && s.opts.CubicAsLinear
	if cubicAsLinear {
		interp = anim.Linear
	}

	switch path {
	case gltf.TRSTranslation, gltf.TRSScale:
		values, err := readVec3s(s.doc, outAcr)
		if err != nil {
			return errors.Wrap(err, "output")
		}
		if len(values) != len(times)*perFrame {
			return importer.Malformed("%d outputs for %d keyframes", len(values), len(times))
		}
		frames := make([]anim.VectorFrame, len(times))
		for k, t := range times {
			frames[k].Time = t
			if perFrame == 3 {
				frames[k].Value = values[3*k+1]
				if !cubicAsLinear {
					frames[k].In = values[3*k]
					frames[k].Out = values[3*k+2]
				}
			} else {
				frames[k].Value = values[k]
			}
		}
		track := anim.VectorTrack{Frames: frames, Interpolation: interp}
		if !track.IsSorted() {
			if err := s.unsorted(tt.Joint); err != nil {
				return err
			}
		}
		if path == gltf.TRSTranslation {
			tt.Position = track
		} else {
			tt.Scaling = track
		}

	case gltf.TRSRotation:
		values, err := readQuats(s.doc, outAcr)
		if err != nil {
			return errors.Wrap(err, "output")
		}
		if len(values) != len(times)*perFrame {
			return importer.Malformed("%d outputs for %d keyframes", len(values), len(times))
		}
		frames := make([]anim.QuaternionFrame, len(times))
		for k, t := range times {
			frames[k].Time = t
			if perFrame == 3 {
				frames[k].Value = values[3*k+1]
				if !cubicAsLinear {
					frames[k].In = values[3*k]
					frames[k].Out = values[3*k+2]
				}
			} else {
				frames[k].Value = values[k]
			}
		}
		track := anim.QuaternionTrack{Frames: frames, Interpolation: interp}
		if !track.IsSorted() {
			if err := s.unsorted(tt.Joint); err != nil {
				return err
			}
		}
		tt.Rotation = track

	default:
		return importer.Malformed("unknown target path %v", path)
	}
	return nil
}
