package gltfimport

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/mogaika/rig_importer/importer"
	"github.com/mogaika/rig_importer/skeleton"
	"github.com/mogaika/rig_importer/utils"
)

// nodeTransform uses the node matrix when it is set to anything but identity,
// otherwise TRS with glTF defaults for unset components.
func nodeTransform(node *gltf.Node) skeleton.Transform {
	m := mgl32.Mat4(node.Matrix)
	if !utils.IsZeroMat4(m) && m != mgl32.Ident4() {
		return skeleton.TransformFromMatrix(m)
	}
	t := skeleton.Identity()
	t.Translation = node.Translation
	if node.Rotation != [4]float32{} {
		t.Rotation = utils.QuatFromArray(node.Rotation)
	}
	if node.Scale != [3]float32{} {
		t.Scale = node.Scale
	}
	return t
}

func (s *Source) Skeleton() (*skeleton.Skeleton, error) {
	nodes := s.doc.Nodes
	n := len(nodes)

	rest := skeleton.NewPose(n)
	rest.Names = jointNames(nodes)
	for i, node := range nodes {
		rest.Joints[i] = nodeTransform(node)
	}

	// slots exist for every node, parents are filled from children lists
	for i, node := range nodes {
		for _, c := range node.Children {
			if int(c) >= n {
				return nil, importer.Malformed("node %d: child %d out of range", i, c)
			}
			if p := rest.Parents[c]; p != skeleton.NoParent {
				return nil, errors.Wrapf(skeleton.ErrInvalidSkeleton, "node %d is a child of both %d and %d", c, p, i)
			}
			rest.Parents[c] = i
		}
	}

	ibm, err := s.inverseBindMatrices(n)
	if err != nil {
		return nil, err
	}

	skel, err := skeleton.Build(*rest, ibm)
	if err != nil {
		return nil, err
	}
	s.log.Debug("skeleton built", zap.Int("joints", n), zap.Int("skins", len(s.doc.Skins)))
	return skel, nil
}

// inverseBindMatrices merges the matrices of all skins, identity for joints outside any skin.
func (s *Source) inverseBindMatrices(n int) ([]mgl32.Mat4, error) {
	ibm := make([]mgl32.Mat4, n)
	for i := range ibm {
		ibm[i] = mgl32.Ident4()
	}
	owner := make([]int, n)
	for i := range owner {
		owner[i] = -1
	}

	for si, skin := range s.doc.Skins {
		for _, j := range skin.Joints {
			if int(j) >= n {
				return nil, importer.Malformed("skin %d: joint %d out of range", si, j)
			}
		}
		if skin.InverseBindMatrices == nil {
			continue
		}
		acr, err := accessor(s.doc, *skin.InverseBindMatrices)
		if errors.Cause(err) == errSparse {
			s.Unsupported("skin %d: %v", si, err)
			continue
		} else if err != nil {
			return nil, err
		}
		mats, err := readMat4s(s.doc, acr)
		if err != nil {
			return nil, errors.Wrapf(err, "skin %d", si)
		}
		if len(mats) < len(skin.Joints) {
			return nil, importer.Malformed("skin %d: %d inverse bind matrices for %d joints", si, len(mats), len(skin.Joints))
		}

		for k, j := range skin.Joints {
			if prev := owner[j]; prev >= 0 {
				if !utils.Mat4ApproxEqual(ibm[j], mats[k], 1e-5) {
					s.Unsupported("joint %d: skins %d and %d disagree on inverse bind matrix", j, prev, si)
				}
				continue
			}
			owner[j] = si
			ibm[j] = mats[k]
		}
	}
	return ibm, nil
}
