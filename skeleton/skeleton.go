package skeleton

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

var (
	ErrInvalidSkeleton = errors.New("invalid skeleton")
	ErrJointNotFound   = errors.New("joint not found")
)

// Skeleton is an immutable joint hierarchy with its rest pose and inverse bind matrices.
type Skeleton struct {
	rest        Pose
	inverseBind []mgl32.Mat4
	// parents always precede their children
	order []int
	names map[string]int
}

// Build validates the rest pose hierarchy. Both arguments are copied.
func Build(rest Pose, inverseBind []mgl32.Mat4) (*Skeleton, error) {
	n := len(rest.Joints)
	if len(rest.Parents) != n {
		return nil, errors.Wrapf(ErrInvalidSkeleton, "%d joints but %d parents", n, len(rest.Parents))
	}
	if len(rest.Names) != n {
		return nil, errors.Wrapf(ErrInvalidSkeleton, "%d joints but %d names", n, len(rest.Names))
	}
	if len(inverseBind) != n {
		return nil, errors.Wrapf(ErrInvalidSkeleton, "%d joints but %d inverse bind matrices", n, len(inverseBind))
	}

	names := make(map[string]int, n)
	for i, name := range rest.Names {
		if name == "" {
			return nil, errors.Wrapf(ErrInvalidSkeleton, "joint %d has no name", i)
		}
		if prev, dup := names[name]; dup {
			return nil, errors.Wrapf(ErrInvalidSkeleton, "joints %d and %d share name %q", prev, i, name)
		}
		names[name] = i
	}

	for i, p := range rest.Parents {
		switch {
		case p == NoParent:
		case p < 0 || p >= n:
			return nil, errors.Wrapf(ErrInvalidSkeleton, "joint %d parent %d out of range", i, p)
		case p == i:
			return nil, errors.Wrapf(ErrInvalidSkeleton, "joint %d is its own parent", i)
		}
	}

	order, err := evaluationOrder(rest.Parents)
	if err != nil {
		return nil, err
	}

	return &Skeleton{
		rest:        *rest.Clone(),
		inverseBind: append([]mgl32.Mat4(nil), inverseBind...),
		order:       order,
		names:       names,
	}, nil
}

// evaluationOrder lists joints so that every parent comes before its descendants.
// Ancestor chains are walked once; a chain that reaches itself is a cycle.
func evaluationOrder(parents []int) ([]int, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]uint8, len(parents))
	order := make([]int, 0, len(parents))
	chain := make([]int, 0, 16)

	for i := range parents {
		chain = chain[:0]
		for j := i; j != NoParent && state[j] != done; j = parents[j] {
			if state[j] == visiting {
				return nil, errors.Wrapf(ErrInvalidSkeleton, "parent cycle through joint %d", j)
			}
			state[j] = visiting
			chain = append(chain, j)
		}
		for k := len(chain) - 1; k >= 0; k-- {
			state[chain[k]] = done
			order = append(order, chain[k])
		}
	}
	return order, nil
}

func (s *Skeleton) JointCount() int {
	return len(s.rest.Joints)
}

func (s *Skeleton) Index(name string) (int, error) {
	if i, ok := s.names[name]; ok {
		return i, nil
	}
	return -1, errors.Wrapf(ErrJointNotFound, "%q", name)
}

func (s *Skeleton) Name(joint int) string {
	return s.rest.Names[joint]
}

func (s *Skeleton) Parent(joint int) int {
	return s.rest.Parents[joint]
}

func (s *Skeleton) LocalRest(joint int) Transform {
	return s.rest.Joints[joint]
}

func (s *Skeleton) InverseBind(joint int) mgl32.Mat4 {
	return s.inverseBind[joint]
}

// RestPose returns a copy that the caller may use as a working pose.
func (s *Skeleton) RestPose() *Pose {
	return s.rest.Clone()
}

func (s *Skeleton) Order() []int {
	order := make([]int, len(s.order))
	copy(order, s.order)
	return order
}

func (s *Skeleton) checkBuffers(pose *Pose, out []mgl32.Mat4) error {
	if pose.Len() != s.JointCount() {
		return errors.Errorf("pose has %d joints, skeleton has %d", pose.Len(), s.JointCount())
	}
	if len(out) < s.JointCount() {
		return errors.Errorf("output buffer holds %d matrices, need %d", len(out), s.JointCount())
	}
	return nil
}

// GlobalTransforms writes the model-space transform of every joint of pose into out.
// The pose must share this skeleton's joint indexing.
func (s *Skeleton) GlobalTransforms(pose *Pose, out []mgl32.Mat4) error {
	if err := s.checkBuffers(pose, out); err != nil {
		return err
	}
	for _, j := range s.order {
		local := pose.Joints[j].Matrix()
		if p := s.rest.Parents[j]; p == NoParent {
			out[j] = local
		} else {
			out[j] = out[p].Mul4(local)
		}
	}
	return nil
}

// SkinningMatrices writes global(j) * inverseBind(j) for every joint into out.
func (s *Skeleton) SkinningMatrices(pose *Pose, out []mgl32.Mat4) error {
	if err := s.GlobalTransforms(pose, out); err != nil {
		return err
	}
	for j := range s.inverseBind {
		out[j] = out[j].Mul4(s.inverseBind[j])
	}
	return nil
}
