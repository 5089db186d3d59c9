package skeleton

const NoParent = -1

// Pose is a set of joint-local transforms together with the parent of every joint.
// Joints, Parents and Names are indexed by joint index.
type Pose struct {
	Joints  []Transform
	Parents []int
	Names   []string
}

// NewPose allocates n root joints with identity transforms.
func NewPose(n int) *Pose {
	p := &Pose{
		Joints:  make([]Transform, n),
		Parents: make([]int, n),
		Names:   make([]string, n),
	}
	for i := range p.Joints {
		p.Joints[i] = Identity()
		p.Parents[i] = NoParent
	}
	return p
}

func (p *Pose) Len() int {
	return len(p.Joints)
}

func (p *Pose) Clone() *Pose {
	c := &Pose{
		Joints:  make([]Transform, len(p.Joints)),
		Parents: make([]int, len(p.Parents)),
		Names:   make([]string, len(p.Names)),
	}
	copy(c.Joints, p.Joints)
	copy(c.Parents, p.Parents)
	copy(c.Names, p.Names)
	return c
}

// CopyFrom overwrites p with src reusing p's storage where possible.
func (p *Pose) CopyFrom(src *Pose) {
	p.Joints = append(p.Joints[:0], src.Joints...)
	p.Parents = append(p.Parents[:0], src.Parents...)
	p.Names = append(p.Names[:0], src.Names...)
}
