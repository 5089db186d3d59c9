package anim

import (
	"strings"

	"github.com/pkg/errors"
)

type Interpolation int

const (
	Constant Interpolation = iota
	Linear
	Cubic
)

func (i Interpolation) String() string {
	switch i {
	case Constant:
		return "constant"
	case Linear:
		return "linear"
	case Cubic:
		return "cubic"
	default:
		return "unknown"
	}
}

func (i Interpolation) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// ParseInterpolation accepts both our names and the glTF sampler names.
func ParseInterpolation(s string) (Interpolation, error) {
	switch strings.ToLower(s) {
	case "constant", "step":
		return Constant, nil
	case "linear", "":
		return Linear, nil
	case "cubic", "cubicspline":
		return Cubic, nil
	}
	return Linear, errors.Errorf("unknown interpolation %q", s)
}
