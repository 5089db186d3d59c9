package utils

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestApproxEqualNearZero(t *testing.T) {
	a := mgl32.Ident4()
	b := a
	b[1] = -4e-8
	if !Mat4ApproxEqual(a, b, 1e-5) {
		t.Error("noise in a zero slot rejected")
	}
	b[12] = 1e-3
	if Mat4ApproxEqual(a, b, 1e-5) {
		t.Error("translation difference accepted")
	}

	if !Vec3ApproxEqual(mgl32.Vec3{0, 1, 2}, mgl32.Vec3{2e-7, 1, 2}, 1e-5) {
		t.Error("vector noise rejected")
	}
	if Vec3ApproxEqual(mgl32.Vec3{0, 1, 2}, mgl32.Vec3{0, 1.1, 2}, 1e-5) {
		t.Error("vector difference accepted")
	}
}
