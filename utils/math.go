package utils

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Vec3ApproxEqual and Mat4ApproxEqual use an absolute tolerance per element.
// mgl32 ApproxEqualThreshold squares eps as soon as one side is zero.
func Vec3ApproxEqual(a, b mgl32.Vec3, eps float32) bool {
	for i := range a {
		if mgl32.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

func Mat4ApproxEqual(a, b mgl32.Mat4, eps float32) bool {
	for i := range a {
		if mgl32.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

// source order is x, y, z, w
func QuatFromArray(a [4]float32) mgl32.Quat {
	return mgl32.Quat{W: a[3], V: mgl32.Vec3{a[0], a[1], a[2]}}
}

func QuatToArray(q mgl32.Quat) [4]float32 {
	return [4]float32{q.V[0], q.V[1], q.V[2], q.W}
}

// Column-major source, m[col][row]. Same storage as mgl32, element-wise copy.
func Mat4FromColumnMajor(m [4][4]float32) mgl32.Mat4 {
	return mgl32.Mat4FromCols(
		mgl32.Vec4(m[0]), mgl32.Vec4(m[1]), mgl32.Vec4(m[2]), mgl32.Vec4(m[3]))
}

// Row-major source, 16 floats in reading order. Stored transposed into mgl32.
func Mat4FromRowMajor(m [16]float32) mgl32.Mat4 {
	return mgl32.Mat4(m).Transpose()
}

func Mat4ToColumnMajor(m mgl32.Mat4) [4][4]float32 {
	var r [4][4]float32
	for col := 0; col < 4; col++ {
		r[col] = [4]float32(m.Col(col))
	}
	return r
}

func IsZeroMat4(m mgl32.Mat4) bool {
	return m == mgl32.Mat4{}
}

// Decomposes an affine matrix without shear into translation, rotation and scale.
func DecomposeMat4(m mgl32.Mat4) (t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) {
	t = m.Col(3).Vec3()

	c0, c1, c2 := m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()
	s = mgl32.Vec3{c0.Len(), c1.Len(), c2.Len()}
	if c0.Cross(c1).Dot(c2) < 0 {
		s[0] = -s[0]
	}

	var inv [3]float32
	for i := range inv {
		if math.Abs(float64(s[i])) < 1e-8 {
			inv[i] = 1
		} else {
			inv[i] = 1 / s[i]
		}
	}

	rm := mgl32.Mat4FromCols(
		c0.Mul(inv[0]).Vec4(0),
		c1.Mul(inv[1]).Vec4(0),
		c2.Mul(inv[2]).Vec4(0),
		mgl32.Vec4{0, 0, 0, 1})
	r = mgl32.Mat4ToQuat(rm).Normalize()
	return t, r, s
}

// normalized integer conversions as defined by glTF 2.0
func UnormByte(v uint8) float32   { return float32(v) / 255 }
func UnormShort(v uint16) float32 { return float32(v) / 65535 }

func SnormByte(v int8) float32 {
	return float32(math.Max(float64(v)/127, -1))
}

func SnormShort(v int16) float32 {
	return float32(math.Max(float64(v)/32767, -1))
}
