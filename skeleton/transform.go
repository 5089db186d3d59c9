package skeleton

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/rig_importer/utils"
)

// Transform is a joint-local translation/rotation/scale.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
}

func Identity() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Matrix composes T * R * S.
func (t Transform) Matrix() mgl32.Mat4 {
	return mgl32.Translate3D(t.Translation[0], t.Translation[1], t.Translation[2]).
		Mul4(t.Rotation.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

func TransformFromMatrix(m mgl32.Mat4) Transform {
	tr, rot, sc := utils.DecomposeMat4(m)
	return Transform{Translation: tr, Rotation: rot, Scale: sc}
}

func (t Transform) ApproxEqual(o Transform, eps float32) bool {
	return utils.Vec3ApproxEqual(t.Translation, o.Translation, eps) &&
		utils.Vec3ApproxEqual(t.Scale, o.Scale, eps) &&
		t.Rotation.OrientationEqualThreshold(o.Rotation, eps)
}
