package gltfimport

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/rig_importer/importer"
	"github.com/mogaika/rig_importer/utils"
)

var errSparse = errors.New("sparse accessor")

// accessor resolves an index and rejects sparse storage, which modeler does not expand.
func accessor(doc *gltf.Document, idx uint32) (*gltf.Accessor, error) {
	if int(idx) >= len(doc.Accessors) {
		return nil, importer.Malformed("accessor %d out of range (%d accessors)", idx, len(doc.Accessors))
	}
	acr := doc.Accessors[idx]
	if acr.Sparse != nil {
		return nil, errors.Wrapf(errSparse, "accessor %d", idx)
	}
	return acr, nil
}

func accessorPtr(doc *gltf.Document, idx *uint32, what string) (*gltf.Accessor, error) {
	if idx == nil {
		return nil, importer.Malformed("%s accessor missing", what)
	}
	return accessor(doc, *idx)
}

func readFloats(doc *gltf.Document, acr *gltf.Accessor) ([]float32, error) {
	data, err := modeler.ReadAccessor(doc, acr, nil)
	if err != nil {
		return nil, importer.Malformed("%v", err)
	}
	if fs, ok := data.([]float32); ok {
		return fs, nil
	}
	return nil, importer.Malformed("accessor %q: expected float scalars, got %T", acr.Name, data)
}

func readVec3s(doc *gltf.Document, acr *gltf.Accessor) ([]mgl32.Vec3, error) {
	data, err := modeler.ReadAccessor(doc, acr, nil)
	if err != nil {
		return nil, importer.Malformed("%v", err)
	}
	vs, ok := data.([][3]float32)
	if !ok {
		return nil, importer.Malformed("accessor %q: expected float VEC3, got %T", acr.Name, data)
	}
	out := make([]mgl32.Vec3, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out, nil
}

// readQuats accepts float and normalized integer rotations, values stay in x, y, z, w order.
func readQuats(doc *gltf.Document, acr *gltf.Accessor) ([]mgl32.Quat, error) {
	data, err := modeler.ReadAccessor(doc, acr, nil)
	if err != nil {
		return nil, importer.Malformed("%v", err)
	}
	var out []mgl32.Quat
	switch vs := data.(type) {
	case [][4]float32:
		out = make([]mgl32.Quat, len(vs))
		for i, v := range vs {
			out[i] = utils.QuatFromArray(v)
		}
	case [][4]int8:
		out = make([]mgl32.Quat, len(vs))
		for i, v := range vs {
			out[i] = utils.QuatFromArray([4]float32{
				utils.SnormByte(v[0]), utils.SnormByte(v[1]), utils.SnormByte(v[2]), utils.SnormByte(v[3])})
		}
	case [][4]uint8:
		out = make([]mgl32.Quat, len(vs))
		for i, v := range vs {
			out[i] = utils.QuatFromArray([4]float32{
				utils.UnormByte(v[0]), utils.UnormByte(v[1]), utils.UnormByte(v[2]), utils.UnormByte(v[3])})
		}
	case [][4]int16:
		out = make([]mgl32.Quat, len(vs))
		for i, v := range vs {
			out[i] = utils.QuatFromArray([4]float32{
				utils.SnormShort(v[0]), utils.SnormShort(v[1]), utils.SnormShort(v[2]), utils.SnormShort(v[3])})
		}
	case [][4]uint16:
		out = make([]mgl32.Quat, len(vs))
		for i, v := range vs {
			out[i] = utils.QuatFromArray([4]float32{
				utils.UnormShort(v[0]), utils.UnormShort(v[1]), utils.UnormShort(v[2]), utils.UnormShort(v[3])})
		}
	default:
		return nil, importer.Malformed("accessor %q: expected VEC4 rotations, got %T", acr.Name, data)
	}
	return out, nil
}

func readMat4s(doc *gltf.Document, acr *gltf.Accessor) ([]mgl32.Mat4, error) {
	data, err := modeler.ReadAccessor(doc, acr, nil)
	if err != nil {
		return nil, importer.Malformed("%v", err)
	}
	ms, ok := data.([][4][4]float32)
	if !ok {
		return nil, importer.Malformed("accessor %q: expected float MAT4, got %T", acr.Name, data)
	}
	out := make([]mgl32.Mat4, len(ms))
	for i, m := range ms {
		out[i] = utils.Mat4FromColumnMajor(m)
	}
	return out, nil
}

// readColors drops alpha; integer colors are normalized.
func readColors(doc *gltf.Document, acr *gltf.Accessor) ([]mgl32.Vec3, error) {
	data, err := modeler.ReadAccessor(doc, acr, nil)
	if err != nil {
		return nil, importer.Malformed("%v", err)
	}
	var out []mgl32.Vec3
	switch vs := data.(type) {
	case [][3]float32:
		out = make([]mgl32.Vec3, len(vs))
		for i, v := range vs {
			out[i] = v
		}
	case [][4]float32:
		out = make([]mgl32.Vec3, len(vs))
		for i, v := range vs {
			out[i] = mgl32.Vec3{v[0], v[1], v[2]}
		}
	case [][3]uint8:
		out = make([]mgl32.Vec3, len(vs))
		for i, v := range vs {
			out[i] = mgl32.Vec3{utils.UnormByte(v[0]), utils.UnormByte(v[1]), utils.UnormByte(v[2])}
		}
	case [][4]uint8:
		out = make([]mgl32.Vec3, len(vs))
		for i, v := range vs {
			out[i] = mgl32.Vec3{utils.UnormByte(v[0]), utils.UnormByte(v[1]), utils.UnormByte(v[2])}
		}
	case [][3]uint16:
		out = make([]mgl32.Vec3, len(vs))
		for i, v := range vs {
			out[i] = mgl32.Vec3{utils.UnormShort(v[0]), utils.UnormShort(v[1]), utils.UnormShort(v[2])}
		}
	case [][4]uint16:
		out = make([]mgl32.Vec3, len(vs))
		for i, v := range vs {
			out[i] = mgl32.Vec3{utils.UnormShort(v[0]), utils.UnormShort(v[1]), utils.UnormShort(v[2])}
		}
	default:
		return nil, importer.Malformed("accessor %q: unexpected color type %T", acr.Name, data)
	}
	return out, nil
}
