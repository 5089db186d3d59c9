package web

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/rig_importer/anim"
	"github.com/mogaika/rig_importer/importer"
	"github.com/mogaika/rig_importer/mesh"
	"github.com/mogaika/rig_importer/model"
	"github.com/mogaika/rig_importer/skeleton"
	"github.com/mogaika/rig_importer/utils"
	"github.com/mogaika/rig_importer/utils/gltfutils"
	"github.com/mogaika/rig_importer/webutils"
)

var (
	errMeshNotFound = errors.New("mesh not found")
	errBadParameter = errors.New("bad parameter")
)

func statusOf(err error) int {
	cause := errors.Cause(err)
	switch cause {
	case ErrBadFileName, errBadParameter, importer.ErrUnknownFormat:
		return http.StatusBadRequest
	case anim.ErrClipNotFound, errMeshNotFound:
		return http.StatusNotFound
	case importer.ErrMalformedDocument, skeleton.ErrInvalidSkeleton,
		mesh.ErrAttributeLengthMismatch, mesh.ErrIndexOutOfRange, mesh.ErrJointOutOfRange:
		return http.StatusUnprocessableEntity
	}
	if os.IsNotExist(cause) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	webutils.WriteError(w, statusOf(err), err)
}

type meshSummary struct {
	Name      string     `json:"name"`
	Vertices  int        `json:"vertices"`
	Triangles int        `json:"triangles"`
	Skin      string     `json:"skin,omitempty"`
	Min       mgl32.Vec3 `json:"min"`
	Max       mgl32.Vec3 `json:"max"`
}

type jointState struct {
	Name        string     `json:"name"`
	Parent      int        `json:"parent"`
	Translation mgl32.Vec3 `json:"translation"`
	Rotation    [4]float32 `json:"rotation"`
	Scale       mgl32.Vec3 `json:"scale"`
}

type clipSummary struct {
	Name     string  `json:"name"`
	Start    float32 `json:"start"`
	Duration float32 `json:"duration"`
	Tracks   int     `json:"tracks"`
}

type assetSummary struct {
	Name     string              `json:"name"`
	Kind     importer.SourceKind `json:"kind"`
	Shape    model.Shape         `json:"shape"`
	Meshes   []meshSummary       `json:"meshes"`
	Joints   []jointState        `json:"joints"`
	Clips    []clipSummary       `json:"clips"`
	Warnings []string            `json:"warnings"`
}

func jointStates(skel *skeleton.Skeleton, pose *skeleton.Pose) []jointState {
	out := make([]jointState, pose.Len())
	for j := range out {
		tr := pose.Joints[j]
		out[j] = jointState{
			Name:        skel.Name(j),
			Parent:      skel.Parent(j),
			Translation: tr.Translation,
			Rotation:    utils.QuatToArray(tr.Rotation),
			Scale:       tr.Scale,
		}
	}
	return out
}

func summarize(asset *importer.Asset) *assetSummary {
	sum := &assetSummary{
		Name:     asset.Name,
		Kind:     asset.Kind,
		Shape:    model.ShapeFromBounds(asset.Model.Meshes(), model.ShapeBox),
		Meshes:   make([]meshSummary, 0),
		Joints:   jointStates(asset.Skeleton, asset.Skeleton.RestPose()),
		Clips:    make([]clipSummary, 0),
		Warnings: make([]string, len(asset.Warnings)),
	}
	for mi, m := range asset.Model.Meshes() {
		ms := meshSummary{Name: m.Name, Vertices: len(m.Vertices), Triangles: m.TriangleCount()}
		ms.Min, ms.Max = m.Bounds()
		if st := asset.Skins.For(mi); st != nil {
			ms.Skin = st.Name
		}
		sum.Meshes = append(sum.Meshes, ms)
	}
	for _, c := range asset.Clips.Clips() {
		sum.Clips = append(sum.Clips, clipSummary{
			Name: c.Name(), Start: c.StartTime(), Duration: c.Duration(), Tracks: len(c.Tracks()),
		})
	}
	for i, w := range asset.Warnings {
		sum.Warnings[i] = w.Error()
	}
	return sum
}

func (s *Server) HandlerAssets(w http.ResponseWriter, r *http.Request) {
	if files, err := s.List(); err != nil {
		writeError(w, err)
	} else {
		webutils.WriteJson(w, files)
	}
}

func (s *Server) HandlerAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := s.Asset(mux.Vars(r)["file"])
	if err != nil {
		writeError(w, err)
		return
	}
	webutils.WriteJson(w, summarize(asset))
}

type clipSample struct {
	Clip     string       `json:"clip"`
	Time     float32      `json:"time"`
	Loop     bool         `json:"loop"`
	Joints   []jointState `json:"joints"`
	Skinning []mgl32.Mat4 `json:"skinning"`
}

func queryFloat(r *http.Request, key string) (float32, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, errors.Wrapf(errBadParameter, "%s=%q", key, raw)
	}
	return float32(v), nil
}

func queryBool(r *http.Request, key string) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.Wrapf(errBadParameter, "%s=%q", key, raw)
	}
	return v, nil
}

// queryInterpolation parses ?interp=. Only constant and linear can be forced,
// cubic sampling needs the tangents of the source.
func queryInterpolation(r *http.Request, key string) (anim.Interpolation, bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return anim.Linear, false, nil
	}
	interp, err := anim.ParseInterpolation(raw)
	if err != nil || interp == anim.Cubic {
		return interp, false, errors.Wrapf(errBadParameter, "%s=%q", key, raw)
	}
	return interp, true, nil
}

// forceInterpolation returns a copy of clip sampled with interp. Frames are shared.
func forceInterpolation(clip *anim.Clip, interp anim.Interpolation) *anim.Clip {
	tracks := append([]anim.TransformTrack(nil), clip.Tracks()...)
	for i := range tracks {
		tracks[i].Position.Interpolation = interp
		tracks[i].Rotation.Interpolation = interp
		tracks[i].Scaling.Interpolation = interp
	}
	return anim.NewClip(clip.Name(), tracks)
}

// HandlerClip samples a clip at ?t= seconds, wrapping when ?loop=true.
// ?interp=step or ?interp=linear overrides the authored interpolation.
func (s *Server) HandlerClip(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	t, err := queryFloat(r, "t")
	if err != nil {
		writeError(w, err)
		return
	}
	loop, err := queryBool(r, "loop")
	if err != nil {
		writeError(w, err)
		return
	}
	interp, forced, err := queryInterpolation(r, "interp")
	if err != nil {
		writeError(w, err)
		return
	}
	asset, err := s.Asset(vars["file"])
	if err != nil {
		writeError(w, err)
		return
	}
	clip, err := asset.Clip(vars["clip"])
	if err != nil {
		writeError(w, err)
		return
	}
	if forced {
		clip = forceInterpolation(clip, interp)
	}

	skel := asset.Skeleton
	rest := skel.RestPose()
	pose := rest.Clone()
	if err := clip.SamplePose(rest, t, loop, pose); err != nil {
		writeError(w, err)
		return
	}
	skinning := make([]mgl32.Mat4, skel.JointCount())
	if err := skel.SkinningMatrices(pose, skinning); err != nil {
		writeError(w, err)
		return
	}

	webutils.WriteJson(w, &clipSample{
		Clip:     clip.Name(),
		Time:     t,
		Loop:     loop,
		Joints:   jointStates(skel, pose),
		Skinning: skinning,
	})
}

func findMesh(meshes []*mesh.Mesh, key string) (*mesh.Mesh, error) {
	for _, m := range meshes {
		if m.Name == key {
			return m, nil
		}
	}
	if i, err := strconv.Atoi(key); err == nil && i >= 0 && i < len(meshes) {
		return meshes[i], nil
	}
	return nil, errors.Wrapf(errMeshNotFound, "%q", key)
}

// HandlerDumpMesh downloads the interleaved vertex buffer of a mesh, or its indices with ?buffer=index.
func (s *Server) HandlerDumpMesh(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	asset, err := s.Asset(vars["file"])
	if err != nil {
		writeError(w, err)
		return
	}
	m, err := findMesh(asset.Model.Meshes(), vars["mesh"])
	if err != nil {
		writeError(w, err)
		return
	}
	switch buffer := r.URL.Query().Get("buffer"); buffer {
	case "", "vertex":
		webutils.WriteFile(w, bytes.NewReader(m.VertexBytes()), m.Name+".vtx")
	case "index":
		webutils.WriteFile(w, bytes.NewReader(m.IndexBytes()), m.Name+".idx")
	default:
		writeError(w, errors.Wrapf(errBadParameter, "buffer=%q", buffer))
	}
}

func (s *Server) HandlerExportGLTF(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	asset, err := s.Asset(file)
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := gltfutils.FromAsset(asset)
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := gltfutils.ExportBinary(&buf, doc); err != nil {
		writeError(w, err)
		return
	}
	webutils.WriteFile(w, &buf, strings.TrimSuffix(file, filepath.Ext(file))+".glb")
}

// HandlerUploadAsset stores the multipart "data" file in the served directory.
func (s *Server) HandlerUploadAsset(w http.ResponseWriter, r *http.Request) {
	data, name, err := webutils.ReadFormFile(r, "data")
	if err != nil {
		writeError(w, errors.Wrapf(errBadParameter, "%v", err))
		return
	}
	if err := s.Store(name, data); err != nil {
		writeError(w, err)
		return
	}
	s.log.Info("asset uploaded", zap.String("file", name), zap.Int("size", len(data)))
	webutils.WriteJson(w, map[string]string{"stored": name})
}
