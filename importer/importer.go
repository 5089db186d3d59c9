// Package importer turns interchange files into runtime assets.
// Format adapters live in subpackages and register themselves by file extension.
package importer

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/rig_importer/anim"
	"github.com/mogaika/rig_importer/mesh"
	"github.com/mogaika/rig_importer/skeleton"
)

var (
	ErrMalformedDocument  = errors.New("malformed document")
	ErrUnsupportedFeature = errors.New("unsupported feature")
	ErrUnknownFormat      = errors.New("unknown format")
)

type SourceKind int

const (
	KindUnknown SourceKind = iota
	KindGLTF
	KindCollada
)

func (k SourceKind) String() string {
	switch k {
	case KindGLTF:
		return "gltf"
	case KindCollada:
		return "collada"
	default:
		return "unknown"
	}
}

func (k SourceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

type Options struct {
	// Unsorted keyframe times fail the import instead of producing a warning.
	StrictKeyframes bool
	// Cubic spline tracks are imported as Linear, tangents dropped.
	CubicAsLinear  bool
	SkipAnimations bool
	SkipMeshes     bool
	// Scene node transforms are applied to the vertices of geometry instanced exactly once.
	// Only formats without a joint hierarchy use it.
	BakeNodeTransforms bool
}

// Source is one opened document. Every producer may be called once.
type Source interface {
	Meshes() ([]*mesh.Mesh, error)
	Skeleton() (*skeleton.Skeleton, error)
	Clips() ([]*anim.Clip, error)
	// Skins is valid after Meshes.
	Skins() *mesh.SkinSet
	Warnings() []error
}

type Opener func(path string, opts Options) (Source, error)

type handler struct {
	kind SourceKind
	open Opener
}

var gHandlers = make(map[string]handler)

func SetHandler(ext string, kind SourceKind, open Opener) {
	gHandlers[strings.ToLower(ext)] = handler{kind: kind, open: open}
}

func KindOf(path string) SourceKind {
	if h, ok := gHandlers[strings.ToLower(filepath.Ext(path))]; ok {
		return h.kind
	}
	return KindUnknown
}

// Extensions lists registered extensions in sorted order.
func Extensions() []string {
	exts := make([]string, 0, len(gHandlers))
	for ext := range gHandlers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func Open(path string, opts Options) (Source, error) {
	ext := strings.ToLower(filepath.Ext(path))
	h, ok := gHandlers[ext]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownFormat, "no handler for %q extension", ext)
	}
	src, err := h.open(path, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	return src, nil
}

// Load opens path and runs every producer of its adapter.
func Load(path string, opts Options) (*Asset, error) {
	src, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	asset, err := Collect(filepath.Base(path), KindOf(path), src)
	if err != nil {
		return nil, errors.Wrapf(err, "importing %s", path)
	}
	return asset, nil
}
