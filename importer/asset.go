package importer

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/rig_importer/anim"
	"github.com/mogaika/rig_importer/logger"
	"github.com/mogaika/rig_importer/mesh"
	"github.com/mogaika/rig_importer/model"
	"github.com/mogaika/rig_importer/skeleton"
)

// Asset is everything imported from one document.
type Asset struct {
	Name     string
	Kind     SourceKind
	Model    *model.Model
	Skeleton *skeleton.Skeleton
	Clips    *anim.Library
	Skins    *mesh.SkinSet
	Warnings []error
}

func (a *Asset) Clip(name string) (*anim.Clip, error) {
	return a.Clips.Clip(name)
}

// Collect runs the producers of src. Nothing is returned on a fatal error.
func Collect(name string, kind SourceKind, src Source) (*Asset, error) {
	meshes, err := src.Meshes()
	if err != nil {
		return nil, errors.Wrap(err, "meshes")
	}
	skel, err := src.Skeleton()
	if err != nil {
		return nil, errors.Wrap(err, "skeleton")
	}
	clips, err := src.Clips()
	if err != nil {
		return nil, errors.Wrap(err, "clips")
	}

	asset := &Asset{
		Name:     name,
		Kind:     kind,
		Model:    model.New(meshes, model.Shape{}),
		Skeleton: skel,
		Clips:    anim.NewLibrary(clips...),
		Skins:    src.Skins(),
		Warnings: src.Warnings(),
	}
	if asset.Skins == nil {
		asset.Skins = mesh.NewSkinSet()
	}

	logger.Log.Info("asset imported",
		zap.String("file", name),
		zap.Stringer("kind", kind),
		zap.Int("meshes", len(meshes)),
		zap.Int("joints", skel.JointCount()),
		zap.Int("clips", len(clips)),
		zap.Int("warnings", len(asset.Warnings)))
	return asset, nil
}

// Report collects non-fatal problems of one import.
type Report struct {
	File     string
	Log      *zap.Logger
	warnings []error
}

func NewReport(file string, log *zap.Logger) *Report {
	return &Report{File: file, Log: log}
}

// Unsupported records a skipped piece of the document.
func (r *Report) Unsupported(format string, args ...interface{}) {
	r.Add(errors.Wrapf(ErrUnsupportedFeature, format, args...))
}

func (r *Report) Add(err error) {
	r.Log.Warn("import warning", zap.String("file", r.File), zap.Error(err))
	r.warnings = append(r.warnings, err)
}

func (r *Report) Warnings() []error {
	return r.warnings
}

// Malformed builds a fatal error for a broken document.
func Malformed(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformedDocument, format, args...)
}
