// Package daeimport reads static meshes from COLLADA 1.4 documents (.dae).
// Skin controllers and animations are reported as unsupported; the skeleton is empty.
package daeimport

import (
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	dae "github.com/mogaika/go-collada"
	"go.uber.org/zap"

	"github.com/mogaika/rig_importer/anim"
	"github.com/mogaika/rig_importer/collada"
	"github.com/mogaika/rig_importer/importer"
	"github.com/mogaika/rig_importer/logger"
	"github.com/mogaika/rig_importer/mesh"
	"github.com/mogaika/rig_importer/skeleton"
)

func init() {
	importer.SetHandler(".dae", importer.KindCollada, open)
}

func open(path string, opts importer.Options) (importer.Source, error) {
	doc, err := collada.Open(path)
	if err != nil {
		return nil, importer.Malformed("%v", err)
	}
	return FromDocument(filepath.Base(path), doc, opts), nil
}

type Source struct {
	*importer.Report
	doc   *collada.Document
	opts  importer.Options
	log   *zap.Logger
	skins *mesh.SkinSet
}

func FromDocument(name string, doc *collada.Document, opts importer.Options) *Source {
	log := logger.Named("collada").With(zap.String("file", name))
	return &Source{
		Report: importer.NewReport(name, log),
		doc:    doc,
		opts:   opts,
		log:    log,
		skins:  mesh.NewSkinSet(),
	}
}

func (s *Source) Document() *collada.Document {
	return s.doc
}

// Skins is always empty, controllers are not imported.
func (s *Source) Skins() *mesh.SkinSet {
	return s.skins
}

func (s *Source) Skeleton() (*skeleton.Skeleton, error) {
	if s.doc.HasControllers() {
		s.Unsupported("skin controllers are not imported")
	}
	return skeleton.Build(*skeleton.NewPose(0), nil)
}

func (s *Source) Clips() ([]*anim.Clip, error) {
	if s.doc.HasAnimations() && !s.opts.SkipAnimations {
		s.Unsupported("animations are not imported")
	}
	return nil, nil
}

// instanceTransforms returns the global node transform of every geometry
// instanced exactly once in the visual scenes.
func (s *Source) instanceTransforms() (map[string]mgl32.Mat4, error) {
	counts := make(map[string]int)
	globals := make(map[string]mgl32.Mat4)
	err := s.doc.WalkNodes(func(n *dae.Node, global mgl32.Mat4) error {
		for _, ig := range n.InstanceGeometry {
			id := collada.RefID(ig.Url)
			counts[id]++
			globals[id] = global
		}
		return nil
	})
	if err != nil {
		return nil, importer.Malformed("%v", err)
	}
	for id, c := range counts {
		if c != 1 {
			s.log.Debug("geometry instanced several times, transform not baked",
				zap.String("geometry", id), zap.Int("instances", c))
			delete(globals, id)
		}
	}
	return globals, nil
}
