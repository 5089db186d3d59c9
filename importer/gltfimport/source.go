// Package gltfimport reads glTF 2.0 scenes (.gltf, .glb).
// Every node becomes a joint; joint indices equal node indices.
package gltfimport

import (
	"fmt"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/mogaika/rig_importer/importer"
	"github.com/mogaika/rig_importer/logger"
	"github.com/mogaika/rig_importer/mesh"
)

func init() {
	importer.SetHandler(".gltf", importer.KindGLTF, open)
	importer.SetHandler(".glb", importer.KindGLTF, open)
}

func open(path string, opts importer.Options) (importer.Source, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, importer.Malformed("%v", err)
	}
	return FromDocument(filepath.Base(path), doc, opts), nil
}

type Source struct {
	*importer.Report
	doc   *gltf.Document
	opts  importer.Options
	log   *zap.Logger
	skins *mesh.SkinSet
}

// FromDocument wraps an already decoded document.
func FromDocument(name string, doc *gltf.Document, opts importer.Options) *Source {
	log := logger.Named("gltf").With(zap.String("file", name))
	return &Source{
		Report: importer.NewReport(name, log),
		doc:    doc,
		opts:   opts,
		log:    log,
		skins:  mesh.NewSkinSet(),
	}
}

func (s *Source) Document() *gltf.Document {
	return s.doc
}

func (s *Source) Skins() *mesh.SkinSet {
	return s.skins
}

// jointNames makes node names unique: empty names become node_<i>, repeated ones get _<i>.
func jointNames(nodes []*gltf.Node) []string {
	names := make([]string, len(nodes))
	used := make(map[string]bool, len(nodes))
	for i, node := range nodes {
		name := node.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		for used[name] {
			name = fmt.Sprintf("%s_%d", name, i)
		}
		used[name] = true
		names[i] = name
	}
	return names
}
