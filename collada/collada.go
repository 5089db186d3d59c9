// Package collada resolves documents read by go-collada into the flat geometry
// the importer consumes: number lists parsed, accessors applied, references looked up.
package collada

import (
	"encoding/xml"
	"io"
	"os"

	dae "github.com/mogaika/go-collada"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/ianaindex"
)

type Document struct {
	Raw        *dae.Collada
	Version    string
	UpAxis     string
	Geometries []Geometry
}

type Geometry struct {
	ID   string
	Name string
	// nil for <spline> and other non mesh geometry
	Mesh *Mesh
}

// charsetReader handles exporters that write latin-1 or windows-125x documents.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, errors.Wrapf(err, "charset %q", label)
	}
	if enc == nil {
		return nil, errors.Errorf("charset %q is not supported", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

// Decode reads the go-collada schema. dae.LoadDocumentFromReader leaves
// CharsetReader unset, so the decoder is built here.
func Decode(r io.Reader) (*Document, error) {
	raw := &dae.Collada{}
	d := xml.NewDecoder(r)
	d.CharsetReader = charsetReader
	if err := d.Decode(raw); err != nil {
		return nil, errors.Wrap(err, "decoding collada")
	}
	return Resolve(raw)
}

func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return doc, nil
}

// Resolve parses the geometry libraries of raw.
func Resolve(raw *dae.Collada) (*Document, error) {
	doc := &Document{Raw: raw, Version: string(raw.Version)}
	if raw.Asset != nil {
		doc.UpAxis = string(raw.Asset.UpAxis)
	}
	for _, lib := range raw.LibraryGeometries {
		for _, g := range lib.Geometry {
			geom := Geometry{ID: string(g.Id), Name: g.Name}
			if g.Mesh != nil {
				m, err := resolveMesh(g.Mesh)
				if err != nil {
					return nil, errors.Wrapf(err, "geometry %q", g.Id)
				}
				geom.Mesh = m
			}
			doc.Geometries = append(doc.Geometries, geom)
		}
	}
	return doc, nil
}

// HasControllers reports skin or morph controllers, either declared or instanced.
func (d *Document) HasControllers() bool {
	if len(d.Raw.LibraryControllers) != 0 {
		return true
	}
	found := false
	d.walkRaw(func(n *dae.Node) {
		found = found || len(n.InstanceController) != 0
	})
	return found
}

func (d *Document) HasAnimations() bool {
	return len(d.Raw.LibraryAnimations) != 0 || len(d.Raw.LibraryAnimationClips) != 0
}

func (d *Document) walkRaw(fn func(n *dae.Node)) {
	var walk func(nodes []*dae.Node)
	walk = func(nodes []*dae.Node) {
		for _, n := range nodes {
			fn(n)
			walk(n.Node)
		}
	}
	for _, lib := range d.Raw.LibraryVisualScenes {
		for _, vs := range lib.VisualScene {
			walk(vs.Node)
		}
	}
}
