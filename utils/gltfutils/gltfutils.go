// Package gltfutils writes imported assets back out as glTF.
package gltfutils

import (
	"io"

	"github.com/qmuntal/gltf"
)

func NewDocument() *gltf.Document {
	return gltf.NewDocument()
}

// ExportBinary writes doc as .glb. When the default scene is empty every root node is added to it.
func ExportBinary(w io.Writer, doc *gltf.Document) error {
	if len(doc.Scenes) == 0 {
		doc.Scenes = append(doc.Scenes, &gltf.Scene{})
		doc.Scene = gltf.Index(0)
	}
	if scene := doc.Scenes[0]; len(scene.Nodes) == 0 {
		scene.Nodes = RootNodes(doc)
	}

	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}

// RootNodes returns the nodes that are nobody's child.
func RootNodes(doc *gltf.Document) []uint32 {
	child := make([]bool, len(doc.Nodes))
	for _, node := range doc.Nodes {
		for _, c := range node.Children {
			if int(c) < len(child) {
				child[c] = true
			}
		}
	}
	var roots []uint32
	for i := range doc.Nodes {
		if !child[i] {
			roots = append(roots, uint32(i))
		}
	}
	return roots
}
