package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mogaika/rig_importer/config"
	"github.com/mogaika/rig_importer/importer"
	"github.com/mogaika/rig_importer/logger"
	"github.com/mogaika/rig_importer/skeleton"
	"github.com/mogaika/rig_importer/utils"

	_ "github.com/mogaika/rig_importer/importer/daeimport"
	_ "github.com/mogaika/rig_importer/importer/gltfimport"
)

func dumpJoint(w io.Writer, skel *skeleton.Skeleton, children [][]int, j, depth int) {
	rest := skel.LocalRest(j)
	fmt.Fprintf(w, "%*s%d %s t%v\n", depth*2+2, "", j, skel.Name(j), rest.Translation)
	for _, c := range children[j] {
		dumpJoint(w, skel, children, c, depth+1)
	}
}

func dump(w io.Writer, asset *importer.Asset, verbose bool) {
	fmt.Fprintf(w, "%s (%v)\n", asset.Name, asset.Kind)

	meshes := asset.Model.Meshes()
	fmt.Fprintf(w, "meshes: %d\n", len(meshes))
	for mi, m := range meshes {
		min, max := m.Bounds()
		fmt.Fprintf(w, "  %d %s: %d vertices, %d triangles, bounds %v %v", mi, m.Name,
			len(m.Vertices), m.TriangleCount(), min, max)
		if st := asset.Skins.For(mi); st != nil {
			fmt.Fprintf(w, ", skin %s (%d joints)", st.Name, len(st.Joints))
		}
		fmt.Fprintln(w)
	}

	skel := asset.Skeleton
	fmt.Fprintf(w, "joints: %d\n", skel.JointCount())
	children := make([][]int, skel.JointCount())
	var roots []int
	for j := 0; j < skel.JointCount(); j++ {
		if p := skel.Parent(j); p == skeleton.NoParent {
			roots = append(roots, j)
		} else {
			children[p] = append(children[p], j)
		}
	}
	for _, r := range roots {
		dumpJoint(w, skel, children, r, 0)
	}

	clips := asset.Clips.Clips()
	fmt.Fprintf(w, "clips: %d\n", len(clips))
	for _, c := range clips {
		fmt.Fprintf(w, "  %s: %.3fs from %.3f, %d tracks\n", c.Name(), c.Duration(), c.StartTime(), len(c.Tracks()))
		if verbose {
			for _, tt := range c.Tracks() {
				fmt.Fprintf(w, "    %s: position %d (%v), rotation %d (%v), scale %d (%v)\n",
					skel.Name(tt.Joint),
					tt.Position.Len(), tt.Position.Interpolation,
					tt.Rotation.Len(), tt.Rotation.Interpolation,
					tt.Scaling.Len(), tt.Scaling.Interpolation)
			}
		}
	}

	fmt.Fprintf(w, "warnings: %d\n", len(asset.Warnings))
	for _, warn := range asset.Warnings {
		fmt.Fprintf(w, "  %v\n", warn)
	}

	if verbose {
		fmt.Fprint(w, utils.SDump(skel.RestPose()))
	}
}

func main() {
	var file, cfgPath string
	var verbose bool
	flag.StringVar(&file, "f", "", "Asset to dump (.gltf, .glb, .dae)")
	flag.StringVar(&cfgPath, "config", "", "Path to yaml config")
	flag.BoolVar(&verbose, "v", false, "Print tracks and the rest pose")
	flag.Parse()

	if file == "" {
		flag.PrintDefaults()
		return
	}

	cfg := config.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			log.Fatal(err)
		}
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	if err := logger.Init(level, cfg.Logging.File); err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	asset, err := importer.Load(file, cfg.ImportOptions())
	if err != nil {
		log.Fatal(err)
	}
	dump(os.Stdout, asset, verbose)
}
