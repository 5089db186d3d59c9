package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/rig_importer/config"
	"github.com/mogaika/rig_importer/importer"
	"github.com/mogaika/rig_importer/logger"
	"github.com/mogaika/rig_importer/utils/gltfutils"

	_ "github.com/mogaika/rig_importer/importer/daeimport"
	_ "github.com/mogaika/rig_importer/importer/gltfimport"
)

func convert(in, out string, opts importer.Options) error {
	asset, err := importer.Load(in, opts)
	if err != nil {
		return err
	}
	doc, err := gltfutils.FromAsset(asset)
	if err != nil {
		return errors.Wrap(err, "building gltf")
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := gltfutils.ExportBinary(f, doc); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", out)
	}
	logger.Log.Info("converted", zap.String("in", in), zap.String("out", out),
		zap.Int("warnings", len(asset.Warnings)))
	return f.Close()
}

func main() {
	var in, out, cfgPath string
	flag.StringVar(&in, "f", "", "Asset to convert (.gltf, .glb, .dae)")
	flag.StringVar(&out, "o", "", "Output .glb, defaults to input name with .glb")
	flag.StringVar(&cfgPath, "config", "", "Path to yaml config")
	flag.Parse()

	if in == "" {
		flag.PrintDefaults()
		return
	}
	if out == "" {
		out = strings.TrimSuffix(in, filepath.Ext(in)) + ".glb"
	}
	if filepath.Clean(out) == filepath.Clean(in) {
		log.Fatalf("output %s would overwrite the input", out)
	}

	cfg := config.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			log.Fatal(err)
		}
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, cfg.LogFileConfig(), true); err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := convert(in, out, cfg.ImportOptions()); err != nil {
		logger.Log.Fatal("conversion failed", zap.Error(err))
	}
}
