package main

import (
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/mogaika/rig_importer/config"
	"github.com/mogaika/rig_importer/logger"
	"github.com/mogaika/rig_importer/web"

	_ "github.com/mogaika/rig_importer/importer/daeimport"
	_ "github.com/mogaika/rig_importer/importer/gltfimport"
)

func main() {
	var cfgPath, addr, dir, logLevel, logFile string
	flag.StringVar(&cfgPath, "config", "", "Path to yaml config")
	flag.StringVar(&addr, "i", "", "Address of server, overrides web.addr")
	flag.StringVar(&dir, "dir", "", "Directory with .gltf, .glb and .dae files, overrides web.dir")
	flag.StringVar(&logLevel, "loglevel", "", "debug, info, warn or error, overrides logging.level")
	flag.StringVar(&logFile, "logfile", "", "Rotated log file, overrides logging.file")
	flag.Parse()

	cfg := config.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			log.Fatal(err)
		}
	}
	if addr != "" {
		cfg.Web.Addr = addr
	}
	if dir != "" {
		cfg.Web.Dir = dir
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFile != "" {
		cfg.Logging.File = logFile
	}

	if err := logger.InitWithFileConfig(cfg.Logging.Level, cfg.LogFileConfig(), true); err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	s := web.NewServer(cfg.Web.Dir, cfg.ImportOptions())
	if err := web.StartServer(cfg.Web.Addr, s); err != nil {
		logger.Log.Fatal("server stopped", zap.Error(err))
	}
}
