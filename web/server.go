// Package web is the asset inspector: a JSON API over the files of one directory.
package web

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/rig_importer/importer"
	"github.com/mogaika/rig_importer/logger"
	"github.com/mogaika/rig_importer/status"
)

var ErrBadFileName = errors.New("bad file name")

// Server imports files on first request and keeps them until the file is replaced.
type Server struct {
	dir  string
	opts importer.Options
	log  *zap.Logger
	hub  *status.Hub

	mu     sync.RWMutex
	assets map[string]*importer.Asset
	// bumped by Store; an import begun under an older generation is not cached
	gens map[string]uint64
}

func NewServer(dir string, opts importer.Options) *Server {
	log := logger.Named("web")
	return &Server{
		dir:    dir,
		opts:   opts,
		log:    log,
		hub:    status.NewHub(log.Named("status")),
		assets: make(map[string]*importer.Asset),
		gens:   make(map[string]uint64),
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/json/assets", s.HandlerAssets).Methods("GET")
	r.HandleFunc("/json/asset/{file}", s.HandlerAsset).Methods("GET")
	r.HandleFunc("/json/asset/{file}/clip/{clip}", s.HandlerClip).Methods("GET")
	r.HandleFunc("/dump/asset/{file}/gltf", s.HandlerExportGLTF).Methods("GET")
	r.HandleFunc("/dump/asset/{file}/{mesh}", s.HandlerDumpMesh).Methods("GET")
	r.HandleFunc("/upload/asset", s.HandlerUploadAsset).Methods("POST")
	r.Handle("/ws/status", s.hub)
	return r
}

// Handler is Router wrapped with panic recovery and access logging.
func (s *Server) Handler() http.Handler {
	access := zap.NewStdLog(s.log.Named("access")).Writer()
	return handlers.LoggingHandler(access, handlers.RecoveryHandler()(s.Router()))
}

// Hub receives an event for every import and upload.
func (s *Server) Hub() *status.Hub {
	return s.hub
}

func StartServer(addr string, s *Server) error {
	s.log.Info("starting server", zap.String("addr", addr), zap.String("dir", s.dir))
	return http.ListenAndServe(addr, s.Handler())
}

func checkName(file string) error {
	if file == "" || file != filepath.Base(file) || file == "." || file == ".." {
		return errors.Wrapf(ErrBadFileName, "%q", file)
	}
	return nil
}

// List returns files of the directory that some adapter can import.
func (s *Server) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, "listing assets")
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && importer.KindOf(e.Name()) != importer.KindUnknown {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Asset returns the cached import of file, importing it if needed.
func (s *Server) Asset(file string) (*importer.Asset, error) {
	if err := checkName(file); err != nil {
		return nil, err
	}
	s.mu.RLock()
	asset, ok := s.assets[file]
	gen := s.gens[file]
	s.mu.RUnlock()
	if ok {
		return asset, nil
	}

	path := filepath.Join(s.dir, file)
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	asset, err := importer.Load(path, s.opts)
	if err != nil {
		s.hub.Publish(status.Event{Kind: status.Failed, File: file, Message: err.Error()})
		return nil, err
	}
	s.hub.Publish(status.Event{Kind: status.Imported, File: file, Warnings: len(asset.Warnings)})
	return s.cache(file, gen, asset), nil
}

// cache stores asset imported at generation gen unless another request cached
// the file first or Store replaced it since.
func (s *Server) cache(file string, gen uint64, asset *importer.Asset) *importer.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.assets[file]; ok {
		return cached
	}
	if s.gens[file] != gen {
		s.log.Debug("file replaced during import, not cached", zap.String("file", file))
		return asset
	}
	s.assets[file] = asset
	return asset
}

// Store writes data as file into the directory and drops its cached import.
func (s *Server) Store(file string, data []byte) error {
	if err := checkName(file); err != nil {
		return err
	}
	if importer.KindOf(file) == importer.KindUnknown {
		return errors.Wrapf(importer.ErrUnknownFormat, "%q, expected one of %s",
			file, strings.Join(importer.Extensions(), " "))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(filepath.Join(s.dir, file), data, 0644); err != nil {
		return errors.Wrapf(err, "storing %s", file)
	}
	delete(s.assets, file)
	s.gens[file]++
	s.hub.Publish(status.Event{Kind: status.Uploaded, File: file})
	return nil
}
