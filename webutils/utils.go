// Package webutils holds response helpers shared by the inspector handlers.
package webutils

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/rig_importer/logger"
)

func WriteFileHeaders(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
}

func WriteFile(w http.ResponseWriter, in io.Reader, name string) {
	WriteFileHeaders(w, name)
	if _, err := io.Copy(w, in); err != nil {
		logger.Log.Warn("writing file response", zap.String("file", name), zap.Error(err))
	}
}

func WriteJson(w http.ResponseWriter, data interface{}) {
	res, err := json.Marshal(data)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, errors.Wrap(err, "marshaling response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	WriteResult(w, res)
}

func WriteResult(w http.ResponseWriter, data []byte) {
	if _, err := w.Write(data); err != nil {
		logger.Log.Warn("writing response", zap.Error(err))
	}
}

type jError struct {
	Error string `json:"error"`
}

func WriteError(w http.ResponseWriter, code int, err error) {
	logger.Log.Warn("request failed", zap.Int("status", code), zap.Error(err))
	data, merr := json.Marshal(&jError{Error: err.Error()})
	if merr != nil {
		http.Error(w, err.Error(), code)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	WriteResult(w, data)
}

// ReadFormFile returns the content of an uploaded multipart file.
func ReadFormFile(r *http.Request, formFileKey string) ([]byte, string, error) {
	if strings.ToUpper(r.Method) != "POST" {
		return nil, "", errors.Errorf("invalid http method %q", r.Method)
	}
	f, header, err := r.FormFile(formFileKey)
	if err != nil {
		return nil, "", errors.Wrap(err, "getting form file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", errors.Wrap(err, "reading form file")
	}
	return data, header.Filename, nil
}
