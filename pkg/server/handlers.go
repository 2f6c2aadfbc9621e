package server

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/matzehuels/xwire/pkg/diagram"
	"github.com/matzehuels/xwire/pkg/errors"
	"github.com/matzehuels/xwire/pkg/observability"
	"github.com/matzehuels/xwire/pkg/pipeline"
	"github.com/matzehuels/xwire/pkg/render"
	"github.com/matzehuels/xwire/pkg/xlights"
)

// maxBodyBytes bounds request bodies; diagrams of large shows stay well
// below it.
const maxBodyBytes = 32 << 20

type fileRequest struct {
	FilePath string `json:"filePath"`
}

// importRequest is pipeline.Options plus store handling.
type importRequest struct {
	pipeline.Options

	// Merge appends the import to the current diagram. False replaces it.
	// Defaults to true.
	Merge *bool `json:"merge,omitempty"`
}

type importResponse struct {
	*pipeline.ImportResult
	Merged bool `json:"merged"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.build.Version})
}

func (s *Server) handleParseNetworks(w http.ResponseWriter, r *http.Request) {
	path, ok := s.filePath(w, r)
	if !ok {
		return
	}
	controllers, err := xlights.ParseNetworksFile(path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("parsed networks file", "path", path, "controllers", len(controllers))
	s.watcher.SetControllers(controllers)
	writeJSON(w, http.StatusOK, controllers)
}

func (s *Server) handleParseRGBEffects(w http.ResponseWriter, r *http.Request) {
	path, ok := s.filePath(w, r)
	if !ok {
		return
	}
	models, err := xlights.ParseRGBEffectsFile(path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("parsed rgbeffects file", "path", path, "models", len(models.Models), "controllers", len(models.Controllers))
	writeJSON(w, http.StatusOK, models)
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	path, ok := s.filePath(w, r)
	if !ok {
		return
	}
	if err := s.watcher.Watch(path); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Now watching xLights file",
	})
}

func (s *Server) handleControllers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.watcher.Controllers())
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !s.decode(w, r, &req) {
		return
	}
	opts := req.Options
	s.applyDefaults(&opts)
	opts.Logger = s.logger

	res, err := s.runner.Import(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	merge := req.Merge == nil || *req.Merge
	if merge {
		s.store.Merge(res.Diagram)
	} else {
		s.store.Load(res.Diagram)
	}
	if err := s.persist.Save(r.Context(), s.store.Snapshot()); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeStorage, err, "save diagram"))
		return
	}

	writeJSON(w, http.StatusOK, importResponse{ImportResult: res, Merged: merge})
}

func (s *Server) applyDefaults(o *pipeline.Options) {
	d := s.defaults
	if o.NetworksPath == "" {
		o.NetworksPath = d.Networks
	}
	if o.RGBEffectsPath == "" {
		o.RGBEffectsPath = d.RGBEffects
	}
	if o.Strategy == "" {
		o.Strategy = d.Strategy
	}
	if o.Rule == "" {
		o.Rule = d.LogicalPortRule
	}
	if len(o.DifferentialTypes) == 0 {
		o.DifferentialTypes = d.DifferentialTypes
	}
}

func (s *Server) handleGetDiagram(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleSaveDiagram(w http.ResponseWriter, r *http.Request) {
	var d diagram.Diagram
	if !s.decode(w, r, &d) {
		return
	}
	s.store.Load(d)
	if err := s.persist.Save(r.Context(), s.store.Snapshot()); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeStorage, err, "save diagram"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("format")
	if name == "" {
		name = string(render.FormatSVG)
	}
	formats, err := render.ParseFormats(name, render.DiagramFormats)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(formats) != 1 {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidFormat, "render one format per request"))
		return
	}
	detailed, _ := strconv.ParseBool(q.Get("detailed"))

	format := formats[0]
	artifacts, err := s.runner.Render(r.Context(), s.store.Snapshot(), pipeline.RenderOptions{
		Formats:  formats,
		Detailed: detailed,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[format])
}

// ===== Helpers =====

// filePath decodes a {"filePath"} body, answering 400 when it is missing.
func (s *Server) filePath(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req fileRequest
	if !s.decode(w, r, &req) {
		return "", false
	}
	if err := errors.ValidateFilePath(req.FilePath); err != nil {
		if req.FilePath == "" {
			err = errors.New(errors.ErrCodeInvalidInput, "filePath is required")
		}
		s.writeError(w, r, err)
		return "", false
	}
	if _, err := os.Stat(req.FilePath); err != nil {
		s.writeError(w, r, errors.New(errors.ErrCodeFileNotFound, "File not found"))
		return "", false
	}
	return req.FilePath, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil && err != io.EOF {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body"))
		return false
	}
	return true
}

type errorBody struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "code", code, "err", err)
	}
	observability.HTTP().OnError(r.Context(), r.Method, r.URL.Path, string(code), err)
	writeJSON(w, status, errorBody{Error: errors.UserMessage(err), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
