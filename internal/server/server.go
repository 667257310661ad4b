// Package server exposes generation runs over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fdmart/internal/brightness"
	"fdmart/internal/config"
	"fdmart/internal/source"
	"fdmart/internal/template"
	"fdmart/internal/toolpath"
)

// Runner executes one generation at a time. *toolpath.Runner implements it.
type Runner interface {
	Busy() bool
	Run(job toolpath.Job) (*toolpath.Result, error)
}

// Server handles uploads. One generation runs at a time; concurrent
// requests get 409 Conflict.
type Server struct {
	cfg    *config.Config
	tpl    *template.Template
	runner Runner
	log    *slog.Logger
}

// New returns a server using cfg as the base settings of every request and
// tpl, which may be nil, as the default template.
func New(cfg *config.Config, tpl *template.Template, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{cfg: cfg, tpl: tpl, runner: toolpath.NewRunner(log), log: log}
}

// WithRunner replaces the runner used for generation.
func (s *Server) WithRunner(r Runner) *Server {
	s.runner = r
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/status", s.handleStatus)
	r.Post("/generate", s.handleGenerate)
	return r
}

// ListenAndServe serves until the listener fails.
func (s *Server) ListenAndServe() error {
	s.log.Info("listening", "addr", s.cfg.Server.Listen)
	return http.ListenAndServe(s.cfg.Server.Listen, s.Routes())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{
		"busy": s.runner.Busy(),
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	log := s.log.With("request", middleware.GetReqID(r.Context()))
	if s.runner.Busy() {
		http.Error(w, toolpath.ErrBusy.Error(), http.StatusConflict)
		return
	}

	maxBytes := int64(s.cfg.Server.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		http.Error(w, "bad multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	cfg := *s.cfg
	if v := r.FormValue("config"); v != "" {
		if err := cfg.Overlay([]byte(v)); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	for key, vals := range r.MultipartForm.Value {
		if key == "config" || len(vals) == 0 {
			continue
		}
		if err := cfg.Set(key, vals[0], log); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	data, name, err := formFile(r, "image")
	if err != nil {
		http.Error(w, toolpath.ErrNoImage.Error(), http.StatusBadRequest)
		return
	}
	img, err := source.Decode(data, name, cfg.Image.MaxPixels)
	if err != nil {
		http.Error(w, "decode image: "+err.Error(), http.StatusBadRequest)
		return
	}
	field, err := brightness.NewField(img)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tpl := s.tpl
	if data, _, err := formFile(r, "template"); err == nil {
		tpl = template.New(string(data))
	}

	res, err := s.runner.Run(cfg.Job(field))
	switch {
	case errors.Is(err, toolpath.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, toolpath.ErrNoImage), errors.Is(err, toolpath.ErrInvalidParams):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		log.Error("generation failed", "error", err)
		http.Error(w, "generation failed", http.StatusInternalServerError)
		return
	}

	out, werr := res.Render(tpl)
	if werr != nil {
		log.Warn("template merge", "warning", werr)
		w.Header().Set("X-Template-Warning", werr.Error())
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="artwork.gcode"`)
	w.Header().Set("X-Run-ID", res.Summary.RunID)
	w.Header().Set("X-Extrusion-Mm", fmt.Sprintf("%.2f", res.Summary.Extrusion))
	io.WriteString(w, out)
}

func formFile(r *http.Request, field string) ([]byte, string, error) {
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	return data, filename(hdr), nil
}

func filename(hdr *multipart.FileHeader) string {
	if hdr == nil {
		return ""
	}
	return hdr.Filename
}
