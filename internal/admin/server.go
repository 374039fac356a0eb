// Package admin serves the console over HTTP: the marker set for a browser
// map client, click-to-select, unit commands and the advisory banner.
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"rescueops/internal/fleet"
	"rescueops/internal/logging"
	"rescueops/internal/render"
	"rescueops/internal/sim"
)

//go:embed templates/index.html
var content embed.FS

type Server struct {
	Console *sim.Console
	Map     *render.Adapter
	tpl     *template.Template
	mux     *http.ServeMux
}

func NewServer(console *sim.Console, m *render.Adapter) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	s := &Server{Console: console, Map: m, tpl: tpl, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /markers", s.handleMarkers)
	s.mux.HandleFunc("POST /markers/{id}/click", s.handleClick)
	s.mux.HandleFunc("POST /deselect", s.handleDeselect)
	s.mux.HandleFunc("POST /command/{name}", s.handleCommand)
	s.mux.HandleFunc("GET /advisory", s.handleAdvisory)
	s.mux.HandleFunc("GET /units", s.handleUnits)
}

// Handler exposes the routes for embedding and tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	log := logging.FromContext(ctx)
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("admin server listening", "addr", addr, "map", s.Map.Backend().Name())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Backend  string
		MapsKey  string
		Advisory string
		Selected string
	}{
		Backend:  s.Map.Backend().Name(),
		Advisory: s.Console.Advisory(),
		Selected: s.Console.SelectedID(),
	}
	if h, ok := s.Map.Backend().(*render.HostedBackend); ok {
		data.MapsKey = h.APIKey()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		logging.FromContext(r.Context()).Error("render index", "err", err)
	}
}

type markersResponse struct {
	Backend  string           `json:"backend"`
	Revision uint64           `json:"revision"`
	Selected string           `json:"selected"`
	Markers  []render.Visual  `json:"markers"`
	Zones    []render.Overlay `json:"zones"`
}

func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	resp := markersResponse{
		Backend:  s.Map.Backend().Name(),
		Selected: s.Console.SelectedID(),
		Markers:  s.Map.Visuals(),
		Zones:    s.Map.Overlays(),
	}
	if h, ok := s.Map.Backend().(*render.HostedBackend); ok {
		resp.Revision = h.Revision()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.Map.Click(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"selected": id})
}

func (s *Server) handleDeselect(w http.ResponseWriter, r *http.Request) {
	s.Console.Deselect()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	u, err := s.Console.DispatchName(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"unit": u, "advisory": s.Console.Advisory()})
}

func (s *Server) handleAdvisory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"advisory": s.Console.Advisory()})
}

func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		fleet.Snapshot
		Selected string `json:"selected"`
	}{s.Console.Store().Snapshot(), s.Console.SelectedID()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, render.ErrNoVisual), errors.Is(err, fleet.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sim.ErrUnknownCommand):
		return http.StatusBadRequest
	case errors.Is(err, render.ErrNotClickable), errors.Is(err, sim.ErrNotSelectable), errors.Is(err, sim.ErrNoUnitSelected):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
