// Package admin serves the operator surface: an HTML status page, JSON
// status and sanity endpoints, blackout controls and the live row feed.
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"blackout-sim/internal/config"
	"blackout-sim/internal/sanity"
	"blackout-sim/internal/sim"
)

const shutdownTimeout = 5 * time.Second

//go:embed templates/index.html
var content embed.FS

type Server struct {
	Sim *sim.Simulator
	hub *sim.Hub
	tpl *template.Template
	log *slog.Logger
}

// NewServer serves sim. A nil hub disables the /ws feed.
func NewServer(s *sim.Simulator, hub *sim.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	return &Server{Sim: s, hub: hub, tpl: tpl, log: logger.With("component", "admin")}
}

// Handler returns the routed mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /sanity", s.handleSanity)
	mux.HandleFunc("POST /trigger-blackout", s.handleTrigger)
	mux.HandleFunc("POST /disable", s.handleDisable)
	mux.HandleFunc("POST /use-item", s.handleUseItem)
	if s.hub != nil {
		mux.Handle("GET /ws", s.hub)
	}
	return mux
}

// Start listens on addr and serves until ctx is cancelled, then shuts down
// gracefully. The simulator's writer is told when the server is up.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	s.Sim.SetAdminStatus(true)
	defer s.Sim.SetAdminStatus(false)
	s.log.Info("admin server listening", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if s.hub != nil {
		s.hub.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// statusFor maps simulator errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sim.ErrNoRound):
		return http.StatusConflict
	case errors.Is(err, sim.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st, err := s.Sim.Status(r.Context())
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	entries, err := s.Sim.Sanity(r.Context())
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	data := struct {
		Status sim.Status
		Sanity []sanity.Entry
		Zones  []config.ZoneChance
		Feed   bool
	}{
		Status: st,
		Sanity: entries,
		Zones:  s.Sim.Config().Blackout.Zones,
		Feed:   s.hub != nil,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		s.log.Warn("render index", "err", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.Sim.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSanity(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Sim.Sanity(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if err := s.Sim.TriggerBlackout(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	s.log.Info("blackout triggered by operator", "remote", r.RemoteAddr)
	writeJSON(w, http.StatusAccepted, map[string]bool{"triggered": true})
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	if err := s.Sim.Disable(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"disabled": true})
}

func (s *Server) handleUseItem(w http.ResponseWriter, r *http.Request) {
	player := r.URL.Query().Get("player")
	item := r.URL.Query().Get("item")
	if player == "" || item == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "player and item are required"})
		return
	}
	amount, err := s.Sim.UseItem(r.Context(), player, item)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			code = http.StatusBadRequest
		}
		writeJSON(w, code, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"player": player, "item": item, "restored": amount})
}
