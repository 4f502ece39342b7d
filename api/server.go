// Package api serves vpnwatch's diagnostics HTTP API: the current host
// table, per-host sparkline charts, a graphviz rendering of tracked
// peers, freeform operator notes, and audit history. It is read-only
// with the sole exception of the notes endpoint, and deliberately
// small and unauthenticated — a LAN-facing diagnostics surface, not a
// multi-tenant control plane.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	servertiming "github.com/mitchellh/go-server-timing"

	"github.com/safing/portbase/log"
	"github.com/safing/vpnwatch/hosttrack"
	"github.com/safing/vpnwatch/metrics"
	"github.com/safing/vpnwatch/report"
)

// Tracker is the read surface this package needs from a
// *hosttrack.Tracker. A *hosttrack.IdleEvictor does not implement it;
// pass the Tracker it wraps (IdleEvictor.Tracker) instead.
type Tracker interface {
	Lookup(addr hosttrack.Address) (hosttrack.HostEntry, bool)
	Snapshot() []hosttrack.HostEntry
	Len() int
}

// Server exposes the diagnostics HTTP API.
type Server struct {
	tracker Tracker
	audit   *report.AuditSink
	live    *report.WebsocketSink
	notes   *noteStore
	router  *mux.Router
	http    *http.Server
}

// NewServer builds a Server backed by tracker. audit may be nil, in
// which case /hosts/{addr}/history always returns an empty list. live
// may be nil, in which case /live responds 404 instead of upgrading.
func NewServer(addr string, tracker Tracker, audit *report.AuditSink, live *report.WebsocketSink) *Server {
	s := &Server{
		tracker: tracker,
		audit:   audit,
		live:    live,
		notes:   newNoteStore(),
		router:  mux.NewRouter(),
	}

	s.router.HandleFunc("/hosts", s.handleListHosts).Methods(http.MethodGet)
	s.router.HandleFunc("/hosts/{addr}", s.handleGetHost).Methods(http.MethodGet)
	s.router.HandleFunc("/hosts/{addr}/spark.png", s.handleSparkline).Methods(http.MethodGet)
	s.router.HandleFunc("/hosts/{addr}/note", s.handlePatchNote).Methods(http.MethodPatch)
	s.router.HandleFunc("/hosts/{addr}/history", s.handleHistory).Methods(http.MethodGet)
	s.router.HandleFunc("/graph.dot", s.handleGraph).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	s.router.HandleFunc("/live", s.handleLive).Methods(http.MethodGet)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           servertiming.Middleware(s.router, nil),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics.SetHostsTracked(s.tracker.Len())
	metrics.WritePrometheus(w)
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	if s.live == nil {
		http.NotFound(w, r)
		return
	}
	s.live.HandleUpgrade(w, r)
}

// MountStatic serves handler for any request under prefix, for an
// optional bundled web UI (see NewStaticHandler).
func (s *Server) MountStatic(prefix string, handler http.Handler) {
	s.router.PathPrefix(prefix).Handler(http.StripPrefix(prefix, handler))
}

// Handler returns the underlying HTTP handler, for tests and for
// embedding the diagnostics API behind another server's mux.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks, serving the diagnostics API until the server
// is shut down or a fatal error occurs.
func (s *Server) ListenAndServe() error {
	log.Infof("api: diagnostics server listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown() error {
	return s.http.Close()
}
