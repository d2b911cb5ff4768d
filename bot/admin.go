package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/wiresprite/wiresprite/internal/audit"
	"github.com/wiresprite/wiresprite/internal/config"
	"github.com/wiresprite/wiresprite/internal/connectutil"
	"github.com/wiresprite/wiresprite/internal/portutil"
	"github.com/wiresprite/wiresprite/internal/tsnetutil"
)

// AdminServer exposes a small JSON surface for operators: a health check
// and a recent-dispatch-activity view over the audit trail. Grounded on
// internal/worker/server/server.go's Server{log,cfg,ln,opts} /
// New(opts) / Start() shape, stripped of connect-rpc/protobuf service
// registration in favor of plain http.ServeMux handlers. Listens over h2c
// (internal/connectutil) and picks a free port via internal/portutil when
// none is configured and Tailscale is disabled.
type AdminServer struct {
	log  *slog.Logger
	cfg  *config.Config
	ln   *tsnetutil.Listener
	opts AdminOpts
	bot  *Bot
	al   *audit.Log
}

// AdminOpts holds CLI overrides for the admin server.
type AdminOpts struct {
	ListenAddr string
}

const shutdownGrace = 5 * time.Second

// NewAdminServer constructs an AdminServer around an already-built Bot.
func NewAdminServer(b *Bot, al *audit.Log, opts AdminOpts) *AdminServer {
	log := slog.New(slog.NewTextHandler(os.Stdout, nil)).With("component", "admin-server")
	return &AdminServer{log: log, bot: b, al: al, opts: opts}
}

// Run parses the process config, opens a (possibly Tailscale) listener,
// registers handlers, and serves until ctx is cancelled.
func (s *AdminServer) Run(ctx context.Context) error {
	cfg, err := config.Parse()
	if err != nil {
		s.log.Error("config error", "error", err)
		return fmt.Errorf("config error: %w", err)
	}
	s.cfg = cfg

	listenAddr := s.opts.ListenAddr
	if listenAddr == "" {
		port := cfg.Port
		if port == 0 && !cfg.Tailscale.Enabled {
			port, err = portutil.FindFreePortFrom(8090, 10)
			if err != nil {
				return fmt.Errorf("finding free port: %w", err)
			}
		}
		listenAddr = fmt.Sprintf(":%d", port)
	}

	ln, err := tsnetutil.ListenAddr(listenAddr, cfg.Tailscale)
	if err != nil {
		s.log.Error("listen failed", "addr", listenAddr, "error", err)
		return err
	}
	s.ln = ln
	defer s.ln.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /audit/recent", s.handleAuditRecent)
	mux.HandleFunc("GET /shares", s.handleSharesList)
	mux.HandleFunc("GET /shares/value", s.handleSharesGet)
	mux.HandleFunc("POST /shares/value", s.handleSharesSet)

	httpSrv := &http.Server{Handler: mux, Protocols: connectutil.H2CServerProtocols()}
	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.Serve(ln) }()

	s.log.Info("admin server listening", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *AdminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "bot": s.bot.Name()})
}

func (s *AdminServer) handleAuditRecent(w http.ResponseWriter, r *http.Request) {
	if s.al == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "audit log not configured"})
		return
	}
	events, err := s.al.Recent(r.Context(), 50)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *AdminServer) handleSharesList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.bot.Shares().List())
}

func (s *AdminServer) handleSharesGet(w http.ResponseWriter, r *http.Request) {
	plugin, name := r.URL.Query().Get("plugin"), r.URL.Query().Get("name")
	val, err := s.bot.Shares().GetString(r.Context(), plugin, name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"plugin": plugin, "name": name, "value": val})
}

func (s *AdminServer) handleSharesSet(w http.ResponseWriter, r *http.Request) {
	plugin, name := r.URL.Query().Get("plugin"), r.URL.Query().Get("name")
	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := s.bot.Shares().SetString(r.Context(), plugin, name, body.Value); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"plugin": plugin, "name": name, "value": body.Value})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
