package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/levenlabs/go-lflag"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/greengrid/greengrid/pkg/common"
	"github.com/greengrid/greengrid/pkg/coordinator"
	"github.com/greengrid/greengrid/pkg/household"
	"github.com/greengrid/greengrid/pkg/live"
	"github.com/greengrid/greengrid/pkg/log"
	"github.com/greengrid/greengrid/pkg/storage"
	"github.com/greengrid/greengrid/pkg/utility"
)

type contextKey string

const emailContextKey contextKey = "email"

// Server handles the HTTP API of GreenGrid. It serves advisories from storage,
// runs the pipeline on demand and on a timer, and pushes live updates.
type Server struct {
	households  *household.Registry
	coordinator *coordinator.Coordinator
	storage     storage.Database
	utilities   *utility.Map
	hub         *live.Hub
	gatherer    prometheus.Gatherer

	listenAddr      string
	httpServer      *http.Server
	corsOrigins     []string
	adminEmails     []string
	verifier        tokenVerifier
	serverName      string
	refreshInterval time.Duration
	now             func() time.Time
}

// New returns a Server without any flag configuration. Authentication is
// bypassed and the refresh loop is disabled.
func New(
	households *household.Registry,
	coord *coordinator.Coordinator,
	db storage.Database,
	utilities *utility.Map,
	hub *live.Hub,
) *Server {
	return &Server{
		households:  households,
		coordinator: coord,
		storage:     db,
		utilities:   utilities,
		hub:         hub,
		gatherer:    prometheus.DefaultGatherer,
		serverName:  "greengrid",
		listenAddr:  ":8080",
		now:         time.Now,
	}
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
// The coordinator is set with SetCoordinator once its collaborators are
// connected.
func Configured(
	households *household.Registry,
	db storage.Database,
	utilities *utility.Map,
	hub *live.Hub,
) *Server {
	srv := New(households, nil, db, utilities, hub)

	// get the port from PORT when running in a container platform
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	corsOrigins := lflag.String("cors-origins", "", "comma-delimited list of origins allowed to call the API, empty allows any")
	adminEmails := lflag.String("admin-emails", "", "comma-delimited list of email addresses allowed to call POST endpoints")
	oidcIssuer := lflag.String("oidc-issuer", "https://accounts.google.com", "OIDC issuer used to verify id tokens")
	oidcAudience := lflag.String("oidc-audience", "", "audience to validate id tokens against, empty disables authentication")
	refreshInterval := lflag.Duration("refresh-interval", 5*time.Minute, "How often every household is re-evaluated, 0 disables the loop")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		srv.corsOrigins = splitList(*corsOrigins)
		srv.adminEmails = splitList(*adminEmails)
		srv.refreshInterval = *refreshInterval
		if *oidcAudience != "" {
			provider, err := oidc.NewProvider(context.Background(), *oidcIssuer)
			if err != nil {
				log.Ctx(context.Background()).Error("failed to initialize OIDC provider", slog.String("issuer", *oidcIssuer), slog.Any("error", err))
				os.Exit(1)
			}
			srv.verifier = oidcVerifier(provider.Verifier(&oidc.Config{ClientID: *oidcAudience}))
		}
		if revision := os.Getenv("K_REVISION"); revision != "" {
			srv.serverName = revision
		}
	})

	return srv
}

// SetCoordinator sets the pipeline behind /api/advise and the refresh loop.
func (s *Server) SetCoordinator(c *coordinator.Coordinator) {
	s.coordinator = c
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/households", s.handleListHouseholds)
	apiMux.HandleFunc("POST /api/advise", s.requireAuth(s.handleAdvise))
	apiMux.HandleFunc("GET /api/advisories/latest", s.handleLatestAdvisory)
	apiMux.HandleFunc("GET /api/advisories/summary", s.handleAdvisorySummary)
	apiMux.HandleFunc("GET /api/advisories", s.handleAdvisories)
	apiMux.HandleFunc("GET /api/readings", s.handleReadings)
	apiMux.HandleFunc("GET /api/report", s.handleReport)
	apiMux.HandleFunc("POST /api/whatif", s.requireAuth(s.handleWhatIf))
	apiMux.HandleFunc("GET /api/settings", s.handleGetSettings)
	apiMux.HandleFunc("POST /api/settings", s.requireAuth(s.handleUpdateSettings))
	apiMux.HandleFunc("POST /api/feedback", s.requireAuth(s.handleSubmitFeedback))
	apiMux.HandleFunc("GET /api/feedback", s.handleListFeedback)
	apiMux.HandleFunc("GET /api/status", s.handleStatus)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.corsMiddleware(apiMux))
	mux.Handle("GET /api/live", live.NewHandler(s.hub, s.latestAdvisories, s.corsOrigins))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.revisionMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(mux)))
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also runs the refresh loop and handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if s.refreshInterval > 0 {
		log.Ctx(ctx).InfoContext(ctx, "starting refresh loop", slog.Duration("interval", s.refreshInterval))
		go s.coordinator.Loop(ctx, s.refreshInterval)
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr), slog.String("version", common.Version()))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}

// lookupHousehold resolves the householdID query or body value. An empty id means
// the only configured household, when there is exactly one.
func (s *Server) lookupHousehold(w http.ResponseWriter, householdID string) (*household.Session, bool) {
	if householdID == "" {
		ids := s.households.IDs()
		if len(ids) != 1 {
			writeJSONError(w, "householdID is required", http.StatusBadRequest)
			return nil, false
		}
		householdID = ids[0]
	}
	session, ok := s.households.Get(householdID)
	if !ok {
		writeJSONError(w, "unknown household", http.StatusNotFound)
		return nil, false
	}
	return session, true
}
