// Package api is the HTTP surface of the server: the mux router, the
// ordered middleware chain and the liveness route.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"backend/config"
	"backend/storage"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrNotListening is returned by Serve when Listen has not bound a socket.
var ErrNotListening = errors.New("api server is not listening")

// Database is the shared database handle made available to handlers.
// Handlers must cope with ErrNotConnected: the server accepts requests
// before, and regardless of, the database connection.
type Database interface {
	State() storage.ConnState
	Client() (storage.Client, error)
}

// rateLimiterEntry holds a rate limiter with last seen time
type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// API holds the HTTP application.
type API struct {
	router  *mux.Router
	handler http.Handler
	config  *config.Config
	db      Database
	logger  *zap.SugaredLogger

	rateLimiters   map[string]*rateLimiterEntry
	rateLimitersMu sync.Mutex

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewAPI builds the application: a router wrapped by the middleware chain.
// No routes are registered until RegisterRoutes is called.
//
// The chain wraps the router rather than being attached with Router.Use, so
// that CORS and body parsing run for every request, matched or not. Order,
// outermost first: request ID and access log, metrics, CORS, rate
// limiting, JSON body parsing.
func NewAPI(cfg *config.Config, db Database, logger *zap.SugaredLogger) *API {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.NotFoundHandler()
	router.MethodNotAllowedHandler = http.NotFoundHandler()

	a := &API{
		router:       router,
		config:       cfg,
		db:           db,
		logger:       logger,
		rateLimiters: make(map[string]*rateLimiterEntry),
		stopCh:       make(chan struct{}),
	}

	var h http.Handler = router
	h = a.jsonBodyMiddleware(h)
	if a.rateLimitEnabled() {
		h = a.rateLimitMiddleware(h)
		go a.cleanupRateLimiters()
	}
	h = a.corsMiddleware(h)
	h = a.metricsMiddleware(h)
	h = a.requestIDMiddleware(h)
	a.handler = h

	return a
}

// RegisterRoutes registers the liveness route, and the metrics endpoint
// when enabled.
func (a *API) RegisterRoutes() {
	a.router.HandleFunc("/", a.liveness).Methods(http.MethodGet, http.MethodHead)
	if a.config.Metrics.Enabled {
		a.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

// Handler returns the full middleware chain around the router.
func (a *API) Handler() http.Handler {
	return a.handler
}

// Listen binds the TCP socket for addr and returns the bound address.
// Binding happens synchronously so that failures reach the caller.
func (a *API) Listen(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	a.mu.Lock()
	a.listener = ln
	a.server = &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.mu.Unlock()

	return ln.Addr(), nil
}

// Serve accepts connections on the bound socket until the server is
// stopped. A stopped server returns nil.
func (a *API) Serve() error {
	a.mu.Lock()
	server, ln := a.server, a.listener
	a.mu.Unlock()

	if server == nil || ln == nil {
		return ErrNotListening
	}

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the API server
func (a *API) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() { close(a.stopCh) })

	a.mu.Lock()
	server, ln := a.server, a.listener
	a.mu.Unlock()

	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			return err
		}
		// Shutdown only closes listeners that Serve has picked up.
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
	}
	return nil
}
