// ABOUTME: Gateway assembly wiring storage, presence, routing, and the HTTP server
// ABOUTME: Owns startup, route registration, and graceful shutdown

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/caliber/livechat/internal/assistant"
	"github.com/caliber/livechat/internal/auth"
	"github.com/caliber/livechat/internal/bus"
	"github.com/caliber/livechat/internal/config"
	"github.com/caliber/livechat/internal/dedupe"
	"github.com/caliber/livechat/internal/presence"
	"github.com/caliber/livechat/internal/router"
	"github.com/caliber/livechat/internal/store"
)

const (
	// tokenLifetime is how long an operator login token stays valid.
	tokenLifetime = 24 * time.Hour

	// dedupeTTL bounds how long processed message IDs are remembered.
	dedupeTTL = 10 * time.Minute

	// dedupeMaxSize bounds the dedupe cache under redelivery storms.
	dedupeMaxSize = 10000
)

// Gateway is the assembled livechat service: storage, operator presence,
// the message router, and the HTTP API in front of them.
type Gateway struct {
	cfg      *config.Config
	store    store.Store
	presence *presence.Tracker
	events   *bus.Broadcaster
	router   *router.Router
	dedupe   *dedupe.Cache
	verifier *auth.JWTVerifier
	logger   *slog.Logger

	httpServer *http.Server
}

// New assembles a gateway from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		sqlStore.Close()
		return nil, fmt.Errorf("creating token verifier: %w", err)
	}

	var trackerOpts []presence.Option
	if cfg.Presence.TTL > 0 {
		trackerOpts = append(trackerOpts, presence.WithTTL(cfg.Presence.TTL))
	}
	tracker := presence.NewTracker(trackerOpts...)

	assistantCfg := assistant.DefaultConfig(cfg.Assistant.APIKey)
	if cfg.Assistant.BaseURL != "" {
		assistantCfg.BaseURL = cfg.Assistant.BaseURL
	}
	if cfg.Assistant.Model != "" {
		assistantCfg.Model = cfg.Assistant.Model
	}
	if cfg.Assistant.Timeout > 0 {
		assistantCfg.Timeout = cfg.Assistant.Timeout
	}
	generator := assistant.NewClient(assistantCfg)

	events := bus.NewBroadcaster(logger)
	cache := dedupe.New(dedupeTTL, dedupeMaxSize)
	msgRouter := router.New(sqlStore, tracker, generator, cache, events, logger)

	gw := &Gateway{
		cfg:      cfg,
		store:    sqlStore,
		presence: tracker,
		events:   events,
		router:   msgRouter,
		dedupe:   cache,
		verifier: verifier,
		logger:   logger.With("component", "gateway"),
	}

	mux := http.NewServeMux()
	gw.registerRoutes(mux)

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// registerRoutes attaches all HTTP endpoints to the mux.
func (g *Gateway) registerRoutes(mux *http.ServeMux) {
	// Health endpoints - no auth required
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/health/ready", g.handleReady)

	// Operator login - public by necessity
	mux.HandleFunc("/api/login", g.handleLogin)

	// Customer chat ingress - customers are unauthenticated
	mux.HandleFunc("/api/chat/", g.handleChatRoutes)

	// Operator endpoints - bearer token required
	authMiddleware := auth.RequireOperator(g.store, g.verifier)
	mux.Handle("/api/presence", authMiddleware(http.HandlerFunc(g.handlePresence)))
	mux.Handle("/api/presence/heartbeat", authMiddleware(http.HandlerFunc(g.handleHeartbeat)))
	mux.Handle("/api/conversations", authMiddleware(http.HandlerFunc(g.handleListConversations)))
	mux.Handle("/api/conversations/", authMiddleware(http.HandlerFunc(g.handleConversationRoutes)))
}

// Run starts the message router and the HTTP server, then blocks until ctx
// is cancelled or the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	routerCtx, cancelRouter := context.WithCancel(ctx)
	defer cancelRouter()
	go g.router.Run(routerCtx)

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("http server listening", "addr", g.httpServer.Addr)
		if err := g.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("shutdown signal received")
	case serverErr = <-errCh:
		g.logger.Error("http server failed", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown stops the HTTP server and releases all resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	var firstErr error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		firstErr = err
	}

	g.events.Close()
	g.dedupe.Close()

	if err := g.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	g.logger.Info("gateway stopped")
	return firstErr
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK once storage answers queries.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := g.store.CountOperators(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("storage unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
