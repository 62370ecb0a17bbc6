package http

import (
	"context"
	"net/http"
	"time"

	"extrato/internal/core"
	"extrato/internal/log"
	"extrato/internal/middleware/ratelimit"
	"extrato/internal/middleware/security"
)

// Syncer runs one statement sync. *services.BatchProcessor satisfies it.
type Syncer interface {
	Run(ctx context.Context, ownerID, token, spreadsheetID string) (core.SyncResult, error)
}

// StatusProvider reports ingestion health for an owner.
type StatusProvider interface {
	Status(ctx context.Context, ownerID string) core.IntegrationStatus
}

// Publisher queues a sync for the worker. *amqp.Client satisfies it.
type Publisher interface {
	PublishSyncRequest(ctx context.Context, ownerID, spreadsheetID string) error
}

// Pinger checks the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the API needs. Publisher may be nil, in which
// case async sync requests are refused.
type Deps struct {
	Syncer               Syncer
	Status               StatusProvider
	Publisher            Publisher
	Store                Pinger
	DefaultOwner         string
	DefaultSpreadsheetID string
	Logger               *log.Logger

	// SyncTimeout bounds a synchronous run; zero means the request context
	// alone decides.
	SyncTimeout    time.Duration
	SyncLimit      ratelimit.Config
	TrustedProxies []string
}

// Server is the JSON API in front of the ingestion pipeline.
type Server struct {
	http.Server
	deps     Deps
	limiter  *ratelimit.Limiter
	clientIP *security.ClientIP
	logger   *log.Logger
}

// NewServer wires routes and middleware. Call Close or Shutdown to release
// the rate limiter.
func NewServer(addr string, deps Deps) (*Server, error) {
	clientIP, err := security.NewClientIP(deps.TrustedProxies...)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		deps:     deps,
		limiter:  ratelimit.NewLimiter(deps.SyncLimit),
		clientIP: clientIP,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.Handle("POST /api/sync", s.limiter.Middleware(s.clientIP.Extract, s.handleRateLimited)(http.HandlerFunc(s.handleSync)))

	var h http.Handler = mux
	h = security.Headers(security.APIHeadersConfig())(h)
	h = log.Middleware(logger)(h)
	s.Handler = h

	s.RegisterOnShutdown(s.limiter.Stop)
	return s, nil
}

// Close stops the server immediately and releases the rate limiter.
func (s *Server) Close() error {
	s.limiter.Stop()
	return s.Server.Close()
}
