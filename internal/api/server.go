package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/bridgesim/internal/audit"
	"github.com/nerrad567/bridgesim/internal/event"
	"github.com/nerrad567/bridgesim/internal/infrastructure/config"
	"github.com/nerrad567/bridgesim/internal/infrastructure/logging"
	"github.com/nerrad567/bridgesim/internal/legacy"
	"github.com/nerrad567/bridgesim/internal/ownership"
	"github.com/nerrad567/bridgesim/internal/resource"
	"github.com/nerrad567/bridgesim/internal/stream"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config config.APIConfig
	WS     config.WebSocketConfig
	Bridge config.BridgeConfig

	// Generation is config.GenerationClipV2 or config.GenerationLegacy.
	Generation string

	Logger *logging.Logger

	// Resources serves the resource-graph generation, Groups the legacy one.
	// Only the store of the selected generation is required.
	Resources *resource.Store
	Groups    *legacy.Store

	Arbiter *ownership.Arbiter
	Events  *event.Publisher
	Stream  *stream.Poller

	// Audit serves GET /develop/audit when set.
	Audit audit.Repository

	Hub     *Hub // If set, the server uses this hub instead of creating its own
	Version string
}

// Server is the HTTP API server of the simulator.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg     config.APIConfig
	wsCfg   config.WebSocketConfig
	bridge  config.BridgeConfig
	logger  *logging.Logger
	backend Backend
	arbiter *ownership.Arbiter
	events  *event.Publisher
	poller  *stream.Poller
	audit   audit.Repository
	version string

	hub         *Hub
	externalHub bool // true if hub was injected externally

	mu     sync.Mutex
	server *http.Server
	addr   net.Addr
	cancel context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies and selects the
// backend for deps.Generation.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Arbiter == nil {
		return nil, fmt.Errorf("ownership arbiter is required")
	}
	if deps.Events == nil {
		return nil, fmt.Errorf("event publisher is required")
	}
	if deps.Stream == nil {
		return nil, fmt.Errorf("stream poller is required")
	}

	s := &Server{
		cfg:     deps.Config,
		wsCfg:   deps.WS,
		bridge:  deps.Bridge,
		logger:  deps.Logger,
		arbiter: deps.Arbiter,
		events:  deps.Events,
		poller:  deps.Stream,
		audit:   deps.Audit,
		version: deps.Version,
	}

	switch deps.Generation {
	case config.GenerationClipV2:
		if deps.Resources == nil {
			return nil, fmt.Errorf("resource store is required for %s", deps.Generation)
		}
		s.backend = &clipV2Backend{srv: s, store: deps.Resources}
	case config.GenerationLegacy:
		if deps.Groups == nil {
			return nil, fmt.Errorf("group store is required for %s", deps.Generation)
		}
		s.backend = &legacyBackend{srv: s, store: deps.Groups}
	default:
		return nil, fmt.Errorf("unknown protocol generation %q", deps.Generation)
	}

	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.WS, deps.Logger)
	}

	return s, nil
}

// Hub returns the display hub, so it can be registered as a stream sink
// and event mirror.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Generation returns the protocol generation being served.
func (s *Server) Generation() string {
	return s.backend.Generation()
}

// Start binds the listener and serves in a background goroutine. The
// server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
		BaseContext:       func(net.Listener) context.Context { return srvCtx },
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", srv.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", srv.Addr, err)
	}

	s.mu.Lock()
	s.server = srv
	s.addr = ln.Addr()
	s.mu.Unlock()

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", ln.Addr().String(),
				"generation", s.backend.Generation(),
				"cert", s.cfg.TLS.CertFile,
			)
			err = srv.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting",
				"address", ln.Addr().String(),
				"generation", s.backend.Generation(),
			)
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Close gracefully shuts down the API server.
//
// Cancelling the server context ends open event streams, then it waits up
// to 10 seconds for in-flight requests to complete.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}

// publish hands topology changes to the event publisher.
func (s *Server) publish(changes []event.Change) {
	s.events.Publish(changes...)
}
