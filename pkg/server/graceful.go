// Package server runs the console HTTP API with signal-driven graceful
// shutdown.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-noc/pkg/logging"
)

// DefaultShutdownTimeout bounds connection draining.
const DefaultShutdownTimeout = 15 * time.Second

// ReloadFunc is called on SIGHUP; the console reloads its device tree.
type ReloadFunc func(ctx context.Context) error

// Option configures a GracefulServer.
type Option func(*GracefulServer)

// WithLogger sets the server logger.
func WithLogger(l logging.Logger) Option {
	return func(gs *GracefulServer) { gs.logger = logging.OrNop(l) }
}

// WithShutdownTimeout sets how long in-flight requests may drain.
func WithShutdownTimeout(d time.Duration) Option {
	return func(gs *GracefulServer) {
		if d > 0 {
			gs.shutdownTimeout = d
		}
	}
}

// WithSignals makes the server react to SIGINT/SIGTERM (shutdown) and
// SIGHUP (reload).
func WithSignals() Option {
	return func(gs *GracefulServer) { gs.signals = true }
}

// GracefulServer wraps an HTTP server with graceful shutdown capabilities
type GracefulServer struct {
	server          *http.Server
	logger          logging.Logger
	shutdownTimeout time.Duration
	signals         bool

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	shutdownErr  error

	mu       sync.RWMutex
	reloadFn ReloadFunc
	onStop   []func()
}

// NewGracefulServer creates a new graceful HTTP server
func NewGracefulServer(addr string, handler http.Handler, opts ...Option) *GracefulServer {
	gs := &GracefulServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			// Long-poll requests hold the connection open
			WriteTimeout:   90 * time.Second,
			IdleTimeout:    120 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		logger:          logging.NewNopLogger(),
		shutdownTimeout: DefaultShutdownTimeout,
		shutdownCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(gs)
	}
	gs.logger = gs.logger.With(logging.Component("http-server"))
	return gs
}

// Run listens on the configured address and serves until ctx is cancelled
// or Shutdown is called.
func (gs *GracefulServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return err
	}
	return gs.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled or Shutdown is called.
func (gs *GracefulServer) Serve(ctx context.Context, ln net.Listener) error {
	if gs.signals {
		stop := gs.handleSignals()
		defer stop()
	}

	go func() {
		select {
		case <-ctx.Done():
			_ = gs.Shutdown()
		case <-gs.shutdownCh:
		}
	}()

	gs.logger.Info("starting HTTP server", logging.String("addr", ln.Addr().String()))
	if err := gs.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-gs.shutdownCh
	return gs.waitShutdown()
}

// waitShutdown blocks until an in-progress Shutdown has finished draining.
func (gs *GracefulServer) waitShutdown() error {
	gs.shutdownOnce.Do(func() {})
	return gs.shutdownErr
}

// OnShutdown registers fn to run after the HTTP server has drained.
func (gs *GracefulServer) OnShutdown(fn func()) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.onStop = append(gs.onStop, fn)
}

// Shutdown initiates a graceful shutdown. Later calls return the result of
// the first.
func (gs *GracefulServer) Shutdown() error {
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), gs.shutdownTimeout)
		defer cancel()

		gs.logger.Info("initiating graceful shutdown", logging.Duration("timeout", gs.shutdownTimeout))

		if err := gs.server.Shutdown(ctx); err != nil {
			gs.shutdownErr = err
			gs.logger.Error("error during shutdown", logging.Error(err))
		}

		gs.mu.RLock()
		hooks := append([]func(){}, gs.onStop...)
		gs.mu.RUnlock()
		for _, fn := range hooks {
			fn()
		}

		gs.logger.Info("server shutdown complete")
	})
	return gs.shutdownErr
}

// handleSignals listens for OS signals until the returned stop is called.
func (gs *GracefulServer) handleSignals() (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGINT,  // Ctrl+C
		syscall.SIGTERM, // Termination signal (systemd, docker, k8s)
		syscall.SIGHUP,  // Reload device tree
	)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGINT, syscall.SIGTERM:
					gs.logger.Info("received signal, starting graceful shutdown", logging.String("signal", sig.String()))
					go func() { _ = gs.Shutdown() }()
				case syscall.SIGHUP:
					gs.logger.Info("received SIGHUP, reloading")
					_ = gs.Reload(context.Background())
				}
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

// IsShuttingDown returns true if shutdown has been initiated
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel returns a channel that closes when shutdown is initiated
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}

// SetReloadFunc sets the function to call when a reload is triggered
func (gs *GracefulServer) SetReloadFunc(fn ReloadFunc) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.reloadFn = fn
}

// Reload runs the reload function, if any.
func (gs *GracefulServer) Reload(ctx context.Context) error {
	gs.mu.RLock()
	reloadFn := gs.reloadFn
	gs.mu.RUnlock()

	if reloadFn == nil {
		gs.logger.Warn("reload requested, but no reload function configured")
		return nil
	}

	timer := logging.StartTimer(gs.logger, "reload")
	if err := reloadFn(ctx); err != nil {
		timer.EndError(err)
		return err
	}
	timer.End()
	return nil
}
