// Package server exposes a Manager over HTTP: state snapshots, mount
// selections, drops, file edits, change events and the blob URLs of the
// asset map.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/jackfish212/assetfs"
	"github.com/jackfish212/assetfs/internal/metrics"
)

const (
	defaultBlobRoute = "/blob"
	shutdownTimeout  = 5 * time.Second
)

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics records requests and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithDropOptions sets which uploads /api/drop accepts.
func WithDropOptions(o assetfs.DropOptions) Option {
	return func(s *Server) { s.drop = o }
}

// WithHostFs sets where the paths of mount selections are resolved. The
// default is the host filesystem.
func WithHostFs(fs afero.Fs) Option {
	return func(s *Server) {
		if fs != nil {
			s.host = fs
		}
	}
}

// WithDevelopment keeps gin in debug mode.
func WithDevelopment(dev bool) Option {
	return func(s *Server) { s.dev = dev }
}

// Server wraps the HTTP router and the manager it serves.
type Server struct {
	router  *gin.Engine
	manager *assetfs.Manager
	metrics *metrics.Metrics
	log     *zap.Logger
	drop    assetfs.DropOptions
	host    afero.Fs
	dev     bool

	blobRoute string

	// stop ends open event streams so shutdown does not wait on them.
	stop     chan struct{}
	stopOnce sync.Once
}

// New builds the router for m.
func New(m *assetfs.Manager, opts ...Option) *Server {
	s := &Server{
		manager: m,
		log:     zap.NewNop(),
		host:    afero.NewOsFs(),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if !s.dev {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if s.metrics != nil {
		router.Use(s.metrics.Middleware())
	}

	s.blobRoute = blobRoute(m.Registry().Prefix())

	router.GET("/healthz", s.health)

	api := router.Group("/api")
	api.GET("/state", s.state)
	api.POST("/selection", s.selection)
	api.POST("/drop", s.dropped)
	api.POST("/rebuild", s.rebuild)
	api.GET("/events", s.events)

	api.GET("/files/*path", s.readFile)
	api.PUT("/files/*path", s.writeFile)
	api.DELETE("/files/*path", s.unlink)
	api.POST("/dirs/*path", s.mkdir)
	api.POST("/rename", s.rename)

	router.GET(s.blobRoute+"/:id", s.blob)

	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	s.router = router
	return s
}

// blobRoute returns the route blob URLs are served under. Prefixes that
// are not paths fall back to /blob.
func blobRoute(prefix string) string {
	if !strings.HasPrefix(prefix, "/") || prefix == "/" {
		return defaultBlobRoute
	}
	return strings.TrimSuffix(prefix, "/")
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting HTTP server", zap.String("addr", addr), zap.String("blobs", s.blobRoute))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving %s: %w", addr, err)
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server...")
	s.stopOnce.Do(func() { close(s.stop) })
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Error("Failed to shut down server", zap.Error(err))
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
