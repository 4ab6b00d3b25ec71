package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	v1 "github.com/kubev2v/engine-scheduler/api/v1"
	"github.com/kubev2v/engine-scheduler/internal/config"
)

const (
	apiPrefix       = "/api/v1"
	shutdownTimeout = 10 * time.Second
)

type RegisterHandlerFn func(router *gin.RouterGroup)

type Server struct {
	srv      *http.Server
	listener net.Listener
	engine   *gin.Engine
}

// NewServer builds the router and binds the listener. registerHandlerFn
// receives the /api/v1 group, guarded by bearer authentication when enabled.
func NewServer(cfg *config.Configuration, gatherer prom.Gatherer, registerHandlerFn RegisterHandlerFn) (*Server, error) {
	if cfg.Server.ServerMode == config.ServerModeProd {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := newEngine(cfg, gatherer, registerHandlerFn)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.HTTPPort))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", cfg.Server.HTTPPort, err)
	}

	return &Server{
		srv:      &http.Server{Handler: engine},
		listener: listener,
		engine:   engine,
	}, nil
}

func newEngine(cfg *config.Configuration, gatherer prom.Gatherer, registerHandlerFn RegisterHandlerFn) *gin.Engine {
	logger := zap.L().Named("http")

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(logger, time.RFC3339, true),
		ginzap.RecoveryWithZap(logger, true),
	)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, v1.HealthResponse{Status: "ok"})
	})
	if gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := engine.Group(apiPrefix)
	if cfg.Auth.Enabled {
		api.Use(Authenticator([]byte(cfg.Auth.Secret)))
	}
	registerHandlerFn(api)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, v1.ErrorResponse{Error: "not found"})
	})

	return engine
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Handler returns the router, mostly useful in tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Stop is called or the server fails. It returns nil
// after a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	zap.S().Named("server").Infow("http server started", "addr", s.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.Stop(stopCtx)
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Stop waits for in-flight requests to complete.
func (s *Server) Stop(ctx context.Context) {
	// the listener is not tracked by srv until Serve runs
	defer s.listener.Close()

	if err := s.srv.Shutdown(ctx); err != nil {
		zap.S().Named("server").Errorw("failed to shut down http server", "error", err)
		return
	}
	zap.S().Named("server").Info("http server stopped")
}
