package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bugfreev587/openshift-utilization/internal/config"
)

type Server struct {
	serverConfig *config.ServerCfg
	reports      ReportProvider
	timescaleDB  DBHealthChecker
	redisClient  RedisHealthChecker
	gatherer     prometheus.Gatherer
	logger       *zap.Logger
	router       *gin.Engine
	httpServer   *http.Server
}

// NewServer wires the routes. timescaleDB, redisClient and gatherer may be nil
// when the corresponding backend is not configured.
func NewServer(cfg *config.ServerCfg, reports ReportProvider, timescaleDB DBHealthChecker, redisClient RedisHealthChecker, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := gin.New()

	server := &Server{
		serverConfig: cfg,
		reports:      reports,
		timescaleDB:  timescaleDB,
		redisClient:  redisClient,
		gatherer:     gatherer,
		logger:       logger,
		router:       router,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(LoggerMiddleware(s.logger))
}

func (s *Server) setupRoutes() {
	s.router.GET("/v1/health", s.healthCheckHandler())

	v1 := s.router.Group("/v1")
	{
		v1.GET("/report", s.getLatestReport)
		v1.GET("/report/nodes/:node_id", s.getNodeReport)
	}

	if s.gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%s", s.serverConfig.Host, s.serverConfig.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
