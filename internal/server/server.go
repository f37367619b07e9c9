// Package server exposes analyses over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangsam/datalens/internal/contract"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 10 * time.Second

// Server wires the HTTP routes to the analysis pipeline and stores.
type Server struct {
	cfg     *contract.Config
	mgr     contract.StoreManager
	log     *logrus.Logger
	metrics *Metrics
	engine  *gin.Engine
}

// New creates a server with all routes registered.
func New(cfg *contract.Config, mgr contract.StoreManager, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	s := &Server{
		cfg:     cfg,
		mgr:     mgr,
		log:     logger,
		metrics: NewMetrics(mgr.GetRecordStore()),
	}
	s.engine = s.newRouter()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) newRouter() *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = 8 << 20

	router.Use(gin.Recovery())
	router.Use(LoggingMiddleware(s.log))
	router.Use(CORSMiddleware(s.cfg.CORSOrigins))

	router.POST("/analyze", s.handleAnalyze)
	router.GET("/analysis/:id", s.handleGetAnalysis)
	router.GET("/download-report", s.handleDownloadReport)
	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	return router
}

// Run serves until ctx is canceled, sweeping expired records on the
// configured cron schedule, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	sweeper, err := s.startSweeper()
	if err != nil {
		return err
	}
	defer func() { <-sweeper.Stop().Done() }()

	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.cfg.ListenAddr).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// startSweeper schedules RecordStore.Sweep on the configured cron schedule.
func (s *Server) startSweeper() (*cron.Cron, error) {
	records := s.mgr.GetRecordStore()
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.SweepSpec, func() {
		if n := records.Sweep(); n > 0 {
			s.log.WithField("evicted", n).Info("Swept expired analyses")
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", s.cfg.SweepSpec, err)
	}
	c.Start()
	return c, nil
}

// StartServer runs the HTTP service until ctx is canceled.
func StartServer(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	return New(cfg, mgr, nil).Run(ctx)
}
