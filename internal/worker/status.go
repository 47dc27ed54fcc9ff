package worker

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	logs "github.com/danmuck/renderd/internal/logging"
	"github.com/danmuck/renderd/internal/observability"
)

// StatusSource is anything that can report an interpreter snapshot from a
// goroutine other than the one running it.
type StatusSource interface {
	Status() Status
}

// StatusServer exposes health, per-rank progress and Prometheus metrics.
// It never touches interpreter state beyond Status snapshots.
type StatusServer struct {
	RunID   string
	Started time.Time

	sources []StatusSource
	router  *gin.Engine
}

func NewStatusServer(runID string, corsOrigins []string, sources ...StatusSource) *StatusServer {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logs.Logger()))
	r.Use(observability.RequestMetricsMiddleware(runID))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &StatusServer{
		RunID:   runID,
		Started: time.Now(),
		sources: sources,
		router:  r,
	}
	s.registerRoutes()
	return s
}

func (s *StatusServer) Handler() http.Handler {
	return s.router
}

func (s *StatusServer) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(s.Started).String(),
			"run_id": s.RunID,
			"ranks":  len(s.sources),
		})
	})

	s.router.GET("/status", func(c *gin.Context) {
		ranks := make([]Status, 0, len(s.sources))
		for _, src := range s.sources {
			ranks = append(ranks, src.Status())
		}
		c.JSON(http.StatusOK, gin.H{
			"run_id": s.RunID,
			"ranks":  ranks,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Serve listens on addr until ctx is done.
func (s *StatusServer) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logs.Infof("worker.StatusServer.Serve listening addr=%q run_id=%s", addr, s.RunID)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
