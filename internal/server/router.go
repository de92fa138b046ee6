package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"keto-planner/internal/logger"

	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	Service     Service
	Log         *logger.Logger
	CORSOrigins []string
	Mode        string
}

// NewRouter serves every route both at the root and under /api.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(cfg.Log))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(CORS(cfg.CORSOrigins))
	}

	h := &handlers{svc: cfg.Service}
	register := func(g gin.IRoutes) {
		g.GET("/health", h.health)
		g.POST("/calc", h.calc)
		g.POST("/mealplan", h.mealPlan)
	}
	register(r)
	register(r.Group("/api"))
	return r
}

type Server struct {
	Engine *gin.Engine
	http   *http.Server
}

func NewServer(addr string, cfg RouterConfig) *Server {
	engine := NewRouter(cfg)
	return &Server{
		Engine: engine,
		http: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}
