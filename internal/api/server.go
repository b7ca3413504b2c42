package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storyreel/internal/logging"
	"storyreel/internal/metrics"
	"storyreel/internal/pipeline"
)

// Server exposes the orchestrator over HTTP.
type Server struct {
	orch     *pipeline.Orchestrator
	recorder *metrics.Recorder
	logger   *slog.Logger
	engine   *gin.Engine

	writeTimeout time.Duration
	listener     net.Listener
	server       *http.Server
}

// Option customizes the server.
type Option func(*Server)

// WithWriteTimeout bounds how long a single response may take. Scene video
// renders hold the response open until the render finishes.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		if timeout > 0 {
			s.writeTimeout = timeout
		}
	}
}

// NewServer builds the gin engine and registers routes. recorder may be nil.
func NewServer(orch *pipeline.Orchestrator, recorder *metrics.Recorder, logger *slog.Logger, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		orch:         orch,
		recorder:     recorder,
		logger:       logging.NewComponentLogger(logger, "api"),
		writeTimeout: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestID(), s.accessLog())
	s.routes(engine)
	s.engine = engine
	return s
}

// Handler returns the HTTP handler for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/api/health", s.health)
	r.GET("/metrics", gin.WrapH(s.recorder.Handler()))
	r.Static("/media", s.orch.Blobs().Root())

	api := r.Group("/api")
	{
		api.POST("/ideas", s.generateIdeas)

		api.GET("/projects", s.listProjects)
		api.POST("/projects", s.createProject)
		api.GET("/projects/:id", s.getProject)

		api.GET("/projects/:id/script", s.getScript)
		api.PUT("/projects/:id/script", s.saveScript)
		api.POST("/projects/:id/script/generate", s.generateScript)

		api.POST("/projects/:id/analyze", s.analyzeScript)
		api.GET("/projects/:id/assets", s.listAssets)
		api.POST("/assets/:id/generate", s.generateAssetImage)

		api.GET("/projects/:id/renders", s.listRenders)
		api.POST("/projects/:id/scenes/:index/keyframes/:frame", s.generateKeyframe)
		api.POST("/projects/:id/scenes/:index/storyboard", s.generateStoryboard)
		api.POST("/projects/:id/scenes/:index/decompose", s.decomposeAction)
		api.POST("/projects/:id/scenes/:index/video", s.generateSceneVideo)
	}
}

// Start listens on bind and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, bind string) error {
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      s.writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}
