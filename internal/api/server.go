package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/remedystack/remedy-engine/internal/utils"
	"github.com/remedystack/remedy-engine/internal/workflow"
)

// Server exposes the workflow engine over REST.
type Server struct {
	engine     *workflow.Engine
	logger     *slog.Logger
	tracker    *utils.LatencyTracker
	httpServer *http.Server
}

// NewServer wires the REST routes onto a gin router listening on address.
func NewServer(address string, engine *workflow.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))

	s := &Server{
		engine:  engine,
		logger:  logger,
		tracker: utils.NewLatencyTracker(1024),
	}

	router.GET("/health", s.handleHealth)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/workflows/start", s.handleStart)
		v1.GET("/workflows", s.handleList)
		v1.GET("/workflows/:id/status", s.handleStatus)
		v1.GET("/workflows/:id/history", s.handleHistory)
		v1.GET("/workflows/:id/report", s.handleReport)
		v1.POST("/workflows/:id/approve/:gate", s.handleApprove)
		v1.POST("/workflows/:id/select-candidate", s.handleSelectCandidate)
	}

	s.httpServer = &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("api server listening", slog.String("address", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.httpServer.Addr
}

// Handler exposes the router, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
