// Package server exposes the current session state and stored meetings over
// HTTP. It is a read-only observer: all mutation happens in the session
// controller and pipeline.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"

	"github.com/quorumhq/minute/internal/config"
	"github.com/quorumhq/minute/internal/notes"
	"github.com/quorumhq/minute/internal/session"
)

// Server represents the HTTP server.
type Server struct {
	config *config.Config
	logger *slog.Logger
	store  *session.Store
	notes  *notes.Store
	router *gin.Engine
}

// New creates a new Server instance.
func New(cfg *config.Config, logger *slog.Logger, sessionStore *session.Store, notesStore *notes.Store) *Server {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	server := &Server{
		config: cfg,
		logger: logger,
		store:  sessionStore,
		notes:  notesStore,
		router: router,
	}

	setupSecurityMiddleware(router, cfg, logger)
	server.setupRoutes()

	return server
}

// Router exposes the underlying engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	s.logger.Info("Server listening", "port", s.config.Port)
	return s.router.Run(":" + s.config.Port)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api/v1")
	{
		api.GET("/session", s.handleSession)
		api.GET("/meetings", s.handleMeetings)
	}

	// Serve stored meeting files (notes.md, transcript.txt, audio.mp3)
	// directly from the notes directory.
	s.router.Use(static.Serve("/meetings", static.LocalFile(s.notes.Root(), false)))
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "minute",
	})
}

// sessionResponse is the wire form of a session snapshot.
type sessionResponse struct {
	Phase     string  `json:"phase"`
	Level     float64 `json:"level"`
	Error     string  `json:"error,omitempty"`
	UpdatedAt string  `json:"updatedAt"`
}

// handleSession returns the current session snapshot.
func (s *Server) handleSession(c *gin.Context) {
	snap := s.store.Snapshot()

	resp := sessionResponse{
		Phase:     snap.Phase.String(),
		Level:     snap.Level,
		UpdatedAt: snap.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}

	c.JSON(http.StatusOK, resp)
}

// handleMeetings lists stored meetings, newest first.
func (s *Server) handleMeetings(c *gin.Context) {
	meetings, err := s.notes.List()
	if err != nil {
		s.logger.Error("failed to list meetings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list meetings"})
		return
	}

	if meetings == nil {
		meetings = []notes.Meeting{}
	}

	c.JSON(http.StatusOK, gin.H{"meetings": meetings})
}
