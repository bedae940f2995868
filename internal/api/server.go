package api

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kornfeb/Easy-Auto-Video/internal/apperr"
	"github.com/kornfeb/Easy-Auto-Video/internal/engine"
	"github.com/kornfeb/Easy-Auto-Video/internal/pipeline"
	"github.com/kornfeb/Easy-Auto-Video/internal/project"
)

// Server exposes job control and build status over HTTP.
type Server struct {
	Engine *engine.Engine
	Runner *pipeline.Runner
	Store  *project.Store
	Logger zerolog.Logger

	// BaseContext bounds jobs started over HTTP. Request contexts end with
	// the response, so jobs never use them.
	BaseContext context.Context
}

func NewServer(e *engine.Engine, r *pipeline.Runner, logger zerolog.Logger) *Server {
	return &Server{
		Engine:      e,
		Runner:      r,
		Store:       e.Store,
		Logger:      logger,
		BaseContext: context.Background(),
	}
}

// NewRouter constructs a Gin engine with registered routes.
func (s *Server) NewRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	RegisterHealthRoutes(r)
	s.RegisterProjectRoutes(r)
	s.RegisterMediaRoutes(r)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}

// writeError maps pipeline errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, project.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		status = http.StatusNotFound
	case errors.Is(err, pipeline.ErrNoJob):
		status = http.StatusConflict
	default:
		switch apperr.CodeOf(err) {
		case apperr.CodeJobRunning:
			status = http.StatusConflict
		case apperr.CodeInvalidInput:
			status = http.StatusBadRequest
		case "":
		default:
			status = http.StatusUnprocessableEntity
		}
	}
	c.JSON(status, gin.H{"error": apperr.From(err)})
}
