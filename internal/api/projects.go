package api

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kornfeb/Easy-Auto-Video/internal/engine"
	"github.com/kornfeb/Easy-Auto-Video/internal/pipeline"
)

// RegisterProjectRoutes registers project status and job control routes.
func (s *Server) RegisterProjectRoutes(r *gin.Engine) {
	r.GET("/api/projects", s.handleListProjects)

	p := r.Group("/api/projects/:id")
	{
		p.GET("", s.handleGetProject)
		p.GET("/job", s.handleJob)
		p.POST("/run", s.handleRun)
		p.POST("/cancel", s.handleCancel)
		p.GET("/timeline", s.handleTimeline)
		p.GET("/dryrun", s.handleGetDryRun)
		p.POST("/dryrun", s.handlePostDryRun)
		p.GET("/plan", s.handlePlan)
	}
}

// RegisterMediaRoutes serves project files referenced by timeline previews.
func (s *Server) RegisterMediaRoutes(r *gin.Engine) {
	r.GET(engine.MediaPrefix+"/:id/*ref", s.handleMedia)
}

func (s *Server) handleListProjects(c *gin.Context) {
	recs, err := s.Store.List()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": recs})
}

func (s *Server) handleGetProject(c *gin.Context) {
	rec, err := s.Store.Load(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleJob(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.Store.Load(id); err != nil {
		writeError(c, err)
		return
	}
	job, ok := s.Runner.Status(id)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"project_id": id, "status": "idle"})
		return
	}
	c.JSON(http.StatusOK, job)
}

type runRequest struct {
	Force bool `json:"force"`
}

func (s *Server) handleRun(c *gin.Context) {
	var req runRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	job, err := s.Runner.Start(s.BaseContext, c.Param("id"), pipeline.Options{Force: req.Force})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

func (s *Server) handleCancel(c *gin.Context) {
	id := c.Param("id")
	if err := s.Runner.Cancel(id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"project_id": id, "status": "cancelling"})
}

func (s *Server) handleTimeline(c *gin.Context) {
	preview, err := s.Engine.Preview(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (s *Server) handleGetDryRun(c *gin.Context) {
	paths, err := s.Store.Paths(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	report, err := paths.LoadReport()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// handlePostDryRun validates the saved timeline now. It never encodes.
func (s *Server) handlePostDryRun(c *gin.Context) {
	report, err := s.Engine.DryRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// handlePlan returns the composition plan of the last render.
func (s *Server) handlePlan(c *gin.Context) {
	plan, err := s.Engine.Plan(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (s *Server) handleMedia(c *gin.Context) {
	paths, err := s.Store.Paths(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ref := strings.TrimPrefix(c.Param("ref"), "/")
	if strings.Contains(ref, "..") || !filepath.IsLocal(filepath.FromSlash(ref)) || !paths.Exists(ref) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.File(paths.Resolve(ref))
}
