package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"storyreel/internal/services"
	"storyreel/internal/store"
)

type ideasRequest struct {
	Topic string `json:"topic" binding:"required"`
}

type createProjectRequest struct {
	Owner string      `json:"owner"`
	Topic string      `json:"topic" binding:"required"`
	Idea  *store.Idea `json:"idea"`
}

type generateScriptRequest struct {
	Topic           string `json:"topic"`
	IdeaDescription string `json:"idea_description"`
}

func (s *Server) health(c *gin.Context) {
	if err := s.orch.Store().Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) generateIdeas(c *gin.Context) {
	var req ideasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}
	ideas, err := s.orch.GenerateIdeas(c.Request.Context(), req.Topic)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ideas": ideas})
}

func (s *Server) listProjects(c *gin.Context) {
	projects, err := s.orch.Store().ListProjects(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (s *Server) createProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}
	project, err := s.orch.CreateProject(c.Request.Context(), req.Owner, req.Topic, req.Idea)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (s *Server) getProject(c *gin.Context) {
	report, err := s.orch.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) getScript(c *gin.Context) {
	script, err := s.orch.Store().GetScript(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, script)
}

func (s *Server) saveScript(c *gin.Context) {
	var script store.Script
	if err := c.ShouldBindJSON(&script); err != nil {
		s.badRequest(c, err.Error())
		return
	}
	saved, err := s.orch.SaveScript(c.Request.Context(), c.Param("id"), script)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// generateScript falls back to the project's topic and stored idea when the
// body leaves them empty. The script is returned, not saved.
func (s *Server) generateScript(c *gin.Context) {
	var req generateScriptRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.badRequest(c, err.Error())
			return
		}
	}
	ctx := c.Request.Context()
	projectID := c.Param("id")
	project, err := s.orch.Store().GetProject(ctx, projectID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		req.Topic = project.Topic
	}
	if strings.TrimSpace(req.IdeaDescription) == "" {
		idea, err := s.orch.Store().GetIdea(ctx, projectID)
		switch {
		case err == nil:
			req.IdeaDescription = idea.Description
		case !errors.Is(err, services.ErrNotFound):
			s.fail(c, err)
			return
		}
	}
	script, err := s.orch.GenerateScript(services.WithProjectID(ctx, projectID), req.Topic, req.IdeaDescription)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, script)
}

func (s *Server) analyzeScript(c *gin.Context) {
	assets, err := s.orch.AnalyzeScript(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if assets == nil {
		assets = []store.Asset{}
	}
	c.JSON(http.StatusOK, gin.H{"assets": assets})
}

func (s *Server) listAssets(c *gin.Context) {
	assets, err := s.orch.Store().ListAssets(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assets": assets})
}

func (s *Server) generateAssetImage(c *gin.Context) {
	asset, err := s.orch.GenerateAssetImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, asset)
}

func (s *Server) listRenders(c *gin.Context) {
	renders, err := s.orch.Store().ListSceneRenders(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"renders": renders})
}

func (s *Server) generateKeyframe(c *gin.Context) {
	index, ok := s.sceneIndex(c)
	if !ok {
		return
	}
	frame, err := store.ParseFrameType(c.Param("frame"))
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}
	s.respondRender(c, func(ctx context.Context) (*store.SceneRender, error) {
		return s.orch.GenerateKeyframe(ctx, c.Param("id"), index, frame)
	})
}

func (s *Server) generateStoryboard(c *gin.Context) {
	index, ok := s.sceneIndex(c)
	if !ok {
		return
	}
	s.respondRender(c, func(ctx context.Context) (*store.SceneRender, error) {
		return s.orch.GenerateStoryboard(ctx, c.Param("id"), index)
	})
}

func (s *Server) generateSceneVideo(c *gin.Context) {
	index, ok := s.sceneIndex(c)
	if !ok {
		return
	}
	s.respondRender(c, func(ctx context.Context) (*store.SceneRender, error) {
		return s.orch.GenerateSceneVideo(ctx, c.Param("id"), index)
	})
}

func (s *Server) decomposeAction(c *gin.Context) {
	index, ok := s.sceneIndex(c)
	if !ok {
		return
	}
	states, err := s.orch.DecomposeAction(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, states)
}

func (s *Server) respondRender(c *gin.Context, run func(context.Context) (*store.SceneRender, error)) {
	row, err := run(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (s *Server) sceneIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		s.badRequest(c, "scene index must be a non-negative integer")
		return 0, false
	}
	return index, true
}
