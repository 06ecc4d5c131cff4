package ai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jimdaga/interview-ace/internal/steps"
)

type cvRequest struct {
	CVText string `json:"cv_text" binding:"required"`
}

type skillMatchRequest struct {
	Requirements []string `json:"requirements" binding:"required"`
	Experience   []string `json:"experience" binding:"required"`
}

// RegisterRoutes mounts the AI endpoints on rg. Callers add authentication
// and rate limiting to the group.
func RegisterRoutes(rg *gin.RouterGroup, g *Gateway, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	rg.POST("/job-analysis", taskHandler(logger, TaskJobAnalysis, g.AnalyzeJob))
	rg.POST("/cv-analysis", taskHandler(logger, TaskCVAnalysis, func(ctx context.Context, in cvRequest) (CVProfile, error) {
		return g.AnalyzeCV(ctx, in.CVText)
	}))
	rg.POST("/business-model", taskHandler(logger, TaskBusinessModel, g.CompanyIntel))
	rg.POST("/swot", taskHandler(logger, TaskSWOT, g.SWOT))
	rg.POST("/top-news", taskHandler(logger, TaskTopNews, g.TopNews))
	rg.POST("/company-timeline", taskHandler(logger, TaskCompanyTimeline, g.CompanyTimeline))
	rg.POST("/why", taskHandler(logger, TaskWhy, g.WhySuggestions))
	rg.POST("/questions", taskHandler(logger, TaskQuestions, g.InterviewQuestions))
	rg.POST("/skill-match", taskHandler(logger, TaskSkillMatch, func(ctx context.Context, in skillMatchRequest) (steps.ProfileMatch, error) {
		return g.MatchSkills(ctx, in.Requirements, in.Experience)
	}))
}

// taskHandler binds the JSON body to In, runs fn and writes {"data": out}.
func taskHandler[In any, Out any](logger *slog.Logger, task string, fn func(context.Context, In) (Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in In
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}

		out, err := fn(c.Request.Context(), in)
		if err != nil {
			writeError(c, logger, task, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": out})
	}
}

func writeError(c *gin.Context, logger *slog.Logger, task string, err error) {
	userID, _ := c.Get("user_id")
	switch {
	case errors.Is(err, ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
	case errors.Is(err, ErrGenerationFailed):
		logger.Error("ai task failed", "task", task, "user_id", userID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "generation failed", "details": "The AI service could not produce a usable answer. Please try again."})
	default:
		logger.Error("ai task error", "task", task, "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
