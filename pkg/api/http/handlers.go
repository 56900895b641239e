package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aescanero/eduvid/internal/application/orchestrator"
	"github.com/aescanero/eduvid/internal/domain"
	"github.com/aescanero/eduvid/internal/ports"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GenerateRequest represents a video generation request
type GenerateRequest struct {
	ConceptName        string `json:"concept_name"`
	Domain             string `json:"domain"`
	DifficultyLevel    string `json:"difficulty_level"`
	CustomRequirements string `json:"custom_requirements"`
}

// GenerateResponse represents a video generation response
type GenerateResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// VideoListResponse is a page of the catalogue
type VideoListResponse struct {
	Videos []*domain.VideoRecord `json:"videos"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	checks := gin.H{"orchestrator": "ok"}
	status := http.StatusOK
	state := "healthy"

	if s.health != nil {
		pool := s.health.GetStatus()
		checks["workers"] = pool
		if !pool.Healthy {
			status = http.StatusServiceUnavailable
			state = "unhealthy"
		}
	}

	c.JSON(status, gin.H{
		"status":    state,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

// handleGenerate queues a video generation task
func (s *Server) handleGenerate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	taskID, err := s.tasks.Submit(c.Request.Context(), domain.GenerationRequest{
		ConceptName:        req.ConceptName,
		Domain:             req.Domain,
		DifficultyLevel:    domain.Difficulty(req.DifficultyLevel),
		CustomRequirements: req.CustomRequirements,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRequest):
			abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		case errors.Is(err, domain.ErrQueueFull):
			abortWithError(c, http.StatusServiceUnavailable, "SUBMISSION_FAILED", "Too many pending tasks, retry later")
		case errors.Is(err, domain.ErrShuttingDown):
			abortWithError(c, http.StatusServiceUnavailable, "SUBMISSION_FAILED", "Service is shutting down")
		default:
			s.logger.Error("failed to submit task", zap.Error(err))
			abortWithError(c, http.StatusInternalServerError, "SUBMISSION_FAILED", "Failed to queue video generation")
		}
		return
	}

	c.JSON(http.StatusAccepted, GenerateResponse{
		TaskID:  taskID,
		Status:  string(domain.TaskStateQueued),
		Message: "Video generation started",
	})
}

// handleGetStatus returns the task record
func (s *Server) handleGetStatus(c *gin.Context) {
	taskID := c.Param("id")

	task, err := s.tasks.GetStatus(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			abortWithError(c, http.StatusNotFound, "NOT_FOUND", "Task not found")
			return
		}
		s.logger.Error("failed to get task", zap.String("task_id", taskID), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "INTERNAL", "Failed to read task status")
		return
	}

	c.JSON(http.StatusOK, task)
}

// handleCancel requests cancellation of a task
func (s *Server) handleCancel(c *gin.Context) {
	taskID := c.Param("id")

	ok, err := s.tasks.Cancel(c.Request.Context(), taskID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error("failed to cancel task", zap.String("task_id", taskID), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "CANCELLATION_FAILED", "Failed to cancel task")
		return
	}
	if !ok {
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", "Task not found or cannot be cancelled")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task_id": taskID,
		"message": "Task cancelled successfully",
	})
}

// handleGetVideo returns a catalogue record
func (s *Server) handleGetVideo(c *gin.Context) {
	videoID := c.Param("id")

	video, err := s.videos.Get(c.Request.Context(), videoID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			abortWithError(c, http.StatusNotFound, "NOT_FOUND", "Video not found")
			return
		}
		s.logger.Error("failed to get video", zap.String("video_id", videoID), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "INTERNAL", "Failed to read video")
		return
	}

	c.JSON(http.StatusOK, video)
}

// handleListVideos lists the catalogue
func (s *Server) handleListVideos(c *gin.Context) {
	limit, err := queryInt(c, "limit", 20)
	if err != nil || limit < 1 || limit > 100 {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", "limit must be between 1 and 100")
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", "offset must be a non-negative integer")
		return
	}

	videos, err := s.videos.List(c.Request.Context(), ports.VideoFilter{
		Domain: c.Query("domain"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.logger.Error("failed to list videos", zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "INTERNAL", "Failed to list videos")
		return
	}
	if videos == nil {
		videos = []*domain.VideoRecord{}
	}

	c.JSON(http.StatusOK, VideoListResponse{
		Videos: videos,
		Limit:  limit,
		Offset: offset,
	})
}

// handleDeleteVideo removes a catalogue record and its uploaded file
func (s *Server) handleDeleteVideo(c *gin.Context) {
	videoID := c.Param("id")

	if err := s.videos.Delete(c.Request.Context(), videoID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			abortWithError(c, http.StatusNotFound, "NOT_FOUND", "Video not found")
			return
		}
		s.logger.Error("failed to delete video", zap.String("video_id", videoID), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "INTERNAL", "Failed to delete video")
		return
	}

	if s.store != nil {
		if err := s.store.Delete(c.Request.Context(), orchestrator.VideoKey(videoID)); err != nil {
			s.logger.Warn("failed to delete video object",
				zap.String("video_id", videoID),
				zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Video deleted successfully"})
}

// handleSearchConcepts searches the knowledge graph
func (s *Server) handleSearchConcepts(c *gin.Context) {
	if s.concepts == nil {
		abortWithError(c, http.StatusServiceUnavailable, "INTERNAL", "Concept search is not configured")
		return
	}

	query := c.Query("q")
	if query == "" {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", "q is required")
		return
	}
	limit, err := queryInt(c, "limit", 10)
	if err != nil || limit < 1 || limit > 100 {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", "limit must be between 1 and 100")
		return
	}

	concepts, err := s.concepts.Search(c.Request.Context(), query, c.Query("domain"), limit)
	if err != nil {
		s.logger.Error("concept search failed", zap.String("query", query), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "INTERNAL", "Concept search failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"concepts": concepts})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
