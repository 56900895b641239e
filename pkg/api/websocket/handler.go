package websocket

import (
	"context"
	"errors"
	"net/http"

	"github.com/aescanero/eduvid/internal/domain"
	"github.com/aescanero/eduvid/internal/ports"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ObserverTable binds observers to tasks
type ObserverTable interface {
	Bind(taskID string, obs ports.Observer)
	Unbind(taskID string, obs ports.Observer) bool
}

// TaskReader reads the current state of a task
type TaskReader interface {
	GetStatus(ctx context.Context, taskID string) (*domain.Task, error)
}

// Handler handles WebSocket connections
type Handler struct {
	observers ObserverTable
	tasks     TaskReader
	logger    *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(observers ObserverTable, tasks TaskReader, logger *zap.Logger) *Handler {
	return &Handler{
		observers: observers,
		tasks:     tasks,
		logger:    logger,
	}
}

// HandleTaskStream streams status updates for one task
func (h *Handler) HandleTaskStream(c *gin.Context) {
	taskID := c.Param("id")

	task, err := h.tasks.GetStatus(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Task not found"}})
			return
		}
		h.logger.Error("failed to read task", zap.String("task_id", taskID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "INTERNAL", "message": "Failed to read task"}})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	obs := newConnObserver(conn)
	defer func() { _ = obs.Close() }()

	h.logger.Info("WebSocket connection established",
		zap.String("task_id", taskID),
		zap.String("client", c.ClientIP()))

	if task.State.IsTerminal() {
		_ = obs.Send(task.Snapshot())
		return
	}

	h.observers.Bind(taskID, obs)
	defer h.observers.Unbind(taskID, obs)

	// Re-read after binding so an update applied in between is not missed.
	if task, err = h.tasks.GetStatus(c.Request.Context(), taskID); err == nil {
		if err := obs.Send(task.Snapshot()); err != nil {
			return
		}
		if task.State.IsTerminal() {
			return
		}
	}

	// The read loop only detects the client going away; inbound messages
	// are ignored.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				_ = obs.Close()
				return
			}
		}
	}()

	<-obs.done

	h.logger.Info("WebSocket connection closed",
		zap.String("task_id", taskID))
}
