package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aescanero/eduvid/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StatusStream implements ports.EventStream using a Redis Stream
type StatusStream struct {
	client    *redis.Client
	logger    *zap.Logger
	streamKey string
	maxLen    int64
}

// NewStatusStream creates a new Redis Streams status mirror
func NewStatusStream(client *redis.Client, maxLen int64, logger *zap.Logger) *StatusStream {
	return &StatusStream{
		client:    client,
		logger:    logger,
		streamKey: getStreamKey("status"),
		maxLen:    maxLen,
	}
}

// Publish appends a status update to the stream
func (s *StatusStream) Publish(ctx context.Context, update domain.StatusUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.streamKey,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"task_id": update.TaskID,
			"status":  string(update.State),
			"data":    string(data),
		},
	}

	id, err := s.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}

	s.logger.Debug("status update mirrored",
		zap.String("task_id", update.TaskID),
		zap.String("status", string(update.State)),
		zap.Int("progress", update.Progress),
		zap.String("stream", s.streamKey),
		zap.String("entry_id", id))

	return nil
}

// Close is a no-op; the Redis client is closed by its owner
func (s *StatusStream) Close() error {
	return nil
}

// getStreamKey returns the Redis stream key for a topic
func getStreamKey(topic string) string {
	return fmt.Sprintf("eduvid:events:%s", topic)
}
