package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aescanero/eduvid/internal/domain"
	"github.com/aescanero/eduvid/pkg/adapters/cache"
	"go.uber.org/zap"
)

const knowledgeNamespace = "concept_knowledge"

// retrieveKnowledge fetches concept context, consulting the cache first.
// Cache failures are logged and treated as misses.
func (m *Manager) retrieveKnowledge(ctx context.Context, req domain.GenerationRequest) (*domain.ConceptContext, error) {
	key := cache.Key(knowledgeNamespace, req.ConceptName, req.Domain)

	var cached domain.ConceptContext
	hit, err := cache.GetJSON(ctx, m.deps.Cache, key, &cached)
	if err != nil {
		m.logger.Warn("cache read failed, treating as miss",
			zap.String("key", key),
			zap.Error(err))
	}
	m.metrics().RecordCacheLookup(hit)
	if hit {
		m.logger.Debug("concept knowledge served from cache",
			zap.String("key", key))
		return &cached, nil
	}

	knowledge, err := m.deps.Graph.Fetch(ctx, req.ConceptName, req.Domain, m.opts.KnowledgeDepth)
	if err != nil {
		return nil, err
	}
	if knowledge == nil {
		return nil, fmt.Errorf("%w: concept %q in domain %q", domain.ErrNotFound, req.ConceptName, req.Domain)
	}

	if err := cache.SetJSON(ctx, m.deps.Cache, key, knowledge, m.opts.CacheTTL); err != nil {
		m.logger.Warn("cache write failed",
			zap.String("key", key),
			zap.Error(err))
	}

	return knowledge, nil
}

func (m *Manager) generateContent(ctx context.Context, knowledge *domain.ConceptContext, req domain.GenerationRequest) (*domain.Content, error) {
	content, err := m.deps.Content.Generate(ctx, knowledge, req)
	if err != nil {
		return nil, err
	}
	if content == nil || len(content.Slides) == 0 {
		return nil, errors.New("content generator returned no slides")
	}
	return content, nil
}

func (m *Manager) renderVideo(ctx context.Context, content *domain.Content, taskID string) (string, error) {
	path, err := m.deps.Renderer.Render(ctx, content, taskID)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", errors.New("renderer returned no video file")
	}
	return path, nil
}

// VideoKey is the object key a finished video is uploaded under.
func VideoKey(taskID string) string {
	return fmt.Sprintf("videos/%s/output.mp4", taskID)
}

// storeVideo uploads the video and writes its catalogue record. If the
// record cannot be written the upload is removed again.
func (m *Manager) storeVideo(
	ctx context.Context,
	taskID string,
	req domain.GenerationRequest,
	content *domain.Content,
	videoPath string,
) (string, error) {
	key := VideoKey(taskID)

	url, err := m.deps.Store.Upload(ctx, videoPath, key)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}

	record := &domain.VideoRecord{
		ID:              taskID,
		ConceptName:     req.ConceptName,
		Domain:          req.Domain,
		DifficultyLevel: req.DifficultyLevel,
		URL:             url,
		SlideCount:      len(content.Slides),
		Outline:         content.Outline(),
		DurationSeconds: int(math.Round(content.TotalDuration())),
		Status:          string(domain.TaskStateCompleted),
		CreatedAt:       time.Now(),
	}
	if err := m.deps.Videos.Insert(ctx, record); err != nil {
		if delErr := m.deps.Store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			m.logger.Error("failed to remove orphaned upload",
				zap.String("task_id", taskID),
				zap.String("key", key),
				zap.Error(delErr))
		}
		return "", fmt.Errorf("catalogue insert: %w", err)
	}

	return url, nil
}
