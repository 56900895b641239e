// Package anthropic generates slides and narration with the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aescanero/eduvid/internal/domain"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

const (
	defaultModel     = "claude-3-5-sonnet-20241022"
	defaultMaxTokens = 4096

	systemPrompt = "You are an expert educational content creator specializing in " +
		"engaging technical presentations. You always answer with a single JSON " +
		"object and no surrounding prose."
)

// Options configures the generator
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float64
	MaxTokens      int
	RequestTimeout time.Duration
}

// Generator implements ports.ContentGenerator
type Generator struct {
	client      anthropic.Client
	model       string
	temperature float64
	maxTokens   int64
	logger      *zap.Logger
}

// NewGenerator creates a content generator. Retries are disabled; a failed
// call fails the stage.
func NewGenerator(opts Options, logger *zap.Logger) (*Generator, error) {
	if opts.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.RequestTimeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.RequestTimeout))
	}

	return &Generator{
		client:      anthropic.NewClient(reqOpts...),
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   int64(opts.MaxTokens),
		logger:      logger,
	}, nil
}

// Generate asks the model for slides and a narration script
func (g *Generator) Generate(ctx context.Context, concept *domain.ConceptContext, req domain.GenerationRequest) (*domain.Content, error) {
	start := time.Now()

	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   g.maxTokens,
		Temperature: anthropic.Float(g.temperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(concept, req))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic messages call failed: %w", err)
	}

	g.logger.Debug("content generated",
		zap.String("model", g.model),
		zap.String("concept", req.ConceptName),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
		zap.Duration("latency", time.Since(start)))

	if msg.StopReason == anthropic.StopReasonMaxTokens {
		return nil, fmt.Errorf("model response truncated after %d tokens", g.maxTokens)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return ParseContent(text.String())
}

// ParseContent decodes a model reply into slides and script. Code fences and
// prose around the JSON object are ignored.
func ParseContent(reply string) (*domain.Content, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return nil, errors.New("model reply contains no JSON object")
	}

	var content domain.Content
	if err := json.Unmarshal([]byte(reply[start:end+1]), &content); err != nil {
		return nil, fmt.Errorf("failed to decode model reply: %w", err)
	}
	if len(content.Slides) == 0 {
		return nil, errors.New("model reply has no slides")
	}

	for i := range content.Slides {
		s := &content.Slides[i]
		if s.Number <= 0 {
			s.Number = i + 1
		}
		s.Kind = domain.SlideKind(strings.ToLower(strings.TrimSpace(string(s.Kind))))
	}
	for i := range content.Script {
		if content.Script[i].DurationSeconds < 0 {
			content.Script[i].DurationSeconds = 0
		}
	}

	return &content, nil
}

func buildPrompt(concept *domain.ConceptContext, req domain.GenerationRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create an educational video presentation about %q in the domain %q for a %s audience.\n\n",
		req.ConceptName, req.Domain, req.DifficultyLevel)

	if concept != nil {
		b.WriteString("Concept:\n")
		fmt.Fprintf(&b, "- %s", concept.Concept.Name)
		if concept.Concept.Description != "" {
			fmt.Fprintf(&b, ": %s", concept.Concept.Description)
		}
		b.WriteString("\n")

		writeConcepts(&b, "Prerequisites", concept.Prerequisites)
		writeConcepts(&b, "Related concepts", concept.RelatedConcepts)

		if len(concept.Examples) > 0 {
			b.WriteString("Examples:\n")
			for _, e := range concept.Examples {
				fmt.Fprintf(&b, "- %s", e.Title)
				if e.Content != "" {
					fmt.Fprintf(&b, ": %s", e.Content)
				}
				b.WriteString("\n")
			}
		}
		if len(concept.SourceContent) > 0 {
			b.WriteString("Sources:\n")
			for _, s := range concept.SourceContent {
				fmt.Fprintf(&b, "- %s (%s)\n", s.Chapter, s.Book)
			}
		}
	}

	if req.CustomRequirements != "" {
		fmt.Fprintf(&b, "\nAdditional requirements: %s\n", req.CustomRequirements)
	}

	b.WriteString(`
Respond with JSON of this shape:
{
  "slides": [
    {"slide_number": 1, "kind": "intro|text|code|math|diagram|conclusion",
     "title": "...", "content": ["bullet", "..."], "code_example": "", "notes": ""}
  ],
  "script": [
    {"slide_number": 1, "narration": "...", "duration_seconds": 20}
  ]
}
Use between 5 and 10 slides. Start with an intro slide and end with a conclusion slide.
`)

	return b.String()
}

func writeConcepts(b *strings.Builder, heading string, concepts []domain.Concept) {
	if len(concepts) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", heading)
	for _, c := range concepts {
		fmt.Fprintf(b, "- %s\n", c.Name)
	}
}
