package domain

import "time"

// ConceptContext is the knowledge retrieved for a concept
type ConceptContext struct {
	Concept         Concept         `json:"concept"`
	Prerequisites   []Concept       `json:"prerequisites"`
	Examples        []Example       `json:"examples"`
	RelatedConcepts []Concept       `json:"related_concepts"`
	SourceContent   []SourceContent `json:"source_content"`
}

// Concept is a node of the knowledge graph
type Concept struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
}

// Example illustrates a concept
type Example struct {
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
}

// SourceContent points at the chapter and book a concept comes from
type SourceContent struct {
	Chapter string `json:"chapter"`
	Book    string `json:"book"`
}

// SlideKind selects how a slide is laid out by the renderer
type SlideKind string

const (
	SlideKindIntro      SlideKind = "intro"
	SlideKindText       SlideKind = "text"
	SlideKindCode       SlideKind = "code"
	SlideKindMath       SlideKind = "math"
	SlideKindDiagram    SlideKind = "diagram"
	SlideKindConclusion SlideKind = "conclusion"
)

// Slide is one screen of the generated presentation
type Slide struct {
	Number      int       `json:"slide_number"`
	Kind        SlideKind `json:"kind"`
	Title       string    `json:"title"`
	Bullets     []string  `json:"content"`
	CodeExample string    `json:"code_example,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

// ScriptLine is the narration attached to a slide
type ScriptLine struct {
	SlideNumber     int     `json:"slide_number"`
	Narration       string  `json:"narration"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Content is the output of the content-generation stage
type Content struct {
	Slides []Slide      `json:"slides"`
	Script []ScriptLine `json:"script"`
}

// VideoRecord is the catalogue entry written when a video is finalized
type VideoRecord struct {
	ID              string     `json:"id"`
	ConceptName     string     `json:"concept_name"`
	Domain          string     `json:"domain"`
	DifficultyLevel Difficulty `json:"difficulty_level"`
	URL             string     `json:"s3_url"`
	SlideCount      int        `json:"slide_count"`
	Outline         []string   `json:"outline,omitempty"`
	DurationSeconds int        `json:"duration,omitempty"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Outline lists the slide titles in order.
func (c *Content) Outline() []string {
	titles := make([]string, 0, len(c.Slides))
	for _, s := range c.Slides {
		titles = append(titles, s.Title)
	}
	return titles
}

// TotalDuration sums the narration durations of a script.
func (c *Content) TotalDuration() float64 {
	var total float64
	for _, l := range c.Script {
		total += l.DurationSeconds
	}
	return total
}
