package manim

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"text/template"

	"github.com/aescanero/eduvid/internal/domain"
)

// SceneKind picks the layout for a slide. A kind set by the content
// generator wins; otherwise the slide text decides.
func SceneKind(slide domain.Slide, total int) domain.SlideKind {
	switch slide.Kind {
	case domain.SlideKindIntro, domain.SlideKindText, domain.SlideKindCode,
		domain.SlideKindMath, domain.SlideKindDiagram, domain.SlideKindConclusion:
		return slide.Kind
	}

	content := strings.ToLower(strings.Join(slide.Bullets, " "))
	switch {
	case slide.CodeExample != "" || strings.Contains(content, "code") || strings.Contains(content, "algorithm"):
		return domain.SlideKindCode
	case strings.Contains(content, "formula") || strings.Contains(content, "equation") || strings.Contains(content, "theorem"):
		return domain.SlideKindMath
	case slide.Number == 1:
		return domain.SlideKindIntro
	case total > 1 && slide.Number >= total:
		return domain.SlideKindConclusion
	case strings.Contains(content, "diagram") || strings.Contains(content, "graph") || strings.Contains(content, "tree"):
		return domain.SlideKindDiagram
	default:
		return domain.SlideKindText
	}
}

type sceneData struct {
	ClassName string
	Kind      domain.SlideKind
	Title     string
	Bullets   []string
	Code      string
	Hold      float64
}

var sceneTemplate = template.Must(template.New("scene").Funcs(template.FuncMap{
	"py":   pyString,
	"list": pyList,
}).Parse(`from manim import *


class {{ .ClassName }}(Scene):
    def construct(self):
        self.camera.background_color = WHITE

        title = Text({{ py .Title }}, font_size=48, color=BLUE_D)
        title.to_edge(UP, buff=0.5)
        self.play(FadeIn(title, shift=DOWN))
        self.wait(0.5)
{{- if eq .Kind "code" }}

        code_block = Code(code={{ py .Code }}, tab_width=4, background="window", language="python", font_size=24)
        code_block.next_to(title, DOWN, buff=1)
        self.play(Create(code_block))
{{- else if eq .Kind "math" }}

        items = VGroup(*[Text("• " + item, font_size=28, color=BLACK) for item in {{ list .Bullets }}])
        items.arrange(DOWN, aligned_edge=LEFT, buff=0.2)
        items.next_to(title, DOWN, buff=1)
        for item in items:
            self.play(Write(item))
            self.wait(0.5)
{{- else if or (eq .Kind "intro") (eq .Kind "conclusion") }}

        items = VGroup(*[Text(item, font_size=32, color=BLACK) for item in {{ list .Bullets }}])
        items.arrange(DOWN, buff=0.4)
        items.next_to(title, DOWN, buff=1)
        self.play(FadeIn(items, shift=UP))
{{- else }}

        items = VGroup(*[Text("• " + item, font_size=30, color=BLACK) for item in {{ list .Bullets }}])
        items.arrange(DOWN, aligned_edge=LEFT, buff=0.3)
        items.next_to(title, DOWN, buff=1)
        self.play(FadeIn(items, shift=UP))
        for item in items:
            self.play(Indicate(item, color=BLUE))
            self.wait(0.3)
{{- end }}

        self.wait({{ printf "%.1f" .Hold }})
`))

// renderScene writes the manim source for one slide.
func renderScene(className string, slide domain.Slide, kind domain.SlideKind, narration float64) ([]byte, error) {
	code := slide.CodeExample
	if code == "" {
		code = "# Sample code"
	}

	var buf bytes.Buffer
	err := sceneTemplate.Execute(&buf, sceneData{
		ClassName: className,
		Kind:      kind,
		Title:     slide.Title,
		Bullets:   slide.Bullets,
		Code:      code,
		Hold:      holdSeconds(narration),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render scene template: %w", err)
	}
	return buf.Bytes(), nil
}

// holdSeconds is how long the final frame stays up so the scene lasts
// roughly as long as its narration.
func holdSeconds(narration float64) float64 {
	const animation = 3.0
	return math.Max(2, narration-animation)
}

// pyString quotes s as a Python string literal. JSON string syntax is a
// subset of Python's.
func pyString(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func pyList(items []string) (string, error) {
	quoted := make([]string, 0, len(items))
	for _, item := range items {
		q, err := pyString(item)
		if err != nil {
			return "", err
		}
		quoted = append(quoted, q)
	}
	return "[" + strings.Join(quoted, ", ") + "]", nil
}
