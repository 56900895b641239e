package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aescanero/eduvid/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const reply = "```json\n" + `{
  "slides": [
    {"slide_number": 1, "kind": "Intro", "title": "Binary Search", "content": ["Divide and conquer"]},
    {"kind": "code", "title": "Implementation", "content": [], "code_example": "def bs(a, x): ..."}
  ],
  "script": [
    {"slide_number": 1, "narration": "Welcome", "duration_seconds": 12.5},
    {"slide_number": 2, "narration": "Here is the code", "duration_seconds": 30}
  ]
}` + "\n```"

func messageServer(t *testing.T, status int, text string, seen *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		if seen != nil {
			assert.NoError(t, json.Unmarshal(body, seen))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":            "msg_01",
			"type":          "message",
			"role":          "assistant",
			"model":         "claude-test",
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"content": []map[string]interface{}{
				{"type": "text", "text": text},
			},
			"usage": map[string]interface{}{"input_tokens": 120, "output_tokens": 300},
		})
	}))
}

func newTestGenerator(t *testing.T, url string) *Generator {
	t.Helper()
	g, err := NewGenerator(Options{
		APIKey:  "test-key",
		BaseURL: url,
		Model:   "claude-test",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return g
}

func TestGenerator_Generate(t *testing.T) {
	var seen map[string]interface{}
	srv := messageServer(t, http.StatusOK, reply, &seen)
	defer srv.Close()

	g := newTestGenerator(t, srv.URL)
	content, err := g.Generate(context.Background(),
		&domain.ConceptContext{
			Concept:       domain.Concept{Name: "Binary Search", Description: "Search a sorted array"},
			Prerequisites: []domain.Concept{{Name: "Arrays"}},
		},
		domain.GenerationRequest{
			ConceptName:        "Binary Search",
			Domain:             "Algorithms",
			DifficultyLevel:    domain.DifficultyBeginner,
			CustomRequirements: "Use Python",
		})
	require.NoError(t, err)

	require.Len(t, content.Slides, 2)
	assert.Equal(t, domain.SlideKindIntro, content.Slides[0].Kind)
	assert.Equal(t, 2, content.Slides[1].Number)
	assert.Equal(t, domain.SlideKindCode, content.Slides[1].Kind)
	assert.Equal(t, 42.5, content.TotalDuration())

	assert.Equal(t, "claude-test", seen["model"])
	msgs, ok := seen["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, msgs, 1)
	raw, _ := json.Marshal(msgs[0])
	assert.Contains(t, string(raw), "Use Python")
	assert.Contains(t, string(raw), "Arrays")
}

func TestGenerator_APIError(t *testing.T) {
	srv := messageServer(t, http.StatusServiceUnavailable, "", nil)
	defer srv.Close()

	g := newTestGenerator(t, srv.URL)
	_, err := g.Generate(context.Background(), &domain.ConceptContext{}, domain.GenerationRequest{
		ConceptName: "x", Domain: "y", DifficultyLevel: domain.DifficultyIntermediate,
	})
	assert.Error(t, err)
}

func TestParseContent(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		wantErr bool
	}{
		{"fenced", reply, false},
		{"no json", "I cannot help with that", true},
		{"no slides", `{"slides": [], "script": []}`, true},
		{"malformed", `{"slides": [}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseContent(tt.reply)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewGenerator_RequiresKey(t *testing.T) {
	_, err := NewGenerator(Options{}, zaptest.NewLogger(t))
	assert.Error(t, err)
}
