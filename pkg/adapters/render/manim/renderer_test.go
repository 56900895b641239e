package manim

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aescanero/eduvid/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeRunner records commands and creates the files manim and ffmpeg would.
type fakeRunner struct {
	mu       sync.Mutex
	commands [][]string
	failOn   string
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.commands = append(f.commands, append([]string{name}, args...))
	f.mu.Unlock()

	if name == f.failOn {
		return []byte("Traceback\nSyntaxError: bad scene"), errors.New("exit status 1")
	}

	switch name {
	case "manim":
		file := args[0]
		out := args[len(args)-1] // --media_dir value
		stem := strings.TrimSuffix(filepath.Base(file), ".py")
		video := filepath.Join(out, "videos", stem, "480p15", stem+".mp4")
		if err := os.MkdirAll(filepath.Dir(video), 0o755); err != nil {
			return nil, err
		}
		return nil, os.WriteFile(video, []byte("mp4"), 0o644)
	case "ffmpeg":
		return nil, os.WriteFile(args[len(args)-1], []byte("mp4"), 0o644)
	}
	return nil, nil
}

func testContent() *domain.Content {
	return &domain.Content{
		Slides: []domain.Slide{
			{Number: 1, Title: "Binary Search", Bullets: []string{"Find items fast"}},
			{Number: 2, Title: "Code", CodeExample: "def search(a, x):\n    return \"found\""},
			{Number: 3, Title: "Summary", Bullets: []string{"O(log n)"}},
		},
		Script: []domain.ScriptLine{
			{SlideNumber: 1, Narration: "Hi", DurationSeconds: 10},
		},
	}
}

func TestRenderer_Render(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{}
	r, err := NewRenderer(Options{OutputDir: dir, Quality: "low_quality"}, runner.run, zaptest.NewLogger(t))
	require.NoError(t, err)

	path, err := r.Render(context.Background(), testContent(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "task-1", "final_video.mp4"), path)
	assert.FileExists(t, path)

	require.Len(t, runner.commands, 4)
	assert.Equal(t, "ffmpeg", runner.commands[3][0])

	list, err := os.ReadFile(filepath.Join(dir, "task-1", "video_list.txt"))
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(list), "file '"))

	scene, err := os.ReadFile(filepath.Join(dir, "task-1", "scene_1.py"))
	require.NoError(t, err)
	assert.Contains(t, string(scene), "class EducationalScene1(Scene):")
	assert.Contains(t, string(scene), `"def search(a, x):\n    return \"found\""`)
}

func TestRenderer_FailureRemovesWorkDir(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{failOn: "manim"}
	r, err := NewRenderer(Options{OutputDir: dir, Quality: "low_quality"}, runner.run, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = r.Render(context.Background(), testContent(), "task-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SyntaxError")
	assert.NoDirExists(t, filepath.Join(dir, "task-2"))
}

func TestNewRenderer_UnknownQuality(t *testing.T) {
	_, err := NewRenderer(Options{OutputDir: t.TempDir(), Quality: "ultra"}, nil, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestSceneKind(t *testing.T) {
	tests := []struct {
		name  string
		slide domain.Slide
		total int
		want  domain.SlideKind
	}{
		{"explicit kind", domain.Slide{Number: 1, Kind: domain.SlideKindDiagram}, 5, domain.SlideKindDiagram},
		{"code example", domain.Slide{Number: 1, CodeExample: "x = 1"}, 5, domain.SlideKindCode},
		{"algorithm text", domain.Slide{Number: 3, Bullets: []string{"The Algorithm"}}, 5, domain.SlideKindCode},
		{"formula", domain.Slide{Number: 3, Bullets: []string{"the recurrence equation"}}, 5, domain.SlideKindMath},
		{"first slide", domain.Slide{Number: 1, Bullets: []string{"hello"}}, 5, domain.SlideKindIntro},
		{"last slide", domain.Slide{Number: 5, Bullets: []string{"wrap up"}}, 5, domain.SlideKindConclusion},
		{"tree", domain.Slide{Number: 3, Bullets: []string{"a balanced tree"}}, 5, domain.SlideKindDiagram},
		{"plain", domain.Slide{Number: 3, Bullets: []string{"some text"}}, 5, domain.SlideKindText},
		{"unknown kind", domain.Slide{Number: 3, Kind: "video", Bullets: []string{"x"}}, 5, domain.SlideKindText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SceneKind(tt.slide, tt.total))
		})
	}
}

func TestPyString(t *testing.T) {
	s, err := pyString(`He said "hi" <b>`)
	require.NoError(t, err)
	assert.Equal(t, `"He said \"hi\" <b>"`, s)
}
