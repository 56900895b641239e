// Package manim renders slides into a video with the manim animation engine
// and joins the scenes with ffmpeg.
package manim

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/aescanero/eduvid/internal/domain"
	"go.uber.org/zap"
)

// quality name -> manim -q flag and the directory manim writes into
var qualities = map[string]struct {
	flag string
	dir  string
}{
	"low_quality":        {"l", "480p15"},
	"medium_quality":     {"m", "720p30"},
	"high_quality":       {"h", "1080p60"},
	"production_quality": {"p", "1440p60"},
	"fourk_quality":      {"k", "2160p60"},
}

// Options configures the renderer
type Options struct {
	ManimBinary  string
	FFmpegBinary string
	OutputDir    string
	Quality      string
}

// CommandRunner runs an external program and returns its combined output
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Renderer implements ports.Renderer
type Renderer struct {
	opts   Options
	run    CommandRunner
	logger *zap.Logger
}

// NewRenderer creates a renderer. run may be nil to use os/exec.
func NewRenderer(opts Options, run CommandRunner, logger *zap.Logger) (*Renderer, error) {
	if opts.ManimBinary == "" {
		opts.ManimBinary = "manim"
	}
	if opts.FFmpegBinary == "" {
		opts.FFmpegBinary = "ffmpeg"
	}
	if opts.Quality == "" {
		opts.Quality = "high_quality"
	}
	if _, ok := qualities[opts.Quality]; !ok {
		return nil, fmt.Errorf("unknown manim quality: %s", opts.Quality)
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if run == nil {
		run = execRunner
	}

	return &Renderer{opts: opts, run: run, logger: logger}, nil
}

// Render renders every slide as a scene and concatenates them. The working
// directory is removed if rendering fails.
func (r *Renderer) Render(ctx context.Context, content *domain.Content, taskID string) (path string, err error) {
	if content == nil || len(content.Slides) == 0 {
		return "", errors.New("nothing to render")
	}

	dir := filepath.Join(r.opts.OutputDir, taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create task directory: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(dir)
		}
	}()

	narration := make(map[int]float64, len(content.Script))
	for _, line := range content.Script {
		narration[line.SlideNumber] += line.DurationSeconds
	}

	scenes := make([]string, 0, len(content.Slides))
	for i, slide := range content.Slides {
		kind := SceneKind(slide, len(content.Slides))
		scene, err := r.renderSlide(ctx, dir, i, slide, kind, narration[slide.Number])
		if err != nil {
			return "", fmt.Errorf("scene %d: %w", i, err)
		}
		scenes = append(scenes, scene)
	}

	final, err := r.concat(ctx, dir, scenes)
	if err != nil {
		return "", err
	}

	r.logger.Info("video rendered",
		zap.String("task_id", taskID),
		zap.Int("scenes", len(scenes)),
		zap.String("path", final))
	return final, nil
}

func (r *Renderer) renderSlide(
	ctx context.Context,
	dir string,
	index int,
	slide domain.Slide,
	kind domain.SlideKind,
	narration float64,
) (string, error) {
	name := fmt.Sprintf("scene_%d", index)
	className := fmt.Sprintf("EducationalScene%d", index)

	source, err := renderScene(className, slide, kind, narration)
	if err != nil {
		return "", err
	}
	file := filepath.Join(dir, name+".py")
	if err := os.WriteFile(file, source, 0o644); err != nil {
		return "", fmt.Errorf("failed to write scene file: %w", err)
	}

	q := qualities[r.opts.Quality]
	out, err := r.run(ctx, r.opts.ManimBinary,
		file, className,
		"-q", q.flag,
		"--output_file", name,
		"--media_dir", dir)
	if err != nil {
		return "", fmt.Errorf("manim rendering failed: %w: %s", err, tail(out))
	}

	video := filepath.Join(dir, "videos", name, q.dir, name+".mp4")
	if _, err := os.Stat(video); err != nil {
		return "", fmt.Errorf("output video file not found: %s", video)
	}
	return video, nil
}

func (r *Renderer) concat(ctx context.Context, dir string, scenes []string) (string, error) {
	var list strings.Builder
	for _, s := range scenes {
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(s, "'", `'\''`))
	}
	listFile := filepath.Join(dir, "video_list.txt")
	if err := os.WriteFile(listFile, []byte(list.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write concat list: %w", err)
	}

	output := filepath.Join(dir, "final_video.mp4")
	out, err := r.run(ctx, r.opts.FFmpegBinary,
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		"-y",
		output)
	if err != nil {
		return "", fmt.Errorf("video combination failed: %w: %s", err, tail(out))
	}
	return output, nil
}

// tail keeps the end of a command's output, where the error usually is.
func tail(out []byte) string {
	const limit = 500
	s := strings.TrimSpace(string(out))
	if len(s) > limit {
		s = "..." + s[len(s)-limit:]
	}
	return s
}
