package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/duynm98/daily-story/internal/models"
	"github.com/duynm98/daily-story/internal/services"
)

// ---------------------------------------------------------------------------
// Stub collaborators
// ---------------------------------------------------------------------------

type stubText struct {
	storyCalls         int
	storyFailUntil     int // attempts that should fail before succeeding
	termCalls          int
	translateCalls     int
	translateFailUntil int
	translated         string
}

func (s *stubText) GenerateStory(ctx context.Context, moral, example string) (string, error) {
	s.storyCalls++
	if s.storyCalls <= s.storyFailUntil {
		return "", fmt.Errorf("provider hiccup %d", s.storyCalls)
	}
	return "Once upon a time a patient tortoise outworked a boastful hare.", nil
}

func (s *stubText) GenerateTerms(ctx context.Context, content string, amount int) ([]string, error) {
	s.termCalls++
	return []string{"tortoise", "forest"}, nil
}

func (s *stubText) Translate(ctx context.Context, content string) (string, error) {
	s.translateCalls++
	if s.translateCalls <= s.translateFailUntil {
		return "", fmt.Errorf("translation hiccup %d", s.translateCalls)
	}
	if s.translated != "" {
		return s.translated, nil
	}
	return content, nil
}

type stubImages struct {
	empty       bool
	searchCalls int
}

func (s *stubImages) Search(ctx context.Context, term, outputDir string, amount int) ([]string, error) {
	s.searchCalls++
	if s.empty {
		return nil, nil
	}
	return []string{filepath.Join(outputDir, term+".jpg")}, nil
}

type stubSpeech struct{}

func (s *stubSpeech) Synthesize(ctx context.Context, text, voice string, rate float64, audioPath string) (*services.SpeechResult, error) {
	return &services.SpeechResult{
		SubtitlePath: audioPath + ".srt",
		Duration:     12.0,
	}, nil
}

type stubNotifier struct {
	texts  []string
	videos []string
}

func (s *stubNotifier) SendText(ctx context.Context, text string) {
	s.texts = append(s.texts, text)
}

func (s *stubNotifier) SendVideo(ctx context.Context, videoPath, caption string) {
	s.videos = append(s.videos, videoPath)
}

type stubRenderer struct {
	failFor map[string]bool // image base names whose render should fail
}

func (s *stubRenderer) Render(ctx context.Context, imagePath, outputPath string, duration float64) error {
	if s.failFor[filepath.Base(imagePath)] {
		return fmt.Errorf("render failed")
	}
	return nil
}

type stubCombiner struct {
	gotClips []string
}

func (s *stubCombiner) Combine(ctx context.Context, clips []string, audioPath, outputPath string, maxClipDuration float64) (string, error) {
	s.gotClips = clips
	return outputPath, nil
}

type stubMuxer struct {
	muxed bool
}

func (s *stubMuxer) Mux(ctx context.Context, videoPath, audioPath, subtitlePath, outputPath string, params models.VideoParams) error {
	s.muxed = true
	return nil
}

func newTestOrchestrator(t *testing.T, text *stubText, images *stubImages) (*Orchestrator, *stubNotifier, *stubMuxer) {
	t.Helper()
	notifier := &stubNotifier{}
	muxer := &stubMuxer{}
	o := NewOrchestrator(
		text, images, &stubSpeech{}, notifier,
		&stubRenderer{}, &stubCombiner{}, muxer,
		Options{OutputDir: t.TempDir(), Language: "english"},
	)
	return o, notifier, muxer
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestGenerateVideoRejectsEmptyMoral(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, &stubText{}, &stubImages{})

	_, err := o.GenerateVideo(context.Background(), "task1", "   ", nil, nil)
	if !errors.Is(err, ErrEmptyMoral) {
		t.Fatalf("expected ErrEmptyMoral, got %v", err)
	}
}

func TestGenerateVideoSucceedsFirstAttempt(t *testing.T) {
	text := &stubText{}
	o, notifier, muxer := newTestOrchestrator(t, text, &stubImages{})

	path, err := o.GenerateVideo(context.Background(), "task1", "slow and steady wins", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "video-final.mp4" {
		t.Errorf("final path = %q, want video-final.mp4 basename", path)
	}
	if !muxer.muxed {
		t.Error("final mux never ran")
	}
	if text.storyCalls != 1 {
		t.Errorf("storyCalls = %d, want 1", text.storyCalls)
	}
	if len(notifier.texts) != 1 || len(notifier.videos) != 1 {
		t.Errorf("notifier got %d texts, %d videos; want 1 each", len(notifier.texts), len(notifier.videos))
	}
}

func TestGenerateVideoRetriesFromStory(t *testing.T) {
	text := &stubText{storyFailUntil: 2}
	o, _, _ := newTestOrchestrator(t, text, &stubImages{})

	var retries []int
	path, err := o.GenerateVideo(context.Background(), "task1", "honesty pays", nil, func(n int) {
		retries = append(retries, n)
	})
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if path == "" {
		t.Fatal("expected a final path")
	}
	if text.storyCalls != 3 {
		t.Errorf("storyCalls = %d, want 3 (restart from story each attempt)", text.storyCalls)
	}
	if len(retries) != 2 {
		t.Errorf("onRetry called %d times, want 2", len(retries))
	}
}

func TestGenerateVideoExhaustsAttempts(t *testing.T) {
	images := &stubImages{empty: true}
	o, notifier, _ := newTestOrchestrator(t, &stubText{}, images)

	_, err := o.GenerateVideo(context.Background(), "task1", "pride goes before a fall", nil, nil)
	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("expected ErrAttemptsExhausted, got %v", err)
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected wrapped *StageError, got %v", err)
	}
	if stageErr.Stage != StageImages {
		t.Errorf("failing stage = %s, want %s", stageErr.Stage, StageImages)
	}

	// Two terms per attempt, three attempts.
	if images.searchCalls != 6 {
		t.Errorf("searchCalls = %d, want 6", images.searchCalls)
	}
	if len(notifier.texts) != 0 {
		t.Error("notifier fired on failure")
	}
}

func TestGenerateVideoSkipsTermGenerationWhenSupplied(t *testing.T) {
	text := &stubText{}
	o, _, _ := newTestOrchestrator(t, text, &stubImages{})

	_, err := o.GenerateVideo(context.Background(), "task1", "kindness returns", []string{"rabbit", "meadow"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text.termCalls != 0 {
		t.Errorf("termCalls = %d, want 0 when terms are supplied", text.termCalls)
	}
}

func TestGenerateVideoDropsFailedRenders(t *testing.T) {
	combiner := &stubCombiner{}
	o := NewOrchestrator(
		&stubText{}, &stubImages{}, &stubSpeech{}, &stubNotifier{},
		&stubRenderer{failFor: map[string]bool{"tortoise.jpg": true}},
		combiner, &stubMuxer{},
		Options{OutputDir: t.TempDir(), Language: "english"},
	)

	_, err := o.GenerateVideo(context.Background(), "task1", "patience is a virtue", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(combiner.gotClips) != 1 {
		t.Errorf("combined %d clips, want 1 (one render dropped)", len(combiner.gotClips))
	}
}

func TestGenerateVideoRetriesFailedTranslation(t *testing.T) {
	text := &stubText{translateFailUntil: 1, translated: "chậm mà chắc"}
	o := NewOrchestrator(
		text, &stubImages{}, &stubSpeech{}, &stubNotifier{},
		&stubRenderer{}, &stubCombiner{}, &stubMuxer{},
		Options{OutputDir: t.TempDir(), Language: "vietnamese"},
	)

	path, err := o.GenerateVideo(context.Background(), "task1", "slow and steady wins", nil, nil)
	if err != nil {
		t.Fatalf("expected translation to be retried with the attempt, got %v", err)
	}
	if path == "" {
		t.Fatal("expected a final path")
	}
	if text.translateCalls != 2 {
		t.Errorf("translateCalls = %d, want 2 (failed once, retried)", text.translateCalls)
	}
	// The first attempt died before story generation.
	if text.storyCalls != 1 {
		t.Errorf("storyCalls = %d, want 1", text.storyCalls)
	}
}

func TestGenerateStoryTranslatesMoralForVietnamese(t *testing.T) {
	text := &stubText{translated: "có công mài sắt có ngày nên kim"}
	o := NewOrchestrator(
		text, &stubImages{}, &stubSpeech{}, &stubNotifier{},
		&stubRenderer{}, &stubCombiner{}, &stubMuxer{},
		Options{OutputDir: t.TempDir(), Language: "vietnamese"},
	)

	story, err := o.GenerateStory(context.Background(), "perseverance pays off")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if story == "" {
		t.Fatal("expected a story")
	}
	if text.translateCalls != 1 {
		t.Errorf("translateCalls = %d, want 1", text.translateCalls)
	}
}

func TestGenerateStoryRejectsEmptyMoral(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, &stubText{}, &stubImages{})

	_, err := o.GenerateStory(context.Background(), "")
	if !errors.Is(err, ErrEmptyMoral) {
		t.Fatalf("expected ErrEmptyMoral, got %v", err)
	}
}
