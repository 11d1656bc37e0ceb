package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/duynm98/daily-story/internal/models"
	"github.com/duynm98/daily-story/internal/services"
)

// ---------------------------------------------------------------------------
// Orchestrator runs the moral → story → images → clips → final video
// pipeline. Every stage failure is typed so retries and status reporting can
// tell stages apart, and a whole attempt restarts from the story on failure.
// ---------------------------------------------------------------------------

const maxAttempts = 3

var (
	// ErrEmptyMoral rejects submissions with no prompt text.
	ErrEmptyMoral = errors.New("moral cannot be empty")

	// ErrAttemptsExhausted means every attempt failed; it wraps the last
	// stage error.
	ErrAttemptsExhausted = errors.New("all attempts exhausted")
)

// Stage identifies which part of the pipeline an error came from.
type Stage string

const (
	StageStory    Stage = "story"
	StageTerms    Stage = "terms"
	StageImages   Stage = "images"
	StageRender   Stage = "render"
	StageAssemble Stage = "assemble"
	StageFinalize Stage = "finalize"
)

// StageError wraps a failure with the stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// ClipRenderer turns one image into a panning clip of the given duration.
type ClipRenderer interface {
	Render(ctx context.Context, imagePath, outputPath string, duration float64) error
}

// ClipCombiner joins clips with the narration into one visual track.
type ClipCombiner interface {
	Combine(ctx context.Context, clips []string, audioPath, outputPath string, maxClipDuration float64) (string, error)
}

// FinalMuxer produces the deliverable with subtitles burned in.
type FinalMuxer interface {
	Mux(ctx context.Context, videoPath, audioPath, subtitlePath, outputPath string, params models.VideoParams) error
}

// Options carries the pipeline's behavior knobs from config.
type Options struct {
	OutputDir        string
	Language         string // "english" or "vietnamese"
	VoiceRate        float64
	CleanupOnSuccess bool
	CleanupOnFailure bool
}

type Orchestrator struct {
	text     services.TextService
	images   services.ImageService
	speech   services.SpeechService
	notifier services.Notifier
	renderer ClipRenderer
	combiner ClipCombiner
	muxer    FinalMuxer
	opts     Options
}

func NewOrchestrator(
	text services.TextService,
	images services.ImageService,
	speech services.SpeechService,
	notifier services.Notifier,
	renderer ClipRenderer,
	combiner ClipCombiner,
	muxer FinalMuxer,
	opts Options,
) *Orchestrator {
	if opts.VoiceRate == 0 {
		opts.VoiceRate = 1.0
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "temp"
	}
	return &Orchestrator{
		text:     text,
		images:   images,
		speech:   speech,
		notifier: notifier,
		renderer: renderer,
		combiner: combiner,
		muxer:    muxer,
		opts:     opts,
	}
}

func (o *Orchestrator) vietnamese() bool {
	return strings.ToLower(strings.TrimSpace(o.opts.Language)) == "vietnamese"
}

func (o *Orchestrator) voiceName() string {
	if o.vietnamese() {
		return "vi-VN-NamMinhNeural"
	}
	return "en-US-AndrewNeural"
}

// GenerateStory produces just the story text for a moral, translating the
// moral first when the configured language calls for it.
func (o *Orchestrator) GenerateStory(ctx context.Context, moral string) (string, error) {
	moral = strings.TrimSpace(moral)
	if moral == "" {
		return "", ErrEmptyMoral
	}

	if o.vietnamese() {
		translated, err := o.text.Translate(ctx, moral)
		if err != nil {
			return "", stageErr(StageStory, err)
		}
		moral = translated
	}

	story, err := o.text.GenerateStory(ctx, moral, "")
	if err != nil {
		return "", stageErr(StageStory, err)
	}
	return story, nil
}

// attempt holds everything one pipeline run produces, so a retry starts
// clean while reusing the task's working directory.
type attempt struct {
	story        string
	terms        []string
	images       []string
	clips        []string
	audioPath    string
	subtitlePath string
	duration     float64
	combined     string
	final        string
}

// GenerateVideo runs the full pipeline for one task. onRetry, when non-nil,
// is invoked before each re-attempt so the caller can surface retry status.
// Returns the final video path.
func (o *Orchestrator) GenerateVideo(ctx context.Context, taskID, moral string, searchTerms []string, onRetry func(attempt int)) (string, error) {
	moral = strings.TrimSpace(moral)
	if moral == "" {
		return "", ErrEmptyMoral
	}

	workDir := filepath.Join(o.opts.OutputDir, taskID)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create work dir: %w", err)
	}

	var lastErr error
	for n := 1; n <= maxAttempts; n++ {
		log.Printf("[Pipeline] Task %s attempt %d/%d", taskID, n, maxAttempts)

		finalPath, err := o.runAttempt(ctx, moral, searchTerms, workDir)
		if err == nil {
			log.Printf("[Pipeline] Task %s completed: %s", taskID, finalPath)
			o.notifySuccess(ctx, taskID, finalPath)
			if o.opts.CleanupOnSuccess {
				o.cleanupIntermediates(workDir)
			}
			return finalPath, nil
		}

		lastErr = err
		log.Printf("[Pipeline] Task %s attempt %d failed: %v", taskID, n, err)

		if n < maxAttempts && onRetry != nil {
			onRetry(n)
		}
	}

	log.Printf("[Pipeline] Task %s failed after %d attempts", taskID, maxAttempts)
	if o.opts.CleanupOnFailure {
		os.RemoveAll(workDir)
	}
	return "", fmt.Errorf("%w: %w", ErrAttemptsExhausted, lastErr)
}

func (o *Orchestrator) runAttempt(ctx context.Context, moral string, suppliedTerms []string, workDir string) (string, error) {
	a := &attempt{}

	// STORY (translation included, so a transient translate failure is
	// retried with the rest of the attempt)
	if o.vietnamese() {
		translated, err := o.text.Translate(ctx, moral)
		if err != nil {
			return "", stageErr(StageStory, err)
		}
		moral = translated
	}

	story, err := o.text.GenerateStory(ctx, moral, "")
	if err != nil {
		return "", stageErr(StageStory, err)
	}
	a.story = story

	// TERMS, skipped when the submission already carries them.
	a.terms = suppliedTerms
	if len(a.terms) == 0 {
		terms, err := o.text.GenerateTerms(ctx, a.story, 5)
		if err != nil {
			return "", stageErr(StageTerms, err)
		}
		a.terms = terms
	}

	// IMAGES: one image per term; terms with no results just contribute
	// nothing.
	imagesDir := filepath.Join(workDir, "images")
	for _, term := range a.terms {
		paths, err := o.images.Search(ctx, term, imagesDir, 1)
		if err != nil {
			log.Printf("[Pipeline] Image search for %q failed: %v", term, err)
			continue
		}
		a.images = append(a.images, paths...)
	}
	if len(a.images) == 0 {
		return "", stageErr(StageImages, fmt.Errorf("no images found for any search term"))
	}

	// RENDER: narration first, so clip durations can be sized to it.
	a.audioPath = filepath.Join(workDir, "audio.mp3")
	speech, err := o.speech.Synthesize(ctx, moral+"\n"+a.story, o.voiceName(), o.opts.VoiceRate, a.audioPath)
	if err != nil {
		return "", stageErr(StageRender, err)
	}
	a.subtitlePath = speech.SubtitlePath
	a.duration = speech.Duration

	perImage := PerImageDuration(a.duration, len(a.images))

	clipsDir := filepath.Join(workDir, "videos")
	if err := os.MkdirAll(clipsDir, 0755); err != nil {
		return "", stageErr(StageRender, fmt.Errorf("failed to create clips dir: %w", err))
	}
	for _, imagePath := range a.images {
		clipPath := filepath.Join(clipsDir, fmt.Sprintf("video-%s.mp4", filepath.Base(imagePath)))
		if err := o.renderer.Render(ctx, imagePath, clipPath, perImage); err != nil {
			log.Printf("[Pipeline] Dropping image %s: %v", imagePath, err)
			continue
		}
		a.clips = append(a.clips, clipPath)
	}
	if len(a.clips) == 0 {
		return "", stageErr(StageRender, fmt.Errorf("no clips rendered from %d image(s)", len(a.images)))
	}

	// ASSEMBLE
	combined, err := o.combiner.Combine(ctx, a.clips, a.audioPath, filepath.Join(workDir, "video.mp4"), perImage)
	if err != nil {
		return "", stageErr(StageAssemble, err)
	}
	a.combined = combined

	// FINALIZE
	a.final = filepath.Join(workDir, "video-final.mp4")
	if err := o.muxer.Mux(ctx, a.combined, a.audioPath, a.subtitlePath, a.final, models.DefaultVideoParams()); err != nil {
		return "", stageErr(StageFinalize, err)
	}

	return a.final, nil
}

func (o *Orchestrator) notifySuccess(ctx context.Context, taskID, finalPath string) {
	if o.notifier == nil {
		return
	}
	o.notifier.SendText(ctx, fmt.Sprintf("Task %s completed!", taskID))
	o.notifier.SendVideo(ctx, finalPath, taskID)
}

// cleanupIntermediates removes per-attempt scratch files, keeping the final
// video and its narration/subtitles for the download endpoint.
func (o *Orchestrator) cleanupIntermediates(workDir string) {
	os.RemoveAll(filepath.Join(workDir, "images"))
	os.RemoveAll(filepath.Join(workDir, "videos"))
	os.Remove(filepath.Join(workDir, "video.mp4"))
}
