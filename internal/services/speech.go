package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/duynm98/daily-story/internal/video"
)

// ---------------------------------------------------------------------------
// Speech synthesis + subtitle timing via the edge-tts CLI.
// One call produces the narration audio, a time-aligned subtitle file, and
// the audio duration that sizes every visual clip downstream.
// ---------------------------------------------------------------------------

// SpeechResult is the output of one synthesis call.
type SpeechResult struct {
	SubtitlePath string
	Duration     float64 // seconds
}

// SpeechService is the speech/subtitle collaborator the pipeline consumes.
type SpeechService interface {
	Synthesize(ctx context.Context, text, voice string, rate float64, audioPath string) (*SpeechResult, error)
}

type EdgeTTSService struct {
	binary string
}

var _ SpeechService = (*EdgeTTSService)(nil)

func NewEdgeTTSService() *EdgeTTSService {
	return &EdgeTTSService{binary: "edge-tts"}
}

// Synthesize writes narration audio to audioPath and the subtitle file next
// to it, then probes the audio for its exact duration.
func (s *EdgeTTSService) Synthesize(ctx context.Context, text, voice string, rate float64, audioPath string) (*SpeechResult, error) {
	subtitlePath := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".srt"

	args := []string{
		"--voice", voice,
		"--rate", formatRate(rate),
		"--text", text,
		"--write-media", audioPath,
		"--write-subtitles", subtitlePath,
	}

	log.Printf("[Speech] Synthesizing narration (voice=%s, rate=%s, textLen=%d)", voice, formatRate(rate), len(text))

	cmd := exec.CommandContext(ctx, s.binary, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("edge-tts failed: %w", err)
	}

	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("edge-tts produced no audio file: %w", err)
	}

	duration, err := video.ProbeDuration(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to probe narration duration: %w", err)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("narration audio has zero duration")
	}

	log.Printf("[Speech] Narration ready (%.2fs, subtitles at %s)", duration, subtitlePath)

	return &SpeechResult{
		SubtitlePath: subtitlePath,
		Duration:     duration,
	}, nil
}

// formatRate converts a speed multiplier into edge-tts's signed percent
// notation (1.0 → "+0%", 1.1 → "+10%", 0.9 → "-10%"). Rounding, not
// truncation: (0.9-1.0)*100 is not exactly -10 in floating point.
func formatRate(rate float64) string {
	percent := int(math.Round((rate - 1.0) * 100))
	return fmt.Sprintf("%+d%%", percent)
}
