package video

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/duynm98/daily-story/internal/models"
)

// ---------------------------------------------------------------------------
// Compositor produces the final deliverable: the combined visual track, the
// narration audio, and the subtitle file burned in with the configured style.
// ---------------------------------------------------------------------------

type Compositor struct{}

func NewCompositor() *Compositor {
	return &Compositor{}
}

// Mux writes the final video to outputPath. Subtitles are burned in when
// enabled and the subtitle file exists; a missing subtitle file downgrades
// to a plain mux rather than failing the task.
func (c *Compositor) Mux(ctx context.Context, videoPath, audioPath, subtitlePath, outputPath string, params models.VideoParams) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
	}

	burnSubtitles := params.SubtitleEnabled && subtitlePath != ""
	if burnSubtitles {
		if _, err := os.Stat(subtitlePath); err != nil {
			log.Printf("[Compositor] Subtitle file missing at %s, muxing without subtitles", subtitlePath)
			burnSubtitles = false
		}
	}

	if burnSubtitles {
		vf := fmt.Sprintf("subtitles='%s':force_style='%s'",
			escapeFilterPath(subtitlePath), forceStyle(params))
		args = append(args, "-vf", vf)
		log.Printf("[Compositor] Burning in subtitles from %s", subtitlePath)
	}

	args = append(args,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "libx264",
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-shortest",
		outputPath,
	)

	if err := runFFmpeg(ctx, args...); err != nil {
		return fmt.Errorf("final mux failed: %w", err)
	}

	log.Printf("[Compositor] Final video saved as %s", outputPath)
	return nil
}

// forceStyle renders the subtitle styling as an ASS force_style string.
// MarginV converts the position percentage (measured from the top) into a
// bottom margin against libass's default 288-line play resolution.
func forceStyle(params models.VideoParams) string {
	marginV := 288 * (100 - params.SubtitlePosition) / 100

	return fmt.Sprintf(
		"FontSize=%d,PrimaryColour=%s,OutlineColour=%s,Outline=%.1f,Alignment=2,MarginV=%d",
		params.FontSize,
		params.FontColor,
		params.StrokeColor,
		params.StrokeWidth,
		marginV,
	)
}
