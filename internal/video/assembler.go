package video

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// ---------------------------------------------------------------------------
// Assembler joins per-image clips into one visual track sized to the
// narration: clips are trimmed to their allotted duration, concatenated, and
// the result is looped or cut so it ends exactly when the narration does.
// ---------------------------------------------------------------------------

// AssemblyError marks a combination failure that invalidates the whole
// attempt (as opposed to a single dropped clip).
type AssemblyError struct {
	Op  string
	Err error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assembly failed (%s): %v", e.Op, e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }

type Assembler struct{}

func NewAssembler() *Assembler {
	return &Assembler{}
}

// Combine trims each clip to maxClipDuration, concatenates them, and pairs
// the result with the narration audio. The visual track loops if it runs
// short and is cut when the narration ends. Returns outputPath.
func (a *Assembler) Combine(ctx context.Context, clips []string, audioPath, outputPath string, maxClipDuration float64) (string, error) {
	if len(clips) == 0 {
		return "", &AssemblyError{Op: "validate", Err: fmt.Errorf("no clips to combine")}
	}
	for _, clip := range clips {
		if _, err := os.Stat(clip); err != nil {
			return "", &AssemblyError{Op: "validate", Err: fmt.Errorf("clip unreadable: %w", err)}
		}
	}
	if _, err := os.Stat(audioPath); err != nil {
		return "", &AssemblyError{Op: "validate", Err: fmt.Errorf("narration unreadable: %w", err)}
	}

	workDir := filepath.Dir(outputPath)

	log.Printf("[Assembler] Combining %d clip(s) (maxClipDuration=%.2fs)", len(clips), maxClipDuration)

	trimmed := make([]string, 0, len(clips))
	for i, clip := range clips {
		dest := filepath.Join(workDir, fmt.Sprintf("trimmed-%d.mp4", i))
		args := []string{
			"-y",
			"-i", clip,
			"-t", fmt.Sprintf("%.3f", maxClipDuration),
			"-c", "copy",
			dest,
		}
		if err := runFFmpeg(ctx, args...); err != nil {
			return "", &AssemblyError{Op: "trim", Err: err}
		}
		trimmed = append(trimmed, dest)
	}
	defer func() {
		for _, path := range trimmed {
			os.Remove(path)
		}
	}()

	listPath := filepath.Join(workDir, "concat_list.txt")
	f, err := os.Create(listPath)
	if err != nil {
		return "", &AssemblyError{Op: "concat", Err: fmt.Errorf("failed to create concat list: %w", err)}
	}
	for _, path := range trimmed {
		fmt.Fprintf(f, "file '%s'\n", path)
	}
	f.Close()
	defer os.Remove(listPath)

	concatPath := filepath.Join(workDir, "concat.mp4")
	defer os.Remove(concatPath)

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		concatPath,
	}
	if err := runFFmpeg(ctx, args...); err != nil {
		return "", &AssemblyError{Op: "concat", Err: err}
	}

	// Loop the visuals so short footage still covers the whole narration;
	// -shortest cuts at whichever stream ends first, which is the audio.
	args = []string{
		"-y",
		"-stream_loop", "-1",
		"-i", concatPath,
		"-i", audioPath,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		outputPath,
	}
	if err := runFFmpeg(ctx, args...); err != nil {
		return "", &AssemblyError{Op: "mux", Err: err}
	}

	log.Printf("[Assembler] Combined video saved as %s", outputPath)
	return outputPath, nil
}
