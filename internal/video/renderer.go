package video

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"math"
	"os"
	"os/exec"

	xdraw "golang.org/x/image/draw"
)

// ---------------------------------------------------------------------------
// Renderer turns a still image into a short panning clip. The image is
// darkened, scaled to cover the frame, and cropped along a diagonal path so
// the still reads as slow camera motion.
// ---------------------------------------------------------------------------

const (
	// TargetWidth and TargetHeight are the output resolution of every clip.
	TargetWidth  = 1080
	TargetHeight = 1920

	// FPS is the frame rate of every rendered clip.
	FPS = 25

	// maxPanTravel caps how far the crop window slides across the scaled
	// image, so oversized source photos do not pan uncomfortably fast.
	maxPanTravel = 720

	darkenFactor = 0.6

	renderAttempts = 3
)

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// panPlan describes the crop geometry for one source image: the scaled
// dimensions, how far the window travels, and where it starts.
type panPlan struct {
	scaledW int
	scaledH int
	travel  int
	startX  int
	startY  int
}

// planPan computes the cover-scale dimensions and pan geometry for a source
// image. The scaled image always covers the full target frame.
func planPan(imgW, imgH int) panPlan {
	scale := math.Max(float64(TargetWidth)/float64(imgW), float64(TargetHeight)/float64(imgH))
	scaledW := int(float64(imgW) * scale)
	scaledH := int(float64(imgH) * scale)

	// Float truncation can land one pixel short of the frame.
	if scaledW < TargetWidth {
		scaledW = TargetWidth
	}
	if scaledH < TargetHeight {
		scaledH = TargetHeight
	}

	travel := scaledW - TargetWidth
	if scaledH-TargetHeight > travel {
		travel = scaledH - TargetHeight
	}
	if travel > maxPanTravel {
		travel = maxPanTravel
	}

	startX := (scaledW-TargetWidth-travel)/2 - 1
	if startX < 0 {
		startX = 0
	}

	return panPlan{
		scaledW: scaledW,
		scaledH: scaledH,
		travel:  travel,
		startX:  startX,
		startY:  0,
	}
}

// frameOrigin returns the top-left corner of the crop window for frame i of
// numFrames, clamped so the window never leaves the scaled image.
func frameOrigin(p panPlan, i, numFrames int) (x, y int) {
	offset := p.travel * i / numFrames

	x = clamp(p.startX+offset, 0, p.scaledW-TargetWidth)
	y = clamp(p.startY+offset, 0, p.scaledH-TargetHeight)
	return x, y
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// frameCount returns the number of frames needed for a clip of the given
// duration, rounding up so the clip never comes out short.
func frameCount(duration float64) int {
	return int(math.Ceil(FPS * duration))
}

// Render converts the image at imagePath into an MP4 clip of the given
// duration at outputPath. Transient failures are retried a few times before
// the error is returned.
func (r *Renderer) Render(ctx context.Context, imagePath, outputPath string, duration float64) error {
	var lastErr error
	for attempt := 1; attempt <= renderAttempts; attempt++ {
		if err := r.renderOnce(ctx, imagePath, outputPath, duration); err != nil {
			lastErr = err
			log.Printf("[Renderer] Attempt %d/%d failed for %s: %v", attempt, renderAttempts, imagePath, err)
			continue
		}
		return nil
	}
	return fmt.Errorf("failed to render %s after %d attempts: %w", imagePath, renderAttempts, lastErr)
}

func (r *Renderer) renderOnce(ctx context.Context, imagePath, outputPath string, duration float64) error {
	f, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	src, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	imgW, imgH := bounds.Dx(), bounds.Dy()
	if imgW <= 0 || imgH <= 0 {
		return fmt.Errorf("image has empty bounds")
	}

	if float64(imgW)/float64(imgH) < 9.0/16.0 {
		log.Printf("[Renderer] Image size %dx%d may cause the video to look unusual", imgW, imgH)
	}

	plan := planPan(imgW, imgH)

	// Darken at source resolution, then scale.
	darkened := image.NewRGBA(bounds)
	xdraw.Copy(darkened, bounds.Min, src, bounds, xdraw.Src, nil)
	darken(darkened, darkenFactor)

	scaled := image.NewRGBA(image.Rect(0, 0, plan.scaledW, plan.scaledH))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), darkened, bounds, xdraw.Src, nil)

	numFrames := frameCount(duration)

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", TargetWidth, TargetHeight),
		"-framerate", fmt.Sprintf("%d", FPS),
		"-i", "-",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open ffmpeg stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	writeErr := writeFrames(stdin, scaled, plan, numFrames)
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg encode failed: %w", err)
	}
	if writeErr != nil {
		return fmt.Errorf("failed to stream frames: %w", writeErr)
	}

	log.Printf("[Renderer] Clip saved as %s (%d frames)", outputPath, numFrames)
	return nil
}

// writeFrames streams each crop of the scaled image as a raw RGBA frame,
// row by row, in pan order.
func writeFrames(w io.Writer, scaled *image.RGBA, plan panPlan, numFrames int) error {
	for i := 0; i < numFrames; i++ {
		x, y := frameOrigin(plan, i, numFrames)
		for row := 0; row < TargetHeight; row++ {
			off := scaled.PixOffset(x, y+row)
			if _, err := w.Write(scaled.Pix[off : off+TargetWidth*4]); err != nil {
				return err
			}
		}
	}
	return nil
}

// darken scales every color channel in place, leaving alpha untouched.
// Rounded to nearest so 0.6's binary representation does not pull every
// channel one shade low.
func darken(img *image.RGBA, factor float64) {
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(math.Round(float64(img.Pix[i]) * factor))
		img.Pix[i+1] = uint8(math.Round(float64(img.Pix[i+1]) * factor))
		img.Pix[i+2] = uint8(math.Round(float64(img.Pix[i+2]) * factor))
	}
}
