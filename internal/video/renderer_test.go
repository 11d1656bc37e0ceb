package video

import (
	"image"
	"image/color"
	"testing"
)

func TestFrameCount(t *testing.T) {
	tests := []struct {
		duration float64
		want     int
	}{
		{5.0, 125},
		{1.0, 25},
		{0.04, 1},
		{2.5, 63},
		{3.33, 84},
	}

	for _, tt := range tests {
		if got := frameCount(tt.duration); got != tt.want {
			t.Errorf("frameCount(%v) = %d, want %d", tt.duration, got, tt.want)
		}
	}
}

func TestPlanPanCoversTarget(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{"portrait photo", 2000, 4000},
		{"landscape photo", 4000, 2000},
		{"square photo", 3000, 3000},
		{"exact target", 1080, 1920},
		{"tiny image", 100, 200},
		{"truncation prone", 1081, 1921},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := planPan(tt.w, tt.h)
			if plan.scaledW < TargetWidth || plan.scaledH < TargetHeight {
				t.Errorf("scaled %dx%d does not cover %dx%d", plan.scaledW, plan.scaledH, TargetWidth, TargetHeight)
			}
			if plan.travel < 0 || plan.travel > maxPanTravel {
				t.Errorf("travel %d out of range [0, %d]", plan.travel, maxPanTravel)
			}
			if plan.startX < 0 || plan.startY != 0 {
				t.Errorf("start (%d, %d) invalid", plan.startX, plan.startY)
			}
		})
	}
}

func TestPlanPanTravelCapped(t *testing.T) {
	// A very wide image leaves far more than maxPanTravel of slack.
	plan := planPan(10000, 2000)
	if plan.travel != maxPanTravel {
		t.Errorf("travel = %d, want capped at %d", plan.travel, maxPanTravel)
	}
}

func TestPlanPanExactFit(t *testing.T) {
	plan := planPan(1080, 1920)
	if plan.travel != 0 {
		t.Errorf("travel = %d, want 0 for exact-fit image", plan.travel)
	}
	if plan.startX != 0 {
		t.Errorf("startX = %d, want 0 for exact-fit image", plan.startX)
	}

	x, y := frameOrigin(plan, 0, 125)
	if x != 0 || y != 0 {
		t.Errorf("frame 0 origin = (%d, %d), want (0, 0)", x, y)
	}
}

func TestFrameOriginBounds(t *testing.T) {
	shapes := []struct{ w, h int }{
		{2000, 4000},
		{4000, 2000},
		{3000, 3000},
		{1080, 1920},
		{1200, 1920},
	}

	for _, s := range shapes {
		plan := planPan(s.w, s.h)
		numFrames := frameCount(5.0)
		for i := 0; i < numFrames; i++ {
			x, y := frameOrigin(plan, i, numFrames)
			if x < 0 || x+TargetWidth > plan.scaledW {
				t.Fatalf("image %dx%d frame %d: x=%d leaves crop outside scaled width %d", s.w, s.h, i, x, plan.scaledW)
			}
			if y < 0 || y+TargetHeight > plan.scaledH {
				t.Fatalf("image %dx%d frame %d: y=%d leaves crop outside scaled height %d", s.w, s.h, i, y, plan.scaledH)
			}
		}
	}
}

func TestFrameOriginStartsAtPlanOrigin(t *testing.T) {
	plan := planPan(2000, 4000)
	x, y := frameOrigin(plan, 0, 125)
	if x != plan.startX || y != plan.startY {
		t.Errorf("frame 0 origin = (%d, %d), want (%d, %d)", x, y, plan.startX, plan.startY)
	}
}

func TestDarkenScalesColorChannelsOnly(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	img.SetRGBA(1, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	darken(img, 0.6)

	got := img.RGBAAt(0, 0)
	if got.R != 120 || got.G != 60 || got.B != 30 {
		t.Errorf("pixel 0 = %+v, want R=120 G=60 B=30", got)
	}
	if got.A != 255 {
		t.Errorf("alpha changed to %d, want 255", got.A)
	}

	got = img.RGBAAt(1, 0)
	if got.R != 153 || got.G != 153 || got.B != 153 {
		t.Errorf("pixel 1 = %+v, want R=G=B=153", got)
	}
}

func TestFrameOriginMonotonic(t *testing.T) {
	plan := planPan(2000, 4000)
	numFrames := 125

	prevX, prevY := frameOrigin(plan, 0, numFrames)
	for i := 1; i < numFrames; i++ {
		x, y := frameOrigin(plan, i, numFrames)
		if x < prevX || y < prevY {
			t.Fatalf("pan moved backwards at frame %d: (%d,%d) after (%d,%d)", i, x, y, prevX, prevY)
		}
		prevX, prevY = x, y
	}
}
