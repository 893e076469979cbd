package analyzer

import (
	"image"
	"image/color"
	"math"
	"testing"
)

// createTestImage creates a solid-color test image
func createTestImage(width, height int, fillColor color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fillColor)
		}
	}
	return img
}

// createGradientImage creates a gradient test image
func createGradientImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			intensity := uint8((x + y) * 255 / (width + height))
			img.Set(x, y, color.RGBA{intensity, intensity, intensity, 255})
		}
	}
	return img
}

// createSmearImage fills an image with a stained-smear-like color mix: red
// cells on the left, purple nuclei on the right.
func createSmearImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < width/2 {
				img.Set(x, y, color.RGBA{180, 80, 80, 255})
			} else {
				img.Set(x, y, color.RGBA{130, 60, 160, 255})
			}
		}
	}
	return img
}

func TestColorSpaceAnalyzer_ChannelInvariants(t *testing.T) {
	a := NewColorSpaceAnalyzer()
	result := a.Analyze(newFrame(createGradientImage(64, 64)))

	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}

	channels := map[string]struct {
		mean, std, median, min, max float64
	}{
		"R": {result.RGB.R.Mean, result.RGB.R.Std, result.RGB.R.Median, result.RGB.R.Min, result.RGB.R.Max},
		"G": {result.RGB.G.Mean, result.RGB.G.Std, result.RGB.G.Median, result.RGB.G.Min, result.RGB.G.Max},
		"B": {result.RGB.B.Mean, result.RGB.B.Std, result.RGB.B.Median, result.RGB.B.Min, result.RGB.B.Max},
		"H": {result.HSV.H.Mean, result.HSV.H.Std, result.HSV.H.Median, result.HSV.H.Min, result.HSV.H.Max},
		"S": {result.HSV.S.Mean, result.HSV.S.Std, result.HSV.S.Median, result.HSV.S.Min, result.HSV.S.Max},
		"V": {result.HSV.V.Mean, result.HSV.V.Std, result.HSV.V.Median, result.HSV.V.Min, result.HSV.V.Max},
	}
	for name, ch := range channels {
		if ch.std < 0 {
			t.Errorf("channel %s: expected std >= 0, got %f", name, ch.std)
		}
		if ch.min > ch.median || ch.median > ch.max {
			t.Errorf("channel %s: expected min <= median <= max, got %f / %f / %f",
				name, ch.min, ch.median, ch.max)
		}
	}
}

func TestColorSpaceAnalyzer_GrayGradient(t *testing.T) {
	a := NewColorSpaceAnalyzer()
	result := a.Analyze(newFrame(createGradientImage(64, 64)))

	// Gray pixels have identical channels, so the ratios are exactly 1.
	if math.Abs(result.RGB.RatioRG-1) > 1e-9 {
		t.Errorf("expected R/G ratio 1 for gray image, got %f", result.RGB.RatioRG)
	}
	// Gray pixels carry no saturation and no blood hue.
	if result.HSV.S.Max != 0 {
		t.Errorf("expected zero saturation for gray image, got max %f", result.HSV.S.Max)
	}
	if result.HSV.BloodHuePct != 0 {
		t.Errorf("expected zero blood hue for gray image, got %f", result.HSV.BloodHuePct)
	}
}

func TestColorSpaceAnalyzer_BloodHueBands(t *testing.T) {
	a := NewColorSpaceAnalyzer()
	result := a.Analyze(newFrame(createSmearImage(64, 64)))

	if result.HSV.RedPct <= 0 {
		t.Errorf("expected positive red band percentage, got %f", result.HSV.RedPct)
	}
	if result.HSV.PurplePct <= 0 {
		t.Errorf("expected positive purple band percentage, got %f", result.HSV.PurplePct)
	}
	expected := result.HSV.RedPct + result.HSV.PurplePct
	if math.Abs(result.HSV.BloodHuePct-expected) > 1e-9 {
		t.Errorf("expected blood hue %f, got %f", expected, result.HSV.BloodHuePct)
	}
}

func TestColorSpaceAnalyzer_EmptyImage(t *testing.T) {
	a := NewColorSpaceAnalyzer()
	result := a.Analyze(newFrame(image.NewRGBA(image.Rect(0, 0, 0, 0))))

	if result.Error == "" {
		t.Error("expected error for empty image")
	}
}

func TestRGBToHSV_KnownColors(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		h, s, v float64
	}{
		{"red", 255, 0, 0, 0, 255, 255},
		{"green", 0, 255, 0, 60, 255, 255},
		{"blue", 0, 0, 255, 120, 255, 255},
		{"white", 255, 255, 255, 0, 0, 255},
		{"black", 0, 0, 0, 0, 0, 0},
	}

	for _, tt := range tests {
		h, s, v := rgbToHSV(tt.r, tt.g, tt.b)
		if math.Abs(h-tt.h) > 1e-9 || math.Abs(s-tt.s) > 1e-9 || math.Abs(v-tt.v) > 1e-9 {
			t.Errorf("%s: expected HSV (%f, %f, %f), got (%f, %f, %f)",
				tt.name, tt.h, tt.s, tt.v, h, s, v)
		}
	}
}

func TestRGBToLab_WhiteAndBlack(t *testing.T) {
	l, la, lb := rgbToLab(255, 255, 255)
	if math.Abs(l-255) > 1 {
		t.Errorf("expected lightness near 255 for white, got %f", l)
	}
	if math.Abs(la) > 1 || math.Abs(lb) > 1 {
		t.Errorf("expected near-zero chroma for white, got a=%f b=%f", la, lb)
	}

	l, _, _ = rgbToLab(0, 0, 0)
	if math.Abs(l) > 1e-6 {
		t.Errorf("expected zero lightness for black, got %f", l)
	}
}
