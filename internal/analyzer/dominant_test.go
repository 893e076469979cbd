package analyzer

import (
	"image/color"
	"math"
	"reflect"
	"testing"
)

func TestDominantColorExtractor_PercentagesSumTo100(t *testing.T) {
	e := NewDominantColorExtractor()
	result := e.Extract(newFrame(createSmearImage(200, 200)), 42)

	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if len(result.Colors) == 0 {
		t.Fatal("expected at least one cluster")
	}

	sum := 0.0
	for _, c := range result.Colors {
		if c.Percentage < 0 {
			t.Errorf("expected non-negative percentage, got %f", c.Percentage)
		}
		sum += c.Percentage
	}
	if math.Abs(sum-100) > 0.5 {
		t.Errorf("expected percentages to sum to 100 +/- 0.5, got %f", sum)
	}
}

func TestDominantColorExtractor_Deterministic(t *testing.T) {
	e := NewDominantColorExtractor()
	f := newFrame(createSmearImage(150, 150))

	first := e.Extract(f, 7)
	second := e.Extract(f, 7)

	if !reflect.DeepEqual(first, second) {
		t.Error("expected identical results for identical input and seed")
	}
}

func TestDominantColorExtractor_SortedByPercentage(t *testing.T) {
	e := NewDominantColorExtractor()
	result := e.Extract(newFrame(createSmearImage(120, 120)), 1)

	for i := 1; i < len(result.Colors); i++ {
		if result.Colors[i].Percentage > result.Colors[i-1].Percentage {
			t.Errorf("expected descending percentages, got %f before %f",
				result.Colors[i-1].Percentage, result.Colors[i].Percentage)
		}
	}
}

func TestDominantColorExtractor_SolidColor(t *testing.T) {
	e := NewDominantColorExtractor()
	result := e.Extract(newFrame(createTestImage(64, 64, color.RGBA{200, 30, 30, 255})), 3)

	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}

	top := result.Colors[0]
	if top.R != 200 || top.G != 30 || top.B != 30 {
		t.Errorf("expected dominant color (200, 30, 30), got (%d, %d, %d)", top.R, top.G, top.B)
	}
	if top.Hex != "#c81e1e" {
		t.Errorf("expected hex #c81e1e, got %s", top.Hex)
	}
	if top.Name != "Red" {
		t.Errorf("expected name Red, got %s", top.Name)
	}
}

func TestCoarseColorName(t *testing.T) {
	tests := []struct {
		r, g, b int
		name    string
	}{
		{255, 0, 0, "Red"},
		{255, 255, 255, "White"},
		{0, 0, 255, "Blue"},
		{150, 50, 200, "Purple"},
		{255, 140, 50, "Orange"},
		{255, 255, 50, "Yellow"},
		{50, 200, 50, "Green"},
		{230, 150, 180, "Pink"},
		{128, 128, 128, "Mixed"},
	}

	for _, tt := range tests {
		if got := coarseColorName(tt.r, tt.g, tt.b); got != tt.name {
			t.Errorf("coarseColorName(%d, %d, %d): expected %s, got %s",
				tt.r, tt.g, tt.b, tt.name, got)
		}
	}
}
