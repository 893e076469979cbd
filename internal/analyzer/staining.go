package analyzer

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"go-smear-analyzer/pkg/models"
)

const (
	backgroundValueMin  = 220
	separationEpsilon   = 1e-6
	contrastNormalizer  = 128.0
	contrastWeight      = 0.4
	separationWeight    = 0.3
	backgroundWeight    = 0.3
)

// stainingAssessor grades the staining of a smear from lightness contrast,
// red/purple hue separation and background clarity.
type stainingAssessor struct{}

// NewStainingAssessor creates a staining quality assessor.
func NewStainingAssessor() StainingAssessor {
	return &stainingAssessor{}
}

func (sa *stainingAssessor) Assess(f *frame) models.StainingQuality {
	n := f.pixelCount()
	if n == 0 {
		return models.StainingQuality{Error: "empty image"}
	}

	lightness := make([]float64, n)

	strips, rowsPerStrip := stripCount(f.height)
	redCounts := make([]int, strips)
	purpleCounts := make([]int, strips)
	backgroundCounts := make([]int, strips)

	parallelRows(f.height, func(startY, endY int) {
		strip := startY / rowsPerStrip
		var red, purple, background int
		for i := startY * f.width; i < endY*f.width; i++ {
			r, g, b := f.at(i)

			l, _, _ := rgbToLab(r, g, b)
			lightness[i] = l

			h, s, v := rgbToHSV(r, g, b)
			if (h < redHueLow || h > redHueHigh) && s > redSatMin && v > redValMin {
				red++
			}
			if h > purpleHueLow && h < purpleHueHigh && s > purpleSatMin && v > purpleValMin {
				purple++
			}
			if v > backgroundValueMin {
				background++
			}
		}
		redCounts[strip] = red
		purpleCounts[strip] = purple
		backgroundCounts[strip] = background
	})

	var red, purple, background int
	for i := 0; i < strips; i++ {
		red += redCounts[i]
		purple += purpleCounts[i]
		background += backgroundCounts[i]
	}

	lightnessStd := 0.0
	if n > 1 {
		lightnessStd = stat.StdDev(lightness, nil)
	}

	redPct := float64(red) / float64(n) * 100
	purplePct := float64(purple) / float64(n) * 100
	backgroundPct := float64(background) / float64(n) * 100

	contrast := lightnessStd / contrastNormalizer * 100
	separation := math.Abs(purplePct-redPct) /
		math.Max(purplePct, math.Max(redPct, separationEpsilon)) * 100
	backgroundScore := math.Min(backgroundPct, 100)

	overall := contrastWeight*contrast + separationWeight*separation + backgroundWeight*backgroundScore
	grade, advice := gradeStaining(overall)

	return models.StainingQuality{
		ContrastScore:   contrast,
		SeparationScore: separation,
		BackgroundScore: backgroundScore,
		OverallScore:    overall,
		Grade:           grade,
		Recommendations: advice,
	}
}

// gradeStaining resolves the grade and recommendations for an overall score.
// Brackets are inclusive on their lower bound.
func gradeStaining(score float64) (string, []string) {
	for _, rec := range stainingRecommendations {
		if score >= rec.minScore {
			return rec.grade, rec.advice
		}
	}
	last := stainingRecommendations[len(stainingRecommendations)-1]
	return last.grade, last.advice
}
