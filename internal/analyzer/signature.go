package analyzer

import (
	"math"
	"sort"

	"go-smear-analyzer/pkg/models"
)

// topDiseaseScores is how many ranked diseases the scorer returns.
const topDiseaseScores = 3

// diseaseSignatureScorer matches pixel colors against the fixed disease
// color-signature tables.
type diseaseSignatureScorer struct{}

// NewDiseaseSignatureScorer creates a disease signature scorer.
func NewDiseaseSignatureScorer() DiseaseSignatureScorer {
	return &diseaseSignatureScorer{}
}

func (s *diseaseSignatureScorer) Score(f *frame) models.DiseaseScoreResult {
	n := f.pixelCount()
	if n == 0 {
		return models.DiseaseScoreResult{Error: "empty image"}
	}

	// Flatten the signature bands so one pixel pass covers every disease.
	type bandRef struct {
		disease int
		band    int
	}
	var bands []models.ColorRange
	var refs []bandRef
	for di, sig := range diseaseSignatures {
		for bi, band := range sig.bands {
			bands = append(bands, band)
			refs = append(refs, bandRef{disease: di, band: bi})
		}
	}

	strips, rowsPerStrip := stripCount(f.height)
	counts := make([][]int, strips)
	for i := range counts {
		counts[i] = make([]int, len(bands))
	}

	parallelRows(f.height, func(startY, endY int) {
		strip := startY / rowsPerStrip
		local := counts[strip]
		for i := startY * f.width; i < endY*f.width; i++ {
			r, g, b := f.at(i)
			for bi, band := range bands {
				if band.Contains(r, g, b) {
					local[bi]++
				}
			}
		}
	})

	total := make([]int, len(bands))
	for _, local := range counts {
		for bi, c := range local {
			total[bi] += c
		}
	}

	scores := make([]models.DiseaseScore, len(diseaseSignatures))
	for di, sig := range diseaseSignatures {
		scores[di] = models.DiseaseScore{
			Disease:   sig.disease,
			Breakdown: make(map[string]float64, len(sig.bands)),
		}
	}
	for bi, ref := range refs {
		pct := float64(total[bi]) / float64(n) * 100
		sig := diseaseSignatures[ref.disease]
		scores[ref.disease].Breakdown[sig.bands[ref.band].Name] = pct
		scores[ref.disease].TotalScore += pct
	}
	for i := range scores {
		scores[i].Confidence = math.Min(scores[i].TotalScore*2, 100)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Confidence != scores[j].Confidence {
			return scores[i].Confidence > scores[j].Confidence
		}
		return scores[i].Disease < scores[j].Disease
	})

	top := topDiseaseScores
	if top > len(scores) {
		top = len(scores)
	}
	return models.DiseaseScoreResult{Scores: scores[:top]}
}
