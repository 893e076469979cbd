package analyzer

import (
	"image"

	"go-smear-analyzer/pkg/models"
)

// SmearAnalyzer runs blood smear image analysis. Stage methods expose the
// individual pipeline steps; AnalyzeComplete runs the whole pipeline and
// assembles a report.
type SmearAnalyzer interface {
	Validate(data []byte, filename string) models.ValidationVerdict
	AnalyzeColor(img image.Image) models.ColorAnalysisResult
	ExtractDominantColors(img image.Image, seed int64) models.DominantColorResult
	ScoreDiseaseColors(img image.Image) models.DiseaseScoreResult
	AssessStaining(img image.Image) models.StainingQuality
	CountCells(img image.Image, boxes []models.DetectionBox, calib models.Calibration) models.CellConcentrationResult
	AnalyzeComplete(data []byte, filename string, opts AnalysisOptions) (*models.AnalysisReport, error)
	Close()
}

// ColorSpaceAnalyzer computes per-channel statistics in RGB, HSV and Lab.
type ColorSpaceAnalyzer interface {
	Analyze(f *frame) models.ColorAnalysisResult
}

// DominantColorExtractor clusters sampled pixels into dominant colors.
type DominantColorExtractor interface {
	Extract(f *frame, seed int64) models.DominantColorResult
}

// DiseaseSignatureScorer scores the image against per-disease color bands.
type DiseaseSignatureScorer interface {
	Score(f *frame) models.DiseaseScoreResult
}

// StainingAssessor grades staining quality from contrast, stain separation
// and background cleanliness.
type StainingAssessor interface {
	Assess(f *frame) models.StainingQuality
}

// CellCounter turns detection boxes into calibrated cell concentrations.
type CellCounter interface {
	Count(width, height int, boxes []models.DetectionBox, calib models.Calibration) models.CellConcentrationResult
}
