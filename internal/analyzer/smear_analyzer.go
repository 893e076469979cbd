package analyzer

import (
	"fmt"
	"image"
	"math"
	"sort"
	"time"

	apperrors "go-smear-analyzer/internal/errors"
	"go-smear-analyzer/pkg/models"
	"go-smear-analyzer/pkg/validation"
)

// smearAnalyzer implements SmearAnalyzer and orchestrates all pipeline stages.
type smearAnalyzer struct {
	workerPool *WorkerPool
	validator  *validation.SmearValidator
	color      ColorSpaceAnalyzer
	dominant   DominantColorExtractor
	signature  DiseaseSignatureScorer
	staining   StainingAssessor
	cells      CellCounter
}

// NewSmearAnalyzer creates an analyzer with all stages and default limits.
func NewSmearAnalyzer() SmearAnalyzer {
	return NewSmearAnalyzerWithLimits(validation.DefaultValidationLimits())
}

// NewSmearAnalyzerWithLimits creates an analyzer with custom validation limits.
func NewSmearAnalyzerWithLimits(limits validation.ValidationLimits) SmearAnalyzer {
	workerPool := NewWorkerPool(0)
	workerPool.Start()

	return &smearAnalyzer{
		workerPool: workerPool,
		validator:  validation.NewSmearValidatorWithLimits(limits),
		color:      NewColorSpaceAnalyzer(),
		dominant:   NewDominantColorExtractor(),
		signature:  NewDiseaseSignatureScorer(),
		staining:   NewStainingAssessor(),
		cells:      NewCellConcentrationCalculator(),
	}
}

func (sa *smearAnalyzer) Validate(data []byte, filename string) models.ValidationVerdict {
	return sa.validator.Validate(data, filename)
}

func (sa *smearAnalyzer) AnalyzeColor(img image.Image) models.ColorAnalysisResult {
	return sa.color.Analyze(newFrame(img))
}

func (sa *smearAnalyzer) ExtractDominantColors(img image.Image, seed int64) models.DominantColorResult {
	return sa.dominant.Extract(newFrame(img), seed)
}

func (sa *smearAnalyzer) ScoreDiseaseColors(img image.Image) models.DiseaseScoreResult {
	return sa.signature.Score(newFrame(img))
}

func (sa *smearAnalyzer) AssessStaining(img image.Image) models.StainingQuality {
	return sa.staining.Assess(newFrame(img))
}

func (sa *smearAnalyzer) CountCells(img image.Image, boxes []models.DetectionBox, calib models.Calibration) models.CellConcentrationResult {
	bounds := img.Bounds()
	return sa.cells.Count(bounds.Dx(), bounds.Dy(), boxes, calib)
}

// AnalyzeComplete runs validation and every analysis stage, then assembles
// one report. A validation failure is terminal and returned as an error
// alongside a report carrying only the verdict. A non-validator stage
// failure is recorded on that stage's result while the rest of the report
// is still produced.
func (sa *smearAnalyzer) AnalyzeComplete(data []byte, filename string, opts AnalysisOptions) (*models.AnalysisReport, error) {
	start := time.Now()

	report := &models.AnalysisReport{
		Filename:  filename,
		Timestamp: start,
	}

	img, verdict := sa.validator.ValidateDecode(data, filename)
	report.Validation = verdict
	if !verdict.Valid {
		report.ProcessingTimeSec = time.Since(start).Seconds()
		return report, apperrors.NewValidationError(verdict.Reason, nil)
	}

	f := newFrame(img)

	report.ColorAnalysis = sa.color.Analyze(f)

	// The remaining stages are independent of each other and run on the
	// shared pool; a panic in one is captured as that stage's error. The
	// batch scopes completion to this call, so concurrent analyses on the
	// same analyzer never wait on each other's jobs.
	batch := sa.workerPool.NewBatch()
	batch.Submit(func() {
		defer captureStageError(&report.DominantColors.Error, "dominant color extraction")
		report.DominantColors = sa.dominant.Extract(f, opts.Seed)
	})
	batch.Submit(func() {
		defer captureStageError(&report.DiseaseScores.Error, "disease signature scoring")
		report.DiseaseScores = sa.signature.Score(f)
	})
	batch.Submit(func() {
		defer captureStageError(&report.Staining.Error, "staining assessment")
		report.Staining = sa.staining.Assess(f)
	})
	batch.Submit(func() {
		defer captureStageError(&report.Cells.Error, "cell concentration")
		report.Cells = sa.cells.Count(f.width, f.height, opts.Boxes, opts.Calibration)
	})
	batch.Wait()

	report.Classification = mergeClassification(opts.DiseaseProbabilities, opts.CellTypeProbabilities)
	report.ProcessingTimeSec = time.Since(start).Seconds()
	return report, nil
}

// Close releases the analyzer's worker pool.
func (sa *smearAnalyzer) Close() {
	sa.workerPool.Close()
}

// captureStageError converts a stage panic into the stage's error field so
// independent stages keep running.
func captureStageError(dst *string, stage string) {
	if r := recover(); r != nil {
		*dst = apperrors.NewComputationError(fmt.Sprintf("%s failed: %v", stage, r), nil).Error()
	}
}

// mergeClassification folds externally computed classifier probabilities
// into a classification section. The prediction is the disease with the
// highest probability; ties break to the lexicographically smallest label
// so the report stays reproducible.
func mergeClassification(disease, cellType map[string]float64) *models.ClassificationResult {
	if len(disease) == 0 && len(cellType) == 0 {
		return nil
	}

	result := &models.ClassificationResult{
		DiseaseProbabilities:  disease,
		CellTypeProbabilities: cellType,
	}

	if len(disease) > 0 {
		labels := make([]string, 0, len(disease))
		for label := range disease {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		best := labels[0]
		for _, label := range labels[1:] {
			if disease[label] > disease[best] {
				best = label
			}
		}
		result.Prediction = best
		result.Confidence = math.Min(math.Max(disease[best]*100, 0), 100)
		result.Notes = analysisNotes(best)
	}

	return result
}
