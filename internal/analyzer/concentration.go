package analyzer

import (
	"math"
	"strings"
	"time"

	"go-smear-analyzer/pkg/models"
)

const (
	// minDetectionConfidence filters detector noise before counting.
	minDetectionConfidence = 0.5
	areaEpsilon            = 1e-9

	wbcRatioLow  = 0.01
	wbcRatioHigh = 0.10
)

// cellConcentrationCalculator converts externally supplied detection boxes
// into calibrated per-type cell concentrations.
type cellConcentrationCalculator struct{}

// NewCellConcentrationCalculator creates a concentration calculator.
func NewCellConcentrationCalculator() CellCounter {
	return &cellConcentrationCalculator{}
}

func (c *cellConcentrationCalculator) Count(width, height int, boxes []models.DetectionBox, calib models.Calibration) models.CellConcentrationResult {
	start := time.Now()

	fieldAreaMm2 := float64(width) * calib.PixelSizeUm * float64(height) * calib.PixelSizeUm / 1e6

	counts := map[models.CellType]int{}
	diameterSums := map[models.CellType]float64{}

	for _, box := range boxes {
		if box.Confidence < minDetectionConfidence {
			continue
		}
		cellType, ok := classifyCellType(box.Class)
		if !ok {
			continue
		}
		counts[cellType]++
		diameterSums[cellType] += float64(box.Width+box.Height) / 2 * calib.PixelSizeUm
	}

	result := models.CellConcentrationResult{
		FieldAreaMm2: fieldAreaMm2,
	}
	result.RBC = c.typeCount(models.CellRBC, counts, diameterSums, fieldAreaMm2, calib)
	result.WBC = c.typeCount(models.CellWBC, counts, diameterSums, fieldAreaMm2, calib)
	result.Platelet = c.typeCount(models.CellPlatelet, counts, diameterSums, fieldAreaMm2, calib)
	result.TotalCells = result.RBC.Count + result.WBC.Count + result.Platelet.Count
	result.DetectionConfidence = detectionConfidence(result.TotalCells, result.WBC.Count, result.RBC.Count)
	result.ProcessingTimeSec = time.Since(start).Seconds()
	return result
}

func (c *cellConcentrationCalculator) typeCount(t models.CellType, counts map[models.CellType]int, diameterSums map[models.CellType]float64, fieldAreaMm2 float64, calib models.Calibration) models.CellTypeCount {
	count := counts[t]
	tc := models.CellTypeCount{Count: count}
	if count == 0 {
		return tc
	}

	tc.MeanDiameterUm = diameterSums[t] / float64(count)
	tc.ConcentrationPerUl = float64(count) / math.Max(fieldAreaMm2, areaEpsilon) *
		calib.DilutionFactor * 1000 * calib.DepthCor

	ref := referenceDiameters[t]
	tc.SizeDeviationPct = (tc.MeanDiameterUm - ref) / ref * 100
	return tc
}

// detectionConfidence scores how trustworthy the counts are: it saturates at
// 100 detected cells and is nudged up when the WBC/RBC ratio is physiological
// and down otherwise.
func detectionConfidence(totalCells, wbcCount, rbcCount int) float64 {
	confidence := math.Min(math.Max(float64(totalCells), 0), 100)

	physiological := false
	if rbcCount > 0 {
		ratio := float64(wbcCount) / float64(rbcCount)
		physiological = ratio >= wbcRatioLow && ratio <= wbcRatioHigh
	}
	if physiological {
		confidence *= 1.1
	} else {
		confidence *= 0.9
	}
	return math.Min(confidence, 100)
}

// classifyCellType folds a detector class identifier into one of the three
// counted populations. WBC subtype labels from the differential count all
// map to WBC. Unknown classes are not counted.
func classifyCellType(class string) (models.CellType, bool) {
	switch normalized := strings.ToLower(strings.TrimSpace(class)); normalized {
	case "rbc", "red blood cell", "red_blood_cell", "erythrocyte":
		return models.CellRBC, true
	case "wbc", "white blood cell", "white_blood_cell", "leukocyte",
		"neutrophil", "neutrophils",
		"lymphocyte", "lymphocytes",
		"monocyte", "monocytes",
		"eosinophil", "eosinophils",
		"basophil", "basophils":
		return models.CellWBC, true
	case "platelet", "platelets", "plt", "thrombocyte":
		return models.CellPlatelet, true
	default:
		return "", false
	}
}
