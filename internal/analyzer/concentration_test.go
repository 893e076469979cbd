package analyzer

import (
	"math"
	"reflect"
	"testing"

	"go-smear-analyzer/pkg/models"
)

func rbcBoxes(n int, confidence float64) []models.DetectionBox {
	boxes := make([]models.DetectionBox, n)
	for i := range boxes {
		boxes[i] = models.DetectionBox{
			Class:      "RBC",
			Confidence: confidence,
			X:          i * 10,
			Y:          i * 10,
			Width:      75,
			Height:     75,
		}
	}
	return boxes
}

func TestCellConcentration_WorkedExample(t *testing.T) {
	c := NewCellConcentrationCalculator()
	calib := models.Calibration{PixelSizeUm: 0.1, DilutionFactor: 200, DepthCor: 0.1}

	result := c.Count(1000, 1000, rbcBoxes(50, 0.9), calib)

	if math.Abs(result.FieldAreaMm2-0.01) > 1e-12 {
		t.Errorf("expected field area 0.01 mm2, got %f", result.FieldAreaMm2)
	}
	if result.RBC.Count != 50 {
		t.Errorf("expected 50 RBCs, got %d", result.RBC.Count)
	}
	// (50 / 0.01) * 200 * 1000 * 0.1 = 100,000,000 cells/uL
	if math.Abs(result.RBC.ConcentrationPerUl-100000000) > 1e-3 {
		t.Errorf("expected concentration 100000000, got %f", result.RBC.ConcentrationPerUl)
	}
	// 75x75 px boxes at 0.1 um/px have a 7.5 um mean diameter, the RBC reference.
	if math.Abs(result.RBC.MeanDiameterUm-7.5) > 1e-9 {
		t.Errorf("expected mean diameter 7.5 um, got %f", result.RBC.MeanDiameterUm)
	}
	if math.Abs(result.RBC.SizeDeviationPct) > 1e-9 {
		t.Errorf("expected zero size deviation, got %f", result.RBC.SizeDeviationPct)
	}
}

func TestCellConcentration_LowConfidenceFiltered(t *testing.T) {
	c := NewCellConcentrationCalculator()
	result := c.Count(1000, 1000, rbcBoxes(10, 0.4), models.DefaultCalibration())

	if result.TotalCells != 0 {
		t.Errorf("expected low-confidence boxes to be discarded, counted %d", result.TotalCells)
	}
}

func TestCellConcentration_EmptyBoxes(t *testing.T) {
	c := NewCellConcentrationCalculator()
	result := c.Count(1000, 1000, nil, models.DefaultCalibration())

	if result.TotalCells != 0 {
		t.Errorf("expected zero cells, got %d", result.TotalCells)
	}
	if result.RBC.ConcentrationPerUl != 0 || result.WBC.ConcentrationPerUl != 0 || result.Platelet.ConcentrationPerUl != 0 {
		t.Error("expected zero concentrations for empty boxes")
	}
	if result.FieldAreaMm2 <= 0 {
		t.Errorf("expected positive field area, got %f", result.FieldAreaMm2)
	}
}

func TestCellConcentration_Idempotent(t *testing.T) {
	c := NewCellConcentrationCalculator()
	calib := models.DefaultCalibration()
	boxes := rbcBoxes(20, 0.8)

	first := c.Count(800, 600, boxes, calib)
	second := c.Count(800, 600, boxes, calib)

	// Processing time varies between calls; everything else must not.
	first.ProcessingTimeSec = 0
	second.ProcessingTimeSec = 0
	if !reflect.DeepEqual(first, second) {
		t.Error("expected identical results for identical inputs")
	}
}

func TestDetectionConfidence_PhysiologicalRatio(t *testing.T) {
	// 100 RBC + 5 WBC gives a WBC/RBC ratio of 0.05, inside [0.01, 0.10].
	confidence := detectionConfidence(105, 5, 100)
	if confidence != 100 {
		t.Errorf("expected confidence clamped to 100, got %f", confidence)
	}

	// 50 cells with no WBCs gets the 0.9 penalty.
	confidence = detectionConfidence(50, 0, 50)
	if math.Abs(confidence-45) > 1e-9 {
		t.Errorf("expected confidence 45, got %f", confidence)
	}
}

func TestClassifyCellType(t *testing.T) {
	tests := []struct {
		class    string
		cellType models.CellType
		counted  bool
	}{
		{"RBC", models.CellRBC, true},
		{"erythrocyte", models.CellRBC, true},
		{"WBC", models.CellWBC, true},
		{"Neutrophil", models.CellWBC, true},
		{"lymphocyte", models.CellWBC, true},
		{"Monocytes", models.CellWBC, true},
		{"eosinophil", models.CellWBC, true},
		{"Basophils", models.CellWBC, true},
		{"platelet", models.CellPlatelet, true},
		{"PLT", models.CellPlatelet, true},
		{"thrombocyte", models.CellPlatelet, true},
		{"artifact", "", false},
	}

	for _, tt := range tests {
		cellType, ok := classifyCellType(tt.class)
		if ok != tt.counted || cellType != tt.cellType {
			t.Errorf("classifyCellType(%q): expected (%q, %v), got (%q, %v)",
				tt.class, tt.cellType, tt.counted, cellType, ok)
		}
	}
}
