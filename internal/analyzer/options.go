package analyzer

import "go-smear-analyzer/pkg/models"

// AnalysisOptions carries per-request knobs for a full smear analysis.
type AnalysisOptions struct {
	// Seed drives every random choice in the pipeline; the same seed on the
	// same image yields a bit-identical report.
	Seed int64

	// Calibration converts pixel measurements to physical units.
	Calibration models.Calibration

	// Boxes are detection results from an external detector. When empty the
	// concentration stage reports zero counts.
	Boxes []models.DetectionBox

	// DiseaseProbabilities and CellTypeProbabilities come from an external
	// classifier and are merged into the report's classification section.
	DiseaseProbabilities map[string]float64
	CellTypeProbabilities map[string]float64
}

// DefaultOptions returns analysis options with standard calibration and a
// fixed seed.
func DefaultOptions() AnalysisOptions {
	return AnalysisOptions{
		Seed:        1,
		Calibration: models.DefaultCalibration(),
	}
}

// WithSeed sets the sampling seed.
func (o AnalysisOptions) WithSeed(seed int64) AnalysisOptions {
	o.Seed = seed
	return o
}

// WithCalibration sets the physical calibration parameters.
func (o AnalysisOptions) WithCalibration(c models.Calibration) AnalysisOptions {
	o.Calibration = c
	return o
}

// WithBoxes sets the external detection boxes.
func (o AnalysisOptions) WithBoxes(boxes []models.DetectionBox) AnalysisOptions {
	o.Boxes = boxes
	return o
}

// WithClassifierProbabilities sets the external classifier outputs.
func (o AnalysisOptions) WithClassifierProbabilities(disease, cellType map[string]float64) AnalysisOptions {
	o.DiseaseProbabilities = disease
	o.CellTypeProbabilities = cellType
	return o
}
