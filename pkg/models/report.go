package models

import "time"

// ValidationVerdict is the outcome of pre-analysis image validation.
// A failed verdict is terminal for the whole pipeline.
type ValidationVerdict struct {
	Valid  bool    `json:"valid"`
	Reason string  `json:"reason,omitempty"`
	Score  float64 `json:"score"`
}

// ChannelStatistics summarizes one color channel.
type ChannelStatistics struct {
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// RGBStatistics holds per-channel RGB statistics plus channel ratios.
type RGBStatistics struct {
	R ChannelStatistics `json:"r"`
	G ChannelStatistics `json:"g"`
	B ChannelStatistics `json:"b"`

	// Epsilon-guarded ratios of channel means.
	RatioRG float64 `json:"ratio_rg"`
	RatioRB float64 `json:"ratio_rb"`
	RatioGB float64 `json:"ratio_gb"`
}

// HSVStatistics holds HSV channel statistics in the OpenCV convention
// (hue in [0,180), saturation and value in [0,255]) along with the
// blood-specific hue-band percentages.
type HSVStatistics struct {
	H ChannelStatistics `json:"h"`
	S ChannelStatistics `json:"s"`
	V ChannelStatistics `json:"v"`

	RedPct      float64 `json:"red_pct"`
	PurplePct   float64 `json:"purple_pct"`
	BloodHuePct float64 `json:"blood_hue_pct"`
}

// LabStatistics holds CIE Lab lightness and chroma-axis statistics.
// Lightness is on the 8-bit scale (0-255); a* and b* are centered at zero.
type LabStatistics struct {
	LightnessMean     float64 `json:"lightness_mean"`
	LightnessStd      float64 `json:"lightness_std"`
	LightnessContrast float64 `json:"lightness_contrast"`

	AMean float64 `json:"a_mean"`
	AStd  float64 `json:"a_std"`
	BMean float64 `json:"b_mean"`
	BStd  float64 `json:"b_std"`

	// Share of pixels on the positive side of each chroma axis.
	ARedDominancePct    float64 `json:"a_red_dominance_pct"`
	BYellowDominancePct float64 `json:"b_yellow_dominance_pct"`
}

// ColorAnalysisResult aggregates the three colorspace analyses.
type ColorAnalysisResult struct {
	RGB   RGBStatistics `json:"rgb"`
	HSV   HSVStatistics `json:"hsv"`
	Lab   LabStatistics `json:"lab"`
	Error string        `json:"error,omitempty"`
}

// DominantColor is one k-means cluster of sampled pixel colors.
type DominantColor struct {
	R          int     `json:"r"`
	G          int     `json:"g"`
	B          int     `json:"b"`
	Hex        string  `json:"hex"`
	Percentage float64 `json:"percentage"`
	Name       string  `json:"name"`
}

// DominantColorResult carries the ranked clusters or a stage error.
type DominantColorResult struct {
	Colors []DominantColor `json:"colors"`
	Error  string          `json:"error,omitempty"`
}

// DiseaseScore is a heuristic color-signature match for one disease.
type DiseaseScore struct {
	Disease    string             `json:"disease"`
	TotalScore float64            `json:"total_score"`
	Breakdown  map[string]float64 `json:"breakdown"`
	Confidence float64            `json:"confidence"`
}

// DiseaseScoreResult carries the top-ranked scores or a stage error.
type DiseaseScoreResult struct {
	Scores []DiseaseScore `json:"scores"`
	Error  string         `json:"error,omitempty"`
}

// StainingQuality grades the staining of the smear.
type StainingQuality struct {
	ContrastScore   float64  `json:"contrast_score"`
	SeparationScore float64  `json:"separation_score"`
	BackgroundScore float64  `json:"background_score"`
	OverallScore    float64  `json:"overall_score"`
	Grade           string   `json:"grade"`
	Recommendations []string `json:"recommendations"`
	Error           string   `json:"error,omitempty"`
}

// Staining grade bands, lower-inclusive.
const (
	GradeExcellent    = "Excellent"
	GradeGood         = "Good"
	GradeFair         = "Fair"
	GradePoor         = "Poor"
	GradeUnacceptable = "Unacceptable"
)

// DetectionBox is one cell instance reported by the external detector.
// Coordinates are axis-aligned pixel coordinates of the source image.
type DetectionBox struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// CellType identifies one of the counted cell populations.
type CellType string

const (
	CellRBC      CellType = "rbc"
	CellWBC      CellType = "wbc"
	CellPlatelet CellType = "platelet"
)

// CellTypeCount is the calibrated count for one cell type.
type CellTypeCount struct {
	Count              int     `json:"count"`
	MeanDiameterUm     float64 `json:"mean_diameter_um"`
	ConcentrationPerUl float64 `json:"concentration_per_ul"`
	SizeDeviationPct   float64 `json:"size_deviation_pct"`
}

// CellConcentrationResult converts detection boxes into calibrated
// per-type concentrations.
type CellConcentrationResult struct {
	RBC      CellTypeCount `json:"rbc"`
	WBC      CellTypeCount `json:"wbc"`
	Platelet CellTypeCount `json:"platelet"`

	TotalCells          int     `json:"total_cells"`
	FieldAreaMm2        float64 `json:"field_area_mm2"`
	DetectionConfidence float64 `json:"detection_confidence"`
	ProcessingTimeSec   float64 `json:"processing_time_sec"`
	Error               string  `json:"error,omitempty"`
}

// Calibration holds the instrument constants for the pixel to cells/uL
// conversion. Defaults are illustrative rather than protocol-accurate and
// should be overridden to match the slide preparation in use.
type Calibration struct {
	PixelSizeUm    float64 `json:"pixel_size_um"`
	DilutionFactor float64 `json:"dilution_factor"`
	DepthCor       float64 `json:"depth_correction"`
}

// DefaultCalibration returns the documented default calibration constants.
func DefaultCalibration() Calibration {
	return Calibration{
		PixelSizeUm:    0.1,
		DilutionFactor: 200,
		DepthCor:       0.1,
	}
}

// ClassificationResult merges externally computed classifier probabilities
// into the report. The deterministic engine never produces these itself.
type ClassificationResult struct {
	Prediction            string             `json:"prediction,omitempty"`
	Confidence            float64            `json:"confidence,omitempty"`
	DiseaseProbabilities  map[string]float64 `json:"disease_probabilities,omitempty"`
	CellTypeProbabilities map[string]float64 `json:"cell_type_probabilities,omitempty"`
	Notes                 string             `json:"notes,omitempty"`
}

// AnalysisReport is the immutable aggregate returned to the caller.
type AnalysisReport struct {
	Filename          string                  `json:"filename,omitempty"`
	Timestamp         time.Time               `json:"timestamp"`
	ProcessingTimeSec float64                 `json:"processing_time_sec"`
	Validation        ValidationVerdict       `json:"validation"`
	ColorAnalysis     ColorAnalysisResult     `json:"color_analysis"`
	DominantColors    DominantColorResult     `json:"dominant_colors"`
	DiseaseScores     DiseaseScoreResult      `json:"disease_scores"`
	Staining          StainingQuality         `json:"staining"`
	Cells             CellConcentrationResult `json:"cells"`
	Classification    *ClassificationResult   `json:"classification,omitempty"`
}
