package models

// AnalyzeRequest carries the optional analysis parameters supplied alongside
// the multipart image upload.
type AnalyzeRequest struct {
	Seed                  *int64             `json:"seed,omitempty"`
	Boxes                 []DetectionBox     `json:"boxes,omitempty"`
	Calibration           *Calibration       `json:"calibration,omitempty"`
	DiseaseProbabilities  map[string]float64 `json:"disease_probabilities,omitempty"`
	CellTypeProbabilities map[string]float64 `json:"cell_type_probabilities,omitempty"`
}

// ErrorResponse is the uniform error payload of the HTTP API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// StoredAnalysis is one persisted analysis record.
type StoredAnalysis struct {
	ID         string         `json:"id"`
	Subject    string         `json:"subject,omitempty"`
	Filename   string         `json:"filename"`
	Status     string         `json:"status"`
	Prediction string         `json:"prediction,omitempty"`
	Confidence float64        `json:"confidence"`
	CreatedAt  string         `json:"created_at"`
	Report     *AnalysisReport `json:"report,omitempty"`
}

// AnalysisNote is a free-form note attached to a stored analysis.
type AnalysisNote struct {
	ID         string `json:"id"`
	AnalysisID string `json:"analysis_id"`
	Content    string `json:"content"`
	CreatedAt  string `json:"created_at"`
}

// AnalysisStats aggregates a subject's stored analyses.
type AnalysisStats struct {
	TotalAnalyses          int            `json:"total_analyses"`
	CompletedAnalyses      int            `json:"completed_analyses"`
	PredictionDistribution map[string]int `json:"prediction_distribution"`
}
