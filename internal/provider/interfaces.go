package provider

import (
	"context"

	"go-smear-analyzer/pkg/models"
)

// DetectionProvider locates cell instances on a smear image. Implementations
// wrap externally trained detectors; the deterministic analysis engine never
// depends on model artifacts directly.
type DetectionProvider interface {
	Detect(ctx context.Context, image []byte, filename string) ([]models.DetectionBox, error)
}

// ClassifierProvider produces disease and white-cell-type probability maps
// for a smear image.
type ClassifierProvider interface {
	Classify(ctx context.Context, image []byte, filename string) (disease, cellType map[string]float64, err error)
}
