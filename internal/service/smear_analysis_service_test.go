package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"go-smear-analyzer/internal/analyzer"
	apperrors "go-smear-analyzer/internal/errors"
	"go-smear-analyzer/internal/observer"
	"go-smear-analyzer/internal/provider"
	"go-smear-analyzer/internal/repository"
	"go-smear-analyzer/pkg/models"
)

type stubDetector struct {
	boxes  []models.DetectionBox
	err    error
	called bool
}

func (d *stubDetector) Detect(_ context.Context, _ []byte, _ string) ([]models.DetectionBox, error) {
	d.called = true
	return d.boxes, d.err
}

type stubClassifier struct {
	disease  map[string]float64
	cellType map[string]float64
	err      error
	called   bool
}

func (c *stubClassifier) Classify(_ context.Context, _ []byte, _ string) (map[string]float64, map[string]float64, error) {
	c.called = true
	return c.disease, c.cellType, c.err
}

type stubFetcher struct {
	data []byte
	err  error
}

func (f *stubFetcher) FetchSmear(_ context.Context, _ string) ([]byte, error) {
	return f.data, f.err
}

func encodeSmearPNG(t *testing.T, fill color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 600, 600))
	for y := 0; y < 600; y++ {
		for x := 0; x < 600; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func newTestService(t *testing.T, detector *stubDetector, classifier *stubClassifier) SmearAnalysisService {
	t.Helper()

	engine := analyzer.NewSmearAnalyzer()
	t.Cleanup(engine.Close)

	// A typed nil pointer would still satisfy the provider interface, so
	// translate nil stubs into untyped nil arguments.
	var det provider.DetectionProvider
	if detector != nil {
		det = detector
	}
	var cls provider.ClassifierProvider
	if classifier != nil {
		cls = classifier
	}

	return NewSmearAnalysisService(
		engine,
		&stubFetcher{data: encodeSmearPNG(t, color.RGBA{180, 80, 80, 255})},
		repository.NewMemoryRepository(),
		det,
		cls,
		observer.NewEventPublisher(),
		models.DefaultCalibration(),
	)
}

func TestAnalyzeUpload_Completes(t *testing.T) {
	detector := &stubDetector{
		boxes: []models.DetectionBox{
			{Class: "RBC", Confidence: 0.95, X: 10, Y: 10, Width: 75, Height: 75},
		},
	}
	classifier := &stubClassifier{
		disease:  map[string]float64{"Normal": 0.9, "Malaria": 0.1},
		cellType: map[string]float64{"Neutrophils": 0.5},
	}
	svc := newTestService(t, detector, classifier)

	data := encodeSmearPNG(t, color.RGBA{180, 80, 80, 255})
	stored, err := svc.AnalyzeUpload(context.Background(), "lab-1", "smear.png", data, models.AnalyzeRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !detector.called {
		t.Error("expected the detector to be consulted")
	}
	if !classifier.called {
		t.Error("expected the classifier to be consulted")
	}
	if stored.Status != "completed" {
		t.Errorf("expected status completed, got %s", stored.Status)
	}
	if stored.Prediction != "Normal" {
		t.Errorf("expected prediction Normal, got %s", stored.Prediction)
	}
	if stored.Confidence != 90 {
		t.Errorf("expected confidence 90, got %g", stored.Confidence)
	}
	if stored.Report == nil {
		t.Fatal("expected a report")
	}
	if stored.Report.Cells.RBC.Count != 1 {
		t.Errorf("expected 1 detected RBC, got %+v", stored.Report.Cells)
	}
}

func TestAnalyzeUpload_RequestBoxesSkipDetector(t *testing.T) {
	detector := &stubDetector{}
	svc := newTestService(t, detector, nil)

	data := encodeSmearPNG(t, color.RGBA{180, 80, 80, 255})
	req := models.AnalyzeRequest{
		Boxes: []models.DetectionBox{
			{Class: "WBC", Confidence: 0.9, X: 0, Y: 0, Width: 120, Height: 120},
		},
	}
	stored, err := svc.AnalyzeUpload(context.Background(), "lab-1", "smear.png", data, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detector.called {
		t.Error("detector should not run when the request carries boxes")
	}
	if stored.Report.Cells.WBC.Count != 1 {
		t.Errorf("expected 1 WBC from request boxes, got %+v", stored.Report.Cells)
	}
}

func TestAnalyzeUpload_DetectorFailureIsTolerated(t *testing.T) {
	detector := &stubDetector{err: errors.New("model offline")}
	svc := newTestService(t, detector, nil)

	data := encodeSmearPNG(t, color.RGBA{180, 80, 80, 255})
	stored, err := svc.AnalyzeUpload(context.Background(), "lab-1", "smear.png", data, models.AnalyzeRequest{})
	if err != nil {
		t.Fatalf("expected the analysis to proceed, got %v", err)
	}
	if stored.Status != "completed" {
		t.Errorf("expected status completed, got %s", stored.Status)
	}
}

func TestAnalyzeUpload_UnsupportedExtension(t *testing.T) {
	svc := newTestService(t, nil, nil)

	_, err := svc.AnalyzeUpload(context.Background(), "lab-1", "smear.webp", []byte("data"), models.AnalyzeRequest{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("expected a validation error, got %v", err)
	}
}

func TestAnalyzeUpload_RejectionIsPersisted(t *testing.T) {
	svc := newTestService(t, nil, nil)

	data := encodeSmearPNG(t, color.RGBA{255, 255, 255, 255})
	stored, err := svc.AnalyzeUpload(context.Background(), "lab-1", "blank.png", data, models.AnalyzeRequest{})
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if stored == nil {
		t.Fatal("expected the rejected analysis to be returned")
	}
	if stored.Status != "rejected" {
		t.Errorf("expected status rejected, got %s", stored.Status)
	}

	fetched, err := svc.GetAnalysis(context.Background(), "lab-1", stored.ID)
	if err != nil {
		t.Fatalf("expected the rejection to be stored: %v", err)
	}
	if fetched.Report == nil || fetched.Report.Validation.Valid {
		t.Error("expected the stored report to carry the failed verdict")
	}
}

func TestAnalyzeRemote_Completes(t *testing.T) {
	svc := newTestService(t, nil, nil)

	stored, err := svc.AnalyzeRemote(context.Background(), "lab-1", "https://img.example/samples/smear.png", models.AnalyzeRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Filename != "smear.png" {
		t.Errorf("expected the filename from the location path, got %s", stored.Filename)
	}
}

func TestAnalyzeRemote_FetchFailure(t *testing.T) {
	engine := analyzer.NewSmearAnalyzer()
	t.Cleanup(engine.Close)

	svc := NewSmearAnalysisService(
		engine,
		&stubFetcher{err: errors.New("connection refused")},
		repository.NewMemoryRepository(),
		nil,
		nil,
		observer.NewEventPublisher(),
		models.DefaultCalibration(),
	)

	_, err := svc.AnalyzeRemote(context.Background(), "lab-1", "https://img.example/smear.png", models.AnalyzeRequest{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeNetwork) {
		t.Errorf("expected a network error, got %v", err)
	}
}

func TestAddNote_RejectsBlankContent(t *testing.T) {
	svc := newTestService(t, nil, nil)

	_, err := svc.AddNote(context.Background(), "lab-1", "mem-1", "   ")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("expected a validation error, got %v", err)
	}
}
