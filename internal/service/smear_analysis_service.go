package service

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"go-smear-analyzer/internal/analyzer"
	apperrors "go-smear-analyzer/internal/errors"
	"go-smear-analyzer/internal/logger"
	"go-smear-analyzer/internal/observer"
	"go-smear-analyzer/internal/provider"
	"go-smear-analyzer/internal/repository"
	"go-smear-analyzer/internal/storage"
	"go-smear-analyzer/pkg/models"
)

// allowedExtensions are the upload formats the service accepts before the
// validator even runs.
var allowedExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".bmp": true, ".tiff": true,
}

// SmearAnalysisService is the application layer over the analysis engine:
// it resolves detector and classifier inputs, runs the pipeline, persists
// the outcome and publishes events.
type SmearAnalysisService interface {
	AnalyzeUpload(ctx context.Context, subject, filename string, data []byte, req models.AnalyzeRequest) (*models.StoredAnalysis, error)
	AnalyzeRemote(ctx context.Context, subject, location string, req models.AnalyzeRequest) (*models.StoredAnalysis, error)
	Validate(data []byte, filename string) models.ValidationVerdict

	GetAnalysis(ctx context.Context, subject, id string) (*models.StoredAnalysis, error)
	ListAnalyses(ctx context.Context, subject string, limit int) ([]models.StoredAnalysis, error)
	DeleteAnalysis(ctx context.Context, subject, id string) error
	GetStats(ctx context.Context, subject string) (*models.AnalysisStats, error)
	AddNote(ctx context.Context, subject, analysisID, content string) (*models.AnalysisNote, error)
	ListNotes(ctx context.Context, subject, analysisID string) ([]models.AnalysisNote, error)
}

type smearAnalysisService struct {
	analyzer   analyzer.SmearAnalyzer
	fetcher    storage.SmearFetcher
	repo       repository.AnalysisRepository
	detector   provider.DetectionProvider
	classifier provider.ClassifierProvider
	events     observer.Subject
	calib      models.Calibration
}

// NewSmearAnalysisService wires the analysis engine with its collaborators.
// detector and classifier may be nil; the corresponding report sections then
// depend entirely on caller-supplied request values.
func NewSmearAnalysisService(
	smearAnalyzer analyzer.SmearAnalyzer,
	fetcher storage.SmearFetcher,
	repo repository.AnalysisRepository,
	detector provider.DetectionProvider,
	classifier provider.ClassifierProvider,
	events observer.Subject,
	calib models.Calibration,
) SmearAnalysisService {
	return &smearAnalysisService{
		analyzer:   smearAnalyzer,
		fetcher:    fetcher,
		repo:       repo,
		detector:   detector,
		classifier: classifier,
		events:     events,
		calib:      calib,
	}
}

func (s *smearAnalysisService) AnalyzeUpload(ctx context.Context, subject, filename string, data []byte, req models.AnalyzeRequest) (*models.StoredAnalysis, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return nil, apperrors.NewValidationError("unsupported file type", nil)
	}

	s.publish(ctx, observer.SmearEvent{
		EventType: observer.AnalysisStarted,
		Timestamp: time.Now(),
		Filename:  filename,
		Subject:   subject,
	})

	opts := s.resolveOptions(ctx, filename, data, req)

	report, err := s.analyzer.AnalyzeComplete(data, filename, opts)
	elapsed := time.Duration(0)
	if report != nil {
		elapsed = time.Duration(report.ProcessingTimeSec * float64(time.Second))
	}

	if err != nil {
		s.publishOutcome(ctx, observer.AnalysisRejected, subject, filename, elapsed, err)
		stored := &models.StoredAnalysis{
			Subject:  subject,
			Filename: filename,
			Status:   "rejected",
			Report:   report,
		}
		if saveErr := s.repo.Save(ctx, stored); saveErr != nil {
			logger.WithError(saveErr).Warn("failed to persist rejected analysis")
		}
		return stored, err
	}

	stored := &models.StoredAnalysis{
		Subject:  subject,
		Filename: filename,
		Status:   "completed",
		Report:   report,
	}
	if report.Classification != nil {
		stored.Prediction = report.Classification.Prediction
		stored.Confidence = report.Classification.Confidence
	}
	if saveErr := s.repo.Save(ctx, stored); saveErr != nil {
		logger.WithError(saveErr).Warn("failed to persist completed analysis")
	}

	s.publishOutcome(ctx, observer.AnalysisCompleted, subject, filename, elapsed, nil)
	return stored, nil
}

func (s *smearAnalysisService) AnalyzeRemote(ctx context.Context, subject, location string, req models.AnalyzeRequest) (*models.StoredAnalysis, error) {
	if strings.TrimSpace(location) == "" {
		return nil, apperrors.NewValidationError("missing smear location", nil)
	}

	data, err := s.fetcher.FetchSmear(ctx, location)
	if err != nil {
		s.publish(ctx, observer.SmearEvent{
			EventType:    observer.SmearFetchFailed,
			Timestamp:    time.Now(),
			Filename:     location,
			Subject:      subject,
			ErrorMessage: err.Error(),
		})
		return nil, apperrors.NewNetworkError("failed to fetch smear", err)
	}

	s.publish(ctx, observer.SmearEvent{
		EventType: observer.SmearFetched,
		Timestamp: time.Now(),
		Filename:  location,
		Subject:   subject,
		Success:   true,
	})

	filename := filepath.Base(location)
	return s.AnalyzeUpload(ctx, subject, filename, data, req)
}

func (s *smearAnalysisService) Validate(data []byte, filename string) models.ValidationVerdict {
	return s.analyzer.Validate(data, filename)
}

// resolveOptions fills the analysis options from the request, asking the
// external detector and classifier for anything the caller did not supply.
// Provider failures are logged and the analysis proceeds with what is known.
func (s *smearAnalysisService) resolveOptions(ctx context.Context, filename string, data []byte, req models.AnalyzeRequest) analyzer.AnalysisOptions {
	opts := analyzer.DefaultOptions().WithCalibration(s.calib)
	if req.Seed != nil {
		opts = opts.WithSeed(*req.Seed)
	}
	if req.Calibration != nil {
		opts = opts.WithCalibration(*req.Calibration)
	}

	boxes := req.Boxes
	if len(boxes) == 0 && s.detector != nil {
		detected, err := s.detector.Detect(ctx, data, filename)
		if err != nil {
			logger.WithError(err).Warn("cell detector unavailable, counting without boxes")
		} else {
			boxes = detected
		}
	}
	opts = opts.WithBoxes(boxes)

	disease := req.DiseaseProbabilities
	cellType := req.CellTypeProbabilities
	if len(disease) == 0 && len(cellType) == 0 && s.classifier != nil {
		d, c, err := s.classifier.Classify(ctx, data, filename)
		if err != nil {
			logger.WithError(err).Warn("classifier unavailable, skipping classification")
		} else {
			disease, cellType = d, c
		}
	}
	opts = opts.WithClassifierProbabilities(disease, cellType)

	return opts
}

func (s *smearAnalysisService) GetAnalysis(ctx context.Context, subject, id string) (*models.StoredAnalysis, error) {
	return s.repo.GetByID(ctx, subject, id)
}

func (s *smearAnalysisService) ListAnalyses(ctx context.Context, subject string, limit int) ([]models.StoredAnalysis, error) {
	return s.repo.ListBySubject(ctx, subject, limit)
}

func (s *smearAnalysisService) DeleteAnalysis(ctx context.Context, subject, id string) error {
	return s.repo.Delete(ctx, subject, id)
}

func (s *smearAnalysisService) GetStats(ctx context.Context, subject string) (*models.AnalysisStats, error) {
	return s.repo.Stats(ctx, subject)
}

func (s *smearAnalysisService) AddNote(ctx context.Context, subject, analysisID, content string) (*models.AnalysisNote, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.NewValidationError("note content is required", nil)
	}
	return s.repo.AddNote(ctx, subject, analysisID, content)
}

func (s *smearAnalysisService) ListNotes(ctx context.Context, subject, analysisID string) ([]models.AnalysisNote, error) {
	return s.repo.ListNotes(ctx, subject, analysisID)
}

func (s *smearAnalysisService) publish(ctx context.Context, event observer.SmearEvent) {
	if s.events != nil {
		s.events.NotifyObservers(ctx, event)
	}
}

func (s *smearAnalysisService) publishOutcome(ctx context.Context, eventType observer.EventType, subject, filename string, elapsed time.Duration, err error) {
	event := observer.SmearEvent{
		EventType:      eventType,
		Timestamp:      time.Now(),
		Filename:       filename,
		Subject:        subject,
		ProcessingTime: elapsed,
		Success:        err == nil,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	s.publish(ctx, event)
}
