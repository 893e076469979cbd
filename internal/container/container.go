package container

import (
	"fmt"
	"net/http"

	"go-smear-analyzer/internal/analyzer"
	"go-smear-analyzer/internal/config"
	"go-smear-analyzer/internal/factory"
	"go-smear-analyzer/internal/logger"
	"go-smear-analyzer/internal/observer"
	"go-smear-analyzer/internal/provider"
	"go-smear-analyzer/internal/repository"
	"go-smear-analyzer/internal/service"
	"go-smear-analyzer/internal/storage"
	"go-smear-analyzer/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config        *config.Config
	smearFetcher  storage.SmearFetcher
	smearAnalyzer analyzer.SmearAnalyzer
	repo          repository.AnalysisRepository
	metrics       *observer.MetricsObserver
	svc           service.SmearAnalysisService
	handler       http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer() (*Container, error) {
	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Build dependency graph
	smearFetcher, err := factory.NewStorageFactory().CreateStorage(factory.StorageType(cfg.StorageBackend), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}

	repo, err := factory.NewRepositoryFactory().CreateRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis repository: %w", err)
	}

	smearAnalyzer := analyzer.NewSmearAnalyzerWithLimits(cfg.Validation)

	var detector provider.DetectionProvider
	if cfg.DetectorURL != "" {
		detector = provider.NewHTTPDetectionProvider(cfg.DetectorURL)
	}
	var classifier provider.ClassifierProvider
	if cfg.ClassifierURL != "" {
		classifier = provider.NewHTTPClassifierProvider(cfg.ClassifierURL)
	}

	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	svc := service.NewSmearAnalysisService(
		smearAnalyzer, smearFetcher, repo, detector, classifier, events, cfg.Calibration,
	)
	handler := transport.NewHandler(svc, metrics, cfg)

	return &Container{
		config:        cfg,
		smearFetcher:  smearFetcher,
		smearAnalyzer: smearAnalyzer,
		repo:          repo,
		metrics:       metrics,
		svc:           svc,
		handler:       handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the analysis service
func (c *Container) Service() service.SmearAnalysisService {
	return c.svc
}

// Close releases the analyzer and the repository
func (c *Container) Close() {
	c.smearAnalyzer.Close()
	if err := c.repo.Close(); err != nil {
		logger.WithError(err).Warn("failed to close repository")
	}
}
