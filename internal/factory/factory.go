package factory

import (
	"fmt"

	"go-smear-analyzer/internal/config"
	"go-smear-analyzer/internal/repository"
	"go-smear-analyzer/internal/storage"
)

// StorageType represents different types of smear fetch backends
type StorageType string

const (
	// HTTPStorage fetches smears over HTTP(S)
	HTTPStorage StorageType = "http"
	// AzureStorage fetches smears from Azure Blob Storage
	AzureStorage StorageType = "azure"
)

// StorageFactory creates smear fetch backends
type StorageFactory interface {
	CreateStorage(storageType StorageType, cfg *config.Config) (storage.SmearFetcher, error)
}

// RepositoryFactory creates analysis stores
type RepositoryFactory interface {
	CreateRepository(cfg *config.Config) (repository.AnalysisRepository, error)
}

type storageFactory struct{}

// NewStorageFactory creates a new storage factory
func NewStorageFactory() StorageFactory {
	return &storageFactory{}
}

// CreateStorage creates a fetch backend based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType, cfg *config.Config) (storage.SmearFetcher, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPSmearFetcher(cfg.Validation.MaxFileBytes), nil
	case AzureStorage:
		return storage.NewAzureStorage(cfg.AzureAccountName, cfg.AzureAccountKey, cfg.AzureContainerName)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

type repositoryFactory struct{}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory() RepositoryFactory {
	return &repositoryFactory{}
}

// CreateRepository creates a Postgres store when DATABASE_URL is configured
// and falls back to the in-memory store otherwise.
func (f *repositoryFactory) CreateRepository(cfg *config.Config) (repository.AnalysisRepository, error) {
	if cfg.DatabaseURL != "" {
		return repository.NewPostgresRepository(cfg.DatabaseURL)
	}
	return repository.NewMemoryRepository(), nil
}
