package repository

import (
	"context"

	"go-smear-analyzer/pkg/models"
)

// AnalysisRepository persists analysis reports and their notes.
type AnalysisRepository interface {
	// Save stores one analysis record and returns it with its assigned ID.
	Save(ctx context.Context, analysis *models.StoredAnalysis) error

	// GetByID returns one record including its full report.
	GetByID(ctx context.Context, subject, id string) (*models.StoredAnalysis, error)

	// ListBySubject returns a subject's records newest first, without the
	// full report payloads.
	ListBySubject(ctx context.Context, subject string, limit int) ([]models.StoredAnalysis, error)

	// Delete removes a record and its notes.
	Delete(ctx context.Context, subject, id string) error

	// Stats aggregates a subject's records.
	Stats(ctx context.Context, subject string) (*models.AnalysisStats, error)

	// AddNote attaches a note to a record.
	AddNote(ctx context.Context, subject, analysisID, content string) (*models.AnalysisNote, error)

	// ListNotes returns a record's notes oldest first.
	ListNotes(ctx context.Context, subject, analysisID string) ([]models.AnalysisNote, error)

	// Close releases the underlying store.
	Close() error
}
