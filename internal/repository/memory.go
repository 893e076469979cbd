package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go-smear-analyzer/pkg/models"
)

// MemoryRepository is an in-memory AnalysisRepository used when no database
// is configured, and by tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	nextID   int
	analyses map[string]*models.StoredAnalysis
	notes    map[string][]models.AnalysisNote
}

// NewMemoryRepository creates an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		analyses: make(map[string]*models.StoredAnalysis),
		notes:    make(map[string][]models.AnalysisNote),
	}
}

func (r *MemoryRepository) Save(_ context.Context, analysis *models.StoredAnalysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	analysis.ID = fmt.Sprintf("mem-%d", r.nextID)
	analysis.CreatedAt = time.Now().UTC().Format(time.RFC3339)

	stored := *analysis
	r.analyses[analysis.ID] = &stored
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, subject, id string) (*models.StoredAnalysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	analysis, ok := r.analyses[id]
	if !ok || analysis.Subject != subject {
		return nil, ErrAnalysisNotFound
	}
	copied := *analysis
	return &copied, nil
}

func (r *MemoryRepository) ListBySubject(_ context.Context, subject string, limit int) ([]models.StoredAnalysis, error) {
	if limit <= 0 {
		limit = 50
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.StoredAnalysis
	for _, analysis := range r.analyses {
		if analysis.Subject != subject {
			continue
		}
		copied := *analysis
		copied.Report = nil
		out = append(out, copied)
	}

	// Newest first, with ID as a deterministic tie-break.
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) Delete(_ context.Context, subject, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	analysis, ok := r.analyses[id]
	if !ok || analysis.Subject != subject {
		return ErrAnalysisNotFound
	}
	delete(r.analyses, id)
	delete(r.notes, id)
	return nil
}

func (r *MemoryRepository) Stats(_ context.Context, subject string) (*models.AnalysisStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &models.AnalysisStats{
		PredictionDistribution: make(map[string]int),
	}
	for _, analysis := range r.analyses {
		if analysis.Subject != subject {
			continue
		}
		stats.TotalAnalyses++
		if analysis.Status == "completed" {
			stats.CompletedAnalyses++
		}
		if analysis.Prediction != "" {
			stats.PredictionDistribution[analysis.Prediction]++
		}
	}
	return stats, nil
}

func (r *MemoryRepository) AddNote(ctx context.Context, subject, analysisID, content string) (*models.AnalysisNote, error) {
	if _, err := r.GetByID(ctx, subject, analysisID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	note := models.AnalysisNote{
		ID:         fmt.Sprintf("note-%d", r.nextID),
		AnalysisID: analysisID,
		Content:    content,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	r.notes[analysisID] = append(r.notes[analysisID], note)
	return &note, nil
}

func (r *MemoryRepository) ListNotes(ctx context.Context, subject, analysisID string) ([]models.AnalysisNote, error) {
	if _, err := r.GetByID(ctx, subject, analysisID); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	notes := make([]models.AnalysisNote, len(r.notes[analysisID]))
	copy(notes, r.notes[analysisID])
	return notes, nil
}

func (r *MemoryRepository) Close() error {
	return nil
}
