package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"go-smear-analyzer/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	subject    TEXT NOT NULL,
	filename   TEXT NOT NULL,
	status     TEXT NOT NULL,
	prediction TEXT NOT NULL DEFAULT '',
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	report     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_analyses_subject ON analyses (subject, created_at DESC);

CREATE TABLE IF NOT EXISTS analysis_notes (
	id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	analysis_id UUID NOT NULL REFERENCES analyses (id) ON DELETE CASCADE,
	content     TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_notes_analysis ON analysis_notes (analysis_id, created_at);
`

type analysisRow struct {
	ID         string    `db:"id"`
	Subject    string    `db:"subject"`
	Filename   string    `db:"filename"`
	Status     string    `db:"status"`
	Prediction string    `db:"prediction"`
	Confidence float64   `db:"confidence"`
	Report     []byte    `db:"report"`
	CreatedAt  time.Time `db:"created_at"`
}

type noteRow struct {
	ID         string    `db:"id"`
	AnalysisID string    `db:"analysis_id"`
	Content    string    `db:"content"`
	CreatedAt  time.Time `db:"created_at"`
}

// PostgresRepository is the production AnalysisRepository backed by Postgres.
// Reports are stored as JSONB alongside the columns the list and stats
// queries need.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository connects to Postgres and ensures the schema exists.
func NewPostgresRepository(connStr string) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Save(ctx context.Context, analysis *models.StoredAnalysis) error {
	var report []byte
	if analysis.Report != nil {
		data, err := json.Marshal(analysis.Report)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		report = data
	}

	const query = `
		INSERT INTO analyses (subject, filename, status, prediction, confidence, report)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	var row struct {
		ID        string    `db:"id"`
		CreatedAt time.Time `db:"created_at"`
	}
	err := r.db.QueryRowxContext(ctx, query,
		analysis.Subject, analysis.Filename, analysis.Status,
		analysis.Prediction, analysis.Confidence, report,
	).StructScan(&row)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}

	analysis.ID = row.ID
	analysis.CreatedAt = row.CreatedAt.UTC().Format(time.RFC3339)
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, subject, id string) (*models.StoredAnalysis, error) {
	const query = `
		SELECT id, subject, filename, status, prediction, confidence, report, created_at
		FROM analyses
		WHERE subject = $1 AND id = $2`

	var row analysisRow
	err := r.db.GetContext(ctx, &row, query, subject, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAnalysisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query analysis: %w", err)
	}
	return row.toModel(true)
}

func (r *PostgresRepository) ListBySubject(ctx context.Context, subject string, limit int) ([]models.StoredAnalysis, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, subject, filename, status, prediction, confidence, created_at
		FROM analyses
		WHERE subject = $1
		ORDER BY created_at DESC
		LIMIT $2`

	var rows []analysisRow
	if err := r.db.SelectContext(ctx, &rows, query, subject, limit); err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}

	out := make([]models.StoredAnalysis, 0, len(rows))
	for _, row := range rows {
		analysis, err := row.toModel(false)
		if err != nil {
			return nil, err
		}
		out = append(out, *analysis)
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, subject, id string) error {
	const query = `DELETE FROM analyses WHERE subject = $1 AND id = $2`

	result, err := r.db.ExecContext(ctx, query, subject, id)
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	if affected == 0 {
		return ErrAnalysisNotFound
	}
	return nil
}

func (r *PostgresRepository) Stats(ctx context.Context, subject string) (*models.AnalysisStats, error) {
	const totalsQuery = `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed
		FROM analyses
		WHERE subject = $1`

	var totals struct {
		Total     int `db:"total"`
		Completed int `db:"completed"`
	}
	if err := r.db.GetContext(ctx, &totals, totalsQuery, subject); err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}

	const distQuery = `
		SELECT prediction, COUNT(*) AS n
		FROM analyses
		WHERE subject = $1 AND prediction <> ''
		GROUP BY prediction`

	var dist []struct {
		Prediction string `db:"prediction"`
		N          int    `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &dist, distQuery, subject); err != nil {
		return nil, fmt.Errorf("query distribution: %w", err)
	}

	stats := &models.AnalysisStats{
		TotalAnalyses:          totals.Total,
		CompletedAnalyses:      totals.Completed,
		PredictionDistribution: make(map[string]int, len(dist)),
	}
	for _, d := range dist {
		stats.PredictionDistribution[d.Prediction] = d.N
	}
	return stats, nil
}

func (r *PostgresRepository) AddNote(ctx context.Context, subject, analysisID, content string) (*models.AnalysisNote, error) {
	// Guard against notes on another subject's analysis.
	if _, err := r.GetByID(ctx, subject, analysisID); err != nil {
		return nil, err
	}

	const query = `
		INSERT INTO analysis_notes (analysis_id, content)
		VALUES ($1, $2)
		RETURNING id, analysis_id, content, created_at`

	var row noteRow
	if err := r.db.QueryRowxContext(ctx, query, analysisID, content).StructScan(&row); err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	note := row.toModel()
	return &note, nil
}

func (r *PostgresRepository) ListNotes(ctx context.Context, subject, analysisID string) ([]models.AnalysisNote, error) {
	if _, err := r.GetByID(ctx, subject, analysisID); err != nil {
		return nil, err
	}

	const query = `
		SELECT id, analysis_id, content, created_at
		FROM analysis_notes
		WHERE analysis_id = $1
		ORDER BY created_at ASC`

	var rows []noteRow
	if err := r.db.SelectContext(ctx, &rows, query, analysisID); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	notes := make([]models.AnalysisNote, 0, len(rows))
	for _, row := range rows {
		notes = append(notes, row.toModel())
	}
	return notes, nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

func (row analysisRow) toModel(includeReport bool) (*models.StoredAnalysis, error) {
	analysis := &models.StoredAnalysis{
		ID:         row.ID,
		Subject:    row.Subject,
		Filename:   row.Filename,
		Status:     row.Status,
		Prediction: row.Prediction,
		Confidence: row.Confidence,
		CreatedAt:  row.CreatedAt.UTC().Format(time.RFC3339),
	}
	if includeReport && len(row.Report) > 0 {
		var report models.AnalysisReport
		if err := json.Unmarshal(row.Report, &report); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		analysis.Report = &report
	}
	return analysis, nil
}

func (row noteRow) toModel() models.AnalysisNote {
	return models.AnalysisNote{
		ID:         row.ID,
		AnalysisID: row.AnalysisID,
		Content:    row.Content,
		CreatedAt:  row.CreatedAt.UTC().Format(time.RFC3339),
	}
}
