package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Repository provides SQLite-backed persistence for arena data.
type Repository struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS generations (
	id TEXT PRIMARY KEY,
	model_id TEXT NOT NULL,
	prompt TEXT NOT NULL,
	response TEXT,
	tokens INTEGER NOT NULL,
	cost REAL NOT NULL,
	latency_seconds REAL NOT NULL,
	success INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_generations_model ON generations(model_id, created_at);

CREATE TABLE IF NOT EXISTS workflow_runs (
	id TEXT PRIMARY KEY,
	workflow_id TEXT NOT NULL,
	steps TEXT NOT NULL,
	final_output TEXT NOT NULL,
	total_tokens INTEGER NOT NULL,
	total_cost REAL NOT NULL,
	success INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS comparisons (
	id TEXT PRIMARY KEY,
	prompt TEXT NOT NULL,
	results TEXT NOT NULL,
	winner TEXT,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS experiments (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	variant_a_model TEXT NOT NULL,
	variant_b_model TEXT NOT NULL,
	a_total INTEGER NOT NULL DEFAULT 0,
	a_success INTEGER NOT NULL DEFAULT 0,
	a_rating_sum INTEGER NOT NULL DEFAULT 0,
	a_rating_count INTEGER NOT NULL DEFAULT 0,
	b_total INTEGER NOT NULL DEFAULT 0,
	b_success INTEGER NOT NULL DEFAULT 0,
	b_rating_sum INTEGER NOT NULL DEFAULT 0,
	b_rating_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS experiment_trials (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	experiment_id TEXT NOT NULL,
	variant TEXT NOT NULL,
	success INTEGER NOT NULL,
	rating INTEGER,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (experiment_id) REFERENCES experiments(id)
);
CREATE INDEX IF NOT EXISTS idx_trials_experiment ON experiment_trials(experiment_id);
`

// NewRepository opens (or creates) the SQLite database at path and runs
// the schema migration.
func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single writer keeps SQLite happy; the workload is sequential.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &Repository{db: db}, nil
}

// Close closes the underlying database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// InsertGeneration appends one generation record. Costs and token counts
// must be non-negative.
func (r *Repository) InsertGeneration(ctx context.Context, rec *GenerationRecord) error {
	if rec.Tokens < 0 || rec.Cost < 0 {
		return fmt.Errorf("insert generation: negative tokens or cost")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO generations
		    (id, model_id, prompt, response, tokens, cost, latency_seconds, success, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.ModelID, rec.Prompt, rec.Response, rec.Tokens,
		rec.Cost, rec.LatencySeconds, rec.Success, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	return nil
}

// ModelMetrics aggregates request counts, latency, and success rate for
// one model. Returns zeroed metrics when the model has no recorded
// requests.
func (r *Repository) ModelMetrics(ctx context.Context, modelID string) (*ModelMetrics, error) {
	var (
		total     int
		avg       float64
		avgTokens float64
		successes int
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(AVG(latency_seconds), 0),
		        COALESCE(AVG(tokens), 0),
		        COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0)
		 FROM generations WHERE model_id = ?`, modelID,
	).Scan(&total, &avg, &avgTokens, &successes)
	if err != nil {
		return nil, fmt.Errorf("query model metrics: %w", err)
	}
	m := &ModelMetrics{ModelID: modelID, TotalRequests: total, AvgLatencySeconds: avg, AvgTokens: avgTokens}
	if total > 0 {
		m.SuccessRate = float64(successes) / float64(total) * 100
	}
	return m, nil
}

// AllMetrics returns per-model metrics for every model with at least one
// recorded generation.
func (r *Repository) AllMetrics(ctx context.Context) ([]ModelMetrics, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT model_id,
		        COUNT(*),
		        COALESCE(AVG(latency_seconds), 0),
		        COALESCE(AVG(tokens), 0),
		        COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0)
		 FROM generations GROUP BY model_id ORDER BY model_id`)
	if err != nil {
		return nil, fmt.Errorf("query all metrics: %w", err)
	}
	defer rows.Close()

	var out []ModelMetrics
	for rows.Next() {
		var (
			m         ModelMetrics
			successes int
		)
		if err := rows.Scan(&m.ModelID, &m.TotalRequests, &m.AvgLatencySeconds, &m.AvgTokens, &successes); err != nil {
			return nil, fmt.Errorf("scan metrics row: %w", err)
		}
		if m.TotalRequests > 0 {
			m.SuccessRate = float64(successes) / float64(m.TotalRequests) * 100
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ModelCosts sums spend and tokens for one model.
func (r *Repository) ModelCosts(ctx context.Context, modelID string) (*ModelCosts, error) {
	c := &ModelCosts{ModelID: modelID}
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(cost), 0), COALESCE(SUM(tokens), 0)
		 FROM generations WHERE model_id = ?`, modelID,
	).Scan(&c.TotalRequests, &c.TotalCost, &c.TotalTokens)
	if err != nil {
		return nil, fmt.Errorf("query model costs: %w", err)
	}
	return c, nil
}

// AllCosts returns per-model cost totals for every model with at least
// one recorded generation.
func (r *Repository) AllCosts(ctx context.Context) ([]ModelCosts, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT model_id, COUNT(*), COALESCE(SUM(cost), 0), COALESCE(SUM(tokens), 0)
		 FROM generations GROUP BY model_id ORDER BY model_id`)
	if err != nil {
		return nil, fmt.Errorf("query all costs: %w", err)
	}
	defer rows.Close()

	var out []ModelCosts
	for rows.Next() {
		var c ModelCosts
		if err := rows.Scan(&c.ModelID, &c.TotalRequests, &c.TotalCost, &c.TotalTokens); err != nil {
			return nil, fmt.Errorf("scan costs row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DailyCosts rolls up spend per UTC calendar day over the last N days,
// oldest day first. Days with no generations are omitted.
func (r *Repository) DailyCosts(ctx context.Context, days int) ([]DailyCost, error) {
	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	// Timestamps are stored as UTC text, so the first 10 characters are
	// the calendar day.
	rows, err := r.db.QueryContext(ctx,
		`SELECT substr(created_at, 1, 10), COUNT(*), COALESCE(SUM(cost), 0), COALESCE(SUM(tokens), 0)
		 FROM generations WHERE created_at >= ?
		 GROUP BY substr(created_at, 1, 10) ORDER BY 1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query daily costs: %w", err)
	}
	defer rows.Close()

	var out []DailyCost
	for rows.Next() {
		var d DailyCost
		if err := rows.Scan(&d.Day, &d.TotalRequests, &d.TotalCost, &d.TotalTokens); err != nil {
			return nil, fmt.Errorf("scan daily costs row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TotalCost sums the cost of every recorded generation.
func (r *Repository) TotalCost(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost), 0) FROM generations`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("query total cost: %w", err)
	}
	return total, nil
}
