package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateExperiment inserts a new experiment with zeroed counters.
func (r *Repository) CreateExperiment(ctx context.Context, e *Experiment) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO experiments (id, name, variant_a_model, variant_b_model, created_at)
		 VALUES (?,?,?,?,?)`,
		e.ID, e.Name, e.VariantAModel, e.VariantBModel, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert experiment: %w", err)
	}
	return nil
}

const experimentColumns = `id, name, variant_a_model, variant_b_model,
	a_total, a_success, a_rating_sum, a_rating_count,
	b_total, b_success, b_rating_sum, b_rating_count, created_at`

func scanExperiment(row interface{ Scan(...any) error }) (*Experiment, error) {
	var e Experiment
	err := row.Scan(&e.ID, &e.Name, &e.VariantAModel, &e.VariantBModel,
		&e.ATotal, &e.ASuccess, &e.ARatingSum, &e.ARatingCount,
		&e.BTotal, &e.BSuccess, &e.BRatingSum, &e.BRatingCount, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetExperiment returns an experiment by id, or nil if not found.
func (r *Repository) GetExperiment(ctx context.Context, id string) (*Experiment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+experimentColumns+` FROM experiments WHERE id = ?`, id)
	e, err := scanExperiment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query experiment: %w", err)
	}
	return e, nil
}

// ListExperiments returns all experiments, newest first.
func (r *Repository) ListExperiments(ctx context.Context) ([]Experiment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+experimentColumns+` FROM experiments ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query experiments: %w", err)
	}
	defer rows.Close()

	var out []Experiment
	for rows.Next() {
		e, err := scanExperiment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan experiment: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// RecordTrial appends a trial row and bumps the experiment's aggregate
// counters within a single transaction, so the counters and the trial
// rows cannot drift apart.
func (r *Repository) RecordTrial(ctx context.Context, trial *Trial) error {
	if trial.Variant != "A" && trial.Variant != "B" {
		return fmt.Errorf("record trial: variant must be A or B, got %q", trial.Variant)
	}
	if trial.CreatedAt.IsZero() {
		trial.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	prefix := "a"
	if trial.Variant == "B" {
		prefix = "b"
	}
	success := 0
	if trial.Success {
		success = 1
	}
	ratingSum, ratingCount := 0, 0
	if trial.Rating != nil {
		ratingSum = *trial.Rating
		ratingCount = 1
	}

	res, err := tx.ExecContext(ctx, fmt.Sprintf(
		`UPDATE experiments SET
		    %[1]s_total = %[1]s_total + 1,
		    %[1]s_success = %[1]s_success + ?,
		    %[1]s_rating_sum = %[1]s_rating_sum + ?,
		    %[1]s_rating_count = %[1]s_rating_count + ?
		 WHERE id = ?`, prefix),
		success, ratingSum, ratingCount, trial.ExperimentID,
	)
	if err != nil {
		return fmt.Errorf("update experiment counters: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update experiment counters: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("record trial: experiment %s not found", trial.ExperimentID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO experiment_trials (experiment_id, variant, success, rating, created_at)
		 VALUES (?,?,?,?,?)`,
		trial.ExperimentID, trial.Variant, trial.Success, trial.Rating, trial.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trial: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListTrials returns all trial rows for an experiment in insertion order.
func (r *Repository) ListTrials(ctx context.Context, experimentID string) ([]Trial, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, experiment_id, variant, success, rating, created_at
		 FROM experiment_trials WHERE experiment_id = ? ORDER BY id`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer rows.Close()

	var out []Trial
	for rows.Next() {
		var t Trial
		if err := rows.Scan(&t.ID, &t.ExperimentID, &t.Variant, &t.Success, &t.Rating, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
