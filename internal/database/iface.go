package database

import "context"

// Repo defines the interface for persisted arena data. The concrete
// *Repository satisfies this interface. Use this interface as a
// dependency in consumers to enable testing with mocks.
type Repo interface {
	InsertGeneration(ctx context.Context, rec *GenerationRecord) error

	InsertWorkflowRun(ctx context.Context, run *WorkflowRun) error
	ListWorkflowRuns(ctx context.Context, limit int) ([]WorkflowRun, error)

	InsertComparison(ctx context.Context, c *Comparison) error
	ListComparisons(ctx context.Context, limit int) ([]Comparison, error)

	CreateExperiment(ctx context.Context, e *Experiment) error
	GetExperiment(ctx context.Context, id string) (*Experiment, error)
	ListExperiments(ctx context.Context) ([]Experiment, error)
	RecordTrial(ctx context.Context, trial *Trial) error
	ListTrials(ctx context.Context, experimentID string) ([]Trial, error)

	ModelMetrics(ctx context.Context, modelID string) (*ModelMetrics, error)
	AllMetrics(ctx context.Context) ([]ModelMetrics, error)
	ModelCosts(ctx context.Context, modelID string) (*ModelCosts, error)
	AllCosts(ctx context.Context) ([]ModelCosts, error)
	DailyCosts(ctx context.Context, days int) ([]DailyCost, error)
	TotalCost(ctx context.Context) (float64, error)

	Close() error
}

// Compile-time check that *Repository implements Repo.
var _ Repo = (*Repository)(nil)
