package database

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "arena.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func strptr(s string) *string { return &s }
func intptr(i int) *int       { return &i }

func TestInsertGenerationAndAggregates(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	recs := []GenerationRecord{
		{ID: "g1", ModelID: "m1", Prompt: "p1", Response: strptr("r1"), Tokens: 100, Cost: 0.01, LatencySeconds: 1.0, Success: true},
		{ID: "g2", ModelID: "m1", Prompt: "p2", Response: strptr("r2"), Tokens: 200, Cost: 0.02, LatencySeconds: 3.0, Success: true},
		{ID: "g3", ModelID: "m1", Prompt: "p3", Tokens: 0, Cost: 0, LatencySeconds: 0.5, Success: false},
		{ID: "g4", ModelID: "m2", Prompt: "p4", Response: strptr("r4"), Tokens: 50, Cost: 0.005, LatencySeconds: 2.0, Success: true},
	}
	for i := range recs {
		if err := repo.InsertGeneration(ctx, &recs[i]); err != nil {
			t.Fatalf("InsertGeneration(%s): %v", recs[i].ID, err)
		}
	}

	m, err := repo.ModelMetrics(ctx, "m1")
	if err != nil {
		t.Fatalf("ModelMetrics: %v", err)
	}
	if m.TotalRequests != 3 {
		t.Errorf("total_requests = %d, want 3", m.TotalRequests)
	}
	if want := 1.5; math.Abs(m.AvgLatencySeconds-want) > 1e-9 {
		t.Errorf("avg_latency = %v, want %v", m.AvgLatencySeconds, want)
	}
	if want := 100.0; math.Abs(m.AvgTokens-want) > 1e-9 {
		t.Errorf("avg_tokens = %v, want %v", m.AvgTokens, want)
	}
	if want := 100.0 * 2 / 3; math.Abs(m.SuccessRate-want) > 1e-9 {
		t.Errorf("success_rate = %v, want %v", m.SuccessRate, want)
	}

	c, err := repo.ModelCosts(ctx, "m1")
	if err != nil {
		t.Fatalf("ModelCosts: %v", err)
	}
	if math.Abs(c.TotalCost-0.03) > 1e-9 || c.TotalTokens != 300 {
		t.Errorf("costs = %+v, want total_cost 0.03, total_tokens 300", c)
	}

	total, err := repo.TotalCost(ctx)
	if err != nil {
		t.Fatalf("TotalCost: %v", err)
	}
	if math.Abs(total-0.035) > 1e-9 {
		t.Errorf("total cost = %v, want 0.035", total)
	}

	all, err := repo.AllMetrics(ctx)
	if err != nil {
		t.Fatalf("AllMetrics: %v", err)
	}
	if len(all) != 2 || all[0].ModelID != "m1" || all[1].ModelID != "m2" {
		t.Errorf("AllMetrics = %+v, want m1 then m2", all)
	}
}

func TestDailyCosts(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Costs are powers of two so the sums below are exact.
	recs := []GenerationRecord{
		{ID: "d1", ModelID: "m1", Prompt: "p", Tokens: 10, Cost: 0.25, LatencySeconds: 1, Success: true, CreatedAt: now},
		{ID: "d2", ModelID: "m2", Prompt: "p", Tokens: 30, Cost: 0.125, LatencySeconds: 1, Success: true, CreatedAt: now},
		{ID: "d3", ModelID: "m1", Prompt: "p", Tokens: 20, Cost: 0.5, LatencySeconds: 1, Success: true, CreatedAt: now.AddDate(0, 0, -1)},
		{ID: "d4", ModelID: "m1", Prompt: "p", Tokens: 40, Cost: 1, LatencySeconds: 1, Success: true, CreatedAt: now.AddDate(0, 0, -10)},
	}
	for i := range recs {
		if err := repo.InsertGeneration(ctx, &recs[i]); err != nil {
			t.Fatalf("InsertGeneration(%s): %v", recs[i].ID, err)
		}
	}

	daily, err := repo.DailyCosts(ctx, 7)
	if err != nil {
		t.Fatalf("DailyCosts: %v", err)
	}
	if len(daily) != 2 {
		t.Fatalf("len(daily) = %d, want 2 (the 10-day-old record is outside the window)", len(daily))
	}
	yesterday, today := daily[0], daily[1]
	if yesterday.Day != now.AddDate(0, 0, -1).Format("2006-01-02") || yesterday.TotalRequests != 1 ||
		yesterday.TotalCost != 0.5 || yesterday.TotalTokens != 20 {
		t.Errorf("yesterday = %+v", yesterday)
	}
	if today.Day != now.Format("2006-01-02") || today.TotalRequests != 2 ||
		today.TotalCost != 0.375 || today.TotalTokens != 40 {
		t.Errorf("today = %+v", today)
	}
}

func TestMetricsForUnknownModel(t *testing.T) {
	repo := testRepo(t)
	m, err := repo.ModelMetrics(context.Background(), "never-called")
	if err != nil {
		t.Fatalf("ModelMetrics: %v", err)
	}
	if m.TotalRequests != 0 || m.SuccessRate != 0 || m.AvgLatencySeconds != 0 {
		t.Errorf("metrics for unknown model = %+v, want zeroes", m)
	}
}

func TestInsertGenerationRejectsNegatives(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	tests := []GenerationRecord{
		{ID: "bad1", ModelID: "m1", Prompt: "p", Tokens: -1, Cost: 0},
		{ID: "bad2", ModelID: "m1", Prompt: "p", Tokens: 0, Cost: -0.01},
	}
	for _, rec := range tests {
		if err := repo.InsertGeneration(ctx, &rec); err == nil {
			t.Errorf("InsertGeneration(%s): expected error for negative values", rec.ID)
		}
	}
}

func TestWorkflowRunRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	run := &WorkflowRun{
		ID:         "wr1",
		WorkflowID: "content_generation",
		Steps: []StepResult{
			{Step: 1, ModelID: "m1", Operation: "outline", Prompt: "p1", Response: "r1", Tokens: 10, Cost: 0.001, LatencySeconds: 0.5},
			{Step: 2, ModelID: "m1", Operation: "draft", Prompt: "p2", Response: "r2", Tokens: 20, Cost: 0.002, LatencySeconds: 0.7},
		},
		FinalOutput: "r2",
		TotalTokens: 30,
		TotalCost:   0.003,
		Success:     true,
	}
	if err := repo.InsertWorkflowRun(ctx, run); err != nil {
		t.Fatalf("InsertWorkflowRun: %v", err)
	}

	runs, err := repo.ListWorkflowRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListWorkflowRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	got := runs[0]
	if got.WorkflowID != "content_generation" || !got.Success || got.FinalOutput != "r2" {
		t.Errorf("run = %+v", got)
	}
	if len(got.Steps) != 2 || got.Steps[1].Operation != "draft" {
		t.Errorf("steps = %+v", got.Steps)
	}
}

func TestComparisonRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	winner := "m1"
	c := &Comparison{
		ID:     "cmp1",
		Prompt: "which model is cheaper",
		Results: []ComparisonResult{
			{ModelID: "m1", Response: strptr("a"), Tokens: 10, Cost: 0.001, LatencySeconds: 1.0, Success: true},
			{ModelID: "m2", Success: false},
		},
		Winner: &winner,
	}
	if err := repo.InsertComparison(ctx, c); err != nil {
		t.Fatalf("InsertComparison: %v", err)
	}

	list, err := repo.ListComparisons(ctx, 5)
	if err != nil {
		t.Fatalf("ListComparisons: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1", len(list))
	}
	got := list[0]
	if got.Winner == nil || *got.Winner != "m1" {
		t.Errorf("winner = %v, want m1", got.Winner)
	}
	if len(got.Results) != 2 || got.Results[1].Success {
		t.Errorf("results = %+v", got.Results)
	}
}

func TestExperimentCountersAgreeWithTrials(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	e := &Experiment{ID: "exp1", Name: "test", VariantAModel: "m1", VariantBModel: "m2"}
	if err := repo.CreateExperiment(ctx, e); err != nil {
		t.Fatalf("CreateExperiment: %v", err)
	}

	trials := []Trial{
		{ExperimentID: "exp1", Variant: "A", Success: true, Rating: intptr(5)},
		{ExperimentID: "exp1", Variant: "A", Success: false},
		{ExperimentID: "exp1", Variant: "B", Success: true, Rating: intptr(3)},
		{ExperimentID: "exp1", Variant: "B", Success: true},
		{ExperimentID: "exp1", Variant: "B", Success: false, Rating: intptr(1)},
	}
	for i := range trials {
		if err := repo.RecordTrial(ctx, &trials[i]); err != nil {
			t.Fatalf("RecordTrial(%d): %v", i, err)
		}
	}

	got, err := repo.GetExperiment(ctx, "exp1")
	if err != nil {
		t.Fatalf("GetExperiment: %v", err)
	}
	if got.ATotal != 2 || got.ASuccess != 1 || got.ARatingSum != 5 || got.ARatingCount != 1 {
		t.Errorf("A counters = %+v", got)
	}
	if got.BTotal != 3 || got.BSuccess != 2 || got.BRatingSum != 4 || got.BRatingCount != 2 {
		t.Errorf("B counters = %+v", got)
	}

	// Counters must agree with a recompute from the trial rows.
	rows, err := repo.ListTrials(ctx, "exp1")
	if err != nil {
		t.Fatalf("ListTrials: %v", err)
	}
	var aTotal, aSuccess, bTotal, bSuccess int
	for _, tr := range rows {
		if tr.Variant == "A" {
			aTotal++
			if tr.Success {
				aSuccess++
			}
		} else {
			bTotal++
			if tr.Success {
				bSuccess++
			}
		}
	}
	if aTotal != got.ATotal || aSuccess != got.ASuccess || bTotal != got.BTotal || bSuccess != got.BSuccess {
		t.Errorf("recomputed counters (%d/%d, %d/%d) disagree with stored (%d/%d, %d/%d)",
			aTotal, aSuccess, bTotal, bSuccess, got.ATotal, got.ASuccess, got.BTotal, got.BSuccess)
	}
}

func TestRecordTrialUnknownExperiment(t *testing.T) {
	repo := testRepo(t)
	err := repo.RecordTrial(context.Background(), &Trial{ExperimentID: "missing", Variant: "A", Success: true})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v, want not-found error", err)
	}
}

func TestRecordTrialInvalidVariant(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	if err := repo.CreateExperiment(ctx, &Experiment{ID: "exp1", Name: "t", VariantAModel: "m1", VariantBModel: "m2"}); err != nil {
		t.Fatal(err)
	}
	err := repo.RecordTrial(ctx, &Trial{ExperimentID: "exp1", Variant: "C", Success: true})
	if err == nil {
		t.Error("expected error for variant C")
	}
}

func TestGetExperimentNotFound(t *testing.T) {
	repo := testRepo(t)
	e, err := repo.GetExperiment(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetExperiment: %v", err)
	}
	if e != nil {
		t.Errorf("experiment = %+v, want nil", e)
	}
}
