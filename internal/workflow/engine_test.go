package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/modelarena/modelarena/internal/database"
	"github.com/modelarena/modelarena/internal/provider"
	"github.com/modelarena/modelarena/internal/registry"
)

func testEngine(t *testing.T, models ...provider.Model) (*Engine, *database.MockRepo) {
	t.Helper()
	reg := registry.New()
	for _, m := range models {
		if err := reg.Register(m); err != nil {
			t.Fatalf("register %s: %v", m.ID(), err)
		}
	}
	repo := database.NewMockRepo()
	return New(reg, repo), repo
}

func TestExecuteChainsStepOutputs(t *testing.T) {
	m := &provider.MockModel{ModelID: "m1", Response: "response text", Latency: 0.1}
	eng, repo := testEngine(t, m)

	steps := []Step{
		{ModelID: "m1", Operation: "outline", PromptTemplate: "Outline: {input}"},
		{ModelID: "m1", Operation: "draft", PromptTemplate: "Draft from: {input}"},
	}
	run, err := eng.Execute(context.Background(), "test_flow", steps, "go generics")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !run.Success || len(run.Steps) != 2 {
		t.Fatalf("run = %+v", run)
	}
	if run.FinalOutput != "response text" {
		t.Errorf("final output = %q", run.FinalOutput)
	}

	prompts := m.Prompts()
	if prompts[0] != "Outline: go generics" {
		t.Errorf("step 1 prompt = %q", prompts[0])
	}
	// The second step's {input} is the first step's response.
	if prompts[1] != "Draft from: response text" {
		t.Errorf("step 2 prompt = %q", prompts[1])
	}

	if got := repo.WorkflowRuns(); len(got) != 1 || !got[0].Success {
		t.Errorf("persisted runs = %+v", got)
	}
	if got := repo.Generations(); len(got) != 2 {
		t.Errorf("logged %d generations, want 2", len(got))
	}
}

func TestExecuteInitialPlaceholder(t *testing.T) {
	m := &provider.MockModel{ModelID: "m1", Response: "translated"}
	eng, _ := testEngine(t, m)

	steps := []Step{
		{ModelID: "m1", Operation: "translate", PromptTemplate: "Translate: {input}"},
		{ModelID: "m1", Operation: "review", PromptTemplate: "Original: {initial} Translation: {input}"},
	}
	if _, err := eng.Execute(context.Background(), "translation", steps, "hola"); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	prompts := m.Prompts()
	if want := "Original: hola Translation: translated"; prompts[1] != want {
		t.Errorf("step 2 prompt = %q, want %q", prompts[1], want)
	}
}

func TestExecuteTruncatesOnStepFailure(t *testing.T) {
	ok := &provider.MockModel{ModelID: "good", Response: "step one output", Latency: 0.1}
	bad := &provider.MockModel{ModelID: "bad", FailWith: errors.New("quota exceeded")}
	eng, repo := testEngine(t, ok, bad)

	steps := []Step{
		{ModelID: "good", Operation: "s1", PromptTemplate: "{input}"},
		{ModelID: "bad", Operation: "s2", PromptTemplate: "{input}"},
		{ModelID: "good", Operation: "s3", PromptTemplate: "{input}"},
	}
	run, err := eng.Execute(context.Background(), "flaky", steps, "start")
	if err == nil {
		t.Fatal("expected error from failing step")
	}
	if !strings.Contains(err.Error(), "s2") {
		t.Errorf("err = %v, want step operation named", err)
	}

	if run.Success {
		t.Error("run marked success after failure")
	}
	if len(run.Steps) != 1 {
		t.Fatalf("kept %d steps, want 1 completed step", len(run.Steps))
	}
	if run.FinalOutput != "step one output" {
		t.Errorf("final output = %q, want last completed step's output", run.FinalOutput)
	}

	// The failed run is persisted and the failed attempt is logged.
	if got := repo.WorkflowRuns(); len(got) != 1 || got[0].Success {
		t.Errorf("persisted runs = %+v", got)
	}
	gens := repo.Generations()
	if len(gens) != 2 {
		t.Fatalf("logged %d generations, want 2", len(gens))
	}
	if gens[1].Success || gens[1].Response != nil {
		t.Errorf("failed attempt logged as %+v", gens[1])
	}
}

func TestExecuteFirstStepFailure(t *testing.T) {
	bad := &provider.MockModel{ModelID: "bad", FailWith: errors.New("boom")}
	eng, _ := testEngine(t, bad)

	run, err := eng.Execute(context.Background(), "wf", []Step{{ModelID: "bad", Operation: "only", PromptTemplate: "{input}"}}, "x")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(run.Steps) != 0 || run.FinalOutput != "" {
		t.Errorf("run = %+v, want no steps and empty output", run)
	}
}

func TestExecuteUnknownModel(t *testing.T) {
	eng, repo := testEngine(t)

	_, err := eng.Execute(context.Background(), "wf", []Step{{ModelID: "ghost", Operation: "s1", PromptTemplate: "{input}"}}, "x")
	if !errors.Is(err, registry.ErrUnknownModel) {
		t.Errorf("err = %v, want ErrUnknownModel", err)
	}
	// No model was invoked, so nothing is logged as a generation.
	if got := repo.Generations(); len(got) != 0 {
		t.Errorf("logged %d generations, want 0", len(got))
	}
}

func TestExecuteEmptySteps(t *testing.T) {
	eng, _ := testEngine(t)
	if _, err := eng.Execute(context.Background(), "wf", nil, "x"); err == nil {
		t.Error("expected error for empty step list")
	}
}

func TestExecuteTotalsAccumulate(t *testing.T) {
	m := &provider.MockModel{ModelID: "m1", Response: "four byte pairs!", FixedCost: 0.01}
	eng, _ := testEngine(t, m)

	steps := []Step{
		{ModelID: "m1", Operation: "a", PromptTemplate: "{input}"},
		{ModelID: "m1", Operation: "b", PromptTemplate: "{input}"},
	}
	run, err := eng.Execute(context.Background(), "wf", steps, "initial prompt")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var tokens int
	var cost float64
	for _, s := range run.Steps {
		tokens += s.Tokens
		cost += s.Cost
	}
	if run.TotalTokens != tokens || run.TotalCost != cost {
		t.Errorf("totals (%d, %v) do not match step sums (%d, %v)", run.TotalTokens, run.TotalCost, tokens, cost)
	}
}
