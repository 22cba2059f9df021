// Command demo exercises the full stack against live providers: one
// generation, a workflow, a comparison when two or more providers are
// configured, an A/B experiment with simulated traffic, then a metrics and
// cost summary.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/modelarena/modelarena/internal/comparison"
	"github.com/modelarena/modelarena/internal/database"
	"github.com/modelarena/modelarena/internal/experiment"
	"github.com/modelarena/modelarena/internal/monitoring"
	"github.com/modelarena/modelarena/internal/provider"
	"github.com/modelarena/modelarena/internal/registry"
	"github.com/modelarena/modelarena/internal/workflow"
)

func main() {
	_ = godotenv.Load()

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "demo.db"
	}
	repo, err := database.NewRepository(dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	reg := registry.New()

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		m, err := provider.NewGeminiModel("gemini-2.0-flash", key)
		if err != nil {
			log.Fatalf("gemini: %v", err)
		}
		must(reg.Register(m))
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		m, err := provider.NewOpenAIModel("gpt-4o-mini", key)
		if err != nil {
			log.Fatalf("openai: %v", err)
		}
		must(reg.Register(m))
	}
	if modelID := os.Getenv("BEDROCK_MODEL_ID"); modelID != "" {
		m, err := provider.NewBedrockModel(ctx, modelID, os.Getenv("AWS_REGION"))
		if err != nil {
			log.Fatalf("bedrock: %v", err)
		}
		must(reg.Register(m))
	}

	ids := reg.IDs()
	if len(ids) == 0 {
		log.Fatal("no provider configured: set GEMINI_API_KEY, OPENAI_API_KEY, or BEDROCK_MODEL_ID")
	}
	fmt.Printf("=== Registered models: %v ===\n\n", ids)

	primary, _ := reg.Get(ids[0])

	// 1. Direct generation.
	fmt.Println("--- Generation ---")
	result, err := primary.Generate(ctx, "Explain what a mutex is in one sentence.", provider.DefaultOptions())
	if err != nil {
		log.Fatalf("generate: %v", err)
	}
	fmt.Printf("%s\n(%d tokens, $%.6f, %.2fs)\n\n", result.Response, result.Tokens, result.Cost, result.LatencySeconds)

	// 2. Workflow.
	fmt.Println("--- Workflow: analysis ---")
	engine := workflow.New(reg, repo)
	run, err := engine.ExecuteTemplate(ctx, "analysis", ids[0],
		"Go's race detector instruments memory accesses at compile time and reports conflicting unsynchronized accesses at runtime.")
	if err != nil {
		log.Fatalf("workflow: %v", err)
	}
	for _, s := range run.Steps {
		fmt.Printf("step %d (%s): %d tokens, $%.6f\n", s.Step, s.Operation, s.Tokens, s.Cost)
	}
	fmt.Printf("final output: %s\n\n", run.FinalOutput)

	// 3. Comparison, when at least two models are registered.
	if len(ids) >= 2 {
		fmt.Println("--- Comparison ---")
		cmp, err := comparison.New(reg, repo).Compare(ctx, ids, "Name three Go proverbs.")
		if err != nil {
			log.Fatalf("compare: %v", err)
		}
		for _, leg := range cmp.Results {
			fmt.Printf("%s: success=%t cost=$%.6f latency=%.2fs\n", leg.ModelID, leg.Success, leg.Cost, leg.LatencySeconds)
		}
		if cmp.Winner != nil {
			fmt.Printf("winner: %s\n\n", *cmp.Winner)
		} else {
			fmt.Println("winner: none")
		}
	}

	// 4. Experiment with simulated traffic.
	fmt.Println("--- Experiment ---")
	modelB := ids[0]
	if len(ids) >= 2 {
		modelB = ids[1]
	}
	mgr := experiment.New(reg, repo)
	exp, err := mgr.Create(ctx, "demo experiment", ids[0], modelB)
	if err != nil {
		log.Fatalf("create experiment: %v", err)
	}
	for i := 0; i < 20; i++ {
		userID := fmt.Sprintf("user-%d", i)
		variant := experiment.AssignVariant(exp.ID, userID)
		// Simulated outcomes: variant A converts more often.
		success := i%3 != 0
		if variant == "B" {
			success = i%2 == 0
		}
		rating := 3 + i%3
		if err := mgr.RecordResult(ctx, exp.ID, variant, success, &rating); err != nil {
			log.Fatalf("record trial: %v", err)
		}
	}
	stats, err := mgr.GetStats(ctx, exp.ID)
	if err != nil {
		log.Fatalf("stats: %v", err)
	}
	fmt.Printf("A (%s): %d trials, %.1f%% conversion, %.2f avg rating\n",
		stats.VariantAModel, stats.ATotal, stats.AConversionRate, stats.AAvgRating)
	fmt.Printf("B (%s): %d trials, %.1f%% conversion, %.2f avg rating\n",
		stats.VariantBModel, stats.BTotal, stats.BConversionRate, stats.BAvgRating)
	if stats.Winner != nil {
		fmt.Printf("winner: %s\n\n", *stats.Winner)
	} else {
		fmt.Println("winner: undetermined")
	}

	// 5. Metrics and cost summary.
	fmt.Println("--- Usage summary ---")
	tracker := monitoring.New(repo)
	all, err := tracker.AllMetrics(ctx)
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}
	for _, m := range all {
		fmt.Printf("%s: %d requests, %.2fs avg latency, %.1f%% success\n",
			m.ModelID, m.TotalRequests, m.AvgLatencySeconds, m.SuccessRate)
	}
	total, err := tracker.TotalCost(ctx)
	if err != nil {
		log.Fatalf("costs: %v", err)
	}
	fmt.Printf("total spend: $%.6f\n", total)

	status, err := tracker.CheckBudgetAlert(ctx, 1.00)
	if err != nil {
		log.Fatalf("budget: %v", err)
	}
	if status.Alert {
		fmt.Println("budget alert: spend exceeds $1.00")
	}
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
