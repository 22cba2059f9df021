package experiment

import (
	"context"
	"errors"
	"testing"

	"github.com/modelarena/modelarena/internal/database"
	"github.com/modelarena/modelarena/internal/provider"
	"github.com/modelarena/modelarena/internal/registry"
)

func testManager(t *testing.T, models ...provider.Model) (*Manager, *database.MockRepo) {
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

func twoModels() (*provider.MockModel, *provider.MockModel) {
	return &provider.MockModel{ModelID: "model-a", Response: "from a"},
		&provider.MockModel{ModelID: "model-b", Response: "from b"}
}

func intp(i int) *int { return &i }

func TestCreateExperiment(t *testing.T) {
	a, b := twoModels()
	mgr, _ := testManager(t, a, b)

	e, err := mgr.Create(context.Background(), "headline test", "model-a", "model-b")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.ID == "" || e.VariantAModel != "model-a" || e.VariantBModel != "model-b" {
		t.Errorf("experiment = %+v", e)
	}
}

func TestCreateRejectsUnknownModel(t *testing.T) {
	a, _ := twoModels()
	mgr, _ := testManager(t, a)

	_, err := mgr.Create(context.Background(), "bad", "model-a", "ghost")
	if !errors.Is(err, registry.ErrUnknownModel) {
		t.Errorf("err = %v, want ErrUnknownModel", err)
	}
}

func TestRecordResultValidation(t *testing.T) {
	a, b := twoModels()
	mgr, _ := testManager(t, a, b)
	ctx := context.Background()

	e, err := mgr.Create(ctx, "exp", "model-a", "model-b")
	if err != nil {
		t.Fatal(err)
	}

	if err := mgr.RecordResult(ctx, e.ID, "C", true, nil); !errors.Is(err, ErrInvalidVariant) {
		t.Errorf("variant C err = %v, want ErrInvalidVariant", err)
	}
	if err := mgr.RecordResult(ctx, "missing", "A", true, nil); !errors.Is(err, ErrUnknownExperiment) {
		t.Errorf("missing experiment err = %v, want ErrUnknownExperiment", err)
	}
	if err := mgr.RecordResult(ctx, e.ID, "A", true, intp(5)); err != nil {
		t.Errorf("valid record err = %v", err)
	}
}

func TestGetStatsWinnerByConversion(t *testing.T) {
	a, b := twoModels()
	mgr, _ := testManager(t, a, b)
	ctx := context.Background()

	e, err := mgr.Create(ctx, "exp", "model-a", "model-b")
	if err != nil {
		t.Fatal(err)
	}

	// A converts 2/2, B converts 1/3.
	for _, r := range []struct {
		variant string
		success bool
	}{
		{"A", true}, {"A", true},
		{"B", true}, {"B", false}, {"B", false},
	} {
		if err := mgr.RecordResult(ctx, e.ID, r.variant, r.success, nil); err != nil {
			t.Fatal(err)
		}
	}

	s, err := mgr.GetStats(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if s.AConversionRate != 100 {
		t.Errorf("a_conversion_rate = %v, want 100", s.AConversionRate)
	}
	if want := 100.0 / 3; s.BConversionRate < want-0.01 || s.BConversionRate > want+0.01 {
		t.Errorf("b_conversion_rate = %v, want ~%v", s.BConversionRate, want)
	}
	if s.Winner == nil || *s.Winner != "model-a" {
		t.Errorf("winner = %v, want model-a", s.Winner)
	}
}

func TestGetStatsTieBrokenByRating(t *testing.T) {
	a, b := twoModels()
	mgr, _ := testManager(t, a, b)
	ctx := context.Background()

	e, err := mgr.Create(ctx, "exp", "model-a", "model-b")
	if err != nil {
		t.Fatal(err)
	}

	// Both variants convert 1/1; B's rating is higher.
	if err := mgr.RecordResult(ctx, e.ID, "A", true, intp(3)); err != nil {
		t.Fatal(err)
	}
	if err := mgr.RecordResult(ctx, e.ID, "B", true, intp(5)); err != nil {
		t.Fatal(err)
	}

	s, err := mgr.GetStats(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if s.Winner == nil || *s.Winner != "model-b" {
		t.Errorf("winner = %v, want model-b", s.Winner)
	}
	if s.AAvgRating != 3 || s.BAvgRating != 5 {
		t.Errorf("ratings = %v / %v", s.AAvgRating, s.BAvgRating)
	}
}

func TestGetStatsNoTrials(t *testing.T) {
	a, b := twoModels()
	mgr, _ := testManager(t, a, b)
	ctx := context.Background()

	e, err := mgr.Create(ctx, "exp", "model-a", "model-b")
	if err != nil {
		t.Fatal(err)
	}

	s, err := mgr.GetStats(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if s.AConversionRate != 0 || s.BConversionRate != 0 {
		t.Errorf("rates = %v / %v, want 0 / 0", s.AConversionRate, s.BConversionRate)
	}
	if s.Winner != nil {
		t.Errorf("winner = %v, want nil", s.Winner)
	}
}

func TestGetStatsFullTie(t *testing.T) {
	a, b := twoModels()
	mgr, _ := testManager(t, a, b)
	ctx := context.Background()

	e, err := mgr.Create(ctx, "exp", "model-a", "model-b")
	if err != nil {
		t.Fatal(err)
	}
	if err := mgr.RecordResult(ctx, e.ID, "A", true, intp(4)); err != nil {
		t.Fatal(err)
	}
	if err := mgr.RecordResult(ctx, e.ID, "B", true, intp(4)); err != nil {
		t.Fatal(err)
	}

	s, err := mgr.GetStats(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if s.Winner != nil {
		t.Errorf("winner = %v, want nil on full tie", s.Winner)
	}
}

func TestGetStatsUnknownExperiment(t *testing.T) {
	mgr, _ := testManager(t)
	_, err := mgr.GetStats(context.Background(), "missing")
	if !errors.Is(err, ErrUnknownExperiment) {
		t.Errorf("err = %v, want ErrUnknownExperiment", err)
	}
}

func TestGenerateForUserRoutesToVariantModel(t *testing.T) {
	a, b := twoModels()
	mgr, repo := testManager(t, a, b)
	ctx := context.Background()

	e, err := mgr.Create(ctx, "exp", "model-a", "model-b")
	if err != nil {
		t.Fatal(err)
	}

	variant, result, err := mgr.GenerateForUser(ctx, e.ID, "user-1", "write a headline")
	if err != nil {
		t.Fatalf("GenerateForUser: %v", err)
	}
	want := "from a"
	if variant == "B" {
		want = "from b"
	}
	if result.Response != want {
		t.Errorf("response = %q, want %q for variant %s", result.Response, want, variant)
	}
	if variant != AssignVariant(e.ID, "user-1") {
		t.Errorf("variant %s disagrees with router", variant)
	}
	if got := repo.Generations(); len(got) != 1 || !got[0].Success {
		t.Errorf("generations = %+v", got)
	}
}

func TestGenerateForUserFailureLogged(t *testing.T) {
	a := &provider.MockModel{ModelID: "model-a", FailWith: errors.New("down")}
	b := &provider.MockModel{ModelID: "model-b", FailWith: errors.New("down")}
	mgr, repo := testManager(t, a, b)
	ctx := context.Background()

	e, err := mgr.Create(ctx, "exp", "model-a", "model-b")
	if err != nil {
		t.Fatal(err)
	}

	variant, _, err := mgr.GenerateForUser(ctx, e.ID, "user-1", "p")
	if err == nil {
		t.Fatal("expected provider error")
	}
	if variant != "A" && variant != "B" {
		t.Errorf("variant = %q", variant)
	}
	gens := repo.Generations()
	if len(gens) != 1 || gens[0].Success {
		t.Errorf("generations = %+v, want one failed attempt", gens)
	}
}
