package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modelarena/modelarena/internal/database"
	"github.com/modelarena/modelarena/internal/registry"
)

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"models": []string{"a", "b"}, "count": 2})
	}))
	defer srv.Close()

	models, err := New(srv.URL).ListModels(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(models) != 2 || models[0] != "a" {
		t.Errorf("models = %v", models)
	}
}

func TestModelInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/models/m1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(registry.Info{ModelID: "m1", Provider: "google"})
	}))
	defer srv.Close()

	info, err := New(srv.URL).ModelInfo(context.Background(), "m1")
	if err != nil {
		t.Fatal(err)
	}
	if info.ModelID != "m1" || info.Provider != "google" {
		t.Errorf("info = %+v", info)
	}
}

func TestDailyCosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/costs/daily" || r.URL.Query().Get("days") != "30" {
			t.Errorf("unexpected request: %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"days":  30,
			"daily": []database.DailyCost{{Day: "2026-08-29", TotalRequests: 4, TotalCost: 0.02}},
		})
	}))
	defer srv.Close()

	daily, err := New(srv.URL).DailyCosts(context.Background(), 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(daily) != 1 || daily[0].Day != "2026-08-29" || daily[0].TotalRequests != 4 {
		t.Errorf("daily = %+v", daily)
	}
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "m1" || req.Prompt != "hello" {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(GenerateResult{Model: "m1", Response: "hi", Tokens: 4, Cost: 0.001})
	}))
	defer srv.Close()

	result, err := New(srv.URL).Generate(context.Background(), "m1", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if result.Response != "hi" || result.Tokens != 4 {
		t.Errorf("result = %+v", result)
	}
}

func TestGenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("chunk one "))
		w.Write([]byte("chunk two"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	if err := New(srv.URL).GenerateStream(context.Background(), "m1", "hello", &buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "chunk one chunk two" {
		t.Errorf("body = %q", buf.String())
	}
}

func TestCreateExperiment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"experiment_id": "exp-1"})
	}))
	defer srv.Close()

	id, err := New(srv.URL).CreateExperiment(context.Background(), "n", "a", "b")
	if err != nil {
		t.Fatal(err)
	}
	if id != "exp-1" {
		t.Errorf("id = %q", id)
	}
}

func TestListWorkflowsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit = %q, want 5", got)
		}
		json.NewEncoder(w).Encode([]database.WorkflowRun{{ID: "wr1"}})
	}))
	defer srv.Close()

	runs, err := New(srv.URL).ListWorkflows(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("runs = %+v", runs)
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "unknown model: ghost"})
	}))
	defer srv.Close()

	_, err := New(srv.URL).Generate(context.Background(), "ghost", "x")
	if err == nil {
		t.Fatal("expected error")
	}
	want := "API error 404: unknown model: ghost"
	if err.Error() != want {
		t.Errorf("err = %q, want %q", err.Error(), want)
	}
}

func TestBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("threshold"); got != "0.5" {
			t.Errorf("threshold = %q", got)
		}
		json.NewEncoder(w).Encode(BudgetStatus{TotalCost: 0.75, Threshold: 0.5, Alert: true})
	}))
	defer srv.Close()

	status, err := New(srv.URL).Budget(context.Background(), 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if !status.Alert || status.TotalCost != 0.75 {
		t.Errorf("status = %+v", status)
	}
}
