package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/modelarena/modelarena/internal/api"
	"github.com/modelarena/modelarena/internal/database"
	"github.com/modelarena/modelarena/internal/provider"
	"github.com/modelarena/modelarena/internal/registry"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "modelarena.db"
	}

	repo, err := database.NewRepository(dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer repo.Close()

	reg, err := buildRegistry(context.Background())
	if err != nil {
		log.Fatalf("configure models: %v", err)
	}
	log.Printf("registered models: %v", reg.IDs())

	srv := api.NewServer(reg, repo)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	srv.RegisterRoutes(mux)

	log.Printf("ModelArena API server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// buildRegistry registers one model per configured provider. At least one
// provider key must be present; serving with no models is a config error.
func buildRegistry(ctx context.Context) (*registry.Registry, error) {
	reg := registry.New()

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		modelID := os.Getenv("GEMINI_MODEL_ID")
		if modelID == "" {
			modelID = "gemini-2.0-flash"
		}
		m, err := provider.NewGeminiModel(modelID, key)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		modelID := os.Getenv("OPENAI_MODEL_ID")
		if modelID == "" {
			modelID = "gpt-4o-mini"
		}
		m, err := provider.NewOpenAIModel(modelID, key)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}

	if modelID := os.Getenv("BEDROCK_MODEL_ID"); modelID != "" {
		m, err := provider.NewBedrockModel(ctx, modelID, os.Getenv("AWS_REGION"))
		if err != nil {
			return nil, err
		}
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}

	if len(reg.IDs()) == 0 {
		return nil, fmt.Errorf("no provider configured: set GEMINI_API_KEY, OPENAI_API_KEY, or BEDROCK_MODEL_ID")
	}
	return reg, nil
}
