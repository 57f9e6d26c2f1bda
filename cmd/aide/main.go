package main

import (
	"log"

	"github.com/joho/godotenv"

	"aide/internal/cli"
	"aide/internal/config"
	"aide/internal/llm_client"
	"aide/internal/logger"
)

func main() {
	// .env is optional; API keys can come from the real environment.
	_ = godotenv.Load()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Fatal Error: Could not load config: %v", err)
	}

	if err := logger.Init(cfg.LogFile, cfg.LogDebug); err != nil {
		log.Fatalf("Fatal Error: Could not initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := llm_client.Init(llm_client.Config{
		Backend:    cfg.LLMBackend,
		Model:      cfg.LLMModel,
		OllamaHost: cfg.OllamaHost,
	}); err != nil {
		log.Fatalf("Fatal Error: Could not initialize LLM client: %v", err)
	}

	cli.Execute(cfg)
}
