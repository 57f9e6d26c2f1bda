// Package config loads runtime settings from an optional aide.yaml plus
// AIDE_* environment overrides. Missing file means defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// LLM backend: "gemini", "ollama" or "none" (rule tables only).
	LLMBackend string
	LLMModel   string
	OllamaHost string

	// Bounded per-session memory: max recent URLs/objects/intents kept.
	ContextWindow int

	// Minimum rewrite confidence before a normalization is accepted.
	NormalizerThreshold float64

	// How long a proposed mission waits for a human decision.
	ApprovalTimeout time.Duration

	// How long a pending clarification stays answerable.
	ClarificationTTL time.Duration

	LogFile  string
	LogDebug bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.backend", "none")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.ollama_host", "http://localhost:11434")
	v.SetDefault("session.context_window", 10)
	v.SetDefault("normalizer.threshold", 0.6)
	v.SetDefault("approval.timeout", "5m")
	v.SetDefault("clarification.ttl", "2m")
	v.SetDefault("log.file", "aide.log")
	v.SetDefault("log.debug", false)
}

// Load reads aide.yaml from dir (or defaults when absent) and applies
// environment overrides such as AIDE_LLM_BACKEND.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("aide")
	v.SetConfigType("yaml")
	if dir == "" {
		dir = "."
	}
	v.AddConfigPath(dir)

	v.SetEnvPrefix("AIDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading aide.yaml: %w", err)
		}
	}

	cfg := &Config{
		LLMBackend:          strings.ToLower(strings.TrimSpace(v.GetString("llm.backend"))),
		LLMModel:            v.GetString("llm.model"),
		OllamaHost:          v.GetString("llm.ollama_host"),
		ContextWindow:       v.GetInt("session.context_window"),
		NormalizerThreshold: v.GetFloat64("normalizer.threshold"),
		ApprovalTimeout:     v.GetDuration("approval.timeout"),
		ClarificationTTL:    v.GetDuration("clarification.ttl"),
		LogFile:             v.GetString("log.file"),
		LogDebug:            v.GetBool("log.debug"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LLMBackend {
	case "gemini", "ollama", "none":
	default:
		return fmt.Errorf("unsupported LLM backend: %s", c.LLMBackend)
	}
	if c.ContextWindow < 1 {
		return fmt.Errorf("session.context_window must be at least 1, got %d", c.ContextWindow)
	}
	if c.NormalizerThreshold < 0 || c.NormalizerThreshold > 1 {
		return fmt.Errorf("normalizer.threshold must be within [0,1], got %f", c.NormalizerThreshold)
	}
	if c.ApprovalTimeout <= 0 {
		return fmt.Errorf("approval.timeout must be positive")
	}
	if c.ClarificationTTL <= 0 {
		return fmt.Errorf("clarification.ttl must be positive")
	}
	return nil
}
