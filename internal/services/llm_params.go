package services

import (
	"github.com/Conceptual-Machines/intprep/internal/config"
	"github.com/Conceptual-Machines/intprep/internal/coordination"
)

// LLMParameters contains the sampling configuration shared by every candidate model
type LLMParameters struct {
	Temperature float64
	MaxTokens   int
}

// GetLLMParameters returns the sampling parameters from configuration.
// A nil config or a non-positive token limit falls back to the defaults.
func GetLLMParameters(cfg *config.Config) LLMParameters {
	params := LLMParameters{
		Temperature: config.DefaultTemperature,
		MaxTokens:   config.DefaultMaxTokens,
	}
	if cfg == nil {
		return params
	}
	params.Temperature = cfg.Temperature
	if cfg.MaxTokens > 0 {
		params.MaxTokens = cfg.MaxTokens
	}
	return params
}

// OrchestratorParams converts to the orchestrator's parameter type
func (p LLMParameters) OrchestratorParams() coordination.Params {
	return coordination.Params{
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	}
}

// AsMap returns the parameters for tracing metadata
func (p LLMParameters) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"temperature": p.Temperature,
		"max_tokens":  p.MaxTokens,
	}
}
