package orchestrator

import (
	"time"
)

const (
	// DefaultTimeout bounds a team resolution
	DefaultTimeout = 60 * time.Second
	// DefaultResearchAttempts is the number of market research attempts
	DefaultResearchAttempts = 3
)

// Config of the Service
type Config struct {
	// Timeout bounds each team resolution, including each research attempt
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	// ResearchAttempts is the number of market research attempts
	ResearchAttempts int `json:"research_attempts" yaml:"research_attempts"`
}
