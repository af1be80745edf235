package main

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/tripcrew/orchestrator"
	"github.com/effective-security/tripcrew/pkg/llmfactory"
	"github.com/effective-security/tripcrew/server"
	"github.com/effective-security/tripcrew/store"
	"github.com/effective-security/tripcrew/tools/tavily"
	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
)

// Default LLM provider
const (
	DefaultProviderName = "gemini"
	DefaultModel        = "gemini-2.5-flash"
)

// Config of the process
type Config struct {
	HTTP         server.Config       `json:"http" yaml:"http"`
	Orchestrator orchestrator.Config `json:"orchestrator" yaml:"orchestrator"`
	Agents       AgentsConfig        `json:"agents" yaml:"agents"`
	Store        store.Config        `json:"store" yaml:"store"`
	LLM          llmfactory.Config   `json:"llm" yaml:"llm"`
	Search       SearchConfig        `json:"search" yaml:"search"`
}

// AgentsConfig specifies the limits of agent calls
type AgentsConfig struct {
	MaxToolCalls      int     `json:"max_tool_calls" yaml:"max_tool_calls"`
	MaxMessages       int     `json:"max_messages" yaml:"max_messages"`
	MaxContentSize    int     `json:"max_content_size" yaml:"max_content_size"`
	MaxEmptyResponses int     `json:"max_empty_responses" yaml:"max_empty_responses"`
	Temperature       float64 `json:"temperature" yaml:"temperature"`
}

// SearchConfig specifies the web search tool
type SearchConfig struct {
	TavilyAPIKey string `json:"tavily_api_key" yaml:"tavily_api_key"`
	SearchDepth  string `json:"search_depth" yaml:"search_depth"`
	BaseURL      string `json:"base_url" yaml:"base_url"`
}

// LoadConfig returns the config from file, or the defaults when file is empty
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file != "" {
		if err := configloader.UnmarshalAndExpand(file, cfg); err != nil {
			return nil, errors.WithMessagef(err, "failed to load config %s", file)
		}
	}

	if len(cfg.LLM.Providers) == 0 {
		cfg.LLM.Providers = []*llmfactory.ProviderConfig{
			{
				Name:            DefaultProviderName,
				DefaultModel:    DefaultModel,
				AvailableModels: []string{DefaultModel},
				OpenAI:          llmfactory.OpenAIConfig{APIType: "GOOGLEAI"},
			},
		}
	}
	cfg.LLM.DefaultProvider = values.StringsCoalesce(cfg.LLM.DefaultProvider, cfg.LLM.Providers[0].Name)
	cfg.Search.TavilyAPIKey = values.StringsCoalesce(cfg.Search.TavilyAPIKey, os.Getenv(tavily.APIKeyEnvVarName))
	return cfg, nil
}

// Validate fails when a credential required at startup is missing
func (c *Config) Validate() error {
	if c.Search.TavilyAPIKey == "" {
		return errors.Errorf("%s is not set", tavily.APIKeyEnvVarName)
	}

	p := c.LLM.GetDefaultProvider()
	if p == nil {
		return errors.New("no LLM providers configured")
	}
	if p.ResolveToken() == "" {
		envs := p.CredentialEnvVars()
		if len(envs) == 0 {
			return errors.Errorf("model credential is not set: provider %s requires a token", p.Name)
		}
		return errors.Errorf("model credential is not set: provider %s requires a token or %s",
			p.Name, strings.Join(envs, " or "))
	}
	return nil
}
