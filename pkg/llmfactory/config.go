package llmfactory

import (
	"os"
	"slices"
	"strings"

	"github.com/effective-security/x/configloader"
)

// Config specifies the LLM providers.
type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers"`
	// DefaultProvider specifies the default provider to use
	DefaultProvider string `json:"default_provider" yaml:"default_provider"`
	// AgentModels specifies the mapping of agents to models.
	// key is the agent ID, value is the list of preferred model names.
	// Use `default: [<model_name>]` as the default model for agents.
	AgentModels map[string][]string `json:"agent_models" yaml:"agent_models"`
}

// ProviderConfig specifies a provider
type ProviderConfig struct {
	Name            string       `json:"name" yaml:"name"`
	Token           string       `json:"token,omitempty" yaml:"token,omitempty"`
	DefaultModel    string       `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	AvailableModels []string     `json:"available_models,omitempty" yaml:"available_models,omitempty"`
	OpenAI          OpenAIConfig `json:"open_ai" yaml:"open_ai"`
}

// OpenAIConfig specifies API options
type OpenAIConfig struct {
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// APIType specifies the type of API to use:
	// OPENAI|ANTHROPIC|GOOGLEAI
	APIType string `json:"api_type,omitempty" yaml:"api_type,omitempty"`
	// OrgID specifies which organization's quota and billing should be used when making API requests.
	OrgID string `json:"org_id,omitempty" yaml:"org_id,omitempty"`
}

// FindModel returns the first of the models available in the provider,
// or the default model of the provider.
func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if slices.Contains(c.AvailableModels, model) {
			return model
		}
	}
	return c.DefaultModel
}

// APIType returns the normalized API type.
func (c *ProviderConfig) APIType() string {
	t := strings.ToUpper(c.OpenAI.APIType)
	if t == "OPEN_AI" {
		t = "OPENAI"
	}
	return t
}

var credentialEnvVars = map[string][]string{
	"GOOGLEAI":  {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	"OPENAI":    {"OPENAI_API_KEY"},
	"ANTHROPIC": {"ANTHROPIC_API_KEY"},
}

// CredentialEnvVars returns the environment variables
// that may hold the credential of the provider.
func (c *ProviderConfig) CredentialEnvVars() []string {
	return credentialEnvVars[c.APIType()]
}

// ResolveToken returns the configured token,
// or the first non-empty credential from the environment.
func (c *ProviderConfig) ResolveToken() string {
	if c.Token != "" {
		return c.Token
	}
	for _, env := range c.CredentialEnvVars() {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return ""
}

// GetDefaultProvider returns the default provider,
// or the first one when the default is not specified.
func (c *Config) GetDefaultProvider() *ProviderConfig {
	for _, p := range c.Providers {
		if p.Name == c.DefaultProvider {
			return p
		}
	}
	if len(c.Providers) > 0 {
		return c.Providers[0]
	}
	return nil
}

// LoadConfig from file
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
