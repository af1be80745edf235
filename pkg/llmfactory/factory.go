package llmfactory

import (
	"context"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/tripcrew/pkg/llms"
	"github.com/effective-security/tripcrew/pkg/llms/anthropic"
	"github.com/effective-security/tripcrew/pkg/llms/googleai"
	"github.com/effective-security/tripcrew/pkg/llms/openai"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/tripcrew/pkg", "llmfactory")

// NewLLM is a wrapper for CreateLLM to allow for overriding the default implementation.
var NewLLM = CreateLLM

// Factory creates and caches LLM models.
type Factory interface {
	// DefaultModel returns the default LLM model.
	DefaultModel() (llms.Model, error)
	// ModelByType returns an LLM model by its provider type, e.g.
	// OPENAI, ANTHROPIC, GOOGLEAI
	ModelByType(providerType string) (llms.Model, error)
	// ModelByName returns an LLM model by its name,
	// if the model is not found, it will return the default model.
	ModelByName(preferredModels ...string) (llms.Model, error)
	// AgentModel returns the model for the agent.
	AgentModel(agentID string, preferredModels ...string) (llms.Model, error)
}

// Load returns the factory from the config file
func Load(location string) (Factory, error) {
	cfg, err := LoadConfig(location)
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}

type factory struct {
	cfg *Config

	defaultProvider *ProviderConfig
	agentModels     map[string][]string
	byType          map[string]llms.Model
	byName          map[string]llms.Model
	defaultModel    llms.Model
	lock            sync.Mutex
}

// New creates a new LLM factory
func New(cfg *Config) Factory {
	f := &factory{
		cfg:             cfg,
		defaultProvider: cfg.GetDefaultProvider(),
		byType:          make(map[string]llms.Model),
		byName:          make(map[string]llms.Model),
		agentModels:     make(map[string][]string),
	}
	for k, v := range cfg.AgentModels {
		f.agentModels[k] = slices.Clone(v)
	}
	return f
}

// CreateLLM creates the model of the provider.
func CreateLLM(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	model := cfg.FindModel(preferredModels...)
	token := cfg.ResolveToken()

	switch provType := cfg.APIType(); provType {
	case "OPENAI":
		opts := []openai.Option{openai.WithModel(model)}
		if token != "" {
			opts = append(opts, openai.WithToken(token))
		}
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		if cfg.OpenAI.OrgID != "" {
			opts = append(opts, openai.WithOrganization(cfg.OpenAI.OrgID))
		}
		return openai.New(opts...)
	case "ANTHROPIC":
		opts := []anthropic.Option{anthropic.WithModel(model)}
		if token != "" {
			opts = append(opts, anthropic.WithToken(token))
		}
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		return anthropic.New(opts...)
	case "GOOGLEAI":
		opts := []googleai.Option{}
		if model != "" {
			opts = append(opts, googleai.WithDefaultModel(model))
		}
		if token != "" {
			opts = append(opts, googleai.WithAPIKey(token))
		}
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, googleai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		return googleai.New(context.Background(), opts...)
	default:
		return nil, errors.Errorf("unsupported provider type: %s", provType)
	}
}

// DefaultModel returns the model of the default provider
func (f *factory) DefaultModel() (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.getDefaultModel()
}

func (f *factory) getDefaultModel() (llms.Model, error) {
	if f.defaultModel != nil {
		return f.defaultModel, nil
	}
	if f.defaultProvider == nil {
		return nil, errors.New("no providers configured")
	}
	model, err := NewLLM(f.defaultProvider, f.defaultProvider.DefaultModel)
	if err != nil {
		return nil, err
	}
	f.defaultModel = model
	return model, nil
}

func (f *factory) ModelByType(providerType string) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if client, ok := f.byType[providerType]; ok {
		return client, nil
	}

	for _, cfg := range f.cfg.Providers {
		if cfg.APIType() == providerType {
			model, err := NewLLM(cfg)
			if err != nil {
				return nil, err
			}

			logger.KV(xlog.DEBUG,
				"status", "created_llm",
				"type", cfg.APIType(),
				"name", cfg.Name,
				"model", model.GetName(),
			)

			f.byType[providerType] = model
			return model, nil
		}
	}
	return nil, errors.Errorf("provider not found for type: %s", providerType)
}

func (f *factory) ModelByName(modelNames ...string) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, modelName := range modelNames {
		if client, ok := f.byName[modelName]; ok {
			return client, nil
		}

		for _, cfg := range f.cfg.Providers {
			if !slices.Contains(cfg.AvailableModels, modelName) {
				continue
			}
			model, err := NewLLM(cfg, modelName)
			if err != nil {
				logger.KV(xlog.ERROR,
					"reason", "NewLLM",
					"type", cfg.APIType(),
					"model", modelName,
					"err", err.Error(),
				)
				continue
			}

			logger.KV(xlog.DEBUG,
				"status", "created_llm",
				"type", cfg.APIType(),
				"name", cfg.Name,
				"model", modelName,
			)

			f.byName[modelName] = model
			return model, nil
		}
	}
	return f.getDefaultModel()
}

// AgentModel returns the model for the agent.
func (f *factory) AgentModel(agentID string, preferredModels ...string) (llms.Model, error) {
	if modelNames, ok := f.agentModels[agentID]; ok {
		return f.ModelByName(modelNames...)
	}
	if modelNames, ok := f.agentModels["default"]; ok {
		return f.ModelByName(modelNames...)
	}
	return f.ModelByName(preferredModels...)
}
