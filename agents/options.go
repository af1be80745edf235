package agents

import (
	"github.com/effective-security/tripcrew/callbacks"
	"github.com/effective-security/tripcrew/pkg/llms"
	"github.com/effective-security/tripcrew/pkg/schema"
)

const (
	// DefaultMaxMessages is the limit of messages in a conversation of a call
	DefaultMaxMessages = 50
	// DefaultMaxContentSize is the limit of content bytes sent to the model in a call
	DefaultMaxContentSize = 256 * 1024
	// DefaultMaxToolCalls is the limit of tool calls in a call
	DefaultMaxToolCalls = 8
	// DefaultMaxEmptyResponses is the number of model responses without choices
	// tolerated before the call fails with ErrEmptyResult
	DefaultMaxEmptyResponses = 3
)

// Option is a function that can be used to modify the behavior of the Agent Config.
type Option func(*Config)

// Config is the configuration of an Agent.
type Config struct {
	// MaxMessages is the limit of messages in a conversation of a call.
	MaxMessages int
	// MaxContentSize is the limit of content bytes sent to the model.
	MaxContentSize int
	// MaxToolCalls is the limit of tool calls in a call.
	MaxToolCalls int
	// MaxEmptyResponses is the number of empty responses tolerated in a call.
	MaxEmptyResponses int

	// Temperature is the temperature for sampling, between 0 and 1.
	Temperature    float64
	temperatureSet bool

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// JSONMode requests a JSON object response, when the provider supports it.
	JSONMode bool
	// ResponseFormat overrides the response format of JSON mode.
	ResponseFormat *schema.ResponseFormat

	// Callback is the handler of the lifecycle events
	Callback callbacks.Handler
}

// NewConfig returns the config with options applied.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// GetCallOptions returns the model call options of the config.
func (c *Config) GetCallOptions(provider llms.ProviderType) []llms.CallOption {
	var opts []llms.CallOption
	if c.temperatureSet {
		opts = append(opts, llms.WithTemperature(c.Temperature))
	}
	if c.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.MaxTokens))
	}
	if rf := c.responseFormat(provider); rf != nil {
		opts = append(opts, llms.WithResponseFormat(rf))
	}
	return opts
}

func (c *Config) responseFormat(provider llms.ProviderType) *schema.ResponseFormat {
	if !c.JSONMode {
		return nil
	}
	rf := c.ResponseFormat
	if rf == nil {
		rf = schema.JSONObjectFormat()
	}
	if rf.Type == schema.ResponseFormatTypeJSONSchema && !provider.Supports(llms.CapabilityJSONSchema) {
		rf = schema.JSONObjectFormat()
	}
	if !provider.Supports(llms.CapabilityJSONResponse) {
		return nil
	}
	return rf
}

// WithLimits sets the limits of a call, zero values keep the defaults.
func WithLimits(maxMessages, maxToolCalls int) Option {
	return func(o *Config) {
		o.MaxMessages = maxMessages
		o.MaxToolCalls = maxToolCalls
	}
}

// WithMaxContentSize sets the limit of content bytes sent to the model.
func WithMaxContentSize(size int) Option {
	return func(o *Config) {
		o.MaxContentSize = size
	}
}

// WithMaxEmptyResponses sets the number of empty responses tolerated in a call.
func WithMaxEmptyResponses(n int) Option {
	return func(o *Config) {
		o.MaxEmptyResponses = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) Option {
	return func(o *Config) {
		o.Temperature = temperature
		o.temperatureSet = true
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(maxTokens int) Option {
	return func(o *Config) {
		o.MaxTokens = maxTokens
	}
}

// WithJSONMode requests JSON object responses.
func WithJSONMode(jsonMode bool) Option {
	return func(o *Config) {
		o.JSONMode = jsonMode
	}
}

// WithResponseFormat requests the response format, and enables JSON mode.
func WithResponseFormat(rf *schema.ResponseFormat) Option {
	return func(o *Config) {
		o.ResponseFormat = rf
		o.JSONMode = rf != nil
	}
}

// WithCallback sets the handler of the lifecycle events.
func WithCallback(callback callbacks.Handler) Option {
	return func(o *Config) {
		o.Callback = callback
	}
}
