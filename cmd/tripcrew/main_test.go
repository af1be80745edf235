package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/effective-security/tripcrew/travel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("TEST_TRIPCREW_ANTHROPIC_KEY", "sk-ant")
	t.Setenv("TEST_TRIPCREW_TAVILY_KEY", "tvly-1")

	cfg, err := LoadConfig("testdata/tripcrew.yaml")
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Listen)
	assert.Equal(t, 30*time.Second, cfg.Orchestrator.Timeout)
	assert.Equal(t, 5, cfg.Orchestrator.ResearchAttempts)
	assert.Equal(t, 8, cfg.Agents.MaxToolCalls)
	assert.Equal(t, 50, cfg.Agents.MaxMessages)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 72*time.Hour, cfg.Store.TTL)
	assert.Equal(t, "tvly-1", cfg.Search.TavilyAPIKey)
	assert.Equal(t, "advanced", cfg.Search.SearchDepth)

	p := cfg.LLM.GetDefaultProvider()
	require.NotNil(t, p)
	assert.Equal(t, "claude", p.Name)
	assert.Equal(t, "sk-ant", p.Token)
	assert.NoError(t, cfg.Validate())

	_, err = LoadConfig("testdata/missing.yaml")
	assert.Error(t, err)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "tvly-env")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "tvly-env", cfg.Search.TavilyAPIKey)

	p := cfg.LLM.GetDefaultProvider()
	require.NotNil(t, p)
	assert.Equal(t, DefaultProviderName, p.Name)
	assert.Equal(t, DefaultModel, p.DefaultModel)
	assert.Equal(t, "GOOGLEAI", p.APIType())
}

func TestValidate(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.EqualError(t, cfg.Validate(), "TAVILY_API_KEY is not set")

	cfg.Search.TavilyAPIKey = "tvly-1"
	assert.EqualError(t, cfg.Validate(),
		"model credential is not set: provider gemini requires a token or GOOGLE_API_KEY or GEMINI_API_KEY")

	t.Setenv("GEMINI_API_KEY", "g-1")
	assert.NoError(t, cfg.Validate())

	cfg.LLM.Providers[0].OpenAI.APIType = "CUSTOM"
	assert.EqualError(t, cfg.Validate(), "model credential is not set: provider gemini requires a token")

	cfg.LLM.Providers = nil
	assert.EqualError(t, cfg.Validate(), "no LLM providers configured")
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, ".env.local")
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(local, []byte("TEST_TRIPCREW_A=local\n"), 0o600))
	require.NoError(t, os.WriteFile(env, []byte("TEST_TRIPCREW_A=env\nTEST_TRIPCREW_B=env\n"), 0o600))

	t.Setenv("TEST_TRIPCREW_A", "")
	t.Setenv("TEST_TRIPCREW_B", "")
	os.Unsetenv("TEST_TRIPCREW_A")
	os.Unsetenv("TEST_TRIPCREW_B")

	require.NoError(t, loadEnv(local, env, filepath.Join(dir, "missing")))
	assert.Equal(t, "local", os.Getenv("TEST_TRIPCREW_A"))
	assert.Equal(t, "env", os.Getenv("TEST_TRIPCREW_B"))
}

func TestNewService_FailFast(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	_, err = newService(t.Context(), cfg, false)
	assert.EqualError(t, err, "TAVILY_API_KEY is not set")
}

func TestWriteOutput(t *testing.T) {
	res := &travel.PriceRange{Min: 100, Max: 200}

	var b bytes.Buffer
	require.NoError(t, writeOutput(&b, OutputJSON, res))
	assert.Equal(t, "{\n\t\"min\": 100,\n\t\"max\": 200\n}\n", b.String())

	b.Reset()
	require.NoError(t, writeOutput(&b, OutputYAML, res))
	assert.Equal(t, "min: 100\nmax: 200\n", b.String())

	assert.EqualError(t, writeOutput(&b, "xml", res), "unsupported output format: xml")
}

func TestCLI_Setup(t *testing.T) {
	cli := &CLI{LogLevel: "DEBUG", EnvFile: []string{filepath.Join(t.TempDir(), "none")}}
	assert.NoError(t, cli.setup())

	cli.LogLevel = "loud"
	assert.EqualError(t, cli.setup(), "invalid log level: loud")
}
