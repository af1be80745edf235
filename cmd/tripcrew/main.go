// Command tripcrew serves the travel planning crew over HTTP,
// or runs a single resolution from the command line.
//
// Usage:
//
//	tripcrew serve --config tripcrew.yaml
//	tripcrew generate --destination Kyoto --budget 1500 --days 3 --start-date 2025-04-10
//	tripcrew research --destination Kyoto --budget 1500 --days 3
package main

import (
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/joho/godotenv"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/tripcrew", "cmd")

// CLI defines the command-line interface
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the HTTP server."`
	Generate GenerateCmd `cmd:"" help:"Generate a day-wise itinerary."`
	Research ResearchCmd `cmd:"" help:"Research hotels and transport of a destination."`

	Config   string   `short:"c" help:"Path to config file." type:"path"`
	EnvFile  []string `name:"env-file" help:"Env files to load, .env.local and .env by default."`
	LogLevel string   `help:"Log level (debug, info, warning, error)." default:"info"`
	LogJSON  bool     `name:"log-json" help:"Log in JSON format."`
	Verbose  bool     `short:"v" help:"Print agent and tool calls to stderr."`
}

var logLevels = map[string]xlog.LogLevel{
	"debug":   xlog.DEBUG,
	"info":    xlog.INFO,
	"notice":  xlog.NOTICE,
	"warning": xlog.WARNING,
	"warn":    xlog.WARNING,
	"error":   xlog.ERROR,
}

// setup configures logging and the environment before the command runs
func (c *CLI) setup() error {
	if c.LogJSON {
		xlog.SetFormatter(xlog.NewJSONFormatter(os.Stderr))
	} else {
		xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
	}

	level, ok := logLevels[strings.ToLower(c.LogLevel)]
	if !ok {
		return errors.Errorf("invalid log level: %s", c.LogLevel)
	}
	xlog.SetGlobalLogLevel(level)

	return loadEnv(c.EnvFile...)
}

// loadEnv loads the env files that exist, values set earlier win
func loadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env.local", ".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.WithMessagef(err, "failed to load %s", f)
		}
	}
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("tripcrew"),
		kong.Description("Travel planning crew of AI agents."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(cli.setup())
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
