package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/tripcrew/chatmodel"
	"github.com/effective-security/tripcrew/pkg/llmutils"
	"github.com/effective-security/tripcrew/server"
	"github.com/effective-security/tripcrew/travel"
)

// Output formats
const (
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// VersionCmd shows version information
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("tripcrew version %s\n", version)
	return nil
}

// ServeCmd starts the HTTP server
type ServeCmd struct {
	Listen string `help:"Listen address, overrides the config."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := LoadConfig(cli.Config)
	if err != nil {
		return err
	}
	if c.Listen != "" {
		cfg.HTTP.Listen = c.Listen
	}

	svc, err := newService(ctx, cfg, cli.Verbose)
	if err != nil {
		return err
	}
	return server.New(&cfg.HTTP, svc).ListenAndServe(ctx)
}

// TripFlags are the common flags of one-shot commands
type TripFlags struct {
	Destination string  `required:"" help:"Destination of the trip."`
	Budget      float64 `required:"" help:"Total budget of the trip."`
	Days        int     `required:"" help:"Number of days."`
	Output      string  `short:"o" enum:"json,yaml" default:"json" help:"Output format (json, yaml)."`
}

// GenerateCmd generates an itinerary
type GenerateCmd struct {
	TripFlags
	StartDate string `name:"start-date" required:"" help:"Start date in YYYY-MM-DD format."`
}

func (c *GenerateCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := LoadConfig(cli.Config)
	if err != nil {
		return err
	}
	svc, err := newService(ctx, cfg, cli.Verbose)
	if err != nil {
		return err
	}

	ctx = chatmodel.WithRunContext(ctx, chatmodel.NewRunContext("", nil))
	res, err := svc.GenerateItinerary(ctx, &travel.ItineraryRequest{
		Destination: c.Destination,
		Budget:      c.Budget,
		Days:        c.Days,
		StartDate:   c.StartDate,
	})
	if err != nil {
		return errors.WithMessagef(err, "run %s", chatmodel.GetRunID(ctx))
	}
	return writeOutput(os.Stdout, c.Output, res)
}

// ResearchCmd researches hotels and transport
type ResearchCmd struct {
	TripFlags
}

func (c *ResearchCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := LoadConfig(cli.Config)
	if err != nil {
		return err
	}
	svc, err := newService(ctx, cfg, cli.Verbose)
	if err != nil {
		return err
	}

	ctx = chatmodel.WithRunContext(ctx, chatmodel.NewRunContext("", nil))
	res, err := svc.ResearchMarket(ctx, &travel.ResearchRequest{
		Destination: c.Destination,
		Budget:      c.Budget,
		Days:        c.Days,
	})
	if err != nil {
		return errors.WithMessagef(err, "run %s", chatmodel.GetRunID(ctx))
	}
	return writeOutput(os.Stdout, c.Output, res)
}

func writeOutput(w io.Writer, format string, val any) error {
	switch format {
	case OutputYAML:
		_, err := io.WriteString(w, llmutils.ToYAML(val))
		return err
	case OutputJSON, "":
		_, err := fmt.Fprintln(w, llmutils.ToJSONIndent(val))
		return err
	default:
		return errors.Errorf("unsupported output format: %s", format)
	}
}
