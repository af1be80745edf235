package orchestrator

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/tripcrew/chatmodel"
	"github.com/effective-security/tripcrew/pkg/metricskey"
	"github.com/effective-security/tripcrew/store"
	"github.com/effective-security/tripcrew/travel"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/tripcrew", "orchestrator")

var tracer = otel.Tracer("github.com/effective-security/tripcrew/orchestrator")

// Operation names
const (
	OpGenerateItinerary = "generate_itinerary"
	OpResearchMarket    = "research_market"
)

// Resolver resolves a task to O.
// teams.Team[O] implements it.
type Resolver[O any] interface {
	Name() string
	Resolve(ctx context.Context, task string) (*O, error)
}

// Option configures the Service
type Option func(*Service)

// WithRunStore records the runs of the operations in the store
func WithRunStore(runs store.RunStore) Option {
	return func(s *Service) {
		s.runs = runs
	}
}

// WithModelInfo sets the provider and model reported in the runs
func WithModelInfo(provider, model string) Option {
	return func(s *Service) {
		s.provider = provider
		s.model = model
	}
}

// Service implements the travel planning operations
type Service struct {
	itinerary Resolver[travel.ItineraryResult]
	research  Resolver[travel.MarketResearchResult]

	timeout  time.Duration
	attempts int

	runs     store.RunStore
	provider string
	model    string
}

// New returns the Service
func New(cfg *Config, itinerary Resolver[travel.ItineraryResult], research Resolver[travel.MarketResearchResult], opts ...Option) (*Service, error) {
	if itinerary == nil || research == nil {
		return nil, errors.New("itinerary and research teams are required")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	s := &Service{
		itinerary: itinerary,
		research:  research,
		timeout:   cfg.Timeout,
		attempts:  values.NumbersCoalesce(cfg.ResearchAttempts, DefaultResearchAttempts),
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Timeout returns the timeout of a team resolution
func (s *Service) Timeout() time.Duration {
	return s.timeout
}

// ResearchAttempts returns the number of market research attempts
func (s *Service) ResearchAttempts() int {
	return s.attempts
}

// GenerateItinerary plans the trip of the request.
// The team is called once, any failure is returned to the caller.
func (s *Service) GenerateItinerary(ctx context.Context, req *travel.ItineraryRequest) (*travel.ItineraryResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, run := s.startRun(ctx, store.KindItinerary, req)
	ctx, span := tracer.Start(ctx, "orchestrator."+OpGenerateItinerary,
		trace.WithAttributes(
			attribute.String("run.id", run.ID),
			attribute.String("destination", req.Destination),
			attribute.Int("days", req.Days),
		),
	)
	defer span.End()

	started := time.Now()
	defer metricskey.PerfOperation.MeasureSince(started, OpGenerateItinerary)

	res, err := s.generateItinerary(ctx, req)
	run.Attempts = 1
	s.finishRun(ctx, run, err)

	if err != nil {
		kind := KindOf(err)
		metricskey.StatsOperationsFailed.IncrCounter(1, OpGenerateItinerary, kindTag(kind))
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		logger.ContextKV(ctx, xlog.ERROR,
			"op", OpGenerateItinerary,
			"run", run.ID,
			"kind", kind,
			"err", err.Error(),
		)
		return nil, err
	}

	logger.ContextKV(ctx, xlog.INFO,
		"op", OpGenerateItinerary,
		"run", run.ID,
		"days", len(res.DayWiseItinerary),
		"elapsed", time.Since(started).String(),
	)
	return res, nil
}

func (s *Service) generateItinerary(ctx context.Context, req *travel.ItineraryRequest) (*travel.ItineraryResult, error) {
	task, err := travel.ItineraryTask(req)
	if err != nil {
		return nil, err
	}

	res, err := resolve(ctx, s.timeout, s.itinerary, task)
	if err != nil {
		return nil, err
	}
	if res.IsEmpty() {
		return nil, errors.Wrap(chatmodel.ErrEmptyResult, "failed to generate itinerary")
	}

	if len(res.DayWiseItinerary) != req.Days {
		logger.ContextKV(ctx, xlog.WARNING,
			"op", OpGenerateItinerary,
			"status", "days_mismatch",
			"requested", req.Days,
			"planned", len(res.DayWiseItinerary),
			"labels", res.DayLabels(),
		)
	}
	return res, nil
}

// ResearchMarket finds hotel and transport options for the request.
//
// Each attempt either succeeds with a non-empty result, or fails and
// moves to the next attempt. After the last attempt the error carries
// the number of attempts and the last failure.
func (s *Service) ResearchMarket(ctx context.Context, req *travel.ResearchRequest) (*travel.MarketResearchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, run := s.startRun(ctx, store.KindResearch, req)
	ctx, span := tracer.Start(ctx, "orchestrator."+OpResearchMarket,
		trace.WithAttributes(
			attribute.String("run.id", run.ID),
			attribute.String("destination", req.Destination),
			attribute.Int("days", req.Days),
		),
	)
	defer span.End()

	started := time.Now()
	defer metricskey.PerfOperation.MeasureSince(started, OpResearchMarket)

	res, attempts, err := s.researchMarket(ctx, req)
	run.Attempts = attempts
	s.finishRun(ctx, run, err)

	span.SetAttributes(attribute.Int("attempts", attempts))
	if err != nil {
		kind := KindOf(err)
		metricskey.StatsOperationsFailed.IncrCounter(1, OpResearchMarket, kindTag(kind))
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		logger.ContextKV(ctx, xlog.ERROR,
			"op", OpResearchMarket,
			"run", run.ID,
			"attempts", attempts,
			"kind", kind,
			"err", err.Error(),
		)
		return nil, err
	}

	logger.ContextKV(ctx, xlog.INFO,
		"op", OpResearchMarket,
		"run", run.ID,
		"attempts", attempts,
		"hotels", len(res.Hotels),
		"transport", len(res.Transport),
		"elapsed", time.Since(started).String(),
	)
	return res, nil
}

type attemptState int

const (
	stateAttempting attemptState = iota
	stateSuccess
	stateFailure
)

func (s *Service) researchMarket(ctx context.Context, req *travel.ResearchRequest) (*travel.MarketResearchResult, int, error) {
	task, err := travel.ResearchTask(req)
	if err != nil {
		return nil, 0, err
	}

	var (
		res     *travel.MarketResearchResult
		lastErr error
		attempt int
	)

	state := stateAttempting
	for state == stateAttempting {
		attempt++
		res, lastErr = s.researchAttempt(ctx, attempt, task)

		switch {
		case lastErr == nil:
			state = stateSuccess
		case attempt >= s.attempts:
			state = stateFailure
		case ctx.Err() != nil:
			// the caller is gone
			state = stateFailure
		default:
			logger.ContextKV(ctx, xlog.WARNING,
				"op", OpResearchMarket,
				"status", "retrying",
				"attempt", attempt,
				"kind", KindOf(lastErr),
				"err", lastErr.Error(),
			)
		}
	}

	if state == stateFailure {
		return nil, attempt, &AttemptsError{Op: "market research", Attempts: attempt, Err: lastErr}
	}
	return res, attempt, nil
}

func (s *Service) researchAttempt(ctx context.Context, attempt int, task string) (*travel.MarketResearchResult, error) {
	ctx, span := tracer.Start(ctx, "orchestrator.research_attempt",
		trace.WithAttributes(attribute.Int("attempt", attempt)),
	)
	defer span.End()

	step := chatmodel.Step{
		Name:      s.research.Name() + "#" + strconv.Itoa(attempt),
		StartedAt: time.Now(),
	}

	res, err := resolve(ctx, s.timeout, s.research, task)
	if err == nil {
		res.Normalize()
		if res.IsEmpty() {
			err = errors.Wrap(chatmodel.ErrEmptyResult, "no hotels and no transport found")
		}
	}

	step.EndedAt = time.Now()
	if err != nil {
		step.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
		metricskey.StatsResearchAttempts.IncrCounter(1, kindTag(KindOf(err)))
	} else {
		step.OutputSize = len(res.Hotels) + len(res.Transport)
		metricskey.StatsResearchAttempts.IncrCounter(1, "success")
	}
	chatmodel.RecordStep(ctx, step)

	if err != nil {
		return nil, err
	}
	return res, nil
}

// resolve calls the resolver within the timeout
func resolve[O any](ctx context.Context, timeout time.Duration, r Resolver[O], task string) (*O, error) {
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := r.Resolve(rctx, task)
	if err != nil {
		if errors.Is(rctx.Err(), context.DeadlineExceeded) {
			return nil, chatmodel.WithKind(
				errors.WithMessagef(err, "%s timed out after %s", r.Name(), timeout),
				chatmodel.KindTimeout)
		}
		return nil, err
	}
	if res == nil {
		return nil, errors.Wrapf(chatmodel.ErrEmptyResult, "%s returned no result", r.Name())
	}
	return res, nil
}

func kindTag(kind ErrorKind) string {
	if kind == KindNone {
		return "error"
	}
	return string(kind)
}
