package teams

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/tripcrew/chatmodel"
	"github.com/effective-security/tripcrew/pkg/metricskey"
	"github.com/effective-security/xlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/tripcrew", "teams")

var tracer = otel.Tracer("github.com/effective-security/tripcrew/teams")

// Coordinator merges the contributions of the members into O.
// agents.Agent[O] in JSON mode is the Coordinator of a Team.
type Coordinator[O any] interface {
	Name() string
	Run(ctx context.Context, task string) (*O, error)
}

// ValidatorFunc checks the merged value
type ValidatorFunc[O any] func(*O) error

// Team is a coordinator with members.
// A Team holds no state across calls and is safe for concurrent use.
type Team[O any] struct {
	name        string
	delegation  Delegation
	coordinator Coordinator[O]
	validators  []ValidatorFunc[O]
}

// New returns a Team
func New[O any](name string, delegation Delegation, coordinator Coordinator[O]) (*Team[O], error) {
	if name == "" {
		return nil, errors.New("team name is required")
	}
	if delegation == nil || len(delegation.Members()) == 0 {
		return nil, errors.Newf("team %s: members are required", name)
	}
	if coordinator == nil {
		return nil, errors.Newf("team %s: coordinator is required", name)
	}
	return &Team[O]{
		name:        name,
		delegation:  delegation,
		coordinator: coordinator,
	}, nil
}

// WithValidator adds a check of the merged value,
// in addition to the validation of the coordinator output.
func (t *Team[O]) WithValidator(fn ValidatorFunc[O]) *Team[O] {
	t.validators = append(t.validators, fn)
	return t
}

func (t *Team[O]) Name() string {
	return t.name
}

// Delegation returns the delegation of the Team
func (t *Team[O]) Delegation() Delegation {
	return t.delegation
}

// Resolve delegates the task to the members,
// and returns the merged and validated output.
func (t *Team[O]) Resolve(ctx context.Context, task string) (*O, error) {
	ctx, span := tracer.Start(ctx, "team.resolve",
		trace.WithAttributes(
			attribute.String("team.name", t.name),
			attribute.String("delegation.mode", t.delegation.Mode()),
			attribute.String("run.id", chatmodel.GetRunID(ctx)),
		),
	)
	defer span.End()

	started := time.Now()
	defer metricskey.PerfTeamRun.MeasureSince(started, t.name)

	out, err := t.resolve(ctx, task)
	if err != nil {
		kind := chatmodel.KindOf(err)
		metricskey.StatsTeamRunsFailed.IncrCounter(1, t.name, string(kind))
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		logger.ContextKV(ctx, xlog.DEBUG,
			"team", t.name,
			"status", "failed",
			"kind", kind,
			"err", err.Error(),
		)
		return nil, err
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"team", t.name,
		"status", "resolved",
		"elapsed", time.Since(started).String(),
	)
	return out, nil
}

func (t *Team[O]) resolve(ctx context.Context, task string) (*O, error) {
	contributions, err := t.delegation.Delegate(ctx, task)
	if err != nil {
		return nil, errors.WithMessagef(err, "team %s", t.name)
	}

	ctx, span := tracer.Start(ctx, "team.merge",
		trace.WithAttributes(
			attribute.String("coordinator.name", t.coordinator.Name()),
			attribute.Int("contributions", len(contributions)),
		),
	)
	defer span.End()

	out, err := t.coordinator.Run(ctx, AppendContributions(task, "CONTRIBUTIONS", contributions))
	if err != nil {
		span.RecordError(err)
		return nil, errors.WithMessagef(err, "team %s", t.name)
	}
	if out == nil {
		return nil, chatmodel.WithKind(errors.Newf("team %s: coordinator returned no result", t.name), chatmodel.KindSchemaViolation)
	}

	for _, validate := range t.validators {
		if err := validate(out); err != nil {
			span.RecordError(err)
			return nil, chatmodel.WithKind(
				errors.WithMessagef(err, "team %s: invalid result", t.name),
				chatmodel.KindSchemaViolation)
		}
	}
	return out, nil
}
