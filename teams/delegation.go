package teams

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/tripcrew/agents"
	"github.com/effective-security/tripcrew/chatmodel"
	"github.com/effective-security/xlog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Member is a delegate of a Team
type Member = agents.Resolver

// Contribution is the output of a member
type Contribution struct {
	Member string `json:"member"`
	Output string `json:"output"`
}

// Delegation modes
const (
	ModeSequential = "sequential"
	ModeFanOut     = "fan_out"
)

// Delegation runs the members of a Team for a task,
// and returns the contributions in member order.
type Delegation interface {
	Mode() string
	Members() []Member
	Delegate(ctx context.Context, task string) ([]Contribution, error)
}

type sequential struct {
	members []Member
}

// Sequential returns the Delegation that calls members one by one.
// Each member receives the task with the outputs of the previous members
// appended as context.
func Sequential(members ...Member) Delegation {
	return &sequential{members: members}
}

func (s *sequential) Mode() string {
	return ModeSequential
}

func (s *sequential) Members() []Member {
	return s.members
}

func (s *sequential) Delegate(ctx context.Context, task string) ([]Contribution, error) {
	contributions := make([]Contribution, 0, len(s.members))
	for i, m := range s.members {
		input := task
		if i > 0 {
			input = AppendContributions(task, "CONTEXT", contributions)
		}
		output, err := delegate(ctx, ModeSequential, i, m, input)
		if err != nil {
			return nil, err
		}
		contributions = append(contributions, Contribution{Member: m.Name(), Output: output})
	}
	return contributions, nil
}

type fanOut struct {
	members []Member
}

// FanOut returns the Delegation that calls all members concurrently with the same task.
// The first failure cancels the remaining members.
func FanOut(members ...Member) Delegation {
	return &fanOut{members: members}
}

func (f *fanOut) Mode() string {
	return ModeFanOut
}

func (f *fanOut) Members() []Member {
	return f.members
}

func (f *fanOut) Delegate(ctx context.Context, task string) ([]Contribution, error) {
	outputs := make([]string, len(f.members))

	g, gctx := errgroup.WithContext(ctx)
	for i, m := range f.members {
		g.Go(func() error {
			output, err := delegate(gctx, ModeFanOut, i, m, task)
			if err != nil {
				return err
			}
			outputs[i] = output
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	contributions := make([]Contribution, len(f.members))
	for i, m := range f.members {
		contributions[i] = Contribution{Member: m.Name(), Output: outputs[i]}
	}
	return contributions, nil
}

func delegate(ctx context.Context, mode string, idx int, m Member, task string) (string, error) {
	ctx, span := tracer.Start(ctx, "team.delegate",
		trace.WithAttributes(
			attribute.String("delegation.mode", mode),
			attribute.String("member.name", m.Name()),
			attribute.Int("member.index", idx),
		),
	)
	defer span.End()

	started := time.Now()
	output, err := m.Resolve(ctx, task)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(chatmodel.KindOf(err)))
		return "", errors.WithMessagef(err, "member %s", m.Name())
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "delegated",
		"mode", mode,
		"member", m.Name(),
		"size", len(output),
		"elapsed", time.Since(started).String(),
	)
	return output, nil
}

// AppendContributions returns the task followed by a section
// with the output of each contribution under the member name.
func AppendContributions(task, section string, contributions []Contribution) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(task, "\n"))
	b.WriteString("\n\n# ")
	b.WriteString(section)
	b.WriteString("\n")
	for _, c := range contributions {
		b.WriteString("\n## ")
		b.WriteString(c.Member)
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(c.Output))
		b.WriteString("\n")
	}
	return b.String()
}
