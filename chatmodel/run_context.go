package chatmodel

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/effective-security/x/values"
	"github.com/effective-security/xdb/pkg/flake"
)

// Step is a recorded unit of work of a resolution,
// such as an agent call or a delegation step.
type Step struct {
	Name       string    `json:"name"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	OutputSize int       `json:"output_size"`
	Error      string    `json:"error,omitempty"`
}

// RunContext is the per-resolution context shared by the agents of a team.
type RunContext interface {
	// GetRunID returns the resolution ID
	GetRunID() string
	// AppData returns immutable app data
	AppData() any
	// GetMetadata retrieves metadata by key
	GetMetadata(key string) (value any, ok bool)
	// SetMetadata sets metadata by key
	SetMetadata(key string, value any)
	// AddStep records a step of the resolution
	AddStep(step Step)
	// Steps returns a copy of the recorded steps
	Steps() []Step
}

type runContext struct {
	runID    string
	appData  any
	metadata sync.Map

	lock  sync.Mutex
	steps []Step
}

// NewRunContext returns a RunContext,
// a new run ID is generated when runID is empty.
func NewRunContext(runID string, appData any) RunContext {
	return &runContext{
		runID:   values.StringsCoalesce(runID, NewRunID()),
		appData: appData,
	}
}

func (c *runContext) GetRunID() string {
	return c.runID
}

func (c *runContext) AppData() any {
	return c.appData
}

func (c *runContext) GetMetadata(key string) (value any, ok bool) {
	return c.metadata.Load(key)
}

func (c *runContext) SetMetadata(key string, value any) {
	c.metadata.Store(key, value)
}

func (c *runContext) AddStep(step Step) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.steps = append(c.steps, step)
}

func (c *runContext) Steps() []Step {
	c.lock.Lock()
	defer c.lock.Unlock()
	res := make([]Step, len(c.steps))
	copy(res, c.steps)
	return res
}

type contextKey int

const (
	keyContext contextKey = iota
)

// WithRunContext returns a new context with RunContext value
func WithRunContext(ctx context.Context, runCtx RunContext) context.Context {
	return context.WithValue(ctx, keyContext, runCtx)
}

// GetRunContext retrieves the RunContext from the context
func GetRunContext(ctx context.Context) RunContext {
	if v, ok := ctx.Value(keyContext).(RunContext); ok {
		return v
	}
	return nil
}

// GetRunID retrieves the run ID from the provided context.
// If the context does not contain a RunContext, it returns an empty string.
func GetRunID(ctx context.Context) string {
	if v := GetRunContext(ctx); v != nil {
		return v.GetRunID()
	}
	return ""
}

// RecordStep adds the step to the RunContext of ctx, if present.
func RecordStep(ctx context.Context, step Step) {
	if v := GetRunContext(ctx); v != nil {
		v.AddStep(step)
	}
}

// NewRunID generates a new run ID using the flake ID generator.
func NewRunID() string {
	return strconv.FormatUint(flake.DefaultIDGenerator.NextID(), 10)
}
