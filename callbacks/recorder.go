package callbacks

import (
	"context"
	"sync"
	"time"

	"github.com/effective-security/tripcrew/chatmodel"
	"github.com/effective-security/tripcrew/pkg/llms"
	"github.com/effective-security/tripcrew/tools"
)

// TimeNowFn is the clock of the Recorder
var TimeNowFn = time.Now

// Recorder records each agent call as a step of the RunContext in ctx.
// Events without a RunContext are ignored.
type Recorder struct {
	lock    sync.Mutex
	started map[string]time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{
		started: make(map[string]time.Time),
	}
}

func stepKey(ctx context.Context, agent Agent) string {
	return chatmodel.GetRunID(ctx) + "/" + agent.Name()
}

func (l *Recorder) OnAgentStart(ctx context.Context, agent Agent, input string) {
	if chatmodel.GetRunContext(ctx) == nil {
		return
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	l.started[stepKey(ctx, agent)] = TimeNowFn()
}

func (l *Recorder) OnAgentEnd(ctx context.Context, agent Agent, input string, output string) {
	l.record(ctx, agent, len(output), nil)
}

func (l *Recorder) OnAgentError(ctx context.Context, agent Agent, input string, err error) {
	l.record(ctx, agent, 0, err)
}

func (l *Recorder) record(ctx context.Context, agent Agent, size int, err error) {
	runCtx := chatmodel.GetRunContext(ctx)
	if runCtx == nil {
		return
	}

	key := stepKey(ctx, agent)
	now := TimeNowFn()

	l.lock.Lock()
	started, ok := l.started[key]
	delete(l.started, key)
	l.lock.Unlock()

	if !ok {
		started = now
	}

	step := chatmodel.Step{
		Name:       agent.Name(),
		StartedAt:  started,
		EndedAt:    now,
		OutputSize: size,
	}
	if err != nil {
		step.Error = err.Error()
	}
	runCtx.AddStep(step)
}

func (l *Recorder) OnLLMCallStart(ctx context.Context, agent Agent, llm llms.Model, messages []llms.Message) {
}
func (l *Recorder) OnLLMCallEnd(ctx context.Context, agent Agent, llm llms.Model, resp *llms.ContentResponse) {
}
func (l *Recorder) OnParseError(ctx context.Context, agent Agent, input string, response string, err error) {
}
func (l *Recorder) OnToolStart(ctx context.Context, tool tools.ITool, agentName, input string) {}
func (l *Recorder) OnToolEnd(ctx context.Context, tool tools.ITool, agentName, input string, output string) {
}
func (l *Recorder) OnToolError(ctx context.Context, tool tools.ITool, agentName, input string, err error) {
}
func (l *Recorder) OnToolNotFound(ctx context.Context, agent Agent, tool string) {}
