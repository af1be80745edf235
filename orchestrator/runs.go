package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/effective-security/tripcrew/chatmodel"
	"github.com/effective-security/tripcrew/store"
	"github.com/effective-security/xlog"
)

// startRun returns the context with the RunContext of the operation,
// and creates the run record. Recording failures are logged, not returned.
func (s *Service) startRun(ctx context.Context, kind store.RunKind, input any) (context.Context, *store.Run) {
	runCtx := chatmodel.GetRunContext(ctx)
	if runCtx == nil {
		runCtx = chatmodel.NewRunContext("", input)
		ctx = chatmodel.WithRunContext(ctx, runCtx)
	}

	now := time.Now().UTC()
	run := &store.Run{
		ID:        runCtx.GetRunID(),
		Kind:      kind,
		Status:    store.StatusRunning,
		Provider:  s.provider,
		Model:     s.model,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if js, err := json.Marshal(input); err == nil {
		run.Input = js
	}

	if s.runs != nil {
		if err := s.runs.Create(ctx, run); err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"reason", "create_run",
				"run", run.ID,
				"err", err.Error(),
			)
		}
	}
	return ctx, run
}

func (s *Service) finishRun(ctx context.Context, run *store.Run, err error) {
	if runCtx := chatmodel.GetRunContext(ctx); runCtx != nil {
		run.Steps = runCtx.Steps()
	}
	run.UpdatedAt = time.Now().UTC()
	if err != nil {
		run.Status = store.StatusFailed
		run.Error = err.Error()
		run.ErrorKind = string(KindOf(err))
	} else {
		run.Status = store.StatusDone
	}

	if s.runs == nil {
		return
	}
	// the operation context may be canceled
	if uerr := s.runs.Update(context.WithoutCancel(ctx), run); uerr != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "update_run",
			"run", run.ID,
			"err", uerr.Error(),
		)
	}
}

// Run returns the record of the operation
func (s *Service) Run(ctx context.Context, id string) (*store.Run, error) {
	if s.runs == nil {
		return nil, store.ErrNotFound
	}
	return s.runs.Get(ctx, id)
}

// Runs returns the most recent records
func (s *Service) Runs(ctx context.Context, limit int) ([]*store.Run, error) {
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.List(ctx, limit)
}
