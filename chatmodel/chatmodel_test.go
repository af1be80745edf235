package chatmodel_test

import (
	"context"
	goerr "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/tripcrew/chatmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrFailedUnmarshalInput(t *testing.T) {
	err := chatmodel.ErrFailedUnmarshalInput
	assert.True(t, goerr.Is(err, chatmodel.ErrFailedUnmarshalInput))
	assert.True(t, goerr.Is(errors.WithStack(err), chatmodel.ErrFailedUnmarshalInput))
	assert.True(t, goerr.Is(errors.Wrap(err, "test"), chatmodel.ErrFailedUnmarshalInput))
	assert.False(t, goerr.Is(err, chatmodel.ErrInvalidRunContext))
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	tcases := []struct {
		err  error
		kind chatmodel.ErrorKind
	}{
		{nil, chatmodel.KindNone},
		{errors.New("plain"), chatmodel.KindNone},
		{chatmodel.ErrToolFailure, chatmodel.KindToolFailure},
		{errors.Wrap(chatmodel.ErrSchemaViolation, "coordinator"), chatmodel.KindSchemaViolation},
		{errors.WithMessage(chatmodel.ErrEmptyResult, "weather_agent"), chatmodel.KindEmptyResult},
		{chatmodel.WithKind(errors.New("connection reset"), chatmodel.KindUpstreamException), chatmodel.KindUpstreamException},
		{chatmodel.WithKind(errors.New("deadline"), chatmodel.KindTimeout), chatmodel.KindTimeout},
		{errors.Wrap(context.DeadlineExceeded, "resolve"), chatmodel.KindTimeout},
		{fmt.Errorf("wrapped: %w", chatmodel.ErrEmptyResult), chatmodel.KindEmptyResult},
	}
	for _, tc := range tcases {
		assert.Equal(t, tc.kind, chatmodel.KindOf(tc.err), "%v", tc.err)
	}
}

func TestWithKind(t *testing.T) {
	t.Parallel()

	assert.NoError(t, chatmodel.WithKind(nil, chatmodel.KindTimeout))

	orig := errors.New("model is overloaded")
	err := chatmodel.WithKind(orig, chatmodel.KindUpstreamException)
	assert.EqualError(t, err, "model is overloaded")
	assert.True(t, errors.Is(err, chatmodel.ErrUpstreamException))
	assert.True(t, errors.Is(err, orig))
	assert.False(t, errors.Is(err, chatmodel.ErrTimeout))

	assert.Equal(t, orig, chatmodel.WithKind(orig, chatmodel.KindNone))
	assert.Nil(t, chatmodel.KindNone.Sentinel())
	assert.Equal(t, chatmodel.ErrSchemaViolation, chatmodel.KindSchemaViolation.Sentinel())
}

func TestRunContext(t *testing.T) {
	t.Parallel()

	c := chatmodel.NewRunContext("run1", 123)
	require.NotNil(t, c)
	assert.Equal(t, "run1", c.GetRunID())
	assert.Equal(t, 123, c.AppData())

	val, ok := c.GetMetadata("not-found")
	assert.Nil(t, val)
	assert.False(t, ok)
	c.SetMetadata("foo", 1)
	v, ok := c.GetMetadata("foo")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	c2 := chatmodel.NewRunContext("", nil)
	assert.NotEmpty(t, c2.GetRunID())
	assert.NotEqual(t, c2.GetRunID(), chatmodel.NewRunContext("", nil).GetRunID())
}

func TestRunContext_Steps(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Nil(t, chatmodel.GetRunContext(ctx))
	assert.Empty(t, chatmodel.GetRunID(ctx))
	// no-op without a run context
	chatmodel.RecordStep(ctx, chatmodel.Step{Name: "ignored"})

	c := chatmodel.NewRunContext("run2", nil)
	ctx = chatmodel.WithRunContext(ctx, c)
	assert.Equal(t, c, chatmodel.GetRunContext(ctx))
	assert.Equal(t, "run2", chatmodel.GetRunID(ctx))

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			chatmodel.RecordStep(ctx, chatmodel.Step{
				Name:      fmt.Sprintf("step%d", i),
				StartedAt: time.Now(),
			})
		}()
	}
	wg.Wait()

	steps := c.Steps()
	assert.Len(t, steps, 10)
	steps[0].Name = "changed"
	assert.NotEqual(t, "changed", c.Steps()[0].Name)
}

func TestString(t *testing.T) {
	t.Parallel()

	s := chatmodel.NewString("foo")
	assert.Equal(t, "foo", s.String())
	assert.Equal(t, "foo", s.GetContent())
	assert.Equal(t, []byte("foo"), s.Bytes())

	for _, tc := range []struct{ in, exp string }{
		{"hello", "hello"},
		{`"quoted"`, "quoted"},
		{"", ""},
	} {
		var v chatmodel.String
		require.NoError(t, v.Unmarshal([]byte(tc.in)))
		assert.Equal(t, tc.exp, v.String())
	}
}
