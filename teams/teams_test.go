package teams_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/tripcrew/agents"
	"github.com/effective-security/tripcrew/chatmodel"
	"github.com/effective-security/tripcrew/mocks/mockllms"
	"github.com/effective-security/tripcrew/pkg/llms"
	"github.com/effective-security/tripcrew/teams"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type member struct {
	name string
	fn   func(ctx context.Context, task string) (string, error)
}

func (m *member) Name() string {
	return m.name
}

func (m *member) Resolve(ctx context.Context, task string) (string, error) {
	return m.fn(ctx, task)
}

func static(name, output string) *member {
	return &member{name: name, fn: func(context.Context, string) (string, error) {
		return output, nil
	}}
}

type Summary struct {
	Hotels    []string `json:"hotels" validate:"required"`
	Transport []string `json:"transport"`
}

type coordinator struct {
	lastTask string
	out      *Summary
	err      error
}

func (c *coordinator) Name() string {
	return "coordinator"
}

func (c *coordinator) Run(ctx context.Context, task string) (*Summary, error) {
	c.lastTask = task
	return c.out, c.err
}

func TestAppendContributions(t *testing.T) {
	t.Parallel()

	text := teams.AppendContributions("Plan a trip\n", "CONTEXT", []teams.Contribution{
		{Member: "weather_agent", Output: " Sunny "},
		{Member: "itinerary_agent", Output: "Day 1\n"},
	})
	assert.Equal(t, "Plan a trip\n\n# CONTEXT\n\n## weather_agent\nSunny\n\n## itinerary_agent\nDay 1\n", text)
}

func TestSequential(t *testing.T) {
	t.Parallel()

	var weatherDone atomic.Bool
	var order []string

	weather := &member{name: "weather_agent", fn: func(ctx context.Context, task string) (string, error) {
		order = append(order, "weather_agent")
		assert.Equal(t, "Plan a trip to Kyoto", task)
		time.Sleep(5 * time.Millisecond)
		weatherDone.Store(true)
		return "Day 1: sunny", nil
	}}
	itinerary := &member{name: "itinerary_agent", fn: func(ctx context.Context, task string) (string, error) {
		order = append(order, "itinerary_agent")
		assert.True(t, weatherDone.Load(), "itinerary member invoked before weather member completed")
		assert.Equal(t, "Plan a trip to Kyoto\n\n# CONTEXT\n\n## weather_agent\nDay 1: sunny\n", task)
		return "Day 1: temples", nil
	}}

	d := teams.Sequential(weather, itinerary)
	assert.Equal(t, teams.ModeSequential, d.Mode())
	assert.Len(t, d.Members(), 2)

	res, err := d.Delegate(context.Background(), "Plan a trip to Kyoto")
	require.NoError(t, err)
	assert.Equal(t, []string{"weather_agent", "itinerary_agent"}, order)
	assert.Equal(t, []teams.Contribution{
		{Member: "weather_agent", Output: "Day 1: sunny"},
		{Member: "itinerary_agent", Output: "Day 1: temples"},
	}, res)

	t.Run("stops on error", func(t *testing.T) {
		failing := &member{name: "weather_agent", fn: func(context.Context, string) (string, error) {
			return "", chatmodel.WithKind(errors.New("503"), chatmodel.KindUpstreamException)
		}}
		never := &member{name: "itinerary_agent", fn: func(context.Context, string) (string, error) {
			t.Fatal("must not be called")
			return "", nil
		}}
		_, err := teams.Sequential(failing, never).Delegate(context.Background(), "task")
		require.Error(t, err)
		assert.EqualError(t, err, "member weather_agent: 503")
		assert.Equal(t, chatmodel.KindUpstreamException, chatmodel.KindOf(err))
	})
}

func TestFanOut(t *testing.T) {
	t.Parallel()

	var started sync.WaitGroup
	started.Add(2)

	// each member waits for the other to start
	hotel := &member{name: "hotel_agent", fn: func(ctx context.Context, task string) (string, error) {
		started.Done()
		started.Wait()
		time.Sleep(10 * time.Millisecond)
		return "Hotel Granvia", nil
	}}
	transport := &member{name: "transport_agent", fn: func(ctx context.Context, task string) (string, error) {
		started.Done()
		started.Wait()
		return "Bus pass", nil
	}}

	d := teams.FanOut(hotel, transport)
	assert.Equal(t, teams.ModeFanOut, d.Mode())

	res, err := d.Delegate(context.Background(), "Research Kyoto")
	require.NoError(t, err)
	assert.Equal(t, []teams.Contribution{
		{Member: "hotel_agent", Output: "Hotel Granvia"},
		{Member: "transport_agent", Output: "Bus pass"},
	}, res)

	t.Run("first error cancels", func(t *testing.T) {
		failing := &member{name: "hotel_agent", fn: func(context.Context, string) (string, error) {
			return "", chatmodel.WithKind(errors.New("invalid JSON"), chatmodel.KindSchemaViolation)
		}}
		var canceled atomic.Bool
		waiting := &member{name: "transport_agent", fn: func(ctx context.Context, task string) (string, error) {
			select {
			case <-ctx.Done():
				canceled.Store(true)
				return "", ctx.Err()
			case <-time.After(5 * time.Second):
				return "late", nil
			}
		}}

		_, err := teams.FanOut(failing, waiting).Delegate(context.Background(), "task")
		require.Error(t, err)
		assert.EqualError(t, err, "member hotel_agent: invalid JSON")
		assert.Equal(t, chatmodel.KindSchemaViolation, chatmodel.KindOf(err))
		assert.True(t, canceled.Load())
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	c := &coordinator{}
	_, err := teams.New[Summary]("", teams.FanOut(static("a", "")), c)
	assert.EqualError(t, err, "team name is required")
	_, err = teams.New[Summary]("research", teams.FanOut(), c)
	assert.EqualError(t, err, "team research: members are required")
	_, err = teams.New[Summary]("research", nil, c)
	assert.EqualError(t, err, "team research: members are required")
	_, err = teams.New[Summary]("research", teams.FanOut(static("a", "")), nil)
	assert.EqualError(t, err, "team research: coordinator is required")
}

func TestTeam_Resolve(t *testing.T) {
	t.Parallel()

	c := &coordinator{out: &Summary{Hotels: []string{"Granvia"}, Transport: []string{"Bus"}}}
	team, err := teams.New[Summary]("research_team",
		teams.FanOut(static("hotel_agent", "Granvia, 120"), static("transport_agent", "Bus, 8")), c)
	require.NoError(t, err)
	assert.Equal(t, "research_team", team.Name())
	assert.Equal(t, teams.ModeFanOut, team.Delegation().Mode())

	res, err := team.Resolve(context.Background(), "Research Kyoto")
	require.NoError(t, err)
	assert.Equal(t, []string{"Granvia"}, res.Hotels)
	assert.Equal(t, "Research Kyoto\n\n# CONTRIBUTIONS\n\n## hotel_agent\nGranvia, 120\n\n## transport_agent\nBus, 8\n", c.lastTask)

	t.Run("validator", func(t *testing.T) {
		team.WithValidator(func(s *Summary) error {
			if len(s.Transport) > 5 {
				return errors.New("too many transport options")
			}
			return nil
		})
		c.out = &Summary{Hotels: []string{"Granvia"}, Transport: []string{"1", "2", "3", "4", "5", "6"}}
		_, err := team.Resolve(context.Background(), "Research Kyoto")
		require.Error(t, err)
		assert.EqualError(t, err, "team research_team: invalid result: too many transport options")
		assert.Equal(t, chatmodel.KindSchemaViolation, chatmodel.KindOf(err))
	})

	t.Run("no result", func(t *testing.T) {
		c := &coordinator{}
		team, err := teams.New[Summary]("research_team", teams.FanOut(static("hotel_agent", "x")), c)
		require.NoError(t, err)
		_, err = team.Resolve(context.Background(), "Research Kyoto")
		assert.Equal(t, chatmodel.KindSchemaViolation, chatmodel.KindOf(err))
	})

	t.Run("member failure", func(t *testing.T) {
		c := &coordinator{}
		failing := &member{name: "hotel_agent", fn: func(context.Context, string) (string, error) {
			return "", chatmodel.WithKind(errors.New("no content"), chatmodel.KindEmptyResult)
		}}
		team, err := teams.New[Summary]("research_team", teams.FanOut(failing), c)
		require.NoError(t, err)
		_, err = team.Resolve(context.Background(), "Research Kyoto")
		assert.EqualError(t, err, "team research_team: member hotel_agent: no content")
		assert.Equal(t, chatmodel.KindEmptyResult, chatmodel.KindOf(err))
		assert.Empty(t, c.lastTask)
	})
}

func TestTeam_AgentCoordinator(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	llm := mockllms.NewMockModel(ctrl)
	llm.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()
	llm.EXPECT().GetName().Return("test-model").AnyTimes()

	coord, err := agents.New[Summary]("research_coordinator", llm,
		[]string{"Merge the contributions."}, agents.WithJSONMode(true))
	require.NoError(t, err)

	team, err := teams.New[Summary]("research_team",
		teams.FanOut(static("hotel_agent", "Granvia"), static("transport_agent", "Bus")), coord)
	require.NoError(t, err)

	gomock.InOrder(
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
				task := messages[1].GetContent()
				assert.True(t, strings.Contains(task, "## hotel_agent\nGranvia"))
				assert.True(t, strings.Contains(task, "## transport_agent\nBus"))
				return &llms.ContentResponse{Choices: []*llms.ContentChoice{
					{Content: `{"hotels":["Granvia"],"transport":["Bus"]}`},
				}}, nil
			}),
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).Return(
			&llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: `{"transport":["Bus"]}`}}}, nil),
	)

	res, err := team.Resolve(context.Background(), "Research Kyoto")
	require.NoError(t, err)
	assert.Equal(t, &Summary{Hotels: []string{"Granvia"}, Transport: []string{"Bus"}}, res)

	// missing mandatory field is never a partial success
	res, err = team.Resolve(context.Background(), "Research Kyoto")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, chatmodel.KindSchemaViolation, chatmodel.KindOf(err))
}
