package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/tripcrew/chatmodel"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/tripcrew", "store")

var (
	// ErrNotFound is returned when the run does not exist
	ErrNotFound = errors.New("run not found")
	// ErrAlreadyExists is returned when the run with the ID is already created
	ErrAlreadyExists = errors.New("run already exists")
)

// RunKind is the operation of a run
type RunKind string

// Run kinds
const (
	KindItinerary RunKind = "itinerary"
	KindResearch  RunKind = "research"
)

// RunStatus is the state of a run
type RunStatus string

// Run statuses
const (
	StatusPending RunStatus = "PENDING"
	StatusRunning RunStatus = "RUNNING"
	StatusDone    RunStatus = "DONE"
	StatusFailed  RunStatus = "FAILED"
)

// Run is the record of a resolution
type Run struct {
	ID        string           `json:"id" yaml:"id"`
	Kind      RunKind          `json:"kind" yaml:"kind"`
	Status    RunStatus        `json:"status" yaml:"status"`
	Input     json.RawMessage  `json:"input,omitempty" yaml:"-"`
	Steps     []chatmodel.Step `json:"steps,omitempty" yaml:"steps,omitempty"`
	Attempts  int              `json:"attempts" yaml:"attempts"`
	Error     string           `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind string           `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Provider  string           `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model     string           `json:"model,omitempty" yaml:"model,omitempty"`
	CreatedAt time.Time        `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" yaml:"updated_at"`
}

// RunStore persists the records of resolutions
type RunStore interface {
	// Create stores a new run
	Create(ctx context.Context, run *Run) error
	// Update replaces the stored run
	Update(ctx context.Context, run *Run) error
	// Get returns the run, or ErrNotFound
	Get(ctx context.Context, id string) (*Run, error)
	// List returns up to limit runs, the most recent first
	List(ctx context.Context, limit int) ([]*Run, error)
}

// Backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// DefaultPrefix is the prefix of the Redis keys
const DefaultPrefix = "tripcrew"

// DefaultListLimit is the limit of List when not specified
const DefaultListLimit = 100

// Config of the run store
type Config struct {
	// Backend is memory or redis
	Backend  string        `json:"backend" yaml:"backend"`
	RedisURL string        `json:"redis_url" yaml:"redis_url"`
	Prefix   string        `json:"prefix" yaml:"prefix"`
	TTL      time.Duration `json:"ttl" yaml:"ttl"`
}

// New returns the RunStore for the config
func New(ctx context.Context, cfg *Config) (RunStore, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	switch values.StringsCoalesce(cfg.Backend, BackendMemory) {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("redis_url is required for redis store")
		}
		options, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, errors.Wrap(err, "invalid redis_url")
		}
		client := redis.NewClient(options)
		if err = client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, errors.Wrap(err, "failed to connect to Redis")
		}
		logger.KV(xlog.INFO, "status", "redis_connected", "addr", options.Addr)
		return NewRedisStore(client, values.StringsCoalesce(cfg.Prefix, DefaultPrefix), cfg.TTL), nil
	}
	return nil, errors.Newf("unsupported store backend: %s", cfg.Backend)
}

func validateRun(run *Run) error {
	if run == nil || run.ID == "" {
		return errors.New("run ID is required")
	}
	return nil
}
