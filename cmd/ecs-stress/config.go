package main

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Config controls one stress run. Values come from the defaults, then an
// optional YAML file, then flags given explicitly on the command line.
type Config struct {
	Duration       time.Duration `yaml:"duration"`
	Ticks          int           `yaml:"ticks"`
	Entities       int           `yaml:"entities"`
	Churn          int           `yaml:"churn"`
	Readers        int           `yaml:"readers"`
	Seed           uint64        `yaml:"seed"`
	LogLevel       string        `yaml:"log_level"`
	Profile        string        `yaml:"profile"`
	ProfilePath    string        `yaml:"profile_path"`
	Snapshot       bool          `yaml:"snapshot"`
	GCPauseMetrics bool          `yaml:"gc_pause_metrics"`
}

func DefaultConfig() Config {
	return Config{
		Duration:    10 * time.Second,
		Entities:    10000,
		Churn:       100,
		Readers:     4,
		Seed:        1,
		LogLevel:    "info",
		ProfilePath: ".",
		Snapshot:    true,
	}
}

// LoadConfig decodes YAML from r on top of base. Unknown keys are rejected.
func LoadConfig(r io.Reader, base Config) (Config, error) {
	cfg := base
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return base, eris.Wrap(err, "decode config")
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Duration <= 0 && c.Ticks <= 0:
		return eris.New("either duration or ticks must be positive")
	case c.Entities < 0:
		return eris.Errorf("entities must not be negative, got %d", c.Entities)
	case c.Churn < 0:
		return eris.Errorf("churn must not be negative, got %d", c.Churn)
	case c.Readers < 0:
		return eris.Errorf("readers must not be negative, got %d", c.Readers)
	}

	switch c.Profile {
	case "", "cpu", "mem", "allocs":
	default:
		return eris.Errorf("unknown profile mode %q (expected cpu, mem or allocs)", c.Profile)
	}
	return nil
}

// parseArgs builds the run configuration from command line arguments.
func parseArgs(args []string) (Config, error) {
	defaults := DefaultConfig()
	flagged := defaults

	fs := flag.NewFlagSet("ecs-stress", flag.ContinueOnError)
	configPath := fs.String("config", "", "Optional YAML file with run settings.")
	fs.DurationVar(&flagged.Duration, "duration", defaults.Duration, "The total duration the test should run for.")
	fs.IntVar(&flagged.Ticks, "ticks", defaults.Ticks, "Stop after this many ticks (0 runs for -duration).")
	fs.IntVar(&flagged.Entities, "entities", defaults.Entities, "The initial number of entities to create.")
	fs.IntVar(&flagged.Churn, "churn", defaults.Churn, "Entities despawned, spawned and reshaped per tick.")
	fs.IntVar(&flagged.Readers, "readers", defaults.Readers, "Number of concurrent read systems.")
	fs.Uint64Var(&flagged.Seed, "seed", defaults.Seed, "Random seed.")
	fs.StringVar(&flagged.LogLevel, "log-level", defaults.LogLevel, "Log level (debug, info, warn, error).")
	fs.StringVar(&flagged.Profile, "profile", defaults.Profile, "Profile mode: cpu, mem or allocs.")
	fs.StringVar(&flagged.ProfilePath, "profile-path", defaults.ProfilePath, "Directory for profile output.")
	fs.BoolVar(&flagged.Snapshot, "snapshot", defaults.Snapshot, "Write and verify a snapshot at the end of the run.")
	fs.BoolVar(&flagged.GCPauseMetrics, "gc-pause-metrics", defaults.GCPauseMetrics, "Enable detailed GC pause metrics in the report.")
	if err := fs.Parse(args); err != nil {
		return defaults, err
	}

	cfg := defaults
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			return defaults, eris.Wrapf(err, "open config %s", *configPath)
		}
		defer f.Close()

		cfg, err = LoadConfig(f, defaults)
		if err != nil {
			return defaults, eris.Wrapf(err, "load config %s", *configPath)
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "duration":
			cfg.Duration = flagged.Duration
		case "ticks":
			cfg.Ticks = flagged.Ticks
		case "entities":
			cfg.Entities = flagged.Entities
		case "churn":
			cfg.Churn = flagged.Churn
		case "readers":
			cfg.Readers = flagged.Readers
		case "seed":
			cfg.Seed = flagged.Seed
		case "log-level":
			cfg.LogLevel = flagged.LogLevel
		case "profile":
			cfg.Profile = flagged.Profile
		case "profile-path":
			cfg.ProfilePath = flagged.ProfilePath
		case "snapshot":
			cfg.Snapshot = flagged.Snapshot
		case "gc-pause-metrics":
			cfg.GCPauseMetrics = flagged.GCPauseMetrics
		}
	})

	return cfg, cfg.Validate()
}
