package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. SNS_GRAPH_REGIONS.
const EnvPrefix = "SNS_GRAPH"

type Config struct {
	AccountID  string   `yaml:"account_id" envconfig:"ACCOUNT_ID"`
	Regions    []string `yaml:"regions" envconfig:"REGIONS"`
	Neo4j      Neo4j    `yaml:"neo4j"`
	AWS        AWS      `yaml:"aws"`
	RateLimits Limits   `yaml:"rate_limits"`
	Snapshot   Snapshot `yaml:"snapshot"`
	Log        Log      `yaml:"log"`
}

type Neo4j struct {
	URI      string `yaml:"uri" envconfig:"NEO4J_URI"`
	User     string `yaml:"user" envconfig:"NEO4J_USER"`
	Password string `yaml:"password" envconfig:"NEO4J_PASSWORD"`
	// Database is empty for the server default; 3.x servers only have that one.
	Database string `yaml:"database" envconfig:"NEO4J_DATABASE"`
}

type AWS struct {
	Profile     string `yaml:"profile" envconfig:"AWS_PROFILE"`
	MaxAttempts int    `yaml:"max_attempts" envconfig:"AWS_MAX_ATTEMPTS"`
	// Endpoint points the SDK at an emulator such as LocalStack.
	Endpoint string `yaml:"endpoint" envconfig:"AWS_ENDPOINT_URL"`
}

type Limits struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND"`
}

type Snapshot struct {
	Enabled bool   `yaml:"enabled" envconfig:"SNAPSHOT_ENABLED"`
	Path    string `yaml:"path" envconfig:"SNAPSHOT_PATH"`
}

type Log struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
}

// ConfigPath returns the configuration file path
// Default: ~/.config/sns-graph/config.yaml
func ConfigPath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		return path
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "sns-graph", "config.yaml")
}

// Load layers defaults, the YAML file and the environment, in that order.
// Tagged fields also fall back to the unprefixed name, so a plain
// AWS_PROFILE or NEO4J_URI is honoured too.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Load from YAML file if exists
	configPath := ConfigPath()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
		}
	}

	// Override with environment variables
	// Process top-level fields
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, err
	}

	// Process nested structs with the same prefix to support flat env var names
	for _, nested := range []any{&cfg.Neo4j, &cfg.AWS, &cfg.RateLimits, &cfg.Snapshot, &cfg.Log} {
		if err := envconfig.Process(EnvPrefix, nested); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if len(c.Regions) == 0 {
		return fmt.Errorf("no regions configured")
	}
	if c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri is required")
	}
	if c.RateLimits.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limits.requests_per_second must not be negative")
	}
	if c.AWS.MaxAttempts < 0 {
		return fmt.Errorf("aws.max_attempts must not be negative")
	}
	if c.Snapshot.Enabled && c.Snapshot.Path == "" {
		return fmt.Errorf("snapshot.path is required when snapshots are enabled")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	out.Regions = append([]string(nil), c.Regions...)
	if out.Neo4j.Password != "" {
		out.Neo4j.Password = "********"
	}
	return &out
}

func (c *Config) Save() error {
	configPath := ConfigPath()

	// Create directory if not exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// The file may hold the graph password.
	return os.WriteFile(configPath, data, 0600)
}
