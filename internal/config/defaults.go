package config

import "path/filepath"

func DefaultConfig() *Config {
	return &Config{
		Regions: []string{"us-east-1"},
		Neo4j: Neo4j{
			URI:  "bolt://localhost:7687",
			User: "neo4j",
		},
		AWS: AWS{
			MaxAttempts: 3,
		},
		RateLimits: Limits{
			RequestsPerSecond: 10,
		},
		Snapshot: Snapshot{
			Path: filepath.Join("/tmp", "sns-graph", "snapshot.db"),
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
	}
}
