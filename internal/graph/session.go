package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Record is a single result row keyed by the RETURN aliases.
type Record map[string]any

// Params holds statement parameters and call-time values such as the
// freshness tag, the region and the owning account id.
type Params map[string]any

// Session runs Cypher statements against the graph store.
// This allows swapping the Neo4j driver for an in-memory fake in tests.
type Session interface {
	Run(ctx context.Context, cypher string, params map[string]any) ([]Record, error)
}

// Neo4jSession adapts a neo4j-go-driver session to Session.
// Each Run is an auto-commit transaction; there are no wider transaction
// boundaries.
type Neo4jSession struct {
	session neo4j.SessionWithContext
}

// NewNeo4jSession opens a write session on the given database.
// An empty database selects the server default, which is required for 3.x servers.
func NewNeo4jSession(ctx context.Context, driver neo4j.DriverWithContext, database string) *Neo4jSession {
	return &Neo4jSession{
		session: driver.NewSession(ctx, neo4j.SessionConfig{
			AccessMode:   neo4j.AccessModeWrite,
			DatabaseName: database,
		}),
	}
}

// Run executes the statement and collects every returned row.
func (s *Neo4jSession) Run(ctx context.Context, cypher string, params map[string]any) ([]Record, error) {
	res, err := s.session.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	recs, err := res.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect results: %w", err)
	}

	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Record(rec.AsMap()))
	}
	return out, nil
}

// Close closes the underlying driver session.
func (s *Neo4jSession) Close(ctx context.Context) error {
	return s.session.Close(ctx)
}
