// Package graphtest provides an in-memory graph.Session for tests.
//
// Session executes the Cypher subset emitted by package graph: one clause
// per line, MERGE/MATCH on single-key node patterns and one-hop paths,
// UNWIND, SET / ON CREATE SET, WHERE <>, WITH ... LIMIT, DELETE,
// DETACH DELETE and RETURN count(*). It also answers the version probe and
// rejects the index syntax the configured server version would reject, so
// tests can observe which writer ran.
package graphtest

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/NissesSenap/aws-sns-graph/internal/graph"
)

// Node is a stored node.
type Node struct {
	Label string
	Props map[string]any
}

// Rel is a stored directed relationship.
type Rel struct {
	Type  string
	From  *Node
	To    *Node
	Props map[string]any
}

// Statement is one executed Run call.
type Statement struct {
	Cypher string
	Params map[string]any
}

// Session is an in-memory graph store. It is safe for concurrent use, but
// statements are executed one at a time.
type Session struct {
	mu         sync.Mutex
	version    string
	nodes      []*Node
	rels       []*Rel
	indexes    map[string]bool
	statements []Statement
	failures   []failure
	clock      int64
}

type failure struct {
	substr string
	err    error
}

// New returns an empty store reporting version, e.g. "3.5.12" or "5.26.0".
func New(version string) *Session {
	return &Session{
		version: version,
		indexes: make(map[string]bool),
		clock:   1700000000000,
	}
}

// FailOn makes every statement containing substr return err.
func (s *Session) FailOn(substr string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{substr: substr, err: err})
}

// AddNode stores a node directly, e.g. the owning account.
func (s *Session) AddNode(label string, props map[string]any) *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := &Node{Label: label, Props: make(map[string]any, len(props))}
	for k, v := range props {
		n.Props[k] = normalize(v)
	}
	s.nodes = append(s.nodes, n)
	return n
}

// Nodes returns the nodes carrying label in insertion order.
func (s *Session) Nodes(label string) []*Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Node
	for _, n := range s.nodes {
		if n.Label == label {
			out = append(out, n)
		}
	}
	return out
}

// Node returns the node with the given label and id property, or nil.
func (s *Session) Node(label, id string) *Node {
	for _, n := range s.Nodes(label) {
		if n.Props["id"] == id {
			return n
		}
	}
	return nil
}

// Rels returns the relationships of the given type in insertion order.
func (s *Session) Rels(relType string) []*Rel {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Rel
	for _, r := range s.rels {
		if r.Type == relType {
			out = append(out, r)
		}
	}
	return out
}

// Rel returns the relationship of relType between the two nodes, or nil.
func (s *Session) Rel(relType string, from, to *Node) *Rel {
	for _, r := range s.Rels(relType) {
		if r.From == from && r.To == to {
			return r
		}
	}
	return nil
}

// Indexes returns the created indexes as "Label(prop)", sorted.
func (s *Session) Indexes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.indexes))
	for k := range s.indexes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Statements returns every statement run so far.
func (s *Session) Statements() []Statement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Statement(nil), s.statements...)
}

// Run implements graph.Session.
func (s *Session) Run(ctx context.Context, cypher string, params map[string]any) ([]graph.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.statements = append(s.statements, Statement{Cypher: cypher, Params: params})
	for _, f := range s.failures {
		if strings.Contains(cypher, f.substr) {
			return nil, f.err
		}
	}

	switch {
	case strings.Contains(cypher, "dbms.components()"):
		return []graph.Record{{"version": s.version}}, nil
	case strings.HasPrefix(cypher, "CREATE INDEX"):
		return nil, s.createIndex(cypher)
	}

	ex := &execution{s: s, params: params, rows: []*row{newRow()}}
	for _, line := range strings.Split(cypher, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := ex.clause(line); err != nil {
			return nil, fmt.Errorf("graphtest: %q: %w", line, err)
		}
	}
	return ex.result, nil
}

var (
	modernIndexRe = regexp.MustCompile(`^CREATE INDEX IF NOT EXISTS FOR \(\w+:(\w+)\) ON \(\w+\.(\w+)\)$`)
	legacyIndexRe = regexp.MustCompile(`^CREATE INDEX ON :(\w+)\((\w+)\)$`)
)

func (s *Session) createIndex(cypher string) error {
	major := s.major()
	if m := modernIndexRe.FindStringSubmatch(cypher); m != nil {
		if major < 4 {
			return fmt.Errorf("invalid input 'I': expected whitespace or ON (line 1, column 14)")
		}
		s.indexes[m[1]+"("+m[2]+")"] = true
		return nil
	}
	if m := legacyIndexRe.FindStringSubmatch(cypher); m != nil {
		if major >= 5 {
			return fmt.Errorf("invalid input 'ON': expected 'FOR'")
		}
		s.indexes[m[1]+"("+m[2]+")"] = true
		return nil
	}
	return fmt.Errorf("graphtest: unsupported index statement %q", cypher)
}

func (s *Session) major() int {
	major, _ := strconv.Atoi(strings.SplitN(s.version, ".", 2)[0])
	return major
}

func (s *Session) now() int64 {
	s.clock++
	return s.clock
}

func (s *Session) deleteNode(n *Node) {
	kept := s.rels[:0]
	for _, r := range s.rels {
		if r.From != n && r.To != n {
			kept = append(kept, r)
		}
	}
	s.rels = kept

	for i, existing := range s.nodes {
		if existing == n {
			s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
			return
		}
	}
}

func (s *Session) deleteRel(r *Rel) {
	for i, existing := range s.rels {
		if existing == r {
			s.rels = append(s.rels[:i], s.rels[i+1:]...)
			return
		}
	}
}

// normalize widens integers so parameters and stored values compare equal.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint32:
		return int64(n)
	case uint:
		return int64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}

func equal(a, b any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

// Snapshot returns the properties of every label node keyed by id, and of
// every relType edge keyed by "fromID->toID". firstseen stamps are left out
// so stores written at different times compare equal.
func (s *Session) Snapshot(label, relType string) (nodes, rels map[string]map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes = map[string]map[string]any{}
	for _, n := range s.nodes {
		if n.Label == label {
			nodes[fmt.Sprint(n.Props["id"])] = withoutFirstSeen(n.Props)
		}
	}
	rels = map[string]map[string]any{}
	for _, r := range s.rels {
		if r.Type == relType {
			rels[fmt.Sprintf("%v->%v", r.From.Props["id"], r.To.Props["id"])] = withoutFirstSeen(r.Props)
		}
	}
	return nodes, rels
}

func withoutFirstSeen(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if k != "firstseen" {
			out[k] = v
		}
	}
	return out
}
