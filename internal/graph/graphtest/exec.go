package graphtest

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/NissesSenap/aws-sns-graph/internal/graph"
)

type row struct {
	vars    map[string]any
	created map[string]bool
}

func newRow() *row {
	return &row{vars: map[string]any{}, created: map[string]bool{}}
}

func (r *row) with(name string, v any) *row {
	out := &row{vars: make(map[string]any, len(r.vars)+1), created: map[string]bool{}}
	for k, val := range r.vars {
		out.vars[k] = val
	}
	for k, val := range r.created {
		out.created[k] = val
	}
	if name != "" {
		out.vars[name] = v
	}
	return out
}

type execution struct {
	s      *Session
	params map[string]any
	rows   []*row
	result []graph.Record
}

var (
	unwindRe = regexp.MustCompile(`^UNWIND \$(\w+) AS (\w+)$`)
	nodeRe   = regexp.MustCompile(`^\((\w*)(?::(\w+))?(?:\s*\{(\w+):\s*([^}]+)\})?\)$`)
	pathRe   = regexp.MustCompile(`^(\([^)]*\))(<-|-)\[(\w*):(\w+)\](->|-)(\([^)]*\))$`)
	whereRe  = regexp.MustCompile(`^WHERE (\w+)\.(\w+) <> (.+)$`)
	limitRe  = regexp.MustCompile(`^WITH [\w, ]+? LIMIT (\S+)$`)
	assignRe = regexp.MustCompile(`^(\w+)\.(\w+) = (.+)$`)
	returnRe = regexp.MustCompile(`^RETURN count\(\*\) AS (\w+)$`)
)

func (ex *execution) clause(line string) error {
	switch {
	case strings.HasPrefix(line, "UNWIND "):
		return ex.unwind(line)
	case strings.HasPrefix(line, "MERGE "):
		return ex.merge(strings.TrimPrefix(line, "MERGE "))
	case strings.HasPrefix(line, "MATCH "):
		return ex.match(strings.TrimPrefix(line, "MATCH "))
	case strings.HasPrefix(line, "ON CREATE SET "):
		return ex.set(strings.TrimPrefix(line, "ON CREATE SET "), true)
	case strings.HasPrefix(line, "SET "):
		return ex.set(strings.TrimPrefix(line, "SET "), false)
	case strings.HasPrefix(line, "WHERE "):
		return ex.where(line)
	case strings.HasPrefix(line, "WITH "):
		return ex.with(line)
	case strings.HasPrefix(line, "DETACH DELETE "):
		return ex.delete(strings.TrimPrefix(line, "DETACH DELETE "), true)
	case strings.HasPrefix(line, "DELETE "):
		return ex.delete(strings.TrimPrefix(line, "DELETE "), false)
	case strings.HasPrefix(line, "RETURN "):
		return ex.ret(line)
	default:
		return fmt.Errorf("unsupported clause")
	}
}

func (ex *execution) unwind(line string) error {
	m := unwindRe.FindStringSubmatch(line)
	if m == nil {
		return fmt.Errorf("unsupported UNWIND")
	}

	list := reflect.ValueOf(ex.params[m[1]])
	if list.Kind() != reflect.Slice {
		return fmt.Errorf("parameter %s is not a list", m[1])
	}

	var rows []*row
	for _, r := range ex.rows {
		for i := 0; i < list.Len(); i++ {
			rows = append(rows, r.with(m[2], list.Index(i).Interface()))
		}
	}
	ex.rows = rows
	return nil
}

type nodePattern struct {
	variable string
	label    string
	key      string
	expr     string
}

func parseNode(p string) (nodePattern, error) {
	m := nodeRe.FindStringSubmatch(strings.TrimSpace(p))
	if m == nil {
		return nodePattern{}, fmt.Errorf("unsupported node pattern %s", p)
	}
	return nodePattern{variable: m[1], label: m[2], key: m[3], expr: strings.TrimSpace(m[4])}, nil
}

// matches reports whether n satisfies the pattern for row r.
func (ex *execution) matches(p nodePattern, n *Node, r *row) (bool, error) {
	if bound, ok := r.vars[p.variable]; ok && p.variable != "" {
		return bound == n, nil
	}
	if p.label != "" && n.Label != p.label {
		return false, nil
	}
	if p.key == "" {
		return true, nil
	}
	want, err := ex.eval(p.expr, r)
	if err != nil {
		return false, err
	}
	got, ok := n.Props[p.key]
	return ok && want != nil && equal(got, want), nil
}

func (ex *execution) merge(pattern string) error {
	if m := pathRe.FindStringSubmatch(pattern); m != nil {
		return ex.mergeRel(m)
	}

	p, err := parseNode(pattern)
	if err != nil {
		return err
	}
	for _, r := range ex.rows {
		val, err := ex.eval(p.expr, r)
		if err != nil {
			return err
		}
		if val == nil {
			return fmt.Errorf("cannot merge node using null property value for %s", p.key)
		}

		var found *Node
		for _, n := range ex.s.nodes {
			if n.Label == p.label && equal(n.Props[p.key], val) {
				found = n
				break
			}
		}
		created := found == nil
		if created {
			found = &Node{Label: p.label, Props: map[string]any{p.key: normalize(val)}}
			ex.s.nodes = append(ex.s.nodes, found)
		}
		r.vars[p.variable] = found
		r.created = map[string]bool{p.variable: created}
	}
	return nil
}

func (ex *execution) mergeRel(m []string) error {
	left, err := parseNode(m[1])
	if err != nil {
		return err
	}
	right, err := parseNode(m[6])
	if err != nil {
		return err
	}
	relVar, relType := m[3], m[4]
	reversed := m[2] == "<-"

	for _, r := range ex.rows {
		from, okFrom := r.vars[left.variable].(*Node)
		to, okTo := r.vars[right.variable].(*Node)
		if !okFrom || !okTo {
			return fmt.Errorf("MERGE on unbound endpoints")
		}
		if reversed {
			from, to = to, from
		}

		var found *Rel
		for _, rel := range ex.s.rels {
			if rel.Type == relType && rel.From == from && rel.To == to {
				found = rel
				break
			}
		}
		created := found == nil
		if created {
			found = &Rel{Type: relType, From: from, To: to, Props: map[string]any{}}
			ex.s.rels = append(ex.s.rels, found)
		}
		r.vars[relVar] = found
		r.created = map[string]bool{relVar: created}
	}
	return nil
}

func (ex *execution) match(patterns string) error {
	for _, part := range splitPatterns(patterns) {
		var err error
		if m := pathRe.FindStringSubmatch(part); m != nil {
			err = ex.matchPath(m)
		} else {
			err = ex.matchNode(part)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (ex *execution) matchNode(pattern string) error {
	p, err := parseNode(pattern)
	if err != nil {
		return err
	}

	var rows []*row
	for _, r := range ex.rows {
		for _, n := range ex.s.nodes {
			ok, err := ex.matches(p, n, r)
			if err != nil {
				return err
			}
			if ok {
				rows = append(rows, r.with(p.variable, n))
			}
		}
	}
	ex.rows = rows
	return nil
}

func (ex *execution) matchPath(m []string) error {
	left, err := parseNode(m[1])
	if err != nil {
		return err
	}
	right, err := parseNode(m[6])
	if err != nil {
		return err
	}
	relVar, relType := m[3], m[4]
	reversed := m[2] == "<-"

	var rows []*row
	for _, r := range ex.rows {
		for _, rel := range ex.s.rels {
			if rel.Type != relType {
				continue
			}
			l, rn := rel.From, rel.To
			if reversed {
				l, rn = rel.To, rel.From
			}
			okL, err := ex.matches(left, l, r)
			if err != nil {
				return err
			}
			okR, err := ex.matches(right, rn, r)
			if err != nil {
				return err
			}
			if okL && okR {
				rows = append(rows, r.with(left.variable, l).with(right.variable, rn).with(relVar, rel))
			}
		}
	}
	ex.rows = rows
	return nil
}

func (ex *execution) set(list string, onCreate bool) error {
	for _, assignment := range strings.Split(list, ", ") {
		m := assignRe.FindStringSubmatch(strings.TrimSpace(assignment))
		if m == nil {
			return fmt.Errorf("unsupported assignment %s", assignment)
		}
		for _, r := range ex.rows {
			if onCreate && !r.created[m[1]] {
				continue
			}
			props, err := propsOf(r.vars[m[1]])
			if err != nil {
				return err
			}
			val, err := ex.eval(m[3], r)
			if err != nil {
				return err
			}
			if val == nil {
				delete(props, m[2])
			} else {
				props[m[2]] = normalize(val)
			}
		}
	}
	return nil
}

// where keeps rows whose property differs from the value. A missing
// property compares as null and the row is dropped, as Cypher does.
func (ex *execution) where(line string) error {
	m := whereRe.FindStringSubmatch(line)
	if m == nil {
		return fmt.Errorf("unsupported WHERE")
	}

	var rows []*row
	for _, r := range ex.rows {
		props, err := propsOf(r.vars[m[1]])
		if err != nil {
			return err
		}
		want, err := ex.eval(m[3], r)
		if err != nil {
			return err
		}
		got, ok := props[m[2]]
		if ok && want != nil && !equal(got, want) {
			rows = append(rows, r)
		}
	}
	ex.rows = rows
	return nil
}

func (ex *execution) with(line string) error {
	m := limitRe.FindStringSubmatch(line)
	if m == nil {
		// plain projection, variables stay bound
		return nil
	}
	v, err := ex.eval(m[1], nil)
	if err != nil {
		return err
	}
	limit, ok := normalize(v).(int64)
	if !ok {
		return fmt.Errorf("LIMIT %v is not an integer", v)
	}
	if int64(len(ex.rows)) > limit {
		ex.rows = ex.rows[:limit]
	}
	return nil
}

func (ex *execution) delete(variable string, detach bool) error {
	for _, r := range ex.rows {
		switch v := r.vars[variable].(type) {
		case *Node:
			if !detach {
				for _, rel := range ex.s.rels {
					if rel.From == v || rel.To == v {
						return fmt.Errorf("cannot delete node with relationships without DETACH")
					}
				}
			}
			ex.s.deleteNode(v)
		case *Rel:
			ex.s.deleteRel(v)
		default:
			return fmt.Errorf("cannot delete %s", variable)
		}
	}
	return nil
}

func (ex *execution) ret(line string) error {
	m := returnRe.FindStringSubmatch(line)
	if m == nil {
		return fmt.Errorf("unsupported RETURN")
	}
	ex.result = []graph.Record{{m[1]: int64(len(ex.rows))}}
	return nil
}

func (ex *execution) eval(expr string, r *row) (any, error) {
	expr = strings.TrimSpace(expr)
	switch {
	case expr == "timestamp()":
		return ex.s.now(), nil
	case strings.HasPrefix(expr, "$"):
		return normalize(ex.params[expr[1:]]), nil
	case strings.HasPrefix(expr, "'") && strings.HasSuffix(expr, "'"):
		return strings.Trim(expr, "'"), nil
	}
	if n, err := strconv.ParseInt(expr, 10, 64); err == nil {
		return n, nil
	}

	variable, prop, ok := strings.Cut(expr, ".")
	if !ok || r == nil {
		return nil, fmt.Errorf("unsupported expression %s", expr)
	}
	switch v := r.vars[variable].(type) {
	case map[string]any:
		return normalize(v[prop]), nil
	case *Node:
		return v.Props[prop], nil
	case *Rel:
		return v.Props[prop], nil
	default:
		return nil, fmt.Errorf("unbound variable %s", variable)
	}
}

func propsOf(v any) (map[string]any, error) {
	switch x := v.(type) {
	case *Node:
		return x.Props, nil
	case *Rel:
		return x.Props, nil
	default:
		return nil, fmt.Errorf("not a node or relationship: %T", v)
	}
}

// splitPatterns splits comma separated patterns outside parentheses.
func splitPatterns(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, c := range s {
		switch c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}
