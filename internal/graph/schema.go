package graph

import "fmt"

// PropertyRef names where a graph property value comes from.
//
// FromContext refs are read from the call-time Params (freshness tag,
// region, owning account). All other refs are read from each item.
type PropertyRef struct {
	Name        string
	FromContext bool
	ExtraIndex  bool
}

// Ref returns an item-sourced PropertyRef.
func Ref(name string) PropertyRef {
	return PropertyRef{Name: name}
}

// ContextRef returns a PropertyRef read from the call-time Params.
func ContextRef(name string) PropertyRef {
	return PropertyRef{Name: name, FromContext: true}
}

// IndexedRef returns an item-sourced PropertyRef that gets its own index.
func IndexedRef(name string) PropertyRef {
	return PropertyRef{Name: name, ExtraIndex: true}
}

// Property binds a graph property to its source.
type Property struct {
	Name string
	Ref  PropertyRef
}

// Direction of the sub-resource relationship relative to the node.
type Direction int

const (
	// Inward means (target)-[rel]->(node).
	Inward Direction = iota
	// Outward means (node)-[rel]->(target).
	Outward
)

// RelSchema describes the edge from a node to the node that owns it.
type RelSchema struct {
	TargetLabel string
	TargetKey   string
	TargetRef   PropertyRef
	Direction   Direction
	Label       string
	Properties  []Property
}

// NodeSchema is a declarative description of one node type. It is consumed
// by a single interpreter that builds the load, index and cleanup
// statements for both writer variants.
type NodeSchema struct {
	Label string
	// KeyProperty must also appear in Properties.
	KeyProperty string
	Properties  []Property
	SubResource *RelSchema
}

// Key returns the property the node is merged on.
func (s *NodeSchema) Key() Property {
	for _, p := range s.Properties {
		if p.Name == s.KeyProperty {
			return p
		}
	}
	return Property{Name: s.KeyProperty, Ref: Ref(s.KeyProperty)}
}

// Validate checks the schema is usable by the interpreter.
func (s *NodeSchema) Validate() error {
	if s.Label == "" {
		return fmt.Errorf("node schema has no label")
	}
	if s.KeyProperty == "" {
		return fmt.Errorf("node schema %s has no key property", s.Label)
	}

	seen := make(map[string]bool, len(s.Properties))
	found := false
	for _, p := range s.Properties {
		if seen[p.Name] {
			return fmt.Errorf("node schema %s declares property %s twice", s.Label, p.Name)
		}
		seen[p.Name] = true
		if p.Name == s.KeyProperty {
			if p.Ref.FromContext {
				return fmt.Errorf("node schema %s key %s must be item-sourced", s.Label, p.Name)
			}
			found = true
		}
	}
	if !found {
		return fmt.Errorf("node schema %s key %s is not a declared property", s.Label, s.KeyProperty)
	}

	if rel := s.SubResource; rel != nil {
		if rel.TargetLabel == "" || rel.TargetKey == "" || rel.Label == "" {
			return fmt.Errorf("node schema %s has an incomplete sub-resource relationship", s.Label)
		}
		if !rel.TargetRef.FromContext {
			return fmt.Errorf("node schema %s sub-resource target must come from call-time params", s.Label)
		}
	}
	return nil
}

// indexedProperties lists the node properties that get an index.
func (s *NodeSchema) indexedProperties() []string {
	props := []string{s.KeyProperty}
	for _, p := range s.Properties {
		if p.Ref.ExtraIndex && p.Name != s.KeyProperty {
			props = append(props, p.Name)
		}
	}
	return props
}

// resolve returns the value for ref. Missing values resolve to nil so both
// writers remove the property alike.
func resolve(ref PropertyRef, item map[string]any, kwargs Params) any {
	if ref.FromContext {
		return kwargs[ref.Name]
	}
	return item[ref.Name]
}
