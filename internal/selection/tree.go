package selection

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// NodeKind is the variant held by a Node.
type NodeKind int

const (
	ScalarNode NodeKind = iota
	MapNode
	ListNode
)

// Node is a selection tree: a scalar, a map with ordered entries, or a list.
type Node struct {
	Kind    NodeKind
	Value   string // scalar text; "" for null
	Entries []Entry
	Items   []*Node
}

// Entry is one key of a map node.
type Entry struct {
	Key   string
	Value *Node
}

// Scalar builds a scalar node.
func Scalar(v string) *Node {
	return &Node{Kind: ScalarNode, Value: v}
}

// Map builds a map node from ordered entries.
func Map(entries ...Entry) *Node {
	return &Node{Kind: MapNode, Entries: entries}
}

// List builds a list node.
func List(items ...*Node) *Node {
	return &Node{Kind: ListNode, Items: items}
}

// Decode reads a selection tree from JSON or YAML. Map keys keep the order
// they have in the document.
func Decode(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse selections: %w", err)
	}
	if doc.Kind == 0 {
		return Map(), nil
	}
	return fromYAML(&doc)
}

func fromYAML(n *yaml.Node) (*Node, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Map(), nil
		}
		return fromYAML(n.Content[0])
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return Scalar(""), nil
		}
		return Scalar(n.Value), nil
	case yaml.SequenceNode:
		out := List()
		for _, child := range n.Content {
			item, err := fromYAML(child)
			if err != nil {
				return nil, err
			}
			out.Items = append(out.Items, item)
		}
		return out, nil
	case yaml.MappingNode:
		out := Map()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: selection keys must be scalars", key.Line)
			}
			val, err := fromYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			out.Entries = append(out.Entries, Entry{Key: key.Value, Value: val})
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported selection node kind %d", n.Kind)
}

// FromValue converts decoded Go values (map[string]any, []any, scalars)
// into a Node. Go maps carry no order, so map keys are sorted.
func FromValue(v any) *Node {
	switch t := v.(type) {
	case nil:
		return Scalar("")
	case *Node:
		return t
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := Map()
		for _, k := range keys {
			out.Entries = append(out.Entries, Entry{Key: k, Value: FromValue(t[k])})
		}
		return out
	case []any:
		out := List()
		for _, item := range t {
			out.Items = append(out.Items, FromValue(item))
		}
		return out
	case string:
		return Scalar(t)
	default:
		return Scalar(fmt.Sprint(t))
	}
}
