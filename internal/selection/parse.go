// Package selection turns the nested selection tree of a detailed merge
// request into the flat list of paths the caller marked for copying.
//
// The tree mirrors the victim record. A leaf holding the string REPLACE
// selects the path leading to it; any other leaf is ignored.
package selection

// Replace is the leaf marker that selects a path.
const Replace = "REPLACE"

// Selections is the ordered set of selected paths, in document order of the
// selection tree.
type Selections []PathAddress

// Empty reports whether nothing was selected.
func (s Selections) Empty() bool {
	return len(s) == 0
}

// Strings renders every path in dotted form.
func (s Selections) Strings() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = p.String()
	}
	return out
}

// Parse flattens a selection tree depth-first.
func Parse(root *Node) Selections {
	if root == nil {
		return nil
	}
	var out Selections
	var path PathAddress
	walk(root, &path, &out)
	return out
}

// ParseBytes decodes a JSON or YAML selection tree and flattens it.
func ParseBytes(data []byte) (Selections, error) {
	root, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Parse(root), nil
}

func walk(n *Node, path *PathAddress, out *Selections) {
	switch n.Kind {
	case ScalarNode:
		if n.Value == Replace && len(*path) > 0 {
			*out = append(*out, path.clone())
		}
	case MapNode:
		for _, e := range n.Entries {
			*path = append(*path, Field(e.Key))
			walk(e.Value, path, out)
			*path = (*path)[:len(*path)-1]
		}
	case ListNode:
		for i, item := range n.Items {
			*path = append(*path, Index(i))
			walk(item, path, out)
			*path = (*path)[:len(*path)-1]
		}
	}
}
