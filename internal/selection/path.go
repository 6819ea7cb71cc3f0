package selection

import (
	"strconv"
	"strings"
)

// SegmentKind tells whether a path segment names a field or indexes a list.
type SegmentKind int

const (
	FieldSegment SegmentKind = iota
	IndexSegment
)

// Segment is one step of a PathAddress.
type Segment struct {
	Kind  SegmentKind
	Field string
	Index int
}

// Field returns a field-name segment.
func Field(name string) Segment {
	return Segment{Kind: FieldSegment, Field: name}
}

// Index returns a list-index segment.
func Index(i int) Segment {
	return Segment{Kind: IndexSegment, Index: i}
}

// IsIndex reports whether the segment indexes a list.
func (s Segment) IsIndex() bool {
	return s.Kind == IndexSegment
}

func (s Segment) String() string {
	if s.Kind == IndexSegment {
		return strconv.Itoa(s.Index)
	}
	return s.Field
}

// PathAddress locates a value inside a record tree. Whether a segment is an
// index is decided when the path is built, never guessed from its text.
type PathAddress []Segment

// Depth is the number of segments.
func (p PathAddress) Depth() int {
	return len(p)
}

// Head returns the top-level field name, or "" if the path does not start
// with a field segment.
func (p PathAddress) Head() string {
	if len(p) == 0 || p[0].Kind != FieldSegment {
		return ""
	}
	return p[0].Field
}

// String renders the path in dotted form, e.g. "names.0.sort_name".
func (p PathAddress) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// Equal reports whether two paths have the same segments.
func (p PathAddress) Equal(o PathAddress) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

func (p PathAddress) clone() PathAddress {
	out := make(PathAddress, len(p))
	copy(out, p)
	return out
}
