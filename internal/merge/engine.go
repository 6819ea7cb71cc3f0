// Package merge applies the field selections of a detailed merge request,
// copying chosen values from a victim record into the surviving target.
//
// Top-level fields fall in two categories. Subrecord lists such as names or
// dates_of_existence are appended to: the victim's subrecord is copied, its
// owner reference is pointed at the target, and it is added after the
// target's own entries. Every other field is replaced in place at the
// selected path. Replacement only ever grows target lists, it never removes
// entries from them.
package merge

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lherron/recmerge/internal/record"
	"github.com/lherron/recmerge/internal/selection"
)

var (
	// ErrUnknownField is returned for a replace path whose top-level field
	// does not exist on the victim.
	ErrUnknownField = errors.New("unknown field")
	// ErrMalformedPath is returned for a path that does not fit the shape
	// of the records being merged.
	ErrMalformedPath = errors.New("malformed selection path")
)

// Outcome records what happened to one selected path.
type Outcome int

const (
	Replaced Outcome = iota
	Grown
	Appended
	Skipped
	Duplicate
)

func (o Outcome) String() string {
	switch o {
	case Replaced:
		return "replaced"
	case Grown:
		return "grown"
	case Appended:
		return "appended"
	case Skipped:
		return "skipped"
	case Duplicate:
		return "duplicate"
	}
	return "unknown"
}

// Step is the outcome of one selected path.
type Step struct {
	Path    string  `json:"path"`
	Action  string  `json:"action"`
	Outcome Outcome `json:"-"`
	Result  string  `json:"result"`
}

// Result is the merged target plus a log of what each path did.
type Result struct {
	Record record.Record
	Steps  []Step

	appended map[string]map[int]bool
}

// Skipped lists the paths that could not be applied.
func (r *Result) Skipped() []string {
	var out []string
	for _, s := range r.Steps {
		if s.Outcome == Skipped {
			out = append(out, s.Path)
		}
	}
	return out
}

// Engine applies selections. The zero value is not usable; call New.
type Engine struct {
	logger *zap.Logger
}

// New returns an engine logging to logger. A nil logger discards output.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Apply copies the selected paths from victim into target, mutating target
// in place. The victim is only read. When anything was selected, the
// target's title is refreshed from its first name's sort_name.
func (e *Engine) Apply(target, victim record.Record, sel selection.Selections) (*Result, error) {
	res := &Result{Record: target, appended: map[string]map[int]bool{}}

	for _, p := range sel {
		action := ActionFor(p.Head())
		var (
			out Outcome
			err error
		)
		switch {
		case p.Head() == "":
			err = fmt.Errorf("%w: %q does not start with a field", ErrMalformedPath, p)
		case action == ActionAppend:
			out, err = e.appendSubrecord(res, victim, p)
		default:
			out, err = e.replace(target, victim, p)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to apply %s: %w", p, err)
		}

		res.Steps = append(res.Steps, Step{Path: p.String(), Action: action.String(), Outcome: out, Result: out.String()})
		if out == Skipped {
			e.logger.Warn("selection skipped: target has no container at path", zap.String("path", p.String()))
		} else {
			e.logger.Debug("selection applied",
				zap.String("path", p.String()),
				zap.String("action", action.String()),
				zap.String("result", out.String()))
		}
	}

	if !sel.Empty() {
		if first, ok := firstName(target); ok {
			target["title"] = first["sort_name"]
		}
	}

	return res, nil
}

// DryRun computes the merged record on copies of target and victim, leaving
// both untouched. The preview's title is rendered from its first name, and
// the victim's related agents are folded into the preview's.
func (e *Engine) DryRun(target, victim record.Record, sel selection.Selections) (*Result, error) {
	preview := target.Clone()
	detached := victim.Clone()

	res, err := e.Apply(preview, detached, sel)
	if err != nil {
		return nil, err
	}

	if first, ok := firstName(preview); ok {
		title := PreviewSortName(first)
		preview["title"] = title
		first["sort_name"] = title
	}

	preview["related_agents"] = unionRelatedAgents(preview.List("related_agents"), detached.List("related_agents"), res.appended["related_agents"])

	return res, nil
}

// unionRelatedAgents appends the victim's related agents that are not
// already present by value. Entries already appended by the selection are
// represented by their rewired copies.
func unionRelatedAgents(target, victim []any, appended map[int]bool) []any {
	out := make([]any, 0, len(target)+len(victim))
	seen := func(v any) bool {
		for _, existing := range out {
			if record.Equal(existing, v) {
				return true
			}
		}
		return false
	}
	for _, v := range target {
		if !seen(v) {
			out = append(out, v)
		}
	}
	for i, v := range victim {
		if appended[i] || seen(v) {
			continue
		}
		out = append(out, record.CloneValue(v))
	}
	return out
}

func firstName(rec record.Record) (map[string]any, bool) {
	names := rec.List("names")
	if len(names) == 0 {
		return nil, false
	}
	return record.AsMap(names[0])
}

// appendSubrecord copies victim[field][index] onto the end of target[field]
// with its owner reference pointed at the target.
func (e *Engine) appendSubrecord(res *Result, victim record.Record, p selection.PathAddress) (Outcome, error) {
	field := p.Head()
	if len(p) < 2 || !p[1].IsIndex() {
		return 0, fmt.Errorf("%w: %s entries are selected by index", ErrMalformedPath, field)
	}
	idx := p[1].Index

	if res.appended[field][idx] {
		return Duplicate, nil
	}

	items, ok := record.AsList(victim[field])
	if !ok || idx >= len(items) {
		return 0, fmt.Errorf("%w: victim has no %s.%d", ErrMalformedPath, field, idx)
	}
	sub, ok := record.AsMap(items[idx])
	if !ok {
		return 0, fmt.Errorf("%w: %s.%d is not a subrecord", ErrMalformedPath, field, idx)
	}

	target := res.Record
	existing, ok := record.AsList(target[field])
	if !ok && target[field] != nil {
		return 0, fmt.Errorf("%w: target %s is not a list", ErrMalformedPath, field)
	}

	copied, _ := record.AsMap(record.CloneValue(sub))
	RewireOwner(copied, target["id"])
	if field == "names" {
		// The target keeps its own authorized and display names.
		copied["authorized"] = false
		copied["is_display_name"] = false
	}
	target[field] = append(existing, copied)

	if res.appended[field] == nil {
		res.appended[field] = map[int]bool{}
	}
	res.appended[field][idx] = true
	return Appended, nil
}

// growRule decides whether a target list of length n that is missing the
// selected index may grow by appending the victim's entry.
type growRule func(n, idx int) bool

// replace copies the value at p from victim to target. How missing list
// entries are handled depends on the depth of the path:
//
//	depth 1-3  a list shorter than the selected index grows by appending the
//	           victim's entry at that index, which ends the copy
//	depth 4    every container must exist; otherwise the path is skipped
//	depth 5    an empty list grows by appending the victim's entry; other
//	           missing entries skip the path
//	depth 6+   as depth 4
func (e *Engine) replace(target, victim record.Record, p selection.PathAddress) (Outcome, error) {
	if _, ok := victim[p.Head()]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownField, p.Head())
	}

	var grow growRule
	switch d := p.Depth(); {
	case d <= 3:
		grow = func(n, idx int) bool { return idx >= n }
	case d == 5:
		grow = func(n, idx int) bool { return n == 0 }
	}

	_, out, err := assign(map[string]any(target), map[string]any(victim), p, 0, grow)
	return out, err
}

// assign writes victim's value at p[i:] into tgt, the target container
// holding p[i]. It returns the container to store back in the parent, which
// differs from tgt when a list grew or a missing container was created.
func assign(tgt, vic any, p selection.PathAddress, i int, grow growRule) (any, Outcome, error) {
	seg := p[i]
	last := i == len(p)-1

	vchild, ok := lookup(vic, seg)
	if !ok {
		return tgt, 0, fmt.Errorf("%w: victim has no value at %s", ErrMalformedPath, p[:i+1])
	}

	if seg.Kind == selection.FieldSegment {
		m, ok := record.AsMap(tgt)
		if !ok {
			if tgt != nil {
				return tgt, 0, fmt.Errorf("%w: target %s is not a record", ErrMalformedPath, p[:i])
			}
			if grow == nil {
				return tgt, Skipped, nil
			}
			m = map[string]any{}
		}
		if last {
			m[seg.Field] = record.CloneValue(vchild)
			return m, Replaced, nil
		}
		next, out, err := assign(m[seg.Field], vchild, p, i+1, grow)
		if err != nil || out == Skipped {
			return tgt, out, err
		}
		m[seg.Field] = next
		return m, out, nil
	}

	l, ok := record.AsList(tgt)
	if !ok {
		if tgt != nil {
			return tgt, 0, fmt.Errorf("%w: target %s is not a list", ErrMalformedPath, p[:i])
		}
		l = []any{}
	}
	if seg.Index < len(l) {
		if last {
			l[seg.Index] = record.CloneValue(vchild)
			return l, Replaced, nil
		}
		next, out, err := assign(l[seg.Index], vchild, p, i+1, grow)
		if err != nil || out == Skipped {
			return tgt, out, err
		}
		l[seg.Index] = next
		return l, out, nil
	}
	if grow != nil && grow(len(l), seg.Index) {
		return append(l, record.CloneValue(vchild)), Grown, nil
	}
	return tgt, Skipped, nil
}

func lookup(container any, seg selection.Segment) (any, bool) {
	if seg.Kind == selection.FieldSegment {
		m, ok := record.AsMap(container)
		if !ok {
			return nil, false
		}
		v, ok := m[seg.Field]
		return v, ok
	}
	l, ok := record.AsList(container)
	if !ok || seg.Index < 0 || seg.Index >= len(l) {
		return nil, false
	}
	return l[seg.Index], true
}
