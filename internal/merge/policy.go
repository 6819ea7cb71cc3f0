package merge

import "sort"

// Action is how a selected top-level field is carried from victim to target.
type Action int

const (
	// ActionReplace copies the selected value over the target's.
	ActionReplace Action = iota
	// ActionAppend appends a rewired copy of the victim's subrecord.
	ActionAppend
)

func (a Action) String() string {
	if a == ActionAppend {
		return "append"
	}
	return "replace"
}

// appendFields are the repeated subrecord lists of an agent record. Every
// other top-level field is replaced.
var appendFields = map[string]bool{
	"agent_record_identifiers":       true,
	"agent_record_controls":          true,
	"agent_other_agency_codes":       true,
	"agent_conventions_declarations": true,
	"agent_maintenance_histories":    true,
	"agent_sources":                  true,
	"agent_alternate_sets":           true,
	"agent_identifiers":              true,
	"names":                          true,
	"dates_of_existence":             true,
	"agent_genders":                  true,
	"agent_places":                   true,
	"agent_occupations":              true,
	"agent_functions":                true,
	"agent_topics":                   true,
	"used_languages":                 true,
	"agent_contacts":                 true,
	"notes":                          true,
	"external_documents":             true,
	"agent_resources":                true,
	"related_agents":                 true,
}

// ActionFor returns the merge action for a top-level field name.
func ActionFor(field string) Action {
	if appendFields[field] {
		return ActionAppend
	}
	return ActionReplace
}

// AppendFields lists the subrecord fields that are appended on merge,
// sorted.
func AppendFields() []string {
	out := make([]string, 0, len(appendFields))
	for f := range appendFields {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
