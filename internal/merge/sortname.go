package merge

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxSortNameLength caps a rendered sort name, in characters.
const MaxSortNameLength = 255

// PreviewSortName renders the display title of a name subrecord the way
// the stored name models derive their sort name. Overlong results are
// truncated, never rejected.
func PreviewSortName(name map[string]any) string {
	var b strings.Builder
	get := func(field string) (string, bool) { return nameField(name, field) }
	add := func(format, field string) {
		if v, ok := get(field); ok {
			fmt.Fprintf(&b, format, v)
		}
	}

	kind, _ := name["jsonmodel_type"].(string)
	switch kind {
	case "name_person":
		switch name["name_order"] {
		case "inverted":
			add("%s", "primary_name")
			add(", %s", "rest_of_name")
		case "direct":
			add("%s", "rest_of_name")
			add(" %s", "primary_name")
		default:
			add("%s", "primary_name")
		}
		add(", %s", "prefix")
		add(", %s", "suffix")
		add(", %s", "title")
		add(", %s", "number")
		add(" (%s)", "fuller_form")
		add(", %s", "dates")
	case "name_corporate_entity":
		add("%s", "primary_name")
		add(". %s", "subordinate_name_1")
		add(". %s", "subordinate_name_2")

		var grouped []string
		for _, f := range []string{"number", "dates"} {
			if v, ok := get(f); ok {
				grouped = append(grouped, v)
			}
		}
		if len(grouped) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(grouped, " : "))
		}
	case "name_family":
		add("%s", "family_name")
		add(", %s", "prefix")
		add(", %s", "dates")
	case "name_software":
		add("%s ", "manufacturer")
		add("%s", "software_name")
		add(" %s", "version")
	}

	add(" (%s)", "qualifier")

	return truncateRunes(strings.TrimLeftFunc(b.String(), unicode.IsSpace), MaxSortNameLength)
}

// nameField returns a field's text when it is present. Null and false are
// absent. Empty strings are treated as absent too, so a blank form field
// never leaves a dangling separator.
func nameField(name map[string]any, field string) (string, bool) {
	v, ok := name[field]
	if !ok || v == nil || v == false {
		return "", false
	}
	s, isString := v.(string)
	if !isString {
		s = fmt.Sprint(v)
	}
	if s == "" {
		return "", false
	}
	return s, true
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
