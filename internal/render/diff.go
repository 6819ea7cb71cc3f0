package render

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff returns a unified diff of the indented JSON forms of before and
// after. Identical values give an empty string.
func Diff(before, after interface{}, fromName, toName string) (string, error) {
	a, err := json.MarshalIndent(before, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", fromName, err)
	}
	b, err := json.MarshalIndent(after, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", toName, err)
	}

	if bytes.Equal(a, b) {
		return "", nil
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a) + "\n"),
		B:        difflib.SplitLines(string(b) + "\n"),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}
