package selection

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBytes_JSONDocumentOrder(t *testing.T) {
	data := []byte(`{
		"title": "REPLACE",
		"names": [{"append": "REPLACE"}, {"append": "SKIP"}],
		"dates_of_existence": [],
		"publish": "REPLACE"
	}`)

	sel, err := ParseBytes(data)
	require.NoError(t, err)

	want := []string{"title", "names.0.append", "publish"}
	if diff := cmp.Diff(want, sel.Strings()); diff != "" {
		t.Errorf("selected paths mismatch (-want +got):\n%s", diff)
	}
}

func TestParseBytes_IndexSegmentsAreTagged(t *testing.T) {
	sel, err := ParseBytes([]byte(`{"agent_contacts": [{}, {"telephones": [{"number": "REPLACE"}]}]}`))
	require.NoError(t, err)
	require.Len(t, sel, 1)

	want := PathAddress{Field("agent_contacts"), Index(1), Field("telephones"), Index(0), Field("number")}
	assert.True(t, want.Equal(sel[0]), "got %s", sel[0])
	assert.True(t, sel[0][1].IsIndex())
	assert.False(t, sel[0][2].IsIndex())
}

func TestParseBytes_NumericLookingFieldNamesStayFields(t *testing.T) {
	// A map key made of digits is still a field; only list positions are indices.
	sel, err := ParseBytes([]byte(`{"notes": {"10": "REPLACE"}}`))
	require.NoError(t, err)
	require.Len(t, sel, 1)
	assert.Equal(t, FieldSegment, sel[0][1].Kind)
	assert.Equal(t, "10", sel[0][1].Field)
}

func TestParseBytes_LargeIndices(t *testing.T) {
	items := "["
	for i := 0; i < 120; i++ {
		if i > 0 {
			items += ","
		}
		if i == 115 {
			items += `"REPLACE"`
		} else {
			items += `null`
		}
	}
	items += "]"

	sel, err := ParseBytes([]byte(`{"agent_places": ` + items + `}`))
	require.NoError(t, err)
	require.Len(t, sel, 1)
	assert.Equal(t, "agent_places.115", sel[0].String())
	assert.Equal(t, 115, sel[0][1].Index)
}

func TestParseBytes_YAML(t *testing.T) {
	data := []byte(`
names:
  - sort_name: REPLACE
    primary_name: keep
dates_of_existence:
  - begin: REPLACE
`)
	sel, err := ParseBytes(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"names.0.sort_name", "dates_of_existence.0.begin"}, sel.Strings())
}

func TestParseBytes_EmptyAndNonReplace(t *testing.T) {
	for _, input := range []string{``, `{}`, `{"title": "replace"}`, `{"publish": true}`, `{"a": null}`} {
		sel, err := ParseBytes([]byte(input))
		require.NoError(t, err, input)
		assert.True(t, sel.Empty(), "input %q selected %v", input, sel.Strings())
	}
}

func TestParseBytes_Invalid(t *testing.T) {
	_, err := ParseBytes([]byte(`{"title": [}`))
	assert.Error(t, err)
}

func TestParse_SiblingsIndependent(t *testing.T) {
	root := Map(
		Entry{Key: "a", Value: Map(Entry{Key: "b", Value: List(Scalar(Replace), Scalar(Replace))})},
		Entry{Key: "c", Value: Scalar(Replace)},
	)
	assert.Equal(t, []string{"a.b.0", "a.b.1", "c"}, Parse(root).Strings())
}

func TestFromValue_SortsMapKeys(t *testing.T) {
	root := FromValue(map[string]any{
		"publish": Replace,
		"names":   []any{map[string]any{"x": Replace}},
	})
	assert.Equal(t, []string{"names.0.x", "publish"}, Parse(root).Strings())
}

func TestPathAddress_Head(t *testing.T) {
	assert.Equal(t, "names", PathAddress{Field("names"), Index(0)}.Head())
	assert.Equal(t, "", PathAddress{Index(0)}.Head())
	assert.Equal(t, "", PathAddress{}.Head())
}
