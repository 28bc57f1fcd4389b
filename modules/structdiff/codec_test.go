package structdiff

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeCodec(t *testing.T) {
	cases := []struct {
		change Change
		json   string
	}{
		{Change{Op: OpRemove, Index: 3}, `{"Remove":3}`},
		{Change{Op: OpInsert, Index: 1, Text: "new line"}, `{"Insert":[1,"new line"]}`},
		{Change{Op: OpUpdate, Index: 0, Text: "x"}, `{"Update":[0,"x"]}`},
	}
	for _, c := range cases {
		data, err := json.Marshal(c.change)
		require.NoError(t, err)
		assert.JSONEq(t, c.json, string(data))

		var decoded Change
		require.NoError(t, json.Unmarshal([]byte(c.json), &decoded))
		assert.Equal(t, c.change, decoded)
	}
}

func TestChangeCodecRejectsBadVariants(t *testing.T) {
	var c Change
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"Replace":3}`), &c), ErrInvalidDiffFormat)
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"Remove":3,"Insert":[0,"x"]}`), &c), ErrInvalidDiffFormat)
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"Insert":[0]}`), &c), ErrInvalidDiffFormat)
}

func TestStructDiffCodecRoundTrip(t *testing.T) {
	diff, err := BuildFrom(originalMap, moddedMap, "tweak lanes")
	require.NoError(t, err)
	data, err := diff.Marshal()
	require.NoError(t, err)
	decoded, err := ParseStructDiff(data)
	require.NoError(t, err)
	assert.Equal(t, diff, decoded)
}

func TestParseStructDiffRestoresSortInvariant(t *testing.T) {
	decoded, err := ParseStructDiff([]byte(`{"comment":"","changes":[],"removed":[5,1],"added":[4,2]}`))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5}, decoded.Removed)
	assert.Equal(t, []int{2, 4}, decoded.Added)
}

func TestParseStructDiffRejectsMalformed(t *testing.T) {
	_, err := ParseStructDiff([]byte(`{"comment":1}`))
	assert.ErrorIs(t, err, ErrInvalidDiffFormat)
	_, err = ParseStructDiff([]byte(`{"removed":[-1]}`))
	assert.ErrorIs(t, err, ErrInvalidDiffFormat)
	_, err = ParseStructDiff([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidDiffFormat)
}

func TestDividerDefDiscrimination(t *testing.T) {
	d, err := unmarshalDivider([]byte(`{"prefix":"Foo","open":"\\{","close":"\\}"}`), "filter")
	require.NoError(t, err)
	assert.IsType(t, &Delimited{}, d)

	d, err = unmarshalDivider([]byte(`{"fuzzed":"\\[.*\\]","strict":null,"indent":"    "}`), "filter")
	require.NoError(t, err)
	require.IsType(t, &Headings{}, d)
	assert.Nil(t, d.(*Headings).Strict)

	d, err = unmarshalDivider([]byte(`{"top":"<Foo>","bottom":"</Foo>"}`), "filter")
	require.NoError(t, err)
	assert.IsType(t, &Enclosures{}, d)

	_, err = unmarshalDivider([]byte(`{"nope":1}`), "filter")
	assert.Error(t, err)
}

func TestParseConfigRejectsBadRegex(t *testing.T) {
	bad := `{
        "keys": [{"fuzzed": "lane: [", "strict": "[0-9]*"}],
        "filter": null,
        "expander": null
    }`
	_, err := ParseConfig([]byte(bad))
	require.Error(t, err)
	var regexErr *InvalidRegexError
	require.ErrorAs(t, err, &regexErr)
	assert.Equal(t, "key fuzzed", regexErr.Which)
	assert.Equal(t, "lane: [", regexErr.Pattern)
}

func TestConfigCodecRoundTrip(t *testing.T) {
	config, err := ParseConfig([]byte(testConfigJSON))
	require.NoError(t, err)
	data, err := json.Marshal(config)
	require.NoError(t, err)
	again, err := ParseConfig(data)
	require.NoError(t, err)

	s1, err := NewStructure(originalMap, config)
	require.NoError(t, err)
	s2, err := NewStructure(originalMap, again)
	require.NoError(t, err)
	assert.Equal(t, s1.Config.Filtered(s1.Contents), s2.Config.Filtered(s2.Contents))
	assert.Equal(t, s1.Keys(), s2.Keys())
}
