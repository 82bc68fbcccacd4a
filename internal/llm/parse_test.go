package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponseDirect(t *testing.T) {
	rep := ParseResponse(`{"fields":[{"key":"Invoice Number","value":"INV-001"},{"key":"Total","value":1698.5}]}`, MustFieldValidator())
	require.NoError(t, rep.Err)
	assert.False(t, rep.Recovered)
	assert.Equal(t, []Field{{Key: "Invoice Number", Value: "INV-001"}, {Key: "Total", Value: "1698.5"}}, rep.Fields)
}

func TestParseResponseRecoversBraceSpan(t *testing.T) {
	rep := ParseResponse(`Sure, here: {"fields": [{"key":"a","value":"b"}]} Hope this helps!`, MustFieldValidator())
	require.NoError(t, rep.Err)
	assert.True(t, rep.Recovered)
	assert.Equal(t, []Field{{Key: "a", Value: "b"}}, rep.Fields)
}

func TestParseResponseDegradesToEmpty(t *testing.T) {
	for _, content := range []string{
		"I could not find any fields in this document.",
		"",
		"{not json at all}",
		`["fields"]`,
		`{"result": "nothing"}`,
	} {
		rep := ParseResponse(content, MustFieldValidator())
		assert.Error(t, rep.Err, content)
		assert.Empty(t, rep.Fields, content)
	}
}

func TestParseResponseSkipsBadFields(t *testing.T) {
	content := `{"fields":[
		{"key":"Good","value":"1"},
		{"key":"","value":"x"},
		{"key":"Null","value":null},
		{"value":"no key"},
		{"key":"Obj","value":{"nested":true}},
		"just a string",
		{"key":"Flag","value":true},
		{"key":"Big","value":12345678901234567890}
	]}`
	rep := ParseResponse(content, MustFieldValidator())
	require.NoError(t, rep.Err)
	assert.Equal(t, []Field{
		{Key: "Good", Value: "1"},
		{Key: "Flag", Value: "true"},
		{Key: "Big", Value: "12345678901234567890"},
	}, rep.Fields)
	assert.Len(t, rep.Skipped, 5)
	for _, s := range rep.Skipped {
		assert.False(t, s.OK)
		assert.NotEmpty(t, s.Reason)
	}
}

func TestFieldValidatorTrimsKey(t *testing.T) {
	res := MustFieldValidator().Check(map[string]any{"key": "  Total ", "value": "10"})
	require.True(t, res.OK)
	assert.Equal(t, "Total", res.Field.Key)

	res = MustFieldValidator().Check(map[string]any{"key": "   ", "value": "10"})
	assert.False(t, res.OK)
}
