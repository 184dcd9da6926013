package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalValue_Canonical(t *testing.T) {
	got, err := marshalValue(map[string]any{"b": 1.0, "a": "<x>"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<x>","b":1}`, got)
}

func TestMarshalValue_FlagsMap(t *testing.T) {
	got, err := marshalValue(map[string]bool{"z": true, "a": false})
	require.NoError(t, err)
	assert.Equal(t, `{"a":false,"z":true}`, got)
}

func TestMarshalValue_FallbackKeepsHTML(t *testing.T) {
	got, err := marshalValue(map[string]any{"v": struct {
		S string `json:"s"`
	}{S: "<b>"}})
	require.NoError(t, err)
	assert.Equal(t, `{"v":{"s":"<b>"}}`, got)
}

func TestUnmarshalObject_Empty(t *testing.T) {
	for _, in := range []string{"", "null", "{}"} {
		got, err := unmarshalObject(in)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{}, got, "input %q", in)
	}
}

func TestUnmarshalFlags_Invalid(t *testing.T) {
	_, err := unmarshalFlags(`{"a":"yes"}`)
	assert.Error(t, err)
}
