package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON_ScanAndValue_RoundTrip(t *testing.T) {
	j := NewJSON(Metrics{InputTokens: 10, OutputTokens: 20})

	v, err := j.Value()
	require.NoError(t, err)

	var roundTripped JSON[Metrics]
	require.NoError(t, roundTripped.Scan(v))
	assert.Equal(t, j.Value, roundTripped.Value)
}

func TestJSON_Scan_NilValue(t *testing.T) {
	var j JSON[Metrics]
	require.NoError(t, j.Scan(nil))
	assert.Equal(t, Metrics{}, j.Value)
}

func TestJSONStrings_ScanAndValue_RoundTrip(t *testing.T) {
	s := JSONStrings{"a", "b", "c"}

	v, err := s.Value()
	require.NoError(t, err)

	var roundTripped JSONStrings
	require.NoError(t, roundTripped.Scan(v))
	assert.Equal(t, s, roundTripped)
}

func TestJSONStrings_Scan_NilValue(t *testing.T) {
	var s JSONStrings
	require.NoError(t, s.Scan(nil))
	assert.Nil(t, s)
}
