package datasource

import (
	"testing"

	"github.com/coolbeans/regelrecht/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleKeyLookup(t *testing.T) {
	reg := NewRegistry()
	reg.Add(NewSource("ages", 10, []string{"BSN"}, []Record{
		{"bsn": value.String("111222333"), "leeftijd": value.Int(42)},
	}))

	v, ok, err := reg.Lookup(map[string]string{"bsn": "111222333"}, "leeftijd")
	require.NoError(t, err)
	require.True(t, ok)
	i, _ := v.AsInt()
	assert.Equal(t, int64(42), i)
}

func TestMultiKeyLookup(t *testing.T) {
	reg := NewRegistry()
	reg.Add(NewSource("insurance", 10, []string{"bsn", "year"}, []Record{
		{"bsn": value.String("1"), "year": value.Int(2025), "is_verzekerd": value.Bool(true)},
	}))

	v, ok, err := reg.Lookup(map[string]string{"BSN": "1", "YEAR": "2025"}, "is_verzekerd")
	require.NoError(t, err)
	require.True(t, ok)
	b, _ := v.AsBool()
	assert.True(t, b)
}

func TestPriorityOrderWins(t *testing.T) {
	reg := NewRegistry()
	reg.Add(NewSource("low", 1, []string{"bsn"}, []Record{{"bsn": value.String("1"), "x": value.Int(1)}}))
	reg.Add(NewSource("high", 10, []string{"bsn"}, []Record{{"bsn": value.String("1"), "x": value.Int(2)}}))

	v, ok, err := reg.Lookup(map[string]string{"bsn": "1"}, "x")
	require.NoError(t, err)
	require.True(t, ok)
	i, _ := v.AsInt()
	assert.Equal(t, int64(2), i)
}

func TestEmptySourceIsNotApplicable(t *testing.T) {
	reg := NewRegistry()
	reg.Add(NewSource("empty", 10, []string{"bsn"}, nil))
	reg.Add(NewSource("fallback", 1, []string{"bsn"}, []Record{{"bsn": value.String("1"), "x": value.Int(7)}}))

	v, ok, err := reg.Lookup(map[string]string{"bsn": "1"}, "x")
	require.NoError(t, err)
	require.True(t, ok)
	i, _ := v.AsInt()
	assert.Equal(t, int64(7), i)
}

func TestMatchedSourceWithNoRecordFails(t *testing.T) {
	reg := NewRegistry()
	reg.Add(NewSource("ages", 10, []string{"bsn"}, []Record{
		{"bsn": value.String("1"), "x": value.Int(1)},
	}))

	_, ok, err := reg.Lookup(map[string]string{"bsn": "does-not-exist"}, "x")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestNoMatchingSourceIsSilent(t *testing.T) {
	reg := NewRegistry()
	reg.Add(NewSource("ages", 10, []string{"bsn"}, []Record{{"bsn": value.String("1"), "x": value.Int(1)}}))

	_, ok, err := reg.Lookup(map[string]string{"other_key": "1"}, "x")
	require.NoError(t, err)
	assert.False(t, ok)
}
