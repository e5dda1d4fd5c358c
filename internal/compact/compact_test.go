package compact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue_DropsMetadata(t *testing.T) {
	twin := map[string]any{
		"deviceId": "d1",
		"properties": map[string]any{
			"reported": map[string]any{
				"fw":        "1.2",
				"$version":  4.0,
				"$metadata": map[string]any{"fw": map[string]any{"$lastUpdated": "2024-01-01T00:00:00Z"}},
			},
		},
	}

	got := Value(twin, DefaultOptions()).(map[string]any)
	reported := got["properties"].(map[string]any)["reported"].(map[string]any)
	assert.NotContains(t, reported, "$metadata")
	assert.Equal(t, 4.0, reported["$version"])

	orig := twin["properties"].(map[string]any)["reported"].(map[string]any)
	assert.Contains(t, orig, "$metadata", "input must not be modified")
}

func TestValue_KeepsMetadataWhenDisabled(t *testing.T) {
	in := map[string]any{"$metadata": map[string]any{}}
	got := Value(in, Options{}).(map[string]any)
	assert.Contains(t, got, "$metadata")
}

func TestValue_TrimsArrays(t *testing.T) {
	in := []any{1.0, 2.0, 3.0, 4.0, 5.0}
	got := Value(in, Options{MaxArrayItems: 2}).([]any)
	assert.Equal(t, []any{1.0, 2.0, "... (3 more items)"}, got)

	got = Value(in, Options{MaxArrayItems: 5}).([]any)
	assert.Len(t, got, 5)

	got = Value([]any{}, Options{MaxArrayItems: 2}).([]any)
	assert.Empty(t, got)
}

func TestValue_TruncatesStrings(t *testing.T) {
	long := strings.Repeat("a", 20)
	assert.Equal(t, "aaaaa... (15 more chars)", Value(long, Options{MaxStringLen: 5}))
	assert.Equal(t, long, Value(long, Options{}))
	assert.Equal(t, "short", Value("short", Options{MaxStringLen: 5}))
}

func TestValue_TruncatesOnRuneBoundary(t *testing.T) {
	got := Value("aé", Options{MaxStringLen: 2}).(string)
	assert.True(t, strings.HasPrefix(got, "a..."), got)
}

func TestValues(t *testing.T) {
	items := []any{map[string]any{"$metadata": 1, "k": "v"}, "x"}
	got := Values(items, DefaultOptions())
	assert.Equal(t, map[string]any{"k": "v"}, got[0])
	assert.Equal(t, "x", got[1])
}
