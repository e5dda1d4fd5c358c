package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResourceURI(t *testing.T) {
	tests := []struct {
		uri  string
		want map[string]string
	}{
		{"iothub://twin/d1", map[string]string{"device": "d1"}},
		{"iothub://twin/d1/edgeAgent", map[string]string{"device": "d1", "module": "edgeAgent"}},
		{"iothub://twin/room%2F4", map[string]string{"device": "room/4"}},
		{"iothub://job/fw-42", map[string]string{"job": "fw-42"}},
		{"iothub://schema/twin", map[string]string{"item_type": "twin"}},
	}
	for _, tt := range tests {
		got, err := parseResourceURI(tt.uri)
		require.NoError(t, err, tt.uri)
		assert.Equal(t, tt.want, got, tt.uri)
	}
}

func TestParseResourceURI_Invalid(t *testing.T) {
	for _, uri := range []string{
		"http://twin/d1",
		"iothub://twin",
		"iothub://twin/",
		"iothub://job/",
		"iothub://schema",
		"iothub://entry/1/2",
	} {
		_, err := parseResourceURI(uri)
		assert.Error(t, err, uri)
	}
}

func TestHubName(t *testing.T) {
	assert.Equal(t, "fleet", hubName("fleet.azure-devices.net"))
	assert.Equal(t, "localhost", hubName("localhost"))
}
