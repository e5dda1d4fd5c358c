package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType_WireNames(t *testing.T) {
	assert.Equal(t, TypeTwin, ParseType("twin"))
	assert.Equal(t, TypeDeviceJob, ParseType("deviceJob"))
	assert.Equal(t, TypeJobResponse, ParseType("jobResponse"))
	assert.Equal(t, TypeRaw, ParseType("raw"))
}

func TestParseType_CaseInsensitive(t *testing.T) {
	assert.Equal(t, TypeTwin, ParseType("TWIN"))
	assert.Equal(t, TypeDeviceJob, ParseType("devicejob"))
	assert.Equal(t, TypeRaw, ParseType(" Raw "))
}

func TestParseType_Unrecognized(t *testing.T) {
	assert.Equal(t, TypeUnknown, ParseType(""))
	assert.Equal(t, TypeUnknown, ParseType("Unknown"))
	assert.Equal(t, TypeUnknown, ParseType("module"))
}

func TestType_Valid(t *testing.T) {
	assert.True(t, TypeTwin.Valid())
	assert.True(t, TypeRaw.Valid())
	assert.False(t, TypeUnknown.Valid())
	assert.False(t, Type(42).Valid())
	assert.Equal(t, "unknown", Type(42).String())
}

func TestType_JSON(t *testing.T) {
	b, err := json.Marshal(map[string]Type{"type": TypeJobResponse})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"jobResponse"}`, string(b))

	var out struct {
		Type Type `json:"type"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"type":"TWIN"}`), &out))
	assert.Equal(t, TypeTwin, out.Type)
}
