package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/iothub-service/pkg/query"
)

func TestValidator_JSONSchema(t *testing.T) {
	schemaStr := `{"type": "object", "properties": {"name": {"type": "string"}, "age": {"type": "integer"}}, "required": ["name"]}`

	validator, err := NewValidatorFromJSON([]byte(schemaStr))
	require.NoError(t, err)

	result := validator.Validate([]byte(`{"name": "Alice", "age": 30}`))
	assert.True(t, result.Valid, "errors: %v", result.Errors)

	result = validator.Validate([]byte(`{"age": 30}`))
	assert.False(t, result.Valid)

	result = validator.Validate([]byte(`{"name": "Alice", "age": "thirty"}`))
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "/age")
}

func TestValidator_InvalidJSON(t *testing.T) {
	validator, err := NewValidatorFromJSON([]byte(`{"type": "object"}`))
	require.NoError(t, err)

	result := validator.Validate([]byte(`{`))
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "invalid JSON")
}

func TestForType_AllowsUnknownProperties(t *testing.T) {
	type device struct {
		DeviceID string `json:"deviceId"`
		Status   string `json:"status,omitempty"`
	}

	s, err := ForType(&device{})
	require.NoError(t, err)
	v, err := NewValidator(s)
	require.NoError(t, err)

	assert.True(t, v.Validate([]byte(`{"deviceId":"d1","modelId":"dtmi:x;1"}`)).Valid)
	assert.False(t, v.Validate([]byte(`{"status":"enabled"}`)).Valid)
	assert.False(t, v.Validate([]byte(`{"deviceId":7}`)).Valid)
}

func TestItemValidator(t *testing.T) {
	iv, err := NewItemValidator()
	require.NoError(t, err)

	twin := json.RawMessage(`{"deviceId":"d1","etag":"AAAA","version":3,"tags":{"site":"north"},"properties":{"desired":{"$version":1},"reported":{}}}`)
	assert.NoError(t, iv.ValidateItem(query.TypeTwin, twin))

	err = iv.ValidateItem(query.TypeTwin, json.RawMessage(`{"etag":"AAAA"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "twin item does not match schema")

	err = iv.ValidateItem(query.TypeTwin, json.RawMessage(`{"deviceId":"d1","version":"three"}`))
	assert.Error(t, err)

	job := json.RawMessage(`{"jobId":"j1","type":"scheduleDeviceMethod","status":"running","deviceJobStatistics":{"deviceCount":1,"failedCount":0,"succeededCount":0,"runningCount":1,"pendingCount":0}}`)
	assert.NoError(t, iv.ValidateItem(query.TypeJobResponse, job))

	assert.NoError(t, iv.ValidateItem(query.TypeRaw, json.RawMessage(`42`)))
	assert.Nil(t, iv.Schema(query.TypeRaw))
	assert.NotNil(t, iv.Schema(query.TypeDeviceJob))
}
