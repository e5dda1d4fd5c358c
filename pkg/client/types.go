package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Twin is the service-side document describing a device or module.
type Twin struct {
	DeviceID                  string              `json:"deviceId"`
	ModuleID                  string              `json:"moduleId,omitempty"`
	ETag                      string              `json:"etag,omitempty"`
	DeviceETag                string              `json:"deviceEtag,omitempty"`
	Version                   int64               `json:"version,omitempty"`
	Status                    string              `json:"status,omitempty"`
	StatusReason              string              `json:"statusReason,omitempty"`
	StatusUpdateTime          string              `json:"statusUpdateTime,omitempty"`
	ConnectionState           string              `json:"connectionState,omitempty"`
	LastActivityTime          string              `json:"lastActivityTime,omitempty"`
	CloudToDeviceMessageCount int                 `json:"cloudToDeviceMessageCount,omitempty"`
	AuthenticationType        string              `json:"authenticationType,omitempty"`
	Capabilities              *DeviceCapabilities `json:"capabilities,omitempty"`
	Tags                      map[string]any      `json:"tags,omitempty"`
	Properties                *TwinProperties     `json:"properties,omitempty"`
}

// DeviceCapabilities lists optional device features.
type DeviceCapabilities struct {
	IoTEdge bool `json:"iotEdge"`
}

// TwinProperties holds the desired and reported property sets. Each set
// carries its own $version and $metadata entries.
type TwinProperties struct {
	Desired  map[string]any `json:"desired,omitempty"`
	Reported map[string]any `json:"reported,omitempty"`
}

// MethodRequest describes a direct method invocation.
type MethodRequest struct {
	MethodName               string          `json:"methodName"`
	Payload                  json.RawMessage `json:"payload,omitempty"`
	ResponseTimeoutInSeconds int             `json:"responseTimeoutInSeconds,omitempty"`
	ConnectTimeoutInSeconds  int             `json:"connectTimeoutInSeconds,omitempty"`
}

// MethodResult is the device's answer to a direct method.
type MethodResult struct {
	Status  int             `json:"status"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Job types.
const (
	JobTypeDeviceMethod = "scheduleDeviceMethod"
	JobTypeTwinUpdate   = "scheduleUpdateTwin"
)

// Job statuses.
const (
	JobStatusQueued    = "queued"
	JobStatusScheduled = "scheduled"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

// JobRequest schedules a job against the devices matched by QueryCondition.
type JobRequest struct {
	JobID                     string         `json:"jobId"`
	Type                      string         `json:"type"`
	QueryCondition            string         `json:"queryCondition"`
	CloudToDeviceMethod       *MethodRequest `json:"cloudToDeviceMethod,omitempty"`
	UpdateTwin                *Twin          `json:"updateTwin,omitempty"`
	StartTime                 time.Time      `json:"startTime"`
	MaxExecutionTimeInSeconds int64          `json:"maxExecutionTimeInSeconds"`
}

// JobResponse is the state of a scheduled job. The jobResponse query type
// returns items of this shape.
type JobResponse struct {
	JobID                     string         `json:"jobId"`
	Type                      string         `json:"type"`
	Status                    string         `json:"status"`
	QueryCondition            string         `json:"queryCondition,omitempty"`
	CreatedTime               string         `json:"createdTime,omitempty"`
	StartTime                 string         `json:"startTime,omitempty"`
	EndTime                   string         `json:"endTime,omitempty"`
	MaxExecutionTimeInSeconds int64          `json:"maxExecutionTimeInSeconds,omitempty"`
	CloudToDeviceMethod       *MethodRequest `json:"cloudToDeviceMethod,omitempty"`
	UpdateTwin                *Twin          `json:"updateTwin,omitempty"`
	FailureReason             string         `json:"failureReason,omitempty"`
	StatusMessage             string         `json:"statusMessage,omitempty"`
	DeviceJobStatistics       *JobStatistics `json:"deviceJobStatistics,omitempty"`
}

// JobStatistics counts device outcomes of a job.
type JobStatistics struct {
	DeviceCount    int `json:"deviceCount"`
	FailedCount    int `json:"failedCount"`
	SucceededCount int `json:"succeededCount"`
	RunningCount   int `json:"runningCount"`
	PendingCount   int `json:"pendingCount"`
}

// DeviceJob is the per-device record of a job, returned by queries over
// devices.jobs.
type DeviceJob struct {
	DeviceID               string      `json:"deviceId"`
	ModuleID               string      `json:"moduleId,omitempty"`
	JobID                  string      `json:"jobId"`
	JobType                string      `json:"jobType"`
	Status                 string      `json:"status"`
	StartTimeUTC           string      `json:"startTimeUtc,omitempty"`
	EndTimeUTC             string      `json:"endTimeUtc,omitempty"`
	CreatedDateTimeUTC     string      `json:"createdDateTimeUtc,omitempty"`
	LastUpdatedDateTimeUTC string      `json:"lastUpdatedDateTimeUtc,omitempty"`
	Outcome                *JobOutcome `json:"outcome,omitempty"`
	Error                  *JobError   `json:"error,omitempty"`
}

// JobOutcome holds the device's direct method response for method jobs.
type JobOutcome struct {
	DeviceMethodResponse *MethodResult `json:"deviceMethodResponse,omitempty"`
}

// JobError describes why a job failed on one device.
type JobError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// APIError represents an error response from the service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("iothub API error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// errorResponse is the JSON structure for API errors.
type errorResponse struct {
	Message          string `json:"Message"`
	ExceptionMessage string `json:"ExceptionMessage"`
}
