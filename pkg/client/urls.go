package client

import (
	"net/url"
)

const (
	pathDeviceQuery = "/devices/query"
	pathJobsQuery   = "/jobs/v2/query"
)

// url joins path to the base URL and appends api-version to q.
func (c *Client) url(path string, q url.Values) string {
	v := url.Values{}
	for k, vs := range q {
		v[k] = vs
	}
	v.Set("api-version", c.apiVersion)
	return c.baseURL + path + "?" + v.Encode()
}

func twinPath(deviceID, moduleID string) string {
	p := "/twins/" + url.PathEscape(deviceID)
	if moduleID != "" {
		p += "/modules/" + url.PathEscape(moduleID)
	}
	return p
}

func methodPath(deviceID, moduleID string) string {
	return twinPath(deviceID, moduleID) + "/methods"
}

func jobPath(jobID string) string {
	return "/jobs/v2/" + url.PathEscape(jobID)
}
