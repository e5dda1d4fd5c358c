package query

import (
	"context"
	"errors"
	"net/http"
)

// scriptedPage is one canned response of a scriptedFetcher.
type scriptedPage struct {
	itemType string
	token    string
	body     string
	err      error
}

// scriptedFetcher replays pages in order and records every request.
type scriptedFetcher struct {
	pages    []scriptedPage
	requests []*HTTPRequest
}

func (f *scriptedFetcher) Fetch(_ context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	f.requests = append(f.requests, req)
	if len(f.requests) > len(f.pages) {
		return nil, errors.New("unexpected request")
	}
	p := f.pages[len(f.requests)-1]
	if p.err != nil {
		return nil, p.err
	}

	header := make(http.Header)
	if p.itemType != "" {
		header.Set(HeaderItemType, p.itemType)
	}
	if p.token != "" {
		header.Set(HeaderContinuation, p.token)
	}
	return &HTTPResponse{StatusCode: http.StatusOK, Header: header, Body: []byte(p.body)}, nil
}

func (f *scriptedFetcher) target() Target {
	return Target{Fetcher: f, Method: http.MethodPost, URL: "https://hub.example.net/devices/query"}
}

type testItem struct {
	DeviceID string `json:"deviceId"`
}
