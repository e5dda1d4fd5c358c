package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollection_Validation(t *testing.T) {
	f := &scriptedFetcher{}

	_, err := NewCollection[testItem]("select * from devices", 10, TypeTwin, f.target())
	require.NoError(t, err)

	_, err = NewCollection[testItem]("select * from devices", 0, TypeTwin, f.target())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewCollection[testItem]("select * from devices", 10, TypeUnknown, f.target())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewCollection[testItem]("not a query", 10, TypeTwin, f.target())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	noURL := f.target()
	noURL.URL = ""
	_, err = NewPlainCollection[testItem](10, TypeTwin, noURL)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	noMethod := f.target()
	noMethod.Method = ""
	_, err = NewPlainCollection[testItem](10, TypeTwin, noMethod)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewPlainCollection[testItem](10, TypeTwin, Target{Method: "GET", URL: "u"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCollection_WalksPages(t *testing.T) {
	f := &scriptedFetcher{pages: []scriptedPage{
		{itemType: "twin", token: "tok1", body: `[{"deviceId":"a"},{"deviceId":"b"}]`},
		{itemType: "twin", body: `[{"deviceId":"c"}]`},
	}}
	col, err := NewCollection[testItem]("select * from devices", 2, TypeTwin, f.target())
	require.NoError(t, err)

	ctx := context.Background()
	assert.True(t, col.HasNext())

	page, err := col.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, []testItem{{DeviceID: "a"}, {DeviceID: "b"}}, page.Items())
	assert.Equal(t, "tok1", page.ContinuationToken())
	assert.True(t, col.HasNext())

	page, err = col.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, []testItem{{DeviceID: "c"}}, page.Items())
	assert.Empty(t, page.ContinuationToken())

	require.Len(t, f.requests, 2)
	assert.Equal(t, "tok1", f.requests[1].Header.Get(HeaderContinuation))
	assert.Equal(t, "2", f.requests[1].Header.Get(HeaderPageSize))
}

func TestCollection_GracefulEnd(t *testing.T) {
	f := &scriptedFetcher{pages: []scriptedPage{
		{itemType: "twin", body: `[{"deviceId":"a"}]`},
	}}
	col, err := NewCollection[testItem]("select * from devices", 10, TypeTwin, f.target())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = col.Next(ctx)
	require.NoError(t, err)
	assert.False(t, col.HasNext())

	for range 3 {
		page, err := col.Next(ctx)
		require.NoError(t, err)
		assert.Nil(t, page)
	}
	assert.Len(t, f.requests, 1)
}

func TestCollection_EmptyFirstPageStillCounts(t *testing.T) {
	f := &scriptedFetcher{pages: []scriptedPage{
		{itemType: "deviceJob", body: `[]`},
	}}
	col, err := NewCollection[testItem]("select * from devices.jobs", 10, TypeDeviceJob, f.target())
	require.NoError(t, err)

	page, err := col.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, 0, page.Len())
	assert.False(t, col.HasNext())
}

func TestCollection_NextWithOverrides(t *testing.T) {
	f := &scriptedFetcher{pages: []scriptedPage{
		{itemType: "twin", token: "stored", body: `[]`},
		{itemType: "twin", token: "after-override", body: `[]`},
		{itemType: "twin", body: `[]`},
	}}
	col, err := NewCollection[testItem]("select * from devices", 10, TypeTwin, f.target())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = col.Next(ctx)
	require.NoError(t, err)

	_, err = col.NextWith(ctx, Options{ContinuationToken: "override", PageSize: 7})
	require.NoError(t, err)

	_, err = col.NextWith(ctx, Options{PageSize: 3})
	require.NoError(t, err)

	require.Len(t, f.requests, 3)
	assert.Empty(t, f.requests[0].Header.Get(HeaderContinuation))
	assert.Equal(t, "10", f.requests[0].Header.Get(HeaderPageSize))
	assert.Equal(t, "override", f.requests[1].Header.Get(HeaderContinuation))
	assert.Equal(t, "7", f.requests[1].Header.Get(HeaderPageSize))
	assert.Equal(t, "after-override", f.requests[2].Header.Get(HeaderContinuation))
	assert.Equal(t, "3", f.requests[2].Header.Get(HeaderPageSize))
	assert.Equal(t, 10, col.PageSize())
}

func TestCollection_InvalidOptionsNeverReachNetwork(t *testing.T) {
	f := &scriptedFetcher{}
	col, err := NewCollection[testItem]("select * from devices", 10, TypeTwin, f.target())
	require.NoError(t, err)

	_, err = col.NextWith(context.Background(), Options{PageSize: 0})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Empty(t, f.requests)
	assert.True(t, col.HasNext())
}

func TestCollection_TypeMismatchLeavesStateUntouched(t *testing.T) {
	f := &scriptedFetcher{pages: []scriptedPage{
		{itemType: "twin", token: "tok1", body: `[]`},
		{itemType: "raw", token: "tok2", body: `[]`},
	}}
	col, err := NewCollection[testItem]("select * from devices", 10, TypeTwin, f.target())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = col.Next(ctx)
	require.NoError(t, err)

	_, err = col.Next(ctx)
	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.Equal(t, "tok1", col.ContinuationToken())
	assert.Equal(t, TypeTwin, col.ResponseType())
	assert.True(t, col.HasNext())
}

func TestCollection_UnknownTypeBeforeFirstPage(t *testing.T) {
	f := &scriptedFetcher{pages: []scriptedPage{
		{itemType: "Unknown", token: "tok1", body: `[]`},
	}}
	col, err := NewPlainCollection[testItem](10, TypeJobResponse, f.target())
	require.NoError(t, err)

	_, err = col.Next(context.Background())
	assert.ErrorIs(t, err, ErrTypeNotDefined)
	assert.True(t, col.HasNext())
	assert.Empty(t, col.ContinuationToken())
}
