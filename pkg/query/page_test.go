package query

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePage(t *testing.T) {
	page, err := ParsePage[testItem]([]byte(`[{"deviceId":"d1"},{"deviceId":"d2"}]`), "next")
	require.NoError(t, err)

	assert.Equal(t, []testItem{{DeviceID: "d1"}, {DeviceID: "d2"}}, page.Items())
	assert.Equal(t, 2, page.Len())
	assert.Equal(t, "next", page.ContinuationToken())
	assert.True(t, page.HasMore())
}

func TestParsePage_EmptyDocument(t *testing.T) {
	_, err := ParsePage[testItem](nil, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ParsePage[testItem]([]byte("  "), "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestParsePage_NotAnArray(t *testing.T) {
	_, err := ParsePage[testItem]([]byte(`{"deviceId":"d1"}`), "")
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestParsePage_RawItems(t *testing.T) {
	page, err := ParsePage[json.RawMessage]([]byte(`[1,"two",{"three":3}]`), "")
	require.NoError(t, err)

	require.Len(t, page.Items(), 3)
	assert.JSONEq(t, `{"three":3}`, string(page.Items()[2]))
	assert.False(t, page.HasMore())
}

func TestNewPage(t *testing.T) {
	page, err := NewPage([]string{"a"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, page.Items())

	empty, err := NewPage([]string{}, "")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	_, err = NewPage[string](nil, "tok")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSequence_ForwardOnly(t *testing.T) {
	seq := newSequence([]int{1, 2})

	assert.True(t, seq.HasNext())
	assert.True(t, seq.HasNext())
	assert.Equal(t, 2, seq.Remaining())

	v, err := seq.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = seq.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	assert.False(t, seq.HasNext())
	_, err = seq.Next()
	assert.ErrorIs(t, err, ErrExhausted)
}

type rejectDevice struct{ id string }

func (r rejectDevice) ValidateItem(_ Type, item json.RawMessage) error {
	var it testItem
	if err := json.Unmarshal(item, &it); err != nil {
		return err
	}
	if it.DeviceID == r.id {
		return errors.New("rejected")
	}
	return nil
}

func TestDecodeItems_ValidatorRejectsWholePage(t *testing.T) {
	_, err := decodeItems[testItem]([]byte(`[{"deviceId":"ok"},{"deviceId":"bad"}]`), TypeTwin, rejectDevice{id: "bad"})
	assert.ErrorIs(t, err, ErrProtocol)
	assert.Contains(t, err.Error(), "item 1")
}
