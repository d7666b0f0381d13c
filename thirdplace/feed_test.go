package thirdplace

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func TestParseRoomKey(t *testing.T) {
	req := require.New(t)

	id, err := ParseRoomKey("r42")
	req.NoError(err)
	req.Equal(int64(42), id)

	for _, key := range []string{"", "r", "rx", "42"} {
		_, err := ParseRoomKey(key)
		if key == "42" {
			// The prefix is not checked; only the first character is dropped.
			req.NoError(err)
			continue
		}
		req.True(errors.Is(err, ErrInvalidArgument), key)
	}

	req.Equal("r42", RoomKey(42))
}

func TestRoomFeeds_Preserve_Key_Order(t *testing.T) {
	req := require.New(t)

	feeds, err := FeedsFromRooms([]byte(`{"r9":{"e":[]},"r1":{"e":[]},"r5":{"t":3}}`))
	req.NoError(err)
	req.Len(feeds, 3)
	req.Equal("r9", feeds[0].Key)
	req.Equal("r1", feeds[1].Key)
	req.Equal("r5", feeds[2].Key)

	out, err := json.Marshal(feeds)
	req.NoError(err)
	req.JSONEq(`{"r9":{"e":[]},"r1":{"e":[]},"r5":{"t":3}}`, string(out))
}

func TestRoomFeeds_Non_Object_Data_Is_Empty(t *testing.T) {
	req := require.New(t)

	batches, err := ParseQueue([]byte(`[{"time":1,"content":{"data":null}},{"time":2,"content":{"data":7}},{"time":3}]`))
	req.NoError(err)
	req.Len(batches, 3)
	for _, b := range batches {
		req.Empty(b.Content.Data)
	}
}

func TestParseQueue_Rejects_Non_Array(t *testing.T) {
	req := require.New(t)

	_, err := ParseQueue([]byte(`{"time":1}`))
	req.True(errors.Is(err, ErrMalformedFeed))

	batches, err := ParseQueue([]byte("  "))
	req.NoError(err)
	req.Empty(batches)
}
