package thirdplace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestReader(q QueueSource) (*Reader, *Watermark, *Directory) {
	dir := NewDirectory()
	wm := &Watermark{}
	return NewReader(q, NewDecoder(dir, nil), wm, nil, nil), wm, dir
}

func TestReader_End_To_End(t *testing.T) {
	req := require.New(t)
	q := NewMemoryQueue(0)
	q.Set(queueJSON(batchJSON(100, roomJSON("r42", rawEventJSON(1, 42, "Lounge", 7, "Ann", "hi")))))
	r, wm, _ := newTestReader(q)

	events, err := r.PullNewEvents(context.Background())

	req.NoError(err)
	req.Len(events, 1)
	ev, ok := events[0].(*NewMessage)
	req.True(ok)
	req.Equal("Lounge", ev.Room.Name)
	req.Equal("Ann", ev.User.Name)
	req.Equal("hi", ev.Message.Content)
	req.Equal(int64(100), wm.Value())
}

func TestReader_Watermark_Skips_Older_Batches(t *testing.T) {
	req := require.New(t)
	q := NewMemoryQueue(0)
	q.Set(queueJSON(
		batchJSON(5, roomJSON("r1", rawEventJSON(1, 1, "a", 1, "u", "five"))),
		batchJSON(3, roomJSON("r1", rawEventJSON(1, 1, "a", 1, "u", "three"))),
		batchJSON(9, roomJSON("r1", rawEventJSON(1, 1, "a", 1, "u", "nine"))),
	))
	r, wm, _ := newTestReader(q)

	events, err := r.PullNewEvents(context.Background())

	req.NoError(err)
	req.Len(events, 2)
	req.Equal("five", events[0].(*NewMessage).Message.Content)
	req.Equal("nine", events[1].(*NewMessage).Message.Content)
	req.Equal(int64(9), wm.Value())
}

func TestReader_Same_Snapshot_Twice_Yields_Nothing(t *testing.T) {
	req := require.New(t)
	q := NewMemoryQueue(0)
	q.Set(queueJSON(batchJSON(100, roomJSON("r42", rawEventJSON(1, 42, "Lounge", 7, "Ann", "hi")))))
	r, _, _ := newTestReader(q)

	first, err := r.PullNewEvents(context.Background())
	req.NoError(err)
	req.Len(first, 1)

	second, err := r.PullNewEvents(context.Background())
	req.NoError(err)
	req.Empty(second)
}

func TestReader_Orders_By_Batch_Then_Room_Key_Then_List(t *testing.T) {
	req := require.New(t)
	q := NewMemoryQueue(0)
	q.Set(queueJSON(
		batchJSON(10,
			roomJSON("r9", rawEventJSON(1, 9, "nine", 1, "u", "a"), rawEventJSON(1, 9, "nine", 1, "u", "b")),
			roomJSON("r2", rawEventJSON(1, 2, "two", 1, "u", "c")),
		),
		batchJSON(11, roomJSON("r2", rawEventJSON(2, 2, "two", 1, "u", "d"))),
	))
	r, _, _ := newTestReader(q)

	events, err := r.PullNewEvents(context.Background())
	req.NoError(err)

	var contents []string
	for _, ev := range events {
		switch e := ev.(type) {
		case *NewMessage:
			contents = append(contents, e.Message.Content)
		case *EditMessage:
			contents = append(contents, e.Message.Content)
		}
	}
	req.Equal([]string{"a", "b", "c", "d"}, contents)
}

func TestReader_Skips_Non_Array_Event_Lists(t *testing.T) {
	req := require.New(t)
	q := NewMemoryQueue(0)
	q.Set(queueJSON(batchJSON(50,
		`"r1":{"e":{"event_type":1}}`,
		`"r2":{"t":12}`,
		`"r3":5`,
		roomJSON("r4", rawEventJSON(1, 4, "four", 1, "u", "ok")),
	)))
	r, wm, _ := newTestReader(q)

	events, err := r.PullNewEvents(context.Background())

	req.NoError(err)
	req.Len(events, 1)
	req.Equal(int64(4), events[0].RoomID())
	req.Equal(int64(50), wm.Value())
}

func TestReader_Advances_On_Empty_Batch(t *testing.T) {
	req := require.New(t)
	q := NewMemoryQueue(0)
	q.Set(queueJSON(batchJSON(77), `{"time":78}`))
	r, wm, _ := newTestReader(q)

	events, err := r.PullNewEvents(context.Background())

	req.NoError(err)
	req.Empty(events)
	req.Equal(int64(78), wm.Value())
}

func TestReader_Unclassified_Events_Are_Returned(t *testing.T) {
	req := require.New(t)
	q := NewMemoryQueue(0)
	q.Set(queueJSON(batchJSON(5, roomJSON("r1", `{"event_type":99,"room_id":1}`))))
	r, _, _ := newTestReader(q)

	events, err := r.PullNewEvents(context.Background())

	req.NoError(err)
	req.Len(events, 1)
	req.Equal(EventNone, events[0].Type())
}

func TestReader_Malformed_Feed_Keeps_Watermark(t *testing.T) {
	req := require.New(t)
	q := NewMemoryQueue(0)
	q.Set(queueJSON(batchJSON(5, roomJSON("r1", rawEventJSON(1, 1, "a", 1, "u", "x")))))
	r, wm, _ := newTestReader(q)
	_, err := r.PullNewEvents(context.Background())
	req.NoError(err)

	// Given a corrupted queue
	q.Set([]byte(`[{"time":9,"content":`))

	// When polling
	events, err := r.PullNewEvents(context.Background())

	// Then nothing is produced and the watermark stays
	req.Error(err)
	req.True(errors.Is(err, ErrMalformedFeed))
	req.True(IsFeedError(err))
	req.Empty(events)
	req.Equal(int64(5), wm.Value())

	// And a repaired queue is picked up from the same watermark
	q.Set(queueJSON(batchJSON(9, roomJSON("r1", rawEventJSON(1, 1, "a", 1, "u", "y")))))
	events, err = r.PullNewEvents(context.Background())
	req.NoError(err)
	req.Len(events, 1)
	req.Equal(int64(9), wm.Value())
}

func TestReader_Source_Error_Is_Malformed_Feed(t *testing.T) {
	req := require.New(t)
	r, wm, _ := newTestReader(failingSource{err: errors.New("disk gone")})

	events, err := r.PullNewEvents(context.Background())

	req.True(errors.Is(err, ErrMalformedFeed))
	req.Empty(events)
	req.Zero(wm.Value())
}

func TestReader_Empty_Queue(t *testing.T) {
	req := require.New(t)
	r, wm, _ := newTestReader(NewMemoryQueue(0))

	events, err := r.PullNewEvents(context.Background())

	req.NoError(err)
	req.Empty(events)
	req.Zero(wm.Value())
}
