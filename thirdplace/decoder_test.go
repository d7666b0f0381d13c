package thirdplace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecoder_Classification(t *testing.T) {
	req := require.New(t)
	d := NewDecoder(NewDirectory(), nil)

	newEv := d.Decode(RawEvent{EventType: 1, RoomID: 42, UserID: 7, Content: "hi"})
	_, ok := newEv.(*NewMessage)
	req.True(ok)
	req.Equal(EventNewMessage, newEv.Type())

	editEv := d.Decode(RawEvent{EventType: 2, RoomID: 42, UserID: 7, Content: "hi!"})
	_, ok = editEv.(*EditMessage)
	req.True(ok)
	req.Equal(EventEditMessage, editEv.Type())

	other := d.Decode(RawEvent{EventType: 99, RoomID: 42})
	u, ok := other.(*Unclassified)
	req.True(ok)
	req.Equal(EventNone, other.Type())
	req.Equal(99, u.Kind)
	req.Equal(int64(42), other.RoomID())
}

func TestDecoder_Populates_Message_And_References(t *testing.T) {
	req := require.New(t)
	dir := NewDirectory()
	d := NewDecoder(dir, nil)

	ev := d.Decode(RawEvent{EventType: 1, RoomID: 42, RoomName: "Lounge", UserID: 7, UserName: "Ann", Content: "hi", MessageID: 900})
	msg := ev.(*NewMessage)

	req.Equal(int64(42), msg.RoomID())
	req.Equal("hi", msg.Message.Content)
	req.Equal(int64(7), msg.Message.UserID)
	req.Equal(int64(42), msg.Message.RoomID)
	req.Equal(int64(900), msg.Message.ID)

	room := dir.RoomByID(42)
	user := dir.UserByID(7)
	req.Same(room, msg.Room)
	req.Same(user, msg.User)
	req.Equal("Lounge", room.Name)
	req.Equal("Ann", user.Name)
}

func TestDecoder_Creates_Fresh_Message_Per_Event(t *testing.T) {
	req := require.New(t)
	d := NewDecoder(NewDirectory(), nil)
	raw := RawEvent{EventType: 1, RoomID: 42, UserID: 7, Content: "hi", MessageID: 900}

	a := d.Decode(raw).(*NewMessage)
	b := d.Decode(raw).(*NewMessage)

	req.NotSame(a.Message, b.Message)
	req.Same(a.Room, b.Room)
	req.Same(a.User, b.User)
}

// Decoding overwrites names on every event, unlike the location helper.
func TestDecoder_Overwrites_Names(t *testing.T) {
	req := require.New(t)
	dir := NewDirectory()
	d := NewDecoder(dir, nil)

	d.Decode(RawEvent{EventType: 1, RoomID: 42, RoomName: "Lounge", UserID: 7, UserName: "Ann"})
	ev := d.Decode(RawEvent{EventType: 2, RoomID: 42, RoomName: "Tavern", UserID: 7, UserName: "Annie"}).(*EditMessage)

	req.Equal("Tavern", ev.Room.Name)
	req.Equal("Annie", ev.User.Name)

	// An event without names blanks them.
	d.Decode(RawEvent{EventType: 1, RoomID: 42, UserID: 7})
	req.Empty(ev.Room.Name)
	req.Empty(ev.User.Name)

	// The location helper then fills the blank room name back in.
	room, ok := dir.CurrentRoomFromLocation("/rooms/42/lounge")
	req.True(ok)
	req.Equal("lounge", room.Name)
}

func TestDecoder_Never_Fails_On_Missing_Fields(t *testing.T) {
	req := require.New(t)
	d := NewDecoder(NewDirectory(), nil)

	ev := d.DecodeJSON([]byte(`{"event_type":1}`))
	msg, ok := ev.(*NewMessage)
	req.True(ok)
	req.NotNil(msg.Message)
	req.Nil(msg.Room)
	req.Nil(msg.User)
	req.Empty(msg.Message.Content)

	ev = d.DecodeJSON([]byte(`"not an object"`))
	u, ok := ev.(*Unclassified)
	req.True(ok)
	req.Equal(-1, u.Kind)

	ev = d.DecodeJSON([]byte(`null`))
	req.Equal(EventNone, ev.Type())
}

func TestDecoder_Lenient_Field_Types(t *testing.T) {
	req := require.New(t)
	d := NewDecoder(NewDirectory(), nil)

	ev := d.DecodeJSON([]byte(`{"event_type":"1","room_id":"42","user_id":7.0,"user_name":5,"content":"hi"}`))
	msg, ok := ev.(*NewMessage)
	req.True(ok)
	req.Equal(int64(42), msg.RoomID())
	req.Equal(int64(7), msg.User.ID)
	req.Empty(msg.User.Name)
	req.Equal("hi", msg.Message.Content)
}

func TestDecoder_Resolves_Negative_And_Zero_IDs(t *testing.T) {
	req := require.New(t)
	dir := NewDirectory()
	d := NewDecoder(dir, nil)

	// Given a feed bot posting under a negative user id
	ev := d.DecodeJSON([]byte(`{"event_type":1,"room_id":42,"user_id":-2,"user_name":"Feeds","content":"news"}`))

	// Then the user is resolved like any other
	msg, ok := ev.(*NewMessage)
	req.True(ok)
	req.NotNil(msg.User)
	req.Equal(int64(-2), msg.User.ID)
	req.Equal("Feeds", msg.User.Name)
	req.Same(dir.UserByID(-2), msg.User)

	// And an explicit zero id is present, not missing
	ev = d.DecodeJSON([]byte(`{"event_type":2,"room_id":0,"user_id":0}`))
	edit := ev.(*EditMessage)
	req.NotNil(edit.Room)
	req.NotNil(edit.User)
	req.Zero(edit.Room.ID)
}

func TestDecoder_Unreadable_IDs_Are_Missing(t *testing.T) {
	req := require.New(t)
	d := NewDecoder(NewDirectory(), nil)

	ev := d.DecodeJSON([]byte(`{"event_type":1,"room_id":"lounge","user_id":null,"content":"hi"}`))

	msg := ev.(*NewMessage)
	req.Nil(msg.Room)
	req.Nil(msg.User)
	req.Equal("hi", msg.Message.Content)
}
