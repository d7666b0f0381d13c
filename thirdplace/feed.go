package thirdplace

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Raw event_type values found in the broadcast queue.
const (
	rawNewMessage  = 1
	rawEditMessage = 2
)

// Batch is one timestamped entry of the broadcast queue.
type Batch struct {
	Time    int64        `json:"time"`
	Content BatchContent `json:"content"`
}

// BatchContent wraps the per-room event lists of a batch.
type BatchContent struct {
	Data RoomFeeds `json:"data"`
}

// RoomFeed is the value stored under one room key, e.g. "r42".
type RoomFeed struct {
	Key string
	Raw json.RawMessage
}

// RoomFeeds keeps room entries in the order they appear in the JSON object.
type RoomFeeds []RoomFeed

// RawEvent is a decoded element of a room's "e" list.
type RawEvent struct {
	EventType int
	RoomID    int64
	RoomName  string
	UserID    int64
	UserName  string
	Content   string
	MessageID int64
	TimeStamp int64

	// Set when the record has no usable room_id or user_id. Zero and
	// negative ids are valid and are not the same as a missing one.
	noRoom bool
	noUser bool
}

// ParseRoomKey strips the one-letter prefix of a room key and parses the rest.
func ParseRoomKey(key string) (int64, error) {
	if len(key) < 2 {
		return 0, NewError(ErrorInvalidArgument, fmt.Sprintf("room key %q too short", key))
	}
	id, err := strconv.ParseInt(key[1:], 10, 64)
	if err != nil {
		return 0, WrapError(ErrorInvalidArgument, fmt.Sprintf("room key %q", key), err)
	}
	return id, nil
}

// RoomKey is the inverse of ParseRoomKey.
func RoomKey(roomID int64) string {
	return "r" + strconv.FormatInt(roomID, 10)
}

// ParseQueue decodes a serialized broadcast queue. Empty input is an empty queue.
func ParseQueue(raw []byte) ([]Batch, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var batches []Batch
	if err := json.Unmarshal(raw, &batches); err != nil {
		return nil, WrapError(ErrorMalformedFeed, "cannot parse broadcast queue", err)
	}
	return batches, nil
}

// UnmarshalJSON reads the object in key order. Anything other than an object
// yields no rooms, the same as iterating the keys of a scalar.
func (f *RoomFeeds) UnmarshalJSON(data []byte) error {
	*f = nil
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		*f = append(*f, RoomFeed{Key: key, Raw: raw})
	}
	_, err = dec.Token()
	return err
}

// MarshalJSON writes the rooms as an object in slice order.
func (f RoomFeeds) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(r.Raw) == 0 {
			buf.WriteString("null")
			continue
		}
		buf.Write(r.Raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Events returns the elements of the room's "e" field, and false when the
// room value is not an object or "e" is not an array.
func (r RoomFeed) Events() ([]json.RawMessage, bool) {
	var v struct {
		E json.RawMessage `json:"e"`
	}
	if err := json.Unmarshal(r.Raw, &v); err != nil {
		return nil, false
	}
	if !bytes.HasPrefix(bytes.TrimSpace(v.E), []byte("[")) {
		return nil, false
	}
	var list []json.RawMessage
	if err := json.Unmarshal(v.E, &list); err != nil {
		return nil, false
	}
	return list, true
}

// FeedsFromRooms builds RoomFeeds from an /events style payload, a JSON
// object keyed by room key.
func FeedsFromRooms(payload []byte) (RoomFeeds, error) {
	var f RoomFeeds
	if err := f.UnmarshalJSON(payload); err != nil {
		return nil, WrapError(ErrorMalformedFeed, "cannot parse room payload", err)
	}
	return f, nil
}

// parseRawEvent reads one "e" element. Missing or mistyped fields are left at
// their zero value; ok is false only when the element is not an object.
func parseRawEvent(data []byte) (ev RawEvent, ok bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return RawEvent{}, false
	}
	eventType, _ := intField(fields, "event_type")
	ev.EventType = int(eventType)
	ev.RoomID, ok = intField(fields, "room_id")
	ev.noRoom = !ok
	ev.RoomName = stringField(fields, "room_name")
	ev.UserID, ok = intField(fields, "user_id")
	ev.noUser = !ok
	ev.UserName = stringField(fields, "user_name")
	ev.Content = stringField(fields, "content")
	ev.MessageID, _ = intField(fields, "message_id")
	ev.TimeStamp, _ = intField(fields, "time_stamp")
	return ev, true
}

// intField reads an integer given as a number or a numeric string. ok is
// false when the field is missing or not numeric.
func intField(fields map[string]json.RawMessage, name string) (int64, bool) {
	raw, ok := fields[name]
	if !ok {
		return 0, false
	}
	text := strings.TrimSpace(string(raw))
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = strings.TrimSpace(unquoted)
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i, true
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return int64(f), true
	}
	return 0, false
}

func stringField(fields map[string]json.RawMessage, name string) string {
	raw, ok := fields[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
