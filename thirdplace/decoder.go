package thirdplace

// Decoder turns raw feed records into typed events, resolving rooms and users
// through a Directory.
type Decoder struct {
	dir    *Directory
	client *Client
	logger Logger
}

// NewDecoder returns a decoder backed by dir.
func NewDecoder(dir *Directory, logger Logger) *Decoder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Decoder{dir: dir, logger: logger}
}

// Decode never fails. Unknown event types come back as *Unclassified.
func (d *Decoder) Decode(raw RawEvent) Event {
	switch raw.EventType {
	case rawNewMessage:
		d.logger.Debug("creating a new message event", rawFields(raw))
		return &NewMessage{MessageEvent: d.messageEvent(raw)}
	case rawEditMessage:
		d.logger.Debug("creating an edit message event", rawFields(raw))
		return &EditMessage{MessageEvent: d.messageEvent(raw)}
	default:
		return &Unclassified{Kind: raw.EventType, roomID: raw.RoomID}
	}
}

// DecodeJSON decodes one element of a room's "e" list.
func (d *Decoder) DecodeJSON(data []byte) Event {
	raw, ok := parseRawEvent(data)
	if !ok {
		d.logger.Debug("skipping non-object event record", map[string]any{"record": string(data)})
		return &Unclassified{Kind: -1}
	}
	return d.Decode(raw)
}

// messageEvent overwrites the cached room and user names with the record's,
// including with empty values.
func (d *Decoder) messageEvent(raw RawEvent) MessageEvent {
	ev := MessageEvent{
		roomID: raw.RoomID,
		Message: &Message{
			ID:      raw.MessageID,
			Content: raw.Content,
			UserID:  raw.UserID,
			RoomID:  raw.RoomID,
			client:  d.client,
		},
	}

	if raw.noRoom {
		d.logger.Debug("event without room_id", rawFields(raw))
	} else {
		ev.Room = d.dir.renameRoom(raw.RoomID, raw.RoomName)
	}
	if raw.noUser {
		d.logger.Debug("event without user_id", rawFields(raw))
	} else {
		ev.User = d.dir.renameUser(raw.UserID, raw.UserName)
	}

	return ev
}

func rawFields(raw RawEvent) map[string]any {
	return map[string]any{
		"event_type": raw.EventType,
		"room_id":    raw.RoomID,
		"user_id":    raw.UserID,
		"message_id": raw.MessageID,
	}
}
