package thirdplace

// EventType discriminates the events handlers can subscribe to.
type EventType int

const (
	// EventNone marks events no handler can receive.
	EventNone EventType = iota
	EventNewMessage
	EventEditMessage
)

// String returns the wire name of an EventType.
func (t EventType) String() string {
	switch t {
	case EventNewMessage:
		return "newMessage"
	case EventEditMessage:
		return "editMessage"
	default:
		return "none"
	}
}

// ParseEventType converts "newMessage" or "editMessage" to an EventType.
func ParseEventType(s string) (EventType, error) {
	switch s {
	case "newMessage":
		return EventNewMessage, nil
	case "editMessage":
		return EventEditMessage, nil
	default:
		return EventNone, NewError(ErrorUnknownEventType, "invalid event type "+s)
	}
}

func (t EventType) routable() bool {
	return t == EventNewMessage || t == EventEditMessage
}

// Event is one of *NewMessage, *EditMessage or *Unclassified.
type Event interface {
	Type() EventType
	RoomID() int64
}

// MessageEvent holds the fields shared by message events.
type MessageEvent struct {
	Message *Message

	// Room and User point into the client's Directory. They are nil when the
	// raw record carried no usable id.
	Room *Room
	User *User

	roomID int64
}

func (e *MessageEvent) RoomID() int64 { return e.roomID }

// NewMessage is emitted when a message is posted to a room.
type NewMessage struct {
	MessageEvent
}

func (*NewMessage) Type() EventType { return EventNewMessage }

// EditMessage is emitted when a previously posted message is edited.
type EditMessage struct {
	MessageEvent
}

func (*EditMessage) Type() EventType { return EventEditMessage }

// Unclassified carries a raw record with an event_type the SDK does not model.
// It is never delivered to handlers.
type Unclassified struct {
	// Kind is the raw event_type, or -1 when the record was not an object.
	Kind int

	roomID int64
}

func (*Unclassified) Type() EventType { return EventNone }
func (u *Unclassified) RoomID() int64 { return u.roomID }
