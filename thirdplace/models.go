package thirdplace

import "context"

// User is a chat participant. One instance per ID lives in the Directory.
type User struct {
	ID   int64
	Name string
}

// Room is a chat room. One instance per ID lives in the Directory.
type Room struct {
	ID           int64
	Name         string
	Messages     []*Message
	PresentUsers map[int64]*User
}

// Message is a chat message. Decoding creates a fresh Message for every
// event, so two events about the same message never share an instance.
type Message struct {
	// ID is zero until the message has been posted.
	ID      int64
	Content string
	UserID  int64
	RoomID  int64

	client *Client
}

// NewMessage returns an unposted message for roomID bound to the client.
func (c *Client) NewMessage(roomID int64, content string) *Message {
	return &Message{RoomID: roomID, Content: content, client: c}
}

// Posted reports whether the message has an identity on the host.
func (m *Message) Posted() bool { return m.ID != 0 }

// Room resolves the message's room through the client's directory.
func (m *Message) Room() *Room {
	if m.client == nil {
		return nil
	}
	return m.client.dir.RoomByID(m.RoomID)
}

// User resolves the message's author through the client's directory.
func (m *Message) User() *User {
	if m.client == nil {
		return nil
	}
	return m.client.dir.UserByID(m.UserID)
}

// Post edits the message when it already has an ID and creates it in its
// room otherwise. On creation the host-assigned ID is stored on m.
func (m *Message) Post(ctx context.Context) error {
	if err := m.checkPostable(); err != nil {
		return err
	}
	if m.client == nil {
		return NewError(ErrorNotConfigured, "message is not bound to a client")
	}
	return m.client.Post(ctx, m)
}

func (m *Message) checkPostable() error {
	if m == nil {
		return NewError(ErrorInvalidArgument, "nil message")
	}
	if m.ID == 0 && m.RoomID == 0 {
		return NewError(ErrorInvalidArgument, "cannot post without a room")
	}
	return nil
}
