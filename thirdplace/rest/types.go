package rest

import "fmt"

// Host endpoints.
const (
	PathEvents = "/events"
)

// EditPath addresses an existing message.
func EditPath(messageID int64) string {
	return fmt.Sprintf("/messages/%d", messageID)
}

// CreatePath addresses a room's message list.
func CreatePath(roomID int64) string {
	return fmt.Sprintf("/chats/%d/messages/new", roomID)
}

// PostResponse is returned by the host after creating a message.
type PostResponse struct {
	ID   int64 `json:"id"`
	Time int64 `json:"time"`
}

// APIError is returned for responses with status >= 400.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http error: %s (status %d)", e.Body, e.StatusCode)
}
