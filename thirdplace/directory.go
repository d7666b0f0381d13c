package thirdplace

import (
	"regexp"
	"strconv"
	"sync"
)

var roomPathPattern = regexp.MustCompile(`^/rooms/([0-9]+)/(.*)$`)

// Directory is the identity cache for rooms and users. For a given ID it
// always returns the same instance. Any int64 is a valid ID; feed bots post
// under negative user IDs. Entries are never evicted.
//
// Directory is safe for concurrent use.
type Directory struct {
	mu    sync.Mutex
	rooms map[int64]*Room
	users map[int64]*User
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		rooms: make(map[int64]*Room),
		users: make(map[int64]*User),
	}
}

// RoomByID returns the room for id, creating it on first reference.
func (d *Directory) RoomByID(id int64) *Room {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.room(id)
}

// UserByID returns the user for id, creating it on first reference.
func (d *Directory) UserByID(id int64) *User {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.user(id)
}

// CurrentRoomFromLocation derives a room from a path like /rooms/42/lounge.
// The name from the path is only used when the room has none yet.
// It returns false when the path does not name a room.
func (d *Directory) CurrentRoomFromLocation(path string) (*Room, bool) {
	m := roomPathPattern.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.room(id)
	if r.Name == "" {
		r.Name = m[2]
	}
	return r, true
}

// Len returns the number of cached rooms and users.
func (d *Directory) Len() (rooms, users int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rooms), len(d.users)
}

// renameRoom resolves id and overwrites the room's name, even with an empty one.
func (d *Directory) renameRoom(id int64, name string) *Room {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.room(id)
	r.Name = name
	return r
}

// renameUser resolves id and overwrites the user's name, even with an empty one.
func (d *Directory) renameUser(id int64, name string) *User {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := d.user(id)
	u.Name = name
	return u
}

// room must be called with mu held.
func (d *Directory) room(id int64) *Room {
	r, ok := d.rooms[id]
	if !ok {
		r = &Room{ID: id, PresentUsers: make(map[int64]*User)}
		d.rooms[id] = r
	}
	return r
}

// user must be called with mu held.
func (d *Directory) user(id int64) *User {
	u, ok := d.users[id]
	if !ok {
		u = &User{ID: id}
		d.users[id] = u
	}
	return u
}
