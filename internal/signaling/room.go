package signaling

import "github.com/google/uuid"

// Room represents a single pairing unit where two peers (sender and
// receiver) meet. Occupancy order decides the role: the connection that
// joined first holds the Sender slot.
type Room struct {
	// ID is the unique identifier for the room, a v4 UUID generated by
	// the sending peer and shared out of band (the share link).
	ID string

	// Sender is the client who created the room (occupant #1).
	Sender *Client

	// Receiver is the client who joined the room (occupant #2).
	Receiver *Client
}

// Occupancy returns the number of connected participants.
func (r *Room) Occupancy() int {
	n := 0
	if r.Sender != nil {
		n++
	}
	if r.Receiver != nil {
		n++
	}
	return n
}

// Other returns the occupant that is not c, or nil.
func (r *Room) Other(c *Client) *Client {
	if r.Sender == c {
		return r.Receiver
	}
	if r.Receiver == c {
		return r.Sender
	}
	return nil
}

// remove clears whichever slot c occupies and reports whether the room
// is now empty.
func (r *Room) remove(c *Client) bool {
	if r.Sender == c {
		r.Sender = nil
	} else if r.Receiver == c {
		r.Receiver = nil
	}
	return r.Sender == nil && r.Receiver == nil
}

// Registry is the in-memory mapping from room id to room. It is owned
// by the Hub's run loop; all access is serialized through that single
// goroutine, so no locking is needed here.
type Registry struct {
	rooms map[string]*Room
}

// NewRegistry creates an empty room registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Get returns the room with the given id, or nil.
func (reg *Registry) Get(id string) *Room {
	return reg.rooms[id]
}

// GetOrCreate returns the room with the given id, creating it on first
// join.
func (reg *Registry) GetOrCreate(id string) *Room {
	room, ok := reg.rooms[id]
	if !ok {
		room = &Room{ID: id}
		reg.rooms[id] = room
	}
	return room
}

// Evict deletes a room. Called when its membership drops to zero so the
// registry cannot grow without bound.
func (reg *Registry) Evict(id string) {
	delete(reg.rooms, id)
}

// Len returns the number of live rooms.
func (reg *Registry) Len() int {
	return len(reg.rooms)
}

// ValidRoomID reports whether s is shaped like a version-4 UUID. Room
// ids are minted by peers, not the server, so format is all the server
// can check.
func ValidRoomID(s string) bool {
	id, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return id.Version() == 4 && id.Variant() == uuid.RFC4122
}
