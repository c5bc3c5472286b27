package server

import "errors"

// Occupancy limit. Calls are strictly two-party.
const roomCapacity = 2

// Registry failure modes, surfaced to the offending client as targeted
// error events.
var (
	ErrAlreadyInRoom = errors.New("already in a room")
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrRoomExists    = errors.New("room already exists")
)

// Room is a rendezvous point for at most two members. Members keeps
// insertion order; the first member is the one who created the room.
type Room struct {
	ID      string
	Members []*Client
}

// other returns the member that is not c, or nil.
func (r *Room) other(c *Client) *Client {
	for _, m := range r.Members {
		if m != c {
			return m
		}
	}
	return nil
}

// Registry owns the room/membership state. It is not safe for concurrent
// use: all mutations happen on the hub goroutine.
type Registry struct {
	rooms map[string]*Room
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// CreateRoom creates a room and inserts c as its sole occupant. When
// requestedID is empty a fresh collision-checked id is generated.
func (reg *Registry) CreateRoom(requestedID string, c *Client) (string, error) {
	if c.RoomID != "" {
		return "", ErrAlreadyInRoom
	}

	id := requestedID
	if id == "" {
		id = reg.generateRoomID()
	} else if _, ok := reg.rooms[id]; ok {
		return "", ErrRoomExists
	}

	reg.rooms[id] = &Room{ID: id, Members: []*Client{c}}
	c.RoomID = id
	return id, nil
}

// JoinRoom adds c to an existing room and returns the occupant already
// present, if any, so the hub can notify it.
func (reg *Registry) JoinRoom(id string, c *Client) (*Client, error) {
	if c.RoomID != "" {
		return nil, ErrAlreadyInRoom
	}

	room, ok := reg.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if len(room.Members) >= roomCapacity {
		return nil, ErrRoomFull
	}

	peer := room.other(c)
	room.Members = append(room.Members, c)
	c.RoomID = id
	return peer, nil
}

// LeaveRoom removes c from its room, deleting the room once empty. It is
// idempotent: a client that is not a member of any room is a no-op. The
// remaining occupant is returned so the hub can send it peer-left.
func (reg *Registry) LeaveRoom(c *Client) (remaining *Client, left bool) {
	if c.RoomID == "" {
		return nil, false
	}

	room, ok := reg.rooms[c.RoomID]
	c.RoomID = ""
	if !ok {
		return nil, false
	}

	members := room.Members[:0]
	for _, m := range room.Members {
		if m != c {
			members = append(members, m)
		}
	}
	if len(members) == len(room.Members) {
		return nil, false
	}
	room.Members = members

	if len(room.Members) == 0 {
		delete(reg.rooms, room.ID)
		return nil, true
	}
	return room.Members[0], true
}

// Peers returns the members of a room other than excluding. The sender
// must itself be a member, otherwise the message has an invalid room
// binding and nothing is returned.
func (reg *Registry) Peers(roomID string, excluding *Client) ([]*Client, bool) {
	room, ok := reg.rooms[roomID]
	if !ok {
		return nil, false
	}

	isMember := false
	peers := make([]*Client, 0, roomCapacity-1)
	for _, m := range room.Members {
		if m == excluding {
			isMember = true
			continue
		}
		peers = append(peers, m)
	}
	if !isMember {
		return nil, false
	}
	return peers, true
}

// Len reports the number of live rooms.
func (reg *Registry) Len() int {
	return len(reg.rooms)
}
