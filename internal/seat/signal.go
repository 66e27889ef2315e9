package seat

// Signal is a synchronous, single-threaded observer list. Emit runs every
// connected slot in connection order before returning.
type Signal[T any] struct {
	slots []*Connection
}

// Connection is the token returned by Connect.
type Connection struct {
	fn        any
	connected bool
	remove    func(*Connection)
}

// Connect registers fn and returns a token that disconnects it.
func (s *Signal[T]) Connect(fn func(T)) *Connection {
	c := &Connection{fn: fn, connected: true}
	c.remove = func(c *Connection) {
		for i, other := range s.slots {
			if other == c {
				s.slots = append(s.slots[:i:i], s.slots[i+1:]...)
				return
			}
		}
	}
	s.slots = append(s.slots, c)
	return c
}

// Emit calls every connected slot with v. Slots disconnected while the
// signal is being emitted are skipped.
func (s *Signal[T]) Emit(v T) {
	slots := s.slots
	for _, c := range slots {
		if !c.connected {
			continue
		}
		c.fn.(func(T))(v)
	}
}

// Len returns the number of connected slots
func (s *Signal[T]) Len() int {
	return len(s.slots)
}

// Disconnect removes the slot. Safe to call more than once.
func (c *Connection) Disconnect() {
	if c == nil || !c.connected {
		return
	}
	c.connected = false
	c.remove(c)
}
