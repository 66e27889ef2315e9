package seat

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bnema/wayseat/internal/logger"
)

// DefaultMaxSeats bounds how many seats a Manager tracks at once.
const DefaultMaxSeats = 8

var (
	// ErrSeatLimit is returned when the manager already tracks its maximum
	// number of seats.
	ErrSeatLimit = errors.New("seat limit reached")
	// ErrSeatExists is returned when a seat name is already taken.
	ErrSeatExists = errors.New("seat already exists")
)

// Manager owns the seats of one server instance.
type Manager struct {
	SeatAdded   Signal[*Seat]
	SeatRemoved Signal[*Seat]

	registry Registry
	maxSeats int
	seats    []*Seat
}

// NewManager creates a manager delivering through registry. maxSeats <= 0
// means DefaultMaxSeats.
func NewManager(registry Registry, maxSeats int) *Manager {
	if maxSeats <= 0 {
		maxSeats = DefaultMaxSeats
	}
	return &Manager{
		registry: registry,
		maxSeats: maxSeats,
	}
}

// NewSeat creates and tracks a seat with no capabilities.
func (m *Manager) NewSeat(name string) (*Seat, error) {
	if m.Seat(name) != nil {
		return nil, fmt.Errorf("seat %q: %w", name, ErrSeatExists)
	}
	if len(m.seats) >= m.maxSeats {
		return nil, fmt.Errorf("cannot create seat %q (%d tracked): %w", name, len(m.seats), ErrSeatLimit)
	}

	s := New(name, m.registry, nil)
	m.seats = append(m.seats, s)
	logger.Debugf("Created seat %s (%d/%d)", name, len(m.seats), m.maxSeats)
	m.SeatAdded.Emit(s)
	return s, nil
}

// Seat returns the seat called name, or nil
func (m *Manager) Seat(name string) *Seat {
	for _, s := range m.seats {
		if s.name == name {
			return s
		}
	}
	return nil
}

// Seats returns the tracked seats in creation order
func (m *Manager) Seats() []*Seat {
	return slices.Clone(m.seats)
}

// MaxSeats returns the seat bound
func (m *Manager) MaxSeats() int {
	return m.maxSeats
}

// Remove disables every capability of s and stops tracking it.
func (m *Manager) Remove(s *Seat) {
	i := slices.Index(m.seats, s)
	if i < 0 {
		return
	}
	s.Disable(CapAll)
	m.seats = slices.Delete(m.seats, i, i+1)
	logger.Debugf("Removed seat %s", s.name)
	m.SeatRemoved.Emit(s)
}

// Close removes every seat.
func (m *Manager) Close() {
	for len(m.seats) > 0 {
		m.Remove(m.seats[len(m.seats)-1])
	}
}
