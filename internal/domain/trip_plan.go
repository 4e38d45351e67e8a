package domain

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var ErrStopNotFound = errors.New("stop not found")

// TripPlan is the in-memory session aggregate: a start place, an ordered list of
// stops, a return-to-start flag and an optional departure time.
//
// The order of stops is the user-visible and optimizer-visible position.
// Stops are indexed by ID so locked-stop lookups never rely on value equality.
// A TripPlan is never persisted.
type TripPlan struct {
	mu            sync.Mutex
	start         *Place
	order         []int64
	stops         map[int64]*Stop
	nextID        int64
	returnToStart bool
	departAt      *time.Time

	busy atomic.Bool
}

// PlanSnapshot is a consistent copy of a TripPlan's state.
type PlanSnapshot struct {
	Start         *Place
	Stops         []Stop
	ReturnToStart bool
	DepartAt      *time.Time
}

func NewTripPlan() *TripPlan {
	return &TripPlan{stops: make(map[int64]*Stop)}
}

// Set the start place.
func (p *TripPlan) SetStart(place Place) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.start = &place
}

func (p *TripPlan) SetReturnToStart(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.returnToStart = v
}

// SetDepartAt sets the optional departure time; nil clears it.
func (p *TripPlan) SetDepartAt(t *time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t == nil {
		p.departAt = nil
		return
	}
	v := *t
	p.departAt = &v
}

// Append a new stop with the given address and return a copy of it.
func (p *TripPlan) AddStop(address string) Stop {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	s := &Stop{ID: p.nextID, Address: strings.TrimSpace(address)}
	p.stops[s.ID] = s
	p.order = append(p.order, s.ID)
	return *s
}

func (p *TripPlan) RemoveStop(id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("remove stop %d: %w", id, ErrStopNotFound)
	}
	p.order = append(p.order[:idx], p.order[idx+1:]...)
	delete(p.stops, id)
	return nil
}

// Move a stop to a new position, shifting the others.
func (p *TripPlan) MoveStop(id int64, to int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	from := p.indexOf(id)
	if from < 0 {
		return fmt.Errorf("move stop %d: %w", id, ErrStopNotFound)
	}
	if to < 0 || to >= len(p.order) {
		return fmt.Errorf("move stop %d: position %d out of range [0, %d)", id, to, len(p.order))
	}

	p.order = append(p.order[:from], p.order[from+1:]...)
	p.order = append(p.order[:to], append([]int64{id}, p.order[to:]...)...)
	return nil
}

// Reorder replaces the stop order. ids must be a permutation of the current stop IDs.
func (p *TripPlan) Reorder(ids []int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(ids) != len(p.order) {
		return fmt.Errorf("reorder stops: got %d ids, plan has %d stops", len(ids), len(p.order))
	}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := p.stops[id]; !ok {
			return fmt.Errorf("reorder stops: stop %d: %w", id, ErrStopNotFound)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("reorder stops: stop %d listed twice", id)
		}
		seen[id] = struct{}{}
	}

	p.order = append(p.order[:0:0], ids...)
	return nil
}

// Change a stop's address. A changed address clears the resolved place.
func (p *TripPlan) SetStopAddress(id int64, address string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.stops[id]
	if !ok {
		return fmt.Errorf("set stop address %d: %w", id, ErrStopNotFound)
	}
	address = strings.TrimSpace(address)
	if address != s.Address {
		s.Address = address
		s.Place = nil
	}
	return nil
}

// Attach a resolved place to a stop (e.g. a selected suggestion).
func (p *TripPlan) SetStopPlace(id int64, place Place) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.stops[id]
	if !ok {
		return fmt.Errorf("set stop place %d: %w", id, ErrStopNotFound)
	}
	s.Place = &place
	return nil
}

// SetStopPlaces attaches several places at once. Either all are applied or none.
func (p *TripPlan) SetStopPlaces(places map[int64]Place) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id := range places {
		if _, ok := p.stops[id]; !ok {
			return fmt.Errorf("set stop places %d: %w", id, ErrStopNotFound)
		}
	}
	for id, place := range places {
		p.stops[id].Place = &place
	}
	return nil
}

func (p *TripPlan) SetLocked(id int64, locked bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.stops[id]
	if !ok {
		return fmt.Errorf("set stop lock %d: %w", id, ErrStopNotFound)
	}
	s.Locked = locked
	return nil
}

// Flip the locked flag and return the new value.
func (p *TripPlan) ToggleLock(id int64) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.stops[id]
	if !ok {
		return false, fmt.Errorf("toggle stop lock %d: %w", id, ErrStopNotFound)
	}
	s.Locked = !s.Locked
	return s.Locked, nil
}

func (p *TripPlan) Snapshot() PlanSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := PlanSnapshot{
		ReturnToStart: p.returnToStart,
		Stops:         make([]Stop, 0, len(p.order)),
	}
	if p.start != nil {
		start := *p.start
		snap.Start = &start
	}
	if p.departAt != nil {
		t := *p.departAt
		snap.DepartAt = &t
	}
	for _, id := range p.order {
		snap.Stops = append(snap.Stops, *p.stops[id])
	}
	return snap
}

// TryBegin marks the plan busy. It returns false when an optimization is already in flight.
func (p *TripPlan) TryBegin() bool { return p.busy.CompareAndSwap(false, true) }

// End clears the busy flag set by TryBegin.
func (p *TripPlan) End() { p.busy.Store(false) }

func (p *TripPlan) Busy() bool { return p.busy.Load() }

func (p *TripPlan) indexOf(id int64) int {
	for i, v := range p.order {
		if v == id {
			return i
		}
	}
	return -1
}
