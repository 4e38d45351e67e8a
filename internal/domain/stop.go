package domain

import "strings"

// Stop is a destination the user intends to visit.
// The ID is unique for the session and assigned in increasing order.
// Place stays nil until the address has been resolved.
type Stop struct {
	ID      int64
	Address string
	Place   *Place
	Locked  bool
}

// HasAddress reports whether the stop carries a non-blank address.
func (s Stop) HasAddress() bool { return strings.TrimSpace(s.Address) != "" }

// Resolved reports whether the stop has a resolved place.
func (s Stop) Resolved() bool { return s.Place != nil }

// Coords returns the resolved coordinates. Callers must check Resolved first.
func (s Stop) Coords() Coordinates { return s.Place.Coords }
