package services

import (
	"fmt"
	"math"

	"trip-optimizer-service/internal/domain"
	"trip-optimizer-service/internal/geo"
)

// OptimizeOrder returns a visiting order for stops using a greedy
// nearest-neighbor walk from start with position pinning.
//
// A locked stop keeps its index from the input. Every other index is filled
// with the unlocked stop nearest (straight line) to the previous stop in the
// output. With at most one unlocked stop the input order is returned as is.
//
// The algorithm minimizes each next hop, not the whole tour.
// All stops must be resolved; stops are matched by ID, never by value.
func OptimizeOrder(start domain.Coordinates, stops []domain.Stop) ([]domain.Stop, error) {
	seen := make(map[int64]struct{}, len(stops))
	unlocked := 0
	for _, s := range stops {
		if !s.Resolved() {
			return nil, domain.NewError(domain.KindValidation, "stop %d (%q) has no resolved location", s.ID, s.Address)
		}
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("optimize order: duplicate stop id %d", s.ID)
		}
		seen[s.ID] = struct{}{}
		if !s.Locked {
			unlocked++
		}
	}

	out := make([]domain.Stop, 0, len(stops))
	if unlocked <= 1 {
		return append(out, stops...), nil
	}

	visited := make(map[int64]bool, unlocked)
	cursor := start

	for _, s := range stops {
		if s.Locked {
			out = append(out, s)
			cursor = s.Coords()
			continue
		}

		next, ok := nearestUnvisited(cursor, stops, visited)
		if !ok {
			break
		}
		visited[next.ID] = true
		out = append(out, next)
		cursor = next.Coords()
	}

	// Place any unlocked stop the pass did not reach.
	for len(visited) < unlocked {
		next, ok := nearestUnvisited(cursor, stops, visited)
		if !ok {
			break
		}
		visited[next.ID] = true
		out = append(out, next)
		cursor = next.Coords()
	}

	return out, nil
}

// nearestUnvisited scans in input order; on equal distance the earlier stop wins.
func nearestUnvisited(from domain.Coordinates, stops []domain.Stop, visited map[int64]bool) (domain.Stop, bool) {
	var (
		best  domain.Stop
		found bool
	)
	minKm := math.Inf(1)

	for _, s := range stops {
		if s.Locked || visited[s.ID] {
			continue
		}
		if km := geo.DistanceKm(from, s.Coords()); km < minKm {
			minKm = km
			best = s
			found = true
		}
	}
	return best, found
}
