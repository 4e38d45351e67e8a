package services

import (
	"math/rand"
	"testing"

	"trip-optimizer-service/internal/domain"
)

func stopAt(id int64, lat, lon float64, locked bool) domain.Stop {
	return domain.Stop{
		ID:      id,
		Address: "stop",
		Place:   &domain.Place{Coords: domain.Coordinates{Lat: lat, Lon: lon}},
		Locked:  locked,
	}
}

func ids(stops []domain.Stop) []int64 {
	out := make([]int64, 0, len(stops))
	for _, s := range stops {
		out = append(out, s.ID)
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestOptimizeOrderLockedMiddleStop(t *testing.T) {
	start := domain.Coordinates{Lat: 0, Lon: 0}
	a := stopAt(1, 1, 0, false)
	b := stopAt(2, 5, 5, true)
	c := stopAt(3, 2, 0, false)

	got, err := OptimizeOrder(start, []domain.Stop{a, b, c})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := []int64{1, 2, 3}; !equalIDs(ids(got), want) {
		t.Fatalf("order = %v, want %v", ids(got), want)
	}
}

func TestOptimizeOrderNearestNeighbor(t *testing.T) {
	start := domain.Coordinates{Lat: 0, Lon: 0}
	stops := []domain.Stop{
		stopAt(1, 3, 0, false),
		stopAt(2, 1, 0, false),
		stopAt(3, 2, 0, false),
	}

	got, err := OptimizeOrder(start, stops)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := []int64{2, 3, 1}; !equalIDs(ids(got), want) {
		t.Fatalf("order = %v, want %v", ids(got), want)
	}
}

func TestOptimizeOrderTieBreakIsInputOrder(t *testing.T) {
	start := domain.Coordinates{Lat: 0, Lon: 0}
	stops := []domain.Stop{
		stopAt(7, 0, 1, false),
		stopAt(4, 0, -1, false),
	}

	got, err := OptimizeOrder(start, stops)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got[0].ID != 7 {
		t.Fatalf("first = %d, want 7 (first equidistant stop in input order)", got[0].ID)
	}
}

func TestOptimizeOrderIdentityWithOneUnlockedStop(t *testing.T) {
	start := domain.Coordinates{Lat: 0, Lon: 0}
	stops := []domain.Stop{
		stopAt(1, 9, 9, true),
		stopAt(2, 8, 8, false),
		stopAt(3, 0.1, 0.1, true),
	}

	got, err := OptimizeOrder(start, stops)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !equalIDs(ids(got), ids(stops)) {
		t.Fatalf("order = %v, want input order %v", ids(got), ids(stops))
	}
}

func TestOptimizeOrderEmpty(t *testing.T) {
	got, err := OptimizeOrder(domain.Coordinates{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty order, got %v", ids(got))
	}
}

func TestOptimizeOrderRejectsUnresolvedStop(t *testing.T) {
	stops := []domain.Stop{
		stopAt(1, 1, 1, false),
		{ID: 2, Address: "somewhere"},
	}

	_, err := OptimizeOrder(domain.Coordinates{}, stops)
	if domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("kind = %v, want validation (err=%v)", domain.KindOf(err), err)
	}
}

func TestOptimizeOrderRejectsDuplicateIDs(t *testing.T) {
	stops := []domain.Stop{
		stopAt(1, 1, 1, false),
		stopAt(1, 2, 2, false),
	}

	if _, err := OptimizeOrder(domain.Coordinates{}, stops); err == nil {
		t.Fatalf("expected error for duplicate ids")
	}
}

// Random instances: output is a permutation of the input, locked stops keep
// their index, and one-or-fewer unlocked stops leave the order untouched.
func TestOptimizeOrderProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for iter := 0; iter < 500; iter++ {
		n := r.Intn(8)
		stops := make([]domain.Stop, 0, n)
		unlocked := 0
		for i := 0; i < n; i++ {
			locked := r.Intn(3) == 0
			if !locked {
				unlocked++
			}
			stops = append(stops, stopAt(int64(i+1), r.Float64()*10, r.Float64()*10, locked))
		}
		start := domain.Coordinates{Lat: r.Float64() * 10, Lon: r.Float64() * 10}

		got, err := OptimizeOrder(start, stops)
		if err != nil {
			t.Fatalf("iter %d: unexpected error: %v", iter, err)
		}

		if len(got) != len(stops) {
			t.Fatalf("iter %d: len = %d, want %d", iter, len(got), len(stops))
		}
		seen := make(map[int64]int)
		for _, s := range got {
			seen[s.ID]++
		}
		for _, s := range stops {
			if seen[s.ID] != 1 {
				t.Fatalf("iter %d: stop %d appears %d times in %v", iter, s.ID, seen[s.ID], ids(got))
			}
		}

		for i, s := range stops {
			if s.Locked && got[i].ID != s.ID {
				t.Fatalf("iter %d: locked stop %d moved from index %d (got %v)", iter, s.ID, i, ids(got))
			}
		}

		if unlocked <= 1 && !equalIDs(ids(got), ids(stops)) {
			t.Fatalf("iter %d: expected identity, got %v from %v", iter, ids(got), ids(stops))
		}
	}
}
