package ports

import "context"

// Contract for telling "I am offline" apart from "providers are down".
type ConnectivityChecker interface {
	// Online returns the last known connectivity state without network I/O.
	Online() bool
	// Probe actively checks reachability of a known-stable endpoint.
	Probe(ctx context.Context) error
}
