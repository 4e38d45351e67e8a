package services

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"trip-optimizer-service/internal/domain"
)

const mapsDirectionsURL = "https://www.google.com/maps/dir/?api=1"

// BuildExternalMapURL encodes origin, the ordered stops and the optional
// return leg as a driving-directions link for an external navigation app.
//
// With returnToStart the origin is also the destination and every stop is a
// waypoint; otherwise the last stop is the destination. Unresolved stops are skipped.
func BuildExternalMapURL(origin domain.Coordinates, stops []domain.Stop, returnToStart bool, departAt *time.Time) string {
	points := make([]string, 0, len(stops)+1)
	for _, s := range stops {
		if !s.Resolved() {
			continue
		}
		points = append(points, s.Coords().String())
	}

	var destination string
	switch {
	case returnToStart || len(points) == 0:
		destination = origin.String()
	default:
		destination = points[len(points)-1]
		points = points[:len(points)-1]
	}

	params := url.Values{}
	params.Add("origin", origin.String())
	params.Add("destination", destination)
	if len(points) > 0 {
		params.Add("waypoints", strings.Join(points, "|"))
	}
	params.Add("travelmode", "driving")
	if departAt != nil {
		params.Add("departure_time", strconv.FormatInt(departAt.Unix(), 10))
	}

	return mapsDirectionsURL + "&" + params.Encode()
}
