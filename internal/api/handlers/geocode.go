package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"trip-optimizer-service/internal/api/dto"
	"trip-optimizer-service/internal/domain"
	"trip-optimizer-service/internal/ports"
)

type GeocodeHandler struct {
	Places ports.PlaceResolver
}

// Search returns autocomplete candidates for q. With lat/lon the results are
// ranked by straight-line distance, and driving=true ranks the nearest
// candidates by driving time instead.
func (h *GeocodeHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeError(w, r, http.StatusBadRequest, "q is required")
		return
	}

	ref, hasRef, err := parseReference(q.Get("lat"), q.Get("lon"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	driving, _ := strconv.ParseBool(q.Get("driving"))

	var places []domain.Place
	switch {
	case hasRef && driving:
		places = h.Places.ResolveNearWithDrivingTime(r.Context(), query, ref)
	case hasRef:
		places = h.Places.ResolveNear(r.Context(), query, ref)
	default:
		places = h.Places.Resolve(r.Context(), query)
	}

	res := dto.SearchResponse{Query: query, Results: make([]dto.PlaceResponse, 0, len(places))}
	for _, p := range places {
		res.Results = append(res.Results, dto.NewPlaceResponse(p))
	}
	writeJSON(w, r, http.StatusOK, res)
}

var errInvalidReference = errors.New("lat and lon must both be numbers")

func parseReference(lat, lon string) (domain.Coordinates, bool, error) {
	if lat == "" && lon == "" {
		return domain.Coordinates{}, false, nil
	}
	la, errLat := strconv.ParseFloat(lat, 64)
	lo, errLon := strconv.ParseFloat(lon, 64)
	if errLat != nil || errLon != nil {
		return domain.Coordinates{}, false, errInvalidReference
	}
	c := domain.Coordinates{Lat: la, Lon: lo}
	if err := c.Validate(); err != nil {
		return domain.Coordinates{}, false, err
	}
	return c, true, nil
}
