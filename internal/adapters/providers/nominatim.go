package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"trip-optimizer-service/internal/domain"
	"trip-optimizer-service/internal/platform/obs"
	"trip-optimizer-service/internal/ports"

	"github.com/paulmach/orb"
)

const DefaultNominatimBaseURL = "https://nominatim.openstreetmap.org"

// NominatimGeocoder implements ports.Geocoder against an OSM Nominatim server.
type NominatimGeocoder struct {
	client
}

func NewNominatimGeocoder(baseURL, userAgent string, session *http.Client) *NominatimGeocoder {
	if baseURL == "" {
		baseURL = DefaultNominatimBaseURL
	}
	return &NominatimGeocoder{client: newClient(baseURL, "", userAgent, session)}
}

// Nominatim encodes coordinates as strings.
type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Error       string `json:"error"`
}

func (p nominatimPlace) coords() (domain.Coordinates, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}
	return domain.Coordinates{Lat: lat, Lon: lon}, nil
}

// Search geocodes free text. A non-nil bounds is passed as a preferred
// viewbox; results outside it are still allowed.
func (n *NominatimGeocoder) Search(
	ctx context.Context,
	query string,
	bounds *orb.Bound,
) (_ []ports.GeocodeCandidate, err error) {
	defer obs.Time(ctx, "nominatim.Search")(&err)

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("limit", strconv.Itoa(searchSize))
	if bounds != nil {
		q.Set("viewbox", fmt.Sprintf("%s,%s,%s,%s",
			formatCoord(bounds.Min.Lon()), formatCoord(bounds.Max.Lat()),
			formatCoord(bounds.Max.Lon()), formatCoord(bounds.Min.Lat())))
	}

	var decoded []nominatimPlace
	if err := n.getJSON(ctx, "/search", q, &decoded); err != nil {
		return nil, fmt.Errorf("nominatim search %q: %w", query, statusError("nominatim", err))
	}

	out := make([]ports.GeocodeCandidate, 0, len(decoded))
	for _, p := range decoded {
		c, err := p.coords()
		if err != nil {
			obs.Logger(ctx).Debug("skipping nominatim result", "name", p.DisplayName, "err", err)
			continue
		}
		out = append(out, ports.GeocodeCandidate{Address: p.DisplayName, Coords: c})
	}
	return out, nil
}

// ReverseGeocode returns the display name of the closest OSM object.
func (n *NominatimGeocoder) ReverseGeocode(ctx context.Context, c domain.Coordinates) (_ string, err error) {
	defer obs.Time(ctx, "nominatim.ReverseGeocode")(&err)

	q := url.Values{}
	q.Set("lat", formatCoord(c.Lat))
	q.Set("lon", formatCoord(c.Lon))
	q.Set("format", "jsonv2")

	var decoded nominatimPlace
	if err := n.getJSON(ctx, "/reverse", q, &decoded); err != nil {
		return "", fmt.Errorf("nominatim reverse %s: %w", c, statusError("nominatim", err))
	}
	if decoded.Error != "" {
		return "", fmt.Errorf("nominatim reverse %s: %s", c, decoded.Error)
	}
	return decoded.DisplayName, nil
}
