package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"trip-optimizer-service/internal/domain"
	"trip-optimizer-service/internal/platform/obs"
	"trip-optimizer-service/internal/ports"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const DefaultORSBaseURL = "https://api.openrouteservice.org"

// Candidates requested per geocoding search.
const searchSize = 5

// ORSClient implements ports.RoutingProvider and ports.Geocoder using
// OpenRouteService. It is safe for concurrent use.
type ORSClient struct {
	client
	profile string
}

func NewORSClient(baseURL, apiKey, userAgent string, session *http.Client) (*ORSClient, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if baseURL == "" {
		baseURL = DefaultORSBaseURL
	}
	return &ORSClient{
		client:  newClient(baseURL, apiKey, userAgent, session),
		profile: "driving-car",
	}, nil
}

func (o *ORSClient) Name() string { return "ors" }

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Features []struct {
		Geometry   *geojson.Geometry `json:"geometry"`
		Properties struct {
			Summary struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
			} `json:"summary"`
		} `json:"properties"`
	} `json:"features"`
}

type orsErrorBody struct {
	Error json.RawMessage `json:"error"`
}

type orsErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Route fetches a driving route through waypoints in order.
func (o *ORSClient) Route(
	ctx context.Context,
	waypoints []domain.Coordinates,
) (_ domain.RouteResult, err error) {
	defer obs.TimeAttempt(ctx, "ors.Route")(&err)

	if len(waypoints) < 2 {
		return domain.RouteResult{}, domain.NewError(domain.KindInvalidInput, "ors route needs at least 2 waypoints")
	}

	body := directionsRequest{Coordinates: make([][]float64, 0, len(waypoints))}
	for _, w := range waypoints {
		body.Coordinates = append(body.Coordinates, w.CoordsToList())
	}

	var decoded directionsResponse
	endpoint := fmt.Sprintf("/v2/directions/%s/geojson", o.profile)
	if err := o.postJSON(ctx, endpoint, body, &decoded); err != nil {
		return domain.RouteResult{}, o.classify(err)
	}

	if len(decoded.Features) == 0 {
		return domain.RouteResult{}, &domain.Error{Kind: domain.KindBadResponse, Message: "ors returned no routes"}
	}

	f := decoded.Features[0]
	res := domain.RouteResult{
		DurationSeconds: f.Properties.Summary.Duration,
		DistanceMeters:  f.Properties.Summary.Distance,
	}
	if f.Geometry != nil {
		if ls, ok := f.Geometry.Coordinates.(orb.LineString); ok {
			res.Geometry = ls
		}
	}
	return res, nil
}

// Search geocodes free text. A non-nil bounds biases results toward its center.
func (o *ORSClient) Search(
	ctx context.Context,
	query string,
	bounds *orb.Bound,
) (_ []ports.GeocodeCandidate, err error) {
	defer obs.Time(ctx, "ors.Search")(&err)

	q := url.Values{}
	q.Set("text", query)
	q.Set("size", strconv.Itoa(searchSize))
	if bounds != nil {
		center := bounds.Center()
		q.Set("focus.point.lon", formatCoord(center.Lon()))
		q.Set("focus.point.lat", formatCoord(center.Lat()))
	}

	fc, err := o.features(ctx, "/geocode/search", q)
	if err != nil {
		return nil, fmt.Errorf("ors search %q: %w", query, err)
	}

	out := make([]ports.GeocodeCandidate, 0, len(fc.Features))
	for _, f := range fc.Features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		out = append(out, ports.GeocodeCandidate{
			Address: f.Properties.MustString("label", ""),
			Coords:  domain.FromPoint(p),
		})
	}
	return out, nil
}

// ReverseGeocode returns the label of the closest known address.
func (o *ORSClient) ReverseGeocode(ctx context.Context, c domain.Coordinates) (_ string, err error) {
	defer obs.Time(ctx, "ors.ReverseGeocode")(&err)

	q := url.Values{}
	q.Set("point.lon", formatCoord(c.Lon))
	q.Set("point.lat", formatCoord(c.Lat))
	q.Set("size", "1")

	fc, err := o.features(ctx, "/geocode/reverse", q)
	if err != nil {
		return "", fmt.Errorf("ors reverse %s: %w", c, err)
	}
	if len(fc.Features) == 0 {
		return "", fmt.Errorf("ors reverse %s: no results", c)
	}
	return fc.Features[0].Properties.MustString("label", ""), nil
}

func (o *ORSClient) features(ctx context.Context, endpoint string, q url.Values) (*geojson.FeatureCollection, error) {
	req, err := o.newRequest(ctx, http.MethodGet, endpoint, q, nil)
	if err != nil {
		return nil, err
	}

	resp, err := o.do(req)
	if err != nil {
		return nil, statusError(o.Name(), err)
	}
	defer resp.Body.Close()

	fc := geojson.NewFeatureCollection()
	if err := json.NewDecoder(resp.Body).Decode(fc); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}
	return fc, nil
}

// classify reads the ORS error code carried by 4xx/5xx bodies before falling
// back to plain status mapping.
func (o *ORSClient) classify(err error) error {
	var he *httpStatusError
	if !errors.As(err, &he) {
		return err
	}

	var body orsErrorBody
	if json.Unmarshal([]byte(he.Body), &body) != nil || len(body.Error) == 0 {
		return statusError(o.Name(), err)
	}

	var detail orsErrorDetail
	if json.Unmarshal(body.Error, &detail) != nil {
		return statusError(o.Name(), err)
	}

	kind := orsCodeKind(detail.Code)
	if kind == domain.KindUnknown {
		return statusError(o.Name(), err)
	}
	return &domain.Error{
		Kind:       kind,
		Provider:   o.Name(),
		StatusCode: he.Code,
		Message:    detail.Message,
		Err:        err,
	}
}

// orsCodeKind maps directions API error codes; KindUnknown means unmapped.
func orsCodeKind(code int) domain.ErrorKind {
	switch code {
	case 2009:
		return domain.KindNoRoute
	case 2010:
		return domain.KindNoSegment
	case 2004:
		return domain.KindTooBig
	case 2001, 2002, 2003, 2006:
		return domain.KindInvalidInput
	}
	return domain.KindUnknown
}

func formatCoord(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
