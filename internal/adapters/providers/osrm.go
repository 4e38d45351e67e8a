package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"trip-optimizer-service/internal/domain"
	"trip-optimizer-service/internal/platform/obs"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const DefaultOSRMBaseURL = "https://router.project-osrm.org"

// OSRMRouter implements ports.RoutingProvider against the OSRM route service.
// It is safe for concurrent use.
type OSRMRouter struct {
	client
	profile string
}

func NewOSRMRouter(baseURL, userAgent string, session *http.Client) *OSRMRouter {
	if baseURL == "" {
		baseURL = DefaultOSRMBaseURL
	}
	return &OSRMRouter{
		client:  newClient(baseURL, "", userAgent, session),
		profile: "driving",
	}
}

func (o *OSRMRouter) Name() string { return "osrm" }

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Duration float64           `json:"duration"`
		Distance float64           `json:"distance"`
		Geometry *geojson.Geometry `json:"geometry"`
	} `json:"routes"`
}

// Route fetches a driving route through waypoints in order.
func (o *OSRMRouter) Route(
	ctx context.Context,
	waypoints []domain.Coordinates,
) (_ domain.RouteResult, err error) {
	defer obs.TimeAttempt(ctx, "osrm.Route")(&err)

	if len(waypoints) < 2 {
		return domain.RouteResult{}, domain.NewError(domain.KindInvalidInput, "osrm route needs at least 2 waypoints")
	}

	pairs := make([]string, 0, len(waypoints))
	for _, w := range waypoints {
		pairs = append(pairs, fmt.Sprintf("%.6f,%.6f", w.Lon, w.Lat))
	}
	endpoint := fmt.Sprintf("/route/v1/%s/%s", o.profile, strings.Join(pairs, ";"))

	q := url.Values{}
	q.Set("overview", "full")
	q.Set("geometries", "geojson")

	var decoded osrmResponse
	if err := o.getJSON(ctx, endpoint, q, &decoded); err != nil {
		return domain.RouteResult{}, o.classify(err)
	}

	if decoded.Code != "Ok" {
		return domain.RouteResult{}, osrmCodeError(decoded.Code, decoded.Message, 0)
	}
	if len(decoded.Routes) == 0 {
		return domain.RouteResult{}, &domain.Error{Kind: domain.KindBadResponse, Message: "osrm returned no routes"}
	}

	r := decoded.Routes[0]
	res := domain.RouteResult{
		DurationSeconds: r.Duration,
		DistanceMeters:  r.Distance,
	}
	if r.Geometry != nil {
		if ls, ok := r.Geometry.Coordinates.(orb.LineString); ok {
			res.Geometry = ls
		}
	}
	return res, nil
}

// classify reads the OSRM code carried by 4xx bodies before falling back to
// plain status mapping.
func (o *OSRMRouter) classify(err error) error {
	var he *httpStatusError
	if errors.As(err, &he) {
		var body osrmResponse
		if json.Unmarshal([]byte(he.Body), &body) == nil && body.Code != "" {
			if e := osrmCodeError(body.Code, body.Message, he.Code); e.Kind != domain.KindBadResponse {
				return e
			}
		}
	}
	return statusError(o.Name(), err)
}

func osrmCodeError(code, message string, status int) *domain.Error {
	kind := domain.KindBadResponse
	switch code {
	case "NoRoute":
		kind = domain.KindNoRoute
	case "NoSegment":
		kind = domain.KindNoSegment
	case "TooBig":
		kind = domain.KindTooBig
	case "InvalidUrl", "InvalidService", "InvalidVersion", "InvalidOptions", "InvalidQuery", "InvalidValue":
		kind = domain.KindInvalidInput
	}
	if message == "" {
		message = code
	}
	return &domain.Error{Kind: kind, Provider: "osrm", StatusCode: status, Message: message}
}
