package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"trip-optimizer-service/internal/domain"
	"trip-optimizer-service/internal/platform/obs"
	"trip-optimizer-service/internal/ports"
)

// retryAfterSeconds is advertised on rate-limited responses.
const retryAfterSeconds = 30

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obs.Logger(r.Context()).Error("encode failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// decodeJSON reads exactly one JSON object into v. It writes the 400
// response itself and reports false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// writeDomainError maps core failures onto HTTP statuses and user-facing text.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ports.ErrSessionNotFound):
		writeError(w, r, http.StatusNotFound, "session not found")
		return
	case errors.Is(err, domain.ErrStopNotFound):
		writeError(w, r, http.StatusNotFound, "stop not found")
		return
	}

	kind := domain.KindOf(err)
	if kind == domain.KindUnknown && errors.Is(err, context.DeadlineExceeded) {
		obs.Logger(r.Context()).Warn("request deadline exceeded", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, r, http.StatusGatewayTimeout, "the request took too long, please try again")
		return
	}

	status := statusFor(kind)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	if status >= http.StatusInternalServerError {
		obs.Logger(r.Context()).Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeError(w, r, status, userMessage(err))
}

func statusFor(kind domain.ErrorKind) int {
	switch {
	case kind == domain.KindValidation, kind == domain.KindGeocodeMiss, kind.Authoritative():
		return http.StatusUnprocessableEntity
	case kind == domain.KindBusy:
		return http.StatusConflict
	case kind == domain.KindRateLimited:
		return http.StatusServiceUnavailable
	case kind == domain.KindOffline, kind == domain.KindProvidersUnavailable, kind.Retryable():
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// userMessage renders the text shown to the user for a failure.
func userMessage(err error) string {
	e, ok := domain.AsError(err)
	if !ok {
		return "internal server error"
	}

	switch e.Kind {
	case domain.KindValidation:
		if e.Message != "" {
			return e.Message
		}
		return "invalid request"
	case domain.KindGeocodeMiss:
		return "could not find location: " + e.Query
	case domain.KindBusy:
		return "an optimization is already running for this trip"
	case domain.KindRateLimited:
		return "routing service busy, please try again"
	case domain.KindOffline:
		return "no internet connection, please check your network"
	case domain.KindProvidersUnavailable:
		return "routing services are unavailable, please try again later"
	case domain.KindNoRoute:
		return withReason("no route could be found between these locations", e.Message)
	case domain.KindNoSegment:
		return withReason("a location is too far from any road", e.Message)
	case domain.KindInvalidInput:
		return withReason("the routing service rejected a location", e.Message)
	case domain.KindTooBig:
		return withReason("the route is too long for the routing service", e.Message)
	case domain.KindTimeout, domain.KindNetwork, domain.KindServerError, domain.KindBadResponse:
		return "routing service error, please try again"
	}
	return "internal server error"
}

func withReason(msg, reason string) string {
	if reason == "" {
		return msg
	}
	return msg + ": " + reason
}
