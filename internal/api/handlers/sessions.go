package handlers

import (
	"errors"
	"net/http"
	"strings"

	"trip-optimizer-service/internal/api/dto"
	"trip-optimizer-service/internal/domain"
	"trip-optimizer-service/internal/ports"
)

// SessionHandler serves the trip plan mutation entry points.
type SessionHandler struct {
	Repo   ports.SessionRepository
	Places ports.PlaceResolver
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, _, err := h.Repo.Create(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, dto.CreateSessionResponse{SessionID: id})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, plan, ok := h.plan(w, r)
	if !ok {
		return
	}
	h.writeSession(w, r, http.StatusOK, id, plan)
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Repo.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetStart resolves the start location from an address (first candidate)
// or from coordinates (reverse geocoded).
func (h *SessionHandler) SetStart(w http.ResponseWriter, r *http.Request) {
	id, plan, ok := h.plan(w, r)
	if !ok {
		return
	}

	var req dto.SetStartRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var place domain.Place
	address := strings.TrimSpace(req.Address)
	switch {
	case address != "":
		candidates := h.Places.Resolve(r.Context(), address)
		if len(candidates) == 0 {
			writeDomainError(w, r, &domain.Error{Kind: domain.KindGeocodeMiss, Query: address})
			return
		}
		place = candidates[0]
	case req.Lat != nil && req.Lon != nil:
		c := domain.Coordinates{Lat: *req.Lat, Lon: *req.Lon}
		if err := c.Validate(); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		place = domain.Place{Address: h.Places.ReverseGeocode(r.Context(), c), Coords: c}
	default:
		writeError(w, r, http.StatusBadRequest, "address or lat/lon is required")
		return
	}

	plan.SetStart(place)
	h.writeSession(w, r, http.StatusOK, id, plan)
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, plan, ok := h.plan(w, r)
	if !ok {
		return
	}

	var req dto.UpdateSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.ReturnToStart != nil {
		plan.SetReturnToStart(*req.ReturnToStart)
	}
	switch {
	case req.ClearDepartAt:
		plan.SetDepartAt(nil)
	case req.DepartAt != nil:
		plan.SetDepartAt(req.DepartAt)
	}
	h.writeSession(w, r, http.StatusOK, id, plan)
}

func (h *SessionHandler) AddStop(w http.ResponseWriter, r *http.Request) {
	_, plan, ok := h.plan(w, r)
	if !ok {
		return
	}

	var req dto.AddStopRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Address) == "" {
		writeError(w, r, http.StatusBadRequest, "address is required")
		return
	}

	stop := plan.AddStop(req.Address)
	writeJSON(w, r, http.StatusCreated, dto.NewStopResponse(stop))
}

func (h *SessionHandler) UpdateStop(w http.ResponseWriter, r *http.Request) {
	id, plan, ok := h.plan(w, r)
	if !ok {
		return
	}
	stopID, ok := pathID(r, "stopID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid stop id")
		return
	}

	var req dto.UpdateStopRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Address != nil {
		if err := plan.SetStopAddress(stopID, *req.Address); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	if req.Locked != nil {
		if err := plan.SetLocked(stopID, *req.Locked); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	if req.Position != nil {
		if err := plan.MoveStop(stopID, *req.Position); err != nil {
			writeMutationError(w, r, err)
			return
		}
	}
	h.writeSession(w, r, http.StatusOK, id, plan)
}

func (h *SessionHandler) ToggleLock(w http.ResponseWriter, r *http.Request) {
	_, plan, ok := h.plan(w, r)
	if !ok {
		return
	}
	stopID, ok := pathID(r, "stopID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid stop id")
		return
	}

	locked, err := plan.ToggleLock(stopID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.LockResponse{StopID: stopID, Locked: locked})
}

func (h *SessionHandler) RemoveStop(w http.ResponseWriter, r *http.Request) {
	_, plan, ok := h.plan(w, r)
	if !ok {
		return
	}
	stopID, ok := pathID(r, "stopID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid stop id")
		return
	}

	if err := plan.RemoveStop(stopID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	id, plan, ok := h.plan(w, r)
	if !ok {
		return
	}

	var req dto.ReorderStopsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := plan.Reorder(req.StopIDs); err != nil {
		writeMutationError(w, r, err)
		return
	}
	h.writeSession(w, r, http.StatusOK, id, plan)
}

func (h *SessionHandler) plan(w http.ResponseWriter, r *http.Request) (string, *domain.TripPlan, bool) {
	id := r.PathValue("id")
	plan, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return "", nil, false
	}
	return id, plan, true
}

func (h *SessionHandler) writeSession(w http.ResponseWriter, r *http.Request, status int, id string, plan *domain.TripPlan) {
	writeJSON(w, r, status, dto.NewSessionResponse(id, plan.Snapshot(), plan.Busy()))
}

// writeMutationError reports a missing stop as 404 and any other
// rejected mutation as a bad request.
func writeMutationError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrStopNotFound) {
		writeDomainError(w, r, err)
		return
	}
	writeError(w, r, http.StatusBadRequest, err.Error())
}
