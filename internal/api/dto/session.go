package dto

import (
	"time"

	"trip-optimizer-service/internal/domain"
)

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

type PlaceResponse struct {
	Address        string   `json:"address"`
	Lat            float64  `json:"lat"`
	Lon            float64  `json:"lon"`
	StraightLineKm float64  `json:"straight_line_km,omitempty"`
	DrivingSeconds *float64 `json:"driving_seconds,omitempty"`
	DrivingMeters  *float64 `json:"driving_meters,omitempty"`
}

type StopResponse struct {
	ID      int64          `json:"id"`
	Address string         `json:"address"`
	Place   *PlaceResponse `json:"place,omitempty"`
	Locked  bool           `json:"locked"`
}

type SessionResponse struct {
	SessionID     string         `json:"session_id"`
	Start         *PlaceResponse `json:"start,omitempty"`
	Stops         []StopResponse `json:"stops"`
	ReturnToStart bool           `json:"return_to_start"`
	DepartAt      *time.Time     `json:"depart_at,omitempty"`
	Busy          bool           `json:"busy"`
}

// SetStartRequest takes either an address or a coordinate pair.
type SetStartRequest struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

type UpdateSessionRequest struct {
	ReturnToStart *bool      `json:"return_to_start"`
	DepartAt      *time.Time `json:"depart_at"`
	ClearDepartAt bool       `json:"clear_depart_at"`
}

type AddStopRequest struct {
	Address string `json:"address"`
}

type UpdateStopRequest struct {
	Address *string `json:"address"`
	Locked  *bool   `json:"locked"`
	// Position moves the stop to a new index in the list.
	Position *int `json:"position"`
}

type ReorderStopsRequest struct {
	StopIDs []int64 `json:"stop_ids"`
}

type LockResponse struct {
	StopID int64 `json:"stop_id"`
	Locked bool  `json:"locked"`
}

func NewPlaceResponse(p domain.Place) PlaceResponse {
	return PlaceResponse{
		Address:        p.Address,
		Lat:            p.Coords.Lat,
		Lon:            p.Coords.Lon,
		StraightLineKm: p.StraightLineKm,
		DrivingSeconds: p.DrivingSeconds,
		DrivingMeters:  p.DrivingMeters,
	}
}

func NewStopResponse(s domain.Stop) StopResponse {
	res := StopResponse{ID: s.ID, Address: s.Address, Locked: s.Locked}
	if s.Place != nil {
		p := NewPlaceResponse(*s.Place)
		res.Place = &p
	}
	return res
}

func NewStopResponses(stops []domain.Stop) []StopResponse {
	out := make([]StopResponse, 0, len(stops))
	for _, s := range stops {
		out = append(out, NewStopResponse(s))
	}
	return out
}

func NewSessionResponse(id string, snap domain.PlanSnapshot, busy bool) SessionResponse {
	res := SessionResponse{
		SessionID:     id,
		Stops:         NewStopResponses(snap.Stops),
		ReturnToStart: snap.ReturnToStart,
		DepartAt:      snap.DepartAt,
		Busy:          busy,
	}
	if snap.Start != nil {
		p := NewPlaceResponse(*snap.Start)
		res.Start = &p
	}
	return res
}
