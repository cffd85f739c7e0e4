package dto

import (
	"encoding/json"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
	"github.com/google/uuid"
)

// Inbound message types.
const (
	TypeAuth           = "auth"
	TypeLocationUpdate = "location_update"
	TypeNearbyRequest  = "nearby_request"
	TypeClaimRide      = "claim_ride"
	TypeTransitionRide = "transition_ride"
	TypeGetActiveRide  = "get_active_ride"

	TypeConnected = "connected"
	TypeError     = "error"
)

// Inbound is a tagged client message. Data is decoded per Type.
type Inbound struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Token     string          `json:"token,omitempty"` // auth only
	Data      json.RawMessage `json:"data,omitempty"`
}

func (m *Inbound) Validate(v *validator.Validator) {
	v.Check(m.Type != "", "type", "must be provided")
	v.Check(m.RequestID != "", "request_id", "must be provided")
	v.Check(len(m.RequestID) <= 128, "request_id", "must not be more than 128 characters long")
}

// Reply answers exactly one Inbound message.
type Reply struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data"`
}

func ResultType(inbound string) string {
	return inbound + "_result"
}

type ErrorData struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type LocationUpdate struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (l *LocationUpdate) Validate(v *validator.Validator) {
	v.Check(l.Latitude != nil && validator.Latitude(*l.Latitude), "latitude", "must be between -90 and 90")
	v.Check(l.Longitude != nil && validator.Longitude(*l.Longitude), "longitude", "must be between -180 and 180")
}

// NearbyRequest falls back to the last reported location when both coordinates are omitted.
type NearbyRequest struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

func (n *NearbyRequest) Validate(v *validator.Validator) {
	if n.Latitude == nil && n.Longitude == nil {
		return
	}
	l := LocationUpdate(*n)
	l.Validate(v)
}

type ClaimRide struct {
	RideID uuid.UUID `json:"ride_id"`
}

func (c *ClaimRide) Validate(v *validator.Validator) {
	v.Check(c.RideID != uuid.Nil, "ride_id", "must be provided")
}

type TransitionRide struct {
	RideID uuid.UUID        `json:"ride_id"`
	Status types.RideStatus `json:"status"`
	Reason string           `json:"reason,omitempty"`
}

func (t *TransitionRide) Validate(v *validator.Validator) {
	v.Check(t.RideID != uuid.Nil, "ride_id", "must be provided")
	v.Check(t.Status.Valid(), "status", "must be a known ride status")
	v.Check(len(t.Reason) <= 500, "reason", "must not be more than 500 characters long")
}
