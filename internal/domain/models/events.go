package models

import (
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
)

// Event is a message pushed to a connected user. Each variant has a fixed schema.
type Event interface {
	EventType() types.EventType
}

type RideAccepted struct {
	Ride   *Ride   `json:"ride"`
	Driver Profile `json:"driver"`
}

func (RideAccepted) EventType() types.EventType { return types.PushRideAccepted }

type RideStatusChanged struct {
	RideID    uuid.UUID        `json:"ride_id"`
	From      types.RideStatus `json:"from"`
	To        types.RideStatus `json:"to"`
	ActorRole types.UserRole   `json:"actor_role"`
	Ride      *Ride            `json:"ride"`
}

func (RideStatusChanged) EventType() types.EventType { return types.PushRideStatusChanged }

type RideCancelled struct {
	RideID      uuid.UUID         `json:"ride_id"`
	CancelledBy types.CancelledBy `json:"cancelled_by"`
	Reason      string            `json:"reason"`
	Ride        *Ride             `json:"ride"`
}

func (RideCancelled) EventType() types.EventType { return types.PushRideCancelled }

type RideUnavailable struct {
	RideID uuid.UUID `json:"ride_id"`
}

func (RideUnavailable) EventType() types.EventType { return types.PushRideUnavailable }

type RideRated struct {
	RideID  uuid.UUID      `json:"ride_id"`
	By      types.UserRole `json:"by"`
	Score   int            `json:"score"`
	Comment string         `json:"comment,omitempty"`
}

func (RideRated) EventType() types.EventType { return types.PushRideRated }

// Envelope is the wire form of an Event.
type Envelope struct {
	Type types.EventType `json:"type"`
	Data Event           `json:"data"`
}

func NewEnvelope(e Event) Envelope {
	return Envelope{Type: e.EventType(), Data: e}
}

// RideLogEntry is one record of the ride lifecycle log.
type RideLogEntry struct {
	ID         uuid.UUID        `json:"id"`
	RideID     uuid.UUID        `json:"ride_id"`
	Type       types.RideEvent  `json:"event_type"`
	ActorID    *uuid.UUID       `json:"actor_id,omitempty"`
	ActorRole  types.UserRole   `json:"actor_role,omitempty"`
	FromStatus types.RideStatus `json:"from_status,omitempty"`
	ToStatus   types.RideStatus `json:"to_status"`
	Ride       *Ride            `json:"ride"`
	OccurredAt time.Time        `json:"occurred_at"`
}
