package models

import (
	"math"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
)

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// Valid reports whether the coordinates are finite and in range.
func (l Location) Valid() bool {
	return finite(l.Latitude) && finite(l.Longitude) &&
		l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Rating holds the two independent post-trip scores, each with its author's comment.
type Rating struct {
	ByPassenger      *int   `json:"by_passenger,omitempty"` // passenger rates the driver
	ByDriver         *int   `json:"by_driver,omitempty"`    // driver rates the passenger
	PassengerComment string `json:"passenger_comment,omitempty"`
	DriverComment    string `json:"driver_comment,omitempty"`
}

// Profile is the public identity of a ride party.
type Profile struct {
	ID     uuid.UUID      `json:"id"`
	Role   types.UserRole `json:"role"`
	Name   string         `json:"name,omitempty"`
	Phone  string         `json:"phone,omitempty"`
	Rating float64        `json:"rating,omitempty"`
}

type Ride struct {
	ID          uuid.UUID  `json:"id"`
	PassengerID uuid.UUID  `json:"passenger_id"`
	DriverID    *uuid.UUID `json:"driver_id"`

	Origin      Location `json:"origin"`
	Destination Location `json:"destination"`

	Distance float64 `json:"distance"` // meters
	Duration float64 `json:"duration"` // seconds
	Price    float64 `json:"price"`

	Status        types.RideStatus    `json:"status"`
	PaymentMethod types.PaymentMethod `json:"payment_method"`

	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	EndTime    *time.Time `json:"end_time,omitempty"`

	CancelReason string            `json:"cancel_reason,omitempty"`
	CancelledBy  types.CancelledBy `json:"cancelled_by,omitempty"`

	Rating *Rating `json:"rating,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Passenger is attached when a driver claims the ride.
	Passenger *Profile `json:"passenger,omitempty"`
	// DistanceToOrigin is filled by candidate searches, in meters.
	DistanceToOrigin *float64 `json:"distance_to_origin,omitempty"`
}

// HasParty reports whether userID is the ride's passenger or its driver.
func (r *Ride) HasParty(userID uuid.UUID) bool {
	return r.PassengerID == userID || (r.DriverID != nil && *r.DriverID == userID)
}

// Counterparty returns the other party of actorID, or nil when there is none yet.
func (r *Ride) Counterparty(actorID uuid.UUID) *uuid.UUID {
	if actorID == r.PassengerID {
		return r.DriverID
	}
	id := r.PassengerID
	return &id
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (r *Ride) Clone() *Ride {
	if r == nil {
		return nil
	}
	c := *r
	c.DriverID = clonePtr(r.DriverID)
	c.AcceptedAt = clonePtr(r.AcceptedAt)
	c.StartTime = clonePtr(r.StartTime)
	c.EndTime = clonePtr(r.EndTime)
	c.DistanceToOrigin = clonePtr(r.DistanceToOrigin)
	if r.Rating != nil {
		rt := *r.Rating
		rt.ByPassenger = clonePtr(r.Rating.ByPassenger)
		rt.ByDriver = clonePtr(r.Rating.ByDriver)
		c.Rating = &rt
	}
	if r.Passenger != nil {
		p := *r.Passenger
		c.Passenger = &p
	}
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// RoundPrice rounds to the 2-decimal currency precision.
func RoundPrice(p float64) float64 {
	return math.Round(p*100) / 100
}
