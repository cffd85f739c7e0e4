package models

import (
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
)

// StatusUpdate describes a conditional status write: it applies only while the ride
// still has status From.
type StatusUpdate struct {
	RideID       uuid.UUID
	From         types.RideStatus
	To           types.RideStatus
	At           time.Time
	CancelReason string
	CancelledBy  types.CancelledBy
}

// Claim describes the conditional PENDING to ACCEPTED write.
type Claim struct {
	RideID   uuid.UUID
	DriverID uuid.UUID
	At       time.Time
}

// NearbyQuery selects pending rides around a point.
type NearbyQuery struct {
	Point        Location
	RadiusMeters float64
	Limit        int
}

// RatingUpdate sets one party's score on a completed ride.
type RatingUpdate struct {
	RideID  uuid.UUID
	By      types.UserRole
	Score   int
	Comment string
}

// DriverLocation is the last reported position of a driver.
type DriverLocation struct {
	DriverID  uuid.UUID `json:"driver_id"`
	Location  Location  `json:"location"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Apply sets the status and the fields that come with it: startTime on IN_PROGRESS,
// endTime on terminal statuses, cancellation details on CANCELLED.
func (r *Ride) Apply(u StatusUpdate) {
	r.Status = u.To
	r.UpdatedAt = u.At
	at := u.At
	switch u.To {
	case types.StatusInProgress:
		r.StartTime = &at
	case types.StatusCompleted:
		r.EndTime = &at
	case types.StatusCancelled:
		r.EndTime = &at
		r.CancelReason = u.CancelReason
		r.CancelledBy = u.CancelledBy
	}
}

// ApplyClaim assigns the driver and moves the ride to ACCEPTED.
func (r *Ride) ApplyClaim(c Claim) {
	driverID := c.DriverID
	at := c.At
	r.DriverID = &driverID
	r.Status = types.StatusAccepted
	r.AcceptedAt = &at
	r.UpdatedAt = at
}

// ApplyRating sets the score given by role.
func (r *Ride) ApplyRating(u RatingUpdate) {
	if r.Rating == nil {
		r.Rating = &Rating{}
	}
	score := u.Score
	switch u.By {
	case types.PassengerRole:
		r.Rating.ByPassenger = &score
		r.Rating.PassengerComment = u.Comment
	case types.DriverRole:
		r.Rating.ByDriver = &score
		r.Rating.DriverComment = u.Comment
	}
}

// RatedBy reports whether role has already rated the ride.
func (r *Ride) RatedBy(role types.UserRole) bool {
	if r.Rating == nil {
		return false
	}
	switch role {
	case types.PassengerRole:
		return r.Rating.ByPassenger != nil
	case types.DriverRole:
		return r.Rating.ByDriver != nil
	}
	return false
}
