package dto

import (
	"strings"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

const (
	maxAddressLen = 255
	maxTextLen    = 500
)

type Location struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address,omitempty"`
}

func (l *Location) validate(v *validator.Validator, key string) {
	v.Check(l.Latitude != nil, key+".latitude", "must be provided")
	v.Check(l.Longitude != nil, key+".longitude", "must be provided")
	if l.Latitude != nil {
		v.Check(validator.Latitude(*l.Latitude), key+".latitude", "must be between -90 and 90")
	}
	if l.Longitude != nil {
		v.Check(validator.Longitude(*l.Longitude), key+".longitude", "must be between -180 and 180")
	}
	v.Check(len(l.Address) <= maxAddressLen, key+".address", "must not be more than 255 characters long")
}

func (l *Location) ToModel() models.Location {
	loc := models.Location{Address: l.Address}
	if l.Latitude != nil {
		loc.Latitude = *l.Latitude
	}
	if l.Longitude != nil {
		loc.Longitude = *l.Longitude
	}
	return loc
}

// CreateRideRequest - запрос на поездку. Distance, duration and price are quoted when omitted.
type CreateRideRequest struct {
	Origin        Location `json:"origin"`
	Destination   Location `json:"destination"`
	Distance      *float64 `json:"distance,omitempty"` // meters
	Duration      *float64 `json:"duration,omitempty"` // seconds
	Price         *float64 `json:"price,omitempty"`
	PaymentMethod string   `json:"payment_method,omitempty"`
}

func (r *CreateRideRequest) Validate(v *validator.Validator) {
	r.Origin.validate(v, "origin")
	r.Destination.validate(v, "destination")

	for key, val := range map[string]*float64{"distance": r.Distance, "duration": r.Duration, "price": r.Price} {
		if val != nil {
			v.Check(validator.Finite(*val) && *val >= 0, key, "must be a non-negative number")
		}
	}

	if r.PaymentMethod != "" {
		v.Check(validator.PermittedValue(types.PaymentMethod(r.PaymentMethod), types.PaymentMethods...),
			"payment_method", "must be one of CASH, CARD, WALLET")
	}
}

type EstimateRequest struct {
	Origin      Location `json:"origin"`
	Destination Location `json:"destination"`
}

func (r *EstimateRequest) Validate(v *validator.Validator) {
	r.Origin.validate(v, "origin")
	r.Destination.validate(v, "destination")
}

type TransitionRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (r *TransitionRequest) Validate(v *validator.Validator) {
	v.Check(r.Status != "", "status", "must be provided")
	if r.Status != "" {
		v.Check(types.RideStatus(r.Status).Valid(), "status", "must be a known ride status")
	}
	v.Check(len(r.Reason) <= maxTextLen, "reason", "must not be more than 500 characters long")
}

type CancelRideRequest struct {
	Reason string `json:"reason"`
}

func (r *CancelRideRequest) Validate(v *validator.Validator) {
	v.Check(strings.TrimSpace(r.Reason) != "", "reason", "must be provided")
	v.Check(len(r.Reason) <= maxTextLen, "reason", "must not be more than 500 characters long")
}

type RatingRequest struct {
	Score   int    `json:"score"`
	Comment string `json:"comment,omitempty"`
}

func (r *RatingRequest) Validate(v *validator.Validator) {
	v.Check(r.Score >= 1 && r.Score <= 5, "score", "must be between 1 and 5")
	v.Check(len(r.Comment) <= maxTextLen, "comment", "must not be more than 500 characters long")
}

type LocationUpdateRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (r *LocationUpdateRequest) Validate(v *validator.Validator) {
	l := Location{Latitude: r.Latitude, Longitude: r.Longitude}
	l.validate(v, "location")
}

func (r *LocationUpdateRequest) ToModel() models.Location {
	l := Location{Latitude: r.Latitude, Longitude: r.Longitude}
	return l.ToModel()
}

type EstimateResponse struct {
	Distance float64 `json:"distance"` // meters
	Duration float64 `json:"duration"` // seconds
	Price    float64 `json:"price"`
}
