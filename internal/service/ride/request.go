package ride

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	ridecalc "github.com/Temutjin2k/ride-dispatch/internal/service/calculator"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
	"github.com/google/uuid"
)

const maxAddressLen = 255

// RequestInput is a passenger's ride request. Trip metrics left nil are computed by pricing.
type RequestInput struct {
	PassengerID   uuid.UUID
	Origin        models.Location
	Destination   models.Location
	Distance      *float64
	Duration      *float64
	Price         *float64
	PaymentMethod types.PaymentMethod
}

func (in RequestInput) validate() error {
	v := validator.New()
	v.Check(in.PassengerID != uuid.Nil, "passenger_id", "must be provided")
	v.Check(in.Origin.Valid(), "origin", "must have valid coordinates")
	v.Check(in.Destination.Valid(), "destination", "must have valid coordinates")
	v.Check(len(in.Origin.Address) <= maxAddressLen, "origin.address", "must not be more than 255 characters long")
	v.Check(len(in.Destination.Address) <= maxAddressLen, "destination.address", "must not be more than 255 characters long")
	for key, val := range map[string]*float64{"distance": in.Distance, "duration": in.Duration, "price": in.Price} {
		if val != nil {
			v.Check(validator.Finite(*val) && *val >= 0, key, "must be a non-negative number")
		}
	}
	if in.PaymentMethod != "" {
		v.Check(in.PaymentMethod.Valid(), "payment_method", "must be one of CASH, CARD, WALLET")
	}

	if !v.Valid() {
		return &ValidationError{Fields: v.Errors}
	}
	return nil
}

// ValidationError carries per-field messages and matches types.ErrInvalidInput.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for k, msg := range e.Fields {
		parts = append(parts, k+" "+msg)
	}
	return fmt.Sprintf("%s: %s", types.ErrInvalidInput, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return types.ErrInvalidInput
}

// Request creates a PENDING ride for the passenger.
func (s *Service) Request(ctx context.Context, in RequestInput) (*models.Ride, error) {
	ctx = wrap.WithAction(wrap.WithPassengerID(ctx, in.PassengerID.String()), types.ActionRideRequested)

	if err := in.validate(); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	estimate := s.pricing.Estimate(in.Origin, in.Destination)
	distance := valueOr(in.Distance, estimate.Distance)
	duration := valueOr(in.Duration, estimate.Duration)
	price := s.pricing.Quote(distance, duration)
	if in.Price != nil {
		price = *in.Price
	}

	paymentMethod := in.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = s.cfg.DefaultPaymentMethod
	}

	now := s.now()
	ride := &models.Ride{
		ID:            uuid.New(),
		PassengerID:   in.PassengerID,
		Origin:        s.withAddress(ctx, in.Origin),
		Destination:   s.withAddress(ctx, in.Destination),
		Distance:      distance,
		Duration:      duration,
		Price:         models.RoundPrice(price),
		Status:        types.StatusPending,
		PaymentMethod: paymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	ctx = wrap.WithRideID(ctx, ride.ID.String())

	entry := s.logEntry(ride, "", &in.PassengerID, types.PassengerRole, types.EventRideRequested)
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, ride); err != nil {
			return err
		}
		return s.appendEvent(ctx, entry)
	})
	if err != nil {
		if errors.Is(err, types.ErrActiveRideExist) {
			return nil, wrap.Error(ctx, err)
		}
		return nil, wrap.Error(ctx, fmt.Errorf("could not create ride: %w", err))
	}

	metrics.RidesRequestedTotal.WithLabelValues(serviceName).Inc()
	s.publish(ctx, entry)
	s.log.Info(ctx, "ride requested", "price", ride.Price, "distance", ride.Distance)

	return ride, nil
}

// Estimate quotes a trip without creating it.
func (s *Service) Estimate(ctx context.Context, origin, destination models.Location) (ridecalc.Estimate, error) {
	if !origin.Valid() || !destination.Valid() {
		return ridecalc.Estimate{}, wrap.Error(ctx, types.InvalidInput("origin and destination must have valid coordinates"))
	}
	return s.pricing.Estimate(origin, destination), nil
}

// withAddress fills a blank address from the geocoder. Failures leave it blank.
func (s *Service) withAddress(ctx context.Context, loc models.Location) models.Location {
	if loc.Address != "" || s.geocoder == nil {
		return loc
	}
	address, err := s.geocoder.GetAddress(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		s.log.Warn(ctx, "reverse geocoding failed", "error", err.Error())
		return loc
	}
	loc.Address = address
	return loc
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
