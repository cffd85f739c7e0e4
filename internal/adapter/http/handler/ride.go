package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	ridecalc "github.com/Temutjin2k/ride-dispatch/internal/service/calculator"
	rideservice "github.com/Temutjin2k/ride-dispatch/internal/service/ride"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
	"github.com/google/uuid"
)

type RideService interface {
	Request(ctx context.Context, in rideservice.RequestInput) (*models.Ride, error)
	Estimate(ctx context.Context, origin, destination models.Location) (ridecalc.Estimate, error)
	Get(ctx context.Context, rideID uuid.UUID, who models.Identity) (*models.Ride, error)
	GetActive(ctx context.Context, who models.Identity) (*models.Ride, error)
	ListNearby(ctx context.Context, driverID uuid.UUID, point *models.Location) ([]*models.Ride, error)
	Claim(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error)
	Transition(ctx context.Context, in rideservice.TransitionInput) (*models.Ride, error)
	Cancel(ctx context.Context, rideID, actorID uuid.UUID, role types.UserRole, reason string) (*models.Ride, error)
	Rate(ctx context.Context, in rideservice.RateInput) (*models.Ride, error)
	UpdateDriverLocation(ctx context.Context, driverID uuid.UUID, loc models.Location) error
}

type Ride struct {
	service RideService
	l       logger.Logger
}

func NewRide(service RideService, l logger.Logger) *Ride {
	return &Ride{
		service: service,
		l:       l,
	}
}

// CreateRide godoc
// @Summary      Request a ride
// @Description  Creates a PENDING ride for the calling passenger. Omitted trip metrics are quoted.
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      dto.CreateRideRequest  true  "Ride request"
// @Success      201      {object}  map[string]any
// @Failure      409      {object}  map[string]any  "Passenger already has an active ride"
// @Failure      422      {object}  map[string]any
// @Router       /rides [post]
func (h *Ride) CreateRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionRideRequested)
	who := identity(r)

	var req dto.CreateRideRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	ride, err := h.service.Request(ctx, rideservice.RequestInput{
		PassengerID:   who.UserID,
		Origin:        req.Origin.ToModel(),
		Destination:   req.Destination.ToModel(),
		Distance:      req.Distance,
		Duration:      req.Duration,
		Price:         req.Price,
		PaymentMethod: types.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, err)
		return
	}

	h.respond(ctx, w, http.StatusCreated, envelope{"ride": ride})
}

// EstimateRide godoc
// @Summary      Fare estimate
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      dto.EstimateRequest  true  "Trip endpoints"
// @Success      200      {object}  dto.EstimateResponse
// @Router       /rides/estimate [post]
func (h *Ride) EstimateRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "estimate_ride")

	var req dto.EstimateRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	est, err := h.service.Estimate(ctx, req.Origin.ToModel(), req.Destination.ToModel())
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, err)
		return
	}

	h.respond(ctx, w, http.StatusOK, envelope{
		"estimate": dto.EstimateResponse{Distance: est.Distance, Duration: est.Duration, Price: est.Price},
	})
}

// GetActiveRide godoc
// @Summary      Active ride of the caller
// @Description  Returns the caller's non-terminal ride, or null. Clients re-fetch this after reconnecting.
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]any
// @Router       /rides/active [get]
func (h *Ride) GetActiveRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_active_ride")

	ride, err := h.service.GetActive(ctx, identity(r))
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, err)
		return
	}

	h.respond(ctx, w, http.StatusOK, envelope{"ride": ride})
}

// GetRide godoc
// @Summary      Get a ride
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string  true  "Ride ID"
// @Success      200      {object}  map[string]any
// @Failure      403      {object}  map[string]any
// @Failure      404      {object}  map[string]any
// @Router       /rides/{ride_id} [get]
func (h *Ride) GetRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_ride")

	rideID, err := rideIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	ride, err := h.service.Get(ctx, rideID, identity(r))
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, err)
		return
	}

	h.respond(ctx, w, http.StatusOK, envelope{"ride": ride})
}

// NearbyRides godoc
// @Summary      Pending rides near the driver
// @Description  Uses the given point, or the driver's last reported location when omitted.
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Param        latitude   query     number  false  "Latitude"
// @Param        longitude  query     number  false  "Longitude"
// @Success      200        {object}  map[string]any
// @Router       /rides/nearby [get]
func (h *Ride) NearbyRides(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionNearbyRides)

	lat, err := floatQuery(r, "latitude")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	lng, err := floatQuery(r, "longitude")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if (lat == nil) != (lng == nil) {
		badRequestResponse(w, "latitude and longitude must be given together")
		return
	}

	var point *models.Location
	if lat != nil {
		point = &models.Location{Latitude: *lat, Longitude: *lng}
	}

	rides, err := h.service.ListNearby(ctx, identity(r).UserID, point)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, err)
		return
	}

	h.respond(ctx, w, http.StatusOK, envelope{"rides": rides, "count": len(rides)})
}

// ClaimRide godoc
// @Summary      Claim a pending ride
// @Description  First claim wins. Losers get 409.
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string  true  "Ride ID"
// @Success      200      {object}  map[string]any
// @Failure      409      {object}  map[string]any  "Already claimed or no longer available"
// @Failure      504      {object}  map[string]any
// @Router       /rides/{ride_id}/claim [post]
func (h *Ride) ClaimRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionRideClaimed)

	rideID, err := rideIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	ride, err := h.service.Claim(ctx, rideID, identity(r).UserID)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, err)
		return
	}

	h.respond(ctx, w, http.StatusOK, envelope{"ride": ride})
}

// TransitionRide godoc
// @Summary      Move a ride to the next status
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string                 true  "Ride ID"
// @Param        request  body      dto.TransitionRequest  true  "Target status"
// @Success      200      {object}  map[string]any
// @Failure      409      {object}  map[string]any  "Illegal transition"
// @Router       /rides/{ride_id}/transition [post]
func (h *Ride) TransitionRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionRideTransition)
	who := identity(r)

	rideID, err := rideIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	var req dto.TransitionRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	ride, err := h.service.Transition(ctx, rideservice.TransitionInput{
		RideID:    rideID,
		ActorID:   who.UserID,
		ActorRole: who.Role,
		Target:    types.RideStatus(req.Status),
		Reason:    req.Reason,
	})
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, err)
		return
	}

	h.respond(ctx, w, http.StatusOK, envelope{"ride": ride})
}

// CancelRide godoc
// @Summary      Cancel a ride
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string                 true  "Ride ID"
// @Param        request  body      dto.CancelRideRequest  true  "Cancellation reason"
// @Success      200      {object}  map[string]any
// @Failure      409      {object}  map[string]any
// @Router       /rides/{ride_id}/cancel [post]
func (h *Ride) CancelRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "cancel_ride")
	who := identity(r)

	rideID, err := rideIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	var req dto.CancelRideRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	ride, err := h.service.Cancel(ctx, rideID, who.UserID, who.Role, req.Reason)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, err)
		return
	}

	h.respond(ctx, w, http.StatusOK, envelope{"ride": ride})
}

// RateRide godoc
// @Summary      Rate the other party of a completed ride
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string             true  "Ride ID"
// @Param        request  body      dto.RatingRequest  true  "Score 1-5"
// @Success      200      {object}  map[string]any
// @Failure      409      {object}  map[string]any  "Already rated or ride not completed"
// @Router       /rides/{ride_id}/rating [post]
func (h *Ride) RateRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionRideRated)
	who := identity(r)

	rideID, err := rideIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	var req dto.RatingRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	ride, err := h.service.Rate(ctx, rideservice.RateInput{
		RideID:    rideID,
		ActorID:   who.UserID,
		ActorRole: who.Role,
		Score:     req.Score,
		Comment:   req.Comment,
	})
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, err)
		return
	}

	h.respond(ctx, w, http.StatusOK, envelope{"ride": ride})
}

// UpdateLocation godoc
// @Summary      Report the driver's position
// @Tags         Drivers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      dto.LocationUpdateRequest  true  "Coordinates"
// @Success      200      {object}  map[string]any
// @Router       /drivers/location [post]
func (h *Ride) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionLocationUpdated)

	var req dto.LocationUpdateRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	if err := h.service.UpdateDriverLocation(ctx, identity(r).UserID, req.ToModel()); err != nil {
		serviceErrorResponse(ctx, w, h.l, err)
		return
	}

	h.respond(ctx, w, http.StatusOK, envelope{"status": "updated"})
}

func (h *Ride) respond(ctx context.Context, w http.ResponseWriter, status int, data envelope) {
	if err := writeJSON(w, status, data, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// identity returns the caller set by the auth middleware. Routes without
// RequireRoles get the zero Identity.
func identity(r *http.Request) models.Identity {
	who, _ := models.IdentityFromContext(r.Context())
	return who
}
