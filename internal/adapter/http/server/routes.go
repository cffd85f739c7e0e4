package server

import (
	_ "github.com/Temutjin2k/ride-dispatch/docs"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

const swaggerInstance = "dispatch"

// setupRoutes - setups http routes
func (a *API) setupRoutes() {
	// System Health
	a.mux.HandleFunc("GET /health", a.routes.health.HealthCheck)

	a.setupSwaggerRoutes()
	a.setupMetricsRoute()
	a.setupRideRoutes()

	// Realtime gateway; authenticates on its own
	a.mux.HandleFunc("GET /ws", a.routes.ws.ServeWS)
}

func (a *API) setupRideRoutes() {
	h, m := a.routes.ride, a.m

	a.mux.Handle("POST /rides", m.RequireRoles(h.CreateRide, types.PassengerRole))             // Request a ride
	a.mux.Handle("POST /rides/estimate", m.RequireRoles(h.EstimateRide))                       // Fare estimate
	a.mux.Handle("GET /rides/active", m.RequireRoles(h.GetActiveRide))                         // Caller's active ride
	a.mux.Handle("GET /rides/nearby", m.RequireRoles(h.NearbyRides, types.DriverRole))         // Pending rides near the driver
	a.mux.Handle("GET /rides/{ride_id}", m.RequireRoles(h.GetRide))                            // Party-only read
	a.mux.Handle("POST /rides/{ride_id}/claim", m.RequireRoles(h.ClaimRide, types.DriverRole)) // First claim wins
	a.mux.Handle("POST /rides/{ride_id}/transition", m.RequireRoles(h.TransitionRide))         // Status change
	a.mux.Handle("POST /rides/{ride_id}/cancel", m.RequireRoles(h.CancelRide))                 // Cancel by either party
	a.mux.Handle("POST /rides/{ride_id}/rating", m.RequireRoles(h.RateRide))                   // Post-trip rating
	a.mux.Handle("POST /drivers/location", m.RequireRoles(h.UpdateLocation, types.DriverRole)) // Driver position
}

// setupSwaggerRoutes serves the Swagger UI for the registered dispatch doc
func (a *API) setupSwaggerRoutes() {
	swaggerURL := httpSwagger.InstanceName(swaggerInstance)
	a.mux.HandleFunc("GET /swagger/", httpSwagger.Handler(swaggerURL))
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func (a *API) setupMetricsRoute() {
	a.mux.Handle("GET /metrics", promhttp.Handler())
}
