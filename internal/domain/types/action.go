package types

const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"
	ActionRabbitReconnected       = "rabbitmq_reconnection_success"

	ActionExternalServiceFailed = "external_service_failed"

	ActionRideRequested   = "ride_requested"
	ActionRideClaimed     = "ride_claimed"
	ActionRideTransition  = "ride_transition"
	ActionRideRated       = "ride_rated"
	ActionRideExpired     = "ride_expired"
	ActionNearbyRides     = "nearby_rides"
	ActionLocationUpdated = "location_updated"
	ActionNotify          = "notify"
	ActionWSConnected     = "ws_connected"
	ActionWSDisconnected  = "ws_disconnected"
)
