package types

// RideEvent names an entry of the ride lifecycle log.
type RideEvent string

func (s RideEvent) String() string {
	return string(s)
}

const (
	EventRideRequested RideEvent = "RIDE_REQUESTED"
	EventDriverMatched RideEvent = "DRIVER_MATCHED"
	EventDriverArrived RideEvent = "DRIVER_ARRIVED"
	EventRideStarted   RideEvent = "RIDE_STARTED"
	EventRideCompleted RideEvent = "RIDE_COMPLETED"
	EventRideCancelled RideEvent = "RIDE_CANCELLED"
	EventRideRated     RideEvent = "RIDE_RATED"
)

// EventForStatus returns the log entry produced by entering status.
func EventForStatus(status RideStatus) RideEvent {
	switch status {
	case StatusPending:
		return EventRideRequested
	case StatusAccepted:
		return EventDriverMatched
	case StatusArrived:
		return EventDriverArrived
	case StatusInProgress:
		return EventRideStarted
	case StatusCompleted:
		return EventRideCompleted
	default:
		return EventRideCancelled
	}
}

// EventType tags a message pushed to a connected client.
type EventType string

const (
	PushRideAccepted      EventType = "ride_accepted"
	PushRideStatusChanged EventType = "ride_status_changed"
	PushRideCancelled     EventType = "ride_cancelled"
	PushRideUnavailable   EventType = "ride_unavailable"
	PushRideRated         EventType = "ride_rated"
)
