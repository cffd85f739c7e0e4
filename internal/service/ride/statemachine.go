package ride

import (
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

// legalTransitions maps a status to the statuses each role may move it to.
var legalTransitions = map[types.RideStatus]map[types.UserRole][]types.RideStatus{
	types.StatusPending: {
		types.DriverRole:    {types.StatusAccepted},
		types.PassengerRole: {types.StatusCancelled},
	},
	types.StatusAccepted: {
		types.DriverRole:    {types.StatusArrived, types.StatusCancelled},
		types.PassengerRole: {types.StatusCancelled},
	},
	types.StatusArrived: {
		types.DriverRole:    {types.StatusInProgress, types.StatusCancelled},
		types.PassengerRole: {types.StatusCancelled},
	},
	types.StatusInProgress: {
		types.DriverRole: {types.StatusCompleted, types.StatusCancelled},
	},
}

// CanTransition reports whether role may move a ride from one status to another.
// Terminal statuses and same-status moves are never legal.
func CanTransition(from types.RideStatus, role types.UserRole, to types.RideStatus) bool {
	if from == to {
		return false
	}
	for _, next := range legalTransitions[from][role] {
		if next == to {
			return true
		}
	}
	return false
}
