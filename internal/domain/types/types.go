package types

type ServiceMode string

// DispatchService runs the HTTP API, the websocket gateway and the background workers.
// MigrateMode applies the database schema and exits.
const (
	DispatchService ServiceMode = "dispatch-service"
	MigrateMode     ServiceMode = "migrate"
)

type UserRole string

func (r UserRole) String() string {
	return string(r)
}

const (
	PassengerRole UserRole = "PASSENGER"
	DriverRole    UserRole = "DRIVER"
)

func (r UserRole) Valid() bool {
	return r == PassengerRole || r == DriverRole
}

type RideStatus string

func (s RideStatus) String() string {
	return string(s)
}

const (
	StatusPending    RideStatus = "PENDING"
	StatusAccepted   RideStatus = "ACCEPTED"
	StatusArrived    RideStatus = "ARRIVED"
	StatusInProgress RideStatus = "IN_PROGRESS"
	StatusCompleted  RideStatus = "COMPLETED"
	StatusCancelled  RideStatus = "CANCELLED"
)

// RideStatuses lists every status in lifecycle order.
var RideStatuses = []RideStatus{
	StatusPending,
	StatusAccepted,
	StatusArrived,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
}

func (s RideStatus) Valid() bool {
	for _, st := range RideStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s RideStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Active reports whether the ride still involves its parties.
func (s RideStatus) Active() bool {
	return s.Valid() && !s.Terminal()
}

type CancelledBy string

const (
	CancelledByPassenger CancelledBy = "PASSENGER"
	CancelledByDriver    CancelledBy = "DRIVER"
	CancelledBySystem    CancelledBy = "SYSTEM"
)

// CancelledByRole maps the acting role to the cancellation source.
func CancelledByRole(role UserRole) CancelledBy {
	switch role {
	case PassengerRole:
		return CancelledByPassenger
	case DriverRole:
		return CancelledByDriver
	default:
		return CancelledBySystem
	}
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentCard   PaymentMethod = "CARD"
	PaymentWallet PaymentMethod = "WALLET"
)

var PaymentMethods = []PaymentMethod{PaymentCash, PaymentCard, PaymentWallet}

func (p PaymentMethod) Valid() bool {
	return p == PaymentCash || p == PaymentCard || p == PaymentWallet
}
