package wshandler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/ws/dto"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	rideservice "github.com/Temutjin2k/ride-dispatch/internal/service/ride"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

const (
	codeInvalidInput      = "invalid_input"
	codeUnauthenticated   = "unauthenticated"
	codeUnauthorized      = "unauthorized"
	codeNotFound          = "not_found"
	codeIllegalTransition = "illegal_transition"
	codeAlreadyClaimed    = "already_claimed"
	codeNoLongerAvailable = "no_longer_available"
	codeActiveRideExists  = "active_ride_exists"
	codeAlreadyRated      = "already_rated"
	codeStoreUnavailable  = "store_unavailable"
	codeTimeout           = "timeout"
	codeInternal          = "internal"
)

func errorCode(err error) string {
	switch {
	case errors.Is(err, types.ErrClaimTimeout), errors.Is(err, context.DeadlineExceeded):
		return codeTimeout
	case errors.Is(err, types.ErrInvalidInput):
		return codeInvalidInput
	case errors.Is(err, types.ErrUnauthenticated):
		return codeUnauthenticated
	case errors.Is(err, types.ErrUnauthorized):
		return codeUnauthorized
	case errors.Is(err, types.ErrAlreadyClaimed):
		return codeAlreadyClaimed
	case errors.Is(err, types.ErrNoLongerAvailable):
		return codeNoLongerAvailable
	case errors.Is(err, types.ErrActiveRideExist):
		return codeActiveRideExists
	case errors.Is(err, types.ErrAlreadyRated):
		return codeAlreadyRated
	case errors.Is(err, types.ErrIllegalTransition):
		return codeIllegalTransition
	case errors.Is(err, types.ErrNotFound):
		return codeNotFound
	case errors.Is(err, types.ErrStoreUnavailable):
		return codeStoreUnavailable
	default:
		return codeInternal
	}
}

func errorReply(requestID string, err error) dto.Reply {
	data := dto.ErrorData{Code: errorCode(err), Message: err.Error()}
	if data.Code == codeInternal {
		data.Message = "internal error"
	}

	var verr *rideservice.ValidationError
	if errors.As(err, &verr) {
		data.Fields = verr.Fields
	}

	return dto.Reply{Type: dto.TypeError, RequestID: requestID, Data: data}
}

type validatable interface {
	Validate(v *validator.Validator)
}

// decode unmarshals a message payload into dst and validates it.
func decode(data json.RawMessage, dst validatable) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return types.InvalidInput("malformed data: %s", err.Error())
	}

	v := validator.New()
	dst.Validate(v)
	if !v.Valid() {
		return &rideservice.ValidationError{Fields: v.Errors}
	}
	return nil
}
