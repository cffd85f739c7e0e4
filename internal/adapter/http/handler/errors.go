package handler

import (
	"context"
	"errors"
	"net/http"

	rideservice "github.com/Temutjin2k/ride-dispatch/internal/service/ride"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

func errorResponse(w http.ResponseWriter, status int, message any) {
	env := envelope{"error": message}

	// fall back to an empty 500 when the envelope can't be encoded
	if err := writeJSON(w, status, env, nil); err != nil {
		w.WriteHeader(500)
	}
}

// failedValidationResponse returns 422 UnprocessableEntity status.
// The request was well-formed JSON, but its values can't be processed;
// repeating it without modification will fail the same way.
func failedValidationResponse(w http.ResponseWriter, errors map[string]string) {
	errorResponse(w, http.StatusUnprocessableEntity, errors)
}

// badRequestResponse returns 400 BadRequest status for malformed requests.
func badRequestResponse(w http.ResponseWriter, message any) {
	errorResponse(w, http.StatusBadRequest, message)
}

func internalErrorResponse(w http.ResponseWriter, message any) {
	errorResponse(w, http.StatusInternalServerError, message)
}

// serviceErrorResponse writes the response for an error returned by the ride service.
// Server-side failures are logged; their details are not sent to the client.
func serviceErrorResponse(ctx context.Context, w http.ResponseWriter, log logger.Logger, err error) {
	var verr *rideservice.ValidationError
	if errors.As(err, &verr) {
		failedValidationResponse(w, verr.Fields)
		return
	}

	code := GetCode(err)
	switch code {
	case http.StatusInternalServerError:
		log.Error(wrap.ErrorCtx(ctx, err), "request failed", err)
		internalErrorResponse(w, "the server encountered a problem and could not process your request")
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		log.Warn(wrap.ErrorCtx(ctx, err), "request failed", "error", err.Error())
		errorResponse(w, code, err.Error())
	default:
		errorResponse(w, code, err.Error())
	}
}
