package handler

import (
	"errors"
	"net/http"

	"go-clinic-scheduler/internal/usecase"
	"go-clinic-scheduler/pkg/response"
)

// statusFor maps a usecase error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, usecase.ErrConflict), errors.Is(err, usecase.ErrExhaustedCapacity):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrInventory):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the usecase message for typed failures and with
// fallback for anything else, so infrastructure details never leak.
func writeError(w http.ResponseWriter, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		response.InternalServerError(w, fallback)
		return
	}

	var usecaseErr *usecase.Error
	kind := ""
	if errors.As(err, &usecaseErr) {
		kind = usecaseErr.Kind.Error()
	}
	response.Error(w, status, err.Error(), kind)
}
