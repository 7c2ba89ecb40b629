package middleware

import (
	"encoding/json"
	"net/http"

	"hot-server/services"
	"hot-server/store"
	apierrors "hot-server/utils/errors"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
)

// ErrorMiddleware turns a panic in a handler into a 500 response.
func ErrorMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					LoggerFrom(r.Context()).Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.Stack("stack"))
					WriteError(w, r, apierrors.ErrInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WriteError writes err as a JSON APIError. Server errors are logged with
// their details, which are never sent to the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := FromError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		LoggerFrom(r.Context()).Error("server error",
			zap.String("code", apiErr.Code),
			zap.String("details", apiErr.Details),
			zap.Error(err))
		apiErr = apierrors.NewAPIError(apiErr.Code, apiErr.Message, apiErr.Status)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	_ = json.NewEncoder(w).Encode(apiErr)
}

// FromError maps service and store errors onto API errors. Anything it does
// not recognize is an internal error carrying the original message.
func FromError(err error) *apierrors.APIError {
	var apiErr *apierrors.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, store.ErrInvalidID):
		return apierrors.NewAPIError(apierrors.ErrInvalidID.Code, apierrors.ErrInvalidID.Message, apierrors.ErrInvalidID.Status, err.Error())
	case errors.Is(err, services.ErrMissingField), errors.Is(err, services.ErrInvalidArgument):
		return apierrors.InvalidInput(err.Error())
	case errors.Is(err, services.ErrNotFound):
		return apierrors.ErrNotFound
	default:
		return apierrors.NewAPIError(apierrors.ErrInternal.Code, apierrors.ErrInternal.Message, apierrors.ErrInternal.Status, err.Error())
	}
}
