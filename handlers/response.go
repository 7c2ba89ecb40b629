package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"hot-server/middleware"
	apierrors "hot-server/utils/errors"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
)

// IDResponse is returned by create endpoints.
type IDResponse struct {
	ID string `json:"_id"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		middleware.LoggerFrom(r.Context()).Debug("write response", zap.Error(err))
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apierrors.InvalidInput(errors.Wrap(err, "decode body").Error())
	}
	return nil
}

// requiredQuery returns the named query parameters, failing when any is absent.
func requiredQuery(r *http.Request, names ...string) ([]string, error) {
	query := r.URL.Query()
	values := make([]string, 0, len(names))
	for _, name := range names {
		if !query.Has(name) {
			return nil, apierrors.InvalidInput("missing query parameter " + name)
		}
		values = append(values, query.Get(name))
	}
	return values, nil
}

func parseFloat(name, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apierrors.InvalidInput("invalid " + name + ": " + raw)
	}
	return v, nil
}

// parseCoordinates reads latitude and longitude from the query.
func parseCoordinates(r *http.Request) (lat, lon float64, err error) {
	values, err := requiredQuery(r, "latitude", "longitude")
	if err != nil {
		return 0, 0, err
	}
	if lat, err = parseFloat("latitude", values[0]); err != nil {
		return 0, 0, err
	}
	if lon, err = parseFloat("longitude", values[1]); err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}
