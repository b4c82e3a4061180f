package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxRequestBodySize = 1 << 20 // 1MB

// ActorHeader carries the authenticated user's ID, set by the gateway in
// front of this service.
const ActorHeader = "X-User-Id"

// TypeError reports a JSON field whose value had the wrong type
type TypeError struct {
	Field string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("invalid type for field %q", e.Field)
}

// DecodeJSON decodes JSON request body into the provided struct with size limit
func DecodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()

	// Limit request body size to prevent DoS attacks
	limitedReader := io.LimitReader(r.Body, maxRequestBodySize)

	if err := json.NewDecoder(limitedReader).Decode(v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &TypeError{Field: typeErr.Field}
		}
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
	return nil
}

// ActorID extracts the acting user's ID from the request headers
func ActorID(r *http.Request) (uuid.UUID, error) {
	value := r.Header.Get(ActorHeader)
	if value == "" {
		return uuid.Nil, fmt.Errorf("missing %s header", ActorHeader)
	}

	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s header: %w", ActorHeader, err)
	}

	return id, nil
}

// GetUUIDParam extracts a UUID parameter from the URL
func GetUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	param := chi.URLParam(r, key)
	if param == "" {
		return uuid.Nil, fmt.Errorf("missing parameter: %s", key)
	}

	id, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid UUID: %w", err)
	}

	return id, nil
}

// GetIntQuery extracts an integer query parameter with a default value
func GetIntQuery(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// GetFloatQuery extracts an optional float query parameter; nil when absent
// or unparseable
func GetFloatQuery(r *http.Request, key string) *float64 {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}

	return &floatValue
}

// GetUUIDQuery extracts an optional UUID query parameter; nil when absent
// or invalid
func GetUUIDQuery(r *http.Request, key string) *uuid.UUID {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil
	}

	id, err := uuid.Parse(value)
	if err != nil {
		return nil
	}

	return &id
}

// GetPaginationParams extracts and validates pagination parameters
func GetPaginationParams(r *http.Request) (limit, offset int) {
	limit = GetIntQuery(r, "limit", 20)
	offset = GetIntQuery(r, "offset", 0)

	// Validate and clamp values
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
