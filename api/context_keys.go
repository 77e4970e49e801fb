package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// contextKey is a private type to prevent context key collisions across packages.
type contextKey string

const (
	// ContextKeyRequestID stores the unique request identifier (string)
	ContextKeyRequestID contextKey = "request_id"

	// ContextKeyBody stores the parsed JSON request body (json.RawMessage)
	ContextKeyBody contextKey = "body"
)

// ErrNoBody is returned by DecodeBody when the request carried no parsed
// JSON body.
var ErrNoBody = errors.New("request has no JSON body")

// GetRequestID extracts the request ID from the context.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeyRequestID).(string)
	return id, ok
}

// BodyFromContext returns the JSON document parsed by the body middleware.
// It is absent for requests without a JSON body.
func BodyFromContext(ctx context.Context) (json.RawMessage, bool) {
	body, ok := ctx.Value(ContextKeyBody).(json.RawMessage)
	return body, ok
}

// DecodeBody unmarshals the parsed JSON body of r into dst.
func DecodeBody(r *http.Request, dst interface{}) error {
	body, ok := BodyFromContext(r.Context())
	if !ok {
		return ErrNoBody
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}
	return nil
}
