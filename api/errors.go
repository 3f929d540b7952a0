package api

import "errors"

// ErrNoInspector is returned when a server is built without a way to reach
// the memory.
var ErrNoInspector = errors.New("api server requires an inspector")

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
