// Package api provides an HTTP API server for inspecting and feeding a
// running memory.
package api

import (
	"net/http"

	"github.com/papercomputeco/reckon/pkg/journal"
	"github.com/papercomputeco/reckon/pkg/sse"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// Journal serves /v1/journal when set.
	Journal journal.Driver

	// Events serves /v1/events when set.
	Events *sse.Broker

	// Metrics serves /metrics when set.
	Metrics http.Handler

	// ConceptLimit caps /v1/concepts when the request gives no limit.
	ConceptLimit int
}
