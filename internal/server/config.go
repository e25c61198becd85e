package server

import (
	"github.com/dtoro641/confiable/internal/app"
	"github.com/dtoro641/confiable/internal/logging"
)

// Config wires the server to its dependencies.
type Config struct {
	// ListenAddr is the HTTP listen address for the API server.
	ListenAddr string

	// Service runs the analyses and owns the history store. Required.
	// The server takes ownership and closes it in Close.
	Service *app.Service

	// Logger receives request and handler logs. A stdout logger is used
	// when nil.
	Logger logging.Logger
}
