package main

import (
	"errors"

	"github.com/matsen/paperfeed/internal/config"
	"github.com/matsen/paperfeed/internal/pipeline"
)

// Exit codes seen by the scheduler.
const (
	ExitSuccess        = 0 // Success, including "nothing new today"
	ExitError          = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError    = 2 // Missing or invalid configuration
	ExitSourceError    = 3 // Library or arXiv listing unavailable
	ExitTransportError = 4 // Digest could not be delivered
)

// exitCodeFor maps a command error to its exit code.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, config.ErrInvalid):
		return ExitConfigError
	case errors.Is(err, pipeline.ErrSourceUnavailable):
		return ExitSourceError
	case errors.Is(err, pipeline.ErrTransport):
		return ExitTransportError
	default:
		return ExitError
	}
}
