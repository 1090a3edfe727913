package tui

import "errors"

// ErrMissingPipeline is returned when the pipeline service is not provided.
var ErrMissingPipeline = errors.New("tui: pipeline is required")
