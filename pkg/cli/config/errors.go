package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrInvalidLogLevel      = goerr.New("invalid log level")
	ErrInvalidLogFormat     = goerr.New("invalid log format")
	ErrInvalidWeight        = goerr.New("fusion weight must be positive")
	ErrInvalidThreshold     = goerr.New("rerank threshold must be within [0, 1]")
	ErrInvalidBackend       = goerr.New("unsupported backend")
	ErrMissingKnowledge     = goerr.New("knowledge directory is required")
	ErrMissingGeminiProject = goerr.New("gemini-project is required for the gemini embedding backend")
)
