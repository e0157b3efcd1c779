// Package logging provides structured logging for the bridge simulator.
//
// It wraps log/slog so every component logs with the same handler,
// level filter and default fields (service, version).
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	streamLog := logger.With("component", "stream")
//	streamLog.Warn("frame dropped", "error", err)
//
// The client key handed out by the claim endpoint is a credential and is
// never logged.
package logging
