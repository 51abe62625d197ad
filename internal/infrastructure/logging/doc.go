// Package logging provides structured logging for the beacon station.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the station process. It replaces
// the serial console of a bare-metal station: every cycle, store call and
// provisioning action is reported here.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0").WithStation(cfg.Station.ID)
//	logger.Info("room resolved", "room_id", roomID)
//	logger.Warn("publish failed", "tag_id", tagID, "error", err)
//
// Never log store auth tokens or broker passwords.
package logging
