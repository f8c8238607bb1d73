// Package logging provides the subsystem-tagged logger used across disqusctl.
//
// It is a thin layer over log/slog: every entry carries a "subsystem"
// attribute, and the handler (text or JSON) and minimum level are chosen once
// at startup.
//
// # Usage
//
//	logging.Init(logging.LevelInfo, logging.FormatText, os.Stderr)
//
//	logging.Info("Config", "Loaded configuration from %s", path)
//	logging.Warn("Store", "Stored identity could not be decoded")
//	logging.Error("Client", err, "Token exchange failed")
//
//	// Structured attributes
//	logging.Logger("Store").Info("identity stored", "user_id", id)
//
// # Security
//
// Callers must never pass access tokens, refresh tokens or API secrets to
// the logger. User IDs and store kinds are fine.
package logging
