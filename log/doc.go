// Package log provides leveled logging for the datalyst service.
//
// It defines a small Logger interface, a default implementation backed by the
// standard library, and a golog-backed implementation for structured, colored
// output. A package-level default logger lets other packages log without
// threading a Logger through every constructor:
//
//	log.SetLogLevel(log.LogLevelDebug)
//	log.Info("session %s created", id)
//
// The server binary routes everything through golog:
//
//	log.SetDefaultLogger(log.NewServiceLogger(log.ParseLevel(cfg.LogLevel)))
package log
