// Package log defines the structured logging interface used throughout
// gateship, plus a zerolog-backed implementation and a no-op implementation
// for tests.
//
// Components accept a [Logger] rather than a concrete logging library so the
// pipeline core stays free of logging vendor choices:
//
//	logger := log.NewZerologAdapter()
//	client := gate.NewClient(url, token, logger)
package log
