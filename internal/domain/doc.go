// Package domain contains the core entities and error taxonomy for gateship.
//
// This is the innermost layer: it has no dependencies on transport, file
// system, or logging concerns and holds only the structures the flush engine
// reasons about.
//
// # Entities
//
//   - [Buffer]: the ordered set of messages pending delivery for one
//     (stream, version) pair, with a running raw byte counter
//   - [StreamMeta]: schema and key properties for a stream, replaced whenever
//     a new SCHEMA message arrives
//
// # Errors
//
// Errors split into two classes. Known errors ([KnownError],
// [BatchTooLargeError]) describe expected operational failures whose message
// alone is actionable; the CLI reports them without diagnostic detail.
// Everything else is unexpected and is reported with the full error chain.
package domain
