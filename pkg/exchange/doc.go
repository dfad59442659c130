// Package exchange implements the 1C "exchange with website" protocol:
// the session state machine and the HTTP dispatcher that turn a sequence
// of otherwise-stateless requests (checkauth, init, file uploads, import
// or query, success) into one logical transaction.
//
// # Sessions
//
// A session is a durable [Record] keyed by the owning user. Exactly one
// record system-wide may be in [StateInit]: opening a new session aborts
// whatever was in flight, attributing the eviction to the requesting user,
// so a crashed or abandoned exchange never blocks new attempts. Terminal
// states ([StateDone], [StateAbort]) are never left.
//
// Persistence is behind the [Store] interface; the package ships an
// in-memory implementation, and database-backed stores live in
// internal/storage.
//
// # Dispatch
//
// [Handler] is an http.Handler routing on the type and mode query
// parameters. The authenticated user is taken from the request context
// (see [WithUser]); transport authentication itself is the host's
// concern. Business logic - what to do with an imported catalogue, which
// orders to export - is supplied through the [Delegate] interface.
package exchange
