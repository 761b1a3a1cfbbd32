// Package inflight guards against duplicate concurrent work.
//
// A Registry holds a set of (subject, kind) keys. Callers acquire a key
// before dispatching an operation and defer the returned release, so the key
// is cleared on every exit path including panics. A second acquire of a held
// key fails immediately instead of queueing.
package inflight
