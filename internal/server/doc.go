// Package server exposes the review and static check over HTTP.
//
// Routes:
//
//	POST /api/review          {"prompt": "<source>"}  -> review envelope
//	POST /api/codecheck/node  {"code": "<source>"}    -> {"response": [findings]}
//	POST /api/analyze         {"path", "code", "force"} -> per-file view
//	GET  /healthz             counters and in-flight count
//
// A request whose (subject, kind) key is already in flight is refused with
// 409 Conflict rather than queued. The subject is the request path when
// given, otherwise a hash of the submitted code.
package server
