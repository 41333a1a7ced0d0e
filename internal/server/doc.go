// Package server exposes a Backend over the collaborator's REST contract so
// the HTTP client, the GUI and other front ends can share one local service.
//
// Routes live under /api/v1, with /health at the root. Errors are written as
// {"detail": "..."} bodies.
package server
