// Package server implements a stub Conductor desktop backend for local demos
// and end-to-end tests.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first),
// following the standard Go pattern. The [BasicRouter] implementation uses
// [http.ServeMux] internally with method filtering.
//
// # Pairing
//
// [ConnectHandler] serves POST /api/mobile/connect. The backend issues one
// eight-character connection code at startup; the first request presenting it
// receives a bearer token and identity payload, and the code is consumed.
// Every other request gets 401 with a JSON error body, matching the desktop
// app's behavior. Connect attempts are rate limited with [rate.Limiter] so a
// leaked code cannot be brute forced.
//
// # Sample Data
//
// [DataHandler] serves the bearer-guarded sample datasets under
// /api/mobile/data/. The data is deterministic so tests can assert on it.
package server
