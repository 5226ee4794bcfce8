// Package services implements the authenticated HTTP client for a paired
// Conductor backend.
//
// [APIService] wraps a session's endpoint and bearer token and exposes raw
// GET/POST plus typed fetches for the backend's sample datasets. The raw
// methods return [APIResponse] so callers can inspect status, headers and
// body without the client deciding what counts as an error; the typed
// fetches layer the usual status handling on top:
//
//   - 401 : [shared.ErrNotConnected], the token is stale, pair again
//   - other non-2xx : [shared.ErrTransport] with the status
//   - undecodable body : [shared.ErrInvalidResponse]
//
// Network logging is optional and off by default; when enabled (developer
// settings) each request logs method, path, status and duration. Tokens are
// never logged.
package services
