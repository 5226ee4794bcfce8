// Package session owns the pairing/session lifecycle.
//
// [Machine] is the single source of truth every surface binds to: it
// normalizes user input, drives the connection-code exchange, persists the
// resulting credentials, restores them on cold start, and publishes an
// observable [State] to subscribers. State is mutated only inside the
// machine's own operations; listeners always receive copies.
//
// Documented policy decisions where the lifecycle allows more than one
// reading:
//   - a stored session record that no longer deserializes surfaces as
//     [StatusError] (the user is told, the record is left in place for
//     Disconnect to clear) rather than silently reading as logged-out;
//   - a Connect issued while another attempt is in flight is rejected
//     immediately with [shared.ErrAlreadyConnecting] instead of queueing or
//     racing last-write-wins.
//
// [DevStore] holds the developer-tools settings and the QR bypass
// credentials, which enter the session through the same persistence path as a
// real connect so restore-on-restart behaves identically.
package session
