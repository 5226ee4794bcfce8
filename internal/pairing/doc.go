// Package pairing implements the connection-code exchange with a Conductor
// desktop backend.
//
// [Client] performs the single POST that trades an 8-character code for a
// bearer token, with a bounded timeout and defensive response parsing: the
// backend is not fully trusted to emit clean JSON, so bodies are stripped of
// BOMs and anti-hijacking prefixes before they are parsed.
//
// [ParsePayload] turns a scanned or pasted QR payload into the {code, apiUrl}
// pair the session machine consumes, accepting both a JSON blob and a
// query-string form.
package pairing
