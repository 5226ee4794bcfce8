// Package models defines the data model shared by the pairing client,
// the credential store and the stub desktop backend.
//
// The central type is [SessionDetails]: the authenticated identity record a
// successful connection-code exchange produces. A SessionDetails value is
// either fully populated or does not exist; partial records are never
// persisted or handed to callers.
package models
