// Package storage provides the two key-value capabilities behind session
// persistence.
//
// [SecureStore] is the durable side: a SQLite-backed table whose values are
// sealed with a locally generated secretbox key before they touch disk. Read
// failures degrade to "absent" so a corrupt or inaccessible database reads as
// "not logged in" instead of crashing, and undecryptable rows are removed on
// sight.
//
// [FlagStore] is the best-effort side: a plain JSON file holding advisory
// flags. Every failure is logged and swallowed.
package storage
