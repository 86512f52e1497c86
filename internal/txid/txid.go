// Package txid mints transaction identifiers used to correlate the
// zerolog lines and audit log entry produced by a single transaction.
package txid

import "github.com/google/uuid"

// New returns a fresh transaction id.
func New() string {
	return uuid.NewString()
}
