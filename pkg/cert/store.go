package cert

import (
	"crypto/tls"
	"errors"
)

// Store errors.
var (
	ErrCertNotFound = errors.New("certificate not found")
	ErrInvalidCert  = errors.New("invalid certificate")
)

// Store holds one TLS certificate with its private key.
// Implementations must be safe for concurrent access.
type Store interface {
	// Load returns the stored certificate with Leaf set.
	// Returns ErrCertNotFound if none has been saved.
	Load() (tls.Certificate, error)

	// Save replaces the stored certificate.
	Save(c tls.Certificate) error

	// Remove deletes the stored certificate. Removing an empty store
	// succeeds.
	Remove() error
}
