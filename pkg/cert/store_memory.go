package cert

import (
	"crypto/tls"
	"sync"
)

// MemoryStore keeps a certificate in memory.
type MemoryStore struct {
	mu   sync.Mutex
	cert *tls.Certificate
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the saved certificate.
func (s *MemoryStore) Load() (tls.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cert == nil {
		return tls.Certificate{}, ErrCertNotFound
	}
	return *s.cert, nil
}

// Save replaces the saved certificate.
func (s *MemoryStore) Save(c tls.Certificate) error {
	if _, err := leafOf(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cert = &c
	return nil
}

// Remove forgets the certificate.
func (s *MemoryStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cert = nil
	return nil
}
