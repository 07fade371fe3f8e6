package cert

import (
	"crypto/tls"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// File names inside a FileStore directory.
const (
	certFile = "bridge.pem"
	keyFile  = "bridge.key"
)

// FileStore keeps a certificate as two PEM files in a directory. The key
// file is readable by the owner only.
type FileStore struct {
	mu      sync.Mutex
	baseDir string
}

// NewFileStore creates a store rooted at baseDir. The directory is created
// on the first Save.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

// CertPath returns the path of the certificate file.
func (s *FileStore) CertPath() string {
	return filepath.Join(s.baseDir, certFile)
}

// KeyPath returns the path of the private key file.
func (s *FileStore) KeyPath() string {
	return filepath.Join(s.baseDir, keyFile)
}

// Load reads the certificate and key files.
func (s *FileStore) Load() (tls.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	certPEM, err := os.ReadFile(s.CertPath())
	if errors.Is(err, fs.ErrNotExist) {
		return tls.Certificate{}, ErrCertNotFound
	}
	if err != nil {
		return tls.Certificate{}, err
	}
	keyPEM, err := os.ReadFile(s.KeyPath())
	if errors.Is(err, fs.ErrNotExist) {
		return tls.Certificate{}, ErrCertNotFound
	}
	if err != nil {
		return tls.Certificate{}, err
	}
	return DecodeKeyPair(certPEM, keyPEM)
}

// Save writes the key first, then the certificate, so a certificate file
// never refers to a missing key.
func (s *FileStore) Save(c tls.Certificate) error {
	certPEM, keyPEM, err := EncodeKeyPair(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.baseDir, 0700); err != nil {
		return err
	}
	if err := writeFile(s.KeyPath(), keyPEM, 0600); err != nil {
		return err
	}
	return writeFile(s.CertPath(), certPEM, 0644)
}

// Remove deletes both files.
func (s *FileStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range []string{s.CertPath(), s.KeyPath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
