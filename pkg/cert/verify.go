package cert

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RenewBefore is how long before expiry LoadOrCreate replaces a
// certificate.
const RenewBefore = 7 * 24 * time.Hour

// Verification errors.
var (
	ErrCertExpired         = errors.New("certificate has expired")
	ErrCertNotYetValid     = errors.New("certificate is not yet valid")
	ErrFingerprintMismatch = errors.New("certificate fingerprint mismatch")
)

// leafOf returns the parsed leaf certificate of c.
func leafOf(c tls.Certificate) (*x509.Certificate, error) {
	if c.Leaf != nil {
		return c.Leaf, nil
	}
	if len(c.Certificate) == 0 {
		return nil, ErrInvalidCert
	}
	leaf, err := x509.ParseCertificate(c.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCert, err)
	}
	return leaf, nil
}

// Fingerprint returns the SHA-256 digest of the DER certificate as
// colon-separated upper-case hex.
func Fingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = strings.ToUpper(hex.EncodeToString([]byte{b}))
	}
	return strings.Join(parts, ":")
}

// NormalizeFingerprint accepts a fingerprint with or without colons, in
// either case, and returns the Fingerprint form.
func NormalizeFingerprint(s string) (string, error) {
	raw := strings.ToLower(strings.NewReplacer(":", "", " ", "").Replace(s))
	b, err := hex.DecodeString(raw)
	if err != nil || len(b) != sha256.Size {
		return "", fmt.Errorf("invalid SHA-256 fingerprint %q", s)
	}
	parts := make([]string, len(b))
	for i := range b {
		parts[i] = strings.ToUpper(raw[2*i : 2*i+2])
	}
	return strings.Join(parts, ":"), nil
}

// CheckValidity returns an error if cert is not valid at now.
func CheckValidity(cert *x509.Certificate, now time.Time) error {
	if now.Before(cert.NotBefore) {
		return ErrCertNotYetValid
	}
	if now.After(cert.NotAfter) {
		return ErrCertExpired
	}
	return nil
}

// VerifyFingerprint creates a tls.Config.VerifyPeerCertificate callback
// that accepts only a valid leaf certificate with the given fingerprint.
func VerifyFingerprint(fingerprint string) (func(rawCerts [][]byte, _ [][]*x509.Certificate) error, error) {
	want, err := NormalizeFingerprint(fingerprint)
	if err != nil {
		return nil, err
	}
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return fmt.Errorf("no peer certificate")
		}
		peer, err := x509.ParseCertificate(rawCerts[0])
		if err != nil {
			return fmt.Errorf("parse peer certificate: %w", err)
		}
		if got := Fingerprint(peer); got != want {
			return fmt.Errorf("%w: got %s", ErrFingerprintMismatch, got)
		}
		return CheckValidity(peer, time.Now())
	}, nil
}

// LoadOrCreate returns the stored certificate, or a new one from generate
// when the store is empty or the stored certificate expires within
// renewBefore. created reports whether generate was used.
func LoadOrCreate(store Store, renewBefore time.Duration, generate func() (tls.Certificate, error)) (c tls.Certificate, created bool, err error) {
	c, err = store.Load()
	switch {
	case err == nil:
		leaf, lerr := leafOf(c)
		if lerr == nil && CheckValidity(leaf, time.Now().Add(renewBefore)) == nil {
			c.Leaf = leaf
			return c, false, nil
		}
	case !errors.Is(err, ErrCertNotFound):
		return tls.Certificate{}, false, err
	}

	c, err = generate()
	if err != nil {
		return tls.Certificate{}, false, err
	}
	if c.Leaf, err = leafOf(c); err != nil {
		return tls.Certificate{}, false, err
	}
	if err := store.Save(c); err != nil {
		return tls.Certificate{}, false, fmt.Errorf("save certificate: %w", err)
	}
	return c, true, nil
}
