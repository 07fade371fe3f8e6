// Package cert keeps the TLS identity of a bridge.
//
// A bridge serves a self-signed certificate. Stored in a FileStore, the
// certificate survives restarts, so clients can pin its SHA-256 fingerprint
// instead of skipping verification:
//
//	store := cert.NewFileStore("/var/lib/spvis")
//	c, created, err := cert.LoadOrCreate(store, cert.RenewBefore, generate)
//	fmt.Println(cert.Fingerprint(c.Leaf))
//
// A client passes the fingerprint to VerifyFingerprint, which checks the
// presented leaf certificate in place of chain verification.
package cert
