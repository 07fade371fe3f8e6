package discovery

import (
	"errors"
	"net"
	"strconv"
	"time"
)

const (
	// ServiceType is the DNS-SD service type of spectrometer bridges.
	ServiceType = "_spvis._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// DefaultPort is the default bridge port.
	DefaultPort = 7431
)

// TXT record keys.
const (
	TXTKeyVersion     = "v"    // Bridge protocol version
	TXTKeyDeviceCount = "dc"   // Number of attached spectrometers
	TXTKeySerials     = "sn"   // Serial numbers (comma-separated)
	TXTKeyHost        = "host" // Host name of the machine running the vendor library
)

const (
	// BrowseTimeout is the default timeout for FindAll.
	BrowseTimeout = 3 * time.Second

	// DefaultTTL is the default DNS record TTL.
	DefaultTTL = 120 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// MaxTXTRecordSize is the maximum total TXT record size.
	MaxTXTRecordSize = 400
)

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrMissingRequired     = errors.New("missing required field")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrTXTRecordTooLarge   = errors.New("TXT record exceeds 400 bytes")
	ErrNotFound            = errors.New("service not found")
)

// BridgeInfo is what a bridge advertises about itself.
type BridgeInfo struct {
	// Name is the DNS-SD instance name.
	Name string

	// Port is the bridge TCP port (default: DefaultPort).
	Port uint16

	// Version is the bridge protocol version.
	Version string

	// DeviceCount is the number of spectrometers found at the last Init.
	DeviceCount int

	// Serials lists the serial numbers of the attached spectrometers.
	Serials []string

	// Host names the machine running the vendor library (optional).
	Host string
}

// BridgeService is a bridge found by browsing.
type BridgeService struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string

	Version     string
	DeviceCount int
	Serials     []string
	BridgeHost  string
}

// Address returns a dialable host:port, preferring the first resolved
// address over the host name.
func (s *BridgeService) Address() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	return net.JoinHostPort(host, strconv.Itoa(int(s.Port)))
}

// HasSerial reports whether the bridge advertises the given serial number.
func (s *BridgeService) HasSerial(serial string) bool {
	for _, sn := range s.Serials {
		if sn == serial {
			return true
		}
	}
	return false
}
