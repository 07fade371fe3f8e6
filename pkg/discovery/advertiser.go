package discovery

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{
		Interface: "",
		TTL:       DefaultTTL,
	}
}

// Advertiser announces one bridge over mDNS.
type Advertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
	info   *BridgeInfo
}

// NewAdvertiser creates a new mDNS advertiser.
func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	return &Advertiser{config: config}
}

// getInterfaces returns the network interfaces to use for advertising.
// Returns nil to use all interfaces.
func (a *Advertiser) getInterfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}

	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Advertise starts advertising the bridge, replacing any earlier
// advertisement.
func (a *Advertiser) Advertise(info *BridgeInfo) error {
	if err := ValidateInstanceName(info.Name); err != nil {
		return err
	}
	txtRecords := EncodeBridgeTXT(info)
	if TXTSize(txtRecords) > MaxTXTRecordSize {
		return ErrTXTRecordTooLarge
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	port := int(info.Port)
	if port == 0 {
		port = DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		info.Name,
		ServiceType,
		Domain,
		port,
		TXTRecordsToStrings(txtRecords),
		a.getInterfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register bridge service: %w", err)
	}

	a.server = server
	copied := *info
	a.info = &copied
	return nil
}

// Update refreshes the TXT records of the running advertisement, e.g. after
// the device count changed.
func (a *Advertiser) Update(deviceCount int, serials []string) error {
	a.mu.Lock()
	if a.server == nil {
		a.mu.Unlock()
		return ErrNotFound
	}
	info := *a.info
	a.mu.Unlock()

	info.DeviceCount = deviceCount
	info.Serials = serials

	txtRecords := EncodeBridgeTXT(&info)
	if TXTSize(txtRecords) > MaxTXTRecordSize {
		return ErrTXTRecordTooLarge
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server == nil {
		return ErrNotFound
	}
	a.server.SetText(TXTRecordsToStrings(txtRecords))
	a.info = &info
	return nil
}

// Info returns the currently advertised bridge info, or nil.
func (a *Advertiser) Info() *BridgeInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.info == nil {
		return nil
	}
	info := *a.info
	return &info
}

// Stop withdraws the advertisement.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
	a.info = nil
}
