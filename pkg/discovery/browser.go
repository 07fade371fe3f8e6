package discovery

import (
	"context"
	"net"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout bounds FindAll when the context has no deadline.
	// Default: 3 seconds.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowseTimeout: BrowseTimeout,
	}
}

// Browser finds bridges over mDNS.
type Browser struct {
	config BrowserConfig

	mu      sync.Mutex
	stopped bool
	cancels []context.CancelFunc
}

// NewBrowser creates a new mDNS browser.
func NewBrowser(config BrowserConfig) *Browser {
	if config.BrowseTimeout <= 0 {
		config.BrowseTimeout = BrowseTimeout
	}
	return &Browser{config: config}
}

// Browse reports bridges as they appear. A bridge seen on several
// interfaces is reported once; later sightings only add addresses. The
// channel is closed when ctx ends or Stop is called.
func (b *Browser) Browse(ctx context.Context) (<-chan *BridgeService, error) {
	ctx, err := b.start(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan *BridgeService)
	go func() {
		defer close(out)
		b.run(ctx, newAggregator(), func(svc *BridgeService) bool {
			select {
			case out <- svc:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()
	return out, nil
}

// FindAll browses until ctx ends (or BrowseTimeout elapses when ctx has no
// deadline) and returns every bridge still present, sorted by instance name.
func (b *Browser) FindAll(ctx context.Context) ([]*BridgeService, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.BrowseTimeout)
		defer cancel()
	}

	ctx, err := b.start(ctx)
	if err != nil {
		return nil, err
	}
	agg := newAggregator()
	b.run(ctx, agg, nil)
	return agg.list(), nil
}

func (b *Browser) start(ctx context.Context) (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return nil, context.Canceled
	}
	ctx, cancel := context.WithCancel(ctx)
	b.cancels = append(b.cancels, cancel)
	return ctx, nil
}

// run feeds zeroconf results into agg until ctx ends. emit, if set, is
// called for each new instance and stops the run by returning false.
func (b *Browser) run(ctx context.Context, agg *aggregator, emit func(*BridgeService) bool) {
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.browserOptions()...)
	}()

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			svc, isNew := agg.add(fromZeroconf(entry))
			if isNew && emit != nil && !emit(svc) {
				return
			}

		case entry, ok := <-removed:
			if !ok {
				removed = nil
				continue
			}
			agg.remove(fromZeroconf(entry))

		case <-ctx.Done():
			return
		}
	}
}

// FindSerial browses until a bridge advertising serial appears.
func (b *Browser) FindSerial(ctx context.Context, serial string) (*BridgeService, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	found, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	for svc := range found {
		if svc.HasSerial(serial) {
			return svc, nil
		}
	}
	if err := ctx.Err(); err != nil && err != context.Canceled {
		return nil, err
	}
	return nil, ErrNotFound
}

// Stop stops all active browsing operations.
func (b *Browser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
}

// FindAll browses with the default configuration.
func FindAll(ctx context.Context) ([]*BridgeService, error) {
	return NewBrowser(DefaultBrowserConfig()).FindAll(ctx)
}

// browserOptions returns zeroconf client options based on config.
func (b *Browser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// ServiceEntry is a resolved mDNS service instance, independent of the
// zeroconf types.
type ServiceEntry struct {
	Instance string
	Host     string
	Port     uint16
	Text     []string
	Addrs    []string
}

// ToBridgeService converts the entry to a BridgeService.
func (e *ServiceEntry) ToBridgeService() (*BridgeService, error) {
	info, err := DecodeBridgeTXT(StringsToTXTRecords(e.Text))
	if err != nil {
		return nil, err
	}
	return &BridgeService{
		InstanceName: e.Instance,
		Host:         e.Host,
		Port:         e.Port,
		Addresses:    slices.Clone(e.Addrs),
		Version:      info.Version,
		DeviceCount:  info.DeviceCount,
		Serials:      info.Serials,
		BridgeHost:   info.Host,
	}, nil
}

func fromZeroconf(entry *zeroconf.ServiceEntry) *ServiceEntry {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return &ServiceEntry{
		Instance: entry.Instance,
		Host:     entry.HostName,
		Port:     uint16(entry.Port),
		Text:     entry.Text,
		Addrs:    addrs,
	}
}

// aggregator merges sightings of the same instance across interfaces.
type aggregator struct {
	services map[string]*BridgeService
}

func newAggregator() *aggregator {
	return &aggregator{services: make(map[string]*BridgeService)}
}

// add records an entry. It returns a copy of the service and whether the
// instance was new; entries with unusable TXT records are ignored.
func (a *aggregator) add(entry *ServiceEntry) (*BridgeService, bool) {
	svc, err := entry.ToBridgeService()
	if err != nil {
		return nil, false
	}

	if existing, found := a.services[svc.InstanceName]; found {
		existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
		existing.DeviceCount = svc.DeviceCount
		existing.Serials = svc.Serials
		return existing.clone(), false
	}

	a.services[svc.InstanceName] = svc
	return svc.clone(), true
}

// remove drops the entry's addresses and forgets the instance once none remain.
func (a *aggregator) remove(entry *ServiceEntry) {
	existing, found := a.services[entry.Instance]
	if !found {
		return
	}
	existing.Addresses = removeAddresses(existing.Addresses, entry.Addrs)
	if len(existing.Addresses) == 0 {
		delete(a.services, entry.Instance)
	}
}

// list returns copies of all known services sorted by instance name.
func (a *aggregator) list() []*BridgeService {
	out := make([]*BridgeService, 0, len(a.services))
	for _, svc := range a.services {
		out = append(out, svc.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].InstanceName < out[j].InstanceName
	})
	return out
}

func (s *BridgeService) clone() *BridgeService {
	c := *s
	c.Addresses = slices.Clone(s.Addresses)
	c.Serials = slices.Clone(s.Serials)
	return &c
}

// mergeAddresses adds new addresses to existing, avoiding duplicates.
func mergeAddresses(existing, new []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range new {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes gone from addresses.
func removeAddresses(addresses, gone []string) []string {
	toRemove := make(map[string]bool, len(gone))
	for _, addr := range gone {
		toRemove[addr] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
