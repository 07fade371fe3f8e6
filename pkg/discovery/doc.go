// Package discovery finds spectrometer bridges with mDNS/DNS-SD.
//
// A bridge advertises one _spvis._tcp instance in the local. domain. The
// instance name is the bridge name; TXT records describe what is attached:
//
//	v     bridge protocol version ("1.0")
//	dc    number of spectrometers found at the last Init
//	sn    serial numbers, comma-separated (optional)
//	host  host running the vendor library (optional)
//
// Bridges use an Advertiser and refresh the TXT records with Update after
// each Init. Clients use a Browser, or FindAll for a one-shot scan:
//
//	bridges, err := discovery.FindAll(ctx)
//	for _, b := range bridges {
//	    fmt.Println(b.InstanceName, b.Address(), b.Serials)
//	}
//
// An instance seen on several interfaces is reported once with the
// addresses of all of them.
package discovery
