package discovery

import (
	"fmt"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeBridgeTXT creates the TXT records a bridge advertises.
func EncodeBridgeTXT(info *BridgeInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	txt[TXTKeyVersion] = info.Version
	txt[TXTKeyDeviceCount] = strconv.Itoa(info.DeviceCount)

	if len(info.Serials) > 0 {
		txt[TXTKeySerials] = strings.Join(info.Serials, ",")
	}
	if info.Host != "" {
		txt[TXTKeyHost] = info.Host
	}

	return txt
}

// DecodeBridgeTXT parses the TXT records of a bridge.
func DecodeBridgeTXT(txt TXTRecordMap) (*BridgeInfo, error) {
	info := &BridgeInfo{}

	var ok bool
	info.Version, ok = txt[TXTKeyVersion]
	if !ok || info.Version == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersion)
	}

	dcStr, ok := txt[TXTKeyDeviceCount]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyDeviceCount)
	}
	dc, err := strconv.Atoi(dcStr)
	if err != nil || dc < 0 {
		return nil, fmt.Errorf("%w: device count %q", ErrInvalidTXTRecord, dcStr)
	}
	info.DeviceCount = dc

	info.Serials = parseSerials(txt[TXTKeySerials])
	info.Host = txt[TXTKeyHost]

	return info, nil
}

func parseSerials(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	serials := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			serials = append(serials, p)
		}
	}
	return serials
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// TXTSize returns the wire size of the records: one length byte per string.
func TXTSize(txt TXTRecordMap) int {
	n := 0
	for k, v := range txt {
		n += 1 + len(k) + 1 + len(v)
	}
	return n
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
