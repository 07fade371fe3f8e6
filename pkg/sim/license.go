package sim

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// License is the content of a simulated license file. Empty fields match
// any device.
type License struct {
	DeviceType string
	Serial     string
}

// WriteLicense writes a license file unlocking the device.
func WriteLicense(path string, spec DeviceSpec) error {
	content := fmt.Sprintf("type=%s\nserial=%s\n", spec.DeviceType, spec.Serial)
	return os.WriteFile(path, []byte(content), 0600)
}

// ReadLicense parses a license file of key=value lines.
func ReadLicense(path string) (License, error) {
	f, err := os.Open(path)
	if err != nil {
		return License{}, err
	}
	defer f.Close()

	var lic License
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return License{}, fmt.Errorf("malformed license line %q", line)
		}
		switch strings.TrimSpace(key) {
		case "type":
			lic.DeviceType = strings.TrimSpace(value)
		case "serial":
			lic.Serial = strings.TrimSpace(value)
		}
	}
	return lic, sc.Err()
}
