package calibration

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spvis/spvis-go/pkg/wire"
)

// Profile errors.
var (
	ErrEmpty          = errors.New("calibration profile is empty")
	ErrLengthMismatch = errors.New("wavelength and spectrum lengths differ")
	ErrNotAscending   = errors.New("wavelengths are not strictly ascending")
)

// Profile is a standard-lamp calibration: the lamp's spectral radiance at
// each wavelength. A Profile is never modified after it is built.
type Profile struct {
	// Serial is the spectrometer the profile was made for (may be empty).
	Serial string

	// UsageMode is the measurement geometry the profile applies to.
	UsageMode wire.UsageMode

	// Wavelengths in nm, strictly ascending.
	Wavelengths []float64

	// StandardLampSpectrum holds one radiance value per wavelength.
	StandardLampSpectrum []float64
}

// NewProfile builds a validated profile. The slices are copied.
func NewProfile(serial string, usage wire.UsageMode, wavelengths, spectrum []float64) (*Profile, error) {
	p := &Profile{
		Serial:               serial,
		UsageMode:            usage,
		Wavelengths:          append([]float64(nil), wavelengths...),
		StandardLampSpectrum: append([]float64(nil), spectrum...),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the profile's arrays.
func (p *Profile) Validate() error {
	if len(p.Wavelengths) == 0 {
		return ErrEmpty
	}
	if len(p.Wavelengths) != len(p.StandardLampSpectrum) {
		return fmt.Errorf("%w: %d wavelengths, %d values", ErrLengthMismatch,
			len(p.Wavelengths), len(p.StandardLampSpectrum))
	}
	for i := 1; i < len(p.Wavelengths); i++ {
		if p.Wavelengths[i] <= p.Wavelengths[i-1] {
			return fmt.Errorf("%w at line %d", ErrNotAscending, i+1)
		}
	}
	return nil
}

// Len returns the number of calibration points.
func (p *Profile) Len() int {
	return len(p.Wavelengths)
}

// Range returns the first and last wavelength.
func (p *Profile) Range() (float64, float64) {
	if len(p.Wavelengths) == 0 {
		return 0, 0
	}
	return p.Wavelengths[0], p.Wavelengths[len(p.Wavelengths)-1]
}

// Parse reads a calibration file.
func Parse(r io.Reader) (*Profile, error) {
	p := &Profile{}
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if err := p.parseComment(strings.TrimSpace(line[1:])); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			continue
		}

		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ' ' || r == '\t' || r == ',' || r == ';'
		})
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected wavelength and value", lineNo)
		}
		wl, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			// Vendor files start with a column header.
			if len(p.Wavelengths) == 0 {
				continue
			}
			return nil, fmt.Errorf("line %d: bad wavelength %q", lineNo, fields[0])
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad value %q", lineNo, fields[1])
		}
		p.Wavelengths = append(p.Wavelengths, wl)
		p.StandardLampSpectrum = append(p.StandardLampSpectrum, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Profile) parseComment(c string) error {
	key, value, ok := strings.Cut(c, ":")
	if !ok {
		return nil
	}
	value = strings.TrimSpace(value)
	switch strings.TrimSpace(strings.ToLower(key)) {
	case "serial":
		p.Serial = value
	case "usage":
		n, err := strconv.ParseUint(value, 10, 8)
		if err != nil || !wire.UsageMode(n).IsValid() {
			return fmt.Errorf("bad usage mode %q", value)
		}
		p.UsageMode = wire.UsageMode(n)
	}
	return nil
}

// Write writes the profile in calibration file format.
func Write(w io.Writer, p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# spvis calibration")
	if p.Serial != "" {
		fmt.Fprintf(bw, "# serial: %s\n", p.Serial)
	}
	fmt.Fprintf(bw, "# usage: %d\n", p.UsageMode)
	for i, wl := range p.Wavelengths {
		fmt.Fprintf(bw, "%s\t%s\n",
			strconv.FormatFloat(wl, 'f', -1, 64),
			strconv.FormatFloat(p.StandardLampSpectrum[i], 'g', -1, 64))
	}
	return bw.Flush()
}

// Load reads a calibration file from disk.
func Load(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Save writes a calibration file to disk, creating parent directories. The
// file is written next to its destination and renamed into place, so an
// existing calibration is never left half written.
func Save(path string, p *Profile) error {
	var buf bytes.Buffer
	if err := Write(&buf, p); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// FileName returns the vendor file name for a serial number.
func FileName(serial string) string {
	return "Sp_" + serial + ".txt"
}

// ResolvePath returns the file a save to path should write: path itself if
// it names a .txt file, otherwise FileName(serial) inside the directory path.
func ResolvePath(path, serial string) string {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		return path
	}
	return filepath.Join(path, FileName(serial))
}
