package wire

import "fmt"

// DarkMode selects how the dark spectrum is handled during an acquisition.
type DarkMode uint8

const (
	// DarkModeRaw returns the raw detector response.
	DarkModeRaw DarkMode = 0

	// DarkModeAuto subtracts the automatically acquired dark spectrum.
	DarkModeAuto DarkMode = 1

	// DarkModeSingle subtracts the dark spectrum captured by OnceDark.
	DarkModeSingle DarkMode = 2
)

// String returns the dark mode name.
func (m DarkMode) String() string {
	switch m {
	case DarkModeRaw:
		return "RAW"
	case DarkModeAuto:
		return "AUTO_DARK"
	case DarkModeSingle:
		return "SINGLE_DARK"
	default:
		return fmt.Sprintf("DARK_MODE(%d)", uint8(m))
	}
}

// IsValid returns true for the three defined dark modes.
func (m DarkMode) IsValid() bool {
	return m <= DarkModeSingle
}

// Subtracts returns true if the mode subtracts a dark spectrum.
func (m DarkMode) Subtracts() bool {
	return m == DarkModeAuto || m == DarkModeSingle
}

// ParseDarkMode parses "raw", "auto" or "single" (or the String form).
func ParseDarkMode(s string) (DarkMode, error) {
	switch s {
	case "raw", "RAW", "0":
		return DarkModeRaw, nil
	case "auto", "AUTO_DARK", "1":
		return DarkModeAuto, nil
	case "single", "SINGLE_DARK", "2":
		return DarkModeSingle, nil
	}
	return 0, fmt.Errorf("unknown dark mode %q", s)
}

// ParameterKind selects a device parameter for GetParameters.
type ParameterKind uint8

const (
	// ParameterModel is the spectrometer model name.
	ParameterModel ParameterKind = 0

	// ParameterPixelCount is the total number of detector pixels.
	ParameterPixelCount ParameterKind = 1

	// ParameterStartWavelength is the first pixel's wavelength in nm.
	ParameterStartWavelength ParameterKind = 2

	// ParameterEndWavelength is the last pixel's wavelength in nm.
	ParameterEndWavelength ParameterKind = 3
)

// String returns the parameter name.
func (k ParameterKind) String() string {
	switch k {
	case ParameterModel:
		return "MODEL"
	case ParameterPixelCount:
		return "PIXEL_COUNT"
	case ParameterStartWavelength:
		return "START_WAVELENGTH"
	case ParameterEndWavelength:
		return "END_WAVELENGTH"
	default:
		return fmt.Sprintf("PARAMETER(%d)", uint8(k))
	}
}

// IsValid returns true for the defined parameter kinds.
func (k ParameterKind) IsValid() bool {
	return k <= ParameterEndWavelength
}

// ParseParameterKind parses a parameter name such as "pixels" or "model".
func ParseParameterKind(s string) (ParameterKind, error) {
	switch s {
	case "model", "MODEL", "0":
		return ParameterModel, nil
	case "pixels", "pixel_count", "PIXEL_COUNT", "1":
		return ParameterPixelCount, nil
	case "start", "start_wavelength", "START_WAVELENGTH", "2":
		return ParameterStartWavelength, nil
	case "end", "end_wavelength", "END_WAVELENGTH", "3":
		return ParameterEndWavelength, nil
	}
	return 0, fmt.Errorf("unknown parameter %q", s)
}

// UsageMode is the measurement geometry a calibration file was made for.
type UsageMode uint8

const (
	// UsageModeRadiance is a direct radiance (fibre or lens) setup.
	UsageModeRadiance UsageMode = 0

	// UsageModeLuminousFlux is an integrating sphere setup.
	UsageModeLuminousFlux UsageMode = 1

	// UsageModeIlluminance is a cosine corrector setup.
	UsageModeIlluminance UsageMode = 2
)

// String returns the usage mode name.
func (u UsageMode) String() string {
	switch u {
	case UsageModeRadiance:
		return "RADIANCE"
	case UsageModeLuminousFlux:
		return "LUMINOUS_FLUX"
	case UsageModeIlluminance:
		return "ILLUMINANCE"
	default:
		return fmt.Sprintf("USAGE_MODE(%d)", uint8(u))
	}
}

// IsValid returns true for the defined usage modes.
func (u UsageMode) IsValid() bool {
	return u <= UsageModeIlluminance
}

// ParseUsageMode parses "radiance", "flux" or "illuminance" (or the String form).
func ParseUsageMode(s string) (UsageMode, error) {
	switch s {
	case "radiance", "RADIANCE", "0":
		return UsageModeRadiance, nil
	case "flux", "luminous_flux", "LUMINOUS_FLUX", "1":
		return UsageModeLuminousFlux, nil
	case "illuminance", "ILLUMINANCE", "2":
		return UsageModeIlluminance, nil
	}
	return 0, fmt.Errorf("unknown usage mode %q", s)
}
