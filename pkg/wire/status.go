package wire

// Status is a spectrometer library return code. The numeric values are the
// ones the vendor library returns, so a code read from a log file or a bridge
// response maps directly onto the vendor documentation.
type Status int16

const (
	// StatusSuccess indicates the operation completed successfully.
	StatusSuccess Status = 0

	// StatusInvalidParameter indicates an unrecognized mode or parameter value.
	StatusInvalidParameter Status = -1

	// StatusInvalidActivation indicates the device has not been activated.
	StatusInvalidActivation Status = -2

	// StatusInvalidDeviceID indicates the license or calibration file belongs
	// to a different device.
	StatusInvalidDeviceID Status = -4

	// StatusInvalidDeviceType indicates the file is for another device type.
	StatusInvalidDeviceType Status = -7

	// StatusInvalidOpticalParameter indicates an optical setting (zoom factor)
	// outside the supported range.
	StatusInvalidOpticalParameter Status = -10

	// StatusInvalidIntegrationTime indicates an integration time outside the
	// device limits.
	StatusInvalidIntegrationTime Status = -11

	// StatusInvalidAveragingCount indicates an averaging count outside the
	// device limits.
	StatusInvalidAveragingCount Status = -12

	// StatusInvalidSaturation indicates a target saturation outside (0, 1].
	StatusInvalidSaturation Status = -13

	// StatusInvalidArrayLength indicates empty or mismatched input arrays.
	StatusInvalidArrayLength Status = -14

	// StatusIndexOutOfRange indicates the device index is not open.
	StatusIndexOutOfRange Status = -19

	// StatusAutoIntegrationFailed indicates no integration setting converged.
	StatusAutoIntegrationFailed Status = -22

	// StatusFileNotFound indicates a license or calibration file is missing.
	StatusFileNotFound Status = -24

	// StatusUnknown indicates any other failure.
	StatusUnknown Status = -99
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusInvalidParameter:
		return "INVALID_PARAMETER"
	case StatusInvalidActivation:
		return "INVALID_ACTIVATION"
	case StatusInvalidDeviceID:
		return "INVALID_DEVICE_ID"
	case StatusInvalidDeviceType:
		return "INVALID_DEVICE_TYPE"
	case StatusInvalidOpticalParameter:
		return "INVALID_OPTICAL_PARAMETER"
	case StatusInvalidIntegrationTime:
		return "INVALID_INTEGRATION_TIME"
	case StatusInvalidAveragingCount:
		return "INVALID_AVERAGING_COUNT"
	case StatusInvalidSaturation:
		return "INVALID_SATURATION"
	case StatusInvalidArrayLength:
		return "INVALID_ARRAY_LENGTH"
	case StatusIndexOutOfRange:
		return "INDEX_OUT_OF_RANGE"
	case StatusAutoIntegrationFailed:
		return "AUTO_INTEGRATION_FAILED"
	case StatusFileNotFound:
		return "FILE_NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}

// IsError returns true if the status indicates an error.
func (s Status) IsError() bool {
	return s != StatusSuccess
}

// StatusFromCode normalizes a raw library return code. Codes the library
// documents map to themselves; anything else negative becomes StatusUnknown.
// Non-negative codes are successes (Init returns the device count).
func StatusFromCode(code int) Status {
	if code >= 0 {
		return StatusSuccess
	}
	s := Status(code)
	if s != StatusUnknown && s.String() == "UNKNOWN" {
		return StatusUnknown
	}
	return s
}

// ParseStatus returns the status with the given name, as produced by String.
func ParseStatus(name string) (Status, bool) {
	for _, s := range allStatuses {
		if s.String() == name {
			return s, true
		}
	}
	return StatusUnknown, false
}

var allStatuses = []Status{
	StatusSuccess,
	StatusInvalidParameter,
	StatusInvalidActivation,
	StatusInvalidDeviceID,
	StatusInvalidDeviceType,
	StatusInvalidOpticalParameter,
	StatusInvalidIntegrationTime,
	StatusInvalidAveragingCount,
	StatusInvalidSaturation,
	StatusInvalidArrayLength,
	StatusIndexOutOfRange,
	StatusAutoIntegrationFailed,
	StatusFileNotFound,
	StatusUnknown,
}
