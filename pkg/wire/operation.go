package wire

// Operation names one call of the spectrometer library carried by the bridge.
type Operation uint8

const (
	// OpHello negotiates the protocol version. Always the first request.
	OpHello Operation = 1

	OpInit                  Operation = 2
	OpDone                  Operation = 3
	OpDoneAll               Operation = 4
	OpActivate              Operation = 5
	OpGetList               Operation = 6
	OpGetParameter          Operation = 7
	OpAutoDark              Operation = 8
	OpOnceDark              Operation = 9
	OpAutoIntegration       Operation = 10
	OpSetIntegration        Operation = 11
	OpGetSaturation         Operation = 12
	OpSetAutoMaxIntegration Operation = 13
	OpGetSpectrum           Operation = 14
	OpLampCalibration       Operation = 15
	OpReadCalibration       Operation = 16
	OpSaveCalibration       Operation = 17
	OpSetZoomFactor         Operation = 18
	OpGetZoomFactor         Operation = 19
	OpMeasure               Operation = 20
	OpMeasureData           Operation = 21
	OpCheckError            Operation = 22
	OpShutter               Operation = 23
)

var operationNames = [...]string{
	OpHello:                 "Hello",
	OpInit:                  "Init",
	OpDone:                  "Done",
	OpDoneAll:               "DoneAll",
	OpActivate:              "Activate",
	OpGetList:               "GetList",
	OpGetParameter:          "GetParameter",
	OpAutoDark:              "AutoDark",
	OpOnceDark:              "OnceDark",
	OpAutoIntegration:       "AutoIntegration",
	OpSetIntegration:        "SetIntegration",
	OpGetSaturation:         "GetSaturation",
	OpSetAutoMaxIntegration: "SetAutoMaxIntegration",
	OpGetSpectrum:           "GetSpectrum",
	OpLampCalibration:       "LampCalibration",
	OpReadCalibration:       "ReadCalibration",
	OpSaveCalibration:       "SaveCalibration",
	OpSetZoomFactor:         "SetZoomFactor",
	OpGetZoomFactor:         "GetZoomFactor",
	OpMeasure:               "Measure",
	OpMeasureData:           "MeasureData",
	OpCheckError:            "CheckError",
	OpShutter:               "Shutter",
}

// String returns the operation name.
func (o Operation) String() string {
	if o.IsValid() {
		return operationNames[o]
	}
	return "Unknown"
}

// IsValid returns true if the operation is defined.
func (o Operation) IsValid() bool {
	return o >= OpHello && o <= OpShutter
}

// HasIndex returns true if the operation addresses a single device.
func (o Operation) HasIndex() bool {
	switch o {
	case OpHello, OpInit, OpDoneAll:
		return false
	}
	return o.IsValid()
}
