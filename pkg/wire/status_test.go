package wire

import "testing"

func TestStatusFromCode(t *testing.T) {
	tests := []struct {
		code int
		want Status
	}{
		{0, StatusSuccess},
		{2, StatusSuccess},
		{-1, StatusInvalidParameter},
		{-2, StatusInvalidActivation},
		{-4, StatusInvalidDeviceID},
		{-7, StatusInvalidDeviceType},
		{-10, StatusInvalidOpticalParameter},
		{-11, StatusInvalidIntegrationTime},
		{-12, StatusInvalidAveragingCount},
		{-13, StatusInvalidSaturation},
		{-14, StatusInvalidArrayLength},
		{-19, StatusIndexOutOfRange},
		{-22, StatusAutoIntegrationFailed},
		{-24, StatusFileNotFound},
		{-99, StatusUnknown},
		{-3, StatusUnknown},
		{-500, StatusUnknown},
	}

	for _, tt := range tests {
		if got := StatusFromCode(tt.code); got != tt.want {
			t.Errorf("StatusFromCode(%d) = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range allStatuses {
		got, ok := ParseStatus(s.String())
		if !ok || got != s {
			t.Errorf("ParseStatus(%q) = %s, %v", s.String(), got, ok)
		}
	}
	if _, ok := ParseStatus("NOPE"); ok {
		t.Error("ParseStatus accepted an unknown name")
	}
}

func TestParseMetric(t *testing.T) {
	tests := []struct {
		in   string
		want Metric
	}{
		{"peak_wavelength", MetricPeakWavelength},
		{"13", MetricPeakWavelength},
		{"r9", MetricR1 + 8},
		{"802", MetricResponse},
		{"cie_x", MetricChromaticityX},
	}
	for _, tt := range tests {
		got, err := ParseMetric(tt.in)
		if err != nil {
			t.Errorf("ParseMetric(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMetric(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}

	if _, err := ParseMetric("25"); err == nil {
		t.Error("expected error for undefined metric number")
	}
	if !MetricResponse.IsArray() || MetricCCT.IsArray() {
		t.Error("IsArray classification wrong")
	}
}
