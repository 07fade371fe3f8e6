package wire

import "testing"

func TestParseEnums(t *testing.T) {
	if m, err := ParseDarkMode("single"); err != nil || m != DarkModeSingle {
		t.Errorf("ParseDarkMode(single) = %v, %v", m, err)
	}
	if m, err := ParseDarkMode(DarkModeAuto.String()); err != nil || m != DarkModeAuto {
		t.Errorf("ParseDarkMode(AUTO_DARK) = %v, %v", m, err)
	}
	if _, err := ParseDarkMode("bright"); err == nil {
		t.Error("ParseDarkMode(bright) should fail")
	}

	if k, err := ParseParameterKind("pixels"); err != nil || k != ParameterPixelCount {
		t.Errorf("ParseParameterKind(pixels) = %v, %v", k, err)
	}

	for _, u := range []UsageMode{UsageModeRadiance, UsageModeLuminousFlux, UsageModeIlluminance} {
		got, err := ParseUsageMode(u.String())
		if err != nil || got != u {
			t.Errorf("ParseUsageMode(%s) = %v, %v", u, got, err)
		}
	}
	if u, err := ParseUsageMode("flux"); err != nil || u != UsageModeLuminousFlux {
		t.Errorf("ParseUsageMode(flux) = %v, %v", u, err)
	}
	if _, err := ParseUsageMode("sphere"); err == nil {
		t.Error("ParseUsageMode(sphere) should fail")
	}

	if m, err := ParseMetric("13"); err != nil || m != MetricPeakWavelength {
		t.Errorf("ParseMetric(13) = %v, %v", m, err)
	}
}
