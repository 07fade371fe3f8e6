package version

import "testing"

func TestParse(t *testing.T) {
	valid := map[string]ProtocolVersion{
		"1.0":   {1, 0},
		"1.7":   {1, 7},
		"10.23": {10, 23},
	}
	for in, want := range valid {
		got, err := Parse(in)
		if err != nil {
			t.Errorf("Parse(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("Parse(%q) = %+v, want %+v", in, got, want)
		}
		if got.String() != in {
			t.Errorf("Parse(%q).String() = %q", in, got.String())
		}
	}

	for _, in := range []string{"", "1", ".1", "1.", "1.0.0", "1.x", "-1.0", "70000.0"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) should fail", in)
		}
	}
}

func TestCheckPeer(t *testing.T) {
	tests := []struct {
		peer string
		ok   bool
	}{
		{Current, true},
		{"1.7", true},
		{"2.0", false},
		{"0.9", false},
		{"one", false},
	}
	for _, tt := range tests {
		err := CheckPeer(tt.peer)
		if (err == nil) != tt.ok {
			t.Errorf("CheckPeer(%q) = %v, want ok %v", tt.peer, err, tt.ok)
		}
	}
}

func TestALPN(t *testing.T) {
	protos := SupportedALPNProtocols()
	if len(protos) != 1 || protos[0] != "spvis/1" {
		t.Fatalf("SupportedALPNProtocols() = %v, want [spvis/1]", protos)
	}

	for _, major := range []uint16{1, 2, 65535} {
		got, err := MajorFromALPN(ALPNProtocol(major))
		if err != nil || got != major {
			t.Errorf("MajorFromALPN(ALPNProtocol(%d)) = %d, %v", major, got, err)
		}
	}

	for _, bad := range []string{"", "http/1.1", "spvis/", "spvis-1", "spvis/abc", "spvis/70000"} {
		if _, err := MajorFromALPN(bad); err == nil {
			t.Errorf("MajorFromALPN(%q) should fail", bad)
		}
	}
}
