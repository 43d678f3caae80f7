package version

import (
	"errors"
	"testing"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		input string
		major uint16
		minor uint16
	}{
		{"1.0", 1, 0},
		{"1.1", 1, 1},
		{"2.0", 2, 0},
		{"10.23", 10, 23},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if v.Major != tt.major {
				t.Errorf("Major = %d, want %d", v.Major, tt.major)
			}
			if v.Minor != tt.minor {
				t.Errorf("Minor = %d, want %d", v.Minor, tt.minor)
			}
			if v.String() != tt.input {
				t.Errorf("String() = %q, want %q", v.String(), tt.input)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"",
		"1",
		"abc",
		"1.0.0",
		"1.x",
		"-1.0",
		".1",
		"1.",
		"70000.0",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			if _, err := Parse(input); err == nil {
				t.Errorf("Parse(%q) should return error", input)
			}
		})
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse should panic on an invalid version")
		}
	}()
	MustParse("one.zero")
}

func TestCompatible(t *testing.T) {
	v10 := MustParse("1.0")
	if !v10.Compatible(MustParse("1.7")) {
		t.Error("1.0 should be compatible with 1.7")
	}
	if v10.Compatible(MustParse("2.0")) {
		t.Error("1.0 should not be compatible with 2.0")
	}
}

func TestSubprotocolRoundTrip(t *testing.T) {
	for _, major := range []uint16{1, 2, 65535} {
		token := Subprotocol(major)
		got, err := MajorFromSubprotocol(token)
		if err != nil {
			t.Fatalf("MajorFromSubprotocol(%q) error: %v", token, err)
		}
		if got != major {
			t.Errorf("MajorFromSubprotocol(%q) = %d, want %d", token, got, major)
		}
	}
	if got := Subprotocol(1); got != "pubsync.v1" {
		t.Errorf("Subprotocol(1) = %q, want %q", got, "pubsync.v1")
	}
}

func TestMajorFromSubprotocol_Invalid(t *testing.T) {
	for _, token := range []string{"", "mqtt", "pubsync.v", "pubsync.vX", "pubsync.v99999"} {
		if _, err := MajorFromSubprotocol(token); err == nil {
			t.Errorf("MajorFromSubprotocol(%q) should return error", token)
		}
	}
}

func TestSupportedSubprotocols(t *testing.T) {
	got := SupportedSubprotocols()
	if len(got) != 1 || got[0] != "pubsync.v1" {
		t.Errorf("SupportedSubprotocols() = %v, want [pubsync.v1]", got)
	}
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		name    string
		offered []string
		want    string
		wantErr bool
	}{
		{"exact", []string{"pubsync.v1"}, "pubsync.v1", false},
		{"skips foreign tokens", []string{"mqtt", "pubsync.v2", "pubsync.v1"}, "pubsync.v1", false},
		{"none compatible", []string{"pubsync.v2"}, "", true},
		{"nothing offered", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Negotiate(tt.offered)
			if tt.wantErr {
				if !errors.Is(err, ErrNoCommonVersion) {
					t.Errorf("Negotiate(%v) error = %v, want ErrNoCommonVersion", tt.offered, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Negotiate(%v) error: %v", tt.offered, err)
			}
			if got != tt.want {
				t.Errorf("Negotiate(%v) = %q, want %q", tt.offered, got, tt.want)
			}
		})
	}
}
