// Package version provides wire protocol version parsing, comparison and
// websocket subprotocol helpers.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Current is the wire protocol version implemented by this library.
const Current = "1.0"

// subprotocolPrefix precedes the major version in a subprotocol token.
const subprotocolPrefix = "pubsync.v"

// ErrNoCommonVersion is returned when negotiation finds no shared major
// version.
var ErrNoCommonVersion = errors.New("no common protocol version")

// ProtocolVersion represents a parsed "major.minor" protocol version.
type ProtocolVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string.
func Parse(s string) (ProtocolVersion, error) {
	major, minor, ok := strings.Cut(s, ".")
	if !ok || strings.Contains(minor, ".") {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	ma, err := strconv.ParseUint(major, 10, 16)
	if err != nil {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	mi, err := strconv.ParseUint(minor, 10, 16)
	if err != nil {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return ProtocolVersion{Major: uint16(ma), Minor: uint16(mi)}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) ProtocolVersion {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as "major.minor".
func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major version.
func (v ProtocolVersion) Compatible(other ProtocolVersion) bool {
	return v.Major == other.Major
}

// Subprotocol returns the websocket subprotocol token for a major version:
// "pubsync.vN".
func Subprotocol(major uint16) string {
	return subprotocolPrefix + strconv.FormatUint(uint64(major), 10)
}

// MajorFromSubprotocol extracts the major version from a subprotocol token.
func MajorFromSubprotocol(token string) (uint16, error) {
	suffix, ok := strings.CutPrefix(token, subprotocolPrefix)
	if !ok {
		return 0, fmt.Errorf("not a pubsync subprotocol: %q", token)
	}
	if suffix == "" {
		return 0, fmt.Errorf("empty major version in subprotocol: %q", token)
	}

	major, err := strconv.ParseUint(suffix, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid major version in subprotocol %q: %w", token, err)
	}
	return uint16(major), nil
}

// SupportedSubprotocols returns the subprotocol tokens for all supported
// major versions, preferred first. Currently only major version 1.
func SupportedSubprotocols() []string {
	return []string{Subprotocol(MustParse(Current).Major)}
}

// Negotiate returns the first offered token whose major version is
// compatible with Current. Tokens that do not parse are skipped.
func Negotiate(offered []string) (string, error) {
	current := MustParse(Current)
	for _, token := range offered {
		major, err := MajorFromSubprotocol(token)
		if err != nil {
			continue
		}
		if current.Compatible(ProtocolVersion{Major: major}) {
			return token, nil
		}
	}
	return "", fmt.Errorf("%w: offered %v, want major %d", ErrNoCommonVersion, offered, current.Major)
}
