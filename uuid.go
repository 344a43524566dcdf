package gattc

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// A UUID is a BLE UUID, stored most significant byte first.
// Short (16-bit) UUIDs are 2 bytes long, full UUIDs are 16 bytes long.
//
// The nil UUID has two roles: as a filter it is the wildcard that matches
// anything, and as the UUID of a discovered entity it marks a 128-bit UUID
// whose resolution is still pending (or was given up on).
type UUID []byte

// Attribute types used by the discovery procedures [Vol 3, Part G, 3].
var (
	PrimaryServiceUUID             = UUID16(0x2800)
	SecondaryServiceUUID           = UUID16(0x2801)
	IncludeUUID                    = UUID16(0x2802)
	CharacteristicUUID             = UUID16(0x2803)
	ClientCharacteristicConfigUUID = UUID16(0x2902)
)

// UUID16 converts a uint16 (such as 0x1800) to a UUID.
func UUID16(i uint16) UUID {
	return UUID{byte(i >> 8), byte(i)}
}

// UUID128 converts a 16-byte array, most significant byte first, to a UUID.
func UUID128(b [16]byte) UUID {
	u := make(UUID, 16)
	copy(u, b[:])
	return u
}

// Parse parses a UUID string, such as "1800", "0x2A19" or
// "34DA3AD1-7110-41A1-B1EF-4430F509CDE7".
func Parse(s string) (UUID, error) {
	s = strings.TrimSpace(s)
	short := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(short) == 4 {
		b, err := hex.DecodeString(short)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid short UUID %q", s)
		}
		return UUID(b), nil
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid UUID %q", s)
	}
	return UUID128(u), nil
}

// MustParse parses a UUID string like Parse, but panics in case of error.
func MustParse(s string) UUID {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

// FromWire converts a UUID in the little-endian byte order used on the air
// into a UUID. It returns nil if b is neither 2 nor 16 bytes long.
func FromWire(b []byte) UUID {
	switch len(b) {
	case 2, 16:
		return UUID(Reverse(b))
	}
	return nil
}

// Wire returns the little-endian encoding of u used on the air.
func (u UUID) Wire() []byte {
	return Reverse(u)
}

// Len returns the length of the UUID, in bytes.
func (u UUID) Len() int {
	return len(u)
}

// Resolved reports whether u holds a usable UUID.
func (u UUID) Resolved() bool {
	return len(u) == 2 || len(u) == 16
}

// IsShort reports whether u is a 16-bit UUID.
func (u UUID) IsShort() bool {
	return len(u) == 2
}

// Short returns the 16-bit value of a short UUID, or 0 for any other UUID.
func (u UUID) Short() uint16 {
	if !u.IsShort() {
		return 0
	}
	return uint16(u[0])<<8 | uint16(u[1])
}

// String returns "1800" style for short UUIDs, the canonical
// 8-4-4-4-12 form for 128-bit UUIDs, and "unknown" otherwise.
func (u UUID) String() string {
	switch len(u) {
	case 2:
		return fmt.Sprintf("%04x", u.Short())
	case 16:
		var a uuid.UUID
		copy(a[:], u)
		return a.String()
	}
	return "unknown"
}

// Equal returns a boolean reporting whether v represent the same UUID as u.
func (u UUID) Equal(v UUID) bool {
	return bytes.Equal(u, v)
}

// Matches reports whether u passes filter. A nil filter is a wildcard;
// otherwise only an equal, resolved UUID matches.
func Matches(filter, u UUID) bool {
	if len(filter) == 0 {
		return true
	}
	return u.Resolved() && filter.Equal(u)
}

// Reverse returns a reversed copy of b.
func Reverse(b []byte) []byte {
	l := len(b)
	if l == 2 {
		return []byte{b[1], b[0]}
	}
	r := make([]byte, l)
	for i := range b {
		r[l-1-i] = b[i]
	}
	return r
}

// IsDeclaration reports whether u is a service, include, or characteristic
// declaration type. Such attributes delimit services and characteristics.
func IsDeclaration(u UUID) bool {
	v := u.Short()
	return v >= 0x2800 && v <= 0x2803
}

// Name returns the name of well-known services, characteristics, and
// descriptors, or "" for anything else.
func Name(u UUID) string {
	return knownNames[u.Short()]
}

var knownNames = map[uint16]string{
	0x1800: "Generic Access",
	0x1801: "Generic Attribute",
	0x1802: "Immediate Alert",
	0x1803: "Link Loss",
	0x1804: "Tx Power",
	0x180a: "Device Information",
	0x180d: "Heart Rate",
	0x180f: "Battery Service",
	0x1812: "Human Interface Device",

	0x2800: "Primary Service",
	0x2801: "Secondary Service",
	0x2802: "Include",
	0x2803: "Characteristic",

	0x2900: "Characteristic Extended Properties",
	0x2901: "Characteristic User Description",
	0x2902: "Client Characteristic Configuration",
	0x2903: "Server Characteristic Configuration",
	0x2904: "Characteristic Presentation Format",

	0x2a00: "Device Name",
	0x2a01: "Appearance",
	0x2a04: "Peripheral Preferred Connection Parameters",
	0x2a05: "Service Changed",
	0x2a19: "Battery Level",
	0x2a24: "Model Number String",
	0x2a25: "Serial Number String",
	0x2a26: "Firmware Revision String",
	0x2a29: "Manufacturer Name String",
	0x2a37: "Heart Rate Measurement",
	0x2a38: "Body Sensor Location",
}
