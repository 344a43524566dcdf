package gattc

// Attribute handle bounds used by discovery [Vol 3, Part F, 3.2.2].
const (
	StartHandle uint16 = 0x0001 // StartHandle is where a fresh service scan begins.
	EndHandle   uint16 = 0xFFFF // EndHandle is the end-of-table sentinel.
)

// DefaultMTU 23 defines the default MTU of ATT protocol.
const DefaultMTU = 23

// MaxMTU is maximum of ATT_MTU, which is 512 bytes of value length and 3 bytes of header.
// The maximum length of an attribute value shall be 512 octets [Vol 3, Part F, 3.2.9]
const MaxMTU = 512 + 3

// Bits of a Client Characteristic Configuration value [Vol 3, Part G, 3.3.3.3].
const (
	CCCNotify   uint16 = 0x0001
	CCCIndicate uint16 = 0x0002
)
