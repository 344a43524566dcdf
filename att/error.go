package att

import "github.com/currantlabs/gattc"

// NewErrorResponse returns an Error Response to the request op on handle h.
func NewErrorResponse(op byte, h uint16, s gattc.AttError) []byte {
	r := ErrorResponse(make([]byte, 5))
	r.SetAttributeOpcode()
	r.SetRequestOpcodeInError(op)
	r.SetAttributeInError(h)
	r.SetErrorCode(uint8(s))
	return r
}
