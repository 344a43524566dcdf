package gattc

import "github.com/pkg/errors"

// Errors returned by discovery requests. Transports return these (possibly
// wrapped with errors.Wrap); callers classify them with errors.Cause.
var (
	// ErrAlreadyActive means a discovery is already running on the connection.
	ErrAlreadyActive = errors.New("discovery already active")

	// ErrInvalidParameter means the transport rejected an argument, such as a handle range.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidConnection means the connection handle is not known to the transport.
	ErrInvalidConnection = errors.New("invalid connection handle")

	// ErrBusy means a client procedure is already outstanding on the connection,
	// or no resources are left to start another one.
	ErrBusy = errors.New("stack busy")

	// ErrInvalidState means the transport is in a state that can't accept the request.
	ErrInvalidState = errors.New("invalid state")

	// ErrUnspecified covers every other failure.
	ErrUnspecified = errors.New("unspecified error")
)

// MapError maps a transport error onto the discovery error taxonomy.
// Errors whose cause is already one of the sentinels are returned as is;
// anything else is wrapped as ErrUnspecified.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	switch errors.Cause(err) {
	case ErrAlreadyActive, ErrInvalidParameter, ErrInvalidConnection, ErrBusy, ErrInvalidState, ErrUnspecified:
		return err
	}
	return errors.Wrapf(ErrUnspecified, "%v", err)
}

// AttError is the status carried by an ATT Error Response [Vol 3, Part F, 3.4.1.1].
// A zero AttError (ErrSuccess) is the status of a successful response.
type AttError byte

// AttError codes [Vol 3, Part F, 3.4.1.1]
const (
	ErrSuccess           AttError = 0x00 // ErrSuccess means the operation is success.
	ErrInvalidHandle     AttError = 0x01 // ErrInvalidHandle means the attribute handle given was not valid on this server.
	ErrReadNotPerm       AttError = 0x02 // ErrReadNotPerm means the attribute cannot be read.
	ErrWriteNotPerm      AttError = 0x03 // ErrWriteNotPerm means the attribute cannot be written.
	ErrInvalidPDU        AttError = 0x04 // ErrInvalidPDU means the attribute PDU was invalid.
	ErrAuthentication    AttError = 0x05 // ErrAuthentication means the attribute requires authentication.
	ErrReqNotSupp        AttError = 0x06 // ErrReqNotSupp means the server does not support the request received.
	ErrInvalidOffset     AttError = 0x07 // ErrInvalidOffset means the offset was past the end of the attribute.
	ErrAuthorization     AttError = 0x08 // ErrAuthorization means the attribute requires authorization.
	ErrPrepQueueFull     AttError = 0x09 // ErrPrepQueueFull means too many prepare writes have been queued.
	ErrAttrNotFound      AttError = 0x0a // ErrAttrNotFound means no attribute found within the given handle range.
	ErrAttrNotLong       AttError = 0x0b // ErrAttrNotLong means the attribute cannot be read using Read Blob.
	ErrInsuffEncrKeySize AttError = 0x0c // ErrInsuffEncrKeySize means the encryption key size is insufficient.
	ErrInvalAttrValueLen AttError = 0x0d // ErrInvalAttrValueLen means the value length is invalid for the operation.
	ErrUnlikely          AttError = 0x0e // ErrUnlikely means the request encountered an unlikely error.
	ErrInsuffEnc         AttError = 0x0f // ErrInsuffEnc means the attribute requires encryption.
	ErrUnsuppGrpType     AttError = 0x10 // ErrUnsuppGrpType means the type is not a supported grouping attribute.
	ErrInsuffResources   AttError = 0x11 // ErrInsuffResources means insufficient resources to complete the request.
)

func (a AttError) Error() string {
	switch i := int(a); {
	case i <= 0x11:
		return errName[a]
	case i >= 0xE0:
		return "profile or service error"
	default:
		return "reserved error code"
	}
}

var errName = map[AttError]string{
	ErrSuccess:           "success",
	ErrInvalidHandle:     "invalid handle",
	ErrReadNotPerm:       "read not permitted",
	ErrWriteNotPerm:      "write not permitted",
	ErrInvalidPDU:        "invalid PDU",
	ErrAuthentication:    "insufficient authentication",
	ErrReqNotSupp:        "request not supported",
	ErrInvalidOffset:     "invalid offset",
	ErrAuthorization:     "insufficient authorization",
	ErrPrepQueueFull:     "prepare queue full",
	ErrAttrNotFound:      "attribute not found",
	ErrAttrNotLong:       "attribute not long",
	ErrInsuffEncrKeySize: "insufficient encryption key size",
	ErrInvalAttrValueLen: "invalid attribute value length",
	ErrUnlikely:          "unlikely error",
	ErrInsuffEnc:         "insufficient encryption",
	ErrUnsuppGrpType:     "unsupported group type",
	ErrInsuffResources:   "insufficient resources",
}
