// Package att implements a gattc.Transport over the Attribute Protocol: Read
// By Group Type, Read By Type, and Find Information for discovery, Read, Read
// Blob, and Write for value access, and Handle Value Notifications and
// Indications from the peer.
package att

import "github.com/pkg/errors"

var (
	// ErrClosed means the transport has been closed.
	ErrClosed = errors.New("transport closed")

	// ErrInvalidResponse means one or more of the response fields are invalid.
	ErrInvalidResponse = errors.New("invalid response")
)
