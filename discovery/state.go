package discovery

import "fmt"

// Phase is the observable phase of a service discovery.
type Phase int

// Discovery phases.
const (
	Inactive Phase = iota
	ServiceDiscoveryActive
	DiscoverServiceUUIDs
	CharacteristicDiscoveryActive
	DiscoverCharacteristicUUIDs
)

var phaseNames = [...]string{
	Inactive:                      "inactive",
	ServiceDiscoveryActive:        "service discovery",
	DiscoverServiceUUIDs:          "service UUID resolution",
	CharacteristicDiscoveryActive: "characteristic discovery",
	DiscoverCharacteristicUUIDs:   "characteristic UUID resolution",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// state is the tagged state of a session. Only the characteristic phases
// carry data: the index of the service being walked.
type state interface {
	phase() Phase
}

type inactive struct{}

type discoveringServices struct{}

type resolvingServiceUUIDs struct{}

type discoveringCharacteristics struct{ service int }

type resolvingCharacteristicUUIDs struct{ service int }

func (inactive) phase() Phase                     { return Inactive }
func (discoveringServices) phase() Phase          { return ServiceDiscoveryActive }
func (resolvingServiceUUIDs) phase() Phase        { return DiscoverServiceUUIDs }
func (discoveringCharacteristics) phase() Phase   { return CharacteristicDiscoveryActive }
func (resolvingCharacteristicUUIDs) phase() Phase { return DiscoverCharacteristicUUIDs }

// entity selects which cache and queue a UUID resolution works on.
type entity int

const (
	serviceEntity entity = iota
	characteristicEntity
)

func (e entity) String() string {
	if e == serviceEntity {
		return "service"
	}
	return "characteristic"
}

// request is the kind of the single request a session has outstanding.
type request int

const (
	reqNone request = iota
	reqServices
	reqCharacteristics
	reqValues
)

func (r request) String() string {
	switch r {
	case reqServices:
		return "primary services"
	case reqCharacteristics:
		return "characteristics"
	case reqValues:
		return "read by type"
	}
	return "none"
}

// Reason tells why a service discovery ended.
type Reason int

// Termination reasons.
const (
	// Completed means the end of the attribute table was reached.
	Completed Reason = iota

	// Aborted means Terminate was called.
	Aborted

	// TransportFailure means a continuation request was rejected by the transport.
	TransportFailure

	// PeerError means the peer answered with an error other than "attribute not found".
	PeerError

	// Disconnected means the link was torn down.
	Disconnected
)

var reasonNames = [...]string{
	Completed:        "completed",
	Aborted:          "aborted",
	TransportFailure: "transport failure",
	PeerError:        "peer error",
	Disconnected:     "disconnected",
}

func (r Reason) String() string {
	if r < 0 || int(r) >= len(reasonNames) {
		return fmt.Sprintf("Reason(%d)", int(r))
	}
	return reasonNames[r]
}

// Termination is passed to the termination callback of a service discovery.
type Termination struct {
	ConnHandle uint16
	Reason     Reason

	// Err is nil for Completed and Aborted.
	Err error
}
