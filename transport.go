package gattc

// Transport issues GATT client requests on behalf of the discovery engine
// and the client. Requests are fire-and-forget: a nil error means the request was
// accepted and its response will later be delivered as an Event. At most one
// request is outstanding per connection.
//
// Errors should be one of the sentinels in this package (ErrInvalidParameter,
// ErrInvalidConnection, ErrBusy, ErrInvalidState, ErrUnspecified), possibly
// wrapped.
type Transport interface {
	// DiscoverPrimaryServices requests the primary services starting at
	// start and running to the end of the table [Vol 3, Part G, 4.4.1].
	// The response is a ServicesDiscovered event.
	DiscoverPrimaryServices(conn uint16, start uint16) error

	// DiscoverCharacteristics requests the characteristic declarations
	// within r [Vol 3, Part G, 4.6.1]. The response is a
	// CharacteristicsDiscovered event.
	DiscoverCharacteristics(conn uint16, r HandleRange) error

	// ReadUsingUUID reads the values of attributes of type typ within r
	// [Vol 3, Part G, 4.8.2]. The response is a ValuesRead event.
	ReadUsingUUID(conn uint16, typ UUID, r HandleRange) error

	// DiscoverDescriptors requests the descriptors within r
	// [Vol 3, Part G, 4.7.1]. The response is a DescriptorsDiscovered event.
	DiscoverDescriptors(conn uint16, r HandleRange) error

	// Read reads the value of the attribute at handle from offset on
	// [Vol 3, Part G, 4.8.1, 4.8.3]. The response is an AttributeRead event.
	Read(conn uint16, handle, offset uint16) error

	// Write writes value to the attribute at handle [Vol 3, Part G, 4.9].
	// A WriteRequest is answered by an AttributeWritten event. A
	// WriteCommand is never answered, and may be issued while a request is
	// outstanding.
	Write(conn uint16, op WriteOp, handle uint16, value []byte) error
}

// WriteOp selects how a value is written.
type WriteOp int

// Write operations.
const (
	WriteRequest WriteOp = iota // acknowledged by the peer
	WriteCommand                // not acknowledged
)

func (op WriteOp) String() string {
	if op == WriteCommand {
		return "write command"
	}
	return "write request"
}

// An Event is a response, or a link event, delivered by a Transport.
type Event interface {
	ConnHandle() uint16
}

// ServicesDiscovered is the response to DiscoverPrimaryServices.
// A service whose 128-bit UUID could not be resolved by the transport is
// reported with a nil UUID.
type ServicesDiscovered struct {
	Conn     uint16
	Status   AttError
	Services []DiscoveredService
}

// CharacteristicsDiscovered is the response to DiscoverCharacteristics.
// ConnHandle and LastHandle of the characteristics are not filled in by the
// transport. A nil UUID marks an unresolved 128-bit UUID.
type CharacteristicsDiscovered struct {
	Conn            uint16
	Status          AttError
	Characteristics []DiscoveredCharacteristic
}

// ValuesRead is the response to ReadUsingUUID.
type ValuesRead struct {
	Conn   uint16
	Status AttError
	Values []AttributeValue
}

// DescriptorsDiscovered is the response to DiscoverDescriptors.
type DescriptorsDiscovered struct {
	Conn        uint16
	Status      AttError
	Descriptors []DiscoveredDescriptor
}

// AttributeRead is the response to Read.
type AttributeRead struct {
	Conn   uint16
	Handle uint16
	Offset uint16
	Status AttError
	Value  []byte
}

// AttributeWritten is the response to a WriteRequest.
type AttributeWritten struct {
	Conn   uint16
	Handle uint16
	Status AttError
}

// ValueNotified is a notification, or an indication, of a characteristic
// value sent by the peer. Indications are confirmed by the transport.
type ValueNotified struct {
	Conn       uint16
	Handle     uint16
	Indication bool
	Value      []byte
}

// Disconnected reports that the link was torn down. Outstanding requests on
// the connection will never be answered.
type Disconnected struct {
	Conn uint16
}

// ConnHandle implements Event.
func (e ServicesDiscovered) ConnHandle() uint16 { return e.Conn }

// ConnHandle implements Event.
func (e CharacteristicsDiscovered) ConnHandle() uint16 { return e.Conn }

// ConnHandle implements Event.
func (e ValuesRead) ConnHandle() uint16 { return e.Conn }

// ConnHandle implements Event.
func (e DescriptorsDiscovered) ConnHandle() uint16 { return e.Conn }

// ConnHandle implements Event.
func (e AttributeRead) ConnHandle() uint16 { return e.Conn }

// ConnHandle implements Event.
func (e AttributeWritten) ConnHandle() uint16 { return e.Conn }

// ConnHandle implements Event.
func (e ValueNotified) ConnHandle() uint16 { return e.Conn }

// ConnHandle implements Event.
func (e Disconnected) ConnHandle() uint16 { return e.Conn }

// An EventHandler consumes the events of a Transport, one at a time.
type EventHandler interface {
	Handle(ev Event)
}

// EventHandlerFunc is an adapter to allow the use of ordinary functions as EventHandler.
type EventHandlerFunc func(ev Event)

// Handle calls f(ev).
func (f EventHandlerFunc) Handle(ev Event) { f(ev) }
