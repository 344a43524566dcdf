package discovery

import (
	"github.com/currantlabs/gattc"
	"github.com/pkg/errors"
)

// Default table sizes.
const (
	DefaultMaxServices              = 4
	DefaultMaxCharacteristics       = 4
	DefaultMaxSessions              = 1
	DefaultMaxDescriptorDiscoveries = 3
)

// Client runs service and descriptor discoveries, and reads and writes
// attribute values, over a single Transport, and dispatches the transport's
// events to them.
//
// A Client is not safe for concurrent use. All of its methods must be called
// from the goroutine that delivers the transport's events.
type Client struct {
	t gattc.Transport

	maxServices     int
	maxChars        int
	maxSessions     int
	maxDescriptions int

	services    *ServiceDiscovery
	descriptors *DescriptorDiscovery
	access      *access
}

// An Option is a configuration function, which configures the client.
type Option func(*Client) error

// OptCapacity sets how many services and characteristics of one response
// page are kept.
func OptCapacity(services, characteristics int) Option {
	return func(c *Client) error {
		if services < 1 || characteristics < 1 {
			return errors.Wrapf(gattc.ErrInvalidParameter, "capacity %d/%d", services, characteristics)
		}
		c.maxServices, c.maxChars = services, characteristics
		return nil
	}
}

// OptMaxSessions sets how many connections can run a service discovery at once.
func OptMaxSessions(n int) Option {
	return func(c *Client) error {
		if n < 1 {
			return errors.Wrapf(gattc.ErrInvalidParameter, "max sessions %d", n)
		}
		c.maxSessions = n
		return nil
	}
}

// OptMaxDescriptorDiscoveries sets how many descriptor discoveries can run at once.
func OptMaxDescriptorDiscoveries(n int) Option {
	return func(c *Client) error {
		if n < 1 {
			return errors.Wrapf(gattc.ErrInvalidParameter, "max descriptor discoveries %d", n)
		}
		c.maxDescriptions = n
		return nil
	}
}

// NewClient returns a Client issuing its requests through t.
func NewClient(t gattc.Transport, opts ...Option) (*Client, error) {
	c := &Client{
		t:               t,
		maxServices:     DefaultMaxServices,
		maxChars:        DefaultMaxCharacteristics,
		maxSessions:     DefaultMaxSessions,
		maxDescriptions: DefaultMaxDescriptorDiscoveries,
	}
	if err := c.Option(opts...); err != nil {
		return nil, errors.Wrap(err, "can't set options")
	}
	c.services = newServiceDiscovery(t, c.maxSessions, c.maxServices, c.maxChars)
	c.descriptors = newDescriptorDiscovery(t, c.maxDescriptions)
	c.access = newAccess(t)
	return c, nil
}

// Option sets the options specified.
func (c *Client) Option(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// LaunchServiceDiscovery starts a service discovery on conn. See ServiceDiscovery.Launch.
func (c *Client) LaunchServiceDiscovery(conn uint16, p Params) error {
	return c.services.Launch(conn, p)
}

// IsServiceDiscoveryActive reports whether a service discovery is running on conn.
func (c *Client) IsServiceDiscoveryActive(conn uint16) bool {
	return c.services.IsActive(conn)
}

// ServiceDiscoveryPhase returns the phase of the service discovery on conn.
func (c *Client) ServiceDiscoveryPhase(conn uint16) Phase {
	return c.services.Phase(conn)
}

// TerminateServiceDiscovery aborts the service discovery on conn.
func (c *Client) TerminateServiceDiscovery(conn uint16) {
	c.services.Terminate(conn)
}

// TerminateCharacteristicDiscovery skips the rest of the characteristics of
// the service being walked on conn. See ServiceDiscovery.TerminateCharacteristicDiscovery.
func (c *Client) TerminateCharacteristicDiscovery(conn uint16) {
	c.services.TerminateCharacteristicDiscovery(conn)
}

// DiscoverDescriptors starts discovering the descriptors of ch. See DescriptorDiscovery.Launch.
func (c *Client) DiscoverDescriptors(ch gattc.DiscoveredCharacteristic, onDesc func(gattc.DiscoveredDescriptor), onTerm func(DescriptorTermination)) error {
	return c.descriptors.Launch(ch, onDesc, onTerm)
}

// IsDescriptorDiscoveryActive reports whether the descriptors of ch are being discovered.
func (c *Client) IsDescriptorDiscoveryActive(ch gattc.DiscoveredCharacteristic) bool {
	return c.descriptors.IsActive(ch)
}

// TerminateDescriptorDiscovery ends the descriptor discovery of ch.
func (c *Client) TerminateDescriptorDiscovery(ch gattc.DiscoveredCharacteristic) {
	c.descriptors.Terminate(ch)
}

// Read reads the value of the attribute at handle, from offset on, and
// passes the response to fn. A single read or write can be pending per
// connection; ErrBusy is returned otherwise.
func (c *Client) Read(conn, handle, offset uint16, fn func(gattc.AttributeRead)) error {
	return c.access.read(conn, handle, offset, fn)
}

// Write writes v to the attribute at handle and passes the response to fn.
// A WriteCommand is not answered by the peer: fn is called as soon as the
// transport accepted it.
func (c *Client) Write(op gattc.WriteOp, conn, handle uint16, v []byte, fn func(gattc.AttributeWritten)) error {
	return c.access.write(op, conn, handle, v, fn)
}

// Subscribe enables the notifications, or the indications if ind is set, of
// ch by writing its CCCD, and passes the values pushed from then on to h.
// The response to the CCCD write goes to fn. If the write fails, the previous
// subscription is restored.
func (c *Client) Subscribe(ch *gattc.Characteristic, ind bool, h func(gattc.ValueNotified), fn func(gattc.AttributeWritten)) error {
	if h == nil {
		return errors.Wrap(gattc.ErrInvalidParameter, "nil handler")
	}
	return c.access.subscribe(ch, cccFlag(ind), h, fn)
}

// Unsubscribe disables the notifications, or the indications if ind is set, of ch.
func (c *Client) Unsubscribe(ch *gattc.Characteristic, ind bool, fn func(gattc.AttributeWritten)) error {
	return c.access.subscribe(ch, cccFlag(ind), nil, fn)
}

func cccFlag(ind bool) uint16 {
	if ind {
		return gattc.CCCIndicate
	}
	return gattc.CCCNotify
}

// OnValue sets the handler of the notifications and indications nobody
// subscribed to.
func (c *Client) OnValue(h func(gattc.ValueNotified)) {
	c.access.onValue = h
}

// Handle dispatches a transport event to the discovery or the operation it
// belongs to.
func (c *Client) Handle(ev gattc.Event) {
	switch ev := ev.(type) {
	case gattc.DescriptorsDiscovered:
		c.descriptors.handle(ev)
	case gattc.AttributeRead:
		c.access.handleRead(ev)
	case gattc.AttributeWritten:
		c.access.handleWritten(ev)
	case gattc.ValueNotified:
		c.access.handleValue(ev)
	case gattc.Disconnected:
		c.services.Handle(ev)
		c.descriptors.disconnected(ev.Conn)
		c.access.disconnected(ev.Conn)
	default:
		c.services.Handle(ev)
	}
}
