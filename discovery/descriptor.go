package discovery

import (
	"github.com/currantlabs/gattc"
	"github.com/pkg/errors"
)

// DescriptorTermination is passed to the termination callback of a
// descriptor discovery.
type DescriptorTermination struct {
	Characteristic gattc.DiscoveredCharacteristic

	// Err is nil if the descriptor range was walked to its end, or the
	// discovery was terminated.
	Err error
}

type descDiscovery struct {
	used      bool
	cancelled bool
	start     uint16 // first handle of the outstanding request
	char      gattc.DiscoveredCharacteristic
	onDesc    func(gattc.DiscoveredDescriptor)
	onTerm    func(DescriptorTermination)
}

func (dd *descDiscovery) is(c gattc.DiscoveredCharacteristic) bool {
	return dd.used && dd.char.ConnHandle == c.ConnHandle && dd.char.DeclHandle == c.DeclHandle
}

// DescriptorDiscovery finds the descriptors of discovered characteristics.
// A fixed number of discoveries can run at once, at most one per connection.
type DescriptorDiscovery struct {
	t     gattc.Transport
	slots []descDiscovery
}

func newDescriptorDiscovery(t gattc.Transport, slots int) *DescriptorDiscovery {
	return &DescriptorDiscovery{t: t, slots: make([]descDiscovery, slots)}
}

func (d *DescriptorDiscovery) byConn(conn uint16) *descDiscovery {
	for i := range d.slots {
		if d.slots[i].used && d.slots[i].char.ConnHandle == conn {
			return &d.slots[i]
		}
	}
	return nil
}

func (d *DescriptorDiscovery) byChar(c gattc.DiscoveredCharacteristic) *descDiscovery {
	for i := range d.slots {
		if d.slots[i].is(c) {
			return &d.slots[i]
		}
	}
	return nil
}

// Launch discovers the descriptors of c, reporting each to onDesc and the end
// of the walk to onTerm. If c has no room for descriptors, onTerm is called
// right away.
//
// It returns ErrBusy if a descriptor discovery is already running on the
// connection of c or all slots are taken.
func (d *DescriptorDiscovery) Launch(c gattc.DiscoveredCharacteristic, onDesc func(gattc.DiscoveredDescriptor), onTerm func(DescriptorTermination)) error {
	start := uint32(c.DeclHandle) + 2
	if start > uint32(c.LastHandle) {
		if onTerm != nil {
			onTerm(DescriptorTermination{Characteristic: c})
		}
		return nil
	}
	if d.byConn(c.ConnHandle) != nil {
		return errors.Wrapf(gattc.ErrBusy, "descriptor discovery running on connection 0x%04X", c.ConnHandle)
	}
	var slot *descDiscovery
	for i := range d.slots {
		if !d.slots[i].used {
			slot = &d.slots[i]
			break
		}
	}
	if slot == nil {
		return errors.Wrap(gattc.ErrBusy, "no free descriptor discovery slot")
	}

	r := gattc.HandleRange{Start: uint16(start), End: c.LastHandle}
	if err := gattc.MapError(d.t.DiscoverDescriptors(c.ConnHandle, r)); err != nil {
		return errors.Wrap(err, "discover descriptors")
	}
	*slot = descDiscovery{used: true, start: r.Start, char: c, onDesc: onDesc, onTerm: onTerm}
	logger.Debug("launch descriptor discovery", "conn", c.ConnHandle, "range", r.String())
	return nil
}

// IsActive reports whether the descriptors of c are being discovered.
// A discovery stops being active as soon as it is terminated.
func (d *DescriptorDiscovery) IsActive(c gattc.DiscoveredCharacteristic) bool {
	dd := d.byChar(c)
	return dd != nil && !dd.cancelled
}

// Terminate ends the discovery of the descriptors of c. The termination
// callback fires once, right away; the descriptors still in flight are not
// reported.
func (d *DescriptorDiscovery) Terminate(c gattc.DiscoveredCharacteristic) {
	dd := d.byChar(c)
	if dd == nil || dd.cancelled {
		return
	}
	dd.cancelled = true
	if dd.onTerm != nil {
		dd.onTerm(DescriptorTermination{Characteristic: dd.char})
	}
}

func (d *DescriptorDiscovery) handle(ev gattc.DescriptorsDiscovered) {
	dd := d.byConn(ev.Conn)
	if dd == nil {
		logger.Debug("no descriptor discovery", "conn", ev.Conn)
		return
	}
	switch {
	case dd.cancelled:
		d.finish(dd, nil)
		return
	case ev.Status == gattc.ErrAttrNotFound:
		d.finish(dd, nil)
		return
	case ev.Status != gattc.ErrSuccess:
		d.finish(dd, ev.Status)
		return
	case len(ev.Descriptors) == 0:
		d.finish(dd, nil)
		return
	}

	end := dd.char.LastHandle
	var next uint32
	for _, desc := range ev.Descriptors {
		if desc.Handle < dd.start {
			logger.Warn("descriptor behind request", "conn", ev.Conn, "start", dd.start, "handle", desc.Handle)
			d.finish(dd, gattc.ErrInvalidPDU)
			return
		}
		if gattc.IsDeclaration(desc.UUID) || desc.Handle > end {
			d.finish(dd, nil)
			return
		}
		desc.ConnHandle = ev.Conn
		if !dd.cancelled && dd.onDesc != nil {
			dd.onDesc(desc)
		}
		next = uint32(desc.Handle) + 1
	}
	if dd.cancelled || next > uint32(end) {
		d.finish(dd, nil)
		return
	}

	r := gattc.HandleRange{Start: uint16(next), End: end}
	dd.start = r.Start
	if err := gattc.MapError(d.t.DiscoverDescriptors(ev.Conn, r)); err != nil {
		d.finish(dd, err)
	}
}

// disconnected ends the discovery running on conn, if any.
func (d *DescriptorDiscovery) disconnected(conn uint16) {
	if dd := d.byConn(conn); dd != nil {
		d.finish(dd, errors.Wrapf(gattc.ErrInvalidConnection, "connection 0x%04X disconnected", conn))
	}
}

// finish frees the slot and fires the termination callback, unless the
// discovery was terminated, in which case it already fired.
func (d *DescriptorDiscovery) finish(dd *descDiscovery, err error) {
	done := *dd
	*dd = descDiscovery{}
	logger.Debug("descriptor discovery finished", "conn", done.char.ConnHandle, "err", err)
	if !done.cancelled && done.onTerm != nil {
		done.onTerm(DescriptorTermination{Characteristic: done.char, Err: err})
	}
}
