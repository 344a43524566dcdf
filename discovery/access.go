package discovery

import (
	"encoding/binary"

	"github.com/currantlabs/gattc"
	"github.com/pkg/errors"
)

// op is a read or write waiting for its response.
type op struct {
	handle  uint16
	onRead  func(gattc.AttributeRead)
	onWrite func(gattc.AttributeWritten)

	// undo restores the subscription changed by a CCCD write that failed.
	undo func()
}

type subKey struct {
	conn   uint16
	handle uint16 // value handle
}

type sub struct {
	cccd     uint16
	ccc      uint16
	onNotify func(gattc.ValueNotified)
	onInd    func(gattc.ValueNotified)
}

// access reads and writes attribute values, one operation per connection,
// and routes the values pushed by peers to their subscribers.
type access struct {
	t       gattc.Transport
	pending map[uint16]*op
	subs    map[subKey]*sub
	onValue func(gattc.ValueNotified)
}

func newAccess(t gattc.Transport) *access {
	return &access{
		t:       t,
		pending: make(map[uint16]*op),
		subs:    make(map[subKey]*sub),
	}
}

func (a *access) issue(conn uint16, o *op, fn func() error) error {
	if _, ok := a.pending[conn]; ok {
		return errors.Wrapf(gattc.ErrBusy, "operation pending on connection 0x%04X", conn)
	}
	if err := gattc.MapError(fn()); err != nil {
		return err
	}
	a.pending[conn] = o
	return nil
}

func (a *access) read(conn, handle, offset uint16, fn func(gattc.AttributeRead)) error {
	err := a.issue(conn, &op{handle: handle, onRead: fn}, func() error {
		return a.t.Read(conn, handle, offset)
	})
	return errors.Wrapf(err, "read 0x%04X", handle)
}

func (a *access) write(wop gattc.WriteOp, conn, handle uint16, v []byte, fn func(gattc.AttributeWritten)) error {
	if wop == gattc.WriteCommand {
		if err := gattc.MapError(a.t.Write(conn, wop, handle, v)); err != nil {
			return errors.Wrapf(err, "write command 0x%04X", handle)
		}
		if fn != nil {
			fn(gattc.AttributeWritten{Conn: conn, Handle: handle})
		}
		return nil
	}
	err := a.issue(conn, &op{handle: handle, onWrite: fn}, func() error {
		return a.t.Write(conn, wop, handle, v)
	})
	return errors.Wrapf(err, "write 0x%04X", handle)
}

// subscribe sets or clears flag in the CCCD of c, and installs h as the
// handler of the values pushed with it. A nil h clears the flag. The CCCD is
// only written, and fn only called, if the flag changes.
func (a *access) subscribe(c *gattc.Characteristic, flag uint16, h func(gattc.ValueNotified), fn func(gattc.AttributeWritten)) error {
	if c == nil || c.CCCD == nil {
		return errors.Wrap(gattc.ErrInvalidParameter, "characteristic has no CCCD")
	}
	k := subKey{conn: c.ConnHandle, handle: c.ValueHandle}
	s, ok := a.subs[k]
	if !ok {
		s = &sub{cccd: c.CCCD.Handle}
		a.subs[k] = s
	}
	prev := *s
	set := s.ccc&flag != 0
	if flag == gattc.CCCNotify {
		s.onNotify = h
	} else {
		s.onInd = h
	}
	switch {
	case h == nil && !set, h != nil && set:
		// The CCCD already holds the flag as wanted.
		return nil
	case h == nil:
		s.ccc &^= flag
	default:
		s.ccc |= flag
	}

	v := make([]byte, 2)
	binary.LittleEndian.PutUint16(v, s.ccc)
	o := &op{handle: s.cccd, onWrite: fn, undo: func() { *s = prev }}
	err := a.issue(k.conn, o, func() error {
		return a.t.Write(k.conn, gattc.WriteRequest, s.cccd, v)
	})
	if err != nil {
		*s = prev
		return errors.Wrapf(err, "write CCCD 0x%04X", s.cccd)
	}
	return nil
}

// take returns the operation on conn answered by a response about handle.
func (a *access) take(conn, handle uint16) *op {
	o, ok := a.pending[conn]
	switch {
	case !ok:
		logger.Debug("no pending operation", "conn", conn, "handle", handle)
		return nil
	case o.handle != handle:
		logger.Warn("response for another attribute", "conn", conn, "want", o.handle, "got", handle)
		return nil
	}
	delete(a.pending, conn)
	return o
}

func (a *access) handleRead(ev gattc.AttributeRead) {
	if o := a.take(ev.Conn, ev.Handle); o != nil && o.onRead != nil {
		o.onRead(ev)
	}
}

func (a *access) handleWritten(ev gattc.AttributeWritten) {
	o := a.take(ev.Conn, ev.Handle)
	if o == nil {
		return
	}
	if ev.Status != gattc.ErrSuccess && o.undo != nil {
		o.undo()
	}
	if o.onWrite != nil {
		o.onWrite(ev)
	}
}

func (a *access) handleValue(ev gattc.ValueNotified) {
	h := a.onValue
	if s, ok := a.subs[subKey{conn: ev.Conn, handle: ev.Handle}]; ok {
		if ev.Indication && s.onInd != nil {
			h = s.onInd
		} else if !ev.Indication && s.onNotify != nil {
			h = s.onNotify
		}
	}
	if h == nil {
		logger.Debug("value dropped", "conn", ev.Conn, "handle", ev.Handle, "indication", ev.Indication)
		return
	}
	h(ev)
}

// disconnected forgets the operation and the subscriptions of conn.
func (a *access) disconnected(conn uint16) {
	if _, ok := a.pending[conn]; ok {
		logger.Debug("pending operation dropped", "conn", conn)
		delete(a.pending, conn)
	}
	for k := range a.subs {
		if k.conn == conn {
			delete(a.subs, k)
		}
	}
}
