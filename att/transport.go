package att

import (
	"io"
	"sync"

	"github.com/currantlabs/gattc"
	"github.com/mgutz/logxi/v1"
	"github.com/pkg/errors"
)

var logger = log.New("att")

// procedure is the kind of request outstanding on a bearer.
type procedure int

const (
	procNone procedure = iota
	procServices
	procCharacteristics
	procValues
	procDescriptors
	procRead
	procWrite
)

// outstanding is the request a bearer waits on. Value requests keep their
// target, which the responses do not carry.
type outstanding struct {
	proc   procedure
	handle uint16
	offset uint16
}

// bearer is the ATT channel of one connection. The underlying ReadWriter
// must keep PDU boundaries, as an L2CAP channel or a net.Pipe does.
type bearer struct {
	conn uint16
	rw   io.ReadWriter

	mu      sync.Mutex
	pending outstanding

	wmu sync.Mutex // serializes requests and confirmations
}

func (b *bearer) take() outstanding {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.pending
	b.pending = outstanding{}
	return o
}

func (b *bearer) write(pdu []byte) error {
	b.wmu.Lock()
	defer b.wmu.Unlock()
	_, err := b.rw.Write(pdu)
	return err
}

// Transport issues requests over per-connection bearers and delivers the
// responses, and the values pushed by peers, one at a time, to the handler
// passed to Loop.
//
// 128-bit UUIDs in discovery responses are only reported if their base has
// been registered; others are reported as nil UUIDs, and left to the caller
// to resolve by reading the declaration.
type Transport struct {
	mtu int

	mu      sync.Mutex
	bases   []gattc.UUID
	bearers map[uint16]*bearer

	events chan gattc.Event
	reqs   chan func()
	done   chan struct{}
	once   sync.Once
}

// An Option is a configuration function, which configures the transport.
type Option func(*Transport) error

// OptMTU sets the ATT_MTU used on every bearer.
func OptMTU(mtu int) Option {
	return func(t *Transport) error {
		if mtu < gattc.DefaultMTU || mtu > gattc.MaxMTU {
			return errors.Wrapf(gattc.ErrInvalidParameter, "mtu %d", mtu)
		}
		t.mtu = mtu
		return nil
	}
}

// OptUUIDBase registers the base of a vendor specific 128-bit UUID.
func OptUUIDBase(s string) Option {
	return func(t *Transport) error {
		u, err := gattc.Parse(s)
		if err != nil {
			return err
		}
		return t.RegisterBase(u)
	}
}

// NewTransport returns a Transport with no bearer attached.
func NewTransport(opts ...Option) (*Transport, error) {
	t := &Transport{
		mtu:     gattc.DefaultMTU,
		bearers: make(map[uint16]*bearer),
		events:  make(chan gattc.Event, 16),
		reqs:    make(chan func(), 16),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, errors.Wrap(err, "can't set options")
		}
	}
	return t, nil
}

// MTU returns the ATT_MTU of the bearers.
func (t *Transport) MTU() int { return t.mtu }

// RegisterBase registers the base of u, a 128-bit UUID. UUIDs sharing the
// base, whatever their bytes 12 and 13 [Vol 3, Part B, 2.5.1], are reported
// in discovery responses from then on.
func (t *Transport) RegisterBase(u gattc.UUID) error {
	if u.Len() != 16 {
		return errors.Wrapf(gattc.ErrInvalidParameter, "base %s is not a 128-bit UUID", u)
	}
	b := baseOf(u)
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, x := range t.bases {
		if x.Equal(b) {
			return nil
		}
	}
	t.bases = append(t.bases, b)
	return nil
}

func baseOf(u gattc.UUID) gattc.UUID {
	b := make(gattc.UUID, 16)
	copy(b, u)
	b[2], b[3] = 0, 0
	return b
}

// known reports whether the base of the 128-bit UUID u is registered.
func (t *Transport) known(u gattc.UUID) bool {
	b := baseOf(u)
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, x := range t.bases {
		if x.Equal(b) {
			return true
		}
	}
	return false
}

// Attach binds rw as the bearer of conn and starts reading responses from it.
func (t *Transport) Attach(conn uint16, rw io.ReadWriter) error {
	select {
	case <-t.done:
		return ErrClosed
	default:
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.bearers[conn]; ok {
		return errors.Wrapf(gattc.ErrInvalidParameter, "connection 0x%04X already attached", conn)
	}
	b := &bearer{conn: conn, rw: rw}
	t.bearers[conn] = b
	go t.readLoop(b)
	logger.Debug("bearer attached", "conn", conn)
	return nil
}

// Detach tears down the bearer of conn. A Disconnected event is delivered.
func (t *Transport) Detach(conn uint16) error {
	t.mu.Lock()
	b, ok := t.bearers[conn]
	t.mu.Unlock()
	if !ok {
		return errors.Wrapf(gattc.ErrInvalidConnection, "connection 0x%04X", conn)
	}
	t.drop(b, nil)
	return nil
}

// drop removes b and reports its disconnection, once.
func (t *Transport) drop(b *bearer, err error) {
	t.mu.Lock()
	cur, ok := t.bearers[b.conn]
	if !ok || cur != b {
		t.mu.Unlock()
		return
	}
	delete(t.bearers, b.conn)
	t.mu.Unlock()

	if c, ok := b.rw.(io.Closer); ok {
		c.Close()
	}
	logger.Debug("bearer detached", "conn", b.conn, "err", err)
	t.post(gattc.Disconnected{Conn: b.conn})
}

func (t *Transport) bearer(conn uint16) (*bearer, error) {
	select {
	case <-t.done:
		return nil, errors.Wrap(gattc.ErrInvalidState, ErrClosed.Error())
	default:
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.bearers[conn]
	if !ok {
		return nil, errors.Wrapf(gattc.ErrInvalidConnection, "connection 0x%04X", conn)
	}
	return b, nil
}

// send writes a request PDU, marking o as outstanding on the bearer.
func (t *Transport) send(conn uint16, o outstanding, pdu []byte) error {
	b, err := t.fits(conn, pdu)
	if err != nil {
		return err
	}

	b.mu.Lock()
	if b.pending.proc != procNone {
		b.mu.Unlock()
		return errors.Wrapf(gattc.ErrBusy, "connection 0x%04X", conn)
	}
	b.pending = o
	b.mu.Unlock()

	if err := b.write(pdu); err != nil {
		b.take()
		return errors.Wrapf(gattc.ErrInvalidState, "write: %v", err)
	}
	return nil
}

// command writes a PDU the peer does not answer.
func (t *Transport) command(conn uint16, pdu []byte) error {
	b, err := t.fits(conn, pdu)
	if err != nil {
		return err
	}
	if err := b.write(pdu); err != nil {
		return errors.Wrapf(gattc.ErrInvalidState, "write: %v", err)
	}
	return nil
}

func (t *Transport) fits(conn uint16, pdu []byte) (*bearer, error) {
	b, err := t.bearer(conn)
	if err != nil {
		return nil, err
	}
	if len(pdu) > t.mtu {
		return nil, errors.Wrapf(gattc.ErrInvalidParameter, "request of %d bytes exceeds MTU %d", len(pdu), t.mtu)
	}
	return b, nil
}

// DiscoverPrimaryServices implements gattc.Transport with a Read By Group
// Type Request for primary service declarations.
func (t *Transport) DiscoverPrimaryServices(conn uint16, start uint16) error {
	if start == 0 {
		return errors.Wrap(gattc.ErrInvalidParameter, "start handle 0x0000")
	}
	req := ReadByGroupTypeRequest(make([]byte, 7))
	req.SetAttributeOpcode()
	req.SetStartingHandle(start)
	req.SetEndingHandle(gattc.EndHandle)
	req.SetAttributeGroupType(gattc.PrimaryServiceUUID.Wire())
	return t.send(conn, outstanding{proc: procServices}, req)
}

// DiscoverCharacteristics implements gattc.Transport with a Read By Type
// Request for characteristic declarations.
func (t *Transport) DiscoverCharacteristics(conn uint16, r gattc.HandleRange) error {
	if !r.Valid() {
		return errors.Wrapf(gattc.ErrInvalidParameter, "range %s", r)
	}
	return t.send(conn, outstanding{proc: procCharacteristics}, readByType(gattc.CharacteristicUUID, r))
}

// ReadUsingUUID implements gattc.Transport with a Read By Type Request.
func (t *Transport) ReadUsingUUID(conn uint16, typ gattc.UUID, r gattc.HandleRange) error {
	if !r.Valid() {
		return errors.Wrapf(gattc.ErrInvalidParameter, "range %s", r)
	}
	if !typ.Resolved() {
		return errors.Wrap(gattc.ErrInvalidParameter, "attribute type unknown")
	}
	return t.send(conn, outstanding{proc: procValues}, readByType(typ, r))
}

// DiscoverDescriptors implements gattc.Transport with a Find Information Request.
func (t *Transport) DiscoverDescriptors(conn uint16, r gattc.HandleRange) error {
	if !r.Valid() {
		return errors.Wrapf(gattc.ErrInvalidParameter, "range %s", r)
	}
	req := FindInformationRequest(make([]byte, 5))
	req.SetAttributeOpcode()
	req.SetStartingHandle(r.Start)
	req.SetEndingHandle(r.End)
	return t.send(conn, outstanding{proc: procDescriptors}, req)
}

// Read implements gattc.Transport with a Read Request, or a Read Blob Request
// if offset is not 0.
func (t *Transport) Read(conn uint16, handle, offset uint16) error {
	if handle == 0 {
		return errors.Wrap(gattc.ErrInvalidParameter, "handle 0x0000")
	}
	o := outstanding{proc: procRead, handle: handle, offset: offset}
	if offset == 0 {
		req := ReadRequest(make([]byte, 3))
		req.SetAttributeOpcode()
		req.SetAttributeHandle(handle)
		return t.send(conn, o, req)
	}
	req := ReadBlobRequest(make([]byte, 5))
	req.SetAttributeOpcode()
	req.SetAttributeHandle(handle)
	req.SetValueOffset(offset)
	return t.send(conn, o, req)
}

// Write implements gattc.Transport with a Write Request or a Write Command.
func (t *Transport) Write(conn uint16, op gattc.WriteOp, handle uint16, value []byte) error {
	if handle == 0 {
		return errors.Wrap(gattc.ErrInvalidParameter, "handle 0x0000")
	}
	switch op {
	case gattc.WriteRequest:
		req := WriteRequest(make([]byte, 3+len(value)))
		req.SetAttributeOpcode()
		req.SetAttributeHandle(handle)
		req.SetAttributeValue(value)
		return t.send(conn, outstanding{proc: procWrite, handle: handle}, req)
	case gattc.WriteCommand:
		cmd := WriteCommand(make([]byte, 3+len(value)))
		cmd.SetAttributeOpcode()
		cmd.SetAttributeHandle(handle)
		cmd.SetAttributeValue(value)
		return t.command(conn, cmd)
	}
	return errors.Wrapf(gattc.ErrInvalidParameter, "write op %d", op)
}

func readByType(typ gattc.UUID, r gattc.HandleRange) ReadByTypeRequest {
	req := ReadByTypeRequest(make([]byte, 5+typ.Len()))
	req.SetAttributeOpcode()
	req.SetStartingHandle(r.Start)
	req.SetEndingHandle(r.End)
	req.SetAttributeType(typ.Wire())
	return req
}

func (t *Transport) readLoop(b *bearer) {
	buf := make([]byte, t.mtu)
	for {
		n, err := b.rw.Read(buf)
		if n == 0 || err != nil {
			t.drop(b, err)
			return
		}
		pdu := make([]byte, n)
		copy(pdu, buf)

		switch pdu[0] {
		case HandleValueNotificationCode, HandleValueIndicationCode:
			t.handleValue(b, pdu)
			continue
		}
		o := b.take()
		if o.proc == procNone {
			logger.Warn("unsolicited PDU dropped", "conn", b.conn, "opcode", pdu[0])
			continue
		}
		t.post(t.decode(b.conn, o, pdu))
	}
}

// handleValue reports a notification or indication, and confirms the latter.
func (t *Transport) handleValue(b *bearer, pdu []byte) {
	if len(pdu) < 3 {
		logger.Warn("malformed handle value PDU", "conn", b.conn, "pdu", pdu)
		return
	}
	n := HandleValueNotification(pdu)
	v := make([]byte, len(n.AttributeValue()))
	copy(v, n.AttributeValue())
	ind := pdu[0] == HandleValueIndicationCode
	if ind {
		cfm := HandleValueConfirmation(make([]byte, 1))
		cfm.SetAttributeOpcode()
		if err := b.write(cfm); err != nil {
			logger.Warn("can't confirm indication", "conn", b.conn, "err", err)
		}
	}
	t.post(gattc.ValueNotified{Conn: b.conn, Handle: n.AttributeHandle(), Indication: ind, Value: v})
}

func (t *Transport) post(ev gattc.Event) {
	select {
	case t.events <- ev:
	case <-t.done:
	}
}

// Loop delivers events to h until the transport is closed, and runs the
// functions passed to Submit in between. Requests issued by h are answered
// by later events. Loop returns ErrClosed.
func (t *Transport) Loop(h gattc.EventHandler) error {
	for {
		select {
		case <-t.done:
			return ErrClosed
		case fn := <-t.reqs:
			fn()
		case ev := <-t.events:
			h.Handle(ev)
		}
	}
}

// Submit schedules fn to run on the goroutine running Loop. It must not be
// called from that goroutine.
func (t *Transport) Submit(fn func()) error {
	select {
	case t.reqs <- fn:
		return nil
	case <-t.done:
		return ErrClosed
	}
}

// Close detaches every bearer and stops Loop.
func (t *Transport) Close() error {
	t.once.Do(func() {
		close(t.done)
		t.mu.Lock()
		bb := t.bearers
		t.bearers = make(map[uint16]*bearer)
		t.mu.Unlock()
		for _, b := range bb {
			if c, ok := b.rw.(io.Closer); ok {
				c.Close()
			}
		}
	})
	return nil
}
