package peer

import (
	"encoding/binary"
	"io"
	"net"
	"sync"

	"github.com/currantlabs/gattc"
	"github.com/currantlabs/gattc/att"
	"github.com/mgutz/logxi/v1"
	"github.com/pkg/errors"
)

var logger = log.New("peer")

// Server answers the requests of a client from a DB. Written values, CCCDs
// included, are shared by every connection; the values a write makes the
// server push go out on the connection that wrote.
type Server struct {
	db  *DB
	mtu int

	mu sync.Mutex // guards the attribute values
}

// NewServer returns a Server for db using an ATT_MTU of mtu.
func NewServer(db *DB, mtu int) (*Server, error) {
	if mtu < gattc.DefaultMTU || mtu > gattc.MaxMTU {
		return nil, errors.Wrapf(gattc.ErrInvalidParameter, "mtu %d", mtu)
	}
	return &Server{db: db, mtu: mtu}, nil
}

// Serve answers requests read from rw until reading fails, and returns the
// error. io.EOF and io.ErrClosedPipe are reported as nil.
//
// Responses are written from a separate goroutine, so a client confirming
// an indication is never stuck behind the next response.
func (s *Server) Serve(rw io.ReadWriter) error {
	out := make(chan []byte, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		writeLoop(rw, out)
	}()
	defer func() {
		close(out)
		<-done
	}()

	b := make([]byte, s.mtu)
	for {
		n, err := rw.Read(b)
		if err == io.EOF || err == io.ErrClosedPipe {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read")
		}
		if n == 0 {
			continue
		}
		rsp, push := s.handleReq(b[:n])
		if rsp != nil {
			out <- rsp
		}
		for _, p := range push {
			out <- p
		}
	}
}

// writeLoop writes the PDUs of out to w. After a failed write the rest are
// dropped.
func writeLoop(w io.Writer, out <-chan []byte) {
	var err error
	for pdu := range out {
		if err != nil {
			continue
		}
		if _, err = w.Write(pdu); err != nil && err != io.ErrClosedPipe {
			logger.Warn("write", "err", err)
		}
	}
}

// Dial serves an in-memory connection and returns the client end of it.
// Closing the client end stops the server.
func (s *Server) Dial() net.Conn {
	c, p := net.Pipe()
	go func() {
		if err := s.Serve(p); err != nil {
			logger.Warn("serve", "err", err)
		}
		p.Close()
	}()
	return c
}

// handleReq returns the response to the PDU b, nil if none is due, and the
// values pushed in its wake.
func (s *Server) handleReq(b []byte) ([]byte, [][]byte) {
	logger.Debug("request", "pdu", b)
	s.mu.Lock()
	defer s.mu.Unlock()

	reqType := b[0]
	invalid := att.NewErrorResponse(reqType, 0x0000, gattc.ErrInvalidPDU)
	switch reqType {
	case att.ReadByGroupTypeRequestCode:
		if len(b) != 7 && len(b) != 21 {
			return invalid, nil
		}
		return s.handleReadByGroup(b), nil
	case att.ReadByTypeRequestCode:
		if len(b) != 7 && len(b) != 21 {
			return invalid, nil
		}
		return s.handleReadByType(b), nil
	case att.FindInformationRequestCode:
		if len(b) != 5 {
			return invalid, nil
		}
		return s.handleFindInfo(b), nil
	case att.ReadRequestCode:
		if len(b) != 3 {
			return invalid, nil
		}
		return s.handleRead(b), nil
	case att.ReadBlobRequestCode:
		if len(b) != 5 {
			return invalid, nil
		}
		return s.handleReadBlob(b), nil
	case att.WriteRequestCode:
		if len(b) < 3 {
			return invalid, nil
		}
		return s.handleWrite(reqType, b)
	case att.WriteCommandCode:
		if len(b) < 3 {
			return nil, nil
		}
		return s.handleWrite(reqType, b)
	case att.HandleValueConfirmationCode:
		return nil, nil
	}
	if reqType&0x40 != 0 {
		// Commands the server does not support are ignored [Vol 3, Part F, 3.3].
		return nil, nil
	}
	return att.NewErrorResponse(reqType, 0x0000, gattc.ErrReqNotSupp), nil
}

// entryList packs the fixed-length entries of a Read By Type, Read By Group
// Type, or Find Information Response. The first entry sets the length, and
// the list ends at the first entry of another length or once full.
type entryList struct {
	size int
	b    []byte
	room int
}

func newEntryList(mtu int) *entryList {
	return &entryList{room: mtu - 2}
}

// add appends e, truncated to the entry length, and reports whether it fit.
func (l *entryList) add(e []byte) bool {
	if l.size == 0 {
		l.size = min(len(e), 255, l.room)
	} else if len(e) != l.size {
		return false
	}
	if len(l.b)+l.size > l.room {
		return false
	}
	l.b = append(l.b, e[:l.size]...)
	return true
}

func (l *entryList) empty() bool { return l.size == 0 }

// rsp returns the response with opcode op, whose second byte is hdr.
func (l *entryList) rsp(op, hdr byte) []byte {
	return append([]byte{op, hdr}, l.b...)
}

func handle(h uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, h)
	return b
}

func (s *Server) handleFindInfo(r att.FindInformationRequest) []byte {
	aa, ok := s.db.rangeOf(r.StartingHandle(), r.EndingHandle())
	if !ok {
		return att.NewErrorResponse(r.AttributeOpcode(), r.StartingHandle(), gattc.ErrInvalidHandle)
	}
	l := newEntryList(s.mtu)
	for _, a := range aa {
		if !l.add(append(handle(a.h), a.typ.Wire()...)) {
			break
		}
	}
	if l.empty() {
		return att.NewErrorResponse(r.AttributeOpcode(), r.StartingHandle(), gattc.ErrAttrNotFound)
	}
	format := byte(att.FormatShortUUID)
	if l.size == 2+16 {
		format = att.FormatLongUUID
	}
	return l.rsp(att.FindInformationResponseCode, format)
}

func (s *Server) handleReadByType(r att.ReadByTypeRequest) []byte {
	aa, ok := s.db.rangeOf(r.StartingHandle(), r.EndingHandle())
	if !ok {
		return att.NewErrorResponse(r.AttributeOpcode(), r.StartingHandle(), gattc.ErrInvalidHandle)
	}
	typ := gattc.FromWire(r.AttributeType())
	l := newEntryList(s.mtu)
	for _, a := range aa {
		if a.typ.Equal(typ) && !l.add(append(handle(a.h), a.v...)) {
			break
		}
	}
	if l.empty() {
		return att.NewErrorResponse(r.AttributeOpcode(), r.StartingHandle(), gattc.ErrAttrNotFound)
	}
	return l.rsp(att.ReadByTypeResponseCode, byte(l.size))
}

func (s *Server) handleReadByGroup(r att.ReadByGroupTypeRequest) []byte {
	aa, ok := s.db.rangeOf(r.StartingHandle(), r.EndingHandle())
	if !ok {
		return att.NewErrorResponse(r.AttributeOpcode(), r.StartingHandle(), gattc.ErrInvalidHandle)
	}
	if !gattc.PrimaryServiceUUID.Equal(gattc.FromWire(r.AttributeGroupType())) {
		return att.NewErrorResponse(r.AttributeOpcode(), r.StartingHandle(), gattc.ErrUnsuppGrpType)
	}
	l := newEntryList(s.mtu)
	for _, a := range aa {
		if !a.typ.Equal(gattc.PrimaryServiceUUID) {
			continue
		}
		e := append(handle(a.h), handle(a.endh)...)
		if !l.add(append(e, a.v...)) {
			break
		}
	}
	if l.empty() {
		return att.NewErrorResponse(r.AttributeOpcode(), r.StartingHandle(), gattc.ErrAttrNotFound)
	}
	return l.rsp(att.ReadByGroupTypeResponseCode, byte(l.size))
}

// readable returns the attribute at h, or the status refusing to read it.
func (s *Server) readable(h uint16) (*attr, gattc.AttError) {
	a, ok := s.db.at(h)
	switch {
	case !ok:
		return nil, gattc.ErrInvalidHandle
	case a.props&gattc.CharRead == 0:
		return nil, gattc.ErrReadNotPerm
	}
	return a, gattc.ErrSuccess
}

func (s *Server) handleRead(r att.ReadRequest) []byte {
	a, st := s.readable(r.AttributeHandle())
	if st != gattc.ErrSuccess {
		return att.NewErrorResponse(r.AttributeOpcode(), r.AttributeHandle(), st)
	}
	return s.value(att.ReadResponseCode, a.v)
}

func (s *Server) handleReadBlob(r att.ReadBlobRequest) []byte {
	a, st := s.readable(r.AttributeHandle())
	if st == gattc.ErrSuccess && int(r.ValueOffset()) > len(a.v) {
		st = gattc.ErrInvalidOffset
	}
	if st != gattc.ErrSuccess {
		return att.NewErrorResponse(r.AttributeOpcode(), r.AttributeHandle(), st)
	}
	return s.value(att.ReadBlobResponseCode, a.v[r.ValueOffset():])
}

// value returns a response carrying as much of v as fits.
func (s *Server) value(op byte, v []byte) []byte {
	v = v[:min(len(v), s.mtu-1)]
	return append([]byte{op}, v...)
}

func (s *Server) handleWrite(op byte, r att.WriteRequest) ([]byte, [][]byte) {
	h := r.AttributeHandle()
	noRsp := op == att.WriteCommandCode
	fail := func(st gattc.AttError) ([]byte, [][]byte) {
		if noRsp {
			logger.Debug("write command dropped", "handle", h, "status", st.Error())
			return nil, nil
		}
		return att.NewErrorResponse(op, h, st), nil
	}

	a, ok := s.db.at(h)
	if !ok {
		return fail(gattc.ErrInvalidHandle)
	}
	flag := gattc.CharWrite
	if noRsp {
		flag = gattc.CharWriteNR
	}
	if a.props&flag == 0 {
		return fail(gattc.ErrWriteNotPerm)
	}
	v := r.AttributeValue()
	if a.val != nil && len(v) != 2 {
		return fail(gattc.ErrInvalAttrValueLen)
	}
	a.v = append([]byte(nil), v...)

	var push [][]byte
	switch {
	case a.val != nil:
		push = s.push(a.val)
	case a.cccd != nil:
		push = s.push(a)
	}
	if noRsp {
		return nil, push
	}
	return []byte{att.WriteResponseCode}, push
}

// push returns the notification and the indication of the value a that its
// CCCD enables.
func (s *Server) push(a *attr) [][]byte {
	if len(a.cccd.v) != 2 {
		return nil
	}
	ccc := binary.LittleEndian.Uint16(a.cccd.v)
	v := a.v[:min(len(a.v), s.mtu-3)]

	var pp [][]byte
	if ccc&gattc.CCCNotify != 0 && a.props&gattc.CharNotify != 0 {
		n := att.HandleValueNotification(make([]byte, 3+len(v)))
		n.SetAttributeOpcode()
		n.SetAttributeHandle(a.h)
		n.SetAttributeValue(v)
		pp = append(pp, n)
	}
	if ccc&gattc.CCCIndicate != 0 && a.props&gattc.CharIndicate != 0 {
		ind := att.HandleValueIndication(make([]byte, 3+len(v)))
		ind.SetAttributeOpcode()
		ind.SetAttributeHandle(a.h)
		ind.SetAttributeValue(v)
		pp = append(pp, ind)
	}
	return pp
}
