package att

import (
	"encoding/binary"

	"github.com/currantlabs/gattc"
	"github.com/pkg/errors"
)

// opcodes maps each procedure to the request and response opcodes that
// may answer it.
var opcodes = map[procedure][2]byte{
	procServices:        {ReadByGroupTypeRequestCode, ReadByGroupTypeResponseCode},
	procCharacteristics: {ReadByTypeRequestCode, ReadByTypeResponseCode},
	procValues:          {ReadByTypeRequestCode, ReadByTypeResponseCode},
	procDescriptors:     {FindInformationRequestCode, FindInformationResponseCode},
	procRead:            {ReadRequestCode, ReadResponseCode},
	procWrite:           {WriteRequestCode, WriteResponseCode},
}

func (o outstanding) opcodes() [2]byte {
	if o.proc == procRead && o.offset != 0 {
		return [2]byte{ReadBlobRequestCode, ReadBlobResponseCode}
	}
	return opcodes[o.proc]
}

// decode turns the response to o into an event. A malformed response is
// reported as an ErrInvalidPDU status, so the procedure still completes.
func (t *Transport) decode(conn uint16, o outstanding, pdu []byte) gattc.Event {
	status, err := t.parse(o, pdu)
	if err != nil {
		logger.Warn("malformed response", "conn", conn, "err", err)
		return t.event(conn, o, gattc.ErrInvalidPDU)
	}
	if status != gattc.ErrSuccess {
		return t.event(conn, o, status)
	}

	var ev gattc.Event
	switch o.proc {
	case procRead:
		ev = read(conn, o, pdu)
	case procWrite:
		ev = gattc.AttributeWritten{Conn: conn, Handle: o.handle}
	case procServices:
		ev, err = t.services(conn, ReadByGroupTypeResponse(pdu))
	case procCharacteristics:
		ev, err = t.characteristics(conn, ReadByTypeResponse(pdu))
	case procValues:
		ev, err = values(conn, ReadByTypeResponse(pdu))
	case procDescriptors:
		ev, err = descriptors(conn, FindInformationResponse(pdu))
	}
	if err != nil {
		logger.Warn("malformed response", "conn", conn, "err", err)
		return t.event(conn, o, gattc.ErrInvalidPDU)
	}
	return ev
}

// parse checks the opcode of pdu and extracts the status of an Error Response.
func (t *Transport) parse(o outstanding, pdu []byte) (gattc.AttError, error) {
	op := o.opcodes()
	switch {
	case pdu[0] == ErrorResponseCode:
		r := ErrorResponse(pdu)
		if len(r) != 5 || r.RequestOpcodeInError() != op[0] {
			return 0, errors.Wrapf(ErrInvalidResponse, "error response [ % X ]", pdu)
		}
		if r.ErrorCode() == 0 {
			return gattc.ErrUnlikely, nil
		}
		return gattc.AttError(r.ErrorCode()), nil
	case pdu[0] != op[1]:
		return 0, errors.Wrapf(ErrInvalidResponse, "opcode 0x%02X, want 0x%02X", pdu[0], op[1])
	case o.proc == procWrite && len(pdu) != 1:
		return 0, errors.Wrapf(ErrInvalidResponse, "write response of %d bytes", len(pdu))
	case o.proc != procRead && o.proc != procWrite && len(pdu) < 2:
		return 0, errors.Wrap(ErrInvalidResponse, "truncated")
	}
	return gattc.ErrSuccess, nil
}

// event returns an empty event of the kind answering o.
func (t *Transport) event(conn uint16, o outstanding, status gattc.AttError) gattc.Event {
	switch o.proc {
	case procRead:
		return gattc.AttributeRead{Conn: conn, Handle: o.handle, Offset: o.offset, Status: status}
	case procWrite:
		return gattc.AttributeWritten{Conn: conn, Handle: o.handle, Status: status}
	case procServices:
		return gattc.ServicesDiscovered{Conn: conn, Status: status}
	case procCharacteristics:
		return gattc.CharacteristicsDiscovered{Conn: conn, Status: status}
	case procValues:
		return gattc.ValuesRead{Conn: conn, Status: status}
	default:
		return gattc.DescriptorsDiscovered{Conn: conn, Status: status}
	}
}

// entries splits an attribute data list into entries of length l, each at
// least min bytes long.
func entries(b []byte, l, min int) ([][]byte, error) {
	if l < min || len(b) == 0 || len(b)%l != 0 {
		return nil, errors.Wrapf(ErrInvalidResponse, "%d bytes of %d-byte entries", len(b), l)
	}
	var ee [][]byte
	for ; len(b) != 0; b = b[l:] {
		ee = append(ee, b[:l])
	}
	return ee, nil
}

// uuid decodes a UUID found in a discovery response. 128-bit UUIDs of an
// unregistered base are left nil.
func (t *Transport) uuid(b []byte) (gattc.UUID, error) {
	u := gattc.FromWire(b)
	switch {
	case u == nil:
		return nil, errors.Wrapf(ErrInvalidResponse, "%d-byte UUID", len(b))
	case u.Len() == 16 && !t.known(u):
		return nil, nil
	}
	return u, nil
}

func (t *Transport) services(conn uint16, r ReadByGroupTypeResponse) (gattc.Event, error) {
	ee, err := entries(r.AttributeDataList(), int(r.Length()), 4+2)
	if err != nil {
		return nil, err
	}
	ev := gattc.ServicesDiscovered{Conn: conn}
	for _, e := range ee {
		u, err := t.uuid(e[4:])
		if err != nil {
			return nil, err
		}
		ev.Services = append(ev.Services, gattc.DiscoveredService{
			UUID:        u,
			StartHandle: binary.LittleEndian.Uint16(e[0:]),
			EndHandle:   binary.LittleEndian.Uint16(e[2:]),
		})
	}
	return ev, nil
}

func (t *Transport) characteristics(conn uint16, r ReadByTypeResponse) (gattc.Event, error) {
	ee, err := entries(r.AttributeDataList(), int(r.Length()), 2+3+2)
	if err != nil {
		return nil, err
	}
	ev := gattc.CharacteristicsDiscovered{Conn: conn}
	for _, e := range ee {
		u, err := t.uuid(e[5:])
		if err != nil {
			return nil, err
		}
		ev.Characteristics = append(ev.Characteristics, gattc.DiscoveredCharacteristic{
			ConnHandle:  conn,
			UUID:        u,
			Property:    gattc.Property(e[2]),
			DeclHandle:  binary.LittleEndian.Uint16(e[0:]),
			ValueHandle: binary.LittleEndian.Uint16(e[3:]),
		})
	}
	return ev, nil
}

// read returns the value carried by a Read or Read Blob Response.
func read(conn uint16, o outstanding, pdu []byte) gattc.Event {
	v := make([]byte, len(pdu)-1)
	copy(v, ReadResponse(pdu).AttributeValue())
	return gattc.AttributeRead{Conn: conn, Handle: o.handle, Offset: o.offset, Value: v}
}

func values(conn uint16, r ReadByTypeResponse) (gattc.Event, error) {
	ee, err := entries(r.AttributeDataList(), int(r.Length()), 2)
	if err != nil {
		return nil, err
	}
	ev := gattc.ValuesRead{Conn: conn}
	for _, e := range ee {
		v := make([]byte, len(e)-2)
		copy(v, e[2:])
		ev.Values = append(ev.Values, gattc.AttributeValue{
			Handle: binary.LittleEndian.Uint16(e),
			Value:  v,
		})
	}
	return ev, nil
}

func descriptors(conn uint16, r FindInformationResponse) (gattc.Event, error) {
	l := 2 + 2
	switch r.Format() {
	case FormatShortUUID:
	case FormatLongUUID:
		l = 2 + 16
	default:
		return nil, errors.Wrapf(ErrInvalidResponse, "format 0x%02X", r.Format())
	}
	ee, err := entries(r.InformationData(), l, l)
	if err != nil {
		return nil, err
	}
	ev := gattc.DescriptorsDiscovered{Conn: conn}
	for _, e := range ee {
		ev.Descriptors = append(ev.Descriptors, gattc.DiscoveredDescriptor{
			ConnHandle: conn,
			UUID:       gattc.FromWire(e[2:]),
			Handle:     binary.LittleEndian.Uint16(e),
		})
	}
	return ev, nil
}
