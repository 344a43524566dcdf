package peer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/currantlabs/gattc"
	"github.com/currantlabs/gattc/att"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) *Server {
	f, err := Load("testdata/sensor.yaml")
	require.NoError(t, err)
	db, err := NewDB(f, 1)
	require.NoError(t, err)
	s, err := NewServer(db, gattc.DefaultMTU)
	require.NoError(t, err)
	return s
}

func readByGroup(start, end uint16) []byte {
	r := att.ReadByGroupTypeRequest(make([]byte, 7))
	r.SetAttributeOpcode()
	r.SetStartingHandle(start)
	r.SetEndingHandle(end)
	r.SetAttributeGroupType(gattc.PrimaryServiceUUID.Wire())
	return r
}

func readByType(typ gattc.UUID, start, end uint16) []byte {
	r := att.ReadByTypeRequest(make([]byte, 5+typ.Len()))
	r.SetAttributeOpcode()
	r.SetStartingHandle(start)
	r.SetEndingHandle(end)
	r.SetAttributeType(typ.Wire())
	return r
}

func findInfo(start, end uint16) []byte {
	r := att.FindInformationRequest(make([]byte, 5))
	r.SetAttributeOpcode()
	r.SetStartingHandle(start)
	r.SetEndingHandle(end)
	return r
}

// answer returns the response to b, dropping what the server pushes.
func answer(s *Server, b []byte) []byte {
	rsp, _ := s.handleReq(b)
	return rsp
}

func read(h uint16) []byte {
	r := att.ReadRequest(make([]byte, 3))
	r.SetAttributeOpcode()
	r.SetAttributeHandle(h)
	return r
}

func readBlob(h, offset uint16) []byte {
	r := att.ReadBlobRequest(make([]byte, 5))
	r.SetAttributeOpcode()
	r.SetAttributeHandle(h)
	r.SetValueOffset(offset)
	return r
}

func write(op byte, h uint16, v ...byte) []byte {
	r := att.WriteRequest(make([]byte, 3+len(v)))
	r[0] = op
	r.SetAttributeHandle(h)
	r.SetAttributeValue(v)
	return r
}

func TestNewDB(t *testing.T) {
	s := testServer(t)
	assert.Equal(t, 16, s.db.Len())

	var b bytes.Buffer
	s.db.DumpAttributes(&b)
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	require.Len(t, lines, 17)
	assert.Equal(t, "0x0001\t0x0005\t0x2800\t[ 00 18 ]", lines[1])
	assert.Equal(t, "0x0009\t0x0009\t0x2902\t[ 00 00 ]", lines[9])
	assert.True(t, strings.HasPrefix(lines[10], "0x000A\t0xFFFF\t0x2800\t"))
}

func TestNewDBInvalid(t *testing.T) {
	_, err := Parse([]byte("name: empty\n"))
	assert.Error(t, err)

	f, err := Parse([]byte(`
services:
  - uuid: "1800"
    characteristics:
      - uuid: "2A00"
        properties: [teleport]
`))
	require.NoError(t, err)
	_, err = NewDB(f, 1)
	assert.Error(t, err)

	f.Services[0].Characteristics[0].Properties = []string{"read"}
	f.Services[0].Characteristics[0].Value = "zz"
	_, err = NewDB(f, 1)
	assert.Error(t, err)
}

func TestReadByGroupType(t *testing.T) {
	s := testServer(t)

	assert.Equal(t, []byte{
		att.ReadByGroupTypeResponseCode, 6,
		0x01, 0x00, 0x05, 0x00, 0x00, 0x18,
		0x06, 0x00, 0x09, 0x00, 0x0F, 0x18,
	}, answer(s, readByGroup(0x0001, 0xFFFF)))

	rsp := answer(s, readByGroup(0x000A, 0xFFFF))
	require.Len(t, rsp, 2+20)
	assert.Equal(t, byte(20), rsp[1])
	assert.Equal(t, []byte{0x0A, 0x00, 0xFF, 0xFF}, rsp[2:6])
	assert.Equal(t, gattc.MustParse("34DA3AD1-7110-41A1-B1EF-4430F509CDE7"), gattc.FromWire(rsp[6:]))

	assert.Equal(t, att.NewErrorResponse(att.ReadByGroupTypeRequestCode, 0x0011, gattc.ErrAttrNotFound),
		answer(s, readByGroup(0x0011, 0xFFFF)))
}

func TestReadByType(t *testing.T) {
	s := testServer(t)

	assert.Equal(t, []byte{
		att.ReadByTypeResponseCode, 7,
		0x02, 0x00, 0x02, 0x03, 0x00, 0x00, 0x2A,
		0x04, 0x00, 0x02, 0x05, 0x00, 0x01, 0x2A,
	}, answer(s, readByType(gattc.CharacteristicUUID, 0x0001, 0x0005)))

	// A 128-bit declaration fills a whole response.
	rsp := answer(s, readByType(gattc.CharacteristicUUID, 0x000B, 0x0010))
	require.Len(t, rsp, 2+21)
	assert.Equal(t, byte(21), rsp[1])

	rsp = answer(s, readByType(gattc.PrimaryServiceUUID, 0x000A, 0xFFFF))
	require.Len(t, rsp, 2+18)
	assert.Equal(t, []byte{0x0A, 0x00}, rsp[2:4])

	assert.Equal(t, att.NewErrorResponse(att.ReadByTypeRequestCode, 0x0006, gattc.ErrAttrNotFound),
		answer(s, readByType(gattc.CharacteristicUUID, 0x0006, 0x0006)))
}

func TestFindInformation(t *testing.T) {
	s := testServer(t)

	assert.Equal(t, []byte{
		att.FindInformationResponseCode, att.FormatShortUUID,
		0x09, 0x00, 0x02, 0x29,
	}, answer(s, findInfo(0x0009, 0x0009)))

	assert.Equal(t, []byte{
		att.FindInformationResponseCode, att.FormatShortUUID,
		0x0D, 0x00, 0x02, 0x29,
		0x0E, 0x00, 0x01, 0x29,
		0x0F, 0x00, 0x03, 0x28,
	}, answer(s, findInfo(0x000D, 0x000F)))

	// The format is set by the first attribute.
	rsp := answer(s, findInfo(0x000C, 0x000E))
	assert.Equal(t, []byte{att.FindInformationResponseCode, att.FormatLongUUID, 0x0C, 0x00}, rsp[:4])
	assert.Len(t, rsp, 2+18)
}

func TestRequestErrors(t *testing.T) {
	s := testServer(t)

	assert.Equal(t, att.NewErrorResponse(att.FindInformationRequestCode, 0x0000, gattc.ErrInvalidHandle),
		answer(s, findInfo(0x0000, 0x0005)))
	assert.Equal(t, att.NewErrorResponse(att.ReadByTypeRequestCode, 0x0005, gattc.ErrInvalidHandle),
		answer(s, readByType(gattc.CharacteristicUUID, 0x0005, 0x0001)))
	assert.Equal(t, att.NewErrorResponse(0x0E, 0x0000, gattc.ErrReqNotSupp),
		answer(s, []byte{0x0E, 0x01, 0x00, 0x03, 0x00}))
	assert.Nil(t, answer(s, []byte{0x52}))
	assert.Nil(t, answer(s, []byte{0xD2, 0x03, 0x00}))
	assert.Equal(t, att.NewErrorResponse(att.FindInformationRequestCode, 0x0000, gattc.ErrInvalidPDU),
		answer(s, []byte{att.FindInformationRequestCode, 0x01}))

	r := att.ReadByGroupTypeRequest(readByGroup(0x0001, 0xFFFF))
	r.SetAttributeGroupType(gattc.UUID16(0x2801).Wire())
	assert.Equal(t, att.NewErrorResponse(att.ReadByGroupTypeRequestCode, 0x0001, gattc.ErrUnsuppGrpType),
		answer(s, r))
}

func TestDial(t *testing.T) {
	s := testServer(t)
	c := s.Dial()
	defer c.Close()

	_, err := c.Write(findInfo(0x0009, 0x0009))
	require.NoError(t, err)
	b := make([]byte, gattc.DefaultMTU)
	n, err := c.Read(b)
	require.NoError(t, err)
	assert.Equal(t, []byte{att.FindInformationResponseCode, att.FormatShortUUID, 0x09, 0x00, 0x02, 0x29}, b[:n])
}

func TestRangeOf(t *testing.T) {
	s := testServer(t)

	_, ok := s.db.rangeOf(0x0000, 0x0005)
	assert.False(t, ok)
	_, ok = s.db.rangeOf(0x0005, 0x0001)
	assert.False(t, ok)

	aa, ok := s.db.rangeOf(0x0011, 0xFFFF)
	assert.True(t, ok)
	assert.Empty(t, aa)

	aa, ok = s.db.rangeOf(0x000F, 0xFFFF)
	require.True(t, ok)
	require.Len(t, aa, 2)
	assert.Equal(t, uint16(0x0010), aa[1].h)

	aa, ok = s.db.rangeOf(0x0001, 0x0001)
	require.True(t, ok)
	require.Len(t, aa, 1)
	assert.Equal(t, uint16(0x0001), aa[0].h)

	f, err := Load("testdata/sensor.yaml")
	require.NoError(t, err)
	db, err := NewDB(f, 0x0010)
	require.NoError(t, err)
	aa, ok = db.rangeOf(0x0001, 0x0010)
	require.True(t, ok)
	require.Len(t, aa, 1)
	assert.Equal(t, uint16(0x0010), aa[0].h)

	_, ok = db.at(0x000F)
	assert.False(t, ok)
	a, ok := db.at(0x001F)
	require.True(t, ok)
	assert.Equal(t, uint16(0x001F), a.h)
	_, ok = db.at(0x0020)
	assert.False(t, ok)
}

func TestReadValue(t *testing.T) {
	s := testServer(t)

	assert.Equal(t, append([]byte{att.ReadResponseCode}, "sensor"...), answer(s, read(0x0003)))
	assert.Equal(t, append([]byte{att.ReadBlobResponseCode}, "sor"...), answer(s, readBlob(0x0003, 3)))
	assert.Equal(t, []byte{att.ReadBlobResponseCode}, answer(s, readBlob(0x0003, 6)))

	assert.Equal(t, att.NewErrorResponse(att.ReadBlobRequestCode, 0x0003, gattc.ErrInvalidOffset),
		answer(s, readBlob(0x0003, 7)))
	assert.Equal(t, att.NewErrorResponse(att.ReadRequestCode, 0x0020, gattc.ErrInvalidHandle),
		answer(s, read(0x0020)))
	assert.Equal(t, att.NewErrorResponse(att.ReadRequestCode, 0x0000, gattc.ErrInvalidHandle),
		answer(s, read(0x0000)))
	assert.Equal(t, att.NewErrorResponse(att.ReadRequestCode, 0x0000, gattc.ErrInvalidPDU),
		answer(s, []byte{att.ReadRequestCode, 0x03}))

	f, err := Parse([]byte(`
services:
  - uuid: "1800"
    characteristics:
      - uuid: "2A00"
        properties: [write]
`))
	require.NoError(t, err)
	db, err := NewDB(f, 1)
	require.NoError(t, err)
	s, err = NewServer(db, gattc.DefaultMTU)
	require.NoError(t, err)
	assert.Equal(t, att.NewErrorResponse(att.ReadRequestCode, 0x0003, gattc.ErrReadNotPerm),
		answer(s, read(0x0003)))
	assert.Equal(t, []byte{att.ReadResponseCode, 0x08, 0x03, 0x00, 0x00, 0x2A}, answer(s, read(0x0002)))
}

func TestWriteValue(t *testing.T) {
	s := testServer(t)

	rsp, push := s.handleReq(write(att.WriteRequestCode, 0x000C, 0x02))
	assert.Equal(t, []byte{att.WriteResponseCode}, rsp)
	assert.Empty(t, push)
	assert.Equal(t, []byte{att.ReadResponseCode, 0x02}, answer(s, read(0x000C)))

	// Enabling notifications pushes the current value.
	rsp, push = s.handleReq(write(att.WriteRequestCode, 0x000D, 0x01, 0x00))
	assert.Equal(t, []byte{att.WriteResponseCode}, rsp)
	assert.Equal(t, [][]byte{{att.HandleValueNotificationCode, 0x0C, 0x00, 0x02}}, push)

	rsp, push = s.handleReq(write(att.WriteRequestCode, 0x000C, 0x03, 0x04))
	assert.Equal(t, []byte{att.WriteResponseCode}, rsp)
	assert.Equal(t, [][]byte{{att.HandleValueNotificationCode, 0x0C, 0x00, 0x03, 0x04}}, push)

	// The battery level is not indicated.
	rsp, push = s.handleReq(write(att.WriteRequestCode, 0x0009, 0x02, 0x00))
	assert.Equal(t, []byte{att.WriteResponseCode}, rsp)
	assert.Empty(t, push)

	assert.Equal(t, att.NewErrorResponse(att.WriteRequestCode, 0x0008, gattc.ErrWriteNotPerm),
		answer(s, write(att.WriteRequestCode, 0x0008, 0x63)))
	assert.Equal(t, att.NewErrorResponse(att.WriteRequestCode, 0x000D, gattc.ErrInvalAttrValueLen),
		answer(s, write(att.WriteRequestCode, 0x000D, 0x01)))
	assert.Equal(t, att.NewErrorResponse(att.WriteRequestCode, 0x0020, gattc.ErrInvalidHandle),
		answer(s, write(att.WriteRequestCode, 0x0020, 0x01)))
	assert.Equal(t, att.NewErrorResponse(att.WriteRequestCode, 0x0000, gattc.ErrInvalidPDU),
		answer(s, []byte{att.WriteRequestCode, 0x0C}))

	// Commands are never answered, and only take on values that allow them.
	rsp, push = s.handleReq(write(att.WriteCommandCode, 0x000C, 0x05))
	assert.Nil(t, rsp)
	assert.Empty(t, push)
	assert.Equal(t, []byte{att.ReadResponseCode, 0x03, 0x04}, answer(s, read(0x000C)))
}

func TestDialNotify(t *testing.T) {
	s := testServer(t)
	c := s.Dial()
	defer c.Close()

	_, err := c.Write(write(att.WriteRequestCode, 0x0009, 0x01, 0x00))
	require.NoError(t, err)

	b := make([]byte, gattc.DefaultMTU)
	n, err := c.Read(b)
	require.NoError(t, err)
	assert.Equal(t, []byte{att.WriteResponseCode}, b[:n])
	n, err = c.Read(b)
	require.NoError(t, err)
	assert.Equal(t, []byte{att.HandleValueNotificationCode, 0x08, 0x00, 0x64}, b[:n])
}
