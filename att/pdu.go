package att

import "encoding/binary"

// ErrorResponseCode is the opcode of ErrorResponse.
const ErrorResponseCode = 0x01

// ErrorResponse implements Error Response (0x01) [Vol 3, Part F, 3.4.1.1].
type ErrorResponse []byte

func (r ErrorResponse) AttributeOpcode() uint8          { return r[0] }
func (r ErrorResponse) SetAttributeOpcode()             { r[0] = 0x01 }
func (r ErrorResponse) RequestOpcodeInError() uint8     { return r[1] }
func (r ErrorResponse) SetRequestOpcodeInError(v uint8) { r[1] = v }
func (r ErrorResponse) AttributeInError() uint16        { return binary.LittleEndian.Uint16(r[2:]) }
func (r ErrorResponse) SetAttributeInError(v uint16)    { binary.LittleEndian.PutUint16(r[2:], v) }
func (r ErrorResponse) ErrorCode() uint8                { return r[4] }
func (r ErrorResponse) SetErrorCode(v uint8)            { r[4] = v }

// FindInformationRequestCode is the opcode of FindInformationRequest.
const FindInformationRequestCode = 0x04

// FindInformationRequest implements Find Information Request (0x04) [Vol 3, Part F, 3.4.3.1].
type FindInformationRequest []byte

func (r FindInformationRequest) AttributeOpcode() uint8     { return r[0] }
func (r FindInformationRequest) SetAttributeOpcode()        { r[0] = 0x04 }
func (r FindInformationRequest) StartingHandle() uint16     { return binary.LittleEndian.Uint16(r[1:]) }
func (r FindInformationRequest) SetStartingHandle(v uint16) { binary.LittleEndian.PutUint16(r[1:], v) }
func (r FindInformationRequest) EndingHandle() uint16       { return binary.LittleEndian.Uint16(r[3:]) }
func (r FindInformationRequest) SetEndingHandle(v uint16)   { binary.LittleEndian.PutUint16(r[3:], v) }

// FindInformationResponseCode is the opcode of FindInformationResponse.
const FindInformationResponseCode = 0x05

// FindInformationResponse implements Find Information Response (0x05) [Vol 3, Part F, 3.4.3.2].
type FindInformationResponse []byte

func (r FindInformationResponse) AttributeOpcode() uint8      { return r[0] }
func (r FindInformationResponse) SetAttributeOpcode()         { r[0] = 0x05 }
func (r FindInformationResponse) Format() uint8               { return r[1] }
func (r FindInformationResponse) SetFormat(v uint8)           { r[1] = v }
func (r FindInformationResponse) InformationData() []byte     { return r[2:] }
func (r FindInformationResponse) SetInformationData(v []byte) { copy(r[2:], v) }

// Formats of the information data of a FindInformationResponse.
const (
	FormatShortUUID = 0x01
	FormatLongUUID  = 0x02
)

// ReadByTypeRequestCode is the opcode of ReadByTypeRequest.
const ReadByTypeRequestCode = 0x08

// ReadByTypeRequest implements Read By Type Request (0x08) [Vol 3, Part F, 3.4.4.1].
type ReadByTypeRequest []byte

func (r ReadByTypeRequest) AttributeOpcode() uint8     { return r[0] }
func (r ReadByTypeRequest) SetAttributeOpcode()        { r[0] = 0x08 }
func (r ReadByTypeRequest) StartingHandle() uint16     { return binary.LittleEndian.Uint16(r[1:]) }
func (r ReadByTypeRequest) SetStartingHandle(v uint16) { binary.LittleEndian.PutUint16(r[1:], v) }
func (r ReadByTypeRequest) EndingHandle() uint16       { return binary.LittleEndian.Uint16(r[3:]) }
func (r ReadByTypeRequest) SetEndingHandle(v uint16)   { binary.LittleEndian.PutUint16(r[3:], v) }
func (r ReadByTypeRequest) AttributeType() []byte      { return r[5:] }
func (r ReadByTypeRequest) SetAttributeType(v []byte)  { copy(r[5:], v) }

// ReadByTypeResponseCode is the opcode of ReadByTypeResponse.
const ReadByTypeResponseCode = 0x09

// ReadByTypeResponse implements Read By Type Response (0x09) [Vol 3, Part F, 3.4.4.2].
type ReadByTypeResponse []byte

func (r ReadByTypeResponse) AttributeOpcode() uint8        { return r[0] }
func (r ReadByTypeResponse) SetAttributeOpcode()           { r[0] = 0x09 }
func (r ReadByTypeResponse) Length() uint8                 { return r[1] }
func (r ReadByTypeResponse) SetLength(v uint8)             { r[1] = v }
func (r ReadByTypeResponse) AttributeDataList() []byte     { return r[2:] }
func (r ReadByTypeResponse) SetAttributeDataList(v []byte) { copy(r[2:], v) }

// ReadRequestCode is the opcode of ReadRequest.
const ReadRequestCode = 0x0A

// ReadRequest implements Read Request (0x0A) [Vol 3, Part F, 3.4.4.3].
type ReadRequest []byte

func (r ReadRequest) AttributeOpcode() uint8      { return r[0] }
func (r ReadRequest) SetAttributeOpcode()         { r[0] = 0x0A }
func (r ReadRequest) AttributeHandle() uint16     { return binary.LittleEndian.Uint16(r[1:]) }
func (r ReadRequest) SetAttributeHandle(v uint16) { binary.LittleEndian.PutUint16(r[1:], v) }

// ReadResponseCode is the opcode of ReadResponse.
const ReadResponseCode = 0x0B

// ReadResponse implements Read Response (0x0B) [Vol 3, Part F, 3.4.4.4].
type ReadResponse []byte

func (r ReadResponse) AttributeOpcode() uint8     { return r[0] }
func (r ReadResponse) SetAttributeOpcode()        { r[0] = 0x0B }
func (r ReadResponse) AttributeValue() []byte     { return r[1:] }
func (r ReadResponse) SetAttributeValue(v []byte) { copy(r[1:], v) }

// ReadBlobRequestCode is the opcode of ReadBlobRequest.
const ReadBlobRequestCode = 0x0C

// ReadBlobRequest implements Read Blob Request (0x0C) [Vol 3, Part F, 3.4.4.5].
type ReadBlobRequest []byte

func (r ReadBlobRequest) AttributeOpcode() uint8      { return r[0] }
func (r ReadBlobRequest) SetAttributeOpcode()         { r[0] = 0x0C }
func (r ReadBlobRequest) AttributeHandle() uint16     { return binary.LittleEndian.Uint16(r[1:]) }
func (r ReadBlobRequest) SetAttributeHandle(v uint16) { binary.LittleEndian.PutUint16(r[1:], v) }
func (r ReadBlobRequest) ValueOffset() uint16         { return binary.LittleEndian.Uint16(r[3:]) }
func (r ReadBlobRequest) SetValueOffset(v uint16)     { binary.LittleEndian.PutUint16(r[3:], v) }

// ReadBlobResponseCode is the opcode of ReadBlobResponse.
const ReadBlobResponseCode = 0x0D

// ReadBlobResponse implements Read Blob Response (0x0D) [Vol 3, Part F, 3.4.4.6].
type ReadBlobResponse []byte

func (r ReadBlobResponse) AttributeOpcode() uint8         { return r[0] }
func (r ReadBlobResponse) SetAttributeOpcode()            { r[0] = 0x0D }
func (r ReadBlobResponse) PartAttributeValue() []byte     { return r[1:] }
func (r ReadBlobResponse) SetPartAttributeValue(v []byte) { copy(r[1:], v) }

// ReadByGroupTypeRequestCode is the opcode of ReadByGroupTypeRequest.
const ReadByGroupTypeRequestCode = 0x10

// ReadByGroupTypeRequest implements Read By Group Type Request (0x10) [Vol 3, Part F, 3.4.4.9].
type ReadByGroupTypeRequest []byte

func (r ReadByGroupTypeRequest) AttributeOpcode() uint8         { return r[0] }
func (r ReadByGroupTypeRequest) SetAttributeOpcode()            { r[0] = 0x10 }
func (r ReadByGroupTypeRequest) StartingHandle() uint16         { return binary.LittleEndian.Uint16(r[1:]) }
func (r ReadByGroupTypeRequest) SetStartingHandle(v uint16)     { binary.LittleEndian.PutUint16(r[1:], v) }
func (r ReadByGroupTypeRequest) EndingHandle() uint16           { return binary.LittleEndian.Uint16(r[3:]) }
func (r ReadByGroupTypeRequest) SetEndingHandle(v uint16)       { binary.LittleEndian.PutUint16(r[3:], v) }
func (r ReadByGroupTypeRequest) AttributeGroupType() []byte     { return r[5:] }
func (r ReadByGroupTypeRequest) SetAttributeGroupType(v []byte) { copy(r[5:], v) }

// ReadByGroupTypeResponseCode is the opcode of ReadByGroupTypeResponse.
const ReadByGroupTypeResponseCode = 0x11

// ReadByGroupTypeResponse implements Read By Group Type Response (0x11) [Vol 3, Part F, 3.4.4.10].
type ReadByGroupTypeResponse []byte

func (r ReadByGroupTypeResponse) AttributeOpcode() uint8        { return r[0] }
func (r ReadByGroupTypeResponse) SetAttributeOpcode()           { r[0] = 0x11 }
func (r ReadByGroupTypeResponse) Length() uint8                 { return r[1] }
func (r ReadByGroupTypeResponse) SetLength(v uint8)             { r[1] = v }
func (r ReadByGroupTypeResponse) AttributeDataList() []byte     { return r[2:] }
func (r ReadByGroupTypeResponse) SetAttributeDataList(v []byte) { copy(r[2:], v) }

// WriteRequestCode is the opcode of WriteRequest.
const WriteRequestCode = 0x12

// WriteRequest implements Write Request (0x12) [Vol 3, Part F, 3.4.5.1].
type WriteRequest []byte

func (r WriteRequest) AttributeOpcode() uint8      { return r[0] }
func (r WriteRequest) SetAttributeOpcode()         { r[0] = 0x12 }
func (r WriteRequest) AttributeHandle() uint16     { return binary.LittleEndian.Uint16(r[1:]) }
func (r WriteRequest) SetAttributeHandle(v uint16) { binary.LittleEndian.PutUint16(r[1:], v) }
func (r WriteRequest) AttributeValue() []byte      { return r[3:] }
func (r WriteRequest) SetAttributeValue(v []byte)  { copy(r[3:], v) }

// WriteResponseCode is the opcode of WriteResponse.
const WriteResponseCode = 0x13

// WriteResponse implements Write Response (0x13) [Vol 3, Part F, 3.4.5.2].
type WriteResponse []byte

func (r WriteResponse) AttributeOpcode() uint8 { return r[0] }
func (r WriteResponse) SetAttributeOpcode()    { r[0] = 0x13 }

// HandleValueNotificationCode is the opcode of HandleValueNotification.
const HandleValueNotificationCode = 0x1B

// HandleValueNotification implements Handle Value Notification (0x1B) [Vol 3, Part F, 3.4.7.1].
type HandleValueNotification []byte

func (r HandleValueNotification) AttributeOpcode() uint8      { return r[0] }
func (r HandleValueNotification) SetAttributeOpcode()         { r[0] = 0x1B }
func (r HandleValueNotification) AttributeHandle() uint16     { return binary.LittleEndian.Uint16(r[1:]) }
func (r HandleValueNotification) SetAttributeHandle(v uint16) { binary.LittleEndian.PutUint16(r[1:], v) }
func (r HandleValueNotification) AttributeValue() []byte      { return r[3:] }
func (r HandleValueNotification) SetAttributeValue(v []byte)  { copy(r[3:], v) }

// HandleValueIndicationCode is the opcode of HandleValueIndication.
const HandleValueIndicationCode = 0x1D

// HandleValueIndication implements Handle Value Indication (0x1D) [Vol 3, Part F, 3.4.7.2].
type HandleValueIndication []byte

func (r HandleValueIndication) AttributeOpcode() uint8      { return r[0] }
func (r HandleValueIndication) SetAttributeOpcode()         { r[0] = 0x1D }
func (r HandleValueIndication) AttributeHandle() uint16     { return binary.LittleEndian.Uint16(r[1:]) }
func (r HandleValueIndication) SetAttributeHandle(v uint16) { binary.LittleEndian.PutUint16(r[1:], v) }
func (r HandleValueIndication) AttributeValue() []byte      { return r[3:] }
func (r HandleValueIndication) SetAttributeValue(v []byte)  { copy(r[3:], v) }

// HandleValueConfirmationCode is the opcode of HandleValueConfirmation.
const HandleValueConfirmationCode = 0x1E

// HandleValueConfirmation implements Handle Value Confirmation (0x1E) [Vol 3, Part F, 3.4.7.3].
type HandleValueConfirmation []byte

func (r HandleValueConfirmation) AttributeOpcode() uint8 { return r[0] }
func (r HandleValueConfirmation) SetAttributeOpcode()    { r[0] = 0x1E }

// WriteCommandCode is the opcode of WriteCommand.
const WriteCommandCode = 0x52

// WriteCommand implements Write Command (0x52) [Vol 3, Part F, 3.4.5.3].
type WriteCommand []byte

func (r WriteCommand) AttributeOpcode() uint8      { return r[0] }
func (r WriteCommand) SetAttributeOpcode()         { r[0] = 0x52 }
func (r WriteCommand) AttributeHandle() uint16     { return binary.LittleEndian.Uint16(r[1:]) }
func (r WriteCommand) SetAttributeHandle(v uint16) { binary.LittleEndian.PutUint16(r[1:], v) }
func (r WriteCommand) AttributeValue() []byte      { return r[3:] }
func (r WriteCommand) SetAttributeValue(v []byte)  { copy(r[3:], v) }
