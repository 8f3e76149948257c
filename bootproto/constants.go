package bootproto

// Framing constants.
const (
	// Esc marks the start of every command and response frame; any Esc
	// byte occurring naturally inside a payload is doubled on the wire.
	Esc = 0x1B

	// RspStart immediately follows Esc at the start of every response
	// frame, ahead of the response code.
	RspStart = 0xFC
)

// Command codes.
const (
	CmdPing             = 0x01
	CmdInfo             = 0x03
	CmdID               = 0x04
	CmdReadRange        = 0x12
	CmdWritePage        = 0x13
	CmdErasePage        = 0x14
	CmdCRCInternalFlash = 0x16
	CmdChangeBaud       = 0x21
	CmdGetAttribute     = 0x22
	CmdSetAttribute     = 0x23
	CmdSetStartAddress  = 0x25
	CmdExit             = 0x28
)

// Response codes. Ping/Pong and read-range echo back a distinct
// response code naming the operation; Ok/BadAddr/BadArgs are shared
// across every write-shaped command (WritePage, ErasePage, SetAttribute,
// SetStartAddress, ChangeBaud confirm).
const (
	ResponsePong          = 0x11
	ResponseBadAddr       = 0x12
	ResponseInternalError = 0x13
	ResponseBadArgs       = 0x14
	ResponseOK            = 0x15
	ResponseUnknown       = 0x16
	ResponseReadRange     = 0x20
	ResponseGetAttribute  = 0x22
	ResponseCRCInternal   = 0x23
	ResponseInfo          = 0x25
	ResponseChangeBaudFail = 0x26
)

// InfoBlobSize is the size of the INFO command's bootloader-info
// response, which embeds a version string.
const InfoBlobSize = 192

// IDSize is the size of the ID command's unique-device-id response.
const IDSize = 8

// AttributeSlotSize is the size of one GET_ATTRIBUTE/SET_ATTRIBUTE
// slot payload.
const AttributeSlotSize = 64

// ChangeBaudMode selects whether CHANGE_BAUD sets a new rate ahead of a
// reset, or confirms the rate just negotiated.
type ChangeBaudMode byte

const (
	ChangeBaudSet     ChangeBaudMode = 0
	ChangeBaudConfirm ChangeBaudMode = 1
)
