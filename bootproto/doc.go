// Package bootproto implements the wire framing and command/response
// codec for the Tock bootloader serial protocol. It performs no I/O:
// Build* functions produce a framed byte slice ready to write to a
// transport, and Parse* functions decode a framed response already
// read from one. The stateful session — opening the port, entering and
// exiting bootloader mode, baud negotiation, retries — lives in
// package transport.
//
// # Framing
//
// Every command is ESC CMD [payload], and every response is
// ESC RSP_START RSP_CODE [payload], where ESC=0x1B and RSP_START=0xFC.
// Any ESC byte occurring naturally within a payload is doubled on the
// wire and must be un-doubled on decode.
//
//	frame := bootproto.BuildPingCmd()
//	code, payload, err := bootproto.ParseResponse(raw, 0)
package bootproto
