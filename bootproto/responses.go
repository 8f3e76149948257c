package bootproto

import (
	"encoding/binary"
	"fmt"
)

// ParseResponse strips the ESC RSP_START framing and unescapes the
// payload, returning the response code and its payload. If wantLen is
// nonzero, the payload is required to be exactly that many bytes.
func ParseResponse(raw []byte, wantLen int) (code byte, payload []byte, err error) {
	if len(raw) < 3 {
		return 0, nil, fmt.Errorf("response frame too short: got %d bytes, minimum 3", len(raw))
	}
	if raw[0] != Esc || raw[1] != RspStart {
		return 0, nil, fmt.Errorf("missing ESC RSP_START header: got 0x%02X 0x%02X", raw[0], raw[1])
	}
	code = raw[2]
	payload = unescape(raw[3:])

	if wantLen != 0 && len(payload) != wantLen {
		return code, payload, fmt.Errorf("response payload length = %d, want %d", len(payload), wantLen)
	}
	return code, payload, nil
}

// BootloaderInfo is the INFO command's decoded response.
type BootloaderInfo struct {
	Raw     [InfoBlobSize]byte
	Version string
}

// ParseInfoResponse decodes an INFO response payload. The version
// string is the payload up to its first NUL byte.
func ParseInfoResponse(payload []byte) (*BootloaderInfo, error) {
	if len(payload) != InfoBlobSize {
		return nil, fmt.Errorf("INFO response must be %d bytes, got %d", InfoBlobSize, len(payload))
	}
	info := &BootloaderInfo{}
	copy(info.Raw[:], payload)

	end := len(payload)
	for i, b := range payload {
		if b == 0 {
			end = i
			break
		}
	}
	info.Version = string(payload[:end])
	return info, nil
}

// ParseIDResponse decodes an ID response payload into the board's
// 8-byte unique identifier.
func ParseIDResponse(payload []byte) ([8]byte, error) {
	var id [8]byte
	if len(payload) != IDSize {
		return id, fmt.Errorf("ID response must be %d bytes, got %d", IDSize, len(payload))
	}
	copy(id[:], payload)
	return id, nil
}

// ParseCRCResponse decodes a CRC_IFLASH response payload into the
// 32-bit CRC value.
func ParseCRCResponse(payload []byte) (uint32, error) {
	if len(payload) != 4 {
		return 0, fmt.Errorf("CRC response must be 4 bytes, got %d", len(payload))
	}
	return binary.LittleEndian.Uint32(payload), nil
}

// ParseAttributeResponse validates a GET_ATTRIBUTE response payload and
// returns the raw 64-byte slot data for the board package to decode.
func ParseAttributeResponse(payload []byte) ([]byte, error) {
	if len(payload) != AttributeSlotSize {
		return nil, fmt.Errorf("attribute response must be %d bytes, got %d", AttributeSlotSize, len(payload))
	}
	return payload, nil
}
