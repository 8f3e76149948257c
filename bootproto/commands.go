package bootproto

import (
	"encoding/binary"
	"fmt"
)

// escape doubles every Esc byte in payload, per the framing rule.
func escape(payload []byte) []byte {
	out := make([]byte, 0, len(payload))
	for _, b := range payload {
		out = append(out, b)
		if b == Esc {
			out = append(out, Esc)
		}
	}
	return out
}

// unescape collapses every doubled Esc byte in payload back to one.
func unescape(payload []byte) []byte {
	out := make([]byte, 0, len(payload))
	for i := 0; i < len(payload); i++ {
		out = append(out, payload[i])
		if payload[i] == Esc && i+1 < len(payload) && payload[i+1] == Esc {
			i++
		}
	}
	return out
}

// buildCmd frames cmd with an (already unescaped) payload.
func buildCmd(cmd byte, payload []byte) []byte {
	frame := make([]byte, 0, 2+len(payload)*2)
	frame = append(frame, Esc, cmd)
	frame = append(frame, escape(payload)...)
	return frame
}

// BuildPingCmd constructs a PING command frame. Expect PONG in reply.
func BuildPingCmd() []byte { return buildCmd(CmdPing, nil) }

// BuildInfoCmd constructs an INFO command frame.
func BuildInfoCmd() []byte { return buildCmd(CmdInfo, nil) }

// BuildIDCmd constructs an ID command frame.
func BuildIDCmd() []byte { return buildCmd(CmdID, nil) }

// BuildReadRangeCmd constructs a READ_RANGE command frame for length
// bytes starting at addr.
func BuildReadRangeCmd(addr uint32, length uint16) []byte {
	payload := make([]byte, 6)
	binary.LittleEndian.PutUint32(payload[0:4], addr)
	binary.LittleEndian.PutUint16(payload[4:6], length)
	return buildCmd(CmdReadRange, payload)
}

// BuildWritePageCmd constructs a WRITE_PAGE command frame writing page
// starting at addr.
func BuildWritePageCmd(addr uint32, page []byte) []byte {
	payload := make([]byte, 4+len(page))
	binary.LittleEndian.PutUint32(payload[0:4], addr)
	copy(payload[4:], page)
	return buildCmd(CmdWritePage, payload)
}

// BuildErasePageCmd constructs an ERASE_PAGE command frame for the page
// containing addr.
func BuildErasePageCmd(addr uint32) []byte {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, addr)
	return buildCmd(CmdErasePage, payload)
}

// BuildCRCInternalFlashCmd constructs a CRC_IFLASH command frame over
// length bytes starting at addr.
func BuildCRCInternalFlashCmd(addr uint32, length uint32) []byte {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint32(payload[0:4], addr)
	binary.LittleEndian.PutUint32(payload[4:8], length)
	return buildCmd(CmdCRCInternalFlash, payload)
}

// BuildChangeBaudCmd constructs a CHANGE_BAUD command frame. mode=Set
// requests the bootloader adopt baud on its next reset; mode=Confirm
// asks it to confirm the rate just negotiated.
func BuildChangeBaudCmd(mode ChangeBaudMode, baud uint32) []byte {
	payload := make([]byte, 5)
	payload[0] = byte(mode)
	binary.LittleEndian.PutUint32(payload[1:5], baud)
	return buildCmd(CmdChangeBaud, payload)
}

// BuildGetAttributeCmd constructs a GET_ATTRIBUTE command frame for
// slot index.
func BuildGetAttributeCmd(index uint8) []byte {
	return buildCmd(CmdGetAttribute, []byte{index})
}

// BuildSetAttributeCmd constructs a SET_ATTRIBUTE command frame for
// slot index. raw must be exactly AttributeSlotSize bytes.
func BuildSetAttributeCmd(index uint8, raw []byte) ([]byte, error) {
	if len(raw) != AttributeSlotSize {
		return nil, fmt.Errorf("attribute slot data must be %d bytes, got %d", AttributeSlotSize, len(raw))
	}
	payload := make([]byte, 1+AttributeSlotSize)
	payload[0] = index
	copy(payload[1:], raw)
	return buildCmd(CmdSetAttribute, payload), nil
}

// BuildSetStartAddressCmd constructs a SET_START_ADDRESS command frame.
func BuildSetStartAddressCmd(addr uint32) []byte {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, addr)
	return buildCmd(CmdSetStartAddress, payload)
}

// BuildExitCmd constructs an EXIT command frame.
func BuildExitCmd() []byte { return buildCmd(CmdExit, nil) }
