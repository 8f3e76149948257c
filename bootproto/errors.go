package bootproto

import "fmt"

// BootloaderError wraps an unexpected response code returned for a
// given command.
type BootloaderError struct {
	Command  byte
	Response byte
}

func (e *BootloaderError) Error() string {
	return fmt.Sprintf("command 0x%02X got response %s (0x%02X)", e.Command, responseName(e.Response), e.Response)
}

// IsBadAddr reports whether err is a BootloaderError carrying
// RESPONSE_BADADDR, which the caller should surface directly rather
// than retry — it indicates a programmer bug, not a transient fault.
func IsBadAddr(err error) bool {
	be, ok := err.(*BootloaderError)
	return ok && be.Response == ResponseBadAddr
}

// IsBadArgs reports whether err is a BootloaderError carrying
// RESPONSE_BADARGS.
func IsBadArgs(err error) bool {
	be, ok := err.(*BootloaderError)
	return ok && be.Response == ResponseBadArgs
}

func responseName(code byte) string {
	switch code {
	case ResponsePong:
		return "pong"
	case ResponseBadAddr:
		return "bad address"
	case ResponseInternalError:
		return "internal error"
	case ResponseBadArgs:
		return "bad arguments"
	case ResponseOK:
		return "ok"
	case ResponseUnknown:
		return "unknown command"
	case ResponseReadRange:
		return "read range"
	case ResponseGetAttribute:
		return "get attribute"
	case ResponseCRCInternal:
		return "crc internal flash"
	case ResponseInfo:
		return "info"
	case ResponseChangeBaudFail:
		return "change baud failed"
	default:
		return fmt.Sprintf("unrecognized (0x%02X)", code)
	}
}
