package board

import "context"

// Interface is the capability surface every transport must implement.
// The app-layout engine is written entirely against this interface and
// never assumes a particular transport; avoid widening it to anything
// beyond what the layout engine actually calls.
type Interface interface {
	// Open establishes the underlying connection (serial port, JTAG
	// session, flash-file handle).
	Open(ctx context.Context) error

	// EnterBootloaderMode switches the board into a state where flash
	// operations are accepted.
	EnterBootloaderMode(ctx context.Context) error

	// ExitBootloaderMode returns the board to normal execution.
	ExitBootloaderMode(ctx context.Context) error

	// ReadRange reads length bytes starting at addr.
	ReadRange(ctx context.Context, addr uint32, length uint32) ([]byte, error)

	// FlashBinary writes binary starting at addr.
	FlashBinary(ctx context.Context, addr uint32, binary []byte) error

	// ErasePage erases the page containing addr.
	ErasePage(ctx context.Context, addr uint32) error

	// ClearBytes invalidates the bytes at addr without a full page
	// erase, where the transport supports it (otherwise equivalent to
	// an erase of the containing page).
	ClearBytes(ctx context.Context, addr uint32, length uint32) error

	// GetAttribute reads attribute slot i.
	GetAttribute(ctx context.Context, index int) (Attribute, error)

	// SetAttribute writes attribute slot i.
	SetAttribute(ctx context.Context, index int, attr Attribute) error

	// GetAllAttributes reads every attribute slot.
	GetAllAttributes(ctx context.Context) ([]Attribute, error)

	// GetBoardName returns the board's "board" attribute.
	GetBoardName(ctx context.Context) (string, error)

	// GetBoardArch returns the board's "arch" attribute.
	GetBoardArch(ctx context.Context) (string, error)

	// GetPageSize returns the board's flash page size in bytes.
	GetPageSize(ctx context.Context) (uint32, error)

	// GetAppsStartAddress returns the apps region's base address.
	GetAppsStartAddress(ctx context.Context) (uint32, error)

	// TranslateAddress converts a kernel-visible address into the
	// address this transport actually issues I/O against. Boards whose
	// kernel-visible address differs from the programmer-visible one
	// (memory-mapped QSPI, a flash-file offset) override this; the
	// default behavior for most transports is the identity function.
	TranslateAddress(addr uint32) uint32

	// AttachedBoardExists reports whether a board is currently reachable
	// through this transport (device file present, JTAG probe attached).
	AttachedBoardExists(ctx context.Context) (bool, error)

	// BootloaderIsPresent reports whether a bootloader responds, or nil
	// if the transport cannot determine this (mirroring the source's
	// Option<bool>).
	BootloaderIsPresent(ctx context.Context) (*bool, error)
}
