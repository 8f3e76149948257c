package transport

import (
	"context"
	"fmt"
	"hash/crc32"
	"io"
	"net"
	"time"

	"github.com/tock-tools/tockloader-go/board"
	"github.com/tock-tools/tockloader-go/bootproto"
)

// responseBufferSize is large enough to hold any fixed-size framed
// response this protocol defines, including the largest fixed payload
// (the 192-byte INFO blob) plus framing overhead and escape doubling.
// sendCommandWithResponse adds room for a wantLen-byte payload such as
// a READ_RANGE result, with every byte possibly escape-doubled.
const responseBufferSize = 512

// Serial is the board.Interface implementation that drives a Tock
// bootloader over a framed serial connection. It is safe for use by
// one goroutine at a time; the bootloader protocol has no pipelining.
type Serial struct {
	conn       io.ReadWriteCloser
	devicePath string
	config     Config

	lock           net.Listener
	attributesAddr uint32 // translated address of the attributes table, once known
	pageSize       uint32
	appsStart      uint32
}

// NewSerial creates a Serial transport over conn. devicePath identifies
// the underlying device for the concurrency gate; it need not be a real
// path for a mock conn used in tests, but must be unique per test.
func NewSerial(conn io.ReadWriteCloser, devicePath string, opts ...Option) *Serial {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Serial{conn: conn, devicePath: devicePath, config: cfg}
}

// Open acquires the concurrency-gate lock and pings the bootloader,
// trying the PING-retry entry strategy. The alternative 1200-baud
// reopen strategy requires closing and reopening the underlying
// connection, which is this package's caller's responsibility (only
// they own the physical port); Serial retries PING across whatever
// connection it was given.
func (s *Serial) Open(ctx context.Context) error {
	if !s.config.DisableConcurrencyGate {
		lock, err := acquireLock(s.devicePath)
		if err != nil {
			return err
		}
		s.lock = lock
	}

	for attempt := 0; attempt <= s.config.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.ping(); err == nil {
			s.logDebug("bootloader responded to ping", "attempt", attempt)
			return nil
		}
	}
	return &EntryFailedError{Attempts: s.config.Retries + 1}
}

func (s *Serial) ping() error {
	code, _, err := s.sendCommandWithResponse(bootproto.BuildPingCmd(), 0)
	if err != nil {
		return err
	}
	if code != bootproto.ResponsePong {
		return &bootproto.BootloaderError{Command: bootproto.CmdPing, Response: code}
	}
	return nil
}

// EnterBootloaderMode negotiates the higher baud rate after the PING
// performed during Open. It changes no connection settings itself. A
// declined or unconfirmed change is only logged: the method returns nil
// in that case, so its result does not tell the caller whether the
// higher rate took effect.
func (s *Serial) EnterBootloaderMode(ctx context.Context) error {
	if s.config.NegotiatedBaud == 0 || s.config.NegotiatedBaud == s.config.NominalBaud {
		return nil
	}
	code, _, err := s.sendCommandWithResponse(bootproto.BuildChangeBaudCmd(bootproto.ChangeBaudSet, s.config.NegotiatedBaud), 0)
	if err != nil {
		return err
	}
	if code != bootproto.ResponseOK {
		s.logDebug("baud negotiation declined, staying at nominal rate")
		return nil
	}
	code, _, err = s.sendCommandWithResponse(bootproto.BuildChangeBaudCmd(bootproto.ChangeBaudConfirm, s.config.NegotiatedBaud), 0)
	if err != nil || code != bootproto.ResponseOK {
		s.logDebug("baud confirm failed, reverting to nominal rate")
		return nil
	}
	s.logInfo("negotiated higher baud rate", "baud", s.config.NegotiatedBaud)
	return nil
}

// ExitBootloaderMode sends EXIT and releases the concurrency-gate lock.
// Called on a best-effort basis even when the run is aborting, so it
// never returns an error for an unresponsive device.
func (s *Serial) ExitBootloaderMode(ctx context.Context) error {
	_, _, _ = s.sendCommandWithResponse(bootproto.BuildExitCmd(), 0)
	if s.lock != nil {
		s.lock.Close()
		s.lock = nil
	}
	return nil
}

// ReadRange reads length bytes starting at addr.
func (s *Serial) ReadRange(ctx context.Context, addr uint32, length uint32) ([]byte, error) {
	if length > 0xFFFF {
		return nil, fmt.Errorf("read_range length %d exceeds protocol maximum of 65535", length)
	}
	code, payload, err := s.sendCommandWithResponse(bootproto.BuildReadRangeCmd(addr, uint16(length)), int(length))
	if err != nil {
		return nil, err
	}
	if code != bootproto.ResponseReadRange {
		return nil, &bootproto.BootloaderError{Command: bootproto.CmdReadRange, Response: code}
	}
	return payload, nil
}

// FlashBinary writes binary starting at addr, one WRITE_PAGE per page,
// retrying verification failures up to Config.Retries times.
func (s *Serial) FlashBinary(ctx context.Context, addr uint32, binary []byte) error {
	pageSize := int(s.pageSize)
	if pageSize == 0 {
		return fmt.Errorf("page size unknown: call GetPageSize before FlashBinary")
	}
	if len(binary)%pageSize != 0 {
		return fmt.Errorf("flash_binary length %d is not a multiple of page size %d", len(binary), pageSize)
	}
	if int(addr)%pageSize != 0 {
		return fmt.Errorf("flash_binary address 0x%x is not page-aligned to %d", addr, pageSize)
	}

	start := time.Now()
	totalPages := len(binary) / pageSize

	for i := 0; i < totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		pageAddr := addr + uint32(i*pageSize)
		page := binary[i*pageSize : (i+1)*pageSize]

		if err := s.writePageWithVerify(pageAddr, page); err != nil {
			return err
		}

		s.reportProgress(Progress{
			Phase:        "writing",
			CurrentPage:  i + 1,
			TotalPages:   totalPages,
			BytesWritten: (i + 1) * pageSize,
			Percentage:   100 * float64(i+1) / float64(totalPages),
			ElapsedTime:  time.Since(start),
		})
	}
	return nil
}

func (s *Serial) writePageWithVerify(addr uint32, page []byte) error {
	code, _, err := s.sendCommandWithResponse(bootproto.BuildWritePageCmd(addr, page), 0)
	if err != nil {
		return err
	}
	if code != bootproto.ResponseOK {
		return &bootproto.BootloaderError{Command: bootproto.CmdWritePage, Response: code}
	}
	if !s.config.VerifyAfterWrite {
		return nil
	}

	want := crc32.ChecksumIEEE(page)
	for attempt := 0; attempt <= s.config.Retries; attempt++ {
		got, err := s.crcInternalFlash(addr, uint32(len(page)))
		if err != nil {
			return err
		}
		if got == want {
			return nil
		}
		s.logDebug("flash verify mismatch, retrying", "addr", addr, "attempt", attempt)
		if attempt == s.config.Retries {
			return &FlashVerifyFailedError{Addr: addr, Retries: s.config.Retries}
		}
		if _, _, err := s.sendCommandWithResponse(bootproto.BuildWritePageCmd(addr, page), 0); err != nil {
			return err
		}
	}
	return &FlashVerifyFailedError{Addr: addr, Retries: s.config.Retries}
}

func (s *Serial) crcInternalFlash(addr, length uint32) (uint32, error) {
	code, payload, err := s.sendCommandWithResponse(bootproto.BuildCRCInternalFlashCmd(addr, length), 4)
	if err != nil {
		return 0, err
	}
	if code != bootproto.ResponseCRCInternal {
		return 0, &bootproto.BootloaderError{Command: bootproto.CmdCRCInternalFlash, Response: code}
	}
	return bootproto.ParseCRCResponse(payload)
}

// ErasePage erases the page containing addr.
func (s *Serial) ErasePage(ctx context.Context, addr uint32) error {
	code, _, err := s.sendCommandWithResponse(bootproto.BuildErasePageCmd(addr), 0)
	if err != nil {
		return err
	}
	if code != bootproto.ResponseOK {
		return &bootproto.BootloaderError{Command: bootproto.CmdErasePage, Response: code}
	}
	return nil
}

// ClearBytes invalidates length bytes starting at addr. The serial
// bootloader has no narrower primitive than a full page erase, so this
// erases every page addr..addr+length touches.
func (s *Serial) ClearBytes(ctx context.Context, addr uint32, length uint32) error {
	pageSize := s.pageSize
	if pageSize == 0 {
		pageSize = 512
	}
	start := addr - addr%pageSize
	for p := start; p < addr+length; p += pageSize {
		if err := s.ErasePage(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// GetAttribute reads attribute slot index.
func (s *Serial) GetAttribute(ctx context.Context, index int) (board.Attribute, error) {
	code, payload, err := s.sendCommandWithResponse(bootproto.BuildGetAttributeCmd(uint8(index)), bootproto.AttributeSlotSize)
	if err != nil {
		return board.Attribute{}, err
	}
	if code != bootproto.ResponseGetAttribute {
		return board.Attribute{}, &bootproto.BootloaderError{Command: bootproto.CmdGetAttribute, Response: code}
	}
	attrs, err := board.ParseAttributes(padToFullTable(payload, index))
	if err != nil {
		return board.Attribute{}, err
	}
	return attrs[index], nil
}

// padToFullTable embeds a single 64-byte slot response at its index
// within an otherwise-empty attributes table, so board.ParseAttributes
// (which always decodes the fixed 16-slot layout) can be reused for one
// slot at a time.
func padToFullTable(slot []byte, index int) []byte {
	buf := make([]byte, board.SlotCount*board.SlotSize)
	for i := range buf {
		buf[i] = 0xFF
	}
	copy(buf[index*board.SlotSize:], slot)
	return buf
}

// SetAttribute writes attribute slot index.
func (s *Serial) SetAttribute(ctx context.Context, index int, attr board.Attribute) error {
	slots := make([]board.Attribute, index+1)
	slots[index] = attr
	table, err := board.EncodeAttributes(slots)
	if err != nil {
		return err
	}
	slot := table[index*board.SlotSize : (index+1)*board.SlotSize]
	cmd, err := bootproto.BuildSetAttributeCmd(uint8(index), slot)
	if err != nil {
		return err
	}
	code, _, err := s.sendCommandWithResponse(cmd, 0)
	if err != nil {
		return err
	}
	if code != bootproto.ResponseOK {
		return &bootproto.BootloaderError{Command: bootproto.CmdSetAttribute, Response: code}
	}
	return nil
}

// GetAllAttributes reads every attribute slot.
func (s *Serial) GetAllAttributes(ctx context.Context) ([]board.Attribute, error) {
	attrs := make([]board.Attribute, board.SlotCount)
	for i := 0; i < board.SlotCount; i++ {
		a, err := s.GetAttribute(ctx, i)
		if err != nil {
			return nil, err
		}
		attrs[i] = a
	}
	return attrs, nil
}

// GetBoardName returns the "board" attribute.
func (s *Serial) GetBoardName(ctx context.Context) (string, error) {
	return s.lookupAttribute(ctx, "board")
}

// GetBoardArch returns the "arch" attribute.
func (s *Serial) GetBoardArch(ctx context.Context) (string, error) {
	return s.lookupAttribute(ctx, "arch")
}

func (s *Serial) lookupAttribute(ctx context.Context, key string) (string, error) {
	attrs, err := s.GetAllAttributes(ctx)
	if err != nil {
		return "", err
	}
	if v, ok := board.Lookup(attrs, key); ok {
		return v, nil
	}
	return "", fmt.Errorf("attribute %q not present on board", key)
}

// GetPageSize returns the board's flash page size, caching it for
// FlashBinary's alignment checks.
func (s *Serial) GetPageSize(ctx context.Context) (uint32, error) {
	if s.pageSize != 0 {
		return s.pageSize, nil
	}
	v, err := s.lookupAttribute(ctx, "page_size")
	if err != nil {
		return 0, err
	}
	var size uint32
	if _, err := fmt.Sscanf(v, "0x%x", &size); err != nil {
		if _, err := fmt.Sscanf(v, "%d", &size); err != nil {
			return 0, fmt.Errorf("unparseable page_size attribute %q", v)
		}
	}
	s.pageSize = size
	return size, nil
}

// GetAppsStartAddress returns the apps region's base address.
func (s *Serial) GetAppsStartAddress(ctx context.Context) (uint32, error) {
	if s.appsStart != 0 {
		return s.appsStart, nil
	}
	v, err := s.lookupAttribute(ctx, "appaddr")
	if err != nil {
		return 0, err
	}
	var addr uint32
	if _, err := fmt.Sscanf(v, "0x%x", &addr); err != nil {
		return 0, fmt.Errorf("unparseable appaddr attribute %q", v)
	}
	s.appsStart = addr
	return addr, nil
}

// TranslateAddress is the identity function for a serial bootloader
// transport: the addresses it reads and writes are already the
// kernel-visible ones. Boards with memory-mapped QSPI or a flash-file
// back-end override this at the board.Interface level with a different
// transport implementation.
func (s *Serial) TranslateAddress(addr uint32) uint32 { return addr }

// AttachedBoardExists reports whether the underlying connection is
// present. A serial connection is provided already open by the caller,
// so this is equivalent to "do we have a non-nil conn".
func (s *Serial) AttachedBoardExists(ctx context.Context) (bool, error) {
	return s.conn != nil, nil
}

// BootloaderIsPresent pings the bootloader and reports whether it
// responded.
func (s *Serial) BootloaderIsPresent(ctx context.Context) (*bool, error) {
	ok := s.ping() == nil
	return &ok, nil
}

func (s *Serial) sendCommand(cmd []byte) error {
	if _, err := s.conn.Write(cmd); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// sendCommandWithResponse writes cmd and reads back one framed
// response, returning its response code and payload. wantLen enforces
// an exact payload length when nonzero.
func (s *Serial) sendCommandWithResponse(cmd []byte, wantLen int) (byte, []byte, error) {
	if err := s.sendCommand(cmd); err != nil {
		return 0, nil, err
	}

	buf := make([]byte, responseBufferSize+2*wantLen)
	n, err := s.conn.Read(buf)
	if err != nil {
		return 0, nil, &TransportError{Op: "read", Err: err}
	}

	code, payload, err := bootproto.ParseResponse(buf[:n], wantLen)
	if err != nil {
		return 0, nil, &TransportError{Op: "parse response", Err: err}
	}
	return code, payload, nil
}

func (s *Serial) reportProgress(p Progress) {
	if s.config.ProgressCallback != nil {
		s.config.ProgressCallback(p)
	}
}

func (s *Serial) logDebug(msg string, kv ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, kv...)
	}
}

func (s *Serial) logInfo(msg string, kv ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Info(msg, kv...)
	}
}
