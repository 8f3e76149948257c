package layout

import (
	"context"
	"errors"

	"github.com/tock-tools/tockloader-go/board"
)

// mockBoard is an in-memory board.Interface backed by a flat flash
// buffer, used to exercise extract/write/Install without a real
// transport. The buffer is indexed by absolute flash address.
type mockBoard struct {
	flash      []byte
	startAddr  uint32
	pageSize   uint32
	attrs      map[int]board.Attribute
	failOpen   bool
	failEnter  bool
	flashCalls int
}

func newMockBoard(size int, startAddr, pageSize uint32) *mockBoard {
	flash := make([]byte, int(startAddr)+size) // size bytes from startAddr on
	for i := range flash {
		flash[i] = 0xFF
	}
	return &mockBoard{flash: flash, startAddr: startAddr, pageSize: pageSize, attrs: map[int]board.Attribute{}}
}

func (m *mockBoard) Open(ctx context.Context) error {
	if m.failOpen {
		return errors.New("mock open failure")
	}
	return nil
}

func (m *mockBoard) EnterBootloaderMode(ctx context.Context) error {
	if m.failEnter {
		return errors.New("mock enter failure")
	}
	return nil
}

func (m *mockBoard) ExitBootloaderMode(ctx context.Context) error { return nil }

func (m *mockBoard) ReadRange(ctx context.Context, addr uint32, length uint32) ([]byte, error) {
	if int(addr)+int(length) > len(m.flash) {
		return nil, errors.New("read out of range")
	}
	out := make([]byte, length)
	copy(out, m.flash[addr:addr+length])
	return out, nil
}

func (m *mockBoard) FlashBinary(ctx context.Context, addr uint32, binary []byte) error {
	m.flashCalls++
	if int(addr)+len(binary) > len(m.flash) {
		return errors.New("write out of range")
	}
	copy(m.flash[addr:], binary)
	return nil
}

func (m *mockBoard) ErasePage(ctx context.Context, addr uint32) error {
	pageStart := addr - addr%m.pageSize
	for i := uint32(0); i < m.pageSize; i++ {
		m.flash[pageStart+i] = 0xFF
	}
	return nil
}

func (m *mockBoard) ClearBytes(ctx context.Context, addr uint32, length uint32) error {
	for i := uint32(0); i < length; i++ {
		m.flash[addr+i] = 0xFF
	}
	return nil
}

func (m *mockBoard) GetAttribute(ctx context.Context, index int) (board.Attribute, error) {
	return m.attrs[index], nil
}

func (m *mockBoard) SetAttribute(ctx context.Context, index int, attr board.Attribute) error {
	m.attrs[index] = attr
	return nil
}

func (m *mockBoard) GetAllAttributes(ctx context.Context) ([]board.Attribute, error) {
	out := make([]board.Attribute, 16)
	for i, a := range m.attrs {
		out[i] = a
	}
	return out, nil
}

func (m *mockBoard) GetBoardName(ctx context.Context) (string, error) { return "mock", nil }
func (m *mockBoard) GetBoardArch(ctx context.Context) (string, error) { return "cortex-m4", nil }
func (m *mockBoard) GetPageSize(ctx context.Context) (uint32, error)  { return m.pageSize, nil }
func (m *mockBoard) GetAppsStartAddress(ctx context.Context) (uint32, error) {
	return m.startAddr, nil
}
func (m *mockBoard) TranslateAddress(addr uint32) uint32 { return addr }
func (m *mockBoard) AttachedBoardExists(ctx context.Context) (bool, error) { return true, nil }
func (m *mockBoard) BootloaderIsPresent(ctx context.Context) (*bool, error) {
	v := true
	return &v, nil
}

var _ board.Interface = (*mockBoard)(nil)
