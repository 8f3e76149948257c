package app

import "github.com/tock-tools/tockloader-go/tbf"

// App is the common surface the layout engine operates on. All three
// concrete kinds — InstalledApp, TabApp, PaddingApp — implement it.
type App interface {
	// Header returns the app's TBF header. Never nil.
	Header() *tbf.Header

	// Name returns the app's PackageName, or a synthesized "app_<addr>"
	// name for apps whose header carries none.
	Name() string

	// TotalSize returns the header's total_length.
	TotalSize() uint32

	// Binary returns the app's raw binary bytes, or nil if they were
	// never read (an installed app discovered without reading its body).
	Binary() []byte

	// IsPadding reports whether this App is a PaddingApp.
	IsPadding() bool

	// Modified reports whether this App's header or binary has changed
	// since it was discovered or loaded, and therefore needs writing.
	Modified() bool
}

// IsSticky reports whether a's header has the sticky flag set. Sticky
// apps are removable only under a merge policy's force override.
func IsSticky(a App) bool {
	h := a.Header()
	return h != nil && h.HasFlag(tbf.FlagSticky)
}

// IsEnabled reports whether a's header has the enable flag set.
func IsEnabled(a App) bool {
	h := a.Header()
	return h != nil && h.HasFlag(tbf.FlagEnable)
}

func nameOrSynthesize(h *tbf.Header, addr uint32) string {
	if n := h.PackageName(); n != "" {
		return n
	}
	return synthesizeName(addr)
}

func synthesizeName(addr uint32) string {
	const hex = "0123456789abcdef"
	buf := []byte("app_0x00000000")
	for i := 0; i < 8; i++ {
		shift := uint(28 - i*4)
		buf[6+i] = hex[(addr>>shift)&0xF]
	}
	return string(buf)
}

// InstalledApp is an app discovered by walking flash starting at the
// apps region base.
type InstalledApp struct {
	Addr   uint32
	Hdr    *tbf.Header
	Bin    []byte // nil if the binary body was not read
	Sticky bool
}

func (a *InstalledApp) Header() *tbf.Header { return a.Hdr }
func (a *InstalledApp) Name() string        { return nameOrSynthesize(a.Hdr, a.Addr) }
func (a *InstalledApp) TotalSize() uint32   { return a.Hdr.TotalLength }
func (a *InstalledApp) Binary() []byte      { return a.Bin }
func (a *InstalledApp) IsPadding() bool     { return false }
func (a *InstalledApp) Modified() bool      { return a.Hdr.Modified }

// TbfVariant is one architecture-specific build of a TAB app, paired
// with whatever fixed addresses it was compiled for (if any).
type TbfVariant struct {
	Arch   string
	Hdr    *tbf.Header
	Binary []byte
}

// TabApp is an app supplied from a TAB file. It may carry several
// alternative TBF variants for different architectures or fixed
// addresses; the layout engine or tab.Tab.AppFor narrows this to the
// one variant actually used.
type TabApp struct {
	NameField string
	Variants  []TbfVariant
	Selected  int // index into Variants chosen by placement; -1 if unresolved
}

func (a *TabApp) Header() *tbf.Header {
	if a.Selected < 0 || a.Selected >= len(a.Variants) {
		return nil
	}
	return a.Variants[a.Selected].Hdr
}

func (a *TabApp) Name() string {
	if a.NameField != "" {
		return a.NameField
	}
	if h := a.Header(); h != nil {
		return h.PackageName()
	}
	return ""
}

func (a *TabApp) TotalSize() uint32 {
	if h := a.Header(); h != nil {
		return h.TotalLength
	}
	return 0
}

func (a *TabApp) Binary() []byte {
	if a.Selected < 0 || a.Selected >= len(a.Variants) {
		return nil
	}
	return a.Variants[a.Selected].Binary
}

func (a *TabApp) IsPadding() bool { return false }
func (a *TabApp) Modified() bool  { return true } // always needs writing: it is new to the board

// VariantForArch returns the index of the variant matching arch, or -1.
func (a *TabApp) VariantForArch(arch string) int {
	for i, v := range a.Variants {
		if v.Arch == arch {
			return i
		}
	}
	return -1
}

// PaddingApp is a TBF with no Main/Program TLV whose sole purpose is to
// occupy space in the apps region while keeping the linked list
// traversable.
type PaddingApp struct {
	Addr uint32
	Hdr  *tbf.Header
}

// NewPaddingApp builds a padding header declaring size bytes of total
// length, with no binary descriptor TLV.
func NewPaddingApp(addr uint32, size uint32) *PaddingApp {
	h := tbf.NewHeader()
	h.TotalLength = size
	return &PaddingApp{Addr: addr, Hdr: h}
}

func (a *PaddingApp) Header() *tbf.Header { return a.Hdr }
func (a *PaddingApp) Name() string        { return "padding" }
func (a *PaddingApp) TotalSize() uint32   { return a.Hdr.TotalLength }
func (a *PaddingApp) Binary() []byte      { return nil }
func (a *PaddingApp) IsPadding() bool     { return true }
func (a *PaddingApp) Modified() bool      { return true }
