package layout

import (
	"github.com/tock-tools/tockloader-go/app"
	"github.com/tock-tools/tockloader-go/tbf"
)

// buildHeader constructs and finalizes (Emit, to fix HeaderLength) a
// header carrying a Main TLV, a PackageName TLV, and, if fixedAddr is
// non-nil, a FixedAddresses TLV.
func buildHeader(name string, totalLength uint32, fixedAddr *uint32) *tbf.Header {
	h := tbf.NewHeader()
	h.TotalLength = totalLength
	h.AddTLV(&tbf.MainTLV{})
	h.AddTLV(&tbf.PackageNameTLV{Name: name})
	if fixedAddr != nil {
		h.AddTLV(&tbf.FixedAddressesTLV{FlashAddress: *fixedAddr})
	}
	h.Emit()
	return h
}

// buildFixedHeaderOfSize builds a header carrying a fixed flash address,
// padded with a trailing unknown TLV so its header_length is exactly
// targetHeaderLen — the way a real TBF header reserves extra header
// space with padding TLVs rather than relying on AdjustStartingAddress
// alone to land the binary on a larger gap.
func buildFixedHeaderOfSize(name string, totalLength, fixedAddr, targetHeaderLen uint32) *tbf.Header {
	h := tbf.NewHeader()
	h.TotalLength = totalLength
	h.AddTLV(&tbf.MainTLV{})
	h.AddTLV(&tbf.PackageNameTLV{Name: name})
	h.AddTLV(&tbf.FixedAddressesTLV{FlashAddress: fixedAddr})
	natural := uint32(len(h.Emit()))
	if grow := targetHeaderLen - natural; grow > 0 {
		h.AddTLV(&tbf.UnknownTLV{TlvType: 0x7f, Raw: make([]byte, grow-4)})
	}
	h.Emit()
	return h
}

// buildTabApp builds a single-variant, already-resolved TabApp.
func buildTabApp(name string, totalLength uint32, fixedAddr *uint32) *app.TabApp {
	h := buildHeader(name, totalLength, fixedAddr)
	bin := make([]byte, int(totalLength)-int(h.HeaderLength))
	return &app.TabApp{
		NameField: name,
		Variants:  []app.TbfVariant{{Arch: "cortex-m4", Hdr: h, Binary: bin}},
		Selected:  0,
	}
}

// buildUnresolvedTabApp builds a TabApp with multiple variants and no
// Selected index, for placement to resolve.
func buildUnresolvedTabApp(name string, variants ...struct {
	TotalLength uint32
	FixedAddr   *uint32
}) *app.TabApp {
	ta := &app.TabApp{NameField: name, Selected: -1}
	for _, v := range variants {
		h := buildHeader(name, v.TotalLength, v.FixedAddr)
		bin := make([]byte, int(v.TotalLength)-int(h.HeaderLength))
		ta.Variants = append(ta.Variants, app.TbfVariant{Arch: "cortex-m4", Hdr: h, Binary: bin})
	}
	return ta
}

// toAppSliceForTest adapts a variadic list of *app.TabApp into the
// []app.App Place and Merge expect.
func toAppSliceForTest(apps ...*app.TabApp) []app.App {
	out := make([]app.App, len(apps))
	for i, a := range apps {
		out[i] = a
	}
	return out
}

// installedAppBytes renders name/totalLength/fixedAddr/sticky as the
// raw flash bytes an InstalledApp walk would read back.
func installedAppBytes(name string, totalLength uint32, fixedAddr *uint32, sticky bool) []byte {
	h := buildHeader(name, totalLength, fixedAddr)
	if sticky {
		h.SetFlag(tbf.FlagSticky, true)
	}
	out := h.Emit()
	body := make([]byte, int(totalLength)-len(out))
	for i := range body {
		body[i] = 0xAB
	}
	return append(out, body...)
}
