package layout

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tock-tools/tockloader-go/app"
)

func TestPlaceNonFixedAppsAreSequentialAndAligned(t *testing.T) {
	a1 := buildTabApp("one", 1024, nil)
	a2 := buildTabApp("two", 1024, nil)

	ops, err := Place(toAppSliceForTest(a1, a2), 0x40000)
	require.NoError(t, err)
	require.Len(t, ops, 2)

	require.Equal(t, uint32(0x40000), ops[0].Addr)
	require.True(t, CortexMMPUPolicy{}.AlignedOK(ops[0].Addr, 1024))

	require.True(t, ops[1].Addr >= ops[0].Addr+1024)
	require.True(t, CortexMMPUPolicy{}.AlignedOK(ops[1].Addr, 1024))
}

func TestPlaceFixedAddressInsertsPadding(t *testing.T) {
	fixed := uint32(0x41000)
	a1 := buildTabApp("floater", 512, nil)
	a2 := buildTabApp("anchored", 4096, &fixed)

	// The op that writes "anchored" lands where its header must start
	// (fixed minus its own header size, rounded down to
	// candidateAlignment), not at fixed itself — fixed names where the
	// application binary has to end up, and Place grows anchored's
	// protected region to close the remaining gap.
	headerLen := uint32(a2.Variants[0].Hdr.HeaderLength)
	wantStart := ((fixed - headerLen) / candidateAlignment) * candidateAlignment

	ops, err := Place(toAppSliceForTest(a1, a2), 0x40000)
	require.NoError(t, err)

	// sortFixedFirst places the fixed-address app first since it has
	// the smallest ascending candidate.
	var sawAnchor bool
	for _, op := range ops {
		if op.Addr == wantStart && op.App.Name() == "anchored" {
			sawAnchor = true
		}
	}
	require.True(t, sawAnchor, "expected an op at the computed header start 0x%x", wantStart)

	faddr, ok := a2.Variants[0].Hdr.FixedFlashAddress()
	require.True(t, ok)
	require.Equal(t, fixed, faddr, "FixedAddresses.flash names the binary's address and must not move")
}

// TestPlaceFixedAddressAccountsForHeaderSize pins the exact scenario of
// a binary required at 0x38400 with a 0x400-byte header: the header
// must start at 0x38000, landing the binary precisely at 0x38400 with
// no protected-region growth needed, since 0x38400 - 0x400 already
// falls on a candidateAlignment boundary.
func TestPlaceFixedAddressAccountsForHeaderSize(t *testing.T) {
	const (
		binaryAddr  = 0x38400
		headerSize  = 0x400
		wantStart   = 0x38000
		totalLength = 4096
	)

	h := buildFixedHeaderOfSize("s3app", totalLength, binaryAddr, headerSize)
	a := &app.TabApp{
		NameField: "s3app",
		Variants:  []app.TbfVariant{{Arch: "cortex-m4", Hdr: h, Binary: make([]byte, totalLength-headerSize)}},
		Selected:  0,
	}

	ops, err := Place(toAppSliceForTest(a), 0x30000)
	require.NoError(t, err)
	require.Equal(t, uint32(wantStart), ops[len(ops)-1].Addr)

	faddr, ok := h.FixedFlashAddress()
	require.True(t, ok)
	require.Equal(t, uint32(binaryAddr), faddr)
	require.Equal(t, uint32(0), h.ProtectedSize(), "exact alignment needs no protected-region growth")
}

func TestPlaceDuplicateFixedAddressFails(t *testing.T) {
	fixed := uint32(0x41000)
	a1 := buildTabApp("a", 512, &fixed)
	a2 := buildTabApp("b", 512, &fixed)

	_, err := Place(toAppSliceForTest(a1, a2), 0x40000)
	require.Error(t, err)
	var dup *DuplicateFixedAddressError
	require.ErrorAs(t, err, &dup)
}

func TestPlaceResolvesUnresolvedTabAppVariant(t *testing.T) {
	fixed := uint32(0x40400)
	ta := buildUnresolvedTabApp("multi",
		struct {
			TotalLength uint32
			FixedAddr   *uint32
		}{TotalLength: 512, FixedAddr: nil},
		struct {
			TotalLength uint32
			FixedAddr   *uint32
		}{TotalLength: 4096, FixedAddr: &fixed},
	)

	headerLen := uint32(ta.Variants[1].Hdr.HeaderLength)
	wantStart := ((fixed - headerLen) / candidateAlignment) * candidateAlignment

	ops, err := Place(toAppSliceForTest(ta), 0x40000)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	require.Equal(t, wantStart, ops[0].Addr)
	require.Equal(t, 1, ta.Selected)

	faddr, ok := ta.Variants[1].Hdr.FixedFlashAddress()
	require.True(t, ok)
	require.Equal(t, fixed, faddr)
}

func TestPlacePreserveOrderSkipsSort(t *testing.T) {
	fixed := uint32(0x41000)
	a1 := buildTabApp("floater", 512, nil)
	a2 := buildTabApp("anchored", 4096, &fixed)

	headerLen := uint32(a2.Variants[0].Hdr.HeaderLength)
	wantStart := ((fixed - headerLen) / candidateAlignment) * candidateAlignment

	// With PreserveOrder, floater (non-fixed) is walked first and
	// claims the starting cursor; anchored's fixed address then lies
	// ahead of the cursor, which is fine, but it must still come after
	// floater, as the last op in the list.
	ops, err := Place(toAppSliceForTest(a1, a2), 0x40000, WithPreserveOrder())
	require.NoError(t, err)
	require.Equal(t, "floater", ops[0].App.Name())
	require.Equal(t, wantStart, ops[len(ops)-1].Addr)
}
