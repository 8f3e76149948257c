package layout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tock-tools/tockloader-go/app"
	"github.com/tock-tools/tockloader-go/tbf"
)

func TestInstallHappyPath(t *testing.T) {
	mb := newMockBoard(64*1024, 0x40000, 512)
	ta := buildTabApp("blink", 1024, nil)

	state, err := Install(context.Background(), mb, []*app.TabApp{ta})
	require.NoError(t, err)
	require.Equal(t, StateDone, state)

	hdr, err := tbf.Parse(mb.flash[0x40000:0x40100])
	require.NoError(t, err)
	require.Equal(t, "blink", hdr.PackageName())
}

func TestInstallAbortsAndExitsBootloaderOnOpenFailure(t *testing.T) {
	mb := newMockBoard(64*1024, 0x40000, 512)
	mb.failOpen = true

	state, err := Install(context.Background(), mb, nil)
	require.Error(t, err)
	require.Equal(t, StateAbort, state)
}

func TestInstallAbortsOnEnterBootloaderFailure(t *testing.T) {
	mb := newMockBoard(64*1024, 0x40000, 512)
	mb.failEnter = true

	state, err := Install(context.Background(), mb, nil)
	require.Error(t, err)
	require.Equal(t, StateAbort, state)
}

func TestInstallClearsTailOfRemovedApp(t *testing.T) {
	mb := newMockBoard(64*1024, 0x40000, 512)
	// Two apps already installed; Erase drops both, and only "first"
	// comes back via incoming, shrinking the occupied region.
	copy(mb.flash[0x40000:], installedAppBytes("first", 512, nil, false))
	copy(mb.flash[0x40200:], installedAppBytes("second", 512, nil, false))

	first := buildTabApp("first", 512, nil)
	state, err := Install(context.Background(), mb, []*app.TabApp{first},
		WithMergePolicy(MergePolicy{Replace: ReplaceYes, Erase: true}))
	require.NoError(t, err)
	require.Equal(t, StateDone, state)

	// The region that used to hold "second" is cleared to erased flash.
	for i := 0x40200; i < 0x40400; i++ {
		require.Equal(t, byte(0xFF), mb.flash[i], "byte at 0x%x should be erased", i)
	}
}

func TestInstallPropagatesPlacementErrors(t *testing.T) {
	mb := newMockBoard(64*1024, 0x40000, 512)
	fixed := uint32(0x41000)
	a := buildTabApp("a", 512, &fixed)
	b := buildTabApp("b", 512, &fixed)

	_, err := Install(context.Background(), mb, []*app.TabApp{a, b})
	require.Error(t, err)
	var dup *DuplicateFixedAddressError
	require.True(t, errors.As(err, &dup))
}
