package layout

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tock-tools/tockloader-go/app"
	"github.com/tock-tools/tockloader-go/tbf"
)

func installedApp(name string, totalLength uint32, sticky bool) *app.InstalledApp {
	h := buildHeader(name, totalLength, nil)
	if sticky {
		h.SetFlag(tbf.FlagSticky, true)
	}
	return &app.InstalledApp{Addr: 0x40000, Hdr: h, Sticky: sticky}
}

func TestMergeReplaceYesRemovesMatchingInstalled(t *testing.T) {
	old := installedApp("blink", 512, false)
	incoming := buildTabApp("blink", 1024, nil)

	result := Merge([]app.App{old}, []*app.TabApp{incoming}, MergePolicy{Replace: ReplaceYes})
	require.Len(t, result, 1)
	require.Equal(t, incoming, result[0])
}

func TestMergeReplaceYesKeepsStickyWithoutForce(t *testing.T) {
	old := installedApp("blink", 512, true)
	incoming := buildTabApp("blink", 1024, nil)

	result := Merge([]app.App{old}, []*app.TabApp{incoming}, MergePolicy{Replace: ReplaceYes})
	require.Len(t, result, 2, "sticky app should survive alongside the new one without Force")
}

func TestMergeReplaceYesForceRemovesSticky(t *testing.T) {
	old := installedApp("blink", 512, true)
	incoming := buildTabApp("blink", 1024, nil)

	result := Merge([]app.App{old}, []*app.TabApp{incoming}, MergePolicy{Replace: ReplaceYes, Force: true})
	require.Len(t, result, 1)
}

func TestMergeReplaceNoKeepsBoth(t *testing.T) {
	old := installedApp("blink", 512, false)
	incoming := buildTabApp("blink", 1024, nil)

	result := Merge([]app.App{old}, []*app.TabApp{incoming}, MergePolicy{Replace: ReplaceNo})
	require.Len(t, result, 2)
}

func TestMergeReplaceOnlyInstallsOnlyMatchingNames(t *testing.T) {
	old := installedApp("blink", 512, false)
	matching := buildTabApp("blink", 1024, nil)
	unrelated := buildTabApp("new_app", 1024, nil)

	result := Merge([]app.App{old}, []*app.TabApp{matching, unrelated}, MergePolicy{Replace: ReplaceOnly})

	var names []string
	for _, a := range result {
		names = append(names, a.Name())
	}
	require.ElementsMatch(t, []string{"blink"}, names)
}

func TestMergeErasePolicyDropsNonSticky(t *testing.T) {
	old := installedApp("leftover", 512, false)
	stickyOld := installedApp("keeper", 512, true)
	incoming := buildTabApp("new_app", 1024, nil)

	result := Merge([]app.App{old, stickyOld}, []*app.TabApp{incoming},
		MergePolicy{Replace: ReplaceNo, Erase: true})

	var names []string
	for _, a := range result {
		names = append(names, a.Name())
	}
	require.ElementsMatch(t, []string{"keeper", "new_app"}, names)
}

func TestMergeDropsPaddingFromInstalled(t *testing.T) {
	pad := app.NewPaddingApp(0x40000, 256)
	result := Merge([]app.App{pad}, nil, MergePolicy{})
	require.Empty(t, result)
}
