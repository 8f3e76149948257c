package layout

import "fmt"

// PlacementImpossibleError reports that the placement algorithm could
// not fit every app into the apps region, such as a fixed-address app
// whose candidate start already lies behind the placement cursor. Two
// apps claiming the same fixed address are reported as
// DuplicateFixedAddressError instead.
type PlacementImpossibleError struct {
	Reason string
}

func (e *PlacementImpossibleError) Error() string {
	return fmt.Sprintf("placement impossible: %s", e.Reason)
}

// UnsupportedArchError reports that a TAB had no variant matching the
// board's architecture (and, if a RAM address filter was given, no
// variant agreeing with it either). No function in this package returns
// it; tab.Tab.AppFor reports that case with tab.UnsupportedArchError.
type UnsupportedArchError struct {
	Name string
	Arch string
}

func (e *UnsupportedArchError) Error() string {
	return fmt.Sprintf("app %q has no TBF variant for architecture %q", e.Name, e.Arch)
}

// DuplicateFixedAddressError reports that two apps declared the same
// fixed flash address.
type DuplicateFixedAddressError struct {
	Addr uint32
}

func (e *DuplicateFixedAddressError) Error() string {
	return fmt.Sprintf("two apps both require fixed flash address 0x%08x", e.Addr)
}
