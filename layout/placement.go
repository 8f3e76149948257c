package layout

import (
	"fmt"

	"github.com/tock-tools/tockloader-go/app"
)

// candidateAlignment is the granularity fixed-address candidates are
// rounded down to while searching for a start address.
const candidateAlignment = 1024

// Op is one unit of work the write stage executes: write Emit at Addr.
// App identifies which app.App (or synthesized padding) the op belongs
// to, for logging and for the write stage's diff-skip check.
type Op struct {
	Addr uint32
	App  app.App
	Emit []byte
}

// PlaceOptions configures the placement algorithm.
type PlaceOptions struct {
	Alignment AlignmentPolicy

	// PreserveOrder disables the default fixed-address-first sort,
	// walking apps in the exact order given (a layout override).
	PreserveOrder bool
}

// PlaceOption is a functional option for Place.
type PlaceOption func(*PlaceOptions)

// WithAlignmentPolicy overrides the MPU alignment predicate. Default
// is CortexMMPUPolicy.
func WithAlignmentPolicy(p AlignmentPolicy) PlaceOption {
	return func(o *PlaceOptions) { o.Alignment = p }
}

// WithPreserveOrder disables the fixed-address-first sort.
func WithPreserveOrder() PlaceOption {
	return func(o *PlaceOptions) { o.PreserveOrder = true }
}

func defaultPlaceOptions() PlaceOptions {
	return PlaceOptions{Alignment: CortexMMPUPolicy{}}
}

// Place computes the sequence of writes needed to lay out apps
// starting at startAddr. It mutates each app's header in place
// (AdjustStartingAddress, SetAppSize) and, for an unresolved TabApp,
// selects the variant whose fixed address actually fits.
func Place(apps []app.App, startAddr uint32, opts ...PlaceOption) ([]Op, error) {
	cfg := defaultPlaceOptions()
	for _, o := range opts {
		o(&cfg)
	}

	ordered := apps
	if !cfg.PreserveOrder {
		ordered = sortFixedFirst(apps)
	}

	var ops []Op
	cursor := startAddr
	seenFixed := map[uint32]bool{}

	for _, a := range ordered {
		addr, variantIdx, hasFixed, err := resolveCandidate(a, cursor)
		if err != nil {
			return nil, err
		}

		if hasFixed {
			if seenFixed[addr] {
				return nil, &DuplicateFixedAddressError{Addr: addr}
			}
			if addr < cursor {
				return nil, &PlacementImpossibleError{Reason: fmt.Sprintf(
					"fixed address 0x%08x for %q lies behind the placement cursor at 0x%08x", addr, a.Name(), cursor)}
			}
			seenFixed[addr] = true
			if addr > cursor {
				ops = append(ops, paddingOp(cursor, addr-cursor))
			}
			cursor = addr
		} else {
			aligned := cfg.Alignment.NextAlignedAddr(cursor, a.TotalSize())
			if aligned > cursor {
				ops = append(ops, paddingOp(cursor, aligned-cursor))
			}
			cursor = aligned
		}

		if ta, ok := a.(*app.TabApp); ok && ta.Selected < 0 {
			ta.Selected = variantIdx
		}

		size := a.TotalSize()
		if !hasFixed {
			if alignedSize := cfg.Alignment.NextAlignedSize(size); alignedSize > size {
				if h := a.Header(); h != nil {
					h.SetAppSize(alignedSize)
				}
				size = alignedSize
			}
		}

		if h := a.Header(); h != nil {
			h.AdjustStartingAddress(cursor)
		}

		ops = append(ops, Op{Addr: cursor, App: a, Emit: emitApp(a)})
		cursor += size
	}

	return ops, nil
}

// sortFixedFirst returns apps with every fixed-address app (or
// unresolved TabApp with at least one fixed-address variant) moved ahead of
// the non-fixed ones, each group keeping its relative input order.
// Fixed-address apps are further ordered by ascending candidate
// address so the cursor never has to jump backward.
func sortFixedFirst(apps []app.App) []app.App {
	type entry struct {
		a         app.App
		candidate uint32
		hasFixed  bool
	}
	entries := make([]entry, len(apps))
	for i, a := range apps {
		addr, _, hasFixed, _ := resolveCandidate(a, 0)
		entries[i] = entry{a: a, candidate: addr, hasFixed: hasFixed}
	}

	// Stable partition + sort: fixed-address entries ascending by
	// candidate, then non-fixed entries in original order.
	var fixed, rest []entry
	for _, e := range entries {
		if e.hasFixed {
			fixed = append(fixed, e)
		} else {
			rest = append(rest, e)
		}
	}
	for i := 1; i < len(fixed); i++ {
		for j := i; j > 0 && fixed[j-1].candidate > fixed[j].candidate; j-- {
			fixed[j-1], fixed[j] = fixed[j], fixed[j-1]
		}
	}

	out := make([]app.App, 0, len(apps))
	for _, e := range fixed {
		out = append(out, e.a)
	}
	for _, e := range rest {
		out = append(out, e.a)
	}
	return out
}

// resolveCandidate returns the fixed-address candidate for a, if any.
// For an unresolved TabApp (multiple variants, no Selected yet), it
// picks the variant with the smallest candidate at or after cursor;
// variantIdx is -1 when a is not a TabApp or is already resolved.
//
// The candidate is where the TBF header itself must start, not where
// the application binary must land: FixedAddresses.FlashAddress names
// the binary's required address, so the header's own (unpadded) length
// is subtracted first. Place grows the header's protected region
// afterward to close whatever gap rounding down to candidateAlignment
// leaves, so the binary still ends up exactly at FlashAddress.
func resolveCandidate(a app.App, cursor uint32) (addr uint32, variantIdx int, hasFixed bool, err error) {
	ta, isTabApp := a.(*app.TabApp)
	if isTabApp && ta.Selected < 0 {
		best, fallback := -1, -1
		var bestAddr, fallbackAddr uint32
		for i, v := range ta.Variants {
			if faddr, ok := v.Hdr.FixedFlashAddress(); ok {
				c := candidateStart(faddr, uint32(len(v.Hdr.Emit())))
				if c >= cursor && (best == -1 || c < bestAddr) {
					best, bestAddr = i, c
				}
				if fallback == -1 || c < fallbackAddr {
					fallback, fallbackAddr = i, c
				}
			}
		}
		if best >= 0 {
			return bestAddr, best, true, nil
		}
		if fallback >= 0 {
			// Every candidate lies behind cursor; Place reports that.
			return fallbackAddr, fallback, true, nil
		}
		return 0, 0, false, nil // variant 0 is the non-fixed fallback
	}

	h := a.Header()
	if h == nil {
		return 0, -1, false, nil
	}
	if faddr, ok := h.FixedFlashAddress(); ok {
		return candidateStart(faddr, uint32(len(h.Emit()))), -1, true, nil
	}
	return 0, -1, false, nil
}

// candidateStart rounds flashAddr - headerSize down to the placement
// search granularity, the earliest aligned address a header of this
// size could start at and still leave the application binary at
// flashAddr once any necessary protected-region padding is added.
func candidateStart(flashAddr, headerSize uint32) uint32 {
	base := flashAddr
	if headerSize < base {
		base -= headerSize
	} else {
		base = 0
	}
	return (base / candidateAlignment) * candidateAlignment
}

func paddingOp(addr, size uint32) Op {
	pad := app.NewPaddingApp(addr, size)
	return Op{Addr: addr, App: pad, Emit: emitApp(pad)}
}

// emitApp serializes an app's header, its protected-region padding (if
// AdjustStartingAddress grew one), and its binary payload, ready to
// write at its final address. The binary is truncated if the protected
// region ate into the space total_length had reserved for it, matching
// a header whose total_length did not grow along with its protection.
func emitApp(a app.App) []byte {
	h := a.Header()
	if h == nil {
		return nil
	}
	out := h.Emit()
	if gap := int(h.ProtectedSize()); gap > 0 {
		out = append(out, make([]byte, gap)...)
	}
	body := a.Binary()
	if room := int(a.TotalSize()) - len(out); room < len(body) {
		body = body[:max(room, 0)]
	}
	out = append(out, body...)
	if pad := int(a.TotalSize()) - len(out); pad > 0 {
		out = append(out, make([]byte, pad)...)
	}
	return out
}
