package layout

import (
	"bytes"
	"context"

	"github.com/tock-tools/tockloader-go/board"
)

// WriteOptions configures how placement ops become transport writes.
type WriteOptions struct {
	// BundleApps concatenates every op's bytes into one contiguous
	// write spanning the whole apps region, instead of one write per
	// op. Useful for transports where per-command overhead dominates.
	BundleApps bool

	// Installed is a snapshot of the region's current bytes, keyed by
	// address, used for the diff-skip check: an op whose bytes already
	// match flash is not rewritten. A nil map disables the check (every
	// op is written).
	Installed map[uint32][]byte
}

// WriteOption is a functional option for Execute.
type WriteOption func(*WriteOptions)

// WithBundleApps concatenates all writes into a single transport call.
func WithBundleApps() WriteOption {
	return func(o *WriteOptions) { o.BundleApps = true }
}

// WithInstalledSnapshot supplies the pre-placement flash contents for
// the diff-skip check.
func WithInstalledSnapshot(snapshot map[uint32][]byte) WriteOption {
	return func(o *WriteOptions) { o.Installed = snapshot }
}

// Execute issues the writes described by ops through iface, page-
// aligning each op and merging ops that share a page, and skipping any op whose bytes
// already match the installed snapshot.
func Execute(ctx context.Context, iface board.Interface, ops []Op, pageSize uint32, opts ...WriteOption) error {
	var cfg WriteOptions
	for _, o := range opts {
		o(&cfg)
	}

	pending := filterUnchanged(ops, cfg.Installed)
	if len(pending) == 0 {
		return nil
	}

	if cfg.BundleApps {
		return executeBundled(ctx, iface, pending, pageSize)
	}

	for i := 0; i < len(pending); {
		// Ops sharing a page are written together, so one op's 0xFF
		// page fill cannot erase its neighbour's bytes.
		j := i + 1
		for pageSize != 0 && j < len(pending) &&
			pending[j].Addr/pageSize < (pending[j-1].Addr+uint32(len(pending[j-1].Emit))+pageSize-1)/pageSize {
			j++
		}
		var err error
		if j == i+1 {
			err = writeOpPageAligned(ctx, iface, pending[i], pageSize)
		} else {
			err = executeBundled(ctx, iface, pending[i:j], pageSize)
		}
		if err != nil {
			return err
		}
		i = j
	}
	return nil
}

// filterUnchanged drops ops whose bytes already match installed at the
// same address, so an interrupted prior run does not force a full
// rewrite on resume.
func filterUnchanged(ops []Op, installed map[uint32][]byte) []Op {
	if installed == nil {
		return ops
	}
	var out []Op
	for _, op := range ops {
		if prior, ok := installed[op.Addr]; ok && bytes.Equal(prior, op.Emit) {
			continue
		}
		out = append(out, op)
	}
	return out
}

// writeOpPageAligned expands op to full page boundaries (padding with
// the surrounding installed bytes is the caller's responsibility via
// the board.Interface read-modify-write contract; here we simply pad
// with 0xFF, matching erased flash, since pages straddled by a single
// op's own bytes are the common case the layout engine produces).
func writeOpPageAligned(ctx context.Context, iface board.Interface, op Op, pageSize uint32) error {
	if pageSize == 0 {
		return iface.FlashBinary(ctx, op.Addr, op.Emit)
	}

	alignedAddr := op.Addr - op.Addr%pageSize
	end := op.Addr + uint32(len(op.Emit))
	alignedEnd := end
	if end%pageSize != 0 {
		alignedEnd = end + (pageSize - end%pageSize)
	}

	buf := make([]byte, alignedEnd-alignedAddr)
	for i := range buf {
		buf[i] = 0xFF
	}
	copy(buf[op.Addr-alignedAddr:], op.Emit)

	return iface.FlashBinary(ctx, alignedAddr, buf)
}

// executeBundled concatenates every op into one contiguous, page-
// aligned write spanning from the first op's address to the last op's
// end, filling any gaps between them with erased bytes.
func executeBundled(ctx context.Context, iface board.Interface, ops []Op, pageSize uint32) error {
	if len(ops) == 0 {
		return nil
	}

	start := ops[0].Addr
	end := ops[0].Addr
	for _, op := range ops {
		if op.Addr < start {
			start = op.Addr
		}
		if opEnd := op.Addr + uint32(len(op.Emit)); opEnd > end {
			end = opEnd
		}
	}

	alignedStart := start
	if pageSize != 0 {
		alignedStart = start - start%pageSize
	}
	alignedEnd := end
	if pageSize != 0 && end%pageSize != 0 {
		alignedEnd = end + (pageSize - end%pageSize)
	}

	buf := make([]byte, alignedEnd-alignedStart)
	for i := range buf {
		buf[i] = 0xFF
	}
	for _, op := range ops {
		copy(buf[op.Addr-alignedStart:], op.Emit)
	}

	return iface.FlashBinary(ctx, alignedStart, buf)
}
