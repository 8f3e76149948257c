package layout

import (
	"context"
	"encoding/binary"
	"errors"

	"github.com/tock-tools/tockloader-go/app"
	"github.com/tock-tools/tockloader-go/board"
	"github.com/tock-tools/tockloader-go/tbf"
)

// probeHeaderSize is the number of bytes read at each candidate
// address before a header's declared header_length is known. It is
// large enough to hold the base header plus a generous set of TLVs;
// ExtractInstalledApps re-reads the exact header_length once it knows
// it, so an undersized probe only costs an extra round trip, never
// correctness.
const probeHeaderSize = 256

// ExtractInstalledApps walks the TBF linked list starting at
// apps_start_address, stopping at the first address that fails to
// parse (erased flash, or a genuinely corrupt header) or once maxScan
// headers have been read. readBinaries controls whether each app's
// binary body is also read, which extract needs for any app that
// might move during placement.
func ExtractInstalledApps(ctx context.Context, iface board.Interface, readBinaries bool, maxScan int) ([]app.App, error) {
	start, err := iface.GetAppsStartAddress(ctx)
	if err != nil {
		return nil, err
	}

	var apps []app.App
	addr := start

	for i := 0; maxScan <= 0 || i < maxScan; i++ {
		if err := ctx.Err(); err != nil {
			return apps, err
		}

		probe, err := iface.ReadRange(ctx, addr, probeHeaderSize)
		if err != nil {
			return apps, err
		}
		// tbf.Parse rejects a buffer shorter than header_length, so a
		// longer header is re-read in full before parsing.
		if len(probe) >= tbf.BaseHeaderSize && binary.LittleEndian.Uint16(probe[0:2]) == tbf.Version {
			if hl := uint32(binary.LittleEndian.Uint16(probe[2:4])); hl > probeHeaderSize {
				if probe, err = iface.ReadRange(ctx, addr, hl); err != nil {
					return apps, err
				}
			}
		}

		hdr, err := tbf.Parse(probe)
		if err != nil {
			var invalidHeader *tbf.InvalidHeaderError
			if errors.As(err, &invalidHeader) {
				break // erased flash or end-of-list marker: normal termination
			}
			return apps, err
		}

		// App.Binary() holds the payload following the header, never
		// the header bytes themselves, matching the convention
		// tab.AppFor's members use for TAB-supplied binaries.
		var bin []byte
		if readBinaries {
			full, err := iface.ReadRange(ctx, addr, hdr.TotalLength)
			if err != nil {
				return apps, err
			}
			bin = full[hdr.HeaderLength:]
		}

		if hdr.IsApp() {
			apps = append(apps, &app.InstalledApp{
				Addr:   addr,
				Hdr:    hdr,
				Bin:    bin,
				Sticky: hdr.HasFlag(tbf.FlagSticky),
			})
		} else {
			apps = append(apps, &app.PaddingApp{Addr: addr, Hdr: hdr})
		}

		addr += hdr.TotalLength
	}

	return apps, nil
}
