package tab

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/tock-tools/tockloader-go/app"
	"github.com/tock-tools/tockloader-go/tbf"
)

// Metadata is the decoded contents of a TAB's metadata.toml.
type Metadata struct {
	TabVersion             int      `toml:"tab-version"`
	Name                   string   `toml:"name"`
	KernelVersion          string   `toml:"kernel-version"`
	OnlyForBoards          []string `toml:"only-for-boards"`
	BuildDate              string   `toml:"build-date"`
	MinimumTockKernelVersion string `toml:"minimum-tock-kernel-version"`
}

// member is one <arch>[.<suffix>].tbf entry extracted from the archive.
type member struct {
	arch   string
	hdr    *tbf.Header
	binary []byte
}

// Tab is a parsed TAB file: its metadata plus every architecture
// variant it carries.
type Tab struct {
	Metadata Metadata
	members  []member
}

// Open parses a TAB archive already read into memory. Tockloader's own
// job of locating a .tab file on disk is out of this package's scope;
// callers supply the bytes however they obtained them.
func Open(raw []byte) (*Tab, error) {
	tr := tar.NewReader(bytes.NewReader(raw))

	var metaBytes []byte
	var members []member

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &InvalidTabError{Reason: fmt.Sprintf("corrupt tar archive: %v", err)}
		}

		body, err := io.ReadAll(tr)
		if err != nil {
			return nil, &InvalidTabError{Reason: fmt.Sprintf("reading %s: %v", hdr.Name, err)}
		}

		switch {
		case hdr.Name == "metadata.toml":
			metaBytes = body
		case strings.HasSuffix(hdr.Name, ".tbf"):
			m, err := parseMember(hdr.Name, body)
			if err != nil {
				return nil, err
			}
			members = append(members, m)
		}
	}

	if metaBytes == nil {
		return nil, &InvalidTabError{Reason: "missing metadata.toml"}
	}
	var meta Metadata
	if err := toml.Unmarshal(metaBytes, &meta); err != nil {
		return nil, &InvalidTabError{Reason: fmt.Sprintf("decoding metadata.toml: %v", err)}
	}
	if len(members) == 0 {
		return nil, &InvalidTabError{Reason: "no .tbf members"}
	}

	return &Tab{Metadata: meta, members: members}, nil
}

// parseMember strips the .tbf extension to get the architecture name —
// "<arch>.tbf" or "<arch>.<suffix>.tbf" both yield everything before the
// final ".tbf" as the arch token, matching get_supported_architectures.
func parseMember(name string, raw []byte) (member, error) {
	arch := strings.TrimSuffix(name, ".tbf")

	hdr, err := tbf.Parse(raw)
	if err != nil {
		return member{}, &InvalidTabError{Reason: fmt.Sprintf("%s: invalid TBF: %v", name, err)}
	}
	if int(hdr.HeaderLength) > len(raw) {
		return member{}, &InvalidTabError{Reason: fmt.Sprintf("%s: header longer than file", name)}
	}
	binary := raw[hdr.HeaderLength:]
	if hdr.TotalLength < uint32(hdr.HeaderLength)+uint32(len(binary)) {
		return member{}, &InvalidTabError{Reason: fmt.Sprintf("%s: binary longer than declared total_size", name)}
	}

	return member{arch: arch, hdr: hdr, binary: binary}, nil
}

// Variants returns the architectures this TAB carries a compiled binary
// for.
func (t *Tab) Variants() []string {
	out := make([]string, 0, len(t.members))
	for _, m := range t.members {
		out = append(out, m.arch)
	}
	return out
}

// IsCompatibleWithBoard reports whether the metadata's only-for-boards
// restriction (if any) includes board.
func (t *Tab) IsCompatibleWithBoard(board string) bool {
	if len(t.Metadata.OnlyForBoards) == 0 {
		return true
	}
	for _, b := range t.Metadata.OnlyForBoards {
		if b == board {
			return true
		}
	}
	return false
}

// AppFor builds an app.TabApp from every member matching arch,
// excluding variants whose FixedAddresses RAM address disagrees with
// ramAddressFilter when one is supplied. Returns UnsupportedArchError
// if arch has no member at all.
func (t *Tab) AppFor(arch string, ramAddressFilter *uint32) (*app.TabApp, error) {
	var variants []app.TbfVariant
	for _, m := range t.members {
		if m.arch != arch {
			continue
		}
		if ramAddressFilter != nil {
			if ramAddr, ok := m.hdr.FixedRAMAddress(); ok && ramAddr != *ramAddressFilter {
				continue
			}
		}
		variants = append(variants, app.TbfVariant{Arch: m.arch, Hdr: m.hdr, Binary: m.binary})
	}
	if len(variants) == 0 {
		return nil, &UnsupportedArchError{Arch: arch}
	}

	name := t.Metadata.Name
	if name == "" {
		if n := variants[0].Hdr.PackageName(); n != "" {
			name = n
		}
	}

	selected := 0
	if len(variants) > 1 {
		selected = -1 // multiple fixed-address candidates: placement picks
	}
	return &app.TabApp{NameField: name, Variants: variants, Selected: selected}, nil
}
