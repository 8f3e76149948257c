package tbf

import (
	"encoding/binary"
)

// Header is a parsed, mutable TBF header. Headers are owned by the App
// value that holds them; footers borrow header metadata only during
// emission, so there are no back-references between the two.
type Header struct {
	HeaderLength uint16
	TotalLength  uint32
	Flags        uint32
	tlvs         []TLV

	// Modified records whether any mutation has happened since Parse,
	// so callers know whether the header needs to be re-flashed.
	Modified bool
}

// NewHeader creates an empty header with no TLVs, for building padding
// apps or constructing a header from scratch.
func NewHeader() *Header {
	return &Header{}
}

// erasedPattern reports whether buf is entirely 0xFF, the pattern of
// erased (unwritten) flash.
func erasedPattern(buf []byte) bool {
	for _, b := range buf {
		if b != 0xFF {
			return false
		}
	}
	return true
}

// Parse reads a TBF header from buf starting at offset 0 (callers slice
// the flash buffer before calling). It returns the parsed header, whose
// HeaderLength is the number of header bytes, or an error if the bytes
// at the start of buf do not form a valid TBF header.
//
// Every base-header failure, including the end-of-list markers (a zero
// total_length or an all-0xFF base header), a bad version or a checksum
// mismatch, is reported as InvalidHeaderError; a malformed TLV is
// reported as InvalidTlvError.
func Parse(buf []byte) (*Header, error) {
	if len(buf) < BaseHeaderSize {
		return nil, &InvalidHeaderError{Reason: "buffer shorter than base header"}
	}
	if erasedPattern(buf[:BaseHeaderSize]) {
		return nil, &InvalidHeaderError{Reason: "erased flash"}
	}

	version := binary.LittleEndian.Uint16(buf[0:2])
	headerLength := binary.LittleEndian.Uint16(buf[2:4])
	totalLength := binary.LittleEndian.Uint32(buf[4:8])
	flags := binary.LittleEndian.Uint32(buf[8:12])
	checksum := binary.LittleEndian.Uint32(buf[12:16])

	if version != Version {
		return nil, &InvalidHeaderError{Reason: "unsupported version"}
	}
	if totalLength == 0 {
		return nil, &InvalidHeaderError{Reason: "zero total_length"}
	}
	if int(headerLength) < BaseHeaderSize || int(headerLength) > len(buf) {
		return nil, &InvalidHeaderError{Reason: "header_length out of range"}
	}
	if totalLength < uint32(headerLength) {
		return nil, &InvalidHeaderError{Reason: "total_length smaller than header_length"}
	}

	// Recompute the checksum with the checksum word zeroed.
	checkBuf := make([]byte, headerLength)
	copy(checkBuf, buf[:headerLength])
	binary.LittleEndian.PutUint32(checkBuf[12:16], 0)
	if computeChecksum(checkBuf) != checksum {
		return nil, &InvalidHeaderError{Reason: "checksum mismatch"}
	}

	h := &Header{HeaderLength: headerLength, TotalLength: totalLength, Flags: flags}

	remaining := int(headerLength) - BaseHeaderSize
	cursor := BaseHeaderSize
	seen := map[uint16]bool{}

	for remaining >= 4 {
		tipe := binary.LittleEndian.Uint16(buf[cursor : cursor+2])
		length := binary.LittleEndian.Uint16(buf[cursor+2 : cursor+4])
		cursor += 4
		remaining -= 4

		if int(length) > remaining {
			return nil, &InvalidTlvError{TlvType: tipe, Reason: "length overruns header_length"}
		}
		body := buf[cursor : cursor+int(length)]

		if isKnownTlvType(tipe) {
			if seen[tipe] {
				return nil, &InvalidTlvError{TlvType: tipe, Reason: "duplicate known TLV"}
			}
			seen[tipe] = true
		}

		tlv, err := parseTLVBody(tipe, body)
		if err != nil {
			return nil, err
		}
		h.tlvs = append(h.tlvs, tlv)

		padded := roundUp4(int(length))
		cursor += padded
		remaining -= padded
	}

	return h, nil
}

func isKnownTlvType(tipe uint16) bool {
	switch tipe {
	case TLVTypeMain, TLVTypeWriteableFlashRegions, TLVTypePackageName,
		TLVTypePicOption1, TLVTypeFixedAddresses, TLVTypePermissions,
		TLVTypePersistentACL, TLVTypeKernelVersion, TLVTypeProgram, TLVTypeShortId:
		return true
	default:
		return false
	}
}

func parseTLVBody(tipe uint16, body []byte) (TLV, error) {
	switch tipe {
	case TLVTypeMain:
		return parseMainTLV(body)
	case TLVTypeProgram:
		return parseProgramTLV(body)
	case TLVTypeWriteableFlashRegions:
		return parseWriteableFlashRegionsTLV(body)
	case TLVTypePackageName:
		return parsePackageNameTLV(body)
	case TLVTypePicOption1:
		return parsePicOption1TLV(body)
	case TLVTypeFixedAddresses:
		return parseFixedAddressesTLV(body)
	case TLVTypePermissions:
		return parsePermissionsTLV(body)
	case TLVTypePersistentACL:
		return parsePersistentACLTLV(body)
	case TLVTypeKernelVersion:
		return parseKernelVersionTLV(body)
	case TLVTypeShortId:
		return parseShortIdTLV(body)
	default:
		return &UnknownTLV{TlvType: tipe, Raw: append([]byte(nil), body...)}, nil
	}
}

// computeChecksum computes the TBF header checksum: the XOR of every
// 32-bit little-endian word of buf. buf's length need not be a multiple
// of 4; a short trailing word is zero-padded for the purpose of the XOR.
func computeChecksum(buf []byte) uint32 {
	var checksum uint32
	for i := 0; i < len(buf); i += 4 {
		var word [4]byte
		n := copy(word[:], buf[i:])
		_ = n
		checksum ^= binary.LittleEndian.Uint32(word[:])
	}
	return checksum
}

// tlvOrderRank gives the canonical emission order: binary descriptor
// first, then the named common TLVs, then remaining known TLVs, then
// Unknown last.
func tlvOrderRank(t TLV) int {
	switch t.Type() {
	case TLVTypeMain, TLVTypeProgram:
		return 0
	case TLVTypeWriteableFlashRegions:
		return 1
	case TLVTypePackageName:
		return 2
	case TLVTypeFixedAddresses:
		return 3
	case TLVTypeKernelVersion:
		return 4
	default:
		if _, ok := t.(*UnknownTLV); ok {
			return 100
		}
		return 10
	}
}

// Emit serializes the header into its canonical on-flash byte
// representation: TLVs in canonical order, header_length 4-byte aligned,
// checksum recomputed with the checksum word zeroed.
func (h *Header) Emit() []byte {
	ordered := append([]TLV(nil), h.tlvs...)
	// Stable sort by rank, preserving relative order within a rank.
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && tlvOrderRank(ordered[j-1]) > tlvOrderRank(ordered[j]); j-- {
			ordered[j-1], ordered[j] = ordered[j], ordered[j-1]
		}
	}

	body := make([]byte, 0, 64)
	for _, t := range ordered {
		body = append(body, t.Pack()...)
	}

	headerLength := roundUp4(BaseHeaderSize + len(body))
	buf := make([]byte, headerLength)
	binary.LittleEndian.PutUint16(buf[0:2], Version)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(headerLength))
	binary.LittleEndian.PutUint32(buf[4:8], h.TotalLength)
	binary.LittleEndian.PutUint32(buf[8:12], h.Flags)
	// checksum word (buf[12:16]) stays zero for the computation
	copy(buf[BaseHeaderSize:], body)

	checksum := computeChecksum(buf)
	binary.LittleEndian.PutUint32(buf[12:16], checksum)

	h.HeaderLength = uint16(headerLength)
	return buf
}

// TLVs returns the header's TLV entries in parse (insertion) order.
func (h *Header) TLVs() []TLV { return h.tlvs }

// GetTLV returns the first TLV of the given type, or nil.
func (h *Header) GetTLV(tipe uint16) TLV {
	for _, t := range h.tlvs {
		if t.Type() == tipe {
			return t
		}
	}
	return nil
}

// AddTLV appends a TLV and marks the header modified.
func (h *Header) AddTLV(t TLV) {
	h.tlvs = append(h.tlvs, t)
	h.Modified = true
}

// ModifyTLV replaces the first TLV of the same type as replacement.
// Returns false if no TLV of that type exists.
func (h *Header) ModifyTLV(replacement TLV) bool {
	for i, t := range h.tlvs {
		if t.Type() == replacement.Type() {
			h.tlvs[i] = replacement
			h.Modified = true
			return true
		}
	}
	return false
}

// DeleteTLV removes the first TLV of the given type. Returns false if
// none was found.
func (h *Header) DeleteTLV(tipe uint16) bool {
	for i, t := range h.tlvs {
		if t.Type() == tipe {
			h.tlvs = append(h.tlvs[:i], h.tlvs[i+1:]...)
			h.Modified = true
			return true
		}
	}
	return false
}

// SetFlag sets or clears a flag bit and marks the header modified.
func (h *Header) SetFlag(bit uint32, set bool) {
	if set {
		h.Flags |= bit
	} else {
		h.Flags &^= bit
	}
	h.Modified = true
}

// HasFlag reports whether a flag bit is set.
func (h *Header) HasFlag(bit uint32) bool { return h.Flags&bit != 0 }

// IsApp reports whether this header carries a Main or Program TLV (as
// opposed to being a padding header).
func (h *Header) IsApp() bool {
	return h.GetTLV(TLVTypeMain) != nil || h.GetTLV(TLVTypeProgram) != nil
}

// HasFooter reports whether this header's app carries a footer (i.e. has
// a Program TLV rather than a Main TLV).
func (h *Header) HasFooter() bool {
	return h.GetTLV(TLVTypeProgram) != nil
}

// BinaryEndOffset returns the Program TLV's binary_end_offset, or
// TotalLength if this header has no Program TLV (no footer).
func (h *Header) BinaryEndOffset() uint32 {
	if p, ok := h.GetTLV(TLVTypeProgram).(*ProgramTLV); ok {
		return p.BinaryEndOffset
	}
	return h.TotalLength
}

// PackageName returns the app's name from its PackageName TLV, or "" if
// absent.
func (h *Header) PackageName() string {
	if n, ok := h.GetTLV(TLVTypePackageName).(*PackageNameTLV); ok {
		return n.Name
	}
	return ""
}

// FixedFlashAddress returns the app's required flash address and whether
// a FixedAddresses TLV is present.
func (h *Header) FixedFlashAddress() (uint32, bool) {
	if f, ok := h.GetTLV(TLVTypeFixedAddresses).(*FixedAddressesTLV); ok {
		return f.FlashAddress, true
	}
	return 0, false
}

// FixedRAMAddress returns the app's required RAM address and whether a
// FixedAddresses TLV is present.
func (h *Header) FixedRAMAddress() (uint32, bool) {
	if f, ok := h.GetTLV(TLVTypeFixedAddresses).(*FixedAddressesTLV); ok {
		return f.RAMAddress, true
	}
	return 0, false
}

// SetAppSize updates total_length. If the header has a Program TLV
// (and therefore a footer), binary_end_offset is left unchanged, which
// grows or shrinks the footer region implicitly.
func (h *Header) SetAppSize(n uint32) {
	h.TotalLength = n
	h.Modified = true
}

// ProtectedSize returns the app's protected region size — the gap
// between the end of the header and the start of the application
// binary — from whichever binary descriptor TLV (Main or Program) is
// present, or 0 if neither is.
func (h *Header) ProtectedSize() uint32 {
	if m, ok := h.GetTLV(TLVTypeMain).(*MainTLV); ok {
		return m.ProtectedSize
	}
	if p, ok := h.GetTLV(TLVTypeProgram).(*ProgramTLV); ok {
		return p.ProtectedSize
	}
	return 0
}

// growProtectedRegionBy increases the protected region by delta bytes,
// pushing the application binary delta bytes further into flash without
// touching the header's own TLV bytes. init_fn_offset is counted from
// the end of the header, so it grows by delta too.
func (h *Header) growProtectedRegionBy(delta uint32) {
	if delta == 0 {
		return
	}
	if m, ok := h.GetTLV(TLVTypeMain).(*MainTLV); ok {
		m.ProtectedSize += delta
		m.InitFnOffset += delta
	}
	if p, ok := h.GetTLV(TLVTypeProgram).(*ProgramTLV); ok {
		p.ProtectedSize += delta
		p.InitFnOffset += delta
	}
	h.Modified = true
}

// AdjustStartingAddress grows the app's protected region, if needed, so
// that its application binary lands exactly at its FixedAddresses TLV's
// flash_address once the header itself is loaded at headerStart. No-op
// if the app has no fixed address, matching the layout engine's habit of
// calling this speculatively on every placed app. headerStart is
// expected to already leave enough room (the caller picked it by
// rounding fixed_address_flash - header_size down to its 1024-byte
// candidate granularity),
// so the header is only ever grown, never shrunk.
func (h *Header) AdjustStartingAddress(headerStart uint32) {
	f, ok := h.GetTLV(TLVTypeFixedAddresses).(*FixedAddressesTLV)
	if !ok {
		return
	}
	current := headerStart + uint32(len(h.Emit())) + h.ProtectedSize()
	if current >= f.FlashAddress {
		return
	}
	h.growProtectedRegionBy(f.FlashAddress - current)
}
