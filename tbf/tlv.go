package tbf

import "encoding/binary"

// TLV is one type-length-value entry within a TBF header.
type TLV interface {
	// Type returns the TLV's numeric type identifier.
	Type() uint16
	// Pack serializes the TLV's type, length, and body, padded to a
	// 4-byte boundary. The returned slice is always a multiple of 4 bytes.
	Pack() []byte
}

func packTLV(tipe uint16, body []byte) []byte {
	out := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint16(out[0:2], tipe)
	binary.LittleEndian.PutUint16(out[2:4], uint16(len(body)))
	copy(out[4:], body)
	padding := roundUp4(len(out)) - len(out)
	if padding > 0 {
		out = append(out, make([]byte, padding)...)
	}
	return out
}

// MainTLV describes an app's entry point, protected region, and minimum
// RAM, for apps that have no footer (no Program TLV).
type MainTLV struct {
	InitFnOffset    uint32
	ProtectedSize   uint32
	MinimumRAMSize  uint32
}

func (t *MainTLV) Type() uint16 { return TLVTypeMain }

func (t *MainTLV) Pack() []byte {
	body := make([]byte, mainBodySize)
	binary.LittleEndian.PutUint32(body[0:4], t.InitFnOffset)
	binary.LittleEndian.PutUint32(body[4:8], t.ProtectedSize)
	binary.LittleEndian.PutUint32(body[8:12], t.MinimumRAMSize)
	return packTLV(TLVTypeMain, body)
}

func parseMainTLV(body []byte) (*MainTLV, error) {
	if len(body) != mainBodySize {
		return nil, &InvalidTlvError{TlvType: TLVTypeMain, Reason: "wrong body size"}
	}
	return &MainTLV{
		InitFnOffset:   binary.LittleEndian.Uint32(body[0:4]),
		ProtectedSize:  binary.LittleEndian.Uint32(body[4:8]),
		MinimumRAMSize: binary.LittleEndian.Uint32(body[8:12]),
	}, nil
}

// ProgramTLV is the binary-descriptor TLV for apps that carry a footer.
// It additionally records where the binary ends and the footer begins.
type ProgramTLV struct {
	InitFnOffset     uint32
	ProtectedSize    uint32
	MinimumRAMSize   uint32
	BinaryEndOffset  uint32
	AppVersion       uint32
}

func (t *ProgramTLV) Type() uint16 { return TLVTypeProgram }

func (t *ProgramTLV) Pack() []byte {
	body := make([]byte, programBodySize)
	binary.LittleEndian.PutUint32(body[0:4], t.InitFnOffset)
	binary.LittleEndian.PutUint32(body[4:8], t.ProtectedSize)
	binary.LittleEndian.PutUint32(body[8:12], t.MinimumRAMSize)
	binary.LittleEndian.PutUint32(body[12:16], t.BinaryEndOffset)
	binary.LittleEndian.PutUint32(body[16:20], t.AppVersion)
	return packTLV(TLVTypeProgram, body)
}

func parseProgramTLV(body []byte) (*ProgramTLV, error) {
	if len(body) != programBodySize {
		return nil, &InvalidTlvError{TlvType: TLVTypeProgram, Reason: "wrong body size"}
	}
	return &ProgramTLV{
		InitFnOffset:    binary.LittleEndian.Uint32(body[0:4]),
		ProtectedSize:   binary.LittleEndian.Uint32(body[4:8]),
		MinimumRAMSize:  binary.LittleEndian.Uint32(body[8:12]),
		BinaryEndOffset: binary.LittleEndian.Uint32(body[12:16]),
		AppVersion:      binary.LittleEndian.Uint32(body[16:20]),
	}, nil
}

// WriteableFlashRegionsTLV lists (offset, length) pairs of flash regions
// the app may write at runtime.
type WriteableFlashRegionsTLV struct {
	Regions []FlashRegion
}

// FlashRegion is one (offset, length) writeable-flash-region entry.
type FlashRegion struct {
	Offset uint32
	Length uint32
}

func (t *WriteableFlashRegionsTLV) Type() uint16 { return TLVTypeWriteableFlashRegions }

func (t *WriteableFlashRegionsTLV) Pack() []byte {
	body := make([]byte, 8*len(t.Regions))
	for i, r := range t.Regions {
		binary.LittleEndian.PutUint32(body[i*8:i*8+4], r.Offset)
		binary.LittleEndian.PutUint32(body[i*8+4:i*8+8], r.Length)
	}
	return packTLV(TLVTypeWriteableFlashRegions, body)
}

func parseWriteableFlashRegionsTLV(body []byte) (*WriteableFlashRegionsTLV, error) {
	if len(body)%8 != 0 {
		return nil, &InvalidTlvError{TlvType: TLVTypeWriteableFlashRegions, Reason: "body not a multiple of 8"}
	}
	t := &WriteableFlashRegionsTLV{}
	for i := 0; i < len(body); i += 8 {
		t.Regions = append(t.Regions, FlashRegion{
			Offset: binary.LittleEndian.Uint32(body[i : i+4]),
			Length: binary.LittleEndian.Uint32(body[i+4 : i+8]),
		})
	}
	return t, nil
}

// PackageNameTLV carries the app's human-readable name.
type PackageNameTLV struct {
	Name string
}

func (t *PackageNameTLV) Type() uint16 { return TLVTypePackageName }

func (t *PackageNameTLV) Pack() []byte {
	return packTLV(TLVTypePackageName, []byte(t.Name))
}

func parsePackageNameTLV(body []byte) (*PackageNameTLV, error) {
	return &PackageNameTLV{Name: string(body)}, nil
}

// PicOption1TLV carries position-independent-code relocation parameters.
// Preserved opaquely: this codec round-trips the raw fields without
// interpreting them.
type PicOption1TLV struct {
	Raw [picOption1BodySize]byte
}

func (t *PicOption1TLV) Type() uint16 { return TLVTypePicOption1 }

func (t *PicOption1TLV) Pack() []byte {
	return packTLV(TLVTypePicOption1, t.Raw[:])
}

func parsePicOption1TLV(body []byte) (*PicOption1TLV, error) {
	if len(body) != picOption1BodySize {
		return nil, &InvalidTlvError{TlvType: TLVTypePicOption1, Reason: "wrong body size"}
	}
	t := &PicOption1TLV{}
	copy(t.Raw[:], body)
	return t, nil
}

// FixedAddressesTLV records the flash and RAM addresses this app was
// compiled to run at.
type FixedAddressesTLV struct {
	FlashAddress uint32
	RAMAddress   uint32
}

func (t *FixedAddressesTLV) Type() uint16 { return TLVTypeFixedAddresses }

func (t *FixedAddressesTLV) Pack() []byte {
	body := make([]byte, fixedAddressesSize)
	binary.LittleEndian.PutUint32(body[0:4], t.FlashAddress)
	binary.LittleEndian.PutUint32(body[4:8], t.RAMAddress)
	return packTLV(TLVTypeFixedAddresses, body)
}

func parseFixedAddressesTLV(body []byte) (*FixedAddressesTLV, error) {
	if len(body) != fixedAddressesSize {
		return nil, &InvalidTlvError{TlvType: TLVTypeFixedAddresses, Reason: "wrong body size"}
	}
	return &FixedAddressesTLV{
		FlashAddress: binary.LittleEndian.Uint32(body[0:4]),
		RAMAddress:   binary.LittleEndian.Uint32(body[4:8]),
	}, nil
}

// KernelVersionTLV records the kernel major/minor version this app
// requires.
type KernelVersionTLV struct {
	Major uint16
	Minor uint16
}

func (t *KernelVersionTLV) Type() uint16 { return TLVTypeKernelVersion }

func (t *KernelVersionTLV) Pack() []byte {
	body := make([]byte, kernelVersionBodySize)
	binary.LittleEndian.PutUint16(body[0:2], t.Major)
	binary.LittleEndian.PutUint16(body[2:4], t.Minor)
	return packTLV(TLVTypeKernelVersion, body)
}

func parseKernelVersionTLV(body []byte) (*KernelVersionTLV, error) {
	if len(body) != kernelVersionBodySize {
		return nil, &InvalidTlvError{TlvType: TLVTypeKernelVersion, Reason: "wrong body size"}
	}
	return &KernelVersionTLV{
		Major: binary.LittleEndian.Uint16(body[0:2]),
		Minor: binary.LittleEndian.Uint16(body[2:4]),
	}, nil
}

// PermissionsTLV lists driver-number/command-permission pairs granted to
// this app. Preserved opaquely at the byte-pair level.
type PermissionsTLV struct {
	Raw []byte
}

func (t *PermissionsTLV) Type() uint16 { return TLVTypePermissions }
func (t *PermissionsTLV) Pack() []byte { return packTLV(TLVTypePermissions, t.Raw) }

func parsePermissionsTLV(body []byte) (*PermissionsTLV, error) {
	return &PermissionsTLV{Raw: append([]byte(nil), body...)}, nil
}

// PersistentACLTLV records the persistent access-control-list region and
// write identifier for this app's flash-region permissions.
type PersistentACLTLV struct {
	Raw []byte
}

func (t *PersistentACLTLV) Type() uint16 { return TLVTypePersistentACL }
func (t *PersistentACLTLV) Pack() []byte { return packTLV(TLVTypePersistentACL, t.Raw) }

func parsePersistentACLTLV(body []byte) (*PersistentACLTLV, error) {
	return &PersistentACLTLV{Raw: append([]byte(nil), body...)}, nil
}

// ShortIdTLV records a fixed numeric identifier the kernel uses instead
// of the app's name for access control.
type ShortIdTLV struct {
	ShortID uint32
}

func (t *ShortIdTLV) Type() uint16 { return TLVTypeShortId }

func (t *ShortIdTLV) Pack() []byte {
	body := make([]byte, shortIdBodySize)
	binary.LittleEndian.PutUint32(body, t.ShortID)
	return packTLV(TLVTypeShortId, body)
}

func parseShortIdTLV(body []byte) (*ShortIdTLV, error) {
	if len(body) != shortIdBodySize {
		return nil, &InvalidTlvError{TlvType: TLVTypeShortId, Reason: "wrong body size"}
	}
	return &ShortIdTLV{ShortID: binary.LittleEndian.Uint32(body)}, nil
}

// UnknownTLV preserves the raw bytes of a TLV type this codec does not
// recognize, so that re-emission is lossless.
type UnknownTLV struct {
	TlvType uint16
	Raw     []byte
}

func (t *UnknownTLV) Type() uint16 { return t.TlvType }
func (t *UnknownTLV) Pack() []byte { return packTLV(t.TlvType, t.Raw) }
