package tickv

import (
	"encoding/binary"
	"hash/crc32"
)

// FlagValid marks an object as holding a live value. Invalidate clears
// only this bit, in place, leaving the rest of the record untouched.
const FlagValid = 0x8

// headerSize is the number of bytes preceding the value: version(1) +
// flags(1) + length(2) + hashed_key(8).
const headerSize = 12

// checksumSize is the trailing CRC-32 following the value.
const checksumSize = 4

// fixedOverhead is the byte count the length field itself does not
// include: version, flags, hashed_key, and the trailing checksum
// (1+1+8+4). The 2-byte length field is excluded from its own count,
// matching spec's region-0 init object (length=0x000E, empty value).
const fixedOverhead = 14

// Object is one record in a TicKV region.
type Object struct {
	Version   uint8
	Flags     uint8
	HashedKey uint64
	Value     []byte
}

// NewObject builds a valid object addressed by key.
func NewObject(key string, value []byte) *Object {
	return &Object{Version: 1, Flags: FlagValid, HashedKey: hashKey(key), Value: value}
}

// IsValid reports whether the valid bit is set.
func (o *Object) IsValid() bool { return o.Flags&FlagValid != 0 }

// Invalidate clears the valid bit.
func (o *Object) Invalidate() { o.Flags &^= FlagValid }

// Size returns the object's total footprint on flash.
func (o *Object) Size() int { return headerSize + len(o.Value) + checksumSize }

// Emit serializes the object, computing its length field and checksum.
func (o *Object) Emit() []byte {
	buf := make([]byte, o.Size())
	storedLength := uint16(len(o.Value) + fixedOverhead)

	buf[0] = o.Version
	buf[1] = o.Flags
	binary.BigEndian.PutUint16(buf[2:4], storedLength)
	binary.BigEndian.PutUint64(buf[4:12], o.HashedKey)
	copy(buf[12:12+len(o.Value)], o.Value)

	checksum := crc32.ChecksumIEEE(buf[:12+len(o.Value)])
	binary.LittleEndian.PutUint32(buf[12+len(o.Value):], checksum)
	return buf
}

// ParseObject decodes the object starting at the front of buf. buf may
// extend past the object's end; trailing bytes are ignored. ok is
// false when buf begins with an erased or otherwise unparseable
// window, which the region scanner treats as end-of-objects.
func ParseObject(buf []byte) (obj *Object, ok bool) {
	if len(buf) < headerSize+checksumSize {
		return nil, false
	}

	erased := true
	for _, b := range buf[:headerSize] {
		if b != 0xFF {
			erased = false
			break
		}
	}
	if erased {
		return nil, false
	}

	storedLength := binary.BigEndian.Uint16(buf[2:4])
	if int(storedLength) < fixedOverhead {
		return nil, false
	}
	valueLen := int(storedLength) - fixedOverhead
	total := headerSize + valueLen + checksumSize
	if total > len(buf) {
		return nil, false
	}

	wantChecksum := binary.LittleEndian.Uint32(buf[12+valueLen : total])
	gotChecksum := crc32.ChecksumIEEE(buf[:12+valueLen])
	if wantChecksum != gotChecksum {
		return nil, false
	}

	value := make([]byte, valueLen)
	copy(value, buf[12:12+valueLen])

	return &Object{
		Version:   buf[0],
		Flags:     buf[1],
		HashedKey: binary.BigEndian.Uint64(buf[4:12]),
		Value:     value,
	}, true
}
