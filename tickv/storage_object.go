package tickv

import (
	"encoding/binary"
	"fmt"
)

// StorageObject is the Tock-kernel-visible wrapper carried inside a
// TicKV object's value: a version byte, the value's own length, a
// write_id used for per-app access control, and the value itself.
type StorageObject struct {
	Version uint8
	WriteID uint32
	Value   []byte
}

// Size returns the wrapper's total encoded length.
func (s *StorageObject) Size() int { return 9 + len(s.Value) }

// Emit serializes the wrapper.
func (s *StorageObject) Emit() []byte {
	buf := make([]byte, s.Size())
	buf[0] = s.Version
	binary.LittleEndian.PutUint32(buf[1:5], uint32(len(s.Value)))
	binary.LittleEndian.PutUint32(buf[5:9], s.WriteID)
	copy(buf[9:], s.Value)
	return buf
}

// ParseStorageObject decodes a StorageObject from the front of buf.
// Trailing bytes beyond the declared value length (region padding) are
// ignored.
func ParseStorageObject(buf []byte) (*StorageObject, error) {
	if len(buf) < 9 {
		return nil, fmt.Errorf("tock storage object header truncated: got %d bytes, want at least 9", len(buf))
	}
	length := binary.LittleEndian.Uint32(buf[1:5])
	writeID := binary.LittleEndian.Uint32(buf[5:9])
	if 9+int(length) > len(buf) {
		return nil, fmt.Errorf("tock storage object value length %d exceeds available %d bytes", length, len(buf)-9)
	}
	value := make([]byte, length)
	copy(value, buf[9:9+length])
	return &StorageObject{Version: buf[0], WriteID: writeID, Value: value}, nil
}
