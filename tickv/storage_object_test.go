package tickv

import (
	"bytes"
	"testing"
)

func TestStorageObjectRoundTrip(t *testing.T) {
	so := &StorageObject{Version: 1, WriteID: 7, Value: []byte("v")}
	encoded := so.Emit()

	got, err := ParseStorageObject(encoded)
	if err != nil {
		t.Fatalf("ParseStorageObject: %v", err)
	}
	if got.Version != 1 || got.WriteID != 7 || !bytes.Equal(got.Value, []byte("v")) {
		t.Fatalf("ParseStorageObject = %+v, want version=1 write_id=7 value=v", got)
	}
}

func TestStorageObjectRejectsLengthOverflow(t *testing.T) {
	buf := make([]byte, 9)
	buf[1] = 100 // declares a 100-byte value with none present

	if _, err := ParseStorageObject(buf); err == nil {
		t.Fatal("expected error for a declared value length exceeding the buffer")
	}
}
