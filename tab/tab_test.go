package tab

import (
	"archive/tar"
	"bytes"
	"testing"

	"github.com/tock-tools/tockloader-go/tbf"
)

func buildTab(t *testing.T, metadata string, tbfsByArch map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	writeEntry := func(name string, data []byte) {
		if err := tw.WriteHeader(&tar.Header{Name: name, Size: int64(len(data)), Mode: 0644}); err != nil {
			t.Fatalf("WriteHeader(%s): %v", name, err)
		}
		if _, err := tw.Write(data); err != nil {
			t.Fatalf("Write(%s): %v", name, err)
		}
	}

	writeEntry("metadata.toml", []byte(metadata))
	for arch, data := range tbfsByArch {
		writeEntry(arch+".tbf", data)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar Close: %v", err)
	}
	return buf.Bytes()
}

func buildTbf(t *testing.T, binarySize int) []byte {
	t.Helper()
	h := tbf.NewHeader()
	h.AddTLV(&tbf.MainTLV{})
	h.AddTLV(&tbf.PackageNameTLV{Name: "blink"})
	hdrBytes := h.Emit()
	h.TotalLength = uint32(len(hdrBytes) + binarySize)
	hdrBytes = h.Emit() // re-emit with final total_length; Emit recomputes the checksum, which covers it

	out := append([]byte{}, hdrBytes...)
	out = append(out, make([]byte, binarySize)...)
	return out
}

func TestOpenParsesMetadataAndVariants(t *testing.T) {
	raw := buildTab(t, `tab-version = 1
name = "blink"
kernel-version = "2"
`, map[string][]byte{
		"cortex-m4": buildTbf(t, 64),
		"rv32imc":   buildTbf(t, 64),
	})

	tb, err := Open(raw)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if tb.Metadata.Name != "blink" {
		t.Errorf("Metadata.Name = %q, want blink", tb.Metadata.Name)
	}
	variants := tb.Variants()
	if len(variants) != 2 {
		t.Fatalf("got %d variants, want 2", len(variants))
	}
}

func TestAppForUnsupportedArch(t *testing.T) {
	raw := buildTab(t, `tab-version = 1
name = "blink"
`, map[string][]byte{
		"cortex-m4": buildTbf(t, 32),
	})
	tb, err := Open(raw)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, err := tb.AppFor("rv32imc", nil); err == nil {
		t.Fatal("expected UnsupportedArchError, got nil")
	} else if _, ok := err.(*UnsupportedArchError); !ok {
		t.Errorf("got error %T, want *UnsupportedArchError", err)
	}
}

func TestAppForReturnsSelectedSingleVariant(t *testing.T) {
	raw := buildTab(t, `tab-version = 1
name = "blink"
`, map[string][]byte{
		"cortex-m4": buildTbf(t, 32),
	})
	tb, err := Open(raw)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	a, err := tb.AppFor("cortex-m4", nil)
	if err != nil {
		t.Fatalf("AppFor: %v", err)
	}
	if a.Header() == nil {
		t.Fatal("expected a resolved header for a single-variant TabApp")
	}
	if a.Name() != "blink" {
		t.Errorf("Name() = %q, want blink", a.Name())
	}
}

func TestIsCompatibleWithBoard(t *testing.T) {
	raw := buildTab(t, `tab-version = 1
name = "blink"
only-for-boards = ["nrf52dk"]
`, map[string][]byte{"cortex-m4": buildTbf(t, 16)})
	tb, err := Open(raw)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if !tb.IsCompatibleWithBoard("nrf52dk") {
		t.Error("expected compatible with nrf52dk")
	}
	if tb.IsCompatibleWithBoard("hail") {
		t.Error("expected incompatible with hail")
	}
}
