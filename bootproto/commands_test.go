package bootproto

import (
	"bytes"
	"testing"
)

func TestEscapeDoublesEscBytes(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"no esc", []byte{0x01, 0x02}, []byte{0x01, 0x02}},
		{"single esc", []byte{0x1B}, []byte{0x1B, 0x1B}},
		{"esc in middle", []byte{0x01, 0x1B, 0x02}, []byte{0x01, 0x1B, 0x1B, 0x02}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := escape(tt.in)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("escape(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestUnescapeInverseOfEscape(t *testing.T) {
	payload := []byte{0x01, 0x1B, 0x02, 0x1B, 0x1B}
	if got := unescape(escape(payload)); !bytes.Equal(got, payload) {
		t.Errorf("unescape(escape(x)) = %v, want %v", got, payload)
	}
}

func TestBuildPingCmdFraming(t *testing.T) {
	got := BuildPingCmd()
	want := []byte{Esc, CmdPing}
	if !bytes.Equal(got, want) {
		t.Errorf("BuildPingCmd() = %v, want %v", got, want)
	}
}

func TestBuildWritePageCmdEscapesPayload(t *testing.T) {
	page := []byte{0x00, 0x1B, 0xFF}
	got := BuildWritePageCmd(0x30000, page)

	// ESC CMD [addr(4, escaped)] [page(escaped)]
	if got[0] != Esc || got[1] != CmdWritePage {
		t.Fatalf("missing ESC CMD header: %v", got[:2])
	}
	if !bytes.Contains(got, []byte{0x1B, 0x1B}) {
		t.Error("expected doubled ESC byte somewhere in the escaped frame")
	}
}

func TestBuildSetAttributeCmdWrongSize(t *testing.T) {
	if _, err := BuildSetAttributeCmd(0, make([]byte, 10)); err == nil {
		t.Error("expected error for wrong-size attribute slot, got nil")
	}
}

func TestBuildReadRangeCmdPayloadLayout(t *testing.T) {
	got := BuildReadRangeCmd(0x1000, 256)
	// ESC CMD addr(4 LE) length(2 LE), none of which happen to need escaping here.
	want := []byte{Esc, CmdReadRange, 0x00, 0x10, 0x00, 0x00, 0x00, 0x01}
	if !bytes.Equal(got, want) {
		t.Errorf("BuildReadRangeCmd() = %v, want %v", got, want)
	}
}
