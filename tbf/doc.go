// Package tbf implements the Tock Binary Format codec: parsing, mutating,
// and re-emitting TBF headers, footers, and their TLV entries.
//
// # Header layout
//
// Every TBF begins with a 16-byte base header:
//
//	u16 version, u16 header_length, u32 total_length, u32 flags, u32 base_checksum
//
// followed by a sequence of TLV entries (u16 type, u16 length, length
// bytes) until header_length is consumed. The base checksum is the XOR of
// every 32-bit little-endian word of the header with the checksum word
// itself zeroed.
//
// # Footers
//
// A TBF whose header carries a Program TLV (rather than Main) has a
// footer: the bytes between the Program TLV's binary_end_offset and the
// header's total_length, filled entirely by Credentials TLVs. Footers are
// only meaningful together with the application binary, since credentials
// are computed over the integrity blob (header bytes + binary up to
// binary_end_offset).
//
// # Usage
//
//	hdr, err := tbf.Parse(flash[offset:])
//	if err != nil {
//	    // treat as end of linked list
//	}
//	hdr.SetFlag(tbf.FlagSticky, true)
//	out := hdr.Emit()
package tbf
