package tbf

import "fmt"

// InvalidHeaderError indicates a TBF base header failed a structural or
// checksum check (bad version, bad length, or checksum mismatch).
type InvalidHeaderError struct {
	Offset uint32
	Reason string
}

func (e *InvalidHeaderError) Error() string {
	return fmt.Sprintf("invalid TBF header at offset 0x%x: %s", e.Offset, e.Reason)
}

// InvalidTlvError indicates a TLV entry had a bad length, overran the
// declared header length, or duplicated a known TLV type.
type InvalidTlvError struct {
	TlvType uint16
	Reason  string
}

func (e *InvalidTlvError) Error() string {
	return fmt.Sprintf("invalid TLV 0x%02x: %s", e.TlvType, e.Reason)
}

// InsufficientFooterError indicates a credential could not be added
// because the Reserved padding TLV it would shrink is too small.
type InsufficientFooterError struct {
	Kind     CredentialKind
	Needed   int
	HaveSpan int
}

func (e *InsufficientFooterError) Error() string {
	return fmt.Sprintf("insufficient footer space for %s credential: need %d bytes, have %d", e.Kind, e.Needed, e.HaveSpan)
}

// UnknownCredentialError indicates an operation referenced a footer
// credential kind this codec does not know the fixed size of.
type UnknownCredentialError struct {
	Kind CredentialKind
}

func (e *UnknownCredentialError) Error() string {
	return fmt.Sprintf("unknown credential kind 0x%02x", uint32(e.Kind))
}

// InvalidFooterError indicates the footer region's byte count could not be
// exactly accounted for by the Credentials TLVs it contains.
type InvalidFooterError struct {
	Reason string
}

func (e *InvalidFooterError) Error() string {
	return fmt.Sprintf("invalid TBF footer: %s", e.Reason)
}
