package tbf

import (
	"encoding/binary"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// CredentialTLV is one Credentials entry in a TBF footer.
type CredentialTLV struct {
	Kind  CredentialKind
	Value []byte // the payload after the 4-byte kind word
}

func (c *CredentialTLV) Type() uint16 { return TLVTypeCredentials }

func (c *CredentialTLV) Pack() []byte {
	body := make([]byte, 4+len(c.Value))
	binary.LittleEndian.PutUint32(body[0:4], uint32(c.Kind))
	copy(body[4:], c.Value)
	return packTLV(TLVTypeCredentials, body)
}

// totalSize is the number of bytes this credential occupies in the
// footer, including its own 4-byte TLV header and 4-byte kind word.
func (c *CredentialTLV) totalSize() int {
	return roundUp4(4 + 4 + len(c.Value))
}

// Footer is the sequence of Credentials TLVs occupying the bytes between
// a Program app's binary_end_offset and total_length.
type Footer struct {
	Credentials []*CredentialTLV
	span        int // total byte length the footer must exactly fill
}

// ParseFooter reads a footer from buf, which must be exactly the footer
// region's bytes (total_length - binary_end_offset). Every byte must be
// accounted for by Credentials TLVs, or InvalidFooterError is returned.
func ParseFooter(buf []byte) (*Footer, error) {
	f := &Footer{span: len(buf)}
	cursor := 0
	for cursor < len(buf) {
		if len(buf)-cursor < 4 {
			return nil, &InvalidFooterError{Reason: "trailing bytes too short for a TLV header"}
		}
		tipe := binary.LittleEndian.Uint16(buf[cursor : cursor+2])
		length := binary.LittleEndian.Uint16(buf[cursor+2 : cursor+4])
		if tipe != TLVTypeCredentials {
			return nil, &InvalidFooterError{Reason: "non-credential TLV in footer"}
		}
		cursor += 4
		if int(length) < 4 || cursor+int(length) > len(buf) {
			return nil, &InvalidFooterError{Reason: "credential TLV length overruns footer"}
		}
		kind := CredentialKind(binary.LittleEndian.Uint32(buf[cursor : cursor+4]))
		value := append([]byte(nil), buf[cursor+4:cursor+int(length)]...)
		f.Credentials = append(f.Credentials, &CredentialTLV{Kind: kind, Value: value})

		padded := roundUp4(int(length))
		cursor += padded
	}
	return f, nil
}

// Emit serializes the footer back to its exact original byte span.
func (f *Footer) Emit() []byte {
	out := make([]byte, 0, f.span)
	for _, c := range f.Credentials {
		out = append(out, c.Pack()...)
	}
	return out
}

// Get returns the first credential of the given kind, or nil.
func (f *Footer) Get(kind CredentialKind) *CredentialTLV {
	for _, c := range f.Credentials {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// IntegrityBlob concatenates the finalized header bytes with the
// application binary up to binary_end_offset — the input over which every
// credential is computed.
func IntegrityBlob(header *Header, fullBinary []byte) []byte {
	headerBytes := header.Emit()
	end := header.BinaryEndOffset()
	if end > uint32(len(fullBinary)) {
		end = uint32(len(fullBinary))
	}
	blob := make([]byte, 0, len(headerBytes)+int(end))
	blob = append(blob, headerBytes...)
	blob = append(blob, fullBinary[:end]...)
	return blob
}

// AddCredential computes a credential of kind over integrityBlob using
// keys and inserts it into the footer, shrinking an existing Reserved
// padding credential to make room. It fails with InsufficientFooterError
// if no Reserved credential has enough span, and UnknownCredentialError
// if kind's fixed size is not known to this codec.
func (f *Footer) AddCredential(kind CredentialKind, keys *KeyMaterial, integrityBlob []byte) error {
	payloadSize := credentialPayloadSize(kind)
	if payloadSize == -2 {
		return &UnknownCredentialError{Kind: kind}
	}
	value, err := computeCredential(kind, keys, integrityBlob)
	if err != nil {
		return err
	}
	needed := roundUp4(4 + 4 + len(value))

	for _, c := range f.Credentials {
		if c.Kind != CredentialReserved {
			continue
		}
		rest := c.totalSize() - needed
		if rest < 0 || (rest > 0 && rest < 8) {
			continue // a leftover under 8 bytes cannot hold a Reserved TLV
		}
		newCred := &CredentialTLV{Kind: kind, Value: value}
		// c gives up exactly `needed` bytes so the footer's total span
		// (c.totalSize() + newCred.totalSize() == old c.totalSize())
		// stays fixed; when nothing is left of c, newCred replaces it.
		idx := f.indexOf(c)
		f.Credentials = append(f.Credentials[:idx], append([]*CredentialTLV{newCred}, f.Credentials[idx:]...)...)
		if rest == 0 {
			f.removeCredential(c)
		} else {
			c.Value = c.Value[:rest-8]
		}
		return nil
	}
	return &InsufficientFooterError{Kind: kind, Needed: needed, HaveSpan: f.reservedSpan()}
}

// DeleteCredential replaces the first credential of the given kind with
// Reserved padding of equal total length, preserving the footer's total
// span (and therefore total_length).
func (f *Footer) DeleteCredential(kind CredentialKind) bool {
	for i, c := range f.Credentials {
		if c.Kind != kind {
			continue
		}
		padSize := c.totalSize() - 8 // TLV header(4) + kind word(4)
		if padSize < 0 {
			padSize = 0
		}
		f.Credentials[i] = &CredentialTLV{Kind: CredentialReserved, Value: make([]byte, padSize)}
		return true
	}
	return false
}

func (f *Footer) indexOf(c *CredentialTLV) int {
	for i, x := range f.Credentials {
		if x == c {
			return i
		}
	}
	return -1
}

func (f *Footer) removeCredential(c *CredentialTLV) {
	idx := f.indexOf(c)
	if idx < 0 {
		return
	}
	f.Credentials = append(f.Credentials[:idx], f.Credentials[idx+1:]...)
}

func (f *Footer) reservedSpan() int {
	total := 0
	for _, c := range f.Credentials {
		if c.Kind == CredentialReserved {
			total += c.totalSize()
		}
	}
	return total
}

// VerificationResult is the outcome of verifying one footer credential.
type VerificationResult struct {
	Kind   CredentialKind
	Status VerificationStatus
}

// VerificationStatus enumerates the possible outcomes of verifying a
// single credential.
type VerificationStatus int

const (
	VerificationPass VerificationStatus = iota
	VerificationFail
	VerificationSkippedNoKey
	VerificationUnsupported
)

func (s VerificationStatus) String() string {
	switch s {
	case VerificationPass:
		return "pass"
	case VerificationFail:
		return "fail"
	case VerificationSkippedNoKey:
		return "skipped-no-key"
	default:
		return "unsupported"
	}
}

// VerifyCredentials checks every credential TLV in the footer against
// integrityBlob using the supplied key material, returning one result per
// credential in footer order.
func (f *Footer) VerifyCredentials(keys *KeyMaterial, integrityBlob []byte) []VerificationResult {
	results := make([]VerificationResult, 0, len(f.Credentials))
	for _, c := range f.Credentials {
		results = append(results, VerificationResult{Kind: c.Kind, Status: verifyCredential(c, keys, integrityBlob)})
	}
	return results
}

// RequireValid collapses results into a single error, aggregating every
// failed credential rather than reporting only the first one an install
// decision needs to see every reason a footer was rejected. A result of
// VerificationSkippedNoKey or VerificationUnsupported is not a failure:
// it means this run had no way to judge that credential, not that the
// credential is bad.
func RequireValid(results []VerificationResult) error {
	var errs *multierror.Error
	for _, r := range results {
		if r.Status == VerificationFail {
			errs = multierror.Append(errs, fmt.Errorf("credential %v: %s", r.Kind, r.Status))
		}
	}
	return errs.ErrorOrNil()
}
