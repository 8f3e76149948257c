package tbf

import (
	"testing"

	"github.com/hashicorp/go-multierror"
)

func TestFooterEmitParseRoundTrip(t *testing.T) {
	f := &Footer{Credentials: []*CredentialTLV{
		{Kind: CredentialSHA256, Value: make([]byte, 32)},
		{Kind: CredentialReserved, Value: make([]byte, 16)},
	}}
	f.span = f.Credentials[0].totalSize() + f.Credentials[1].totalSize()

	buf := f.Emit()
	got, err := ParseFooter(buf)
	if err != nil {
		t.Fatalf("ParseFooter: %v", err)
	}
	if len(got.Credentials) != 2 {
		t.Fatalf("got %d credentials, want 2", len(got.Credentials))
	}
	if got.Credentials[0].Kind != CredentialSHA256 {
		t.Errorf("Credentials[0].Kind = %v, want sha256", got.Credentials[0].Kind)
	}
}

func TestAddAndVerifySHA256Credential(t *testing.T) {
	f := &Footer{Credentials: []*CredentialTLV{
		{Kind: CredentialReserved, Value: make([]byte, 64)},
	}}
	f.span = f.Credentials[0].totalSize()

	blob := []byte("integrity blob contents")
	if err := f.AddCredential(CredentialSHA256, nil, blob); err != nil {
		t.Fatalf("AddCredential: %v", err)
	}

	cred := f.Get(CredentialSHA256)
	if cred == nil {
		t.Fatal("expected SHA256 credential to be present after AddCredential")
	}

	if got := len(f.Emit()); got != f.span {
		t.Errorf("footer span after AddCredential = %d, want %d (total_length must not move)", got, f.span)
	}

	results := f.VerifyCredentials(nil, blob)
	var found bool
	for _, r := range results {
		if r.Kind == CredentialSHA256 {
			found = true
			if r.Status != VerificationPass {
				t.Errorf("SHA256 credential status = %v, want pass", r.Status)
			}
		}
	}
	if !found {
		t.Error("SHA256 credential missing from verification results")
	}
}

func TestAddCredentialInsufficientSpace(t *testing.T) {
	f := &Footer{Credentials: []*CredentialTLV{
		{Kind: CredentialReserved, Value: make([]byte, 4)},
	}}
	f.span = f.Credentials[0].totalSize()

	err := f.AddCredential(CredentialSHA512, nil, []byte("x"))
	if err == nil {
		t.Fatal("expected InsufficientFooterError, got nil")
	}
	if _, ok := err.(*InsufficientFooterError); !ok {
		t.Errorf("got error %T, want *InsufficientFooterError", err)
	}
}

func TestDeleteCredentialReplacesWithReservedOfSameSpan(t *testing.T) {
	f := &Footer{Credentials: []*CredentialTLV{
		{Kind: CredentialSHA256, Value: make([]byte, 32)},
	}}
	before := f.Credentials[0].totalSize()

	if !f.DeleteCredential(CredentialSHA256) {
		t.Fatal("DeleteCredential returned false")
	}
	if f.Credentials[0].Kind != CredentialReserved {
		t.Errorf("Kind = %v, want reserved", f.Credentials[0].Kind)
	}
	if f.Credentials[0].totalSize() != before {
		t.Errorf("span changed after delete: got %d, want %d", f.Credentials[0].totalSize(), before)
	}
}

func TestVerifyCredentialsSkipsWithoutKey(t *testing.T) {
	f := &Footer{Credentials: []*CredentialTLV{
		{Kind: CredentialHMACSHA256, Value: make([]byte, 32)},
	}}
	results := f.VerifyCredentials(nil, []byte("blob"))
	if results[0].Status != VerificationSkippedNoKey {
		t.Errorf("status = %v, want skipped-no-key", results[0].Status)
	}
}

func TestVerifyCredentialsUnsupportedKind(t *testing.T) {
	f := &Footer{Credentials: []*CredentialTLV{
		{Kind: CredentialRSA3072Key, Value: make([]byte, 384)},
	}}
	results := f.VerifyCredentials(nil, []byte("blob"))
	if results[0].Status != VerificationUnsupported {
		t.Errorf("status = %v, want unsupported", results[0].Status)
	}
}

func TestIntegrityBlobBoundsToBinaryEndOffset(t *testing.T) {
	h := NewHeader()
	h.TotalLength = 0x100
	h.AddTLV(&ProgramTLV{BinaryEndOffset: 4, AppVersion: 1})

	binary := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	blob := IntegrityBlob(h, binary)
	headerLen := len(h.Emit())

	if len(blob) != headerLen+4 {
		t.Errorf("blob length = %d, want %d", len(blob), headerLen+4)
	}
}

func TestRequireValidAggregatesEveryFailure(t *testing.T) {
	results := []VerificationResult{
		{Kind: CredentialSHA256, Status: VerificationPass},
		{Kind: CredentialSHA384, Status: VerificationFail},
		{Kind: CredentialSHA512, Status: VerificationFail},
		{Kind: CredentialHMACSHA256, Status: VerificationSkippedNoKey},
	}

	err := RequireValid(results)
	if err == nil {
		t.Fatal("expected an aggregated error")
	}
	merr, ok := err.(*multierror.Error)
	if !ok {
		t.Fatalf("got error type %T, want *multierror.Error", err)
	}
	if len(merr.Errors) != 2 {
		t.Errorf("got %d wrapped errors, want 2 (sha384 and sha512 failures only)", len(merr.Errors))
	}
}

func TestRequireValidNilOnNoFailures(t *testing.T) {
	results := []VerificationResult{
		{Kind: CredentialSHA256, Status: VerificationPass},
		{Kind: CredentialHMACSHA256, Status: VerificationSkippedNoKey},
		{Kind: CredentialRSA3072Key, Status: VerificationUnsupported},
	}
	if err := RequireValid(results); err != nil {
		t.Errorf("RequireValid = %v, want nil", err)
	}
}
