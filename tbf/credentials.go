package tbf

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"math/big"
)

// KeyMaterial bundles the key inputs VerifyCredentials and AddCredential
// may need. A field left nil means "no key of this kind available";
// credentials requiring it are skipped (verification) or fail
// (generation) rather than erroring a whole run.
type KeyMaterial struct {
	HMACKey   []byte
	ECDSAKey  *ecdsa.PrivateKey
	ECDSAPub  *ecdsa.PublicKey
	RSAKey    *rsa.PrivateKey
	RSAPub    *rsa.PublicKey
	ShortID   uint32 // value stored by CredentialCleartextID
}

// computeCredential produces the fixed-length payload for kind, signing
// or hashing integrityBlob with the appropriate key from keys.
func computeCredential(kind CredentialKind, keys *KeyMaterial, integrityBlob []byte) ([]byte, error) {
	switch kind {
	case CredentialSHA256:
		sum := sha256.Sum256(integrityBlob)
		return sum[:], nil
	case CredentialSHA384:
		sum := sha512.Sum384(integrityBlob)
		return sum[:], nil
	case CredentialSHA512:
		sum := sha512.Sum512(integrityBlob)
		return sum[:], nil
	case CredentialHMACSHA256:
		if keys == nil || keys.HMACKey == nil {
			return nil, &UnknownCredentialError{Kind: kind}
		}
		mac := hmac.New(sha256.New, keys.HMACKey)
		mac.Write(integrityBlob)
		return mac.Sum(nil), nil
	case CredentialHMACSHA384:
		if keys == nil || keys.HMACKey == nil {
			return nil, &UnknownCredentialError{Kind: kind}
		}
		mac := hmac.New(sha512.New384, keys.HMACKey)
		mac.Write(integrityBlob)
		return mac.Sum(nil), nil
	case CredentialHMACSHA512:
		if keys == nil || keys.HMACKey == nil {
			return nil, &UnknownCredentialError{Kind: kind}
		}
		mac := hmac.New(sha512.New, keys.HMACKey)
		mac.Write(integrityBlob)
		return mac.Sum(nil), nil
	case CredentialECDSANistP256:
		if keys == nil || keys.ECDSAKey == nil {
			return nil, &UnknownCredentialError{Kind: kind}
		}
		digest := sha256.Sum256(integrityBlob)
		r, s, err := ecdsa.Sign(rand.Reader, keys.ECDSAKey, digest[:])
		if err != nil {
			return nil, err
		}
		return packECDSASignature(r, s), nil
	case CredentialRSA2048Key:
		if keys == nil || keys.RSAKey == nil {
			return nil, &UnknownCredentialError{Kind: kind}
		}
		digest := sha256.Sum256(integrityBlob)
		return rsa.SignPKCS1v15(rand.Reader, keys.RSAKey, 0, digest[:])
	case CredentialCleartextID:
		if keys == nil {
			return nil, &UnknownCredentialError{Kind: kind}
		}
		body := make([]byte, 8)
		binary.LittleEndian.PutUint32(body[0:4], keys.ShortID)
		return body, nil
	default:
		return nil, &UnknownCredentialError{Kind: kind}
	}
}

// verifyCredential checks one footer credential against integrityBlob,
// reporting skipped-no-key when the relevant key is absent from keys and
// unsupported for credential kinds this codec has no verification logic
// for (RSA3072, RSA4096: no corresponding pack dependency carries
// 3072/4096-bit RSA key types beyond what crypto/rsa already handles for
// 2048, so those sizes are treated as unsupported here).
func verifyCredential(c *CredentialTLV, keys *KeyMaterial, integrityBlob []byte) VerificationStatus {
	switch c.Kind {
	case CredentialReserved:
		return VerificationSkippedNoKey
	case CredentialSHA256:
		sum := sha256.Sum256(integrityBlob)
		return boolStatus(constantTimeEqual(sum[:], c.Value))
	case CredentialSHA384:
		sum := sha512.Sum384(integrityBlob)
		return boolStatus(constantTimeEqual(sum[:], c.Value))
	case CredentialSHA512:
		sum := sha512.Sum512(integrityBlob)
		return boolStatus(constantTimeEqual(sum[:], c.Value))
	case CredentialHMACSHA256:
		if keys == nil || keys.HMACKey == nil {
			return VerificationSkippedNoKey
		}
		mac := hmac.New(sha256.New, keys.HMACKey)
		mac.Write(integrityBlob)
		return boolStatus(hmac.Equal(mac.Sum(nil), c.Value))
	case CredentialHMACSHA384:
		if keys == nil || keys.HMACKey == nil {
			return VerificationSkippedNoKey
		}
		mac := hmac.New(sha512.New384, keys.HMACKey)
		mac.Write(integrityBlob)
		return boolStatus(hmac.Equal(mac.Sum(nil), c.Value))
	case CredentialHMACSHA512:
		if keys == nil || keys.HMACKey == nil {
			return VerificationSkippedNoKey
		}
		mac := hmac.New(sha512.New, keys.HMACKey)
		mac.Write(integrityBlob)
		return boolStatus(hmac.Equal(mac.Sum(nil), c.Value))
	case CredentialECDSANistP256:
		if keys == nil || keys.ECDSAPub == nil {
			return VerificationSkippedNoKey
		}
		r, s, err := unpackECDSASignature(c.Value)
		if err != nil {
			return VerificationFail
		}
		digest := sha256.Sum256(integrityBlob)
		return boolStatus(ecdsa.Verify(keys.ECDSAPub, digest[:], r, s))
	case CredentialRSA2048Key:
		if keys == nil || keys.RSAPub == nil {
			return VerificationSkippedNoKey
		}
		digest := sha256.Sum256(integrityBlob)
		return boolStatus(rsa.VerifyPKCS1v15(keys.RSAPub, 0, digest[:], c.Value) == nil)
	case CredentialCleartextID:
		if keys == nil {
			return VerificationSkippedNoKey
		}
		body := make([]byte, 8)
		binary.LittleEndian.PutUint32(body[0:4], keys.ShortID)
		return boolStatus(constantTimeEqual(body, c.Value))
	case CredentialRSA3072Key, CredentialRSA4096Key:
		return VerificationUnsupported
	default:
		return VerificationUnsupported
	}
}

func boolStatus(ok bool) VerificationStatus {
	if ok {
		return VerificationPass
	}
	return VerificationFail
}

func constantTimeEqual(a, b []byte) bool {
	return hmac.Equal(a, b)
}

// packECDSASignature encodes an ECDSA NIST-P256 signature as two fixed
// 32-byte big-endian integers, matching the footer's fixed 64-byte
// payload for this credential kind (rather than ASN.1 DER, which would
// vary in length).
func packECDSASignature(r, s *big.Int) []byte {
	out := make([]byte, 64)
	r.FillBytes(out[0:32])
	s.FillBytes(out[32:64])
	return out
}

func unpackECDSASignature(value []byte) (*big.Int, *big.Int, error) {
	if len(value) != 64 {
		return nil, nil, &InvalidFooterError{Reason: "ecdsa signature wrong length"}
	}
	r := new(big.Int).SetBytes(value[0:32])
	s := new(big.Int).SetBytes(value[32:64])
	return r, s, nil
}
