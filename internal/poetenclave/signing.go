package poetenclave

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/pkg/errors"
)

// SigningFacade wraps ECDSA-over-secp256k1 key generation, signing, and
// verification behind the canonical hex-public-key / base64-signature
// format the rest of the protocol expects. It is stateless; all methods
// operate on keys passed in explicitly.
type SigningFacade struct{}

// GeneratePrivateKey creates a fresh secp256k1 private key.
func (SigningFacade) GeneratePrivateKey() (*secp256k1.PrivateKey, error) {
	return secp256k1.GeneratePrivateKey()
}

// PublicKeyHex returns the canonical hex-encoded, SEC1-compressed public
// key for priv.
func (SigningFacade) PublicKeyHex(priv *secp256k1.PrivateKey) string {
	return hex.EncodeToString(priv.PubKey().SerializeCompressed())
}

// PrivateKeyHex returns a hex encoding of the raw private scalar, used only
// for the in-memory "sealed" signup payload.
func (SigningFacade) PrivateKeyHex(priv *secp256k1.PrivateKey) string {
	return hex.EncodeToString(priv.Serialize())
}

// PrivateKeyFromHex restores a private key from SigningFacade.PrivateKeyHex's
// output.
func (SigningFacade) PrivateKeyFromHex(s string) (*secp256k1.PrivateKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "decoding private key hex")
	}
	return secp256k1.PrivKeyFromBytes(raw), nil
}

// ParsePublicKey restores a public key from its canonical hex form.
func (SigningFacade) ParsePublicKey(s string) (*secp256k1.PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "decoding public key hex")
	}
	pub, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parsing public key")
	}
	return pub, nil
}

// Sign signs msg with priv and returns the DER signature, base64-encoded.
// decred's ecdsa.Sign uses RFC 6979 deterministic nonces, so signing the
// same message with the same key always yields the same signature -- this
// is what makes the active-wait-timer signature-equality check in
// EnclaveCore.CreateWaitCertificate well defined (see spec.md section 9).
func (SigningFacade) Sign(msg []byte, priv *secp256k1.PrivateKey) string {
	hash := sha256.Sum256(msg)
	sig := ecdsa.Sign(priv, hash[:])
	return base64.StdEncoding.EncodeToString(sig.Serialize())
}

// Verify reports whether sigB64 is priv's public key's signature over msg.
func (SigningFacade) Verify(msg []byte, sigB64 string, pubKeyHex string) bool {
	sigBytes, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false
	}
	pub, err := (SigningFacade{}).ParsePublicKey(pubKeyHex)
	if err != nil {
		return false
	}
	hash := sha256.Sum256(msg)
	return sig.Verify(hash[:], pub)
}

var signing = SigningFacade{}
