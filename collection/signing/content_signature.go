// Package signing verifies detached ECDSA content signatures of the kind
// the remote signing worker produces: base64url raw r||s signatures over
// "Content-Signature:\x00" + canonical bytes, verified with the PEM public
// key embedded in the collection metadata.
package signing

import (
	"bytes"
	"context"
	"crypto"
	"crypto/ecdsa"
	"encoding/asn1"
	"encoding/base64"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/sigstore/sigstore/pkg/cryptoutils"
	"github.com/sigstore/sigstore/pkg/signature"
	"github.com/sigstore/sigstore/pkg/signature/options"

	"github.com/sigwatch-dev/sigwatch/collection/entities"
	"github.com/sigwatch-dev/sigwatch/collection/values"
)

// signedPrefix is prepended to canonical bytes before verification, per
// the content-signature protocol.
const signedPrefix = "Content-Signature:\x00"

// ContentSignatureVerifier implements ports.SignatureVerifier.
type ContentSignatureVerifier struct {
	// TempDir overrides the directory used to stage public keys.
	// Default: the system temp directory.
	TempDir string
}

// NewContentSignatureVerifier creates a verifier.
func NewContentSignatureVerifier() *ContentSignatureVerifier {
	return &ContentSignatureVerifier{}
}

// Verify checks sig over canonical. The public key is staged in an
// exclusively-owned temp file for the duration of the call and removed on
// every exit path, including verification failure.
func (v *ContentSignatureVerifier) Verify(ctx context.Context, canonical []byte, sig values.Signature) (err error) {
	if sig.IsZero() {
		return entities.ErrMissingSignature
	}

	keyPath, err := v.stageKey(sig.PublicKey)
	if err != nil {
		return fmt.Errorf("staging public key: %w", err)
	}
	defer func() {
		if rmErr := os.Remove(keyPath); rmErr != nil && err == nil {
			err = fmt.Errorf("removing staged key: %w", rmErr)
		}
	}()

	pub, hashFunc, err := loadPublicKey(keyPath)
	if err != nil {
		return err
	}

	der, err := decodeSignature(sig.Signature, pub)
	if err != nil {
		return err
	}

	verifier, err := signature.LoadVerifier(pub, hashFunc)
	if err != nil {
		return fmt.Errorf("loading verifier: %w", err)
	}

	message := append([]byte(signedPrefix), canonical...)
	if err := verifier.VerifySignature(bytes.NewReader(der), bytes.NewReader(message), options.WithContext(ctx)); err != nil {
		return fmt.Errorf("signature mismatch: %w", err)
	}
	return nil
}

// stageKey writes the PEM public key to a fresh temp file and returns its
// path. The caller owns removal.
func (v *ContentSignatureVerifier) stageKey(publicKey string) (string, error) {
	f, err := os.CreateTemp(v.TempDir, "sigwatch-pubkey-*.pem")
	if err != nil {
		return "", err
	}

	if _, err := f.WriteString(pemEncode(publicKey)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// pemEncode wraps a bare base64 key body in PEM armor. Keys already in PEM
// form pass through unchanged.
func pemEncode(publicKey string) string {
	if strings.Contains(publicKey, "BEGIN") {
		return publicKey
	}

	var b strings.Builder
	b.WriteString("-----BEGIN PUBLIC KEY-----\n")
	body := publicKey
	for len(body) > 64 {
		b.WriteString(body[:64])
		b.WriteByte('\n')
		body = body[64:]
	}
	b.WriteString(body)
	b.WriteString("\n-----END PUBLIC KEY-----\n")
	return b.String()
}

// loadPublicKey reads a staged PEM key and picks the hash matching its
// curve, per the content-signature protocol.
func loadPublicKey(path string) (*ecdsa.PublicKey, crypto.Hash, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("reading staged key: %w", err)
	}

	pub, err := cryptoutils.UnmarshalPEMToPublicKey(pemBytes)
	if err != nil {
		return nil, 0, fmt.Errorf("parsing public key: %w", err)
	}

	ecPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, 0, fmt.Errorf("unsupported public key type %T", pub)
	}

	switch ecPub.Curve.Params().BitSize {
	case 256:
		return ecPub, crypto.SHA256, nil
	case 384:
		return ecPub, crypto.SHA384, nil
	case 521:
		return ecPub, crypto.SHA512, nil
	default:
		return nil, 0, fmt.Errorf("unsupported curve %s", ecPub.Curve.Params().Name)
	}
}

// decodeSignature converts a base64url raw r||s signature into the DER
// form the verifier expects.
func decodeSignature(encoded string, pub *ecdsa.PublicKey) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return nil, fmt.Errorf("decoding signature: %w", err)
	}

	size := (pub.Curve.Params().BitSize + 7) / 8
	if len(raw) != 2*size {
		return nil, fmt.Errorf("signature length %d does not match curve size %d", len(raw), 2*size)
	}

	der, err := asn1.Marshal(struct {
		R, S *big.Int
	}{
		R: new(big.Int).SetBytes(raw[:size]),
		S: new(big.Int).SetBytes(raw[size:]),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding signature: %w", err)
	}
	return der, nil
}
