package signing

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigwatch-dev/sigwatch/collection/canonical"
	"github.com/sigwatch-dev/sigwatch/collection/entities"
	"github.com/sigwatch-dev/sigwatch/collection/values"
)

// signContent produces a detached content signature the way the remote
// signing worker does: SHA-384 over the prefixed message, raw r||s,
// base64url.
func signContent(t *testing.T, key *ecdsa.PrivateKey, canonicalBytes []byte) string {
	t.Helper()

	digest := sha512.Sum384(append([]byte(signedPrefix), canonicalBytes...))
	r, s, err := ecdsa.Sign(rand.Reader, key, digest[:])
	require.NoError(t, err)

	size := (key.Curve.Params().BitSize + 7) / 8
	raw := make([]byte, 2*size)
	r.FillBytes(raw[:size])
	s.FillBytes(raw[size:])
	return base64.RawURLEncoding.EncodeToString(raw)
}

func publicKeyBody(t *testing.T, key *ecdsa.PrivateKey) string {
	t.Helper()

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(der)
}

func testRecordSet() entities.RecordSet {
	return entities.RecordSet{
		Records: []entities.Record{
			{"id": "b", "last_modified": float64(200)},
			{"id": "a", "last_modified": float64(100)},
		},
		Timestamp: values.Timestamp(200),
	}
}

func TestVerify(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)

	canonicalBytes, err := canonical.NewSerializer().Canonicalize(testRecordSet())
	require.NoError(t, err)

	sig := values.Signature{
		Signature: signContent(t, key, canonicalBytes),
		PublicKey: publicKeyBody(t, key),
	}

	t.Run("valid signature", func(t *testing.T) {
		v := NewContentSignatureVerifier()
		assert.NoError(t, v.Verify(context.Background(), canonicalBytes, sig))
	})

	t.Run("tampered content", func(t *testing.T) {
		v := NewContentSignatureVerifier()
		tampered := append([]byte(nil), canonicalBytes...)
		tampered[len(tampered)-2] ^= 0x01
		assert.Error(t, v.Verify(context.Background(), tampered, sig))
	})

	t.Run("reordered records fail", func(t *testing.T) {
		// The signer canonicalized over descending order; any other
		// order must not verify.
		set := testRecordSet()
		set.Records[0], set.Records[1] = set.Records[1], set.Records[0]
		reordered, err := canonical.NewSerializer().Canonicalize(set)
		require.NoError(t, err)

		v := NewContentSignatureVerifier()
		assert.Error(t, v.Verify(context.Background(), reordered, sig))
	})

	t.Run("wrong key", func(t *testing.T) {
		otherKey, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
		require.NoError(t, err)

		v := NewContentSignatureVerifier()
		badSig := sig
		badSig.PublicKey = publicKeyBody(t, otherKey)
		assert.Error(t, v.Verify(context.Background(), canonicalBytes, badSig))
	})

	t.Run("missing signature", func(t *testing.T) {
		v := NewContentSignatureVerifier()
		err := v.Verify(context.Background(), canonicalBytes, values.Signature{})
		assert.ErrorIs(t, err, entities.ErrMissingSignature)
	})

	t.Run("malformed signature value", func(t *testing.T) {
		v := NewContentSignatureVerifier()
		badSig := sig
		badSig.Signature = "%%%not-base64%%%"
		assert.Error(t, v.Verify(context.Background(), canonicalBytes, badSig))
	})
}

func TestVerify_StagedKeyRemoved(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)

	canonicalBytes, err := canonical.NewSerializer().Canonicalize(testRecordSet())
	require.NoError(t, err)

	sig := values.Signature{
		Signature: signContent(t, key, canonicalBytes),
		PublicKey: publicKeyBody(t, key),
	}

	assertEmpty := func(t *testing.T, dir string) {
		t.Helper()
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "staged key must be removed on every exit path")
	}

	t.Run("after success", func(t *testing.T) {
		v := &ContentSignatureVerifier{TempDir: t.TempDir()}
		require.NoError(t, v.Verify(context.Background(), canonicalBytes, sig))
		assertEmpty(t, v.TempDir)
	})

	t.Run("after verification failure", func(t *testing.T) {
		v := &ContentSignatureVerifier{TempDir: t.TempDir()}
		tampered := append([]byte(nil), canonicalBytes...)
		tampered[0] ^= 0x01
		require.Error(t, v.Verify(context.Background(), tampered, sig))
		assertEmpty(t, v.TempDir)
	})

	t.Run("after key parse failure", func(t *testing.T) {
		v := &ContentSignatureVerifier{TempDir: t.TempDir()}
		badSig := sig
		badSig.PublicKey = "garbage"
		require.Error(t, v.Verify(context.Background(), canonicalBytes, badSig))
		assertEmpty(t, v.TempDir)
	})
}
