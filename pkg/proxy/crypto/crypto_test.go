package crypto

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenoncommunity/xenon/pkg/util/uuid"
)

func sign(t *testing.T, signer *rsa.PrivateKey, data []byte) []byte {
	t.Helper()
	h := sha1.Sum(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, signer, crypto.SHA1, h[:])
	require.NoError(t, err)
	return sig
}

func newKey(t *testing.T, revision Revision, signer *rsa.PrivateKey, holder uuid.UUID, expiry time.Time) *IdentifiedKey {
	t.Helper()
	player, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&player.PublicKey)
	require.NoError(t, err)

	key, err := NewIdentifiedKey(revision, der, expiry.UnixMilli(), nil)
	require.NoError(t, err)
	key.Signature = sign(t, signer, key.SignedData(holder))
	return key
}

func TestIdentifiedKey_Verify(t *testing.T) {
	signer, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	holder := uuid.New()
	expiry := time.Now().Add(time.Hour)

	v1 := newKey(t, GenericV1, signer, uuid.Nil, expiry)
	assert.True(t, v1.Verify(uuid.Nil, &signer.PublicKey))
	assert.True(t, v1.Verify(uuid.Nil, &other.PublicKey, &signer.PublicKey))
	assert.False(t, v1.Verify(uuid.Nil, &other.PublicKey))

	v2 := newKey(t, LinkedV2, signer, holder, expiry)
	assert.True(t, v2.Verify(holder, &signer.PublicKey))
	assert.False(t, v2.Verify(uuid.New(), &signer.PublicKey))
	assert.False(t, v2.Verify(uuid.Nil, &signer.PublicKey))
}

func TestIdentifiedKey_VerifyNonce(t *testing.T) {
	player, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&player.PublicKey)
	require.NoError(t, err)
	key, err := NewIdentifiedKey(GenericV1, der, time.Now().Add(time.Hour).UnixMilli(), nil)
	require.NoError(t, err)

	nonce := []byte{1, 2, 3, 4}
	const salt int64 = 0x0102030405060708
	h := sha256.New()
	h.Write(nonce)
	h.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	sig, err := rsa.SignPKCS1v15(rand.Reader, player, crypto.SHA256, h.Sum(nil))
	require.NoError(t, err)

	assert.True(t, key.VerifyNonce(nonce, salt, sig))
	assert.False(t, key.VerifyNonce(nonce, salt+1, sig))
	assert.False(t, (*IdentifiedKey)(nil).VerifyNonce(nonce, salt, sig))
}

func TestIdentifiedKey_Expired(t *testing.T) {
	signer, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	key := newKey(t, GenericV1, signer, uuid.Nil, time.Now().Add(-time.Minute))
	assert.True(t, key.Expired())
	assert.False(t, key.ExpiredAt(time.Now().Add(-time.Hour)))
}

func TestPlayerKey_ReadWrite(t *testing.T) {
	signer, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	key := newKey(t, LinkedV2, signer, uuid.New(), time.Now().Add(time.Hour))

	buf := new(bytes.Buffer)
	require.NoError(t, WritePlayerKey(buf, key))
	got, err := ReadPlayerKey(buf, LinkedV2)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKeyBytes, got.PublicKeyBytes)
	assert.Equal(t, key.Signature, got.Signature)
	assert.Equal(t, key.Expiry.UnixMilli(), got.Expiry.UnixMilli())
}

func TestPemEncodeKey(t *testing.T) {
	pem := pemEncodeKey(bytes.Repeat([]byte{1}, 100), publicPemEncodeHeader)
	lines := strings.Split(strings.TrimSuffix(pem, "\n"), "\n")
	assert.Equal(t, "-----BEGIN RSA PUBLIC KEY-----", lines[0])
	assert.Len(t, lines[1], 76)
	assert.Equal(t, "-----END RSA PUBLIC KEY-----", lines[len(lines)-1])
}

func TestMojangSigners(t *testing.T) {
	signer, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&signer.PublicKey)
	require.NoError(t, err)

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = fmt.Fprintf(w, `{"playerCertificateKeys":[{"publicKey":%q}]}`,
			base64.StdEncoding.EncodeToString(der))
	}))
	defer srv.Close()

	m := NewMojangSigners(srv.Client(), time.Hour)
	m.URL = srv.URL

	keys, err := m.Signers(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.True(t, keys[0].Equal(&signer.PublicKey))

	_, err = m.Signers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "keys must be cached")
}
