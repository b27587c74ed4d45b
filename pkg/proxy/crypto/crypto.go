// Package crypto holds the Mojang signed player public keys sent by
// 1.19 to 1.19.2 clients during login.
package crypto

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/util/uuid"
)

// Revision is the revision of a player key.
type Revision int

const (
	// GenericV1 keys are signed over expiry and PEM encoded key (1.19).
	GenericV1 Revision = iota + 1
	// LinkedV2 keys are signed over holder, expiry and key (1.19.1 and 1.19.2).
	LinkedV2
)

func (r Revision) String() string {
	switch r {
	case GenericV1:
		return "GenericV1"
	case LinkedV2:
		return "LinkedV2"
	}
	return fmt.Sprintf("Revision(%d)", int(r))
}

// IdentifiedKey is a session-server cross-signed dated RSA public key.
type IdentifiedKey struct {
	Revision       Revision
	PublicKeyBytes []byte // DER encoded
	PublicKey      *rsa.PublicKey
	Signature      []byte
	Expiry         time.Time
}

// NewIdentifiedKey parses the DER encoded key.
func NewIdentifiedKey(revision Revision, key []byte, expiry int64, signature []byte) (*IdentifiedKey, error) {
	pk, err := x509.ParsePKIXPublicKey(key)
	if err != nil {
		return nil, fmt.Errorf("error parse public key: %w", err)
	}
	rsaKey, ok := pk.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("expected rsa public key, but got %T", pk)
	}
	return &IdentifiedKey{
		Revision:       revision,
		PublicKeyBytes: key,
		PublicKey:      rsaKey,
		Signature:      signature,
		Expiry:         time.UnixMilli(expiry),
	}, nil
}

// Expired checks if the signature of the key has expired.
func (k *IdentifiedKey) Expired() bool {
	return k.ExpiredAt(time.Now())
}

// ExpiredAt checks if the key is expired at t.
func (k *IdentifiedKey) ExpiredAt(t time.Time) bool {
	return t.After(k.Expiry)
}

// SignedData returns the data the session server signed for this key.
// holder is ignored for GenericV1 keys.
func (k *IdentifiedKey) SignedData(holder uuid.UUID) []byte {
	if k.Revision == GenericV1 {
		pemKey := pemEncodeKey(k.PublicKeyBytes, publicPemEncodeHeader)
		return []byte(fmt.Sprintf("%d%s", k.Expiry.UnixMilli(), pemKey))
	}
	buf := new(bytes.Buffer)
	_ = util.WriteUUID(buf, holder)
	_ = util.WriteInt64(buf, k.Expiry.UnixMilli())
	_, _ = buf.Write(k.PublicKeyBytes)
	return buf.Bytes()
}

// Verify checks the key signature against any of the signers.
// LinkedV2 keys require the holder the key was issued for.
func (k *IdentifiedKey) Verify(holder uuid.UUID, signers ...*rsa.PublicKey) bool {
	if k == nil || (k.Revision == LinkedV2 && holder == uuid.Nil) {
		return false
	}
	data := k.SignedData(holder)
	for _, signer := range signers {
		if verifySignature(crypto.SHA1, signer, k.Signature, data) {
			return true
		}
	}
	return false
}

// VerifyNonce checks the signature a 1.19 client made over the verify token
// and salt instead of encrypting the token.
func (k *IdentifiedKey) VerifyNonce(nonce []byte, salt int64, signature []byte) bool {
	if k == nil {
		return false
	}
	buf := new(bytes.Buffer)
	_ = util.WriteInt64(buf, salt)
	return verifySignature(crypto.SHA256, k.PublicKey, signature, nonce, buf.Bytes())
}

// ReadPlayerKey reads a player key in the login format.
func ReadPlayerKey(rd io.Reader, revision Revision) (*IdentifiedKey, error) {
	expiry, err := util.ReadInt64(rd)
	if err != nil {
		return nil, err
	}
	key, err := util.ReadBytesLen(rd, 512)
	if err != nil {
		return nil, err
	}
	signature, err := util.ReadBytesLen(rd, 4096)
	if err != nil {
		return nil, err
	}
	return NewIdentifiedKey(revision, key, expiry, signature)
}

// WritePlayerKey writes a player key in the login format.
func WritePlayerKey(wr io.Writer, key *IdentifiedKey) error {
	if err := util.WriteInt64(wr, key.Expiry.UnixMilli()); err != nil {
		return err
	}
	if err := util.WriteBytes(wr, key.PublicKeyBytes); err != nil {
		return err
	}
	return util.WriteBytes(wr, key.Signature)
}

func verifySignature(algorithm crypto.Hash, key *rsa.PublicKey, signature []byte, toVerify ...[]byte) bool {
	if key == nil || len(toVerify) == 0 {
		return false
	}
	hash := algorithm.New()
	for _, b := range toVerify {
		_, _ = hash.Write(b)
	}
	return rsa.VerifyPKCS1v15(key, algorithm, hash.Sum(nil), signature) == nil
}

const publicPemEncodeHeader = "RSA PUBLIC KEY"

// pemEncodeKey encodes the key the way the session server signs it
// (MIME base64 with 76 character lines).
func pemEncodeKey(key []byte, header string) string {
	enc := base64.StdEncoding.EncodeToString(key)
	var lines []string
	for len(enc) > 76 {
		lines = append(lines, enc[:76])
		enc = enc[76:]
	}
	lines = append(lines, enc)
	const format = "-----BEGIN %s-----\n%s\n-----END %s-----\n"
	return fmt.Sprintf(format, header, strings.Join(lines, "\n"), header)
}
