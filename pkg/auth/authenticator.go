// Package auth authenticates joining online mode players with Mojang's session server.
package auth

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xenoncommunity/xenon/pkg/util/profile"
	"github.com/xenoncommunity/xenon/pkg/version"
)

// ErrNotFound is returned by AuthenticateJoin when the session server
// does not know the joining user, usually an offline mode client.
var ErrNotFound = errors.New("user not found by session server")

// Authenticator is a Mojang user authenticator.
type Authenticator interface {
	// PublicKey returns the public key encoded in ASN.1 DER form.
	PublicKey() []byte
	// Verify verifies the "verify token" sent by joining client.
	Verify(encryptedVerifyToken, actualVerifyToken []byte) (equal bool, err error)
	// DecryptSharedSecret decrypts the shared secret sent by the client.
	DecryptSharedSecret(encrypted []byte) (decrypted []byte, err error)
	// GenerateServerID returns the server hash to be used with AuthenticateJoin.
	GenerateServerID(serverID string, decryptedSharedSecret []byte) (hash string, err error)
	// AuthenticateJoin authenticates a joining user. The ip is optional.
	// Returns ErrNotFound if the session server has no profile for the user.
	AuthenticateJoin(ctx context.Context, serverHash, username, ip string) (*profile.GameProfile, error)
}

const defaultHasJoinedEndpoint = `https://sessionserver.mojang.com/session/minecraft/hasJoined`

var defaultHasJoinedBaseURL, _ = url.Parse(defaultHasJoinedEndpoint)

// DefaultHasJoinedURL returns the default hasJoined URL for the given serverHash and username.
// The userIP is optional.
func DefaultHasJoinedURL(serverHash, username, userIP string) string {
	return buildHasJoinedURL(defaultHasJoinedBaseURL, serverHash, username, userIP)
}

// CustomHasJoinedURL returns a HasJoinedURLFn that uses the given baseURL instead of the default official Mojang API.
func CustomHasJoinedURL(baseURL *url.URL) HasJoinedURLFn {
	if baseURL == nil {
		baseURL = defaultHasJoinedBaseURL
	}
	return func(serverHash, username, userIP string) string {
		return buildHasJoinedURL(baseURL, serverHash, username, userIP)
	}
}

func buildHasJoinedURL(baseURL *url.URL, serverHash, username, userIP string) string {
	query := url.Values{}
	query.Set("username", username)
	query.Set("serverId", serverHash)
	if userIP != "" {
		query.Set("ip", userIP)
	}
	return baseURL.ResolveReference(&url.URL{RawQuery: query.Encode()}).String()
}

// HasJoinedURLFn returns the url to authenticate a
// joining online mode user. Note that userIP is optional.
type HasJoinedURLFn func(serverHash, username, userIP string) string

// DefaultPrivateKeyBits is the default bit size of a generated private key.
const DefaultPrivateKeyBits = 1024

// DefaultTimeout is the http deadline of a session server request.
const DefaultTimeout = 10 * time.Second

// Options to create a new Authenticator.
type Options struct {
	// If not set, DefaultHasJoinedURL is used.
	HasJoinedURLFn HasJoinedURLFn
	// The servers private key.
	// If none is set, a new one will be generated.
	PrivateKey *rsa.PrivateKey
	// The http client to query the Mojang API.
	// If none is set, a new one is created with DefaultTimeout.
	Client *http.Client
}

// New returns a new Authenticator.
func New(options Options) (Authenticator, error) {
	var err error
	private := options.PrivateKey
	if private == nil {
		private, err = rsa.GenerateKey(rand.Reader, DefaultPrivateKeyBits)
		if err != nil {
			return nil, fmt.Errorf("error generating private key: %w", err)
		}
	}

	public, err := x509.MarshalPKIXPublicKey(private.Public())
	if err != nil {
		return nil, fmt.Errorf("error encoding public key to PKIX, ASN.1 DER: %w", err)
	}
	private.Precompute()

	cli := options.Client
	if cli == nil {
		cli = &http.Client{Timeout: DefaultTimeout}
	}
	cli.Transport = otelhttp.NewTransport(cli.Transport)
	cli.Transport = withHeader(cli.Transport, version.UserAgentHeader())

	hasJoinedURLFn := options.HasJoinedURLFn
	if hasJoinedURLFn == nil {
		hasJoinedURLFn = DefaultHasJoinedURL
	}

	return &authenticator{
		private:        private,
		public:         public,
		cli:            cli,
		hasJoinedURLFn: hasJoinedURLFn,
	}, nil
}

type authenticator struct {
	private        *rsa.PrivateKey
	public         []byte // ASN.1 DER form encoded
	cli            *http.Client
	hasJoinedURLFn HasJoinedURLFn
}

var _ Authenticator = (*authenticator)(nil)

func (a *authenticator) PublicKey() []byte {
	return a.public
}

func (a *authenticator) Verify(encryptedVerifyToken, actualVerifyToken []byte) (bool, error) {
	decryptedVerifyToken, err := rsa.DecryptPKCS1v15(rand.Reader, a.private, encryptedVerifyToken)
	if err != nil {
		return false, fmt.Errorf("error decrypting verify token: %w", err)
	}
	return bytes.Equal(decryptedVerifyToken, actualVerifyToken), nil
}

func (a *authenticator) DecryptSharedSecret(encrypted []byte) (decrypted []byte, err error) {
	return rsa.DecryptPKCS1v15(rand.Reader, a.private, encrypted)
}

func (a *authenticator) AuthenticateJoin(ctx context.Context, serverHash, username, ip string) (*profile.GameProfile, error) {
	hasJoinedURL := a.hasJoinedURLFn(serverHash, username, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hasJoinedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating authentication request: %w", err)
	}

	log := logr.FromContextOrDiscard(ctx).V(1).WithName("authnJoin")
	log.Info("authenticating user against sessionserver", "url", hasJoinedURL)

	start := time.Now()
	resp, err := a.cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error authenticating join with Mojang sessionserver: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	log.Info("sessionserver responded",
		"time", time.Since(start).String(),
		"statusCode", resp.StatusCode)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusUnauthorized:
		// Unknown user or outdated session token.
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("got unexpected status code (%d) from Mojang sessionserver", resp.StatusCode)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrNotFound
	}

	var p profile.GameProfile
	if err = json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("error unmarshal GameProfile: %w", err)
	}
	if p.Name == "" {
		return nil, ErrNotFound
	}
	return &p, nil
}

// GenerateServerID returns sha1(serverID ++ secret ++ publicKey) as Minecraft style signed hex digest.
func (a *authenticator) GenerateServerID(serverID string, decryptedSharedSecret []byte) (string, error) {
	return ServerHash(serverID, decryptedSharedSecret, a.public)
}

// ServerHash returns the signed hex digest the session server expects as serverId.
func ServerHash(serverID string, secret, publicKey []byte) (string, error) {
	h := sha1.New()
	for _, b := range [][]byte{[]byte(serverID), secret, publicKey} {
		if _, err := h.Write(b); err != nil {
			return "", fmt.Errorf("error writing sha1: %w", err)
		}
	}
	return hexDigest(h.Sum(nil)), nil
}

func hexDigest(hash []byte) string {
	var s strings.Builder
	// Check for negative hash
	if (hash[0] & 0x80) == 0x80 {
		hash = twosComplement(hash)
		s.WriteRune('-')
	}
	s.WriteString(strings.TrimLeft(hex.EncodeToString(hash), "0"))
	return s.String()
}

// big endian!
func twosComplement(p []byte) []byte {
	carry := true
	for i := len(p) - 1; i >= 0; i-- {
		p[i] = ^p[i]
		if carry {
			carry = p[i] == 0xff
			p[i]++
		}
	}
	return p
}

func withHeader(rt http.RoundTripper, header http.Header) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return headerRoundTripper{Header: header, rt: rt}
}

type headerRoundTripper struct {
	http.Header
	rt http.RoundTripper
}

func (h headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range h.Header {
		req.Header[k] = v
	}
	return h.rt.RoundTrip(req)
}
