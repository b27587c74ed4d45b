package crypto

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultPublicKeysURL lists the keys Mojang signs player certificates with.
const DefaultPublicKeysURL = "https://api.minecraftservices.com/publickeys"

// SignerSource provides the public keys player keys are verified against.
type SignerSource interface {
	Signers(ctx context.Context) ([]*rsa.PublicKey, error)
}

// StaticSigners is a SignerSource with fixed keys.
type StaticSigners []*rsa.PublicKey

func (s StaticSigners) Signers(context.Context) ([]*rsa.PublicKey, error) { return s, nil }

// MojangSigners fetches and caches the player certificate keys of the services API.
type MojangSigners struct {
	URL    string       // defaults to DefaultPublicKeysURL
	Client *http.Client // defaults to http.DefaultClient

	cache *ttlcache.Cache[string, []*rsa.PublicKey]
}

// NewMojangSigners returns a MojangSigners caching fetched keys for ttl.
func NewMojangSigners(client *http.Client, ttl time.Duration) *MojangSigners {
	return &MojangSigners{
		URL:    DefaultPublicKeysURL,
		Client: client,
		cache: ttlcache.New[string, []*rsa.PublicKey](
			ttlcache.WithTTL[string, []*rsa.PublicKey](ttl),
			ttlcache.WithDisableTouchOnHit[string, []*rsa.PublicKey](),
		),
	}
}

const signersCacheKey = "playerCertificateKeys"

func (m *MojangSigners) Signers(ctx context.Context) ([]*rsa.PublicKey, error) {
	if item := m.cache.Get(signersCacheKey); item != nil {
		return item.Value(), nil
	}
	keys, err := m.fetch(ctx)
	if err != nil {
		return nil, err
	}
	m.cache.Set(signersCacheKey, keys, ttlcache.DefaultTTL)
	return keys, nil
}

type publicKeysResponse struct {
	PlayerCertificateKeys []struct {
		PublicKey string `json:"publicKey"`
	} `json:"playerCertificateKeys"`
}

func (m *MojangSigners) fetch(ctx context.Context) ([]*rsa.PublicKey, error) {
	url := m.URL
	if url == "" {
		url = DefaultPublicKeysURL
	}
	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching signer keys: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error fetching signer keys: unexpected status %s", resp.Status)
	}
	var res publicKeysResponse
	if err = json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("error decoding signer keys: %w", err)
	}
	encoded := make([]string, 0, len(res.PlayerCertificateKeys))
	for _, k := range res.PlayerCertificateKeys {
		encoded = append(encoded, k.PublicKey)
	}
	return ParseSigners(encoded...)
}

// ParseSigners parses base64 DER encoded public keys.
func ParseSigners(encoded ...string) ([]*rsa.PublicKey, error) {
	keys := make([]*rsa.PublicKey, 0, len(encoded))
	for _, e := range encoded {
		der, err := base64.StdEncoding.DecodeString(e)
		if err != nil {
			return nil, fmt.Errorf("error decoding signer key: %w", err)
		}
		pk, err := x509.ParsePKIXPublicKey(der)
		if err != nil {
			return nil, fmt.Errorf("error parsing signer key: %w", err)
		}
		rsaKey, ok := pk.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("expected rsa signer key, but got %T", pk)
		}
		keys = append(keys, rsaKey)
	}
	if len(keys) == 0 {
		return nil, errors.New("no signer keys")
	}
	return keys, nil
}
