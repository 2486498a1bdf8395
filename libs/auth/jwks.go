package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"
)

var ErrKeyNotFound = errors.New("jwks key not found")

type jwksDocument struct {
	Keys []JWK `json:"keys"`
}

// JWKSClient caches the auth service's published RS256 keys.
type JWKSClient struct {
	url     string
	ttl     time.Duration
	http    *http.Client
	mu      sync.Mutex
	expires time.Time
	keys    map[string]*rsa.PublicKey
}

func NewJWKSClient(url string, ttl time.Duration, client *http.Client) *JWKSClient {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	return &JWKSClient{url: url, ttl: ttl, http: client, keys: map[string]*rsa.PublicKey{}}
}

func (c *JWKSClient) Get(ctx context.Context, keyID string) (*rsa.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Now().Before(c.expires) {
		if key, ok := c.keys[keyID]; ok {
			return key, nil
		}
	}

	if err := c.refresh(ctx); err != nil {
		// Serve a stale key rather than failing every request during an auth outage.
		if key, ok := c.keys[keyID]; ok {
			return key, nil
		}
		return nil, err
	}
	if key, ok := c.keys[keyID]; ok {
		return key, nil
	}
	return nil, ErrKeyNotFound
}

func (c *JWKSClient) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks endpoint returned %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return err
	}

	keys := map[string]*rsa.PublicKey{}
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.N == "" || k.E == "" || k.Kid == "" {
			continue
		}
		pub, err := jwkToPublicKey(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	c.keys = keys
	c.expires = time.Now().Add(c.ttl)
	return nil
}

func jwkToPublicKey(k JWK) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}
	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() > int64(^uint(0)>>1) {
		return nil, errors.New("invalid jwk exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: int(e.Int64())}, nil
}

// Verifier checks access tokens at the edge: RS256 tokens against the JWKS,
// everything else against the shared HS256 secret.
type Verifier struct {
	secret string
	jwks   *JWKSClient
}

func NewVerifier(secret string, jwks *JWKSClient) *Verifier {
	return &Verifier{secret: secret, jwks: jwks}
}

func (v *Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	if v.jwks != nil {
		kid, alg, err := KeyID(token)
		if err != nil {
			return nil, err
		}
		if alg == "RS256" && kid != "" {
			pub, err := v.jwks.Get(ctx, kid)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
			}
			return VerifyRS256(token, pub)
		}
	}
	return ParseAndVerifyHS256(token, v.secret)
}
