package auth

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

const issuer = "salonbook-auth"

// Claims is the access token payload. CustomerID is only set on customer tokens.
type Claims struct {
	TenantID   string `json:"tenant_id"`
	Role       string `json:"role"`
	CustomerID string `json:"customer_id,omitempty"`
	jwt.RegisteredClaims
}

// NewClaims fills the registered claims for a token valid for ttl from now.
func NewClaims(subject, tenantID, role, customerID string, now time.Time, ttl time.Duration) Claims {
	return Claims{
		TenantID:   tenantID,
		Role:       role,
		CustomerID: customerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

// JWK is the public half of an RS256 key as published on /.well-known/jwks.json.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type Signer interface {
	Sign(claims Claims) (string, error)
	Verify(token string) (*Claims, error)
	JWKS() []JWK
}

type hs256Signer struct {
	secret []byte
}

func NewHS256Signer(secret string) Signer {
	return &hs256Signer{secret: []byte(secret)}
}

func (s *hs256Signer) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *hs256Signer) Verify(token string) (*Claims, error) {
	return ParseAndVerifyHS256(token, string(s.secret))
}

func (s *hs256Signer) JWKS() []JWK { return nil }

type rs256Signer struct {
	key *rsa.PrivateKey
	kid string
	jwk JWK
}

// NewRS256Signer parses a PEM private key. An empty kid is derived from the public key.
func NewRS256Signer(pemBytes []byte, kid string) (Signer, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, err
	}
	if kid == "" {
		kid = keyID(&key.PublicKey)
	}
	return &rs256Signer{key: key, kid: kid, jwk: publicJWK(&key.PublicKey, kid)}, nil
}

func (s *rs256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

func (s *rs256Signer) Verify(token string) (*Claims, error) {
	return VerifyRS256(token, &s.key.PublicKey)
}

func (s *rs256Signer) JWKS() []JWK { return []JWK{s.jwk} }

func ParseAndVerifyHS256(token, secret string) (*Claims, error) {
	return parse(token, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.SigningMethodHS256.Alg())
}

func VerifyRS256(token string, pub *rsa.PublicKey) (*Claims, error) {
	return parse(token, func(t *jwt.Token) (any, error) {
		return pub, nil
	}, jwt.SigningMethodRS256.Alg())
}

// KeyID returns the kid header of token without verifying it.
func KeyID(token string) (kid string, alg string, err error) {
	t, _, err := jwt.NewParser().ParseUnverified(token, &Claims{})
	if err != nil {
		return "", "", ErrInvalidToken
	}
	kid, _ = t.Header["kid"].(string)
	return kid, t.Method.Alg(), nil
}

func parse(token string, keyFunc jwt.Keyfunc, alg string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, keyFunc,
		jwt.WithValidMethods([]string{alg}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.TenantID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func publicJWK(pub *rsa.PublicKey, kid string) JWK {
	return JWK{
		Kty: "RSA",
		Kid: kid,
		Use: "sig",
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

func keyID(pub *rsa.PublicKey) string {
	sum := sha256.Sum256(pub.N.Bytes())
	return base64.RawURLEncoding.EncodeToString(sum[:8])
}
