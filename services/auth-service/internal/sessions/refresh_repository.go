package sessions

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/salonbook/salonbook/libs/db"
)

// RefreshToken is the identity a refresh token re-issues access tokens for.
type RefreshToken struct {
	ID         string
	Subject    string
	TenantID   string
	Role       string
	CustomerID string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
}

type RefreshRepository struct {
	conn db.Conn
}

func NewRefreshRepository(conn db.Conn) *RefreshRepository {
	return &RefreshRepository{conn: conn}
}

// Create stores a new token for t and returns the raw value; only its hash is kept.
func (r *RefreshRepository) Create(ctx context.Context, q db.Querier, t RefreshToken) (string, error) {
	raw, err := newRawToken()
	if err != nil {
		return "", apperr.Unexpected(err)
	}
	var customerID *string
	if t.CustomerID != "" {
		customerID = &t.CustomerID
	}
	_, err = q.Exec(ctx, `
		INSERT INTO refresh_tokens (token_hash, subject, tenant_id, role, customer_id, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, HashToken(raw), t.Subject, t.TenantID, t.Role, customerID, t.ExpiresAt)
	if err != nil {
		return "", apperr.Unexpected(fmt.Errorf("store refresh token: %w", err))
	}
	return raw, nil
}

// Rotate revokes raw and issues a replacement valid until expiresAt. Expired,
// revoked and unknown tokens are all unauthorized.
func (r *RefreshRepository) Rotate(ctx context.Context, raw string, now, expiresAt time.Time) (RefreshToken, string, error) {
	var (
		tok  RefreshToken
		next string
	)
	err := db.InTx(ctx, r.conn, func(tx pgx.Tx) error {
		var customerID *string
		err := tx.QueryRow(ctx, `
			SELECT id::text, subject, tenant_id::text, role, customer_id::text, expires_at, revoked_at
			FROM refresh_tokens
			WHERE token_hash = $1
			FOR UPDATE
		`, HashToken(raw)).Scan(&tok.ID, &tok.Subject, &tok.TenantID, &tok.Role, &customerID, &tok.ExpiresAt, &tok.RevokedAt)
		if err != nil {
			if db.IsNotFound(err) {
				return apperr.Unauthorized("invalid refresh token")
			}
			return apperr.Unexpected(fmt.Errorf("load refresh token: %w", err))
		}
		if customerID != nil {
			tok.CustomerID = *customerID
		}
		if tok.RevokedAt != nil || !now.Before(tok.ExpiresAt) {
			return apperr.Unauthorized("refresh token expired or revoked")
		}
		if _, err := tx.Exec(ctx, `UPDATE refresh_tokens SET revoked_at = $2 WHERE id = $1`, tok.ID, now); err != nil {
			return apperr.Unexpected(fmt.Errorf("revoke refresh token: %w", err))
		}
		tok.ExpiresAt = expiresAt
		next, err = r.Create(ctx, tx, tok)
		return err
	})
	if err != nil {
		return RefreshToken{}, "", err
	}
	return tok, next, nil
}

// Revoke is idempotent; unknown tokens are ignored.
func (r *RefreshRepository) Revoke(ctx context.Context, raw string) error {
	_, err := r.conn.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = now()
		WHERE token_hash = $1 AND revoked_at IS NULL
	`, HashToken(raw))
	if err != nil {
		return apperr.Unexpected(fmt.Errorf("revoke refresh token: %w", err))
	}
	return nil
}

func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func newRawToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
