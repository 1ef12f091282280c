package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AuthRepository stores short-lived authentication state in Redis: hashed
// verification codes keyed by email, and a denylist of revoked token ids.
type AuthRepository struct {
	client *redis.Client
}

// NewAuthRepository constructs an AuthRepository.
func NewAuthRepository(client *redis.Client) *AuthRepository {
	return &AuthRepository{client: client}
}

func codeKey(email string) string {
	return fmt.Sprintf("auth_code_%s", email)
}

func denyKey(tokenID string) string {
	return fmt.Sprintf("auth_denied_%s", tokenID)
}

// StoreCodeHash saves the bcrypt hash of a verification code. A new login
// request overwrites any outstanding code for the same email.
func (r *AuthRepository) StoreCodeHash(ctx context.Context, email, hash string, ttl time.Duration) error {
	if err := r.client.Set(ctx, codeKey(email), hash, ttl).Err(); err != nil {
		return fmt.Errorf("store verification code for %s: %w", email, err)
	}
	return nil
}

// GetCodeHash returns the stored hash, or empty string when no code is
// outstanding for the email.
func (r *AuthRepository) GetCodeHash(ctx context.Context, email string) (string, error) {
	hash, err := r.client.Get(ctx, codeKey(email)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("get verification code for %s: %w", email, err)
	}
	return hash, nil
}

// DeleteCode invalidates the outstanding code after successful verification.
func (r *AuthRepository) DeleteCode(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, codeKey(email)).Err(); err != nil {
		return fmt.Errorf("delete verification code for %s: %w", email, err)
	}
	return nil
}

// DenyToken records a token id as revoked until its natural expiry.
func (r *AuthRepository) DenyToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, denyKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("deny token %s: %w", tokenID, err)
	}
	return nil
}

// IsTokenDenied reports whether a token id has been revoked.
func (r *AuthRepository) IsTokenDenied(ctx context.Context, tokenID string) (bool, error) {
	_, err := r.client.Get(ctx, denyKey(tokenID)).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("check token %s: %w", tokenID, err)
	}
	return true, nil
}
