package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/questline/calsync/internal/provider"
	"github.com/questline/calsync/internal/store"
)

// ConnectionStore is the subset of connection persistence the engine needs.
type ConnectionStore interface {
	Get(ctx context.Context, userID, providerName string) (*store.Connection, error)
	Save(ctx context.Context, conn *store.Connection) error
}

// expirySkew is the safety margin before the recorded expiry at which a
// token is refreshed, so a token handed to the fetcher never expires
// mid-request.
const expirySkew = 5 * time.Minute

// TokenManager guarantees callers a non-expired access token for a
// connection, refreshing and persisting when necessary.
type TokenManager struct {
	connections ConnectionStore
	prov        provider.CalendarProvider
	now         func() time.Time
}

func NewTokenManager(connections ConnectionStore, prov provider.CalendarProvider) *TokenManager {
	return &TokenManager{
		connections: connections,
		prov:        prov,
		now:         time.Now,
	}
}

// ValidAccessToken returns a non-expired access token for conn. If the
// stored token is still inside the safety margin it is returned without a
// network call. Otherwise a refresh-token exchange is performed and the new
// token and expiry are persisted before returning. Nothing is persisted on
// failure, so a stale-but-valid token stays available for inspection.
func (m *TokenManager) ValidAccessToken(ctx context.Context, conn *store.Connection) (string, error) {
	if conn.AccessToken != "" && m.now().Before(conn.TokenExpiry.Add(-expirySkew)) {
		return conn.AccessToken, nil
	}

	if conn.RefreshToken == "" {
		return "", fmt.Errorf("%w: connection has no refresh token", ErrTokenUnavailable)
	}

	token, err := m.prov.RefreshToken(ctx, conn.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenUnavailable, err)
	}

	conn.AccessToken = token.AccessToken
	conn.TokenExpiry = token.Expiry
	if conn.TokenExpiry.IsZero() {
		conn.TokenExpiry = m.now().Add(time.Hour)
	}
	// Providers may omit the refresh token on refresh; never blank a
	// stored one.
	if token.RefreshToken != "" {
		conn.RefreshToken = token.RefreshToken
	}

	if err := m.connections.Save(ctx, conn); err != nil {
		return "", fmt.Errorf("failed to persist refreshed token: %w", err)
	}
	return conn.AccessToken, nil
}
