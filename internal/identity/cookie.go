package identity

import (
	"context"
	"net/http"

	"github.com/meshflow/meshflow/backend/internal/utils"
)

// CookieStrategy keeps sessions entirely client side in a signed JWT.
// Revocation only clears the cookie.
type CookieStrategy struct {
	base
	signer *utils.JWTSigner
}

func newCookieStrategy(b base, secret string) *CookieStrategy {
	return &CookieStrategy{base: b, signer: utils.NewJWTSigner(secret)}
}

func (s *CookieStrategy) Name() string { return "cookie" }

func (s *CookieStrategy) Resolve(ctx context.Context, r *http.Request) (*Identity, error) {
	token := s.tokenFromRequest(r)
	if token == "" {
		return nil, nil
	}

	claims, err := s.signer.ParseToken(token)
	if err != nil {
		return nil, nil
	}
	return s.loadUser(ctx, claims.UserID)
}

func (s *CookieStrategy) Issue(_ context.Context, userID string) (string, error) {
	return s.signer.GenerateToken(userID, s.ttl)
}

func (s *CookieStrategy) Revoke(context.Context, *http.Request) error {
	return nil
}
