package auth

import (
	"sync"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

type config interface {
	Token() string
}

type cacheResetter interface {
	Reset()
}

// Provider supplies the current owner identifier, extracted from the
// sign-in id-token. The token signature is the auth backend's business;
// here it is only a carrier for the owner id.
type Provider struct {
	cache cacheResetter

	mu      sync.Mutex
	ownerID string
}

func New(cfg config, cache cacheResetter) (*Provider, error) {
	owner, err := ownerFromToken(cfg.Token())
	if err != nil {
		return nil, errors.Wrap(err, "auth init")
	}
	return &Provider{cache: cache, ownerID: owner}, nil
}

func (p *Provider) OwnerID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ownerID
}

// SetToken switches to a new id-token, e.g. after sign-out/sign-in. When
// the owner changes, everything cached for the previous identity is
// invalidated so new subscriptions start from the remote store.
func (p *Provider) SetToken(token string) error {
	owner, err := ownerFromToken(token)
	if err != nil {
		return errors.Wrap(err, "set token")
	}

	p.mu.Lock()
	changed := owner != p.ownerID
	p.ownerID = owner
	p.mu.Unlock()

	if changed && p.cache != nil {
		p.cache.Reset()
	}
	return nil
}

func ownerFromToken(token string) (string, error) {
	parser := gojwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, gojwt.MapClaims{})
	if err != nil {
		return "", errors.Wrap(err, "parsing id-token")
	}

	claims := parsed.Claims.(gojwt.MapClaims)

	// Firebase-style tokens carry the uid in "user_id"; fall back to the
	// standard subject claim.
	if uid, ok := claims["user_id"].(string); ok && uid != "" {
		return uid, nil
	}
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub, nil
	}
	return "", errors.New("id-token has no owner claim")
}
