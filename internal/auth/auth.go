// Package auth is the identity-provider boundary. The core never sees
// credentials: a Verifier turns an opaque credential into a stable
// participant identifier (or rejects it), and everything past this package
// works with that identifier only.
package auth

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/johnEmman/server-v3/internal/config"
)

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Verifier checks a credential presented during the signaling handshake.
//
// The returned identity is the stable participant identifier carried by the
// credential, or "" when the auth mode carries no identity (api_key, none);
// in that case identity is claimed by the client's register message.
type Verifier interface {
	Verify(credential string) (identity string, err error)
}

func NewVerifier(cfg config.Config) (Verifier, error) {
	switch cfg.AuthMode {
	case config.AuthModeNone:
		return NoneVerifier{}, nil
	case config.AuthModeAPIKey:
		return APIKeyVerifier{Expected: cfg.APIKey}, nil
	case config.AuthModeJWT:
		return NewJWTVerifier(cfg.JWTSecret), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.AuthMode)
	}
}

// NoneVerifier accepts everything and carries no identity.
type NoneVerifier struct{}

func (NoneVerifier) Verify(string) (string, error) { return "", nil }

// CredentialFromQuery extracts a credential from the WebSocket URL query.
// Clients that cannot set headers (browsers) may pass ?apiKey= or ?token=
// instead of sending an auth message first.
func CredentialFromQuery(mode config.AuthMode, q url.Values) (string, error) {
	switch mode {
	case config.AuthModeNone:
		return "", nil
	case config.AuthModeAPIKey:
		if apiKey := q.Get("apiKey"); apiKey != "" {
			return apiKey, nil
		}
		return "", ErrMissingCredentials
	case config.AuthModeJWT:
		if token := q.Get("token"); token != "" {
			return token, nil
		}
		return "", ErrMissingCredentials
	default:
		return "", fmt.Errorf("unsupported auth mode %q", mode)
	}
}

// CredentialFromMessage extracts a credential from an in-band auth message.
func CredentialFromMessage(mode config.AuthMode, apiKey, token string) (string, error) {
	switch mode {
	case config.AuthModeNone:
		return "", nil
	case config.AuthModeAPIKey:
		if apiKey != "" {
			return apiKey, nil
		}
		return "", ErrMissingCredentials
	case config.AuthModeJWT:
		if token != "" {
			return token, nil
		}
		return "", ErrMissingCredentials
	default:
		return "", fmt.Errorf("unsupported auth mode %q", mode)
	}
}
