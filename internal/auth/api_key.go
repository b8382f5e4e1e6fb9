package auth

import "crypto/subtle"

// APIKeyVerifier accepts a single shared API key. The comparison is constant
// time; the key carries no participant identity.
type APIKeyVerifier struct {
	Expected string
}

func (v APIKeyVerifier) Verify(credential string) (string, error) {
	if credential == "" {
		return "", ErrMissingCredentials
	}
	if v.Expected == "" {
		return "", ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(credential), []byte(v.Expected)) != 1 {
		return "", ErrInvalidCredentials
	}
	return "", nil
}
