package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifier validates HS256 tokens minted by the identity provider. The
// `sub` claim is the stable participant identifier and must be present; `exp`
// is required so a leaked token cannot be replayed forever.
type JWTVerifier struct {
	secret []byte

	// now overrides the validation clock in tests.
	now func() time.Time
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(credential string) (string, error) {
	if credential == "" {
		return "", ErrMissingCredentials
	}

	opts := []jwt.ParserOption{
		// Pinning the algorithm prevents alg-confusion downgrades (none/RS256
		// headers against an HMAC secret).
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.now != nil {
		opts = append(opts, jwt.WithTimeFunc(v.now))
	}

	token, err := jwt.Parse(credential, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", errors.Join(ErrInvalidCredentials, err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidCredentials
	}
	return sub, nil
}
