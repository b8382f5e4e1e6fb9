package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "hmac-secret"

func mint(t *testing.T, secret string, claims jwt.MapClaims, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestJWTVerifyValid(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	token := mint(t, testSecret, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, jwt.SigningMethodHS256)

	identity, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if identity != "alice" {
		t.Fatalf("identity=%q, want alice", identity)
	}
}

func TestJWTVerifyExpired(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	v.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	token := mint(t, testSecret, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, jwt.SigningMethodHS256)

	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err=%v, want ErrInvalidCredentials", err)
	}
}

func TestJWTVerifyMissingExpiry(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	token := mint(t, testSecret, jwt.MapClaims{"sub": "alice"}, jwt.SigningMethodHS256)

	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err=%v, want ErrInvalidCredentials", err)
	}
}

func TestJWTVerifyWrongSecret(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	token := mint(t, "other-secret", jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, jwt.SigningMethodHS256)

	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err=%v, want ErrInvalidCredentials", err)
	}
}

func TestJWTVerifyMissingSubject(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	token := mint(t, testSecret, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}, jwt.SigningMethodHS256)

	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err=%v, want ErrInvalidCredentials", err)
	}
}

func TestJWTVerifyRejectsUnsignedAlg(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := v.Verify(signed); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err=%v, want ErrInvalidCredentials", err)
	}
}

func TestJWTVerifyEmptyCredential(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	if _, err := v.Verify(""); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("err=%v, want ErrMissingCredentials", err)
	}
}
