// Package turnrest issues coturn-compatible TURN REST credentials
// (draft-uberti-behave-turn-rest) for clients fetching ICE configuration.
//
// Shape:
//
//	username   = <unix_expiry>:<prefix>:<participant_or_random>
//	credential = base64(hmac_sha1(shared_secret, username))
//
// Expiry is the server clock in UTC plus the configured TTL.
package turnrest

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Generator struct {
	sharedSecret   []byte
	ttlSeconds     int64
	usernamePrefix string
	now            func() time.Time

	participantIDSource func() (string, error)
}

type GeneratorConfig struct {
	SharedSecret   string
	TTLSeconds     int64
	UsernamePrefix string

	// Now and ParticipantIDSource exist for tests; nil means real clock and
	// crypto/rand.
	Now                 func() time.Time
	ParticipantIDSource func() (string, error)
}

func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if cfg.SharedSecret == "" {
		return nil, errors.New("shared secret is required")
	}
	if cfg.TTLSeconds <= 0 {
		return nil, errors.New("TTLSeconds must be > 0")
	}
	if cfg.UsernamePrefix == "" {
		return nil, errors.New("UsernamePrefix is required")
	}
	if strings.Contains(cfg.UsernamePrefix, ":") {
		return nil, errors.New("UsernamePrefix must not contain ':'")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ParticipantIDSource == nil {
		cfg.ParticipantIDSource = cryptoRandomParticipantID
	}
	return &Generator{
		sharedSecret:        []byte(cfg.SharedSecret),
		ttlSeconds:          cfg.TTLSeconds,
		usernamePrefix:      cfg.UsernamePrefix,
		now:                 cfg.Now,
		participantIDSource: cfg.ParticipantIDSource,
	}, nil
}

type Credentials struct {
	Username   string
	Credential string
	ExpiryUnix int64
}

// Generate mints credentials bound to participantID so coturn logs can be
// correlated with signaling sessions.
func (g *Generator) Generate(participantID string) (Credentials, error) {
	if participantID == "" {
		return Credentials{}, errors.New("participantID is required")
	}
	if strings.Contains(participantID, ":") {
		return Credentials{}, errors.New("participantID must not contain ':'")
	}
	expiryUnix := g.now().UTC().Unix() + g.ttlSeconds
	username := fmt.Sprintf("%d:%s:%s", expiryUnix, g.usernamePrefix, participantID)
	return Credentials{
		Username:   username,
		Credential: signUsername(g.sharedSecret, username),
		ExpiryUnix: expiryUnix,
	}, nil
}

// GenerateRandom mints credentials for anonymous clients that have not
// registered an identity yet.
func (g *Generator) GenerateRandom() (Credentials, error) {
	participantID, err := g.participantIDSource()
	if err != nil {
		return Credentials{}, err
	}
	return g.Generate(participantID)
}

func cryptoRandomParticipantID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

func signUsername(sharedSecret []byte, username string) string {
	mac := hmac.New(sha1.New, sharedSecret)
	_, _ = mac.Write([]byte(username))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
