// Package localauth performs the identity exchange for self-hosted SQL
// backends, where no identity service sits in front of the data.
package localauth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/julianstephens/ember/internal/constants"
	"github.com/julianstephens/ember/internal/models"
	"github.com/julianstephens/ember/internal/nonce"
)

var (
	ErrMissingSubject = errors.New("identity token has no subject")
	ErrTokenExpired   = errors.New("identity token has expired")
	ErrNonceMismatch  = errors.New("identity token nonce does not match")
	ErrNoRefresh      = errors.New("session cannot be refreshed")
)

// Authenticator accepts identity tokens whose nonce claim is the hash of
// the raw nonce presented with them. The token signature is not checked:
// the local database belongs to the person running the client.
//
// Access tokens it issues are opaque to the SQL backends. Each is signed
// with a throwaway key and only its sub and exp claims are ever read.
type Authenticator struct {
	clock    clockwork.Clock
	lifetime time.Duration
	parser   *jwt.Parser
	entropy  io.Reader
}

// New returns an Authenticator issuing sessions that last lifetime
func New(clock clockwork.Clock, lifetime time.Duration) *Authenticator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if lifetime <= 0 {
		lifetime = constants.LocalSessionLifetime
	}
	return &Authenticator{
		clock:    clock,
		lifetime: lifetime,
		parser:   jwt.NewParser(),
		entropy:  rand.Reader,
	}
}

func (a *Authenticator) ExchangeIdentity(ctx context.Context, provider, idToken, rawNonce string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{}
	if _, _, err := a.parser.ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("parse %s identity token: %w", provider, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrMissingSubject
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && !a.clock.Now().Before(exp.Time) {
		return nil, ErrTokenExpired
	}

	hashed, _ := claims["nonce"].(string)
	if rawNonce == "" || hashed == "" || !nonce.Matches(rawNonce, hashed) {
		return nil, ErrNonceMismatch
	}

	email, _ := claims["email"].(string)
	return a.issue(models.SessionUser{ID: sub, Email: email})
}

func (a *Authenticator) Refresh(ctx context.Context, session *models.Session) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if session == nil || session.RefreshToken == "" || session.User.ID == "" {
		return nil, ErrNoRefresh
	}
	return a.issue(session.User)
}

// SignOut has nothing to revoke locally
func (a *Authenticator) SignOut(ctx context.Context, session *models.Session) error {
	return nil
}

func (a *Authenticator) issue(user models.SessionUser) (*models.Session, error) {
	now := a.clock.Now()
	expires := now.Add(a.lifetime)

	access, err := sign(a.entropy, jwt.RegisteredClaims{
		Subject:   user.ID,
		Issuer:    constants.AppName,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	return &models.Session{
		AccessToken:  access,
		RefreshToken: uuid.NewString(),
		TokenType:    "bearer",
		ExpiresAt:    time.Unix(expires.Unix(), 0).UTC(),
		User:         user,
	}, nil
}

// SelfIssue mints an identity token for subject bound to hashedNonce. It
// lets a local database user sign in without an identity provider.
func SelfIssue(subject, hashedNonce string, now time.Time) (string, error) {
	if subject == "" {
		return "", ErrMissingSubject
	}
	return sign(rand.Reader, jwt.MapClaims{
		"sub":   subject,
		"iss":   constants.AppName,
		"nonce": hashedNonce,
		"iat":   now.Unix(),
		"exp":   now.Add(10 * time.Minute).Unix(),
	})
}

// sign signs claims with HS256 under a fresh key read from entropy
func sign(entropy io.Reader, claims jwt.Claims) (string, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(entropy, key); err != nil {
		return "", fmt.Errorf("generate signing key: %w", err)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}
