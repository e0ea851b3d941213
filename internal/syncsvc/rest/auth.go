package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/julianstephens/ember/internal/models"
)

type tokenResponse struct {
	AccessToken  string             `json:"access_token"`
	TokenType    string             `json:"token_type"`
	ExpiresIn    int64              `json:"expires_in"`
	ExpiresAt    int64              `json:"expires_at"`
	RefreshToken string             `json:"refresh_token"`
	User         models.SessionUser `json:"user"`
}

func (c *Client) session(body []byte) (*models.Session, error) {
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access token")
	}

	s := &models.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		User:         tr.User,
	}
	switch {
	case tr.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(tr.ExpiresAt, 0).UTC()
	case tr.ExpiresIn > 0:
		s.ExpiresAt = c.clock.Now().Add(time.Duration(tr.ExpiresIn) * time.Second).UTC()
	}
	return s, nil
}

func (c *Client) token(ctx context.Context, op, grant string, payload map[string]string) (*models.Session, error) {
	body, err := c.do(ctx, request{
		op: op, table: "auth", method: http.MethodPost,
		path: "/auth/v1/token", query: url.Values{"grant_type": {grant}}, body: payload,
	})
	if err != nil {
		return nil, err
	}
	return c.session(body)
}

// ExchangeIdentity signs in with a third-party identity token. The service
// checks that the token's nonce claim is the hash of rawNonce.
func (c *Client) ExchangeIdentity(ctx context.Context, provider, idToken, rawNonce string) (*models.Session, error) {
	return c.token(ctx, "exchange", "id_token", map[string]string{
		"provider": provider,
		"id_token": idToken,
		"nonce":    rawNonce,
	})
}

func (c *Client) Refresh(ctx context.Context, session *models.Session) (*models.Session, error) {
	if session == nil || session.RefreshToken == "" {
		return nil, fmt.Errorf("session has no refresh token")
	}
	return c.token(ctx, "refresh", "refresh_token", map[string]string{
		"refresh_token": session.RefreshToken,
	})
}

func (c *Client) SignOut(ctx context.Context, session *models.Session) error {
	if session == nil || session.AccessToken == "" {
		return nil
	}
	_, err := c.do(ctx, request{
		op: "signout", table: "auth", method: http.MethodPost,
		path: "/auth/v1/logout", bearer: session.AccessToken,
	})
	return err
}
