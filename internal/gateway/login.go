package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"classroll/internal/apperr"
	"classroll/internal/auth"
	"classroll/internal/model"
)

const loginFailed = "Login failed. Please check your credentials."

// Login exchanges credentials for a bearer token using the OAuth2
// password grant form the backend expects.
func (c *Client) Login(ctx context.Context, username, password string) (sess model.Session, err error) {
	defer observe("login", time.Now(), &err)

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.Session{}, apperr.Validation("Username and password are required")
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)
	form.Set("scope", "")
	form.Set("client_id", "string")
	form.Set("client_secret", "string")

	req, err := c.newRequest(ctx, http.MethodPost, PathLogin, strings.NewReader(form.Encode()))
	if err != nil {
		return model.Session{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, body, err := c.do(req)
	if err != nil {
		return model.Session{}, err
	}
	if resp.StatusCode >= 300 {
		return model.Session{}, apperr.Server(resp.StatusCode, serverMessage(body, loginFailed))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return model.Session{}, apperr.Unexpected("Unexpected response format", err)
	}
	if out.AccessToken == "" {
		return model.Session{}, apperr.Unexpected("Login response did not include a token", nil)
	}

	sess = model.Session{
		UserID:      username,
		Username:    username,
		DisplayName: username,
		AccessToken: out.AccessToken,
	}
	if claims, ok := auth.PeekClaims(out.AccessToken); ok {
		if claims.Subject != "" {
			sess.UserID = claims.Subject
		}
		if claims.Name != "" {
			sess.DisplayName = claims.Name
		}
	}
	return sess, nil
}
