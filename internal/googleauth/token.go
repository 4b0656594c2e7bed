package googleauth

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// expirySkew treats tokens about to expire as already expired so a request
// does not start with a credential that dies mid-flight.
const expirySkew = 10 * time.Second

// Token is the delegated-user token in the authorized-user file shape written
// by the grant flow and accepted by the webhook service.
type Token struct {
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenURI     string    `json:"token_uri,omitempty"`
	ClientID     string    `json:"client_id,omitempty"`
	ClientSecret string    `json:"client_secret,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// ParseToken decodes a stored token document.
func ParseToken(data []byte) (*Token, error) {
	var t Token
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if t.AccessToken == "" && t.RefreshToken == "" {
		return nil, fmt.Errorf("parse token: no access or refresh token present")
	}
	return &t, nil
}

// JSON serializes the token back to its storage shape.
func (t *Token) JSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// Expired reports whether the access token is past (or within skew of) its
// expiry. A token without an expiry never expires.
func (t *Token) Expired(now time.Time) bool {
	if t.Expiry.IsZero() {
		return false
	}
	return now.After(t.Expiry.Add(-expirySkew))
}

// Valid reports whether the token can authorize a request right now.
func (t *Token) Valid(now time.Time) bool {
	return t.AccessToken != "" && !t.Expired(now)
}

func (t *Token) oauth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry,
		TokenType:    "Bearer",
	}
}

func (t *Token) config(scopes []string) *oauth2.Config {
	tokenURL := t.TokenURI
	if tokenURL == "" {
		tokenURL = google.Endpoint.TokenURL
	}
	if len(scopes) == 0 {
		scopes = t.Scopes
	}
	return &oauth2.Config{
		ClientID:     t.ClientID,
		ClientSecret: t.ClientSecret,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  google.Endpoint.AuthURL,
			TokenURL: tokenURL,
		},
	}
}

// tokenCachePath derives the local token file location from the client
// document name, or falls back to token.json in the working directory.
func tokenCachePath(credentialsFile string) string {
	if credentialsFile == "" {
		return "token.json"
	}
	if strings.HasSuffix(credentialsFile, ".json") {
		return strings.TrimSuffix(credentialsFile, ".json") + "_token.json"
	}
	return credentialsFile + "_token.json"
}
