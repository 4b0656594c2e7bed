// Package googleauth establishes and maintains the credential used for all
// Google API access: a static service identity or a refreshable delegated
// user token.
package googleauth

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Method selects the credential strategy.
type Method string

const (
	MethodServiceAccount Method = "service_account"
	MethodOAuth          Method = "oauth"
)

// DefaultScopes cover Drive file access and spreadsheet manipulation.
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/drive",
	"https://www.googleapis.com/auth/spreadsheets",
}

// DefaultEnvVar is the environment variable holding the identity document
// when no inline document or file is configured.
const DefaultEnvVar = "GOOGLE_CREDENTIALS"

// TokenStore persists a refreshed token outside the process. Pushes are best
// effort: the caller logs failures and keeps the in-memory credential.
type TokenStore interface {
	Save(ctx context.Context, token []byte) error
}

// Options configure credential construction.
type Options struct {
	Method Method

	// Identity document sources, in priority order: inline bytes, local
	// file, environment (from EnvFile when set, else process env).
	CredentialsJSON []byte
	CredentialsFile string
	EnvFile         string
	EnvVar          string

	// TokenJSON is an inline delegated-user token. When absent, the local
	// cache file derived from CredentialsFile is consulted.
	TokenJSON []byte

	Scopes []string

	// TokenStore receives refreshed tokens when set.
	TokenStore TokenStore

	// AllowGrantFlow enables the interactive browser grant as a last
	// resort. Must stay false on serverless deployments.
	AllowGrantFlow bool

	// now overrides the clock in tests.
	now func() time.Time
}

func (o Options) clock() time.Time {
	if o.now != nil {
		return o.now()
	}
	return time.Now()
}

func (o Options) scopes() []string {
	if len(o.Scopes) > 0 {
		return o.Scopes
	}
	return DefaultScopes
}

func (o Options) envVar() string {
	if o.EnvVar != "" {
		return o.EnvVar
	}
	return DefaultEnvVar
}

// Credential is a ready-to-use authorization for the storage collaborators.
type Credential struct {
	Method Method
	// Token is set for delegated-user credentials only.
	Token *Token

	source oauth2.TokenSource
}

// TokenSource exposes the underlying oauth2 source for API clients.
func (c *Credential) TokenSource() oauth2.TokenSource {
	return c.source
}

// Build constructs a credential according to opts. All terminal failures are
// *AuthError values.
func Build(ctx context.Context, opts Options) (*Credential, error) {
	switch opts.Method {
	case MethodServiceAccount:
		return buildServiceAccount(ctx, opts)
	case MethodOAuth, "":
		return buildOAuth(ctx, opts)
	default:
		return nil, fmt.Errorf("unsupported auth method: %s", opts.Method)
	}
}

func buildServiceAccount(ctx context.Context, opts Options) (*Credential, error) {
	doc, err := loadIdentityDocument(opts)
	if err != nil {
		return nil, err
	}
	if len(doc) == 0 {
		return nil, authErr(KindMissingIdentity, "no service identity document configured")
	}

	conf, err := google.JWTConfigFromJSON(doc, opts.scopes()...)
	if err != nil {
		return nil, authErr(KindMissingIdentity, "invalid service identity document: %w", err)
	}

	return &Credential{
		Method: MethodServiceAccount,
		source: conf.TokenSource(ctx),
	}, nil
}

func buildOAuth(ctx context.Context, opts Options) (*Credential, error) {
	now := opts.clock()

	var (
		tok       *Token
		fromFile  bool
		hadToken  bool
		cachePath string
	)

	if len(opts.TokenJSON) > 0 {
		parsed, err := ParseToken(opts.TokenJSON)
		if err != nil {
			return nil, authErr(KindMalformedToken, "inline token: %w", err)
		}
		tok = parsed
	} else {
		cachePath = tokenCachePath(opts.CredentialsFile)
		if data, err := os.ReadFile(cachePath); err == nil {
			parsed, perr := ParseToken(data)
			if perr != nil {
				// A corrupt cache is the same as no cache.
				slog.Warn("ignoring invalid cached token",
					slog.String("path", cachePath), slog.Any("error", perr))
			} else {
				tok = parsed
				fromFile = true
			}
		}
	}
	hadToken = tok != nil

	if tok != nil && tok.Expired(now) && tok.RefreshToken != "" {
		refreshed, err := refreshToken(ctx, tok, opts.scopes())
		if err != nil {
			slog.Warn("token refresh failed", slog.Any("error", err))
			tok = nil
		} else {
			tok = refreshed
			persistRefreshedToken(ctx, tok, cachePath, fromFile, opts.TokenStore)
		}
	}

	if tok == nil || !tok.Valid(now) {
		return oauthLastResort(ctx, opts, hadToken)
	}

	return &Credential{
		Method: MethodOAuth,
		Token:  tok,
		source: tok.config(opts.scopes()).TokenSource(ctx, tok.oauth2Token()),
	}, nil
}

// persistRefreshedToken writes the refreshed token back to its cache file and
// pushes it to the remote store. Neither failure invalidates the credential.
func persistRefreshedToken(ctx context.Context, tok *Token, cachePath string, fromFile bool, store TokenStore) {
	data, err := tok.JSON()
	if err != nil {
		slog.Warn("serialize refreshed token", slog.Any("error", err))
		return
	}

	if fromFile && cachePath != "" {
		if err := os.WriteFile(cachePath, data, 0o600); err != nil {
			slog.Warn("update token cache file",
				slog.String("path", cachePath), slog.Any("error", err))
		}
	}

	if store != nil {
		if err := store.Save(ctx, data); err != nil {
			slog.Warn("push refreshed token to secret store", slog.Any("error", err))
		}
	}
}

// oauthLastResort runs the interactive grant when a client document is
// available and the flow is allowed, otherwise fails with the kind that tells
// the operator what is actually missing.
func oauthLastResort(ctx context.Context, opts Options, hadToken bool) (*Credential, error) {
	doc, err := loadIdentityDocument(opts)
	if err != nil {
		return nil, err
	}

	if len(doc) == 0 || !opts.AllowGrantFlow {
		if hadToken {
			return nil, authErr(KindTokenExpiredNoRefresh,
				"token is expired and cannot be refreshed; generate a new one")
		}
		return nil, authErr(KindGrantRequired,
			"no usable token and the interactive grant flow is unavailable")
	}

	tok, err := RunGrantFlow(ctx, doc, opts.scopes())
	if err != nil {
		return nil, authErr(KindGrantRequired, "grant flow: %w", err)
	}

	cachePath := tokenCachePath(opts.CredentialsFile)
	if data, jerr := tok.JSON(); jerr == nil {
		if werr := os.WriteFile(cachePath, data, 0o600); werr != nil {
			slog.Warn("save granted token",
				slog.String("path", cachePath), slog.Any("error", werr))
		}
	}

	return &Credential{
		Method: MethodOAuth,
		Token:  tok,
		source: tok.config(opts.scopes()).TokenSource(ctx, tok.oauth2Token()),
	}, nil
}

// refreshToken performs exactly one refresh round trip.
func refreshToken(ctx context.Context, tok *Token, scopes []string) (*Token, error) {
	conf := tok.config(scopes)
	src := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken})

	fresh, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	refreshed := *tok
	refreshed.AccessToken = fresh.AccessToken
	refreshed.Expiry = fresh.Expiry
	if fresh.RefreshToken != "" {
		refreshed.RefreshToken = fresh.RefreshToken
	}
	return &refreshed, nil
}

// loadIdentityDocument resolves the identity/client document from the
// configured sources in priority order. An empty result is not an error here;
// callers decide whether the document is required.
func loadIdentityDocument(opts Options) ([]byte, error) {
	if len(opts.CredentialsJSON) > 0 {
		return opts.CredentialsJSON, nil
	}

	if opts.CredentialsFile != "" {
		data, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, authErr(KindMissingIdentity, "read credentials file: %w", err)
		}
		return data, nil
	}

	if opts.EnvFile != "" {
		vals, err := godotenv.Read(opts.EnvFile)
		if err != nil {
			return nil, authErr(KindMissingIdentity, "read env file: %w", err)
		}
		return []byte(vals[opts.envVar()]), nil
	}

	return []byte(os.Getenv(opts.envVar())), nil
}
