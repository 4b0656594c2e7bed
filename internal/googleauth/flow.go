package googleauth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const grantRedirectAddr = "localhost:8080"

// RunGrantFlow performs the interactive browser grant against the client
// document and returns the resulting delegated-user token. It blocks until
// the user completes the consent screen or ctx is cancelled, so it must only
// run in interactive environments.
func RunGrantFlow(ctx context.Context, clientDocument []byte, scopes []string) (*Token, error) {
	conf, err := google.ConfigFromJSON(clientDocument, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client document: %w", err)
	}
	conf.RedirectURL = "http://" + grantRedirectAddr + "/"

	listener, err := net.Listen("tcp", grantRedirectAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on redirect address: %w", err)
	}

	state := uuid.New().String()
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization state mismatch")
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing authorization code", http.StatusBadRequest)
			errCh <- fmt.Errorf("redirect carried no authorization code")
			return
		}
		fmt.Fprintln(w, "Authorization received. You can close this window.")
		codeCh <- code
	})

	srv := &http.Server{Handler: mux}
	go srv.Serve(listener)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	// offline access is required to obtain a refresh token; forcing consent
	// re-issues one even when a prior grant exists.
	authURL := conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	fmt.Printf("Open the following URL in your browser to authorize access:\n\n%s\n\n", authURL)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	exchanged, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	return &Token{
		AccessToken:  exchanged.AccessToken,
		RefreshToken: exchanged.RefreshToken,
		TokenURI:     conf.Endpoint.TokenURL,
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		Scopes:       scopes,
		Expiry:       exchanged.Expiry,
	}, nil
}
