// Package secrets pushes refreshed tokens to Google Secret Manager.
package secrets

import (
	"context"
	"fmt"
	"log/slog"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

// Store adds new versions of one configured secret. It implements
// googleauth.TokenStore; callers treat failures as warnings.
type Store struct {
	ProjectID  string
	SecretName string

	tokenSource oauth2.TokenSource
}

// NewStore returns a store for the given secret coordinates.
func NewStore(projectID, secretName string, ts oauth2.TokenSource) *Store {
	return &Store{
		ProjectID:   projectID,
		SecretName:  secretName,
		tokenSource: ts,
	}
}

// Save appends the payload as a new secret version.
func (s *Store) Save(ctx context.Context, payload []byte) error {
	if s.ProjectID == "" || s.SecretName == "" {
		return fmt.Errorf("secret store coordinates not configured")
	}

	var opts []option.ClientOption
	if s.tokenSource != nil {
		opts = append(opts, option.WithTokenSource(s.tokenSource))
	}

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return fmt.Errorf("create secret manager client: %w", err)
	}
	defer client.Close()

	version, err := client.AddSecretVersion(ctx, &secretmanagerpb.AddSecretVersionRequest{
		Parent: fmt.Sprintf("projects/%s/secrets/%s", s.ProjectID, s.SecretName),
		Payload: &secretmanagerpb.SecretPayload{
			Data: payload,
		},
	})
	if err != nil {
		return fmt.Errorf("add secret version: %w", err)
	}

	slog.Info("stored refreshed token in secret manager",
		slog.String("version", version.GetName()))
	return nil
}
