// Package drive wraps the Google Drive API with the handful of file
// operations the ingestion flow consumes.
package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/oauth2"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Client talks to one Drive folder. File identity is the opaque Drive file ID.
type Client struct {
	svc      *driveapi.Service
	folderID string
}

// New builds a Drive client scoped to folderID using the given token source.
func New(ctx context.Context, ts oauth2.TokenSource, folderID string) (*Client, error) {
	svc, err := driveapi.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &Client{svc: svc, folderID: folderID}, nil
}

// FolderID returns the folder all operations are scoped to.
func (c *Client) FolderID() string {
	return c.folderID
}

// FileID looks a file up by exact name inside the client's folder. Returns
// empty when no match exists.
func (c *Client) FileID(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf("name = '%s' and mimeType != 'application/vnd.google-apps.folder' and trashed = false",
		escapeQuery(name))
	if c.folderID != "" {
		query += fmt.Sprintf(" and '%s' in parents", c.folderID)
	}

	list, err := c.svc.Files.List().
		Q(query).
		Spaces("drive").
		Fields("files(id, name)").
		PageSize(10).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("search for file %q: %w", name, err)
	}

	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

// Download fetches a file's content by ID.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := c.svc.Files.Get(fileID).
		SupportsAllDrives(true).
		Context(ctx).
		Download()
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", fileID, err)
	}
	return data, nil
}

// Upload stores data under name in the client's folder. An existing file with
// the same name is updated in place instead of duplicated. Returns the file ID.
func (c *Client) Upload(ctx context.Context, name string, data []byte, mimeType string) (string, error) {
	existingID, err := c.FileID(ctx, name)
	if err != nil {
		return "", err
	}
	if existingID != "" {
		slog.Debug("file exists, updating in place",
			slog.String("name", name), slog.String("file_id", existingID))
		if err := c.Update(ctx, existingID, data, mimeType); err != nil {
			return "", err
		}
		return existingID, nil
	}

	meta := &driveapi.File{Name: name}
	if c.folderID != "" {
		meta.Parents = []string{c.folderID}
	}

	created, err := c.svc.Files.Create(meta).
		Media(bytes.NewReader(data), googleapi.ContentType(mimeType)).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("upload file %q: %w", name, err)
	}
	return created.Id, nil
}

// Update replaces the content of an existing file.
func (c *Client) Update(ctx context.Context, fileID string, data []byte, mimeType string) error {
	_, err := c.svc.Files.Update(fileID, &driveapi.File{}).
		Media(bytes.NewReader(data), googleapi.ContentType(mimeType)).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update file %s: %w", fileID, err)
	}
	return nil
}

func escapeQuery(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}
