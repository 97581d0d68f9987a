// Package objectstore is the outbound client for the attachment/image
// store. The inventory only ever asks it to delete everything held
// against an entity id; uploads and downloads go through the store
// directly.
package objectstore

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/beamtime/ims/internal/errs"
)

// Config configures the client.
type Config struct {
	// BaseURL is the object-storage root, e.g. "https://objects.example".
	BaseURL string
	// AuthToken is sent as a bearer token when non-empty.
	AuthToken string
	// RequestTimeout bounds each request. Zero means 30 seconds.
	RequestTimeout time.Duration
}

// Client talks to the object-storage service.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// New returns a client for the given configuration.
func New(cfg Config) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base:  cfg.BaseURL,
		token: cfg.AuthToken,
		http:  &http.Client{Timeout: timeout},
	}
}

// DeleteAllForEntity deletes every attachment and image held against the
// entity id. Both deletions are attempted; the first failure is
// returned.
func (c *Client) DeleteAllForEntity(ctx context.Context, entityID string) error {
	if err := c.delete(ctx, "/attachments", entityID); err != nil {
		return err
	}
	return c.delete(ctx, "/images", entityID)
}

func (c *Client) delete(ctx context.Context, path, entityID string) error {
	u := c.base + path + "?entity_id=" + url.QueryEscape(entityID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return errs.Wrap(errs.ObjectStorageServer, "building object storage request", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.ObjectStorageServer, "object storage request failed", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil
	case http.StatusForbidden:
		return errs.Newf(errs.ObjectStorageAuth, "object storage rejected credentials deleting %s", path)
	default:
		return errs.Newf(errs.ObjectStorageServer, "object storage returned %d deleting %s", resp.StatusCode, path)
	}
}
