// Package contentstore is the client for the content-addressed blob gateway.
// Blobs are opaque encrypted bytes keyed by the hex SHA-256 digest of their
// content; the gateway exposes plain HTTP GET/PUT per identifier.
package contentstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	id "canguard/pkg/domain"
	"canguard/pkg/platform/sentinel"
)

const (
	defaultRequestTimeout = 5 * time.Second
	defaultAttempts       = 2
	defaultBackoff        = 100 * time.Millisecond

	// Gateways are expected to cap blob sizes well below this; the limit only
	// guards against a misbehaving gateway streaming forever.
	maxBlobSize = 8 << 20
)

// Client talks to one or more blob gateways, primary first. Each gateway gets
// a bounded number of attempts before the client falls through to the next;
// only when every gateway is exhausted does the caller see ErrUnavailable.
type Client struct {
	gateways []string
	http     *http.Client
	logger   *slog.Logger
	attempts int
	backoff  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithAttempts sets the per-gateway attempt budget.
func WithAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithBackoff sets the delay between attempts against the same gateway.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// New constructs a Client. At least one gateway URL is required.
func New(gateways []string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if len(gateways) == 0 {
		return nil, fmt.Errorf("at least one gateway URL is required")
	}
	c := &Client{
		gateways: gateways,
		http:     &http.Client{Timeout: defaultRequestTimeout},
		logger:   logger,
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// ComputeCID returns the content identifier the store derives for data.
func ComputeCID(data []byte) id.CID {
	sum := sha256.Sum256(data)
	return id.CID(hex.EncodeToString(sum[:]))
}

// Put stores data and returns its content identifier. Identical bytes yield
// the same identifier, so repeated puts deduplicate at the gateway.
func (c *Client) Put(ctx context.Context, data []byte) (id.CID, error) {
	cid := ComputeCID(data)
	start := time.Now()

	err := c.eachGateway(ctx, func(gateway string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, blobURL(gateway, cid), bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		return fmt.Errorf("gateway returned %d", resp.StatusCode)
	})
	observePut(time.Since(start), err)
	if err != nil {
		return "", err
	}
	return cid, nil
}

// Get fetches a blob by identifier and verifies the digest of the returned
// bytes, so a corrupted or substituted blob is rejected at the client.
func (c *Client) Get(ctx context.Context, cid id.CID) ([]byte, error) {
	var data []byte
	start := time.Now()

	err := c.eachGateway(ctx, func(gateway string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, blobURL(gateway, cid), nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("blob %s: %w", cid, sentinel.ErrNotFound)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("gateway returned %d", resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBlobSize))
		if err != nil {
			return err
		}
		if ComputeCID(body) != cid {
			return fmt.Errorf("blob %s: digest mismatch", cid)
		}
		data = body
		return nil
	})
	observeGet(time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// eachGateway runs op against every configured gateway in order, with a
// bounded retry per gateway. A NotFound from any gateway is terminal: the
// store is content-addressed, so a missing identifier will not appear on a
// sibling gateway.
func (c *Client) eachGateway(ctx context.Context, op func(gateway string) error) error {
	var lastErr error
	for gi, gateway := range c.gateways {
		for attempt := 0; attempt < c.attempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := op(gateway)
			if err == nil {
				return nil
			}
			if isNotFound(err) {
				return err
			}
			lastErr = err
			c.logger.WarnContext(ctx, "content store request failed",
				"gateway", gateway,
				"attempt", attempt+1,
				"fallbacks_left", len(c.gateways)-gi-1,
				"error", err,
			)
			if attempt < c.attempts-1 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(c.backoff):
				}
			}
		}
	}
	return fmt.Errorf("all gateways failed: %w: %w", sentinel.ErrUnavailable, lastErr)
}

func isNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}

func blobURL(gateway string, cid id.CID) string {
	return gateway + "/blobs/" + cid.String()
}
