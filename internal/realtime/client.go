package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/libellus/transit/internal/logging"
)

// TransportError reports that the feed could not be fetched or decoded.
// It covers the whole call; callers skip the cycle and retry later.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("feed %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline or network timeout
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// Client fetches a GTFS-RT feed over HTTP
type Client struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewClient creates a feed client. timeout bounds every fetch.
func NewClient(url string, timeout time.Duration, headers map[string]string) *Client {
	return &Client{
		url:     url,
		headers: headers,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// URL returns the feed URL
func (c *Client) URL() string {
	return c.url
}

// Fetch downloads and unmarshals the feed message
func (c *Client) Fetch(ctx context.Context) (*gtfs.FeedMessage, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.url, nil)
	if err != nil {
		return nil, &TransportError{URL: c.url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	for key, value := range c.headers {
		req.Header.Add(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: c.url, Err: err}
	}
	defer logging.SafeCloseWithLogging(resp.Body,
		logging.FromContext(ctx).With(slog.String("component", "gtfs_realtime_client")),
		"http_response_body")

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{URL: c.url, Err: fmt.Errorf("feed returned status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: c.url, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, &TransportError{URL: c.url, Err: fmt.Errorf("failed to parse protobuf: %w", err)}
	}

	return feed, nil
}

// FetchFeed fetches and decodes the feed
func (c *Client) FetchFeed(ctx context.Context) (*Feed, error) {
	msg, err := c.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return Decode(msg), nil
}
