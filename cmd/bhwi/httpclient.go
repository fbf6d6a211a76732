package bhwi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// pinServerHTTPClient is the transport.HTTPClient Jade's auth handshake
// posts its opaque binary body to, per spec.md §6: content type
// application/octet-stream, non-2xx is an error.
type pinServerHTTPClient struct {
	client http.Client
}

func (c *pinServerHTTPClient) Request(ctx context.Context, url string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("pin server request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pin server request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("pin server response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pin server request: status %d", resp.StatusCode)
	}
	return body, nil
}
