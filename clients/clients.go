package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single request. Landmark frames arrive at camera
// rate, so a slow collaborator is treated as failed rather than waited on.
const DefaultTimeout = 10 * time.Second

// HTTP talks to the landmark and visualization services.
type HTTP struct{ c *http.Client }

type Option func(*HTTP)

// WithTimeout replaces DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTP) { h.c.Timeout = d }
}

// WithClient uses c as is, e.g. an httptest client.
func WithClient(c *http.Client) Option {
	return func(h *HTTP) { h.c = c }
}

func NewHTTP(opts ...Option) *HTTP {
	h := &HTTP{c: &http.Client{Timeout: DefaultTimeout}}
	for _, o := range opts {
		o(h)
	}
	return h
}

// statusError drains a failed response into an error.
func statusError(what string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return fmt.Errorf("%s %s: %s", what, resp.Status, bytes.TrimSpace(body))
}

func (h *HTTP) postJSON(ctx context.Context, url string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/json")
	resp, err := h.c.Do(r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("POST", resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
