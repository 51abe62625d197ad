package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nerrad567/beacon-station/internal/infrastructure/config"
)

// defaultRequestTimeout applies when the config leaves store.request_timeout unset.
const defaultRequestTimeout = 10 * time.Second

// maxResponseBytes caps the body read from the database.
const maxResponseBytes = 1 << 20

// RTDB is a Store backed by a Firebase-compatible realtime database.
//
// Every node is addressed as {url}/{path}.json. Reads are GET requests and
// writes are PUT requests that replace the node. When an auth token is set
// it is sent as the "auth" query parameter.
//
// Thread Safety: All methods are safe for concurrent use.
type RTDB struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// NewRTDB creates an RTDB store from configuration.
//
// Parameters:
//   - cfg: RTDB section of the station config (database URL and token)
//   - timeout: Per-request timeout; zero uses the default
//
// Returns:
//   - *RTDB: Store ready for use (no connection is made up front)
//   - error: If the URL is empty or malformed
func NewRTDB(cfg config.RTDBConfig, timeout time.Duration) (*RTDB, error) {
	base := strings.TrimRight(cfg.URL, "/")
	if base == "" {
		return nil, fmt.Errorf("%w: rtdb url is empty", ErrRequestFailed)
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("%w: rtdb url: %w", ErrRequestFailed, err)
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &RTDB{
		baseURL:    base,
		authToken:  cfg.AuthToken,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// GetString fetches the node at path.
func (r *RTDB) GetString(ctx context.Context, path string) (Value, error) {
	return r.get(ctx, path)
}

// GetJSON fetches the node at path.
func (r *RTDB) GetJSON(ctx context.Context, path string) (Value, error) {
	return r.get(ctx, path)
}

// SetJSON replaces the node at path with payload.
func (r *RTDB) SetJSON(ctx context.Context, path string, payload any) error {
	data, err := encodePayload(payload)
	if err != nil {
		return err
	}
	endpoint, err := r.nodeURL(path)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: creating request: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: put %s: %w", ErrRequestFailed, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // best-effort error detail
		return fmt.Errorf("%w: put %s: status %d: %s", ErrRequestFailed, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
	return nil
}

func (r *RTDB) get(ctx context.Context, path string) (Value, error) {
	endpoint, err := r.nodeURL(path)
	if err != nil {
		return Value{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return Value{}, fmt.Errorf("%w: creating request: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Value{}, fmt.Errorf("%w: get %s: %w", ErrRequestFailed, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Value{}, fmt.Errorf("%w: reading %s: %w", ErrRequestFailed, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Value{}, fmt.Errorf("%w: get %s: status %d: %s", ErrRequestFailed, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	v := NewValue(body)
	if v.IsNull() {
		return Value{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return v, nil
}

// nodeURL builds {base}/{escaped segments}.json with the auth parameter.
func (r *RTDB) nodeURL(path string) (string, error) {
	segs, err := SplitPath(path)
	if err != nil {
		return "", err
	}
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	endpoint := r.baseURL + "/" + strings.Join(segs, "/") + ".json"
	if r.authToken != "" {
		endpoint += "?auth=" + url.QueryEscape(r.authToken)
	}
	return endpoint, nil
}
