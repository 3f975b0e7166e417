package vault

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/starford/vaultmcp/internal/apperr"
)

const maxErrorBody = 512

// StatusError is returned for any non-2xx response from the REST vault.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("vault: %s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Unwrap maps 404 onto apperr.ErrNotFound.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return apperr.ErrNotFound
	}
	return nil
}

// RESTOptions configures a REST client.
type RESTOptions struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	InsecureTLS bool
}

// REST implements Provider against the Obsidian Local REST API.
type REST struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ Provider = (*REST)(nil)

// NewREST creates a REST provider. A zero timeout defaults to 10 seconds.
func NewREST(opts RESTOptions) *REST {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureTLS {
		// The Local REST API ships a self-signed certificate.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return &REST{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		http:    &http.Client{Timeout: timeout, Transport: transport},
	}
}

// NewRESTWithClient creates a REST provider that sends requests through hc.
func NewRESTWithClient(baseURL, apiKey string, hc *http.Client) *REST {
	return &REST{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, http: hc}
}

func (c *REST) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/vault/"+EscapePath(path), body)
	if err != nil {
		return nil, fmt.Errorf("vault: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vault: %s %s: %w", method, path, err)
	}
	return resp, nil
}

func statusError(resp *http.Response, method, path string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(raw)),
	}
}

func ok(code int) bool { return code >= 200 && code < 300 }

// List returns the immediate files and folders of dir. The API returns both
// in a single "files" array where folder entries end with a slash.
func (c *REST) List(ctx context.Context, dir string) (Listing, error) {
	if err := ValidatePath(dir); err != nil {
		return Listing{}, err
	}
	if dir != "" && !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	resp, err := c.do(ctx, http.MethodGet, dir, "", nil)
	if err != nil {
		return Listing{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if !ok(resp.StatusCode) {
		return Listing{}, statusError(resp, http.MethodGet, dir)
	}

	var payload struct {
		Files []string `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Listing{}, fmt.Errorf("vault: decode listing %q: %w", dir, err)
	}

	var out Listing
	for _, item := range payload.Files {
		if strings.HasSuffix(item, "/") {
			out.Folders = append(out.Folders, strings.TrimSuffix(item, "/"))
		} else {
			out.Files = append(out.Files, item)
		}
	}
	return out, nil
}

// Read returns the raw content of the file at path.
func (c *REST) Read(ctx context.Context, path string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}
	resp, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if !ok(resp.StatusCode) {
		return "", statusError(resp, http.MethodGet, path)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("vault: read body %q: %w", path, err)
	}
	return string(data), nil
}

// Write creates or replaces the file at path.
func (c *REST) Write(ctx context.Context, path, content string) error {
	return c.send(ctx, http.MethodPut, path, content)
}

// Append adds content at the end of the file at path.
func (c *REST) Append(ctx context.Context, path, content string) error {
	return c.send(ctx, http.MethodPost, path, content)
}

func (c *REST) send(ctx context.Context, method, path, content string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	resp, err := c.do(ctx, method, path, "text/markdown", strings.NewReader(content))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if !ok(resp.StatusCode) {
		return statusError(resp, method, path)
	}
	return nil
}

// Delete removes the file at path.
func (c *REST) Delete(ctx context.Context, path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodDelete, path, "", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if !ok(resp.StatusCode) {
		return statusError(resp, http.MethodDelete, path)
	}
	return nil
}

// Exists reports whether a file exists at path.
func (c *REST) Exists(ctx context.Context, path string) (bool, error) {
	if err := ValidatePath(path); err != nil {
		return false, err
	}
	return c.probe(ctx, path)
}

// DirExists reports whether a directory exists at path.
func (c *REST) DirExists(ctx context.Context, path string) (bool, error) {
	if err := ValidatePath(path); err != nil {
		return false, err
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return c.probe(ctx, path)
}

func (c *REST) probe(ctx context.Context, path string) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, &StatusError{Method: http.MethodGet, Path: path, StatusCode: resp.StatusCode}
	}
}
