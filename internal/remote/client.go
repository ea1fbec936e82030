package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	dserrors "github.com/docstage/docstage/internal/errors"
)

// TransientError wraps an error that is likely temporary and safe to retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err (or any error in its chain) is a
// TransientError, meaning the caller may retry after a backoff.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

const (
	// maxRedirects is the maximum number of HTTP redirects to follow
	// before giving up, matching the default net/http limit.
	maxRedirects = 10

	// httpClientTimeout is the timeout for the default HTTP client used
	// when no custom client is provided. Uploads of large payloads can
	// be slow, so this is generous.
	httpClientTimeout = 120 * time.Second

	// maxAPIResponseBytes caps response body reads to prevent a
	// misbehaving server from consuming unbounded memory. Conversion
	// responses carry full document sections, so the cap is larger than
	// a typical JSON API would need.
	maxAPIResponseBytes = 16 * 1024 * 1024
)

// Client talks to the remote document store's REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// sameHostRedirectPolicy follows redirects only when the target host
// matches the original request host. This prevents the Authorization
// header from leaking to third-party domains.
func sameHostRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.New("stopped after 10 redirects")
	}

	if len(via) > 0 {
		origHost := via[0].URL.Host
		if req.URL.Host != origHost {
			return fmt.Errorf("redirect to different host blocked: %s -> %s", origHost, req.URL.Host)
		}
	}

	return nil
}

// NewClient creates an API client for the store at baseURL. If
// httpClient is nil, a client with a 120-second timeout and same-host
// redirect policy is created.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:       httpClientTimeout,
			CheckRedirect: sameHostRedirectPolicy,
		}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// sanitizeResponseBody truncates and sanitizes a response body for
// inclusion in error messages. Limits to 256 bytes and replaces
// non-printable characters to prevent log injection.
func sanitizeResponseBody(body []byte) string {
	const maxLen = 256
	if len(body) > maxLen {
		body = body[:maxLen]
	}

	var clean []byte

	for len(body) > 0 {
		r, size := utf8.DecodeRune(body)
		if r == utf8.RuneError && size <= 1 {
			clean = append(clean, '?')
			body = body[1:]

			continue
		}

		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			clean = append(clean, '?')
		} else {
			clean = append(clean, body[:size]...)
		}

		body = body[size:]
	}

	return string(clean)
}

// isTransientStatus returns true for HTTP status codes that indicate a
// temporary server-side problem worth retrying.
func isTransientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}

	return false
}

// apiError builds the error for a non-2xx response. The store reports
// failures as {"code": "...", "message": "..."}; gjson pulls the fields
// out without committing to a full response schema.
func apiError(endpoint string, status int, body []byte) error {
	msg := gjson.GetBytes(body, "message").Str
	code := gjson.GetBytes(body, "code").Str

	var err error

	switch {
	case msg != "" && code != "":
		err = fmt.Errorf("%w: %s (%d): [%s] %s", dserrors.ErrRemoteResponse, endpoint, status, code, msg)
	case msg != "":
		err = fmt.Errorf("%w: %s (%d): %s", dserrors.ErrRemoteResponse, endpoint, status, msg)
	default:
		err = fmt.Errorf("%w: %s returned status %d: %s", dserrors.ErrRemoteResponse, endpoint, status, sanitizeResponseBody(body))
	}

	if isTransientStatus(status) {
		return &TransientError{Err: err}
	}

	return err
}

// do sends the request, applies auth headers, and decodes a JSON
// response into result when it is non-nil.
func (c *Client) do(req *http.Request, endpoint string, result any) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors (timeouts, connection refused, DNS failures)
		// are transient by nature.
		wrapped := fmt.Errorf("%w: sending request to %s: %w", dserrors.ErrRemoteRequest, endpoint, err)
		return &TransientError{Err: wrapped}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: reading response from %s: %w", dserrors.ErrRemoteRequest, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(endpoint, resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: decoding response from %s: %w", dserrors.ErrRemoteResponse, endpoint, err)
		}
	}

	return nil
}

// getJSON sends a GET request and decodes the response into result.
func (c *Client) getJSON(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	return c.do(req, endpoint, result)
}

// postJSON sends a JSON POST request and decodes the response into result.
func (c *Client) postJSON(ctx context.Context, endpoint string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshalling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	return c.do(req, endpoint, result)
}

// progressReader wraps a request body and reports cumulative bytes read
// by the transport. http.Client reads the body as it streams the
// request, so reads track bytes actually leaving the client.
type progressReader struct {
	r     io.Reader
	total int64
	sent  int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.fn != nil {
			p.fn(p.sent, p.total)
		}
	}

	return n, err
}

// UploadItem uploads one item's content as a multipart form and returns
// the store's representation of the stored document. onProgress, when
// non-nil, receives cumulative byte counts while the body streams out.
func (c *Client) UploadItem(ctx context.Context, name, mimeType string, content []byte, onProgress ProgressFunc) (*Document, error) {
	const endpoint = "/files/upload"

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("creating multipart part: %w", err)
	}

	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("writing multipart content: %w", err)
	}

	if mimeType != "" {
		if err := mw.WriteField("mime_type", mimeType); err != nil {
			return nil, fmt.Errorf("writing mime field: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing multipart body: %w", err)
	}

	body := &progressReader{
		r:     bytes.NewReader(buf.Bytes()),
		total: int64(buf.Len()),
		fn:    onProgress,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.ContentLength = body.total

	var doc Document
	if err := c.do(req, endpoint, &doc); err != nil {
		return nil, err
	}

	if doc.ID == "" {
		return nil, fmt.Errorf("%w: upload response missing document id", dserrors.ErrRemoteResponse)
	}

	return &doc, nil
}

// DeleteRemoteItem deletes a stored document by its remote identifier.
// Best-effort from the caller's perspective: a failure here never blocks
// local removal.
func (c *Client) DeleteRemoteItem(ctx context.Context, remoteID string) error {
	endpoint := "/files/" + url.PathEscape(remoteID)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	if err := c.do(req, endpoint, nil); err != nil {
		return fmt.Errorf("deleting remote item %s: %w", remoteID, err)
	}

	return nil
}

// ConvertExternalSource asks the store to convert an external source
// reference (e.g. a wiki page URL) into named text sections. The call
// fails as a unit; a successful call with zero sections is not an error.
func (c *Client) ConvertExternalSource(ctx context.Context, source string) ([]Section, error) {
	var resp convertResponse
	if err := c.postJSON(ctx, "/external/convert", convertRequest{Source: source}, &resp); err != nil {
		return nil, fmt.Errorf("%w: converting %s: %w", dserrors.ErrConversionFailed, source, err)
	}

	return resp.Sections, nil
}

// ListUnusedRemoteItems returns documents that were previously uploaded
// but not yet consumed by a later stage. Used by the reconciler at
// activation.
func (c *Client) ListUnusedRemoteItems(ctx context.Context) ([]Document, error) {
	var resp unusedListResponse
	if err := c.getJSON(ctx, "/files/unused", &resp); err != nil {
		return nil, fmt.Errorf("listing unused remote items: %w", err)
	}

	return resp.Items, nil
}

// GetUploadConfig fetches the session upload limits.
func (c *Client) GetUploadConfig(ctx context.Context) (*UploadConfig, error) {
	var cfg UploadConfig
	if err := c.getJSON(ctx, "/files/upload", &cfg); err != nil {
		return nil, fmt.Errorf("fetching upload config: %w", err)
	}

	return &cfg, nil
}

// GetAllowedExtensions fetches the extension allow-list. Extensions are
// returned lower-case without a leading dot.
func (c *Client) GetAllowedExtensions(ctx context.Context) ([]string, error) {
	var resp supportTypesResponse
	if err := c.getJSON(ctx, "/files/support-types", &resp); err != nil {
		return nil, fmt.Errorf("fetching allowed extensions: %w", err)
	}

	exts := make([]string, 0, len(resp.AllowedExtensions))
	for _, ext := range resp.AllowedExtensions {
		exts = append(exts, strings.ToLower(strings.TrimPrefix(ext, ".")))
	}

	return exts, nil
}
