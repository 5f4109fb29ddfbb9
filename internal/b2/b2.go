// Package b2 implements the low-level Backblaze B2 API client used by the
// image storage adapter. A Client wraps one authorized session: it is
// constructed by Authorize and holds the session token and base URLs for
// its whole lifetime. There is no refresh-on-expiry; callers construct a
// new Client to re-authenticate.
package b2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/imgvault/imgvault/internal/errdefs"
)

const (
	defaultAuthorizeURL = "https://api.backblazeb2.com/b2api/v3/b2_authorize_account"

	// maxErrorBytes caps how much of an error response body is read into
	// the returned error message.
	maxErrorBytes int64 = 8 * 1024
)

// Credentials identify an application key scoped to one bucket. They are
// never mutated after construction.
type Credentials struct {
	KeyID          string
	ApplicationKey string
	BucketID       string
	BucketName     string
}

// Client is an authorized B2 session. It adds no synchronization of its
// own; concurrent use is as safe as the underlying *http.Client.
type Client struct {
	creds        Credentials
	httpc        *http.Client
	log          zerolog.Logger
	authorizeURL string

	// session, populated once by Authorize and read-only afterwards
	token       string
	apiURL      string
	downloadURL string
}

// Option customizes a Client before authorization.
type Option func(*Client)

// WithHTTPClient sets the transport used for every request. Timeout policy
// belongs to this client; the package sets none of its own beyond the
// default.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithAuthorizeURL overrides the account-authorization endpoint.
func WithAuthorizeURL(u string) Option {
	return func(c *Client) { c.authorizeURL = u }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

type authorizeResponse struct {
	AuthorizationToken string `json:"authorizationToken"`
	APIInfo            struct {
		StorageAPI struct {
			APIURL      string `json:"apiUrl"`
			DownloadURL string `json:"downloadUrl"`
		} `json:"storageApi"`
	} `json:"apiInfo"`
}

// Authorize exchanges credentials for a session in a single Basic-auth
// call. There is no retry; a failed exchange is fatal and no partially
// sessioned Client is ever returned.
func Authorize(ctx context.Context, creds Credentials, opts ...Option) (*Client, error) {
	c := &Client{
		creds:        creds,
		httpc:        &http.Client{Timeout: 30 * time.Second},
		log:          zerolog.Nop(),
		authorizeURL: defaultAuthorizeURL,
	}
	for _, opt := range opts {
		opt(c)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.authorizeURL, nil)
	if err != nil {
		return nil, errdefs.NewE(errdefs.ErrUnavailable, fmt.Errorf("authorize account: %w", err))
	}
	req.SetBasicAuth(creds.KeyID, creds.ApplicationKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errdefs.NewE(errdefs.ErrUnavailable, fmt.Errorf("authorize account: %w", err))
	}
	defer resp.Body.Close()
	if err := responseError(resp); err != nil {
		return nil, fmt.Errorf("authorize account: %w", err)
	}

	var auth authorizeResponse
	if err := decodeJSON(resp.Body, &auth); err != nil {
		return nil, err
	}
	storage := auth.APIInfo.StorageAPI
	if auth.AuthorizationToken == "" || storage.APIURL == "" || storage.DownloadURL == "" {
		return nil, errdefs.Newf(errdefs.ErrUnavailable, "storage API is not enabled for key %s", creds.KeyID)
	}

	c.token = auth.AuthorizationToken
	c.apiURL = strings.TrimSuffix(storage.APIURL, "/")
	c.downloadURL = strings.TrimSuffix(storage.DownloadURL, "/")
	c.log.Debug().Str("api_url", c.apiURL).Msg("b2 session established")
	return c, nil
}

// apiGet performs an authorized GET against the session API base and
// decodes the JSON response into out when out is non-nil.
func (c *Client) apiGet(ctx context.Context, endpoint string, query url.Values, out any) error {
	u := c.apiURL + "/b2api/v3/" + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	req.Header.Set("Authorization", c.token)
	return c.do(req, out)
}

// apiPost performs an authorized JSON POST against the session API base.
func (c *Client) apiPost(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/b2api/v3/"+endpoint, strings.NewReader(string(body)))
	if err != nil {
		return errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if err := responseError(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decodeJSON(resp.Body, out)
}

// responseError returns nil for 2xx responses and an ErrUnavailable
// carrying the status and a bounded slice of the error body otherwise.
func responseError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
	if len(detail) > 0 {
		return errdefs.Newf(errdefs.ErrUnavailable, "%s %s: unexpected status %s: %s",
			resp.Request.Method, resp.Request.URL.Redacted(), resp.Status, strings.TrimSpace(string(detail)))
	}
	return errdefs.Newf(errdefs.ErrUnavailable, "%s %s: unexpected status %s",
		resp.Request.Method, resp.Request.URL.Redacted(), resp.Status)
}

// decodeJSON decodes a JSON body. A malformed body from any endpoint is an
// ErrUnavailable whose message embeds the decoder diagnostic.
func decodeJSON(r io.Reader, out any) error {
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return errdefs.Newf(errdefs.ErrUnavailable, "decode response: %v", err)
	}
	return nil
}

// escapeName percent-encodes a file name for use in headers and download
// URLs, keeping path separators intact.
func escapeName(name string) string {
	segments := strings.Split(name, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
