// Package transport wraps net/http for the EnergIA backend. It resolves paths
// against the base URL, never follows redirects, attaches stored credentials
// to every request and gives the session layer one chance to recover from a
// 401 before the caller sees it.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/energia-client/internal/config"
	"github.com/jrsteele09/energia-client/internal/errors"
)

const (
	maxBodySize   = 10 << 20
	defaultAccept = "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8"
)

// Credentials is what the outbound hook attaches to a request.
type Credentials struct {
	Token  *oauth2.Token
	Cookie string
}

func (c Credentials) Empty() bool {
	return c.Token == nil && c.Cookie == ""
}

// CredentialSource supplies credentials for each outgoing request.
type CredentialSource func(ctx context.Context) (Credentials, error)

// UnauthorizedHandler is called when an authenticated request gets a 401.
// It returns fresh credentials for a single replay.
type UnauthorizedHandler func(ctx context.Context) (Credentials, error)

type Request struct {
	Method      string
	Path        string
	Body        []byte
	ContentType string
	Accept      string
	// Cookie overrides the stored cookie for this request only.
	Cookie   string
	SkipAuth bool
	Header   http.Header
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Location   string
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

// SetCookies returns the raw Set-Cookie header values.
func (r *Response) SetCookies() []string {
	return r.Header.Values("Set-Cookie")
}

func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	userAgent      string
	acceptLanguage string

	hooksLock      sync.RWMutex
	credentials    CredentialSource
	onUnauthorized UnauthorizedHandler
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client. Its redirect policy is
// overwritten so that redirects stay observable.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithCredentialSource(src CredentialSource) Option {
	return func(c *Client) {
		c.credentials = src
	}
}

func WithUnauthorizedHandler(h UnauthorizedHandler) Option {
	return func(c *Client) {
		c.onUnauthorized = h
	}
}

func New(cfg config.TransportConfig, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, pkgerrors.New("[transport.New] config is required")
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.GetBaseURL(), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, pkgerrors.Errorf("[transport.New] invalid base url %q", cfg.GetBaseURL())
	}

	c := &Client{
		baseURL:        base,
		httpClient:     &http.Client{Timeout: cfg.GetHTTPTimeout()},
		userAgent:      cfg.GetUserAgent(),
		acceptLanguage: cfg.GetAcceptLanguage(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SetCredentialSource installs the outbound hook after construction, for
// owners that need the client before they can provide credentials.
func (c *Client) SetCredentialSource(src CredentialSource) {
	c.hooksLock.Lock()
	defer c.hooksLock.Unlock()
	c.credentials = src
}

func (c *Client) SetUnauthorizedHandler(h UnauthorizedHandler) {
	c.hooksLock.Lock()
	defer c.hooksLock.Unlock()
	c.onUnauthorized = h
}

func (c *Client) hooks() (CredentialSource, UnauthorizedHandler) {
	c.hooksLock.RLock()
	defer c.hooksLock.RUnlock()
	return c.credentials, c.onUnauthorized
}

// Do sends req. Only transport failures are returned as errors; any HTTP
// status, including 4xx and 5xx, comes back as a Response.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	source, onUnauthorized := c.hooks()

	var creds Credentials
	if !req.SkipAuth && source != nil {
		var err error
		if creds, err = source(ctx); err != nil {
			log.Warn().Err(err).Str("path", req.Path).Msg("[Client.Do] credential source failed")
			creds = Credentials{}
		}
	}

	resp, err := c.send(ctx, req, creds)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && !req.SkipAuth && onUnauthorized != nil {
		log.Debug().Str("path", req.Path).Msg("[Client.Do] 401, asking session layer for new credentials")
		fresh, herr := onUnauthorized(ctx)
		if herr != nil {
			return nil, errors.E(errors.ErrSessionExpired, "[Client.Do]", herr)
		}
		return c.send(ctx, req, fresh)
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, req Request, creds Credentials) (*Response, error) {
	target, err := c.resolve(req.Path)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Client.send] build request")
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept-Language", c.acceptLanguage)
	accept := req.Accept
	if accept == "" {
		accept = defaultAccept
	}
	httpReq.Header.Set("Accept", accept)
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	if creds.Token != nil && creds.Token.AccessToken != "" {
		creds.Token.SetAuthHeader(httpReq)
	}
	cookie := creds.Cookie
	if req.Cookie != "" {
		cookie = req.Cookie
	}
	if cookie != "" {
		httpReq.Header.Set("Cookie", cookie)
	}

	started := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Debug().Err(err).Str("method", method).Str("path", req.Path).Msg("[Client.send] request failed")
		return nil, errors.E(errors.ErrNetwork, "[Client.send]", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, errors.E(errors.ErrNetwork, "[Client.send]", pkgerrors.Wrap(err, "read body"))
	}

	log.Debug().
		Str("method", method).
		Str("path", req.Path).
		Int("status", httpResp.StatusCode).
		Int("bytes", len(data)).
		Dur("elapsed", time.Since(started)).
		Msg("[Client.send]")

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		Location:   httpResp.Header.Get("Location"),
	}, nil
}

func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", errors.E(errors.ErrValidation, "[Client.resolve]", err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	u := *c.baseURL
	u.Path = strings.TrimSuffix(c.baseURL.Path, "/") + "/" + strings.TrimPrefix(ref.Path, "/")
	u.RawQuery = ref.RawQuery
	return u.String(), nil
}
