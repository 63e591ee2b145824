// Package fetch is a thin HTTP client for pages that do not need a
// browser: default headers, cookie jar, proxy support and a bounded
// redirect chain, with responses that parse straight into goquery
// documents.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/golang/glog"
	"golang.org/x/net/proxy"

	"github.com/browsekit/browsekit/soup"
)

const (
	// DefaultTimeout bounds a whole request including body read.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRedirects is the longest redirect chain followed.
	DefaultMaxRedirects = 10
)

// Client issues HTTP requests with the configured defaults applied to each
// one.
type Client struct {
	hc           *http.Client
	base         *url.URL
	headers      http.Header
	userAgent    string
	maxRedirects int
}

// Option configures a Client.
type Option func(*Client) error

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.hc.Timeout = d
		return nil
	}
}

// WithBaseURL resolves request URLs relative to base.
func WithBaseURL(base string) Option {
	return func(c *Client) error {
		u, err := url.Parse(base)
		if err != nil {
			return fmt.Errorf("invalid base URL %q: %v", base, err)
		}
		c.base = u
		return nil
	}
}

// WithHeader adds a default header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) error {
		c.headers.Add(key, value)
		return nil
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		c.userAgent = ua
		return nil
	}
}

// WithCookieJar gives the client an in-memory cookie jar, so cookies set by
// one response are sent on subsequent requests.
func WithCookieJar() Option {
	return func(c *Client) error {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return err
		}
		c.hc.Jar = jar
		return nil
	}
}

// WithMaxRedirects caps the redirect chain. Zero disables following
// redirects entirely.
func WithMaxRedirects(n int) Option {
	return func(c *Client) error {
		if n < 0 {
			return fmt.Errorf("max redirects must be >= 0, got %d", n)
		}
		c.maxRedirects = n
		return nil
	}
}

// WithProxy routes requests through the proxy at proxyURL. Supported
// schemes are http, https and socks5.
func WithProxy(proxyURL string) Option {
	return func(c *Client) error {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return fmt.Errorf("invalid proxy URL %q: %v", proxyURL, err)
		}
		transport, ok := c.hc.Transport.(*http.Transport)
		if !ok {
			return fmt.Errorf("proxy requires the default transport")
		}
		switch u.Scheme {
		case "http", "https":
			transport.Proxy = http.ProxyURL(u)
		case "socks5":
			var auth *proxy.Auth
			if u.User != nil {
				password, _ := u.User.Password()
				auth = &proxy.Auth{User: u.User.Username(), Password: password}
			}
			dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
			if err != nil {
				return fmt.Errorf("socks5 proxy %q: %v", u.Host, err)
			}
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		default:
			return fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
		}
		return nil
	}
}

// WithTransport replaces the underlying round tripper. Incompatible with
// WithProxy.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) error {
		c.hc.Transport = rt
		return nil
	}
}

// New creates a Client with the defaults applied, then the options.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		hc: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: &http.Transport{},
		},
		headers:      http.Header{},
		maxRedirects: DefaultMaxRedirects,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	maxRedirects := c.maxRedirects
	c.hc.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
	return c, nil
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, rawurl string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, rawurl, "", nil)
}

// Post issues a POST request with the given content type and body.
func (c *Client) Post(ctx context.Context, rawurl, contentType string, body io.Reader) (*Response, error) {
	return c.Do(ctx, http.MethodPost, rawurl, contentType, body)
}

// PostForm issues a POST request with URL-encoded form values.
func (c *Client) PostForm(ctx context.Context, rawurl string, data url.Values) (*Response, error) {
	return c.Do(ctx, http.MethodPost, rawurl,
		"application/x-www-form-urlencoded", strings.NewReader(data.Encode()))
}

// Do issues a request with the client's defaults applied. The response body
// is read fully and closed before Do returns.
func (c *Client) Do(ctx context.Context, method, rawurl, contentType string, body io.Reader) (*Response, error) {
	u, err := c.resolve(rawurl)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(method, u, body)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	glog.V(2).Infof("fetch: %s %s", method, u)
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: reading body: %v", method, u, err)
	}
	return &Response{Response: resp, body: data}, nil
}

func (c *Client) resolve(rawurl string) (string, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %v", rawurl, err)
	}
	if c.base != nil {
		u = c.base.ResolveReference(u)
	}
	return u.String(), nil
}

// Response is an HTTP response whose body has been fully read.
type Response struct {
	*http.Response
	body []byte
}

// Bytes returns the response body.
func (r *Response) Bytes() []byte {
	return r.body
}

// Text returns the response body as a string.
func (r *Response) Text() string {
	return string(r.body)
}

// Document parses the response body into a goquery document.
func (r *Response) Document() (*goquery.Document, error) {
	return soup.Parse(string(r.body))
}

// Reader returns a fresh reader over the response body.
func (r *Response) Reader() io.Reader {
	return bytes.NewReader(r.body)
}
