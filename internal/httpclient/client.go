// Package httpclient builds the HTTP client used to download reference
// data. The dataset URL comes from configuration, so the client refuses
// private and loopback destinations unless told otherwise, including after
// redirects and DNS resolution.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/teranos/hamcall/errors"
)

// ErrBlocked is returned for destinations the client refuses.
var ErrBlocked = errors.New("destination blocked")

// Options configures a Client.
type Options struct {
	Timeout time.Duration
	// AllowPrivate permits loopback and private addresses. Tests against
	// httptest servers need it.
	AllowPrivate bool
	MaxRedirects int
	UserAgent    string
}

// Client is an http.Client that validates every destination.
type Client struct {
	*http.Client
	opts Options
}

// New returns a Client. Zero option values get defaults.
func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Minute
	}
	if opts.MaxRedirects == 0 {
		opts.MaxRedirects = 5
	}

	c := &Client{
		Client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}

	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= c.opts.MaxRedirects {
			return errors.Newf("stopped after %d redirects", c.opts.MaxRedirects)
		}
		if err := c.check(req.URL); err != nil {
			return errors.Wrap(err, "redirect blocked")
		}
		return nil
	}

	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	if !opts.AllowPrivate {
		// Names are resolved here so a public name pointing at a private
		// address is refused too.
		transport.Proxy = nil
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, errors.Wrap(err, "invalid address")
			}
			ips, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
			if err != nil {
				return nil, errors.Wrapf(err, "resolve %q", host)
			}
			for _, ip := range ips {
				if IsPrivate(ip) {
					return nil, errors.Mark(errors.Newf("private address %s", ip), ErrBlocked)
				}
			}
			return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].String(), port))
		}
	}
	c.Transport = &userAgent{base: transport, agent: opts.UserAgent}
	return c
}

// ValidateURL parses raw and checks it against the client's policy.
func (c *Client) ValidateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "invalid URL")
	}
	if err := c.check(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (c *Client) check(u *url.URL) error {
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return errors.Mark(errors.Newf("scheme %q not allowed", u.Scheme), ErrBlocked)
	}
	if u.User != nil {
		return errors.Mark(errors.New("credentials in URL not allowed"), ErrBlocked)
	}
	host := u.Hostname()
	if host == "" {
		return errors.New("URL missing hostname")
	}
	if c.opts.AllowPrivate {
		return nil
	}
	if isLocalhost(host) {
		return errors.Mark(errors.New("localhost not allowed"), ErrBlocked)
	}
	if ip, err := netip.ParseAddr(host); err == nil && IsPrivate(ip) {
		return errors.Mark(errors.Newf("private address %s", host), ErrBlocked)
	}
	return nil
}

// IsPrivate reports whether ip is loopback, private, link-local,
// multicast, unspecified or reserved for documentation.
func IsPrivate(ip netip.Addr) bool {
	ip = ip.Unmap()
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsMulticast() || ip.IsUnspecified() {
		return true
	}
	for _, p := range reserved {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

var reserved = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("fec0::/10"),
	netip.MustParsePrefix("2001:db8::/32"),
}

func isLocalhost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	return host == "localhost" || host == "localhost.localdomain" || strings.HasSuffix(host, ".localhost")
}

type userAgent struct {
	base  http.RoundTripper
	agent string
}

func (t *userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.agent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.agent)
	}
	return t.base.RoundTrip(req)
}
