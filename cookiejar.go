package domforge

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// CookieJar stores cookies scoped by domain and path, with public suffix
// awareness. It implements net/http.CookieJar, so the resource loader sends
// its cookies on outbound requests and writes Set-Cookie responses back
// into it. A jar may be shared across environment handles; the environment
// never assumes exclusive ownership.
type CookieJar struct {
	jar *cookiejar.Jar
}

// NewCookieJar creates an empty jar.
func NewCookieJar() (*CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &CookieJar{jar: jar}, nil
}

// SetCookies stores cookies scoped to u. Part of http.CookieJar.
func (c *CookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	c.jar.SetCookies(u, cookies)
}

// Cookies returns the cookies to send for a request to u. Part of
// http.CookieJar.
func (c *CookieJar) Cookies(u *url.URL) []*http.Cookie {
	return c.jar.Cookies(u)
}

// SetCookieString parses a Set-Cookie header value and stores it scoped to
// the given URL.
func (c *CookieJar) SetCookieString(rawURL, setCookie string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrMalformedURL, rawURL)
	}
	resp := http.Response{Header: http.Header{"Set-Cookie": []string{setCookie}}}
	cookies := resp.Cookies()
	if len(cookies) == 0 {
		return fmt.Errorf("cannot parse cookie %q", setCookie)
	}
	c.jar.SetCookies(u, cookies)
	return nil
}

// CookieString assembles the Cookie header value for a request to the given
// URL, empty when no cookie applies.
func (c *CookieJar) CookieString(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedURL, rawURL)
	}
	cookies := c.jar.Cookies(u)
	parts := make([]string, len(cookies))
	for i, ck := range cookies {
		parts[i] = ck.Name + "=" + ck.Value
	}
	return strings.Join(parts, "; "), nil
}
