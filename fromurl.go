package domforge

import (
	"context"
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"github.com/domforge/domforge/internal/loader"
	"github.com/domforge/domforge/internal/logging"
)

// FromURL constructs an environment from the document at the given URL. The
// resulting handle's URL, content type, and referrer derive from
// the terminal response after redirects; supplying URL or ContentType in
// the options is a caller error.
//
// This is the one asynchronous construction path: it blocks while the fetch
// is in flight, and canceling ctx aborts the request and fails the call.
// A fetch failure here is fatal, unlike in-document resource failures.
func FromURL(ctx context.Context, rawURL string, opts *Options) (*Environment, error) {
	if opts == nil {
		opts = &Options{}
	}
	if opts.URL != "" {
		return nil, fmt.Errorf("%w: URL is derived from the response", ErrOptionNotAllowed)
	}
	if opts.ContentType != "" {
		return nil, fmt.Errorf("%w: ContentType is derived from the response", ErrOptionNotAllowed)
	}

	canon, err := canonicalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	referrer := opts.Referrer
	if referrer != "" {
		if referrer, err = canonicalizeURL(referrer); err != nil {
			return nil, err
		}
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent()
	}

	jar := opts.CookieJar
	if jar == nil {
		if jar, err = NewCookieJar(); err != nil {
			return nil, err
		}
	}

	l := loader.New(policyFrom(opts), jar, logging.NewDefault())
	resp, err := l.Fetch(ctx, loader.Request{
		URL:       canon,
		UserAgent: userAgent,
		Referrer:  referrer,
	})
	if err != nil {
		return nil, &ResourceFetchError{URL: canon, Err: err}
	}
	if !resp.OK() {
		return nil, &ResourceFetchError{URL: resp.FinalURL, Status: resp.Status}
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(resp.Body).String()
	}

	derived := *opts
	derived.URL = resp.FinalURL
	derived.ContentType = contentType
	derived.Referrer = referrer
	derived.CookieJar = jar
	derived.UserAgent = userAgent

	cfg, err := resolveOptions(&derived)
	if err != nil {
		return nil, err
	}
	return build(ctx, resp.Text, cfg, &derived, l)
}
