package loader

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/domforge/domforge/internal/logging"
)

const defaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// Loader wraps resty with rate limiting and a shared cookie jar.
type Loader struct {
	client  *resty.Client
	limiter *rate.Limiter
	log     *logging.Logger
}

// Request describes a single outbound fetch.
type Request struct {
	URL       string
	UserAgent string
	Referrer  string // initial request only; not propagated across redirects
	Accept    string
}

// Response is the terminal response after redirects.
type Response struct {
	Status      int
	FinalURL    string
	Header      http.Header
	Body        []byte
	Text        string // body decoded to UTF-8
	ContentType string // raw Content-Type header value
}

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// New creates a loader. The jar may be nil, in which case no cookies are
// sent or stored. The loader never assumes exclusive ownership of the jar;
// it may be shared across environments.
func New(policy Policy, jar http.CookieJar, log *logging.Logger) *Loader {
	policy = policy.normalized()
	if log == nil {
		log = logging.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = policy.MaxRetries
	retryClient.RetryWaitMin = policy.RetryWaitMin
	retryClient.RetryWaitMax = policy.RetryWaitMax
	retryClient.Logger = nil

	if tr, ok := retryClient.HTTPClient.Transport.(*http.Transport); ok {
		tr.MaxIdleConns = policy.MaxIdleConns
		tr.MaxIdleConnsPerHost = policy.MaxConnsPerHost
		tr.MaxConnsPerHost = policy.MaxConnsPerHost
		tr.IdleConnTimeout = policy.IdleConnTimeout
		if policy.InsecureSkipVerify {
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		if policy.ProxyURL != "" {
			if proxy, err := url.Parse(policy.ProxyURL); err == nil {
				tr.Proxy = http.ProxyURL(proxy)
			}
		}
	}

	client := resty.New().
		SetTimeout(policy.Timeout).
		SetRetryCount(policy.MaxRetries).
		SetRetryWaitTime(policy.RetryWaitMin).
		SetRetryMaxWaitTime(policy.RetryWaitMax).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(policy.MaxRedirects)).
		SetTransport(retryClient.HTTPClient.Transport)

	if jar != nil {
		client.SetCookieJar(jar)
	}

	var limiter *rate.Limiter
	if policy.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(policy.RequestsPerSecond), int(policy.RequestsPerSecond)+1)
	}

	return &Loader{client: client, limiter: limiter, log: log}
}

// Fetch performs a GET and returns the terminal response. A network-level
// failure returns an error; a non-2xx status does not, the caller inspects
// Response.OK.
func (l *Loader) Fetch(ctx context.Context, req Request) (*Response, error) {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	accept := req.Accept
	if accept == "" {
		accept = defaultAccept
	}

	r := l.client.R().
		SetContext(ctx).
		SetHeader("Accept", accept)
	if req.UserAgent != "" {
		r.SetHeader("User-Agent", req.UserAgent)
	}
	if req.Referrer != "" {
		r.SetHeader("Referer", req.Referrer)
	}

	start := time.Now()
	resp, err := r.Get(req.URL)
	observeFetch(err == nil, time.Since(start))
	if err != nil {
		l.log.Debug("fetch failed",
			zap.String("url", req.URL), zap.Error(err))
		return nil, fmt.Errorf("fetch %s: %w", req.URL, err)
	}

	finalURL := req.URL
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		finalURL = raw.Request.URL.String()
	}

	body := resp.Body()
	contentType := resp.Header().Get("Content-Type")
	out := &Response{
		Status:      resp.StatusCode(),
		FinalURL:    finalURL,
		Header:      resp.Header(),
		Body:        body,
		Text:        decodeBody(body, contentType),
		ContentType: contentType,
	}

	l.log.Debug("fetched",
		zap.String("url", req.URL),
		zap.String("final_url", finalURL),
		zap.Int("status", out.Status))
	return out, nil
}
