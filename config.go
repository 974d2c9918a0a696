package domforge

import (
	"fmt"
	"mime"
	"runtime"
	"strings"

	whatwg "github.com/nlnwa/whatwg-url/url"

	"github.com/domforge/domforge/internal/envdefaults"
	"github.com/domforge/domforge/internal/sandbox"
)

// Version is the package version embedded in the default user agent.
const Version = "0.9.0"

// aboutBlank is the document URL when none is supplied.
const aboutBlank = "about:blank"

// config is the resolved, immutable configuration. Identity fields live on
// the window after construction; everything here is fixed for the handle's
// lifetime.
type config struct {
	url         string
	referrer    string
	contentType string // mime type only, parameters stripped
	params      map[string]string
	xml         bool
	userAgent   string
	trackNodes  bool
	runScripts  sandbox.Mode
}

// resolveOptions validates and canonicalizes raw options. Pure: no console,
// jar, or window is touched, so a failure leaves nothing behind.
func resolveOptions(opts *Options) (*config, error) {
	cfg := &config{runScripts: opts.RunScripts}

	cfg.url = aboutBlank
	if opts.URL != "" {
		canon, err := canonicalizeURL(opts.URL)
		if err != nil {
			return nil, err
		}
		cfg.url = canon
	}

	if opts.Referrer != "" {
		canon, err := canonicalizeURL(opts.Referrer)
		if err != nil {
			return nil, err
		}
		cfg.referrer = canon
	}

	rawType := opts.ContentType
	if rawType == "" {
		rawType = "text/html"
	}
	mt, params, err := parseContentType(rawType)
	if err != nil {
		return nil, err
	}
	cfg.contentType = mt
	cfg.params = params
	cfg.xml = isXMLType(mt)

	// Checked after content-type resolution so the error reflects the true
	// content type, not the raw option string.
	cfg.trackNodes = opts.IncludeNodeLocations
	if cfg.trackNodes && cfg.xml {
		return nil, fmt.Errorf("%w: node locations cannot be tracked for XML content", ErrIncompatibleOptions)
	}

	cfg.userAgent = opts.UserAgent
	if cfg.userAgent == "" {
		cfg.userAgent = defaultUserAgent()
	}

	return cfg, nil
}

// canonicalizeURL normalizes a URL string through a WHATWG parse and
// re-serialize. Idempotent: re-canonicalizing the output is a no-op.
func canonicalizeURL(raw string) (string, error) {
	u, err := whatwg.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedURL, raw)
	}
	return u.String(), nil
}

// parseContentType splits a content type into mime type and parameters.
func parseContentType(raw string) (string, map[string]string, error) {
	mt, params, err := mime.ParseMediaType(raw)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %q", ErrMalformedContentType, raw)
	}
	parts := strings.Split(mt, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", nil, fmt.Errorf("%w: %q", ErrMalformedContentType, raw)
	}
	if mt != "text/html" && !isXMLType(mt) {
		return "", nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, mt)
	}
	return mt, params, nil
}

func isXMLType(mt string) bool {
	return mt == "text/xml" || mt == "application/xml" || strings.HasSuffix(mt, "+xml")
}

// defaultUserAgent builds the templated user agent, honoring the
// process-wide override.
func defaultUserAgent() string {
	if ua := envdefaults.LoadOrDefault().UserAgent; ua != "" {
		return ua
	}
	return fmt.Sprintf("Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) domforge/%s", platform(), Version)
}

func platform() string {
	switch runtime.GOOS {
	case "darwin":
		return "Macintosh; Intel Mac OS X 10_15_7"
	case "windows":
		return "Windows NT 10.0; Win64; x64"
	default:
		return "X11; Linux x86_64"
	}
}
