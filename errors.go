package domforge

import (
	"errors"
	"fmt"
)

// Construction-time errors. All of them fail before any collaborator is
// created, so a failed construction never leaves partial state behind.
var (
	// ErrMalformedURL reports a URL or referrer value the WHATWG parser
	// rejects. Also returned by Reconfigure, which then leaves every read
	// surface untouched.
	ErrMalformedURL = errors.New("malformed URL")

	// ErrMalformedContentType reports a content type that does not parse as
	// type/subtype with optional parameters.
	ErrMalformedContentType = errors.New("malformed content type")

	// ErrUnsupportedContentType reports a content type that parses but is
	// neither HTML nor an XML family type. Distinct from
	// ErrMalformedContentType: this one is a policy decision, not a syntax
	// problem.
	ErrUnsupportedContentType = errors.New("unsupported content type")

	// ErrIncompatibleOptions reports a valid option combination the
	// environment cannot honor, such as node location tracking on an XML
	// document.
	ErrIncompatibleOptions = errors.New("incompatible options")

	// ErrOptionNotAllowed reports an option that the chosen construction
	// path derives itself, such as URL or ContentType given to FromURL.
	ErrOptionNotAllowed = errors.New("option not allowed")
)

// Handle-use errors.
var (
	// ErrScriptsDisabled is returned by Eval when the environment was
	// constructed with RunScriptsNone.
	ErrScriptsDisabled = errors.New("script execution is disabled for this environment")

	// ErrLocationTrackingDisabled is returned by NodeLocation when the
	// environment was constructed without IncludeNodeLocations. Asking for
	// locations that were never recorded is caller misuse, not absence.
	ErrLocationTrackingDisabled = errors.New("node locations were not tracked for this environment")
)

// ResourceFetchError reports a failed fetch. Fatal on the FromURL path;
// reported through the virtual console and otherwise ignored when an
// in-document resource fails.
type ResourceFetchError struct {
	URL    string
	Status int // 0 when the failure happened below HTTP
	Err    error
}

func (e *ResourceFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resource fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("resource fetch %s: HTTP %d", e.URL, e.Status)
}

func (e *ResourceFetchError) Unwrap() error { return e.Err }
