package domforge

import (
	"github.com/domforge/domforge/internal/dom"
	"github.com/domforge/domforge/internal/loader"
	"github.com/domforge/domforge/internal/loctrack"
	"github.com/domforge/domforge/internal/sandbox"
)

// ExecutionMode governs what the embedded script sandbox may do. Fixed at
// construction; Reconfigure cannot change it.
type ExecutionMode = sandbox.Mode

const (
	// RunScriptsNone parses scripts as inert markup. No evaluation entry
	// point, no language built-ins on the window.
	RunScriptsNone ExecutionMode = sandbox.ModeNone
	// RunScriptsOutsideOnly lets the handle holder evaluate code via Eval;
	// document content itself never executes.
	RunScriptsOutsideOnly ExecutionMode = sandbox.ModeOutsideOnly
	// RunScriptsDangerously additionally executes embedded <script>
	// elements and inline handler attributes. Opt-in only: this is the one
	// mode that treats document content as code.
	RunScriptsDangerously ExecutionMode = sandbox.ModeDangerously
)

// ParseRunScripts converts the textual form of an execution mode:
// "none", "outside-only", or "dangerously". The empty string means
// RunScriptsNone.
func ParseRunScripts(s string) (ExecutionMode, error) {
	return sandbox.ParseMode(s)
}

// Window is the window collaborator owned by an environment handle.
type Window = dom.Window

// NodeLocation is a recorded source position: byte offsets for the node,
// plus open/close tag spans for elements.
type NodeLocation = loctrack.Location

// RequestPolicy configures outbound fetches: timeouts, retries, redirects,
// proxying, TLS verification, and connection pooling.
type RequestPolicy = loader.Policy

// Options is the raw construction configuration. The zero value is valid:
// an about:blank HTML document with scripting off.
type Options struct {
	// URL is the document URL, canonicalized through a WHATWG parse and
	// re-serialize. Defaults to about:blank.
	URL string

	// Referrer is read back from the document and sent as the Referer
	// header on the initial request of outbound fetches. Defaults to none.
	Referrer string

	// ContentType decides the parsing mode. text/html or an XML family
	// type; parameters such as charset are recorded but stripped from the
	// observed value. Defaults to text/html.
	ContentType string

	// UserAgent is used verbatim for both the navigator surface and the
	// default outbound request header when set.
	UserAgent string

	// IncludeNodeLocations records source positions during parsing. HTML
	// only; combining it with an XML content type fails construction.
	IncludeNodeLocations bool

	// RunScripts selects the sandbox policy. Defaults to RunScriptsNone.
	RunScripts ExecutionMode

	// VirtualConsole receives everything the environment reports. Shared:
	// the environment never assumes exclusive ownership. Defaults to a
	// console forwarding to the process logger.
	VirtualConsole *VirtualConsole

	// CookieJar backs cookie reads and writes. Shared like the console.
	// Defaults to a fresh public-suffix-aware jar.
	CookieJar *CookieJar

	// BeforeParse runs after the window exists and before any markup is
	// materialized, with full access to the environment. Caller-trusted:
	// an error here is fatal to construction.
	BeforeParse func(*Environment) error

	// RequestPolicy overrides the documented fetch defaults.
	RequestPolicy *RequestPolicy
}
