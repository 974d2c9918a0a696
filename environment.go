package domforge

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/domforge/domforge/internal/dom"
	"github.com/domforge/domforge/internal/loader"
	"github.com/domforge/domforge/internal/loctrack"
	"github.com/domforge/domforge/internal/logging"
	"github.com/domforge/domforge/internal/sandbox"
)

// Environment is the handle returned by construction. It owns the window
// and document; the console and cookie jar are shared references that may
// outlive it. Identity fields (document URL, top-level reference) are
// mutable only through Reconfigure; everything else is fixed.
type Environment struct {
	id        string
	cfg       *config
	win       *dom.Window
	vc        *VirtualConsole
	jar       *CookieJar
	runtime   *sandbox.Runtime
	locations *loctrack.Table
	loader    *loader.Loader
	log       *logging.Logger
}

// New constructs an environment from source text. Absent or whitespace-only
// source yields an empty document. Configuration failures happen before any
// collaborator exists; hook failures abort construction; script faults do
// not.
func New(source string, opts *Options) (*Environment, error) {
	if opts == nil {
		opts = &Options{}
	}
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	return build(context.Background(), source, cfg, opts, nil)
}

// build runs the construction pipeline after configuration has resolved:
// window creation, the pre-parse hook, parsing with optional location
// tracking, and the auto-execution policy.
func build(ctx context.Context, source string, cfg *config, opts *Options, preFetched *loader.Loader) (*Environment, error) {
	vc := opts.VirtualConsole
	if vc == nil {
		vc = defaultVirtualConsole()
	}
	jar := opts.CookieJar
	if jar == nil {
		var err error
		jar, err = NewCookieJar()
		if err != nil {
			return nil, err
		}
	}

	env := &Environment{
		id:     uuid.NewString(),
		cfg:    cfg,
		vc:     vc,
		jar:    jar,
		loader: preFetched,
		log:    logging.NewDefault(),
	}
	env.win = dom.NewWindow(cfg.url, cfg.referrer, cfg.userAgent, cfg.xml)

	caps := cfg.runScripts.Capabilities()
	if caps.AutoExecute && env.loader == nil {
		env.loader = loader.New(policyFrom(opts), jar, env.log)
	}
	if caps.InstallGlobals {
		rt, err := sandbox.NewRuntime(cfg.runScripts, env.win, vc, scriptFetcher{env})
		if err != nil {
			return nil, fmt.Errorf("sandbox setup: %w", err)
		}
		env.runtime = rt
	}

	if opts.BeforeParse != nil {
		if err := opts.BeforeParse(env); err != nil {
			return nil, fmt.Errorf("before-parse hook: %w", err)
		}
	}

	src := source
	if strings.TrimSpace(src) == "" {
		src = ""
	}
	var doc *html.Node
	if cfg.xml {
		parsed, err := dom.ParseXML(src)
		if err != nil {
			vc.Emit(ChannelJSDOMError, fmt.Sprintf("XML parse error: %v", err))
		}
		doc = parsed
	} else {
		parsed, err := dom.ParseHTML(src)
		if err != nil {
			vc.Emit(ChannelJSDOMError, fmt.Sprintf("HTML parse error: %v", err))
			parsed = &html.Node{Type: html.DocumentNode}
		}
		doc = parsed
	}
	env.win.SetDocument(doc)

	if cfg.trackNodes {
		env.locations = loctrack.Build(src, doc)
	}

	if env.runtime != nil {
		env.runtime.RunDocumentScripts(ctx)
	}

	env.log.Debug("environment ready",
		zap.String("id", env.id),
		zap.String("url", cfg.url),
		zap.String("content_type", cfg.contentType),
		zap.String("run_scripts", cfg.runScripts.String()))
	return env, nil
}

// ID returns the environment's unique identifier.
func (e *Environment) ID() string { return e.id }

// Window returns the window collaborator. Its lifetime is tied to the
// handle.
func (e *Environment) Window() *Window { return e.win }

// VirtualConsole returns the console receiving this environment's events.
func (e *Environment) VirtualConsole() *VirtualConsole { return e.vc }

// CookieJar returns the cookie store backing this environment.
func (e *Environment) CookieJar() *CookieJar { return e.jar }

// ContentType returns the resolved content type with parameters stripped.
func (e *Environment) ContentType() string { return e.cfg.contentType }

// Serialize renders the full document, doctype included.
func (e *Environment) Serialize() (string, error) {
	return e.win.Serialize()
}

// Title returns the document title, empty when absent.
func (e *Environment) Title() string { return e.win.Title() }

// NodeLocation returns the recorded source position for a node. A nil
// location with nil error means the node was not literally present in the
// parsed source. Calling this on an environment built without
// IncludeNodeLocations is caller misuse and returns
// ErrLocationTrackingDisabled.
func (e *Environment) NodeLocation(n *html.Node) (*NodeLocation, error) {
	if e.locations == nil {
		return nil, ErrLocationTrackingDisabled
	}
	return e.locations.Lookup(n), nil
}

// Eval executes code against the environment's global scope and returns the
// exported completion value. Available in modes outside-only and
// dangerously; returns ErrScriptsDisabled otherwise.
func (e *Environment) Eval(code string) (any, error) {
	if e.runtime == nil {
		return nil, ErrScriptsDisabled
	}
	return e.runtime.Eval(code)
}

// ReconfigureOption mutates one identity field group.
type ReconfigureOption func(*reconfigureSettings)

type reconfigureSettings struct {
	url    *string
	top    *Window
	topSet bool
}

// WithURL changes the document URL. The value is validated and
// canonicalized before any mutation; on failure every read surface keeps
// its prior value.
func WithURL(u string) ReconfigureOption {
	return func(s *reconfigureSettings) { s.url = &u }
}

// WithWindowTop sets the top-level window reference. Passing nil clears the
// reference, which is different from not passing the option at all: an
// omitted option is a no-op.
func WithWindowTop(w *Window) ReconfigureOption {
	return func(s *reconfigureSettings) {
		s.top = w
		s.topSet = true
	}
}

// Reconfigure mutates identity fields from outside the sandbox. All-or-
// nothing per field group: a rejected URL leaves location.href, the
// document URL, and the document URI unchanged; a valid one updates all
// three together. Nothing running inside the sandbox can reach this.
func (e *Environment) Reconfigure(opts ...ReconfigureOption) error {
	var s reconfigureSettings
	for _, opt := range opts {
		opt(&s)
	}

	var canonURL string
	if s.url != nil {
		canon, err := canonicalizeURL(*s.url)
		if err != nil {
			return err
		}
		canonURL = canon
	}

	// Validation is complete; apply.
	if s.url != nil {
		e.win.SetURL(canonURL)
	}
	if s.topSet {
		e.win.SetTop(s.top)
	}
	return nil
}

func policyFrom(opts *Options) loader.Policy {
	if opts.RequestPolicy != nil {
		return *opts.RequestPolicy
	}
	return loader.DefaultPolicy()
}

// scriptFetcher adapts the loader to the sandbox's resource interface.
// Failures surface as ResourceFetchError values; the sandbox reports them
// on the console and keeps going.
type scriptFetcher struct {
	env *Environment
}

func (f scriptFetcher) FetchScript(ctx context.Context, url, userAgent, referrer string) (string, error) {
	if f.env.loader == nil {
		return "", &ResourceFetchError{URL: url, Err: fmt.Errorf("no loader configured")}
	}
	resp, err := f.env.loader.Fetch(ctx, loader.Request{
		URL:       url,
		UserAgent: userAgent,
		Referrer:  referrer,
		Accept:    "*/*",
	})
	if err != nil {
		return "", &ResourceFetchError{URL: url, Err: err}
	}
	if !resp.OK() {
		return "", &ResourceFetchError{URL: resp.FinalURL, Status: resp.Status}
	}
	return resp.Text, nil
}
