package sandbox

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dop251/goja"
	"golang.org/x/net/html"

	"github.com/domforge/domforge/internal/dom"
)

// Runtime is a goja VM bound to one window. Created only when the execution
// mode installs built-ins; environments in mode none carry no runtime at all.
type Runtime struct {
	vm      *goja.Runtime
	win     *dom.Window
	console Emitter
	fetcher Fetcher
	caps    Capabilities
	binder  *binder

	// Event handlers per node, both inline attributes compiled during the
	// parse phase and listeners added from script.
	handlers map[*html.Node]map[string][]goja.Callable
}

// NewRuntime creates the sandbox for a window. mode must install globals.
func NewRuntime(mode Mode, win *dom.Window, console Emitter, fetcher Fetcher) (*Runtime, error) {
	caps := mode.Capabilities()
	if !caps.InstallGlobals {
		return nil, fmt.Errorf("mode %s installs no sandbox", mode)
	}
	r := &Runtime{
		vm:       goja.New(),
		win:      win,
		console:  console,
		fetcher:  fetcher,
		caps:     caps,
		handlers: make(map[*html.Node]map[string][]goja.Callable),
	}
	r.binder = newBinder(r)
	if err := r.setupGlobals(); err != nil {
		return nil, err
	}
	return r, nil
}

// Eval executes caller-supplied code against the global scope and exports
// the completion value. This is the handle-level evaluation entry point.
func (r *Runtime) Eval(code string) (any, error) {
	val, err := r.vm.RunString(code)
	if err != nil {
		return nil, err
	}
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, nil
	}
	return val.Export(), nil
}

// RunDocumentScripts applies the auto-execution policy to a freshly parsed
// document: inline handler attributes are compiled, then <script> elements
// execute in document order. Faults are reported through the console and
// never abort construction.
func (r *Runtime) RunDocumentScripts(ctx context.Context) {
	if !r.caps.AutoExecute {
		return
	}
	doc := r.win.Document()
	r.compileInlineHandlers(doc)
	for _, script := range collectScripts(doc) {
		r.runScriptElement(ctx, script)
	}
}

func (r *Runtime) runScriptElement(ctx context.Context, n *html.Node) {
	if !isClassicScript(n) {
		return
	}
	code := ""
	if src := attr(n, "src"); src != "" {
		resolved := r.resolveURL(src)
		if resolved == "" || r.fetcher == nil {
			return
		}
		text, err := r.fetcher.FetchScript(ctx, resolved, r.win.UserAgent(), r.win.URL())
		if err != nil {
			r.console.Emit(ChannelJSDOMError, fmt.Sprintf("could not load script %q: %v", resolved, err))
			return
		}
		code = text
	} else {
		code = textContent(n)
	}
	if strings.TrimSpace(code) == "" {
		return
	}
	if _, err := r.vm.RunString(code); err != nil {
		r.console.Emit(ChannelJSDOMError, fmt.Sprintf("uncaught exception: %v", err))
	}
}

// compileInlineHandlers turns on* attributes into callables keyed by node
// and event name.
func (r *Runtime) compileInlineHandlers(doc *html.Node) {
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if !strings.HasPrefix(a.Key, "on") || len(a.Key) <= 2 {
					continue
				}
				event := a.Key[2:]
				val, err := r.vm.RunString("(function(event){" + a.Val + "\n})")
				if err != nil {
					r.console.Emit(ChannelJSDOMError,
						fmt.Sprintf("invalid %s handler: %v", a.Key, err))
					continue
				}
				if fn, ok := goja.AssertFunction(val); ok {
					r.addHandler(n, event, fn)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
}

func (r *Runtime) addHandler(n *html.Node, event string, fn goja.Callable) {
	if r.handlers[n] == nil {
		r.handlers[n] = make(map[string][]goja.Callable)
	}
	r.handlers[n][event] = append(r.handlers[n][event], fn)
}

// dispatch invokes the handlers registered for an event on a node. Handler
// exceptions go to the console, matching script fault routing.
func (r *Runtime) dispatch(n *html.Node, event string) {
	fns := r.handlers[n][event]
	if len(fns) == 0 {
		return
	}
	ev := r.vm.NewObject()
	ev.Set("type", event)
	ev.Set("target", r.binder.object(n))
	for _, fn := range fns {
		if _, err := fn(goja.Undefined(), ev); err != nil {
			r.console.Emit(ChannelJSDOMError, fmt.Sprintf("uncaught exception in %s handler: %v", event, err))
		}
	}
}

func (r *Runtime) setupGlobals() error {
	vm := r.vm
	global := vm.GlobalObject()

	// No host escape hatches.
	vm.Set("require", goja.Undefined())
	vm.Set("process", goja.Undefined())
	vm.Set("module", goja.Undefined())

	vm.Set("window", global)
	vm.Set("self", global)
	vm.Set("globalThis", global)
	vm.Set("parent", global)

	if err := global.DefineAccessorProperty("top",
		vm.ToValue(func() goja.Value { return r.topValue() }),
		nil, goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
		return err
	}

	r.setupConsole()
	r.setupNavigator()
	if err := r.setupLocation(); err != nil {
		return err
	}
	r.binder.installDocument(global)
	r.setupStubs()
	return nil
}

// topValue reads the live top reference: the global object when the window
// is its own top, undefined when the reference was cleared from outside.
func (r *Runtime) topValue() goja.Value {
	t := r.win.Top()
	switch t {
	case nil:
		return goja.Undefined()
	case r.win:
		return r.vm.GlobalObject()
	default:
		// A foreign window; surface its identity without binding its tree
		// into this VM.
		obj := r.vm.NewObject()
		loc := r.vm.NewObject()
		loc.Set("href", t.URL())
		obj.Set("location", loc)
		return obj
	}
}

func (r *Runtime) setupConsole() {
	console := r.vm.NewObject()
	for _, ch := range []string{"log", "debug", "info", "warn", "error", "dir", "trace"} {
		channel := ch
		console.Set(channel, func(call goja.FunctionCall) goja.Value {
			args := make([]any, 0, len(call.Arguments))
			for _, a := range call.Arguments {
				args = append(args, a.Export())
			}
			r.console.Emit(channel, args...)
			return goja.Undefined()
		})
	}
	r.vm.Set("console", console)
}

func (r *Runtime) setupNavigator() {
	nav := r.vm.NewObject()
	nav.Set("userAgent", r.win.UserAgent())
	nav.Set("appName", "Netscape")
	r.vm.Set("navigator", nav)
}

func (r *Runtime) setupLocation() error {
	loc := r.vm.NewObject()
	get := func(pick func(*url.URL) string) goja.Value {
		return r.vm.ToValue(func() string {
			u, err := url.Parse(r.win.URL())
			if err != nil {
				return ""
			}
			return pick(u)
		})
	}
	// href reads live so a reconfigured URL shows up without reinstalling.
	if err := loc.DefineAccessorProperty("href",
		r.vm.ToValue(func() string { return r.win.URL() }),
		r.vm.ToValue(func(string) {
			r.console.Emit(ChannelJSDOMError, "navigation via location.href is not implemented")
		}),
		goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
		return err
	}
	for name, pick := range map[string]func(*url.URL) string{
		"protocol": func(u *url.URL) string { return u.Scheme + ":" },
		"host":     func(u *url.URL) string { return u.Host },
		"hostname": func(u *url.URL) string { return u.Hostname() },
		"pathname": func(u *url.URL) string { return u.Path },
		"search": func(u *url.URL) string {
			if u.RawQuery == "" {
				return ""
			}
			return "?" + u.RawQuery
		},
		"hash": func(u *url.URL) string {
			if u.Fragment == "" {
				return ""
			}
			return "#" + u.Fragment
		},
	} {
		if err := loc.DefineAccessorProperty(name, get(pick), nil,
			goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
			return err
		}
	}
	loc.Set("toString", func() string { return r.win.URL() })
	r.vm.Set("location", loc)
	return nil
}

// setupStubs installs inert compatibility surfaces. Calling one reports an
// unimplemented capability on the console; the call itself succeeds.
func (r *Runtime) setupStubs() {
	stub := func(name string) func(goja.FunctionCall) goja.Value {
		return func(goja.FunctionCall) goja.Value {
			r.console.Emit(ChannelJSDOMError, fmt.Sprintf("window.%s is not implemented", name))
			return goja.Undefined()
		}
	}
	for _, name := range []string{"alert", "confirm", "prompt", "open", "fetch"} {
		r.vm.Set(name, stub(name))
	}
	// Timers parse but never fire; returning an id keeps feature checks happy.
	noopTimer := func(goja.FunctionCall) goja.Value { return r.vm.ToValue(0) }
	r.vm.Set("setTimeout", noopTimer)
	r.vm.Set("setInterval", noopTimer)
	r.vm.Set("clearTimeout", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	r.vm.Set("clearInterval", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
}

func (r *Runtime) resolveURL(ref string) string {
	base, err := url.Parse(r.win.URL())
	if err != nil {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

func collectScripts(doc *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func isClassicScript(n *html.Node) bool {
	switch strings.ToLower(strings.TrimSpace(attr(n, "type"))) {
	case "", "text/javascript", "application/javascript":
		return true
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
