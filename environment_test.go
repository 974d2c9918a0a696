package domforge

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func mustSerialize(t *testing.T, env *Environment) string {
	t.Helper()
	out, err := env.Serialize()
	require.NoError(t, err)
	return out
}

func findNode(doc *html.Node, tag string) *html.Node {
	var found *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == tag {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}

func TestSerializeDoctypeDocument(t *testing.T) {
	env, err := New("<!DOCTYPE html>hello", nil)
	require.NoError(t, err)
	assert.Equal(t,
		"<!DOCTYPE html><html><head></head><body>hello</body></html>",
		mustSerialize(t, env))
}

func TestEmptySourceEquivalence(t *testing.T) {
	empty, err := New("", nil)
	require.NoError(t, err)
	whitespace, err := New("  \n\t  ", nil)
	require.NoError(t, err)

	assert.Equal(t, mustSerialize(t, empty), mustSerialize(t, whitespace))
	assert.Equal(t, "<html><head></head><body></body></html>", mustSerialize(t, empty))
}

func TestConstructionFailureLeavesNothing(t *testing.T) {
	env, err := New("<p>x</p>", &Options{URL: "::::"})
	assert.ErrorIs(t, err, ErrMalformedURL)
	assert.Nil(t, env)
}

func TestDefaultIdentity(t *testing.T) {
	env, err := New("<p>x</p>", nil)
	require.NoError(t, err)
	assert.Equal(t, "about:blank", env.Window().URL())
	assert.Equal(t, "", env.Window().Referrer())
	assert.Equal(t, "text/html", env.ContentType())
	assert.NotEmpty(t, env.ID())
}

func TestContentTypeParametersStripped(t *testing.T) {
	env, err := New("<p>x</p>", &Options{ContentType: "text/html; charset=utf8"})
	require.NoError(t, err)
	assert.Equal(t, "text/html", env.ContentType())
}

func TestModeNone(t *testing.T) {
	env, err := New(`<script>globalThis.ran = true</script>`, nil)
	require.NoError(t, err)

	// No evaluation entry point.
	_, err = env.Eval("1 + 1")
	assert.ErrorIs(t, err, ErrScriptsDisabled)

	// The script survives as inert markup.
	assert.Contains(t, mustSerialize(t, env), "globalThis.ran = true")
}

func TestModeOutsideOnly(t *testing.T) {
	env, err := New(`<p id="x">hi</p><script>document.getElementById("x").setAttribute("data-ran", "1")</script>`,
		&Options{RunScripts: RunScriptsOutsideOnly})
	require.NoError(t, err)

	// The evaluation entry point works.
	val, err := env.Eval("6 * 7")
	require.NoError(t, err)
	assert.Equal(t, int64(42), val)

	// Embedded scripts did not auto-execute.
	p := findNode(env.Window().Document(), "p")
	require.NotNil(t, p)
	for _, a := range p.Attr {
		assert.NotEqual(t, "data-ran", a.Key)
	}
}

func TestModeDangerously(t *testing.T) {
	env, err := New(`<p id="x">hi</p><script>document.getElementById("x").setAttribute("data-ran", "1")</script>`,
		&Options{RunScripts: RunScriptsDangerously})
	require.NoError(t, err)

	p := findNode(env.Window().Document(), "p")
	require.NotNil(t, p)
	var got string
	for _, a := range p.Attr {
		if a.Key == "data-ran" {
			got = a.Val
		}
	}
	assert.Equal(t, "1", got)
}

func TestScriptFaultDoesNotAbortConstruction(t *testing.T) {
	vc := NewVirtualConsole()
	var faults []string
	vc.On(ChannelJSDOMError, func(args ...any) {
		faults = append(faults, args[0].(string))
	})

	env, err := New(`<script>throw new Error("page boom")</script><p>still here</p>`,
		&Options{RunScripts: RunScriptsDangerously, VirtualConsole: vc})
	require.NoError(t, err)
	assert.Contains(t, mustSerialize(t, env), "still here")
	require.NotEmpty(t, faults)
	assert.Contains(t, faults[0], "page boom")
}

func elementAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func TestExternalScriptExecutes(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/mutate.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		fmt.Fprint(w, `document.getElementById("t").setAttribute("data-loaded", "yes")`)
	})

	env, err := New(
		fmt.Sprintf(`<p id="t">x</p><script src=%q></script>`, srv.URL+"/mutate.js"),
		&Options{RunScripts: RunScriptsDangerously})
	require.NoError(t, err)

	p := findNode(env.Window().Document(), "p")
	require.NotNil(t, p)
	assert.Equal(t, "yes", elementAttr(p, "data-loaded"))
}

func TestExternalScriptRelativeSrc(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/assets/rel.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		fmt.Fprint(w, `document.getElementById("t").setAttribute("data-rel", "yes")`)
	})

	// A relative src resolves against the document URL.
	env, err := New(`<p id="t">x</p><script src="/assets/rel.js"></script>`, &Options{
		URL:        srv.URL + "/page",
		RunScripts: RunScriptsDangerously,
	})
	require.NoError(t, err)

	p := findNode(env.Window().Document(), "p")
	require.NotNil(t, p)
	assert.Equal(t, "yes", elementAttr(p, "data-rel"))
}

func TestExternalScriptFetchFailureIsNonFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	vc := NewVirtualConsole()
	var faults []string
	vc.On(ChannelJSDOMError, func(args ...any) {
		faults = append(faults, args[0].(string))
	})

	env, err := New(
		fmt.Sprintf(`<script src=%q></script><p>still here</p>`, srv.URL+"/missing.js"),
		&Options{
			RunScripts:     RunScriptsDangerously,
			VirtualConsole: vc,
			RequestPolicy:  &RequestPolicy{MaxRetries: 0},
		})
	require.NoError(t, err)
	assert.Contains(t, mustSerialize(t, env), "still here")
	require.NotEmpty(t, faults)
	assert.Contains(t, faults[0], "could not load script")
}

func TestNodeLocations(t *testing.T) {
	source := `<!DOCTYPE html><html><head></head><body><p>text</p></body></html>`
	env, err := New(source, &Options{IncludeNodeLocations: true})
	require.NoError(t, err)

	p := findNode(env.Window().Document(), "p")
	require.NotNil(t, p)
	loc, err := env.NodeLocation(p)
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, strings.Index(source, "<p>"), loc.Start)
	require.NotNil(t, loc.StartTag)
	require.NotNil(t, loc.EndTag)

	// Nodes created after parsing have no location.
	created := &html.Node{Type: html.ElementNode, Data: "span"}
	loc, err = env.NodeLocation(created)
	require.NoError(t, err)
	assert.Nil(t, loc)
}

func TestNodeLocationsImpliedElementAbsent(t *testing.T) {
	env, err := New(`<p>hi</p>`, &Options{IncludeNodeLocations: true})
	require.NoError(t, err)

	body := findNode(env.Window().Document(), "body")
	require.NotNil(t, body)
	loc, err := env.NodeLocation(body)
	require.NoError(t, err)
	assert.Nil(t, loc)
}

func TestNodeLocationsDisabledIsAnError(t *testing.T) {
	env, err := New(`<p>hi</p>`, nil)
	require.NoError(t, err)

	p := findNode(env.Window().Document(), "p")
	_, err = env.NodeLocation(p)
	assert.ErrorIs(t, err, ErrLocationTrackingDisabled)
}

func TestNodeLocationsRejectedForXML(t *testing.T) {
	_, err := New(`<root/>`, &Options{
		ContentType:          "application/xml",
		IncludeNodeLocations: true,
	})
	assert.ErrorIs(t, err, ErrIncompatibleOptions)
}

func TestXMLEnvironment(t *testing.T) {
	env, err := New(`<root><item>1</item></root>`, &Options{ContentType: "application/xml"})
	require.NoError(t, err)
	assert.Equal(t, "application/xml", env.ContentType())
	assert.Equal(t, `<root><item>1</item></root>`, mustSerialize(t, env))
}

func TestXMLParseErrorReportedNotFatal(t *testing.T) {
	vc := NewVirtualConsole()
	var faults int
	vc.On(ChannelJSDOMError, func(args ...any) { faults++ })

	env, err := New(`<root><unclosed>`, &Options{
		ContentType:    "application/xml",
		VirtualConsole: vc,
	})
	require.NoError(t, err)
	require.NotNil(t, env)
	assert.Equal(t, 1, faults)
}

func TestBeforeParseHook(t *testing.T) {
	var sawChildren bool
	env, err := New(`<p>content</p>`, &Options{
		RunScripts: RunScriptsOutsideOnly,
		BeforeParse: func(e *Environment) error {
			// The hook runs before any markup is materialized.
			sawChildren = e.Window().Document().FirstChild != nil
			_, evalErr := e.Eval("globalThis.injected = 'from hook'")
			return evalErr
		},
	})
	require.NoError(t, err)
	assert.False(t, sawChildren)

	val, err := env.Eval("injected")
	require.NoError(t, err)
	assert.Equal(t, "from hook", val)
}

func TestBeforeParseHookErrorIsFatal(t *testing.T) {
	hookErr := errors.New("setup exploded")
	env, err := New(`<p>x</p>`, &Options{
		BeforeParse: func(*Environment) error { return hookErr },
	})
	assert.ErrorIs(t, err, hookErr)
	assert.Nil(t, env)
}

func TestReconfigureURL(t *testing.T) {
	env, err := New(`<p>x</p>`, &Options{
		URL:        "https://example.com/",
		RunScripts: RunScriptsOutsideOnly,
	})
	require.NoError(t, err)

	require.NoError(t, env.Reconfigure(WithURL("https://example.org/next")))

	// All three read surfaces move together.
	assert.Equal(t, "https://example.org/next", env.Window().URL())
	assert.Equal(t, "https://example.org/next", env.Window().DocumentURI())
	href, err := env.Eval("location.href")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/next", href)
}

func TestReconfigureBadURLLeavesStateUntouched(t *testing.T) {
	env, err := New(`<p>x</p>`, &Options{
		URL:        "https://example.com/",
		RunScripts: RunScriptsOutsideOnly,
	})
	require.NoError(t, err)

	err = env.Reconfigure(WithURL("not a url"))
	assert.ErrorIs(t, err, ErrMalformedURL)

	assert.Equal(t, "https://example.com/", env.Window().URL())
	assert.Equal(t, "https://example.com/", env.Window().DocumentURI())
	href, evalErr := env.Eval("location.href")
	require.NoError(t, evalErr)
	assert.Equal(t, "https://example.com/", href)
}

func TestReconfigureNoOptionsIsNoOp(t *testing.T) {
	env, err := New(`<p>x</p>`, &Options{URL: "https://example.com/"})
	require.NoError(t, err)

	require.NoError(t, env.Reconfigure())
	assert.Equal(t, "https://example.com/", env.Window().URL())
	assert.Same(t, env.Window(), env.Window().Top())
}

func TestReconfigureWindowTopTriState(t *testing.T) {
	env, err := New(`<p>x</p>`, nil)
	require.NoError(t, err)

	// Omitting the option leaves top alone.
	require.NoError(t, env.Reconfigure(WithURL("https://example.com/")))
	assert.Same(t, env.Window(), env.Window().Top())

	// Passing nil actually clears the reference.
	require.NoError(t, env.Reconfigure(WithWindowTop(nil)))
	assert.Nil(t, env.Window().Top())

	// And a real window rewires it.
	other, err := New(`<p>other</p>`, nil)
	require.NoError(t, err)
	require.NoError(t, env.Reconfigure(WithWindowTop(other.Window())))
	assert.Same(t, other.Window(), env.Window().Top())
}

func TestSharedCollaboratorsReturned(t *testing.T) {
	vc := NewVirtualConsole()
	jar, err := NewCookieJar()
	require.NoError(t, err)

	env, err := New(`<p>x</p>`, &Options{VirtualConsole: vc, CookieJar: jar})
	require.NoError(t, err)
	assert.Same(t, vc, env.VirtualConsole())
	assert.Same(t, jar, env.CookieJar())
}

func TestTitle(t *testing.T) {
	env, err := New(`<title>Welcome</title>`, nil)
	require.NoError(t, err)
	assert.Equal(t, "Welcome", env.Title())
}
