/*
Package domforge constructs self-contained, configurable document
environments from HTML or XML sources: a window, a parsed document, and the
subsystems around them.

Everything that happens at the environment's trust boundary is governed
here: whether embedded scripts may run, how external resources are fetched,
how cookies and console output are routed, and how the environment's
identity may be mutated from outside after construction.

# Construction

	env, err := domforge.New(`<!DOCTYPE html><p>hello</p>`, &domforge.Options{
		URL: "https://example.com/",
	})
	if err != nil {
		// classified: ErrMalformedURL, ErrMalformedContentType,
		// ErrUnsupportedContentType, ErrIncompatibleOptions
	}
	out, _ := env.Serialize()

Network-sourced construction fetches the document first and derives URL,
content type, and referrer from the terminal response:

	env, err := domforge.FromURL(ctx, "https://example.com/", nil)

# Script execution

The sandbox policy is decided once, before any content is parsed:

  - RunScriptsNone: scripts are inert markup, no built-ins on the window
  - RunScriptsOutsideOnly: the handle holder may Eval, content never runs
  - RunScriptsDangerously: embedded scripts and inline handlers execute

Script faults never abort construction; they are reported on the virtual
console's jsdomError channel.

# Reconfiguration

Identity fields change only through Reconfigure, externally:

	err := env.Reconfigure(domforge.WithURL("https://example.org/"))

A rejected URL leaves every read surface untouched; a valid one updates
location.href, the document URL, and the document URI atomically.
*/
package domforge
