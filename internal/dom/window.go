package dom

import (
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Window holds the mutable identity of a document environment. The document
// URL and document URI always change together; SetURL is the only writer.
type Window struct {
	mu          sync.RWMutex
	doc         *html.Node
	url         string
	documentURI string
	referrer    string
	userAgent   string
	top         *Window
	xml         bool
}

// NewWindow creates a window with an empty document: zero child nodes, no
// doctype. Content arrives later via SetDocument.
func NewWindow(url, referrer, userAgent string, xml bool) *Window {
	w := &Window{
		doc:         &html.Node{Type: html.DocumentNode},
		url:         url,
		documentURI: url,
		referrer:    referrer,
		userAgent:   userAgent,
		xml:         xml,
	}
	// A lone window is its own top until an external caller rewires it.
	w.top = w
	return w
}

// Document returns the document root node.
func (w *Window) Document() *html.Node {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.doc
}

// SetDocument replaces the document root. Called once, at the end of the
// parse phase.
func (w *Window) SetDocument(doc *html.Node) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.doc = doc
}

// URL returns the document URL.
func (w *Window) URL() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.url
}

// DocumentURI returns the document URI read surface.
func (w *Window) DocumentURI() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.documentURI
}

// SetURL updates the document URL and document URI together. The caller is
// responsible for canonicalizing the value first.
func (w *Window) SetURL(url string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.url = url
	w.documentURI = url
}

// Referrer returns the document referrer, empty when none was configured.
func (w *Window) Referrer() string {
	return w.referrer
}

// UserAgent returns the navigator-facing user agent string.
func (w *Window) UserAgent() string {
	return w.userAgent
}

// Top returns the top-level window reference, nil when unset or cleared.
func (w *Window) Top() *Window {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.top
}

// SetTop sets or clears the top-level window reference. Only external
// callers reach this; nothing inside the sandbox can.
func (w *Window) SetTop(top *Window) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.top = top
}

// XML reports whether the document was parsed in XML mode.
func (w *Window) XML() bool {
	return w.xml
}

// Title returns the text of the first <title> element, empty when absent.
func (w *Window) Title() string {
	var title string
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			title = sb.String()
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(w.Document())
	return title
}
