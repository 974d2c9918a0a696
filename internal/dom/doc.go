// Package dom wraps the x/net/html node tree with the window-level state a
// document environment carries: document URL, referrer, user agent, and the
// top-level window reference.
//
// The node tree itself is golang.org/x/net/html's *html.Node; this package
// does not reimplement it. XML sources are decoded into the same node type
// so every consumer works against one tree shape.
package dom
