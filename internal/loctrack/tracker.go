// Package loctrack records source positions for parsed nodes.
//
// The HTML parser does not report offsets, so the table is built from a
// second pass: the tokenizer replays the original source and each literal
// token is matched, in document order, to the node the parser built for it.
// Nodes the parser created implicitly (html, head, body when absent from the
// source, foster-parented content) never match a token and stay out of the
// table; looking them up yields absence, not a zero position.
//
// The table is populated once during construction and never written again.
package loctrack

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Span is a half-open byte range [Start, End) into the original source.
type Span struct {
	Start int
	End   int
}

// Location is the recorded position of a single node. Elements additionally
// carry their open and close tag spans; EndTag is nil when the close tag was
// implied rather than present in the source.
type Location struct {
	Start    int
	End      int
	StartTag *Span
	EndTag   *Span
}

// Table maps node identity to source positions.
type Table struct {
	locs map[*html.Node]*Location
}

// Lookup returns the recorded location for n, or nil when the node was not
// literally present in the parsed source.
func (t *Table) Lookup(n *html.Node) *Location {
	if t == nil || n == nil {
		return nil
	}
	return t.locs[n]
}

// Len returns the number of tracked nodes.
func (t *Table) Len() int {
	return len(t.locs)
}

type openElem struct {
	node *html.Node
	loc  *Location
}

// Build tokenizes source and matches tokens against the parsed document.
func Build(source string, doc *html.Node) *Table {
	t := &Table{locs: make(map[*html.Node]*Location)}
	nodes := preorder(doc)

	z := html.NewTokenizer(strings.NewReader(source))
	offset := 0
	cursor := 0
	var open []openElem
	var lastText *Location

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		start := offset
		end := offset + len(z.Raw())
		offset = end
		tok := z.Token()

		switch tt {
		case html.DoctypeToken:
			if idx := findNext(nodes, cursor, func(n *html.Node) bool {
				return n.Type == html.DoctypeNode && t.locs[n] == nil
			}); idx >= 0 {
				t.locs[nodes[idx]] = &Location{Start: start, End: end}
				cursor = idx + 1
			}
			lastText = nil

		case html.StartTagToken, html.SelfClosingTagToken:
			idx := findNext(nodes, cursor, func(n *html.Node) bool {
				return n.Type == html.ElementNode && n.Data == tok.Data && t.locs[n] == nil
			})
			if idx < 0 {
				lastText = nil
				continue
			}
			loc := &Location{Start: start, StartTag: &Span{Start: start, End: end}}
			t.locs[nodes[idx]] = loc
			cursor = idx + 1
			if tt == html.SelfClosingTagToken || isVoid(tok.Data) {
				loc.End = end
			} else {
				open = append(open, openElem{node: nodes[idx], loc: loc})
			}
			lastText = nil

		case html.EndTagToken:
			for i := len(open) - 1; i >= 0; i-- {
				if open[i].node.Data != tok.Data {
					continue
				}
				// Elements above the match had their close tag implied by
				// this one; their content ends where the tag begins.
				for j := len(open) - 1; j > i; j-- {
					open[j].loc.End = start
				}
				open[i].loc.EndTag = &Span{Start: start, End: end}
				open[i].loc.End = end
				open = open[:i]
				break
			}
			lastText = nil

		case html.TextToken:
			// The tokenizer may split one text node across tokens; extend
			// the previous record when the ranges are contiguous.
			if lastText != nil && lastText.End == start {
				lastText.End = end
				continue
			}
			idx := findNext(nodes, cursor, func(n *html.Node) bool {
				return n.Type == html.TextNode && t.locs[n] == nil
			})
			if idx < 0 {
				continue
			}
			// Whitespace-only tokens are dropped in several insertion
			// modes; only match one when the node carries the same text.
			if strings.TrimSpace(tok.Data) == "" && nodes[idx].Data != tok.Data {
				continue
			}
			loc := &Location{Start: start, End: end}
			t.locs[nodes[idx]] = loc
			cursor = idx + 1
			lastText = loc

		case html.CommentToken:
			if idx := findNext(nodes, cursor, func(n *html.Node) bool {
				return n.Type == html.CommentNode && t.locs[n] == nil
			}); idx >= 0 {
				t.locs[nodes[idx]] = &Location{Start: start, End: end}
				cursor = idx + 1
			}
			lastText = nil
		}
	}

	// Unclosed elements run to the end of the source.
	for _, oe := range open {
		if oe.loc.End == 0 {
			oe.loc.End = offset
		}
	}
	return t
}

func preorder(doc *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode, html.TextNode, html.CommentNode, html.DoctypeNode:
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func findNext(nodes []*html.Node, from int, match func(*html.Node) bool) int {
	for i := from; i < len(nodes); i++ {
		if match(nodes[i]) {
			return i
		}
	}
	return -1
}

func isVoid(name string) bool {
	switch atom.Lookup([]byte(name)) {
	case atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr,
		atom.Img, atom.Input, atom.Link, atom.Meta, atom.Source,
		atom.Track, atom.Wbr:
		return true
	}
	return false
}
