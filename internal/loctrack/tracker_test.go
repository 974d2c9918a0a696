package loctrack

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func parse(t *testing.T, source string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(source))
	require.NoError(t, err)
	return doc
}

func findElement(doc *html.Node, tag string) *html.Node {
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

func findText(doc *html.Node, data string) *html.Node {
	var found *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.TextNode && n.Data == data {
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

func TestBuildLiteralElements(t *testing.T) {
	source := `<!DOCTYPE html><html><head></head><body><p id="x">hello</p></body></html>`
	doc := parse(t, source)
	table := Build(source, doc)

	pStart := strings.Index(source, `<p id="x">`)
	p := findElement(doc, "p")
	require.NotNil(t, p)
	loc := table.Lookup(p)
	require.NotNil(t, loc)
	assert.Equal(t, pStart, loc.Start)
	require.NotNil(t, loc.StartTag)
	assert.Equal(t, pStart, loc.Start)
	assert.Equal(t, pStart+len(`<p id="x">`), loc.StartTag.End)
	require.NotNil(t, loc.EndTag)
	assert.Equal(t, strings.Index(source, "</p>"), loc.EndTag.Start)
	assert.Equal(t, strings.Index(source, "</p>")+len("</p>"), loc.End)

	htmlLoc := table.Lookup(findElement(doc, "html"))
	require.NotNil(t, htmlLoc)
	assert.Equal(t, strings.Index(source, "<html>"), htmlLoc.Start)

	text := findText(doc, "hello")
	require.NotNil(t, text)
	tl := table.Lookup(text)
	require.NotNil(t, tl)
	assert.Equal(t, strings.Index(source, "hello"), tl.Start)
	assert.Equal(t, strings.Index(source, "hello")+len("hello"), tl.End)
	assert.Nil(t, tl.StartTag)
}

func TestBuildDoctype(t *testing.T) {
	source := `<!DOCTYPE html><p>x</p>`
	doc := parse(t, source)
	table := Build(source, doc)

	var doctype *html.Node
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.DoctypeNode {
			doctype = c
		}
	}
	require.NotNil(t, doctype)
	loc := table.Lookup(doctype)
	require.NotNil(t, loc)
	assert.Equal(t, 0, loc.Start)
	assert.Equal(t, len("<!DOCTYPE html>"), loc.End)
}

func TestImpliedElementsAbsent(t *testing.T) {
	source := `<p>hi</p>`
	doc := parse(t, source)
	table := Build(source, doc)

	// html, head, and body were never literally present.
	assert.Nil(t, table.Lookup(findElement(doc, "html")))
	assert.Nil(t, table.Lookup(findElement(doc, "head")))
	assert.Nil(t, table.Lookup(findElement(doc, "body")))

	p := findElement(doc, "p")
	loc := table.Lookup(p)
	require.NotNil(t, loc)
	assert.Equal(t, 0, loc.Start)
	assert.Equal(t, len(source), loc.End)
}

func TestUnclosedElement(t *testing.T) {
	source := `<div>hi`
	doc := parse(t, source)
	table := Build(source, doc)

	loc := table.Lookup(findElement(doc, "div"))
	require.NotNil(t, loc)
	assert.Equal(t, 0, loc.Start)
	assert.Equal(t, len(source), loc.End)
	assert.Nil(t, loc.EndTag)
}

func TestVoidAndComment(t *testing.T) {
	source := `<body><br><!--note--></body>`
	doc := parse(t, source)
	table := Build(source, doc)

	br := findElement(doc, "br")
	loc := table.Lookup(br)
	require.NotNil(t, loc)
	assert.Equal(t, strings.Index(source, "<br>"), loc.Start)
	assert.Equal(t, strings.Index(source, "<br>")+len("<br>"), loc.End)
	assert.Nil(t, loc.EndTag)

	var comment *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.CommentNode {
			comment = n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	require.NotNil(t, comment)
	cl := table.Lookup(comment)
	require.NotNil(t, cl)
	assert.Equal(t, strings.Index(source, "<!--note-->"), cl.Start)
}

func TestLookupPostParseNode(t *testing.T) {
	source := `<p>hi</p>`
	doc := parse(t, source)
	table := Build(source, doc)

	created := &html.Node{Type: html.ElementNode, Data: "span"}
	assert.Nil(t, table.Lookup(created))
	assert.Nil(t, table.Lookup(nil))
}
