package dom

import (
	"encoding/xml"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ParseHTML parses source with the HTML5 tree construction algorithm.
// x/net/html recovers from malformed markup the way browsers do, so the
// returned error is nil for any realistic input.
func ParseHTML(source string) (*html.Node, error) {
	return html.Parse(strings.NewReader(source))
}

// ParseXML decodes an XML source into the same node tree shape that HTML
// parsing produces. Decoding stops at the first syntax error; the tree built
// up to that point is returned together with the error so callers can treat
// the failure as non-fatal.
func ParseXML(source string) (*html.Node, error) {
	doc := &html.Node{Type: html.DocumentNode}
	dec := xml.NewDecoder(strings.NewReader(source))
	dec.Strict = true

	parent := doc
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return doc, nil
		}
		if err != nil {
			return doc, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &html.Node{
				Type: html.ElementNode,
				Data: t.Name.Local,
			}
			for _, a := range t.Attr {
				el.Attr = append(el.Attr, html.Attribute{
					Namespace: a.Name.Space,
					Key:       a.Name.Local,
					Val:       a.Value,
				})
			}
			parent.AppendChild(el)
			parent = el
		case xml.EndElement:
			if parent.Parent != nil {
				parent = parent.Parent
			}
		case xml.CharData:
			// Inter-element whitespace at the document level is not a node.
			if parent == doc && strings.TrimSpace(string(t)) == "" {
				continue
			}
			parent.AppendChild(&html.Node{Type: html.TextNode, Data: string(t)})
		case xml.Comment:
			parent.AppendChild(&html.Node{Type: html.CommentNode, Data: string(t)})
		case xml.Directive:
			d := string(t)
			if name, ok := strings.CutPrefix(d, "DOCTYPE "); ok {
				parent.AppendChild(&html.Node{Type: html.DoctypeNode, Data: strings.TrimSpace(name)})
			}
		case xml.ProcInst:
			// XML declarations and processing instructions carry no tree
			// content; dropped.
		}
	}
}
