package dom

import (
	"encoding/xml"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Serialize renders the window's full document, doctype included. HTML
// documents go through x/net/html's serializer; XML documents use XML rules
// (no void elements, empty-element tags for childless elements).
func (w *Window) Serialize() (string, error) {
	var sb strings.Builder
	if w.xml {
		if err := renderXML(&sb, w.Document()); err != nil {
			return "", err
		}
		return sb.String(), nil
	}
	if err := html.Render(&sb, w.Document()); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func renderXML(sb *strings.Builder, n *html.Node) error {
	switch n.Type {
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := renderXML(sb, c); err != nil {
				return err
			}
		}
		return nil
	case html.DoctypeNode:
		fmt.Fprintf(sb, "<!DOCTYPE %s>", n.Data)
		return nil
	case html.CommentNode:
		fmt.Fprintf(sb, "<!--%s-->", n.Data)
		return nil
	case html.TextNode:
		return xml.EscapeText(sb, []byte(n.Data))
	case html.ElementNode:
		sb.WriteByte('<')
		sb.WriteString(n.Data)
		for _, a := range n.Attr {
			sb.WriteString(" ")
			sb.WriteString(a.Key)
			sb.WriteString(`="`)
			if err := xml.EscapeText(sb, []byte(a.Val)); err != nil {
				return err
			}
			sb.WriteString(`"`)
		}
		if n.FirstChild == nil {
			sb.WriteString("/>")
			return nil
		}
		sb.WriteByte('>')
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := renderXML(sb, c); err != nil {
				return err
			}
		}
		fmt.Fprintf(sb, "</%s>", n.Data)
		return nil
	default:
		return fmt.Errorf("cannot serialize node type %d", n.Type)
	}
}
