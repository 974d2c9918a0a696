package sandbox

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/dop251/goja"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// binder materializes *html.Node values as JavaScript objects. One object
// per node for the lifetime of the runtime, so identity comparisons hold on
// the script side.
type binder struct {
	r       *Runtime
	objects map[*html.Node]*goja.Object
	nodes   map[*goja.Object]*html.Node
}

func newBinder(r *Runtime) *binder {
	return &binder{
		r:       r,
		objects: make(map[*html.Node]*goja.Object),
		nodes:   make(map[*goja.Object]*html.Node),
	}
}

// installDocument sets the document global. All lookups read the window's
// current document, so the object installed before parsing stays valid once
// content is materialized.
func (b *binder) installDocument(global *goja.Object) {
	vm := b.r.vm
	doc := vm.NewObject()

	doc.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		nodes := b.query(b.root(), argString(call, 0), true)
		if len(nodes) == 0 {
			return goja.Null()
		}
		return b.object(nodes[0])
	})
	doc.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return b.nodeArray(b.query(b.root(), argString(call, 0), false))
	})
	doc.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		id := argString(call, 0)
		n, err := htmlquery.Query(b.root(), fmt.Sprintf("//*[@id=%q]", id))
		if err != nil || n == nil {
			return goja.Null()
		}
		return b.object(n)
	})
	doc.Set("getElementsByTagName", func(call goja.FunctionCall) goja.Value {
		name := strings.ToLower(argString(call, 0))
		if !validName(name) {
			return b.nodeArray(nil)
		}
		nodes, err := htmlquery.QueryAll(b.root(), "//"+name)
		if err != nil {
			return b.nodeArray(nil)
		}
		return b.nodeArray(nodes)
	})
	doc.Set("getElementsByClassName", func(call goja.FunctionCall) goja.Value {
		cls := argString(call, 0)
		if !validName(cls) {
			return b.nodeArray(nil)
		}
		return b.nodeArray(b.query(b.root(), "."+cls, false))
	})
	doc.Set("createElement", func(call goja.FunctionCall) goja.Value {
		name := strings.ToLower(argString(call, 0))
		if !validName(name) {
			panic(vm.NewTypeError(fmt.Sprintf("invalid element name %q", name)))
		}
		n := &html.Node{Type: html.ElementNode, Data: name, DataAtom: atom.Lookup([]byte(name))}
		return b.object(n)
	})
	doc.Set("createTextNode", func(call goja.FunctionCall) goja.Value {
		return b.object(&html.Node{Type: html.TextNode, Data: argString(call, 0)})
	})

	accessor := func(name string, get func() goja.Value) {
		doc.DefineAccessorProperty(name, vm.ToValue(get), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	}
	accessor("documentElement", func() goja.Value { return b.elementValue(b.findTag("html")) })
	accessor("head", func() goja.Value { return b.elementValue(b.findTag("head")) })
	accessor("body", func() goja.Value { return b.elementValue(b.findTag("body")) })
	accessor("title", func() goja.Value { return vm.ToValue(b.r.win.Title()) })
	accessor("URL", func() goja.Value { return vm.ToValue(b.r.win.URL()) })
	accessor("documentURI", func() goja.Value { return vm.ToValue(b.r.win.DocumentURI()) })
	accessor("referrer", func() goja.Value { return vm.ToValue(b.r.win.Referrer()) })

	global.Set("document", doc)
}

func (b *binder) root() *html.Node {
	return b.r.win.Document()
}

// query resolves a CSS selector. Invalid selectors throw, matching the
// querySelector contract; lookups themselves go through goquery.
func (b *binder) query(scope *html.Node, selector string, first bool) []*html.Node {
	if _, err := cascadia.Compile(selector); err != nil {
		panic(b.r.vm.NewTypeError(fmt.Sprintf("invalid selector %q: %v", selector, err)))
	}
	sel := goquery.NewDocumentFromNode(scope).Find(selector)
	if first && len(sel.Nodes) > 1 {
		return sel.Nodes[:1]
	}
	return sel.Nodes
}

func (b *binder) findTag(name string) *html.Node {
	var found *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == name {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(b.root())
	return found
}

func (b *binder) elementValue(n *html.Node) goja.Value {
	if n == nil {
		return goja.Null()
	}
	return b.object(n)
}

func (b *binder) nodeArray(nodes []*html.Node) goja.Value {
	vals := make([]interface{}, len(nodes))
	for i, n := range nodes {
		vals[i] = b.object(n)
	}
	return b.r.vm.NewArray(vals...)
}

// object returns the cached proxy for a node, creating it on first use.
func (b *binder) object(n *html.Node) *goja.Object {
	if obj, ok := b.objects[n]; ok {
		return obj
	}
	obj := b.buildProxy(n)
	b.objects[n] = obj
	b.nodes[obj] = n
	return obj
}

func (b *binder) nodeOf(v goja.Value) *html.Node {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	return b.nodes[obj]
}

func (b *binder) buildProxy(n *html.Node) *goja.Object {
	vm := b.r.vm
	obj := vm.NewObject()

	switch n.Type {
	case html.TextNode:
		obj.Set("nodeType", 3)
		obj.Set("nodeName", "#text")
	case html.CommentNode:
		obj.Set("nodeType", 8)
		obj.Set("nodeName", "#comment")
	default:
		obj.Set("nodeType", 1)
		obj.Set("nodeName", strings.ToUpper(n.Data))
		obj.Set("tagName", strings.ToUpper(n.Data))
	}

	accessor := func(name string, get func() goja.Value, set func(goja.Value)) {
		var setter goja.Value
		if set != nil {
			setter = vm.ToValue(set)
		}
		obj.DefineAccessorProperty(name, vm.ToValue(get), setter, goja.FLAG_FALSE, goja.FLAG_TRUE)
	}

	if n.Type == html.TextNode || n.Type == html.CommentNode {
		accessor("data",
			func() goja.Value { return vm.ToValue(n.Data) },
			func(v goja.Value) { n.Data = v.String() })
		accessor("textContent",
			func() goja.Value { return vm.ToValue(n.Data) },
			func(v goja.Value) { n.Data = v.String() })
		b.attachTreeMethods(obj, n)
		return obj
	}

	accessor("id",
		func() goja.Value { return vm.ToValue(attr(n, "id")) },
		func(v goja.Value) { setAttr(n, "id", v.String()) })
	accessor("className",
		func() goja.Value { return vm.ToValue(attr(n, "class")) },
		func(v goja.Value) { setAttr(n, "class", v.String()) })
	accessor("textContent",
		func() goja.Value { return vm.ToValue(textContent(n)) },
		func(v goja.Value) {
			removeChildren(n)
			n.AppendChild(&html.Node{Type: html.TextNode, Data: v.String()})
		})
	accessor("innerHTML",
		func() goja.Value { return vm.ToValue(renderChildren(n)) },
		func(v goja.Value) {
			removeChildren(n)
			for _, child := range parseFragment(v.String(), n) {
				n.AppendChild(child)
			}
		})
	accessor("outerHTML", func() goja.Value {
		var sb strings.Builder
		html.Render(&sb, n)
		return vm.ToValue(sb.String())
	}, nil)
	accessor("parentElement", func() goja.Value {
		for p := n.Parent; p != nil; p = p.Parent {
			if p.Type == html.ElementNode {
				return b.object(p)
			}
		}
		return goja.Null()
	}, nil)
	accessor("children", func() goja.Value {
		var kids []*html.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				kids = append(kids, c)
			}
		}
		return b.nodeArray(kids)
	}, nil)

	obj.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		key := argString(call, 0)
		for _, a := range n.Attr {
			if a.Key == key {
				return vm.ToValue(a.Val)
			}
		}
		return goja.Null()
	})
	obj.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		setAttr(n, argString(call, 0), argString(call, 1))
		return goja.Undefined()
	})
	obj.Set("hasAttribute", func(call goja.FunctionCall) goja.Value {
		key := argString(call, 0)
		for _, a := range n.Attr {
			if a.Key == key {
				return vm.ToValue(true)
			}
		}
		return vm.ToValue(false)
	})
	obj.Set("removeAttribute", func(call goja.FunctionCall) goja.Value {
		key := argString(call, 0)
		out := n.Attr[:0]
		for _, a := range n.Attr {
			if a.Key != key {
				out = append(out, a)
			}
		}
		n.Attr = out
		return goja.Undefined()
	})
	obj.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		nodes := b.query(n, argString(call, 0), true)
		if len(nodes) == 0 {
			return goja.Null()
		}
		return b.object(nodes[0])
	})
	obj.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return b.nodeArray(b.query(n, argString(call, 0), false))
	})
	obj.Set("addEventListener", func(call goja.FunctionCall) goja.Value {
		event := argString(call, 0)
		if len(call.Arguments) > 1 {
			if fn, ok := goja.AssertFunction(call.Arguments[1]); ok {
				b.r.addHandler(n, event, fn)
			}
		}
		return goja.Undefined()
	})
	obj.Set("click", func(call goja.FunctionCall) goja.Value {
		b.r.dispatch(n, "click")
		return goja.Undefined()
	})

	b.attachTreeMethods(obj, n)
	return obj
}

func (b *binder) attachTreeMethods(obj *goja.Object, n *html.Node) {
	vm := b.r.vm
	obj.Set("appendChild", func(call goja.FunctionCall) goja.Value {
		child := b.nodeOf(call.Argument(0))
		if child == nil {
			panic(vm.NewTypeError("appendChild expects a node"))
		}
		if child.Parent != nil {
			child.Parent.RemoveChild(child)
		}
		n.AppendChild(child)
		return call.Argument(0)
	})
	obj.Set("removeChild", func(call goja.FunctionCall) goja.Value {
		child := b.nodeOf(call.Argument(0))
		if child == nil || child.Parent != n {
			panic(vm.NewTypeError("node to remove is not a child"))
		}
		n.RemoveChild(child)
		return call.Argument(0)
	})
	obj.Set("remove", func(call goja.FunctionCall) goja.Value {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		return goja.Undefined()
	})
}

func argString(call goja.FunctionCall, i int) string {
	if len(call.Arguments) <= i {
		return ""
	}
	return call.Arguments[i].String()
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

func renderChildren(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		html.Render(&sb, c)
	}
	return sb.String()
}

// parseFragment parses markup in the context of the given element. The
// context is recreated so returned nodes come back detached.
func parseFragment(markup string, context *html.Node) []*html.Node {
	ctx := &html.Node{
		Type:     html.ElementNode,
		Data:     context.Data,
		DataAtom: context.DataAtom,
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil
	}
	return nodes
}
